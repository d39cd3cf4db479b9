package fakeexporter

import (
	"context"
	"sync"

	"github.com/fieldcollect/go-session-server/exporter"
	"github.com/fieldcollect/go-session-server/principals"
)

var _ exporter.DatasetExporter = (*FakeExporter)(nil)

type ExportCall struct {
	Principal principals.Info
	Token     string
}

type FakeExporter struct {
	calls []ExportCall
	err   error
	lock  sync.Mutex
}

func NewFakeExporter() *FakeExporter {
	return &FakeExporter{}
}

func (fe *FakeExporter) FailWith(err error) {
	fe.lock.Lock()
	defer fe.lock.Unlock()

	fe.err = err
}

func (fe *FakeExporter) ExportTenantDataset(_ context.Context, principal principals.Info, token string) error {
	fe.lock.Lock()
	defer fe.lock.Unlock()

	if fe.err != nil {
		return fe.err
	}
	fe.calls = append(fe.calls, ExportCall{Principal: principal, Token: token})
	return nil
}

func (fe *FakeExporter) Calls() []ExportCall {
	fe.lock.Lock()
	defer fe.lock.Unlock()

	return append([]ExportCall(nil), fe.calls...)
}
