package exporter

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/fieldcollect/go-session-server/principals"
)

var _ DatasetExporter = (*LogExporter)(nil)

// LogExporter stands in for the external export collaborator when none is
// wired: it records the trigger and succeeds.
type LogExporter struct{}

func NewLogExporter() *LogExporter {
	return &LogExporter{}
}

func (*LogExporter) ExportTenantDataset(_ context.Context, principal principals.Info, _ string) error {
	log.Info().
		Str("username", principal.Username).
		Str("tenant_db", principal.TenantDBName).
		Msg("tenant dataset export triggered")
	return nil
}
