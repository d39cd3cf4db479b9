package exporter

import (
	"context"

	"github.com/fieldcollect/go-session-server/principals"
)

// DatasetExporter delivers a full copy of a collector's tenant dataset as part
// of the collector login response. The implementation is an external
// collaborator; this subsystem only triggers it.
type DatasetExporter interface {
	ExportTenantDataset(ctx context.Context, principal principals.Info, token string) error
}
