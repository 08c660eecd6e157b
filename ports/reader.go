package ports

import (
	"context"
	"io"

	"painel/domain/dataset"
)

// TableReader turns an uploaded file into a raw table. name carries the
// original file name, whose extension selects the format.
type TableReader interface {
	Read(ctx context.Context, name string, src io.Reader) (*dataset.ReadResult, error)
}

// CatalogReader provides read-only access to the catalog for the API.
// It ensures the API cannot write to the catalog.
type CatalogReader interface {
	Get(ctx context.Context, name string) (*dataset.Entry, error)
	List(ctx context.Context) ([]dataset.Summary, error)
}
