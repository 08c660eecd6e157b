package ports

import (
	"context"

	"painel/domain/dataset"
)

// DatasetCatalog stores processed datasets by name. Saving an existing name
// replaces the previous entry but keeps its ID and creation time; Save writes
// the stored ID, CreatedAt and UpdatedAt back into the entry it was given.
type DatasetCatalog interface {
	Save(ctx context.Context, entry *dataset.Entry) error
	Get(ctx context.Context, name string) (*dataset.Entry, error)
	List(ctx context.Context) ([]dataset.Summary, error)
	Delete(ctx context.Context, name string) error
}
