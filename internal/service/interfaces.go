// Package service coordinates the review workflow between the parser, the
// matcher and the storage layer.
package service

import (
	"context"

	"github.com/ahiokk/tirika-import/internal/model"
)

// Storage is the data access surface the review and import flows need.
type Storage interface {
	LoadCatalog(ctx context.Context, shopID int64) (map[int64]model.CatalogProduct, error)
	ListSuppliers(ctx context.Context) ([]model.Reference, error)
	ListUsers(ctx context.Context) ([]model.Reference, error)
	ListShops(ctx context.Context) ([]model.Reference, error)
	ImportInvoice(ctx context.Context, invoice *model.ParsedInvoice, opts model.ImportOptions) (*model.ImportResult, error)
	CreateBackup(targetDir string) (string, error)
	DBPath() string
}

// PricePolicy is the slice of settings the price review logic depends on.
type PricePolicy struct {
	MarkupPercent           float64
	RoundStep               float64
	AlertThresholdPercent   float64
	UpdateExistingSellPrice bool
}
