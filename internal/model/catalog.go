// Package model defines the domain types shared across the importer.
package model

// CatalogProduct is one row of the in-memory catalog snapshot: a non-deleted
// good joined with its stock level at one shop plus its secondary codes.
// Instances are immutable between catalog reloads.
type CatalogProduct struct {
	GoodID       int64
	ProductCode  string
	Name         string
	Manufacturer string
	BuyPrice     float64
	SellPrice    float64
	TaxMode      int64
	SupplierID   int64
	Remainder    float64
	CrossCodes   []string
	Barcodes     []string
}

// Reference is an id/name pair from one of the lookup tables
// (suppliers, users, shops).
type Reference struct {
	ID   int64
	Name string
}
