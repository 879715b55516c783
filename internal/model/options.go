package model

import "time"

// ImportOptions is the configuration snapshot passed into one import call.
// It is immutable for the duration of the import.
type ImportOptions struct {
	SupplierID  int64
	UserID      int64
	ShopID      int64
	PaymentType int64

	DryRun             bool
	CreateMissingGoods bool
	BackupBeforeImport bool
	AutoPay            bool

	UpdateExistingBuyPrice     bool
	UpdateExistingSupplier     bool
	UpdateExistingSellPrice    bool
	UpdateExistingName         bool
	UpdateExistingManufacturer bool

	PrefixNewGoodsWithOrder bool

	// MarkupPercent and RoundStep drive sell-price derivation for lines
	// that reach the writer without a proposed sell price.
	MarkupPercent float64
	RoundStep     float64

	// WaybillDate overrides the document date; when nil the invoice date
	// is used, falling back to the current time.
	WaybillDate *time.Time
}

// ImportResult is the outcome record of one import call.
type ImportResult struct {
	Success       bool
	DryRun        bool
	BackupPath    string
	WaybillID     *int64
	ImportedLines int
	SkippedLines  int
	CreatedGoods  int
	TotalCost     float64
	Warnings      []string
}
