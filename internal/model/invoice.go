package model

import "time"

// MatchStatus classifies how a line was resolved against the catalog.
type MatchStatus string

// Match statuses, from strongest to weakest.
const (
	StatusExact     MatchStatus = "exact"
	StatusManual    MatchStatus = "manual"
	StatusFuzzy     MatchStatus = "fuzzy"
	StatusHint      MatchStatus = "hint"
	StatusAmbiguous MatchStatus = "ambiguous"
	StatusNotFound  MatchStatus = "not_found"
)

// LineAction is what the import writer should do with a line.
type LineAction string

// Line actions.
const (
	ActionImport LineAction = "import"
	ActionCreate LineAction = "create"
	ActionSkip   LineAction = "skip"
)

// LineFlag is a transient per-line marker toggled by the review flow.
// The set of flags is closed so every state transition stays enumerable.
type LineFlag string

// Known line flags.
const (
	// FlagForceSellUpdate forces the sell-price update for this line even
	// when the global update policy has it disabled.
	FlagForceSellUpdate LineFlag = "force_sell_update"
	// FlagSellInitialized records that the proposed sell price has been
	// seeded once and must not be re-derived on the next refresh.
	FlagSellInitialized LineFlag = "sell_initialized"
	// FlagPriceApplied marks lines whose sell price came from the bulk
	// "apply suggested price" action.
	FlagPriceApplied LineFlag = "price_applied"
	// FlagManualEdit makes a manual binding or edit sticky: automatic
	// re-matching skips the line until the flag is cleared.
	FlagManualEdit LineFlag = "manual_edit"
)

// LineFlags is a set of LineFlag values.
type LineFlags map[LineFlag]struct{}

// Has reports whether the flag is set.
func (f LineFlags) Has(flag LineFlag) bool {
	_, ok := f[flag]
	return ok
}

// Set adds the flag, allocating the set if needed, and returns it.
func (f LineFlags) Set(flag LineFlag) LineFlags {
	if f == nil {
		f = make(LineFlags)
	}
	f[flag] = struct{}{}
	return f
}

// Clear removes the flag.
func (f LineFlags) Clear(flag LineFlag) {
	delete(f, flag)
}

// Clone returns an independent copy of the set.
func (f LineFlags) Clone() LineFlags {
	if f == nil {
		return nil
	}
	out := make(LineFlags, len(f))
	for k := range f {
		out[k] = struct{}{}
	}
	return out
}

// MatchCandidate is a scored, read-only projection of a catalog product
// produced by the matcher. Candidates are never persisted.
type MatchCandidate struct {
	GoodID       int64
	ProductCode  string
	Name         string
	Manufacturer string
	BuyPrice     float64
	SellPrice    float64
	Remainder    float64
	MatchMethod  string
	Score        float64
}

// InvoiceLine is one parsed invoice row plus its mutable matching and
// review state. Lines are created by the parser, re-derived by the matcher
// and user edits, and consumed (not destroyed) by the import writer.
type InvoiceLine struct {
	LineNo         int
	Article        string
	Name           string
	Note           string
	Manufacturer   string
	Quantity       float64
	Price          float64
	Total          float64
	SourceSupplier string

	MatchStatus MatchStatus
	MatchMethod string
	Warning     string
	Action      LineAction

	MatchedGoodID        *int64
	MatchedProductCode   string
	MatchedName          string
	MatchedBuyPrice      *float64
	ExistingSellPrice    *float64
	SellPrice            *float64
	SuggestedSellPrice   *float64
	SellPriceDiffPercent *float64
	PriceAlert           bool
	SimilarArticles      string
	MatchedTaxMode       int64
	Candidates           []MatchCandidate
	Flags                LineFlags
}

// Clone returns a deep copy of the line.
func (l InvoiceLine) Clone() InvoiceLine {
	out := l
	out.MatchedGoodID = cloneInt64(l.MatchedGoodID)
	out.MatchedBuyPrice = cloneFloat64(l.MatchedBuyPrice)
	out.ExistingSellPrice = cloneFloat64(l.ExistingSellPrice)
	out.SellPrice = cloneFloat64(l.SellPrice)
	out.SuggestedSellPrice = cloneFloat64(l.SuggestedSellPrice)
	out.SellPriceDiffPercent = cloneFloat64(l.SellPriceDiffPercent)
	out.Candidates = append([]MatchCandidate(nil), l.Candidates...)
	out.Flags = l.Flags.Clone()
	return out
}

// CloneLines deep-copies a slice of lines, preserving order.
func CloneLines(lines []InvoiceLine) []InvoiceLine {
	out := make([]InvoiceLine, len(lines))
	for i, line := range lines {
		out[i] = line.Clone()
	}
	return out
}

// ParsedInvoice is the normalized output of one invoice file load.
type ParsedInvoice struct {
	FilePath      string
	SupplierHint  string
	SourceType    string
	Lines         []InvoiceLine
	InvoiceNumber string
	InvoiceDate   *time.Time
	Currency      string
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func cloneFloat64(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 { return &v }

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 { return &v }
