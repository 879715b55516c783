package service

import (
	"fmt"
	"math"
	"reflect"

	"github.com/ahiokk/tirika-import/internal/match"
	"github.com/ahiokk/tirika-import/internal/model"
)

// maxHistoryStates caps the undo ring; the oldest snapshots fall off first.
const maxHistoryStates = 80

const priceEpsilon = 0.0001

// Session holds one invoice under review: its lines, the matcher they are
// resolved against, and an undo history of line snapshots. Every mutating
// operation refreshes the affected lines' price state and records a
// history snapshot.
type Session struct {
	invoice *model.ParsedInvoice
	matcher *match.Matcher
	policy  PricePolicy

	history      [][]model.InvoiceLine
	historyIndex int
}

// NewSession wraps a parsed invoice for review.
func NewSession(invoice *model.ParsedInvoice, matcher *match.Matcher, policy PricePolicy) *Session {
	return &Session{
		invoice:      invoice,
		matcher:      matcher,
		policy:       policy,
		historyIndex: -1,
	}
}

// Invoice returns the invoice under review.
func (s *Session) Invoice() *model.ParsedInvoice { return s.invoice }

// Lines returns the live line slice. Callers mutate lines only through
// Session methods so the history stays consistent.
func (s *Session) Lines() []model.InvoiceLine { return s.invoice.Lines }

// Matcher returns the catalog matcher backing this session.
func (s *Session) Matcher() *match.Matcher { return s.matcher }

func (s *Session) line(index int) (*model.InvoiceLine, error) {
	if index < 0 || index >= len(s.invoice.Lines) {
		return nil, fmt.Errorf("строка %d вне диапазона (всего %d)", index, len(s.invoice.Lines))
	}
	return &s.invoice.Lines[index], nil
}

// MatchAll resolves every line against the catalog, skipping lines with a
// sticky manual binding, and refreshes their price state. progress, when
// non-nil, is called after each line.
func (s *Session) MatchAll(progress func(done, total int)) {
	total := len(s.invoice.Lines)
	for i := range s.invoice.Lines {
		line := &s.invoice.Lines[i]
		if !line.Flags.Has(model.FlagManualEdit) {
			s.matcher.MatchLine(line)
		}
		s.RefreshPriceState(line)
		if progress != nil {
			progress(i+1, total)
		}
	}
	s.recordHistory()
}

// RefreshPriceState re-derives the price columns of one line: the current
// catalog sell price, the markup-based suggestion, the one-time seeding of
// the proposed sell price, and the deviation alert. A forced sell-price
// update is cancelled when the proposed price returns to the catalog value.
func (s *Session) RefreshPriceState(line *model.InvoiceLine) {
	existingSell := line.ExistingSellPrice
	if line.MatchedGoodID != nil {
		if good, ok := s.matcher.Good(*line.MatchedGoodID); ok {
			existingSell = model.Float64Ptr(good.SellPrice)
		}
	}
	line.ExistingSellPrice = existingSell

	suggested := model.SuggestedSellPrice(line.Price, s.policy.MarkupPercent, s.policy.RoundStep)
	line.SuggestedSellPrice = model.Float64Ptr(suggested)

	if !line.Flags.Has(model.FlagSellInitialized) {
		switch {
		case line.SellPrice == nil:
			line.SellPrice = model.Float64Ptr(suggested)
		case existingSell != nil && math.Abs(*line.SellPrice-*existingSell) <= priceEpsilon:
			line.SellPrice = model.Float64Ptr(suggested)
		case existingSell == nil && math.Abs(*line.SellPrice-line.Price) <= priceEpsilon:
			line.SellPrice = model.Float64Ptr(suggested)
		}
		line.Flags = line.Flags.Set(model.FlagSellInitialized)
	}

	if line.Flags.Has(model.FlagForceSellUpdate) {
		if existingSell == nil || line.SellPrice == nil ||
			math.Abs(*line.SellPrice-*existingSell) <= priceEpsilon {
			line.Flags.Clear(model.FlagForceSellUpdate)
		}
	}
	if line.Flags.Has(model.FlagPriceApplied) {
		if existingSell == nil || line.SellPrice == nil ||
			math.Abs(*line.SellPrice-*existingSell) <= priceEpsilon {
			line.Flags.Clear(model.FlagPriceApplied)
		}
	}

	if existingSell == nil {
		line.SellPriceDiffPercent = nil
		line.PriceAlert = false
		return
	}

	if s.policy.UpdateExistingSellPrice || line.Flags.Has(model.FlagForceSellUpdate) {
		line.SellPriceDiffPercent = model.Float64Ptr(0)
		line.PriceAlert = false
		return
	}

	sell := 0.0
	if line.SellPrice != nil {
		sell = *line.SellPrice
	}
	var diffPct float64
	if *existingSell <= 0 {
		if sell > 0 {
			diffPct = 100
		}
	} else {
		diffPct = math.Abs(sell-*existingSell) / *existingSell * 100
	}
	line.SellPriceDiffPercent = model.Float64Ptr(diffPct)
	line.PriceAlert = diffPct >= s.policy.AlertThresholdPercent
}

// SetAction changes the writer action for one line.
func (s *Session) SetAction(index int, action model.LineAction) error {
	line, err := s.line(index)
	if err != nil {
		return err
	}
	line.Action = action
	s.recordHistory()
	return nil
}

// SetSellPrice sets the proposed sell price for one line. The seeded flag is
// set so the next refresh keeps the user's value.
func (s *Session) SetSellPrice(index int, price float64) error {
	line, err := s.line(index)
	if err != nil {
		return err
	}
	line.SellPrice = model.Float64Ptr(price)
	line.Flags = line.Flags.Set(model.FlagSellInitialized)
	s.RefreshPriceState(line)
	s.recordHistory()
	return nil
}

// ForceSellUpdate marks one line's sell price for a catalog write even when
// the global sell-price policy is off, or releases the mark.
func (s *Session) ForceSellUpdate(index int, force bool) error {
	line, err := s.line(index)
	if err != nil {
		return err
	}
	if force {
		line.Flags = line.Flags.Set(model.FlagForceSellUpdate)
	} else {
		line.Flags.Clear(model.FlagForceSellUpdate)
	}
	s.RefreshPriceState(line)
	s.recordHistory()
	return nil
}

// ApplySuggestedPrices bulk-applies the markup-based suggestion to the given
// line indexes, or to every line when indexes is empty. Lines whose catalog
// price differs from the suggestion get marked for a forced catalog update.
// Returns how many proposed prices changed and how many lines were newly
// marked for the catalog write.
func (s *Session) ApplySuggestedPrices(indexes []int) (changed, markedForDB int) {
	if len(indexes) == 0 {
		indexes = make([]int, len(s.invoice.Lines))
		for i := range indexes {
			indexes[i] = i
		}
	}
	for _, idx := range indexes {
		line, err := s.line(idx)
		if err != nil {
			continue
		}
		s.RefreshPriceState(line)
		if line.SuggestedSellPrice == nil {
			continue
		}
		suggested := *line.SuggestedSellPrice

		if line.ExistingSellPrice != nil && math.Abs(*line.ExistingSellPrice-suggested) > priceEpsilon {
			if !line.Flags.Has(model.FlagForceSellUpdate) {
				markedForDB++
			}
			line.Flags = line.Flags.Set(model.FlagForceSellUpdate)
			line.Flags = line.Flags.Set(model.FlagPriceApplied)
		}

		if line.SellPrice == nil || math.Abs(*line.SellPrice-suggested) > priceEpsilon {
			line.SellPrice = model.Float64Ptr(suggested)
			line.Flags = line.Flags.Set(model.FlagSellInitialized)
			line.Flags = line.Flags.Set(model.FlagPriceApplied)
			changed++
			s.RefreshPriceState(line)
		}
	}
	if changed > 0 || markedForDB > 0 {
		s.recordHistory()
	}
	return changed, markedForDB
}

// ManualBind binds one line to a catalog product and makes the binding
// sticky. A skipped line returns to the import action.
func (s *Session) ManualBind(index int, goodID int64) error {
	line, err := s.line(index)
	if err != nil {
		return err
	}
	if err := s.matcher.ApplyManualGood(line, goodID); err != nil {
		return err
	}
	if line.Action == model.ActionSkip {
		line.Action = model.ActionImport
	}
	s.RefreshPriceState(line)
	s.recordHistory()
	return nil
}

// ClearBinding drops a line's product binding and manual override; the line
// reads as not found until re-matched or re-bound.
func (s *Session) ClearBinding(index int) error {
	line, err := s.line(index)
	if err != nil {
		return err
	}
	match.ClearManualOverride(line)
	line.MatchedGoodID = nil
	line.MatchedName = line.Name
	line.MatchedProductCode = line.Article
	line.ExistingSellPrice = nil
	line.MatchStatus = model.StatusNotFound
	line.Warning = "Good ID очищен вручную."
	s.RefreshPriceState(line)
	s.recordHistory()
	return nil
}

// Rematch releases any manual override on one line and re-runs the staged
// matching for it.
func (s *Session) Rematch(index int) error {
	line, err := s.line(index)
	if err != nil {
		return err
	}
	match.ClearManualOverride(line)
	s.matcher.MatchLine(line)
	s.RefreshPriceState(line)
	s.recordHistory()
	return nil
}

// CanUndo reports whether an earlier snapshot exists.
func (s *Session) CanUndo() bool { return s.historyIndex > 0 }

// CanRedo reports whether a later snapshot exists.
func (s *Session) CanRedo() bool {
	return s.historyIndex >= 0 && s.historyIndex+1 < len(s.history)
}

// Undo restores the previous snapshot.
func (s *Session) Undo() bool {
	if !s.CanUndo() {
		return false
	}
	s.restoreHistory(s.historyIndex - 1)
	return true
}

// Redo restores the next snapshot.
func (s *Session) Redo() bool {
	if !s.CanRedo() {
		return false
	}
	s.restoreHistory(s.historyIndex + 1)
	return true
}

func (s *Session) recordHistory() {
	snapshot := model.CloneLines(s.invoice.Lines)
	if s.historyIndex >= 0 && s.historyIndex < len(s.history) &&
		reflect.DeepEqual(s.history[s.historyIndex], snapshot) {
		return
	}

	if s.historyIndex+1 < len(s.history) {
		s.history = s.history[:s.historyIndex+1]
	}
	s.history = append(s.history, snapshot)
	if overflow := len(s.history) - maxHistoryStates; overflow > 0 {
		s.history = s.history[overflow:]
	}
	s.historyIndex = len(s.history) - 1
}

func (s *Session) restoreHistory(index int) {
	s.historyIndex = index
	s.invoice.Lines = model.CloneLines(s.history[index])
}

// Summary aggregates per-status counters over the current lines.
type Summary struct {
	Total       int
	Matched     int
	Fuzzy       int
	Ambiguous   int
	NotFound    int
	ToCreate    int
	Skipped     int
	PriceAlerts int
	TotalSum    float64
}

// Summarize counts the lines by status and totals the invoice amount.
func (s *Session) Summarize() Summary {
	out := Summary{Total: len(s.invoice.Lines)}
	for _, line := range s.invoice.Lines {
		switch line.MatchStatus {
		case model.StatusExact, model.StatusManual:
			out.Matched++
		case model.StatusFuzzy:
			out.Fuzzy++
		case model.StatusAmbiguous:
			out.Ambiguous++
		case model.StatusNotFound:
			out.NotFound++
		}
		switch line.Action {
		case model.ActionCreate:
			out.ToCreate++
		case model.ActionSkip:
			out.Skipped++
		}
		if line.PriceAlert {
			out.PriceAlerts++
		}
		if line.Total > 0 {
			out.TotalSum += line.Total
		} else {
			out.TotalSum += line.Quantity * line.Price
		}
	}
	return out
}
