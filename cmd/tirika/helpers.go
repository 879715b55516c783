package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/ahiokk/tirika-import/internal/cli"
	"github.com/ahiokk/tirika-import/internal/common"
	"github.com/ahiokk/tirika-import/internal/config"
	"github.com/ahiokk/tirika-import/internal/match"
	"github.com/ahiokk/tirika-import/internal/parser"
	"github.com/ahiokk/tirika-import/internal/service"
	"github.com/ahiokk/tirika-import/internal/storage"
)

// loadSettings snapshots the viper state into a Settings value.
func loadSettings() config.Settings {
	return config.Load(viper.GetViper())
}

// openStore opens the configured Tirika database.
func openStore(settings config.Settings) (*storage.Store, error) {
	if settings.DBPath == "" {
		return nil, fmt.Errorf("%w: укажите --db или db.path в конфиге", common.ErrMissingConfig)
	}
	return storage.Open(settings.DBPath)
}

// resolveInvoicePath returns the invoice path as given, or relative to the
// configured invoices directory when the bare path does not exist.
func resolveInvoicePath(settings config.Settings, path string) string {
	if _, err := os.Stat(path); err == nil {
		return path
	}
	if settings.InvoicesDir == "" {
		return path
	}
	candidate := filepath.Join(settings.InvoicesDir, path)
	if _, err := os.Stat(candidate); err == nil {
		slog.Debug("invoice resolved in invoices dir", "path", candidate)
		return candidate
	}
	return path
}

// newMatcher loads the catalog snapshot for the shop and builds the indexes.
func newMatcher(ctx context.Context, store service.Storage, settings config.Settings) (*match.Matcher, error) {
	catalog, err := store.LoadCatalog(ctx, settings.ShopID)
	if err != nil {
		return nil, err
	}
	if len(catalog) == 0 {
		return nil, fmt.Errorf("%w: в базе %s нет товаров", common.ErrCatalogNotReady, store.DBPath())
	}
	slog.Debug("catalog loaded", "goods", len(catalog), "shop_id", settings.ShopID)
	return match.New(catalog), nil
}

// loadSession parses the invoice file and matches every line against the
// catalog, showing a progress bar on the way.
func loadSession(ctx context.Context, store service.Storage, settings config.Settings, filePath string) (*service.Session, error) {
	invoice, err := parser.ParseInvoiceFile(resolveInvoicePath(settings, filePath))
	if err != nil {
		return nil, err
	}
	slog.Info("invoice parsed",
		"file", invoice.FilePath,
		"source", invoice.SourceType,
		"supplier_hint", invoice.SupplierHint,
		"lines", len(invoice.Lines))

	matcher, err := newMatcher(ctx, store, settings)
	if err != nil {
		return nil, err
	}

	session := service.NewSession(invoice, matcher, service.PricePolicy{
		MarkupPercent:           settings.MarkupPercent,
		RoundStep:               settings.RoundStep,
		AlertThresholdPercent:   settings.PriceAlertThresholdPercent,
		UpdateExistingSellPrice: settings.UpdateExistingSellPrice,
	})

	bar := cli.NewMatchProgressBar(os.Stderr, len(invoice.Lines))
	session.MatchAll(func(done, total int) {
		_ = bar.Set(done)
	})
	return session, nil
}

// resolveSupplier picks the supplier id: an explicit flag wins, then a
// supplier whose name matches the invoice hint, then the configured default.
func resolveSupplier(ctx context.Context, store service.Storage, settings config.Settings, hint string) int64 {
	if hint == "" {
		return settings.SupplierID
	}
	suppliers, err := store.ListSuppliers(ctx)
	if err != nil {
		slog.Warn("failed to list suppliers", "error", err)
		return settings.SupplierID
	}
	if ref, ok := match.BestSupplier(suppliers, hint); ok {
		slog.Info("supplier detected from invoice", "supplier", ref.Name, "id", ref.ID)
		return ref.ID
	}
	slog.Warn("supplier not detected from hint", "hint", hint)
	return settings.SupplierID
}

func printSummary(session *service.Session) {
	fmt.Println(cli.RenderLineTable(session.Lines()))
	fmt.Println(cli.RenderSummary(session.Summarize()))
}
