// Package config provides the application settings snapshot.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/ahiokk/tirika-import/internal/model"
)

// Settings is the user-tunable configuration loaded from viper. It mirrors
// the keys of the yaml config file and the TIRIKA_* environment variables.
type Settings struct {
	DBPath      string
	InvoicesDir string

	MarkupPercent              float64
	RoundStep                  float64
	PriceAlertThresholdPercent float64

	SupplierID  int64
	UserID      int64
	ShopID      int64
	PaymentType int64

	CreateMissingGoods         bool
	UpdateExistingBuyPrice     bool
	UpdateExistingSupplier     bool
	UpdateExistingSellPrice    bool
	UpdateExistingName         bool
	UpdateExistingManufacturer bool
	AutoPay                    bool
	BackupBeforeImport         bool
	PrefixNewGoodsWithOrder    bool
}

// SetDefaults registers the default value of every settings key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("db.path", "")
	v.SetDefault("invoices.dir", "")

	v.SetDefault("pricing.markup_percent", 50.0)
	v.SetDefault("pricing.round_step", 50.0)
	v.SetDefault("pricing.alert_threshold_percent", 35.0)

	v.SetDefault("import.supplier_id", 1)
	v.SetDefault("import.user_id", 1)
	v.SetDefault("import.shop_id", 0)
	v.SetDefault("import.payment_type", 1)

	v.SetDefault("import.create_missing_goods", true)
	v.SetDefault("import.update_buy_price", true)
	v.SetDefault("import.update_supplier", true)
	v.SetDefault("import.update_sell_price", false)
	v.SetDefault("import.update_name", false)
	v.SetDefault("import.update_manufacturer", false)
	v.SetDefault("import.auto_pay", true)
	v.SetDefault("import.backup", true)
	v.SetDefault("import.prefix_new_goods", true)
}

// Load builds a Settings snapshot from v, clamping values the same way the
// desktop build always has: round step at least 1, alert threshold at least 0.
func Load(v *viper.Viper) Settings {
	s := Settings{
		DBPath:      ExpandPath(v.GetString("db.path")),
		InvoicesDir: ExpandPath(v.GetString("invoices.dir")),

		MarkupPercent:              v.GetFloat64("pricing.markup_percent"),
		RoundStep:                  v.GetFloat64("pricing.round_step"),
		PriceAlertThresholdPercent: v.GetFloat64("pricing.alert_threshold_percent"),

		SupplierID:  v.GetInt64("import.supplier_id"),
		UserID:      v.GetInt64("import.user_id"),
		ShopID:      v.GetInt64("import.shop_id"),
		PaymentType: v.GetInt64("import.payment_type"),

		CreateMissingGoods:         v.GetBool("import.create_missing_goods"),
		UpdateExistingBuyPrice:     v.GetBool("import.update_buy_price"),
		UpdateExistingSupplier:     v.GetBool("import.update_supplier"),
		UpdateExistingSellPrice:    v.GetBool("import.update_sell_price"),
		UpdateExistingName:         v.GetBool("import.update_name"),
		UpdateExistingManufacturer: v.GetBool("import.update_manufacturer"),
		AutoPay:                    v.GetBool("import.auto_pay"),
		BackupBeforeImport:         v.GetBool("import.backup"),
		PrefixNewGoodsWithOrder:    v.GetBool("import.prefix_new_goods"),
	}

	if s.RoundStep < 1 {
		s.RoundStep = 1
	}
	if s.PriceAlertThresholdPercent < 0 {
		s.PriceAlertThresholdPercent = 0
	}
	return s
}

// ImportOptions converts the settings into the immutable per-import snapshot.
func (s Settings) ImportOptions() model.ImportOptions {
	return model.ImportOptions{
		SupplierID:  s.SupplierID,
		UserID:      s.UserID,
		ShopID:      s.ShopID,
		PaymentType: s.PaymentType,

		CreateMissingGoods: s.CreateMissingGoods,
		BackupBeforeImport: s.BackupBeforeImport,
		AutoPay:            s.AutoPay,

		UpdateExistingBuyPrice:     s.UpdateExistingBuyPrice,
		UpdateExistingSupplier:     s.UpdateExistingSupplier,
		UpdateExistingSellPrice:    s.UpdateExistingSellPrice,
		UpdateExistingName:         s.UpdateExistingName,
		UpdateExistingManufacturer: s.UpdateExistingManufacturer,

		PrefixNewGoodsWithOrder: s.PrefixNewGoodsWithOrder,

		MarkupPercent: s.MarkupPercent,
		RoundStep:     s.RoundStep,
	}
}

// ExpandPath expands ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}
