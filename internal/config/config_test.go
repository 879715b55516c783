package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	s := Load(v)

	assert.Equal(t, "", s.DBPath)
	assert.InDelta(t, 50, s.MarkupPercent, 1e-9)
	assert.InDelta(t, 50, s.RoundStep, 1e-9)
	assert.InDelta(t, 35, s.PriceAlertThresholdPercent, 1e-9)
	assert.Equal(t, int64(1), s.SupplierID)
	assert.Equal(t, int64(1), s.UserID)
	assert.Equal(t, int64(0), s.ShopID)

	assert.True(t, s.CreateMissingGoods)
	assert.True(t, s.UpdateExistingBuyPrice)
	assert.True(t, s.UpdateExistingSupplier)
	assert.False(t, s.UpdateExistingSellPrice)
	assert.False(t, s.UpdateExistingName)
	assert.True(t, s.AutoPay)
	assert.True(t, s.BackupBeforeImport)
	assert.True(t, s.PrefixNewGoodsWithOrder)
}

func TestLoadClamps(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("pricing.round_step", 0)
	v.Set("pricing.alert_threshold_percent", -10)

	s := Load(v)
	assert.InDelta(t, 1, s.RoundStep, 1e-9)
	assert.InDelta(t, 0, s.PriceAlertThresholdPercent, 1e-9)
}

func TestImportOptions(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("import.supplier_id", 7)
	v.Set("import.update_sell_price", true)

	opts := Load(v).ImportOptions()
	assert.Equal(t, int64(7), opts.SupplierID)
	assert.True(t, opts.UpdateExistingSellPrice)
	assert.True(t, opts.AutoPay)
	assert.InDelta(t, 50, opts.MarkupPercent, 1e-9)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "tirika.db"), ExpandPath("~/tirika.db"))
	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, "", ExpandPath(""))
	assert.Equal(t, "/opt/tirika.db", ExpandPath("/opt/tirika.db"))

	t.Setenv("TIRIKA_TEST_DIR", "/data")
	assert.Equal(t, "/data/tirika.db", ExpandPath("$TIRIKA_TEST_DIR/tirika.db"))
}
