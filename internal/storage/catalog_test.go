package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalog(t *testing.T) {
	ctx := context.Background()
	store := createTestStore(t)

	seedGood(t, store, 1, "GM-1104", "Фильтр масляный", 100, 150, 2, 5)
	seedGood(t, store, 2, "SP-200", "Свеча зажигания", 300, 450, 0, 5)
	seedGood(t, store, 3, "DEAD-1", "Удаленный товар", 10, 20, 0, 5)
	_, err := store.db.Exec("UPDATE goods SET is_deleted = 1 WHERE id = 3")
	require.NoError(t, err)

	_, err = store.db.Exec("INSERT INTO remainders (shop_id, good_id, is_deleted, remainder) VALUES (0, 1, 0, 7.5)")
	require.NoError(t, err)
	_, err = store.db.Exec("INSERT INTO cross_codes (good_id, cross_code) VALUES (1, CAST(? AS TEXT))", EncodeDBText("OLD-GM-1104"))
	require.NoError(t, err)
	_, err = store.db.Exec("INSERT INTO barcodes (good_id, barcode) VALUES (2, CAST(? AS TEXT))", EncodeDBText("4601234567890"))
	require.NoError(t, err)

	catalog, err := store.LoadCatalog(ctx, 0)
	require.NoError(t, err)
	require.Len(t, catalog, 2)

	good1 := catalog[1]
	assert.Equal(t, "GM-1104", good1.ProductCode)
	assert.Equal(t, "Фильтр масляный", good1.Name)
	assert.InDelta(t, 100, good1.BuyPrice, 1e-9)
	assert.InDelta(t, 150, good1.SellPrice, 1e-9)
	assert.Equal(t, int64(2), good1.TaxMode)
	assert.Equal(t, int64(5), good1.SupplierID)
	assert.InDelta(t, 7.5, good1.Remainder, 1e-9)
	assert.Equal(t, []string{"OLD-GM-1104"}, good1.CrossCodes)

	good2 := catalog[2]
	assert.InDelta(t, 0, good2.Remainder, 1e-9)
	assert.Equal(t, []string{"4601234567890"}, good2.Barcodes)
	assert.Empty(t, good2.CrossCodes)
}

func TestLoadCatalogOtherShop(t *testing.T) {
	ctx := context.Background()
	store := createTestStore(t)

	seedGood(t, store, 1, "GM-1104", "Фильтр", 100, 150, 0, 1)
	_, err := store.db.Exec("INSERT INTO remainders (shop_id, good_id, is_deleted, remainder) VALUES (1, 1, 0, 3)")
	require.NoError(t, err)

	catalog, err := store.LoadCatalog(ctx, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0, catalog[1].Remainder, 1e-9)

	catalog, err = store.LoadCatalog(ctx, 1)
	require.NoError(t, err)
	assert.InDelta(t, 3, catalog[1].Remainder, 1e-9)
}

func TestListSuppliers(t *testing.T) {
	ctx := context.Background()
	store := createTestStore(t)

	seedSupplier(t, store, 1, "МИКАДО")
	seedSupplier(t, store, 2, "АКВИЛОН")
	_, err := store.db.Exec("INSERT INTO suppliers (id, name, is_deleted) VALUES (3, CAST(? AS TEXT), 1)", EncodeDBText("Закрытый"))
	require.NoError(t, err)

	suppliers, err := store.ListSuppliers(ctx)
	require.NoError(t, err)
	require.Len(t, suppliers, 2)
	assert.Equal(t, "АКВИЛОН", suppliers[0].Name)
	assert.Equal(t, "МИКАДО", suppliers[1].Name)
}

func TestListUsers(t *testing.T) {
	ctx := context.Background()
	store := createTestStore(t)

	seedUser(t, store, 2, "Кассир")
	seedUser(t, store, 1, "Администратор")

	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, int64(1), users[0].ID)
	assert.Equal(t, "Администратор", users[0].Name)
}

func TestListShops(t *testing.T) {
	ctx := context.Background()

	t.Run("settings rows", func(t *testing.T) {
		store := createTestStore(t)
		for _, row := range [][2]string{
			{"SHOP COUNT", "2"},
			{"SHOP 1", "0,Основной склад"},
			{"SHOP 2", "1,Филиал"},
		} {
			_, err := store.db.Exec(
				"INSERT INTO settings (settings_name, settings_value) VALUES (CAST(? AS TEXT), CAST(? AS TEXT))",
				EncodeDBText(row[0]), EncodeDBText(row[1]))
			require.NoError(t, err)
		}

		shops, err := store.ListShops(ctx)
		require.NoError(t, err)
		require.Len(t, shops, 2)
		assert.Equal(t, int64(0), shops[0].ID)
		assert.Equal(t, "Основной склад", shops[0].Name)
		assert.Equal(t, int64(1), shops[1].ID)
		assert.Equal(t, "Филиал", shops[1].Name)
	})

	t.Run("no rows falls back to default", func(t *testing.T) {
		store := createTestStore(t)
		shops, err := store.ListShops(ctx)
		require.NoError(t, err)
		require.Len(t, shops, 1)
		assert.Equal(t, int64(0), shops[0].ID)
		assert.Equal(t, "Основной склад", shops[0].Name)
	})
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open("/nonexistent/tirika.db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Файл базы не найден")
}
