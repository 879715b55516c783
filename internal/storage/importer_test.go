package storage

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahiokk/tirika-import/internal/common"
	"github.com/ahiokk/tirika-import/internal/model"
)

func testImportOptions() model.ImportOptions {
	return model.ImportOptions{
		SupplierID:  1,
		UserID:      1,
		ShopID:      0,
		PaymentType: 1,

		CreateMissingGoods: true,
		AutoPay:            true,

		UpdateExistingBuyPrice: true,
		UpdateExistingSupplier: true,

		PrefixNewGoodsWithOrder: true,
		MarkupPercent:           50,
		RoundStep:               50,
	}
}

func testInvoice() *model.ParsedInvoice {
	return &model.ParsedInvoice{
		FilePath:      "/tmp/nakladnaya_123.html",
		SupplierHint:  "МИКАДО",
		SourceType:    "mikado_html",
		InvoiceNumber: "А-123",
		Lines: []model.InvoiceLine{
			{
				LineNo: 1, Article: "GM-1104", Name: "Фильтр масляный",
				Quantity: 2, Price: 100, Total: 200, SourceSupplier: "МИКАДО",
				MatchedGoodID: model.Int64Ptr(100), MatchedProductCode: "GM-1104",
				MatchedName: "Фильтр масляный", SellPrice: model.Float64Ptr(150),
				Action: model.ActionImport,
			},
			{
				LineNo: 2, Article: "NEW-555", Name: "Щетка стеклоочистителя",
				Quantity: 1, Price: 80, Total: 80, SourceSupplier: "МИКАДО",
				Action: model.ActionCreate,
			},
			{
				LineNo: 3, Article: "SKIP-1", Name: "Не нужно",
				Quantity: 1, Price: 10, Total: 10, SourceSupplier: "МИКАДО",
				Action: model.ActionSkip,
			},
		},
	}
}

func seedImportBase(t *testing.T, store *Store) {
	t.Helper()
	seedSupplier(t, store, 1, "МИКАДО")
	seedUser(t, store, 1, "Администратор")
	seedGood(t, store, 100, "GM-1104", "Фильтр масляный", 90, 140, 2, 7)
}

func TestImportInvoiceCommit(t *testing.T) {
	ctx := context.Background()
	store := createTestStore(t)
	seedImportBase(t, store)

	result, err := store.ImportInvoice(ctx, testInvoice(), testImportOptions())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.False(t, result.DryRun)
	require.NotNil(t, result.WaybillID)
	assert.Equal(t, 2, result.ImportedLines)
	assert.Equal(t, 1, result.SkippedLines)
	assert.Equal(t, 1, result.CreatedGoods)
	assert.InDelta(t, 280, result.TotalCost, 1e-9)

	t.Run("waybill written as purchase", func(t *testing.T) {
		var recordType, contractorID, userID int64
		var cost, paid float64
		require.NoError(t, store.db.QueryRow(`
			SELECT record_type, contractor_id, user_id, cost, paid
			FROM waybills WHERE id = ?`, *result.WaybillID).
			Scan(&recordType, &contractorID, &userID, &cost, &paid))
		assert.Equal(t, int64(1), recordType)
		assert.Equal(t, int64(1), contractorID)
		assert.Equal(t, int64(1), userID)
		assert.InDelta(t, 280, cost, 1e-9)
		assert.InDelta(t, 280, paid, 1e-9)
	})

	t.Run("items written", func(t *testing.T) {
		assert.Equal(t, 2, countRows(t, store, "waybill_items"))
		var taxMode int64
		require.NoError(t, store.db.QueryRow(
			"SELECT tax_mode FROM waybill_items WHERE goods_id = 100").Scan(&taxMode))
		assert.Equal(t, int64(2), taxMode)
	})

	t.Run("stock incremented", func(t *testing.T) {
		var remainder float64
		require.NoError(t, store.db.QueryRow(
			"SELECT remainder FROM remainders WHERE shop_id = 0 AND good_id = 100").Scan(&remainder))
		assert.InDelta(t, 2, remainder, 1e-9)
	})

	t.Run("existing good updated per policy", func(t *testing.T) {
		var buyPrice, sellPrice float64
		var supplierID int64
		require.NoError(t, store.db.QueryRow(
			"SELECT buy_price, price, supplier_id FROM goods WHERE id = 100").
			Scan(&buyPrice, &sellPrice, &supplierID))
		assert.InDelta(t, 100, buyPrice, 1e-9)
		assert.InDelta(t, 140, sellPrice, 1e-9, "sell price update is off by default")
		assert.Equal(t, int64(1), supplierID)
	})

	t.Run("new good created in importer group", func(t *testing.T) {
		var name, code []byte
		var groupID int64
		require.NoError(t, store.db.QueryRow(
			"SELECT name, product_code, group_id FROM goods WHERE id = 101").
			Scan(&name, &code, &groupID))
		assert.Equal(t, "ЗАКАЗ--Щетка стеклоочистителя", DecodeDBText(name))
		assert.Equal(t, "NEW555", DecodeDBText(code))

		var groupName []byte
		require.NoError(t, store.db.QueryRow(
			"SELECT name FROM good_groups WHERE id = ?", groupID).Scan(&groupName))
		assert.Equal(t, "Dazzle", DecodeDBText(groupName))

		var crossCode []byte
		require.NoError(t, store.db.QueryRow(
			"SELECT cross_code FROM cross_codes WHERE good_id = 101").Scan(&crossCode))
		assert.Equal(t, "Dazzle-auto-made-from-МИКАДО", DecodeDBText(crossCode))
	})

	t.Run("payment and operation written", func(t *testing.T) {
		assert.Equal(t, 1, countRows(t, store, "payments"))
		assert.Equal(t, 1, countRows(t, store, "operations"))

		var objectType, operationType, objectID int64
		require.NoError(t, store.db.QueryRow(
			"SELECT object_type, operation_type, object_id FROM operations").
			Scan(&objectType, &operationType, &objectID))
		assert.Equal(t, int64(3), objectType)
		assert.Equal(t, int64(1), operationType)
		assert.Equal(t, *result.WaybillID, objectID)
	})
}

func TestImportInvoiceDryRun(t *testing.T) {
	ctx := context.Background()
	store := createTestStore(t)
	seedImportBase(t, store)

	opts := testImportOptions()
	opts.DryRun = true

	result, err := store.ImportInvoice(ctx, testInvoice(), opts)
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Nil(t, result.WaybillID)
	assert.Equal(t, 2, result.ImportedLines)

	assert.Equal(t, 0, countRows(t, store, "waybills"))
	assert.Equal(t, 0, countRows(t, store, "waybill_items"))
	assert.Equal(t, 0, countRows(t, store, "payments"))
	assert.Equal(t, 0, countRows(t, store, "operations"))
	assert.Equal(t, 0, countRows(t, store, "remainders"))
	assert.Equal(t, 1, countRows(t, store, "goods"), "created good rolled back")
}

func TestImportInvoiceNoAutoPay(t *testing.T) {
	ctx := context.Background()
	store := createTestStore(t)
	seedImportBase(t, store)

	opts := testImportOptions()
	opts.AutoPay = false

	result, err := store.ImportInvoice(ctx, testInvoice(), opts)
	require.NoError(t, err)

	assert.Equal(t, 0, countRows(t, store, "payments"))

	var paid float64
	require.NoError(t, store.db.QueryRow(
		"SELECT paid FROM waybills WHERE id = ?", *result.WaybillID).Scan(&paid))
	assert.InDelta(t, 0, paid, 1e-9)
}

func TestImportInvoiceForceSellUpdate(t *testing.T) {
	ctx := context.Background()
	store := createTestStore(t)
	seedImportBase(t, store)

	invoice := testInvoice()
	invoice.Lines = invoice.Lines[:1]
	invoice.Lines[0].Flags = invoice.Lines[0].Flags.Set(model.FlagForceSellUpdate)

	_, err := store.ImportInvoice(ctx, invoice, testImportOptions())
	require.NoError(t, err)

	var sellPrice float64
	require.NoError(t, store.db.QueryRow("SELECT price FROM goods WHERE id = 100").Scan(&sellPrice))
	assert.InDelta(t, 150, sellPrice, 1e-9)
}

func TestImportInvoiceStockAdds(t *testing.T) {
	ctx := context.Background()
	store := createTestStore(t)
	seedImportBase(t, store)
	_, err := store.db.Exec(
		"INSERT INTO remainders (shop_id, good_id, is_deleted, remainder) VALUES (0, 100, 1, 5)")
	require.NoError(t, err)

	invoice := testInvoice()
	invoice.Lines = invoice.Lines[:1]

	_, err = store.ImportInvoice(ctx, invoice, testImportOptions())
	require.NoError(t, err)

	var remainder float64
	var isDeleted int64
	require.NoError(t, store.db.QueryRow(
		"SELECT remainder, is_deleted FROM remainders WHERE shop_id = 0 AND good_id = 100").
		Scan(&remainder, &isDeleted))
	assert.InDelta(t, 7, remainder, 1e-9, "stock adds, never replaces")
	assert.Equal(t, int64(0), isDeleted, "soft-deleted stock row resurrected")
}

func TestImportInvoiceNoValidLines(t *testing.T) {
	ctx := context.Background()
	store := createTestStore(t)
	seedImportBase(t, store)

	invoice := testInvoice()
	for i := range invoice.Lines {
		invoice.Lines[i].Action = model.ActionSkip
	}

	_, err := store.ImportInvoice(ctx, invoice, testImportOptions())
	require.Error(t, err)
	assert.True(t, common.IsValidation(err))
	assert.ErrorIs(t, err, common.ErrNoValidLines)
}

func TestImportInvoiceResurrectsGroup(t *testing.T) {
	ctx := context.Background()
	store := createTestStore(t)
	seedImportBase(t, store)
	_, err := store.db.Exec(`
		INSERT INTO good_groups (id, is_deleted, name, parent_id)
		VALUES (42, 1, CAST(? AS TEXT), -1)`, EncodeDBText("dazzle"))
	require.NoError(t, err)

	invoice := testInvoice()
	invoice.Lines = invoice.Lines[1:2]

	_, err = store.ImportInvoice(ctx, invoice, testImportOptions())
	require.NoError(t, err)

	var isDeleted, groupID int64
	require.NoError(t, store.db.QueryRow("SELECT is_deleted FROM good_groups WHERE id = 42").Scan(&isDeleted))
	assert.Equal(t, int64(0), isDeleted)
	require.NoError(t, store.db.QueryRow("SELECT group_id FROM goods WHERE product_code = CAST(? AS TEXT)", EncodeDBText("NEW555")).Scan(&groupID))
	assert.Equal(t, int64(42), groupID)
}

func TestVerifyImportInvariants(t *testing.T) {
	ctx := context.Background()

	beginTx := func(t *testing.T) *sql.Tx {
		t.Helper()
		store := createTestStore(t)
		tx, err := store.db.BeginTx(ctx, nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = tx.Rollback() })
		return tx
	}

	t.Run("extra waybill rejected", func(t *testing.T) {
		tx := beginTx(t)
		for id := 1; id <= 2; id++ {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO waybills (id, record_type, contractor_id, user_id) VALUES (?, 1, 1, 1)", id)
			require.NoError(t, err)
		}

		err := verifyImportInvariants(ctx, tx, invariantInput{
			waybillID:     1,
			expectedItems: 0,
			supplierID:    1,
			userID:        1,
		})
		require.Error(t, err)
		assert.True(t, common.IsValidation(err))
		assert.Contains(t, err.Error(), "Контроль безопасности импорта")
		assert.Contains(t, err.Error(), "число документов")
	})

	t.Run("item bound to another document rejected", func(t *testing.T) {
		tx := beginTx(t)
		_, err := tx.ExecContext(ctx,
			"INSERT INTO waybills (id, record_type, contractor_id, user_id) VALUES (1, 1, 1, 1)")
		require.NoError(t, err)
		_, err = tx.ExecContext(ctx,
			"INSERT INTO waybill_items (id, waybill_id, goods_id, quantity, price) VALUES (1, 999, 100, 1, 10)")
		require.NoError(t, err)

		err = verifyImportInvariants(ctx, tx, invariantInput{
			waybillID:     1,
			expectedItems: 1,
			supplierID:    1,
			userID:        1,
		})
		require.Error(t, err)
		assert.True(t, common.IsValidation(err))
		assert.Contains(t, err.Error(), "привязаны к другому документу")
	})

	t.Run("consistent state passes", func(t *testing.T) {
		tx := beginTx(t)
		_, err := tx.ExecContext(ctx,
			"INSERT INTO waybills (id, record_type, contractor_id, user_id) VALUES (1, 1, 1, 1)")
		require.NoError(t, err)
		_, err = tx.ExecContext(ctx,
			"INSERT INTO waybill_items (id, waybill_id, goods_id, quantity, price) VALUES (1, 1, 100, 1, 10)")
		require.NoError(t, err)
		_, err = tx.ExecContext(ctx,
			"INSERT INTO operations (id, user_id, object_type, operation_type, object_id) VALUES (1, 1, 3, 1, 1)")
		require.NoError(t, err)

		require.NoError(t, verifyImportInvariants(ctx, tx, invariantInput{
			waybillID:     1,
			expectedItems: 1,
			supplierID:    1,
			userID:        1,
		}))
	})
}
