package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// testSchema mirrors the subset of the Tirika POS schema the importer
// touches. The real schema has no constraints beyond primary keys.
const testSchema = `
CREATE TABLE goods (
	id INTEGER PRIMARY KEY, group_id INTEGER, is_deleted INTEGER, is_replicated INTEGER,
	is_sized INTEGER, is_discounted INTEGER, is_set INTEGER,
	name TEXT, unit_name TEXT, manufacturer TEXT, product_code TEXT, barcode TEXT,
	price REAL, price1 REAL, price2 REAL, price3 REAL, buy_price REAL, seller_bonus REAL, vat REAL,
	photo BLOB, photo_extention TEXT, description TEXT, comment TEXT, decimal_places INTEGER,
	good_type INTEGER, alco_type INTEGER, alco_amount REAL, currency_id INTEGER,
	currency_id1 INTEGER, currency_id2 INTEGER, currency_id3 INTEGER,
	buy_currency_id INTEGER, price_change_date INTEGER, is_alco_marked INTEGER,
	is_tap_trade INTEGER, alco_strength REAL, is_serial_required INTEGER,
	tax_mode INTEGER, tax_percent REAL, price_advance REAL, price_advance1 REAL,
	price_advance2 REAL, price_advance3 REAL, register_type INTEGER, is_published INTEGER,
	foreign_id INTEGER, is_publish INTEGER, is_estore_delivery INTEGER,
	estore_short_description TEXT, estore_long_description TEXT, estore_meta_title TEXT,
	estore_meta_description TEXT, estore_meta_keywords TEXT, estore_friendly_url TEXT,
	estore_tags TEXT, estore_sort_order INTEGER, hotkey INTEGER,
	price_round INTEGER, unit_code INTEGER, old_currency_id INTEGER, old_price REAL,
	supplier_id INTEGER, flags INTEGER, is_archived INTEGER,
	length REAL, width REAL, height REAL, weight REAL,
	is_ozon_published INTEGER, marketplaces_id INTEGER
);
CREATE TABLE good_groups (
	id INTEGER PRIMARY KEY, is_deleted INTEGER, is_replicated INTEGER, name TEXT,
	comment TEXT, parent_id INTEGER, full_name TEXT, section INTEGER,
	is_published INTEGER, foreign_id INTEGER, estore_meta_title TEXT,
	estore_meta_description TEXT, estore_meta_keywords TEXT, estore_friendly_url TEXT,
	estore_sort_order INTEGER, description TEXT
);
CREATE TABLE cross_codes (good_id INTEGER, cross_code TEXT);
CREATE TABLE barcodes (good_id INTEGER, barcode TEXT);
CREATE TABLE remainders (
	shop_id INTEGER, good_id INTEGER, is_deleted INTEGER, is_replicated INTEGER,
	remainder REAL, reserved REAL, min_amount REAL, expected REAL,
	is_published INTEGER, is_ozon_published INTEGER
);
CREATE TABLE suppliers (id INTEGER PRIMARY KEY, name TEXT, is_deleted INTEGER);
CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, is_deleted INTEGER);
CREATE TABLE settings (settings_name TEXT, settings_value TEXT);
CREATE TABLE waybills (
	id INTEGER PRIMARY KEY, is_deleted INTEGER, is_replicated INTEGER, shop_id INTEGER,
	waybill_date INTEGER, record_type INTEGER, payment_type INTEGER,
	is_reserve INTEGER, reserve_until INTEGER, contractor_id INTEGER, user_id INTEGER,
	waybill_number TEXT, cost REAL, paid REAL, display_string TEXT, comment TEXT,
	customer_balls REAL, referer_balls REAL, currency_id INTEGER, is_archived INTEGER,
	discount_id INTEGER, discount REAL, is_published INTEGER, foreign_id INTEGER,
	flags INTEGER, repair_status INTEGER, customer_balls_spent REAL, referer_balls_spent REAL
);
CREATE TABLE waybill_items (
	id INTEGER PRIMARY KEY, is_deleted INTEGER, is_replicated INTEGER, waybill_id INTEGER,
	goods_id INTEGER, size_id INTEGER, quantity REAL, price REAL, buy_price REAL,
	vat REAL, discount REAL, set_id INTEGER, bonus REAL, sold REAL,
	buy_cost REAL, buy_currency_id INTEGER, comment TEXT, certificate_id INTEGER,
	foreign_id INTEGER, unit_id INTEGER, tax_mode INTEGER
);
CREATE TABLE payments (
	id INTEGER PRIMARY KEY, waybill_id INTEGER, payment_date INTEGER, payment_type INTEGER,
	is_deleted INTEGER, is_replicated INTEGER, cost REAL, comment TEXT,
	certificate_id INTEGER, register_session INTEGER, register_cheque INTEGER,
	register_serial TEXT, payment_order INTEGER
);
CREATE TABLE operations (
	id INTEGER PRIMARY KEY, is_replicated INTEGER, user_id INTEGER, object_type INTEGER,
	operation_type INTEGER, operation_date INTEGER, object_id INTEGER,
	object_description TEXT, operation_description TEXT
);
`

// createTestStore opens a Store over a fresh database with the test schema.
func createTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tirika.db")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	store, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = store.db.Exec(testSchema)
	require.NoError(t, err)
	return store
}

func seedSupplier(t *testing.T, store *Store, id int64, name string) {
	t.Helper()
	_, err := store.db.Exec(
		"INSERT INTO suppliers (id, name, is_deleted) VALUES (?, CAST(? AS TEXT), 0)",
		id, EncodeDBText(name))
	require.NoError(t, err)
}

func seedUser(t *testing.T, store *Store, id int64, name string) {
	t.Helper()
	_, err := store.db.Exec(
		"INSERT INTO users (id, name, is_deleted) VALUES (?, CAST(? AS TEXT), 0)",
		id, EncodeDBText(name))
	require.NoError(t, err)
}

func seedGood(t *testing.T, store *Store, id int64, code, name string, buyPrice, sellPrice float64, taxMode, supplierID int64) {
	t.Helper()
	_, err := store.db.Exec(`
		INSERT INTO goods (id, group_id, is_deleted, name, product_code, manufacturer,
			buy_price, price, tax_mode, supplier_id)
		VALUES (?, -1, 0, CAST(? AS TEXT), CAST(? AS TEXT), CAST(? AS TEXT), ?, ?, ?, ?)`,
		id, EncodeDBText(name), EncodeDBText(code), EncodeDBText(""),
		buyPrice, sellPrice, taxMode, supplierID)
	require.NoError(t, err)
}

func countRows(t *testing.T, store *Store, table string) int {
	t.Helper()
	var n int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}
