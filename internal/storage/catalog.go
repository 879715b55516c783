package storage

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/ahiokk/tirika-import/internal/common"
	"github.com/ahiokk/tirika-import/internal/model"
)

// LoadCatalog builds the in-memory snapshot of all non-deleted goods joined
// with their stock level at shopID, their cross-reference codes and their
// barcodes. Goods without a stock row keep remainder 0; goods without
// secondary codes keep empty lists.
func (s *Store) LoadCatalog(ctx context.Context, shopID int64) (map[int64]model.CatalogProduct, error) {
	catalog := make(map[int64]model.CatalogProduct)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_code, name, manufacturer, buy_price, price, tax_mode, supplier_id
		FROM goods
		WHERE is_deleted = 0`)
	if err != nil {
		return nil, common.NewStorageError("не удалось прочитать справочник товаров", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			id                       int64
			code, name, manufacturer []byte
			buyPrice, sellPrice      sql.NullFloat64
			taxMode, supplierID      sql.NullInt64
		)
		if err := rows.Scan(&id, &code, &name, &manufacturer, &buyPrice, &sellPrice, &taxMode, &supplierID); err != nil {
			return nil, common.NewStorageError("не удалось прочитать строку товара", err)
		}
		catalog[id] = model.CatalogProduct{
			GoodID:       id,
			ProductCode:  DecodeDBText(code),
			Name:         DecodeDBText(name),
			Manufacturer: DecodeDBText(manufacturer),
			BuyPrice:     buyPrice.Float64,
			SellPrice:    sellPrice.Float64,
			TaxMode:      taxMode.Int64,
			SupplierID:   supplierID.Int64,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewStorageError("не удалось прочитать справочник товаров", err)
	}

	if err := s.loadRemainders(ctx, shopID, catalog); err != nil {
		return nil, err
	}
	if err := s.loadSecondaryCodes(ctx, "SELECT good_id, cross_code FROM cross_codes", catalog, func(p *model.CatalogProduct, v string) {
		p.CrossCodes = append(p.CrossCodes, v)
	}); err != nil {
		return nil, err
	}
	if err := s.loadSecondaryCodes(ctx, "SELECT good_id, barcode FROM barcodes", catalog, func(p *model.CatalogProduct, v string) {
		p.Barcodes = append(p.Barcodes, v)
	}); err != nil {
		return nil, err
	}

	return catalog, nil
}

func (s *Store) loadRemainders(ctx context.Context, shopID int64, catalog map[int64]model.CatalogProduct) error {
	rows, err := s.db.QueryContext(ctx, "SELECT good_id, remainder FROM remainders WHERE shop_id = ?", shopID)
	if err != nil {
		return common.NewStorageError("не удалось прочитать остатки", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			goodID    int64
			remainder sql.NullFloat64
		)
		if err := rows.Scan(&goodID, &remainder); err != nil {
			return common.NewStorageError("не удалось прочитать строку остатков", err)
		}
		if good, ok := catalog[goodID]; ok {
			good.Remainder = remainder.Float64
			catalog[goodID] = good
		}
	}
	return rows.Err()
}

func (s *Store) loadSecondaryCodes(ctx context.Context, query string, catalog map[int64]model.CatalogProduct, add func(*model.CatalogProduct, string)) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return common.NewStorageError("не удалось прочитать коды товаров", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			goodID int64
			value  []byte
		)
		if err := rows.Scan(&goodID, &value); err != nil {
			return common.NewStorageError("не удалось прочитать код товара", err)
		}
		good, ok := catalog[goodID]
		if !ok {
			continue
		}
		if text := strings.TrimSpace(DecodeDBText(value)); text != "" {
			add(&good, text)
			catalog[goodID] = good
		}
	}
	return rows.Err()
}

// ListSuppliers returns all non-deleted suppliers ordered by name.
func (s *Store) ListSuppliers(ctx context.Context) ([]model.Reference, error) {
	return s.listReferences(ctx, `
		SELECT id, name
		FROM suppliers
		WHERE is_deleted = 0
		ORDER BY name, id`)
}

// ListUsers returns all non-deleted users ordered by id.
func (s *Store) ListUsers(ctx context.Context) ([]model.Reference, error) {
	return s.listReferences(ctx, `
		SELECT id, name
		FROM users
		WHERE is_deleted = 0
		ORDER BY id`)
}

func (s *Store) listReferences(ctx context.Context, query string) ([]model.Reference, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, common.NewStorageError("не удалось прочитать справочник", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Reference
	for rows.Next() {
		var (
			id   int64
			name []byte
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, common.NewStorageError("не удалось прочитать строку справочника", err)
		}
		out = append(out, model.Reference{ID: id, Name: DecodeDBText(name)})
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewStorageError("не удалось прочитать справочник", err)
	}
	return out, nil
}

// ListShops reads the shop list from the settings table. Tirika stores one
// "SHOP n" row per shop with an "id,name" value, plus a "SHOP COUNT" row.
func (s *Store) ListShops(ctx context.Context) ([]model.Reference, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT settings_name, settings_value
		FROM settings
		WHERE settings_name LIKE 'SHOP %'
		ORDER BY settings_name`)
	if err != nil {
		return nil, common.NewStorageError("не удалось прочитать список складов", err)
	}
	defer func() { _ = rows.Close() }()

	var shops []model.Reference
	for rows.Next() {
		var name, value []byte
		if err := rows.Scan(&name, &value); err != nil {
			return nil, common.NewStorageError("не удалось прочитать строку настроек", err)
		}
		key := strings.TrimSpace(DecodeDBText(name))
		if strings.EqualFold(key, "SHOP COUNT") {
			continue
		}

		text := strings.TrimSpace(DecodeDBText(value))
		idPart, namePart, found := strings.Cut(text, ",")
		if !found {
			namePart = text
		}
		shopID, err := strconv.ParseInt(strings.TrimSpace(idPart), 10, 64)
		if err != nil {
			continue
		}
		shopName := strings.TrimSpace(namePart)
		if shopName == "" {
			shopName = "shop_" + strconv.FormatInt(shopID, 10)
		}
		shops = append(shops, model.Reference{ID: shopID, Name: shopName})
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewStorageError("не удалось прочитать список складов", err)
	}

	if len(shops) == 0 {
		shops = append(shops, model.Reference{ID: 0, Name: "Основной склад"})
	}
	return shops, nil
}
