package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ahiokk/tirika-import/internal/common"
	"github.com/ahiokk/tirika-import/internal/model"
)

// Waybill type constants of the target schema.
const (
	purchaseWaybillRecordType  = 1
	waybillOperationObjectType = 3
	waybillOperationTypeCreate = 1
)

type itemRow struct {
	id      int64
	line    *model.InvoiceLine
	goodID  int64
	taxMode int64
}

// ImportInvoice writes one purchase waybill for the invoice in a single
// transaction: the waybill header, its items, stock increments, optional
// catalog updates, an optional payment and the audit operation. Before
// committing it re-reads everything written and verifies only one purchase
// document appeared. A dry run performs the full write path and rolls back.
func (s *Store) ImportInvoice(ctx context.Context, invoice *model.ParsedInvoice, opts model.ImportOptions) (*model.ImportResult, error) {
	var warnings []string

	backupPath := ""
	if opts.BackupBeforeImport {
		path, warning, err := s.backupWithFallback()
		if err != nil {
			return nil, err
		}
		backupPath = path
		if warning != "" {
			warnings = append(warnings, warning)
		}
	}

	lines, skipped, lineWarnings, err := validateLines(invoice, opts)
	warnings = append(warnings, lineWarnings...)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrapStorageErr("не удалось начать транзакцию", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	maxWaybillBefore, err := maxTableID(ctx, tx, "waybills")
	if err != nil {
		return nil, wrapStorageErr("не удалось прочитать таблицу waybills", err)
	}
	maxItemBefore, err := maxTableID(ctx, tx, "waybill_items")
	if err != nil {
		return nil, wrapStorageErr("не удалось прочитать таблицу waybill_items", err)
	}
	maxPaymentBefore, err := maxTableID(ctx, tx, "payments")
	if err != nil {
		return nil, wrapStorageErr("не удалось прочитать таблицу payments", err)
	}
	maxOperationBefore, err := maxTableID(ctx, tx, "operations")
	if err != nil {
		return nil, wrapStorageErr("не удалось прочитать таблицу operations", err)
	}

	waybillDate := time.Now()
	switch {
	case opts.WaybillDate != nil:
		waybillDate = *opts.WaybillDate
	case invoice.InvoiceDate != nil:
		waybillDate = *invoice.InvoiceDate
	}
	waybillTS := waybillDate.Unix()

	waybillID := maxWaybillBefore + 1
	itemID := maxItemBefore + 1
	paymentID := maxPaymentBefore + 1
	operationID := maxOperationBefore + 1
	goodIDSeq, err := nextTableID(ctx, tx, "goods")
	if err != nil {
		return nil, wrapStorageErr("не удалось прочитать таблицу goods", err)
	}

	var (
		dazzleGroupID  int64 = -1
		haveGroup      bool
		createdGoods   int
		createdGoodIDs = make(map[int64]struct{})
		items          []itemRow
	)
	for i := range lines {
		line := &lines[i]
		goodID := int64(-1)
		if line.MatchedGoodID != nil {
			goodID = *line.MatchedGoodID
		} else if line.Action == model.ActionCreate {
			if !haveGroup {
				dazzleGroupID, err = s.ensureDazzleGroup(ctx, tx)
				if err != nil {
					return nil, err
				}
				haveGroup = true
			}
			goodID = goodIDSeq
			if err := s.insertNewGood(ctx, tx, goodID, dazzleGroupID, opts, line); err != nil {
				return nil, err
			}
			createdGoodIDs[goodID] = struct{}{}
			goodIDSeq++
			createdGoods++
			line.MatchedGoodID = model.Int64Ptr(goodID)
		}

		if goodID < 0 {
			skipped++
			warnings = append(warnings, fmt.Sprintf("Строка %d: не удалось определить good_id, пропущено.", line.LineNo))
			continue
		}

		taxMode, err := goodTaxMode(ctx, tx, goodID, line.MatchedTaxMode)
		if err != nil {
			return nil, wrapStorageErr("не удалось прочитать налоговый режим товара", err)
		}
		items = append(items, itemRow{id: itemID, line: line, goodID: goodID, taxMode: taxMode})
		itemID++
	}

	if len(items) == 0 {
		return nil, common.WrapValidationError(common.ErrNoValidLines, "После проверки не осталось строк для записи.")
	}

	totalCost := 0.0
	for _, it := range items {
		if it.line.Total > 0 {
			totalCost += it.line.Total
		} else {
			totalCost += it.line.Quantity * it.line.Price
		}
	}
	totalCost = round2(totalCost)
	paid := 0.0
	if opts.AutoPay {
		paid = totalCost
	}
	displayString := buildDisplayString(items)
	waybillNumber := NormalizeTextField(invoice.InvoiceNumber, 20)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO waybills (
			id, is_deleted, is_replicated, shop_id, waybill_date, record_type, payment_type,
			is_reserve, reserve_until, contractor_id, user_id, waybill_number,
			cost, paid, display_string, comment, customer_balls, referer_balls,
			currency_id, is_archived, discount_id, discount, is_published,
			foreign_id, flags, repair_status, customer_balls_spent, referer_balls_spent
		)
		VALUES (
			?, 0, 0, ?, ?, ?, ?, 0, 0, ?, ?, CAST(? AS TEXT),
			?, ?, CAST(? AS TEXT), CAST(? AS TEXT), 0, 0,
			0, 0, -1, 0, 0, -1, 0, -1, 0, 0
		)`,
		waybillID, opts.ShopID, waybillTS, purchaseWaybillRecordType, opts.PaymentType,
		opts.SupplierID, opts.UserID, EncodeDBText(waybillNumber),
		totalCost, paid, EncodeDBText(displayString), EncodeDBText(""))
	if err != nil {
		return nil, wrapStorageErr("не удалось записать документ", err)
	}

	for _, it := range items {
		line := it.line
		qty := round6(line.Quantity)
		price := round2(line.Price)
		note := NormalizeTextField(line.Note, 250)

		_, err = tx.ExecContext(ctx, `
			INSERT INTO waybill_items (
				id, is_deleted, is_replicated, waybill_id, goods_id, size_id,
				quantity, price, buy_price, vat, discount, set_id, bonus, sold,
				buy_cost, buy_currency_id, comment, certificate_id, foreign_id, unit_id, tax_mode
			)
			VALUES (
				?, 0, 0, ?, ?, -1,
				?, ?, ?, 0, 0, -1, 0, 0,
				NULL, 0, CAST(? AS TEXT), -1, -1, -1, ?
			)`,
			it.id, waybillID, it.goodID, qty, price, price, EncodeDBText(note), it.taxMode)
		if err != nil {
			return nil, wrapStorageErr("не удалось записать строку документа", err)
		}

		if err := upsertRemainder(ctx, tx, opts.ShopID, it.goodID, qty); err != nil {
			return nil, wrapStorageErr("не удалось обновить остатки", err)
		}

		if _, created := createdGoodIDs[it.goodID]; created {
			continue
		}
		if err := updateExistingGood(ctx, tx, it.goodID, line, opts, price); err != nil {
			return nil, wrapStorageErr("не удалось обновить товар", err)
		}
	}

	if opts.AutoPay {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO payments (
				id, waybill_id, payment_date, payment_type, is_deleted, is_replicated,
				cost, comment, certificate_id, register_session, register_cheque,
				register_serial, payment_order
			)
			VALUES (
				?, ?, ?, ?, 0, 0,
				?, CAST(? AS TEXT), -1, 0, 0,
				CAST(? AS TEXT), 0
			)`,
			paymentID, waybillID, waybillTS, opts.PaymentType,
			totalCost, EncodeDBText(""), EncodeDBText(""))
		if err != nil {
			return nil, wrapStorageErr("не удалось записать платеж", err)
		}
	}

	operationDescription := fmt.Sprintf(" от %s на %s", waybillDate.Format("02.01.06"), formatAmountRu(totalCost))
	_, err = tx.ExecContext(ctx, `
		INSERT INTO operations (
			id, is_replicated, user_id, object_type, operation_type, operation_date,
			object_id, object_description, operation_description
		)
		VALUES (?, 0, ?, ?, ?, ?, ?, CAST(? AS TEXT), CAST(? AS TEXT))`,
		operationID, opts.UserID, waybillOperationObjectType, waybillOperationTypeCreate,
		waybillTS, waybillID,
		EncodeDBText(operationDescription),
		EncodeDBText("Импорт накладной: "+filepath.Base(invoice.FilePath)))
	if err != nil {
		return nil, wrapStorageErr("не удалось записать журнал операций", err)
	}

	if err := verifyImportInvariants(ctx, tx, invariantInput{
		maxWaybillBefore:   maxWaybillBefore,
		maxItemBefore:      maxItemBefore,
		maxPaymentBefore:   maxPaymentBefore,
		maxOperationBefore: maxOperationBefore,
		waybillID:          waybillID,
		expectedItems:      len(items),
		supplierID:         opts.SupplierID,
		userID:             opts.UserID,
		autoPay:            opts.AutoPay,
	}); err != nil {
		return nil, err
	}

	var waybillOut *int64
	if opts.DryRun {
		if err := tx.Rollback(); err != nil {
			return nil, wrapStorageErr("не удалось откатить транзакцию", err)
		}
	} else {
		if err := tx.Commit(); err != nil {
			return nil, wrapStorageErr("не удалось зафиксировать импорт", err)
		}
		waybillOut = model.Int64Ptr(waybillID)
	}
	committed = true

	return &model.ImportResult{
		Success:       true,
		DryRun:        opts.DryRun,
		BackupPath:    backupPath,
		WaybillID:     waybillOut,
		ImportedLines: len(items),
		SkippedLines:  skipped,
		CreatedGoods:  createdGoods,
		TotalCost:     totalCost,
		Warnings:      warnings,
	}, nil
}

// ensureDazzleGroup finds the importer's product group, resurrecting it if a
// previous run's group was soft-deleted, and creates it otherwise.
func (s *Store) ensureDazzleGroup(ctx context.Context, tx *sql.Tx) (int64, error) {
	rows, err := tx.QueryContext(ctx, "SELECT id, name, is_deleted FROM good_groups")
	if err != nil {
		return 0, wrapStorageErr("не удалось прочитать группы товаров", err)
	}
	foundID := int64(-1)
	foundDeleted := false
	for rows.Next() {
		var (
			id        int64
			name      []byte
			isDeleted sql.NullInt64
		)
		if err := rows.Scan(&id, &name, &isDeleted); err != nil {
			_ = rows.Close()
			return 0, wrapStorageErr("не удалось прочитать группу товаров", err)
		}
		if strings.EqualFold(strings.TrimSpace(DecodeDBText(name)), "dazzle") {
			foundID = id
			foundDeleted = isDeleted.Int64 != 0
			break
		}
	}
	if err := rows.Close(); err != nil {
		return 0, wrapStorageErr("не удалось прочитать группы товаров", err)
	}
	if err := rows.Err(); err != nil {
		return 0, wrapStorageErr("не удалось прочитать группы товаров", err)
	}

	if foundID >= 0 {
		if foundDeleted {
			_, err = tx.ExecContext(ctx, `
				UPDATE good_groups
				SET is_deleted = 0,
				    is_replicated = 0,
				    name = CAST(? AS TEXT),
				    full_name = CAST(? AS TEXT),
				    parent_id = -1
				WHERE id = ?`,
				EncodeDBText("Dazzle"), EncodeDBText("Dazzle"), foundID)
			if err != nil {
				return 0, wrapStorageErr("не удалось восстановить группу товаров", err)
			}
		}
		return foundID, nil
	}

	groupID, err := nextTableID(ctx, tx, "good_groups")
	if err != nil {
		return 0, wrapStorageErr("не удалось прочитать группы товаров", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO good_groups (
			id, is_deleted, is_replicated, name, comment, parent_id, full_name, section,
			is_published, foreign_id, estore_meta_title, estore_meta_description,
			estore_meta_keywords, estore_friendly_url, estore_sort_order, description
		)
		VALUES (
			?, 0, 0, CAST(? AS TEXT), CAST(? AS TEXT), -1, CAST(? AS TEXT), 0,
			0, -1, NULL, NULL,
			NULL, NULL, 0, CAST(? AS TEXT)
		)`,
		groupID, EncodeDBText("Dazzle"), EncodeDBText(""), EncodeDBText("Dazzle"), EncodeDBText(""))
	if err != nil {
		return 0, wrapStorageErr("не удалось создать группу товаров", err)
	}
	return groupID, nil
}

// insertNewGood creates a catalog record for an unmatched line and updates
// the line's matched fields to reflect what was written.
func (s *Store) insertNewGood(ctx context.Context, tx *sql.Tx, newGoodID, groupID int64, opts model.ImportOptions, line *model.InvoiceLine) error {
	article := line.MatchedProductCode
	if article == "" {
		article = NormalizeArticle(line.Article)
	}
	if article == "" {
		article = "AUTO" + strconv.FormatInt(newGoodID, 10)
	}
	name := line.MatchedName
	if name == "" {
		name = NormalizeTextField(line.Name, 120)
	}
	if name == "" {
		name = NormalizeTextField(line.Article, 120)
	}
	if name == "" {
		name = "Товар " + strconv.FormatInt(newGoodID, 10)
	}
	if opts.PrefixNewGoodsWithOrder && !strings.HasPrefix(strings.ToUpper(name), "ЗАКАЗ--") {
		name = "ЗАКАЗ--" + name
	}
	if runes := []rune(name); len(runes) > 120 {
		name = string(runes[:120])
	}

	manufacturer := NormalizeTextField(line.Manufacturer, 60)
	buyPrice := round2(line.Price)
	sellPrice := model.SuggestedSellPrice(line.Price, opts.MarkupPercent, opts.RoundStep)
	if line.SellPrice != nil {
		sellPrice = *line.SellPrice
	}
	sellPrice = round2(sellPrice)

	_, err := tx.ExecContext(ctx, `
		INSERT INTO goods (
			id, group_id, is_deleted, is_replicated, is_sized, is_discounted, is_set,
			name, unit_name, manufacturer, product_code, barcode,
			price, price1, price2, price3, buy_price, seller_bonus, vat,
			photo, photo_extention, description, comment, decimal_places,
			good_type, alco_type, alco_amount, currency_id, currency_id1, currency_id2, currency_id3,
			buy_currency_id, price_change_date, is_alco_marked, is_tap_trade, alco_strength,
			is_serial_required, tax_mode, tax_percent, price_advance, price_advance1, price_advance2,
			price_advance3, register_type, is_published, foreign_id, is_publish, is_estore_delivery,
			estore_short_description, estore_long_description, estore_meta_title, estore_meta_description,
			estore_meta_keywords, estore_friendly_url, estore_tags, estore_sort_order, hotkey,
			price_round, unit_code, old_currency_id, old_price, supplier_id, flags, is_archived,
			length, width, height, weight, is_ozon_published, marketplaces_id
		)
		VALUES (
			?, ?, 0, 0, 0, 1, 0,
			CAST(? AS TEXT), CAST(? AS TEXT), CAST(? AS TEXT), CAST(? AS TEXT), CAST(? AS TEXT),
			?, 0, 0, 0, ?, 0, 0,
			NULL, CAST(? AS TEXT), CAST(? AS TEXT), CAST(? AS TEXT), 0,
			0, 0, 0, 0, 0, 0, 0,
			0, 0, 0, 0, 0,
			0, 0, 0, 0, 0, 0,
			0, 0, 0, -1, 0, 0,
			NULL, NULL, NULL, NULL,
			NULL, NULL, NULL, 0, 0,
			0, 0, 0, 0, ?, 0, 0,
			0, 0, 0, 0, 0, 0
		)`,
		newGoodID, groupID,
		EncodeDBText(name), EncodeDBText("шт."), EncodeDBText(manufacturer),
		EncodeDBText(article), EncodeDBText(""),
		sellPrice, buyPrice,
		EncodeDBText(""), EncodeDBText(""), EncodeDBText(""),
		opts.SupplierID)
	if err != nil {
		return wrapStorageErr("не удалось создать товар", err)
	}

	if err := insertAutoCrossCode(ctx, tx, newGoodID, line.SourceSupplier); err != nil {
		return err
	}

	line.MatchedProductCode = article
	line.MatchedName = name
	line.MatchedBuyPrice = model.Float64Ptr(buyPrice)
	line.SellPrice = model.Float64Ptr(sellPrice)
	line.MatchedTaxMode = 0
	return nil
}

// insertAutoCrossCode tags a created good with a cross code naming the
// supplier the line came from, so auto-created goods stay findable.
func insertAutoCrossCode(ctx context.Context, tx *sql.Tx, goodID int64, supplierName string) error {
	supplier := NormalizeTextField(supplierName, 80)
	if supplier == "" {
		supplier = "unknown"
	} else {
		supplier = strings.Join(strings.Fields(supplier), "-")
	}
	_, err := tx.ExecContext(ctx,
		"INSERT INTO cross_codes (good_id, cross_code) VALUES (?, CAST(? AS TEXT))",
		goodID, EncodeDBText("Dazzle-auto-made-from-"+supplier))
	if err != nil {
		return wrapStorageErr("не удалось записать кросс-код", err)
	}
	return nil
}

func upsertRemainder(ctx context.Context, tx *sql.Tx, shopID, goodID int64, quantity float64) error {
	var remainder sql.NullFloat64
	err := tx.QueryRowContext(ctx,
		"SELECT remainder FROM remainders WHERE shop_id = ? AND good_id = ?",
		shopID, goodID).Scan(&remainder)
	switch {
	case err == sql.ErrNoRows:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO remainders (
				shop_id, good_id, is_deleted, is_replicated, remainder,
				reserved, min_amount, expected, is_published, is_ozon_published
			)
			VALUES (?, ?, 0, 0, ?, 0, 0, 0, 0, 0)`,
			shopID, goodID, quantity)
		return err
	case err != nil:
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE remainders
		SET remainder = COALESCE(remainder, 0) + ?,
		    is_deleted = 0,
		    is_replicated = 0
		WHERE shop_id = ? AND good_id = ?`,
		quantity, shopID, goodID)
	return err
}

// updateExistingGood applies the per-field update policy to an already
// existing catalog record. FlagForceSellUpdate overrides a disabled global
// sell-price policy for this one line.
func updateExistingGood(ctx context.Context, tx *sql.Tx, goodID int64, line *model.InvoiceLine, opts model.ImportOptions, buyPrice float64) error {
	sellPrice := model.SuggestedSellPrice(line.Price, opts.MarkupPercent, opts.RoundStep)
	if line.SellPrice != nil {
		sellPrice = *line.SellPrice
	}
	sellPrice = round2(sellPrice)

	var (
		clauses []string
		params  []any
	)
	if opts.UpdateExistingBuyPrice {
		clauses = append(clauses, "buy_price = ?")
		params = append(params, buyPrice)
		clauses = append(clauses, "buy_currency_id = 0")
	}
	if opts.UpdateExistingSupplier {
		clauses = append(clauses, "supplier_id = ?")
		params = append(params, opts.SupplierID)
	}
	if opts.UpdateExistingSellPrice || line.Flags.Has(model.FlagForceSellUpdate) {
		clauses = append(clauses, "price = ?")
		params = append(params, sellPrice)
		clauses = append(clauses, "currency_id = 0")
	}
	if opts.UpdateExistingName {
		name := line.MatchedName
		if name == "" {
			name = line.Name
		}
		clauses = append(clauses, "name = CAST(? AS TEXT)")
		params = append(params, EncodeDBText(NormalizeTextField(name, 120)))
	}
	if opts.UpdateExistingManufacturer {
		if manufacturer := NormalizeTextField(line.Manufacturer, 60); manufacturer != "" {
			clauses = append(clauses, "manufacturer = CAST(? AS TEXT)")
			params = append(params, EncodeDBText(manufacturer))
		}
	}
	if len(clauses) == 0 {
		return nil
	}

	params = append(params, goodID)
	_, err := tx.ExecContext(ctx,
		"UPDATE goods SET "+strings.Join(clauses, ", ")+" WHERE id = ?",
		params...)
	return err
}

func goodTaxMode(ctx context.Context, tx *sql.Tx, goodID, fallback int64) (int64, error) {
	var taxMode sql.NullInt64
	err := tx.QueryRowContext(ctx, "SELECT tax_mode FROM goods WHERE id = ?", goodID).Scan(&taxMode)
	if err == sql.ErrNoRows {
		return fallback, nil
	}
	if err != nil {
		return 0, err
	}
	if !taxMode.Valid {
		return fallback, nil
	}
	return taxMode.Int64, nil
}

type invariantInput struct {
	maxWaybillBefore   int64
	maxItemBefore      int64
	maxPaymentBefore   int64
	maxOperationBefore int64
	waybillID          int64
	expectedItems      int
	supplierID         int64
	userID             int64
	autoPay            bool
}

// verifyImportInvariants re-reads every table the import touched and confirms
// exactly one purchase waybill appeared, with the expected items, payment
// count and audit record. Any mismatch aborts before commit.
func verifyImportInvariants(ctx context.Context, tx *sql.Tx, in invariantInput) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, record_type, contractor_id, user_id
		FROM waybills
		WHERE id > ?
		ORDER BY id`, in.maxWaybillBefore)
	if err != nil {
		return wrapStorageErr("не удалось проверить документы", err)
	}
	type waybillCheck struct {
		id, recordType, contractorID, userID int64
	}
	var waybills []waybillCheck
	for rows.Next() {
		var (
			wb                               waybillCheck
			recordType, contractorID, userID sql.NullInt64
		)
		if err := rows.Scan(&wb.id, &recordType, &contractorID, &userID); err != nil {
			_ = rows.Close()
			return wrapStorageErr("не удалось проверить документы", err)
		}
		wb.recordType = recordType.Int64
		wb.contractorID = contractorID.Int64
		wb.userID = userID.Int64
		waybills = append(waybills, wb)
	}
	if err := rows.Close(); err != nil {
		return wrapStorageErr("не удалось проверить документы", err)
	}
	if err := rows.Err(); err != nil {
		return wrapStorageErr("не удалось проверить документы", err)
	}

	if len(waybills) != 1 {
		return common.NewValidationError("Контроль безопасности импорта: создано неожиданное число документов waybill.")
	}
	wb := waybills[0]
	if wb.id != in.waybillID {
		return common.NewValidationError("Контроль безопасности импорта: создан не тот документ waybill.")
	}
	if wb.recordType != purchaseWaybillRecordType {
		return common.NewValidationError("Контроль безопасности импорта: документ имеет недопустимый тип (не закупка).")
	}
	if wb.contractorID != in.supplierID {
		return common.NewValidationError("Контроль безопасности импорта: в документ записан неверный поставщик.")
	}
	if wb.userID != in.userID {
		return common.NewValidationError("Контроль безопасности импорта: в документ записан неверный пользователь.")
	}

	var (
		itemCount        int
		itemMin, itemMax sql.NullInt64
	)
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*), MIN(waybill_id), MAX(waybill_id)
		FROM waybill_items
		WHERE id > ?`, in.maxItemBefore).Scan(&itemCount, &itemMin, &itemMax)
	if err != nil {
		return wrapStorageErr("не удалось проверить строки документа", err)
	}
	if itemCount != in.expectedItems {
		return common.NewValidationError("Контроль безопасности импорта: количество строк waybill_items не совпало.")
	}
	if itemCount > 0 && (itemMin.Int64 != in.waybillID || itemMax.Int64 != in.waybillID) {
		return common.NewValidationError("Контроль безопасности импорта: строки waybill_items привязаны к другому документу.")
	}

	var (
		paymentCount     int
		paymentWaybillID sql.NullInt64
	)
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*), MIN(waybill_id)
		FROM payments
		WHERE id > ?`, in.maxPaymentBefore).Scan(&paymentCount, &paymentWaybillID)
	if err != nil {
		return wrapStorageErr("не удалось проверить платежи", err)
	}
	expectedPayments := 0
	if in.autoPay {
		expectedPayments = 1
	}
	if paymentCount != expectedPayments {
		return common.NewValidationError("Контроль безопасности импорта: создано неожиданное число платежей.")
	}
	if paymentCount > 0 && paymentWaybillID.Int64 != in.waybillID {
		return common.NewValidationError("Контроль безопасности импорта: платеж привязан к другому документу.")
	}

	var (
		operationCount                   int
		opObjectType, opType, opObjectID sql.NullInt64
	)
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*), MIN(object_type), MIN(operation_type), MIN(object_id)
		FROM operations
		WHERE id > ?`, in.maxOperationBefore).Scan(&operationCount, &opObjectType, &opType, &opObjectID)
	if err != nil {
		return wrapStorageErr("не удалось проверить журнал операций", err)
	}
	if operationCount != 1 {
		return common.NewValidationError("Контроль безопасности импорта: создано неожиданное число записей operations.")
	}
	if opObjectType.Int64 != waybillOperationObjectType {
		return common.NewValidationError("Контроль безопасности импорта: operation записан не в тип waybill.")
	}
	if opType.Int64 != waybillOperationTypeCreate {
		return common.NewValidationError("Контроль безопасности импорта: operation_type недопустим для импорта закупки.")
	}
	if opObjectID.Int64 != in.waybillID {
		return common.NewValidationError("Контроль безопасности импорта: operation привязан к другому документу.")
	}
	return nil
}

// buildDisplayString summarizes up to six items as "[code] name (qty)"
// joined with commas, capped at 120 characters.
func buildDisplayString(items []itemRow) string {
	shown := items
	if len(shown) > 6 {
		shown = shown[:6]
	}
	parts := make([]string, 0, len(shown))
	for _, it := range shown {
		code := strings.TrimSpace(it.line.MatchedProductCode)
		if code == "" {
			code = strings.TrimSpace(it.line.Article)
		}
		name := strings.TrimSpace(it.line.MatchedName)
		if name == "" {
			name = strings.TrimSpace(it.line.Name)
		}
		parts = append(parts, fmt.Sprintf("[%s] %s (%s)", code, name, formatQuantity(it.line.Quantity)))
	}
	out := strings.Join(parts, ", ")
	if runes := []rune(out); len(runes) > 120 {
		out = string(runes[:120])
	}
	return out
}

func formatQuantity(qty float64) string {
	if qty == math.Trunc(qty) {
		return strconv.FormatInt(int64(qty), 10)
	}
	return strconv.FormatFloat(qty, 'g', -1, 64)
}

// formatAmountRu renders an amount with space thousands separators and a
// comma decimal mark, dropping a zero kopeck part.
func formatAmountRu(value float64) string {
	s := strconv.FormatFloat(value, 'f', 2, 64)
	negative := strings.HasPrefix(s, "-")
	if negative {
		s = s[1:]
	}
	intPart, fracPart, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(digit)
	}
	out := b.String()
	if fracPart != "00" {
		out += "," + fracPart
	}
	if negative {
		out = "-" + out
	}
	return out
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }
