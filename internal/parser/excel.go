package parser

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/ahiokk/tirika-import/internal/common"
	"github.com/ahiokk/tirika-import/internal/model"
)

const sourceAkvilonExcel = "akvilon_excel"

// parseAkvilonExcel loads an Akvilon order report workbook. The first sheet's
// first row is the header; rows with an issue status other than "выдано"
// import with a warning instead of being dropped.
func parseAkvilonExcel(path string) (*model.ParsedInvoice, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, common.NewParseError("Не удалось прочитать файл Excel", err)
	}
	defer func() { _ = wb.Close() }()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, common.NewParseError("В файле нет листов с данными.", nil)
	}
	allRows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, common.NewParseError("Не удалось прочитать лист Excel", err)
	}
	if len(allRows) == 0 {
		return nil, common.NewParseError("В файле нет заголовка таблицы.", nil)
	}

	headers := make([]string, len(allRows[0]))
	for i, h := range allRows[0] {
		headers[i] = cleanText(h)
	}
	rows := allRows[1:]

	codeCol := findColumn(headers, "код детали", "код")
	qtyCol := findColumn(headers, "кол-во", "кол")
	priceCol := findColumn(headers, "цена")
	sumCol := findColumn(headers, "сумма")
	nameCol := findColumn(headers, "описание", "наименование")
	statusCol := findColumn(headers, "статус")
	noteCols := findColumns(headers, noteColumnNeedles)

	if codeCol < 0 || qtyCol < 0 || priceCol < 0 {
		return nil, common.NewParseError("Не удалось определить обязательные колонки для Аквилон (код/кол-во/цена).", nil)
	}

	var lines []model.InvoiceLine
	for _, row := range rows {
		article := ""
		if codeCol < len(row) {
			article = cleanArticle(row[codeCol], sourceAkvilonExcel)
		}
		if article == "" || !looksLikeArticle(article) {
			continue
		}

		name := ""
		if nameCol >= 0 && nameCol < len(row) {
			name = fixMojibake(cleanText(row[nameCol]))
		}
		note := fixMojibake(extractNote(row, noteCols))
		qty := cellFloat(row, qtyCol)
		price := cellFloat(row, priceCol)
		total := qty * price
		if sumCol >= 0 && sumCol < len(row) {
			total = toFloat(row[sumCol])
		}
		status := ""
		if statusCol >= 0 && statusCol < len(row) {
			status = cleanText(row[statusCol])
		}

		warning := ""
		if status != "" && !strings.EqualFold(status, "выдано") {
			warning = fmt.Sprintf("Статус строки: %s", status)
		}

		lines = append(lines, model.InvoiceLine{
			LineNo:         len(lines) + 1,
			Article:        article,
			Name:           name,
			Note:           note,
			Quantity:       qty,
			Price:          price,
			Total:          total,
			SourceSupplier: "АКВИЛОН",
			Warning:        warning,
		})
	}

	if len(lines) == 0 {
		return nil, common.NewParseError("Не найдено строк с товарами в файле Аквилон.", nil)
	}

	return &model.ParsedInvoice{
		FilePath:     path,
		SupplierHint: "АКВИЛОН",
		SourceType:   sourceAkvilonExcel,
		Lines:        lines,
	}, nil
}

// fixMojibake repairs UTF-8 text that was read once through a cp1251 lens.
// The telltale "Р"/"С" lead bytes of double-encoded Cyrillic trigger a
// round trip back through cp1251; anything that fails the round trip is
// returned untouched.
func fixMojibake(text string) string {
	if text == "" {
		return text
	}
	if !strings.Contains(text, "Р") && !strings.Contains(text, "С") {
		return text
	}
	raw, err := charmap.Windows1251.NewEncoder().Bytes([]byte(text))
	if err != nil || !utf8.Valid(raw) {
		return text
	}
	return string(raw)
}
