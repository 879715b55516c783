package parser

import (
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/ahiokk/tirika-import/internal/common"
	"github.com/ahiokk/tirika-import/internal/model"
)

const sourceMikadoHTML = "mikado_html"

var (
	invoiceNumberRe = regexp.MustCompile(`(?i)накладн\S*\s*№\s*([0-9A-Za-zА-Яа-я\-_/]+)`)
	invoiceDateRe   = regexp.MustCompile(`(?i)от\s*([0-3]?\d/[0-1]?\d/[12]\d{3})`)
)

// parseMikadoHTML loads a Mikado waybill saved as cp1251 HTML. The first
// table on the page carries the items; the waybill number and date come
// from free text around it.
func parseMikadoHTML(path string) (*model.ParsedInvoice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, common.NewParseError("не удалось открыть файл", err)
	}
	defer func() { _ = f.Close() }()

	doc, err := goquery.NewDocumentFromReader(transform.NewReader(f, charmap.Windows1251.NewDecoder()))
	if err != nil {
		return nil, common.NewParseError("Не удалось разобрать HTML-накладную", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, common.NewParseError("В файле нет таблиц с данными.", nil)
	}

	headers, rows := tableCells(table)
	if len(headers) == 0 {
		return nil, common.NewParseError("В файле нет таблиц с данными.", nil)
	}

	codeCol := findColumn(headers, "код", "артикул")
	qtyCol := findColumn(headers, "к-во", "кол")
	priceCol := findColumn(headers, "цена")
	sumCol := findColumn(headers, "сумма")
	nameCol := findColumn(headers, "название", "наименование")
	noteCols := findColumns(headers, noteColumnNeedles)

	if codeCol < 0 || qtyCol < 0 || priceCol < 0 {
		return nil, common.NewParseError("Не удалось определить обязательные колонки для Микадо (код/кол-во/цена).", nil)
	}

	number, date := extractInvoiceHeader(doc.Text())

	var lines []model.InvoiceLine
	for _, row := range rows {
		article := ""
		if codeCol < len(row) {
			article = cleanArticle(row[codeCol], sourceMikadoHTML)
		}
		if article == "" || strings.Contains(strings.ToLower(article), "итого") {
			continue
		}
		if !looksLikeArticle(article) {
			continue
		}

		name := ""
		if nameCol >= 0 && nameCol < len(row) {
			name = cleanText(row[nameCol])
		}
		qty := cellFloat(row, qtyCol)
		price := cellFloat(row, priceCol)
		total := qty * price
		if sumCol >= 0 && sumCol < len(row) {
			total = toFloat(row[sumCol])
		}

		lines = append(lines, model.InvoiceLine{
			LineNo:         len(lines) + 1,
			Article:        article,
			Name:           name,
			Note:           extractNote(row, noteCols),
			Quantity:       qty,
			Price:          price,
			Total:          total,
			SourceSupplier: "МИКАДО",
		})
	}

	if len(lines) == 0 {
		return nil, common.NewParseError("Не найдено строк с товарами в накладной Микадо.", nil)
	}

	return &model.ParsedInvoice{
		FilePath:      path,
		SupplierHint:  "МИКАДО",
		SourceType:    sourceMikadoHTML,
		Lines:         lines,
		InvoiceNumber: number,
		InvoiceDate:   date,
	}, nil
}

// tableCells splits a table into a header row and data rows. Header cells
// come from th elements when present, otherwise from the first row.
func tableCells(table *goquery.Selection) (headers []string, rows [][]string) {
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, cleanText(cell.Text()))
		})
		if len(cells) == 0 {
			return
		}
		if headers == nil {
			headers = cells
			return
		}
		rows = append(rows, cells)
	})
	return headers, rows
}

func cellFloat(row []string, idx int) float64 {
	if idx < 0 || idx >= len(row) {
		return 0
	}
	return toFloat(row[idx])
}

func extractInvoiceHeader(text string) (string, *time.Time) {
	number := ""
	if m := invoiceNumberRe.FindStringSubmatch(text); m != nil {
		number = strings.TrimSpace(m[1])
	}

	var date *time.Time
	if m := invoiceDateRe.FindStringSubmatch(text); m != nil {
		if parsed, err := time.Parse("2/1/2006", strings.TrimSpace(m[1])); err == nil {
			date = &parsed
		}
	}
	return number, date
}
