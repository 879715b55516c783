// Package parser loads supplier invoice files into the normalized invoice
// model. Two source formats are supported: Mikado waybills exported as
// cp1251 HTML and Akvilon order reports exported as Excel workbooks.
package parser

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ahiokk/tirika-import/internal/common"
	"github.com/ahiokk/tirika-import/internal/model"
)

// ParseInvoiceFile sniffs the file format and dispatches to the matching
// parser. HTML detection wins so a mislabeled .xls that is really an HTML
// export still parses.
func ParseInvoiceFile(path string) (*model.ParsedInvoice, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, common.NewParseError(fmt.Sprintf("Файл не найден: %s", path), err)
	}
	if isHTML, err := looksLikeHTML(path); err != nil {
		return nil, common.NewParseError("не удалось прочитать файл", err)
	} else if isHTML {
		return parseMikadoHTML(path)
	}
	return parseAkvilonExcel(path)
}

func looksLikeHTML(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer func() { _ = f.Close() }()

	head := make([]byte, 4096)
	n, err := f.Read(head)
	if n == 0 && err != nil {
		return false, err
	}
	head = bytes.ToLower(head[:n])
	return bytes.Contains(head, []byte("<html")) || bytes.Contains(head, []byte("<table")), nil
}
