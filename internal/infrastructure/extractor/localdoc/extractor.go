// Package localdoc produces a degraded document extraction without the
// external analyzer: plain text is scanned with patterns, PDF text is pulled
// page by page, and spreadsheet estimates are reduced to their totals. Best
// effort only; a field the scan cannot find stays empty.
package localdoc

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"github.com/clearclaim/evidence-engine/internal/core/domain"
)

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(filename string, data []byte) (*domain.DocumentExtraction, error) {
	if len(data) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "local extract", errors.New("empty file"))
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	switch {
	case bytes.HasPrefix(data, []byte("%PDF")):
		return e.extractPDF(data)
	case ext == "xlsx" || ext == "xls":
		return e.extractSpreadsheet(data)
	case utf8.Valid(data):
		return scanText(string(data)), nil
	default:
		return nil, domain.WrapError(domain.ErrUnsupportedMediaType, "local extract",
			fmt.Errorf("no local extraction for %s", filename))
	}
}

func (e *Extractor) extractPDF(data []byte) (*domain.DocumentExtraction, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	var text strings.Builder
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page does not void the rest.
			continue
		}
		text.WriteString(content)
		text.WriteString("\n")
	}

	if strings.TrimSpace(text.String()) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "local extract", errors.New("pdf contains no extractable text"))
	}
	return scanText(text.String()), nil
}

func (e *Extractor) extractSpreadsheet(data []byte) (*domain.DocumentExtraction, error) {
	workbook, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer workbook.Close()

	doc := &domain.DocumentExtraction{DocumentType: "repair-estimate"}

	for _, sheet := range workbook.GetSheetList() {
		rows, err := workbook.GetRows(sheet)
		if err != nil {
			continue
		}
		for _, row := range rows {
			applySpreadsheetRow(doc, row)
		}
	}

	if doc.RepairTotal == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "local extract", errors.New("spreadsheet has no recognizable total"))
	}
	return doc, nil
}

// applySpreadsheetRow looks for a labeled total in the row and takes the
// first parseable amount to its right. Later rows win so a grand total at
// the bottom overrides per-section subtotals.
func applySpreadsheetRow(doc *domain.DocumentExtraction, row []string) {
	for i, cell := range row {
		label := strings.ToLower(strings.TrimSpace(cell))
		if !strings.Contains(label, "total") {
			continue
		}
		for _, candidate := range row[i+1:] {
			if amount, ok := parseAmount(candidate); ok {
				doc.RepairTotal = &amount
				return
			}
		}
		// Some estimates put "Total: $1,234.56" in a single cell.
		if amount, ok := parseAmount(label); ok {
			doc.RepairTotal = &amount
			return
		}
	}
}
