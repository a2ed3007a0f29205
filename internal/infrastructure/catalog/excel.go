package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/cavtal/backend/internal/domain"
)

const (
	// DefaultSheetName is the worksheet the subsidy program publishes the
	// eligible-product list on.
	DefaultSheetName = "Sorted with New Vendor Info"
	// DefaultHeaderRow is the 1-based row holding the column headers; the rows
	// above it are title and revision banners.
	DefaultHeaderRow = 4
)

// ExcelSource reads the product catalog from a published .xlsx workbook.
type ExcelSource struct {
	path      string
	sheet     string
	headerRow int
}

// NewExcelSource creates a workbook-backed catalog source. Empty sheet and
// zero headerRow fall back to the published workbook's layout.
func NewExcelSource(path, sheet string, headerRow int) *ExcelSource {
	if sheet == "" {
		sheet = DefaultSheetName
	}
	if headerRow <= 0 {
		headerRow = DefaultHeaderRow
	}
	return &ExcelSource{
		path:      path,
		sheet:     sheet,
		headerRow: headerRow,
	}
}

// Load parses the workbook and returns one item per data row. Rows missing
// either the name or the code cell are skipped.
func (s *ExcelSource) Load(ctx context.Context) ([]domain.CatalogItem, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %v", domain.ErrCatalogUnavailable, err)
	}
	defer f.Close()

	rows, err := f.GetRows(s.sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", domain.ErrCatalogUnavailable, s.sheet, err)
	}
	if len(rows) < s.headerRow {
		return nil, fmt.Errorf("%w: sheet %q has no header row", domain.ErrCatalogUnavailable, s.sheet)
	}

	nameCol, codeCol, err := locateColumns(rows[s.headerRow-1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}

	items := make([]domain.CatalogItem, 0, len(rows)-s.headerRow)
	for _, row := range rows[s.headerRow:] {
		name := cellAt(row, nameCol)
		code := cellAt(row, codeCol)
		if name == "" || code == "" {
			continue
		}
		items = append(items, domain.CatalogItem{
			ItemName: name,
			Code:     code,
		})
	}
	return items, nil
}

// locateColumns finds the item-name and NNC-code columns by header text.
func locateColumns(header []string) (nameCol, codeCol int, err error) {
	nameCol, codeCol = -1, -1
	for i, cell := range header {
		h := strings.ToLower(strings.TrimSpace(cell))
		switch {
		case nameCol < 0 && strings.Contains(h, "item"):
			nameCol = i
		case codeCol < 0 && strings.Contains(h, "nnc"):
			codeCol = i
		}
	}
	if nameCol < 0 || codeCol < 0 {
		return 0, 0, fmt.Errorf("header row missing item or NNC column: %v", header)
	}
	return nameCol, codeCol, nil
}

func cellAt(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}
