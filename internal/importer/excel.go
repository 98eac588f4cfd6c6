// Package importer loads source definitions from Excel workbooks and YAML
// seed files.
package importer

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jonesrussell/opportunity-ingestor/internal/models"
)

// Column indices for the Excel spreadsheet (0-based).
const (
	colName      = 0 // Column A
	colURL       = 1 // Column B
	colType      = 2 // Column C
	colEnabled   = 3 // Column D
	colRateLimit = 4 // Column E
	colMaxPages  = 5 // Column F
	colSelectors = 6 // Column G

	headerRowIndex = 1 // Excel rows are 1-based, header is row 1
)

// SheetName is the worksheet sources are read from.
const SheetName = "Sources"

// SourceRow represents a parsed row from the Excel spreadsheet.
type SourceRow struct {
	Row       int // Excel row number (for error reporting)
	Name      string
	URL       string
	Type      string
	Enabled   bool
	RateLimit string
	MaxPages  int
	Selectors string // Raw JSON string
}

// ImportError represents a validation error for a specific row.
type ImportError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// ParseExcelFile reads the Sources sheet and returns the sources from valid
// rows plus a per-row error list for the invalid ones. The header row is
// skipped; fully empty rows are ignored.
func ParseExcelFile(r io.Reader) ([]*models.Source, []ImportError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", SheetName, err)
	}

	var sources []*models.Source
	var importErrors []ImportError

	for i, cells := range rows {
		rowNum := i + 1
		if rowNum == headerRowIndex || rowEmpty(cells) {
			continue
		}

		row, parseErr := parseRow(rowNum, cells)
		if parseErr == "" {
			parseErr = ValidateRow(row)
		}
		if parseErr != "" {
			importErrors = append(importErrors, ImportError{Row: rowNum, Error: parseErr})
			continue
		}

		sources = append(sources, rowToSource(row))
	}

	return sources, importErrors, nil
}

func parseRow(rowNum int, cells []string) (SourceRow, string) {
	row := SourceRow{
		Row:       rowNum,
		Name:      cellAt(cells, colName),
		URL:       cellAt(cells, colURL),
		Type:      cellAt(cells, colType),
		RateLimit: cellAt(cells, colRateLimit),
		Selectors: cellAt(cells, colSelectors),
	}

	if raw := cellAt(cells, colEnabled); raw != "" {
		enabled, ok := parseBoolCell(raw)
		if !ok {
			return row, "enabled must be true/false/1/0/yes/no"
		}
		row.Enabled = enabled
	}

	if raw := cellAt(cells, colMaxPages); raw != "" {
		maxPages, err := strconv.Atoi(raw)
		if err != nil {
			return row, "max_pages must be an integer"
		}
		row.MaxPages = maxPages
	}

	return row, ""
}

// ValidateRow validates a single row and returns an error message or empty string.
func ValidateRow(row SourceRow) string {
	if strings.TrimSpace(row.Name) == "" {
		return "name is required"
	}
	if strings.TrimSpace(row.URL) == "" {
		return "url is required"
	}

	if !strings.HasPrefix(row.URL, "http://") && !strings.HasPrefix(row.URL, "https://") {
		return "url must start with http:// or https://"
	}

	if !models.OpportunityType(row.Type).Valid() {
		return "opportunity_type must be financing or support"
	}

	if row.MaxPages < 0 {
		return "max_pages must be non-negative"
	}

	if row.RateLimit != "" && !validRateLimit(row.RateLimit) {
		return "rate_limit must be a duration like '1s' or '500ms'"
	}

	if row.Selectors != "" {
		var selectors models.SelectorConfig
		if err := json.Unmarshal([]byte(row.Selectors), &selectors); err != nil {
			return "selectors must be valid JSON"
		}
	}

	return ""
}

func rowToSource(row SourceRow) *models.Source {
	source := &models.Source{
		Name:      strings.TrimSpace(row.Name),
		URL:       strings.TrimSpace(row.URL),
		Type:      models.OpportunityType(row.Type),
		RateLimit: models.NormalizeRateLimit(row.RateLimit),
		MaxPages:  row.MaxPages,
		Enabled:   row.Enabled,
	}
	if row.Selectors != "" {
		// Validated above; the error cannot fire here.
		_ = json.Unmarshal([]byte(row.Selectors), &source.Selectors)
	}
	source.Selectors = source.Selectors.MergeWithDefaults()
	return source
}

func cellAt(cells []string, idx int) string {
	if idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

func rowEmpty(cells []string) bool {
	for _, cell := range cells {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// validRateLimit accepts what NormalizeRateLimit accepts: a positive
// duration string or a bare number of seconds.
func validRateLimit(raw string) bool {
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return true
	}
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return true
	}
	return false
}

func parseBoolCell(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes":
		return true, true
	case "false", "0", "no":
		return false, true
	default:
		return false, false
	}
}
