// Command gentemplate generates the Excel import template for sources.
// Usage: go run cmd/gentemplate/main.go
package main

import (
	"log"
	"os"

	"github.com/xuri/excelize/v2"
)

func main() {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", "Sources"); err != nil {
		log.Fatal(err)
	}

	headers := []string{"name", "url", "opportunity_type", "enabled", "rate_limit", "max_pages", "selectors"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			log.Fatal(err)
		}
		if err := f.SetCellValue("Sources", cell, h); err != nil {
			log.Fatal(err)
		}
	}

	row1 := []string{
		"wekomkom",
		"https://www.wekomkom.com/financements",
		"financing",
		"true",
		"1s",
		"10",
		`{"card":["article.opportunity-card"],"title":["h2 a"],"link":["h2 a"]}`,
	}
	for i, v := range row1 {
		cell, err := excelize.CoordinatesToCellName(i+1, 2)
		if err != nil {
			log.Fatal(err)
		}
		if err := f.SetCellValue("Sources", cell, v); err != nil {
			log.Fatal(err)
		}
	}

	row2 := []string{"incubator-directory", "https://incubators.example.org/calls", "support", "false", "500ms", "3", ""}
	for i, v := range row2 {
		cell, err := excelize.CoordinatesToCellName(i+1, 3)
		if err != nil {
			log.Fatal(err)
		}
		if err := f.SetCellValue("Sources", cell, v); err != nil {
			log.Fatal(err)
		}
	}

	if _, err := f.NewSheet("Instructions"); err != nil {
		log.Fatal(err)
	}
	instructions := []string{
		"Column Descriptions:",
		"",
		"name - Required. Unique identifier for the source",
		"url - Required. Listing page URL (must start with http:// or https://)",
		"opportunity_type - Required. financing or support",
		"enabled - Optional. true/false/1/0/yes/no (default: false)",
		"rate_limit - Optional. Delay between page fetches (e.g., '1s', '500ms')",
		"max_pages - Optional. Pagination limit, 0 means unlimited (default: 0)",
		"selectors - Optional. JSON object of CSS selector chains (card/title/description/link/deadline/amount/next)",
	}
	for i, line := range instructions {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			log.Fatal(err)
		}
		if err := f.SetCellValue("Instructions", cell, line); err != nil {
			log.Fatal(err)
		}
	}

	if err := os.MkdirAll("examples", 0755); err != nil {
		log.Fatal(err)
	}

	if err := f.SaveAs("examples/source-import-template.xlsx"); err != nil {
		log.Fatal(err)
	}
	log.Println("Created examples/source-import-template.xlsx")
}
