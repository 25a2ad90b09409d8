// Package export renders institution catalogs as human-readable text
// or as an XLSX workbook.
package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/obscurecore/eduscan/internal/institution"
)

// SheetName is the workbook sheet holding the catalog.
const SheetName = "Institutions"

var excelHeader = []interface{}{"ID", "Тип", "Номер", "Количество учащихся", "Район", "Ссылка"}

// Text renders records as a line-oriented listing for chat or plain
// HTTP responses.
func Text(records []institution.Record) string {
	if len(records) == 0 {
		return "Нет данных об образовательных учреждениях.\n"
	}
	var b strings.Builder
	for _, rec := range records {
		b.WriteString("Учреждение:\n")
		fmt.Fprintf(&b, "• ID: %s\n", rec.ID)
		fmt.Fprintf(&b, "• Тип: %s\n", rec.Type)
		fmt.Fprintf(&b, "• Номер: %s\n", rec.Number)
		fmt.Fprintf(&b, "• Количество учащихся: %s\n", rec.StudentsCount)
		fmt.Fprintf(&b, "• Район: %s\n", rec.District)
		fmt.Fprintf(&b, "• Ссылка: %s\n", rec.URL)
		b.WriteString("-------------------------\n")
	}
	return b.String()
}

// Excel builds an XLSX workbook with the fixed 6-column header and one
// row per record.
func Excel(records []institution.Record) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &excelHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("row coordinates: %w", err)
		}
		row := []interface{}{rec.ID, string(rec.Type), rec.Number, rec.StudentsCount, rec.District, rec.URL}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}
