package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/dveraz/carbontrack/internal/model"
)

// EmissionsXLSX writes the emission history as a spreadsheet at path.
// Quantities and CO2e stay numeric cells so spreadsheet formulas work
// on them; the date keeps the CSV's dd/MM/yyyy rendering.
func EmissionsXLSX(path string, emissions []model.Emission) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Emisiones"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Empresa", "Tipo", "Cantidad", "CO2e (kg)", "Fecha"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for row, e := range emissions {
		values := []any{e.CompanyName, e.Type, e.Quantity, e.CO2e, formatDate(e.Date)}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return fmt.Errorf("data cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("write emission row %d: %w", row+1, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
