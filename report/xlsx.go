package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const monthlySheet = "Monthly"

var monthlyHeaders = []string{"Month", "Sales", "Purchases", "Expenses", "Worker Costs", "Gross Profit", "Net Profit"}

// WriteXLSX writes the monthly rollup as a single-sheet workbook.
func WriteXLSX(w io.Writer, rows []MonthRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", monthlySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for i, h := range monthlyHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(monthlySheet, cell, h); err != nil {
			return err
		}
	}

	for i, r := range rows {
		row := i + 2
		values := []any{
			r.Month,
			r.Sales.InexactFloat64(),
			r.Purchases.InexactFloat64(),
			r.Expenses.InexactFloat64(),
			r.WorkerCosts.InexactFloat64(),
			r.GrossProfit.InexactFloat64(),
			r.NetProfit.InexactFloat64(),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(monthlySheet, cell, v); err != nil {
				return err
			}
		}
	}

	if err := f.SetColWidth(monthlySheet, "A", "G", 14); err != nil {
		return err
	}
	return f.Write(w)
}
