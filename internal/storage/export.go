package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportQuotesToExcel dumps the quote log of one tenant into an .xlsx file
// under dir and returns the file path.
func (s *PostgresStorage) ExportQuotesToExcel(ctx context.Context, tenantID, dir string) (string, error) {
	const query = `SELECT * FROM quotes WHERE tenant_id = $1 ORDER BY created_at DESC`
	var quotes []Quote
	if err := s.db.SelectContext(ctx, &quotes, query, tenantID); err != nil {
		return "", fmt.Errorf("failed to fetch quotes: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Quotes"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return "", fmt.Errorf("failed to create sheet: %w", err)
	}

	headers := []string{
		"ID", "Material", "Finish", "Product", "Width (mm)", "Height (mm)",
		"Quantity", "Area (m²)", "Total Area (m²)", "Material Cost",
		"Finish Cost", "Product Cost", "Total Price", "Split", "Pieces",
		"Created At",
	}
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	style, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	endHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	f.SetCellStyle(sheet, "A1", endHeader, style)

	for row, quote := range quotes {
		data := []interface{}{
			quote.ID,
			quote.MaterialName,
			deref(quote.FinishID),
			deref(quote.ProductID),
			quote.WidthMM,
			quote.HeightMM,
			quote.Quantity,
			quote.AreaM2,
			quote.TotalAreaM2,
			quote.MaterialCost,
			quote.FinishCost,
			quote.ProductCost,
			quote.TotalPrice,
			quote.IsSplit,
			quote.TotalPieces,
			quote.CreatedAt.Format("2006-01-02 15:04"),
		}
		for col, value := range data {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, value)
		}
	}

	f.SetActiveSheet(index)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	filename := fmt.Sprintf("quotes_%s_%s.xlsx", tenantID, time.Now().Format("20060102_1504"))
	path := filepath.Join(dir, filename)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save Excel file: %w", err)
	}

	return path, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
