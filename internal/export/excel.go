package export

import (
	"fmt"
	"io"

	"roomserve/internal/models"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Reservations"

var columns = []string{"ID", "Room", "Booked by", "Email", "Date", "Start", "End", "Purpose"}

// WriteReservationsXLSX renders the reservation list as an XLSX workbook.
// The caller decides what slice to pass; filters are applied upstream.
func WriteReservationsXLSX(w io.Writer, resvs []models.Reservation) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	f.SetSheetName("Sheet1", sheetName)

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, col); err != nil {
			return err
		}
	}

	// Bold header, same as the audit exports elsewhere.
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		endCell, _ := excelize.CoordinatesToCellName(len(columns), 1)
		_ = f.SetCellStyle(sheetName, "A1", endCell, style)
	}

	for row, r := range resvs {
		values := []any{r.ID, r.RoomName, r.UserName, r.UserEmail, r.Date, r.StartTime, r.EndTime, r.Purpose}
		for col, val := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, val); err != nil {
				return fmt.Errorf("write row %d: %w", row+2, err)
			}
		}
	}

	return f.Write(w)
}
