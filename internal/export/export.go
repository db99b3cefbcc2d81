// Package export renders bookings as CSV and XLSX.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/garnizeh/labbook/pkg/models"
	"github.com/xuri/excelize/v2"
)

// Columns is the fixed export column order.
var Columns = []string{"id", "name", "email", "phone", "test_type", "preferred_date", "message", "status", "created_at"}

// TimeFormat renders created_at: RFC 3339, UTC, millisecond precision.
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

// SheetName is the worksheet holding bookings in XLSX exports.
const SheetName = "Bookings"

func record(b models.Booking) []string {
	return []string{
		strconv.FormatInt(b.ID, 10),
		b.Name,
		b.Email,
		b.Phone,
		b.TestType,
		b.PreferredDate,
		b.Message,
		b.Status,
		b.CreatedAt.UTC().Format(TimeFormat),
	}
}

// WriteCSV writes a header row followed by one row per booking.
func WriteCSV(w io.Writer, bookings []models.Booking) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, b := range bookings {
		if err := cw.Write(record(b)); err != nil {
			return fmt.Errorf("write csv row %d: %w", b.ID, err)
		}
	}
	cw.Flush()

	return cw.Error()
}

// WriteXLSX writes a single-sheet workbook with a bold header row.
func WriteXLSX(w io.Writer, bookings []models.Booking) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(Columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", last, style); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}

	for i, b := range bookings {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		rec := record(b)
		row := make([]any, len(rec))
		row[0] = b.ID
		for j := 1; j < len(rec); j++ {
			row[j] = rec[j]
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", b.ID, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}

	return nil
}

// ParseTime parses a created_at value produced by the exporters.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimeFormat, s)
}
