package services

import (
	"context"
	"fmt"

	"bominventory-backend/models"

	"github.com/xuri/excelize/v2"
)

// Листы выгрузки отчета
const (
	SheetInventory   = "Inventory"
	SheetLowStock    = "Low Stock"
	SheetDeliveries  = "Recent Deliveries"
	SheetAdjustments = "Recent Adjustments"
)

var (
	partHeaders = []string{
		"Part Number", "Part Name", "Supplier", "Description", "Type", "Qty Needed Per LRV",
		"Quantity currently in stock at store", "Quantity shipped out by store", "Quantity Back Ordered",
		"LRV Coverage", "Coverage LRVs", "Total Needed For Fleet",
	}
	deliveryHeaders   = []string{"Date", "Part Number", "Description", "Qty", "Vendor", "Notes"}
	adjustmentHeaders = []string{"Date", "Part Number", "Type", "Quantity", "Reason", "User", "Notes"}
)

// ExportService выгрузка отчета о складе в Excel
type ExportService struct {
	reports *ReportService
}

// NewExportService создает сервис выгрузки
func NewExportService(reports *ReportService) *ExportService {
	return &ExportService{reports: reports}
}

// InventoryWorkbook строит книгу с каталогом, дефицитом и движениями за 30 дней
func (s *ExportService) InventoryWorkbook(ctx context.Context) (*excelize.File, error) {
	report, err := s.reports.InventoryReport(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	if err != nil {
		f.Close()
		return nil, err
	}

	if err := f.SetSheetName(f.GetSheetName(0), SheetInventory); err != nil {
		f.Close()
		return nil, err
	}
	for _, name := range []string{SheetLowStock, SheetDeliveries, SheetAdjustments} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, err
		}
	}

	steps := []func() error{
		func() error { return writeParts(f, SheetInventory, headerStyle, report.AllItems) },
		func() error { return writeParts(f, SheetLowStock, headerStyle, report.LowStockItems) },
		func() error { return writeDeliveries(f, headerStyle, report.RecentDeliveries) },
		func() error { return writeAdjustments(f, headerStyle, report.RecentAdjustments) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func writeHeader(f *excelize.File, sheet string, style int, headers []string) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	last, _ := excelize.ColumnNumberToName(len(headers))
	return f.SetCellStyle(sheet, "A1", last+"1", style)
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func writeParts(f *excelize.File, sheet string, style int, parts []models.Part) error {
	if err := writeHeader(f, sheet, style, partHeaders); err != nil {
		return err
	}
	for i, p := range parts {
		stock, _ := p.QtyCurrentStock.Float64()
		perLRV, _ := p.QtyPerLRV.Float64()
		shipped, _ := p.QtyShippedOut.Float64()
		backOrdered, _ := p.QtyBackOrdered.Float64()
		coverage, _ := p.LRVCoverage.Float64()
		fleet, _ := p.TotalNeededForFleet.Float64()
		err := writeRow(f, sheet, i+2, []interface{}{
			p.PartNumber, p.PartName, p.Supplier, p.Description, p.Type, perLRV,
			stock, shipped, backOrdered, coverage, p.CoverageLRVs, fleet,
		})
		if err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

func writeDeliveries(f *excelize.File, style int, deliveries []models.Delivery) error {
	if err := writeHeader(f, SheetDeliveries, style, deliveryHeaders); err != nil {
		return err
	}
	for i, d := range deliveries {
		qty, _ := d.QuantityReceived.Float64()
		err := writeRow(f, SheetDeliveries, i+2, []interface{}{
			d.DateReceived.Format("2006-01-02"), d.PartNumber, d.PartName, qty, d.Supplier, d.Notes,
		})
		if err != nil {
			return fmt.Errorf("write deliveries row %d: %w", i+2, err)
		}
	}
	return nil
}

func writeAdjustments(f *excelize.File, style int, adjustments []models.StockAdjustment) error {
	if err := writeHeader(f, SheetAdjustments, style, adjustmentHeaders); err != nil {
		return err
	}
	for i, a := range adjustments {
		qty, _ := a.Quantity.Float64()
		err := writeRow(f, SheetAdjustments, i+2, []interface{}{
			a.CreatedAt.Format("2006-01-02"), a.PartNumber, a.AdjustmentType, qty, a.Reason, a.UserName, a.Notes,
		})
		if err != nil {
			return fmt.Errorf("write adjustments row %d: %w", i+2, err)
		}
	}
	return nil
}
