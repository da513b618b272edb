// Package export renders devices and inspections as styled xlsx workbooks.
package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/crucial707/meddevice/internal/models"
)

// ContentType is the MIME type of the workbooks produced here.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var deviceStatusLabel = map[string]string{
	models.DeviceActive:      "Hoạt động",
	models.DeviceMaintenance: "Bảo trì",
	models.DeviceInactive:    "Ngừng HĐ",
}

var inspectionStatusLabel = map[string]string{
	models.InspectionGood:     "Tốt",
	models.InspectionIssue:    "Có vấn đề",
	models.InspectionCritical: "Nghiêm trọng",
}

// Devices builds the device inventory workbook.
func Devices(devices []models.Device, loc *time.Location) (*excelize.File, error) {
	headers := []string{"Tên thiết bị", "Model", "Serial", "Nhà sản xuất", "Vị trí", "Khoa/Phòng", "Loại",
		"Trạng thái", "Tần suất kiểm tra", "Ngày mua", "Hết bảo hành", "Kiểm tra gần nhất", "Ngày tạo"}
	rows := make([][]any, 0, len(devices))
	for _, d := range devices {
		last := ""
		if d.LastInspectionAt != nil {
			last = d.LastInspectionAt.In(loc).Format("02/01/2006 15:04")
		}
		rows = append(rows, []any{
			d.Name, d.Model, d.SerialNumber, d.Manufacturer, d.Location, d.DepartmentName, d.CategoryName,
			label(deviceStatusLabel, d.Status), d.InspectionFrequency, d.PurchaseDate, d.WarrantyExpiry,
			last, d.CreatedAt.In(loc).Format("02/01/2006"),
		})
	}
	return workbook("Thiết bị", headers, rows)
}

// Inspections builds the inspection history workbook.
func Inspections(inspections []models.Inspection, loc *time.Location) (*excelize.File, error) {
	headers := []string{"Thời gian", "Thiết bị", "Vị trí", "Loại", "Người kiểm tra", "Trạng thái", "Ghi chú", "Vấn đề"}
	rows := make([][]any, 0, len(inspections))
	for _, in := range inspections {
		rows = append(rows, []any{
			in.InspectedAt.In(loc).Format("02/01/2006 15:04"), in.DeviceName, in.DeviceLocation, in.CategoryName,
			in.InspectorName, label(inspectionStatusLabel, in.Status), in.Notes, in.Issues,
		})
	}
	return workbook("Kiểm tra", headers, rows)
}

func label(m map[string]string, v string) string {
	if l, ok := m[v]; ok {
		return l
	}
	return v
}

func workbook(sheet string, headers []string, rows [][]any) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	if err := applyStyles(f, sheet, len(headers), len(rows)+1); err != nil {
		return nil, err
	}
	return f, nil
}

func applyStyles(f *excelize.File, sheet string, cols, lastRow int) error {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E6E6E6"}, Pattern: 1},
		Border:    border,
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(cols)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}

	if lastRow > 1 {
		dataStyle, err := f.NewStyle(&excelize.Style{
			Border:    border,
			Alignment: &excelize.Alignment{Vertical: "center", WrapText: true},
		})
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A2", fmt.Sprintf("%s%d", lastCol, lastRow), dataStyle); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		return err
	}
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}
