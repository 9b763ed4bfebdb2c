package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/mamadbah2/wellca/internal/domain/models"
	"github.com/mamadbah2/wellca/internal/service/reporting"
)

const (
	TotalsSheetName    = "Totals"
	SeriesSheetName    = "Time Series"
	BreakdownSheetName = "Services"
	RecordsSheetName   = "Records"
)

var totalsHeader = []interface{}{"Metric", "Value"}

var seriesHeader = []interface{}{"Date", "Rx Count", "Deliveries", "Services", "Rx per Delivery"}

var breakdownHeader = []interface{}{"Month", "Service", "Date", "Patient", "Pharmacist", "Cost"}

var recordsHeader = []interface{}{
	"Date", "Purolator", "FedEx", "1Courier", "GoBolt",
	"New Rx", "Refill", "Re-Auth", "Hold",
	"Profiles Entered", "Who Filled Rx", "Active %",
	"Service", "Cost", "Patient", "Patient DOB", "Pharmacist",
}

// BuildWorkbook lays out a report over four sheets: totals, chart series,
// monthly service breakdown and the raw records.
func BuildWorkbook(report reporting.Report, series []reporting.Point, dataset []models.DailyMetricRecord, startDate, endDate string) (*excelize.File, error) {
	workbook := excelize.NewFile()
	w := &workbookBuilder{workbook: workbook, headerStyle: getHeaderStyle(workbook)}

	if err := workbook.SetSheetName("Sheet1", TotalsSheetName); err != nil {
		return nil, err
	}
	if err := w.totals(report, startDate, endDate); err != nil {
		return nil, err
	}
	if err := w.series(series); err != nil {
		return nil, err
	}
	if err := w.breakdown(report.Breakdown); err != nil {
		return nil, err
	}
	if err := w.records(dataset); err != nil {
		return nil, err
	}
	workbook.SetActiveSheet(0)
	return workbook, nil
}

// Write streams the workbook and closes it.
func Write(out io.Writer, workbook *excelize.File) error {
	defer workbook.Close()
	if _, err := workbook.WriteTo(out); err != nil {
		return &models.RenderError{Op: "write workbook", Err: err}
	}
	return nil
}

// FileName names an export after its date range.
func FileName(startDate, endDate string) string {
	return fmt.Sprintf("wellca_report_%s_%s.xlsx", startDate, endDate)
}

type workbookBuilder struct {
	workbook    *excelize.File
	headerStyle int
}

func (w *workbookBuilder) totals(report reporting.Report, startDate, endDate string) error {
	totals := report.Totals
	rows := [][]interface{}{
		{"Period", fmt.Sprintf("%s - %s", startDate, endDate)},
		totalsHeader,
		{"Entries", totals.Entries},
		{"Purolator", totals.Purolator},
		{"FedEx", totals.Fedex},
		{"1Courier", totals.OneCourier},
		{"GoBolt", totals.GoBolt},
		{"Deliveries", totals.Deliveries},
		{"New Rx", totals.NewRx},
		{"Refill", totals.Refill},
		{"Re-Auth", totals.ReAuth},
		{"Hold", totals.Hold},
		{"Rx", totals.Rx},
		{"Processed", totals.Processed},
		{"Profiles Entered", totals.ProfilesEntered},
		{"Who Filled Rx", totals.WhoFilledRx},
		{"Services", totals.Services},
		{"Service Revenue", totals.ServiceCost.InexactFloat64()},
		{"Avg Profiles Entered", report.Weekly.AvgProfilesEntered.InexactFloat64()},
		{"Avg Active %", report.Weekly.AvgActivePercentage.InexactFloat64()},
	}
	for _, stat := range report.ServiceStats.Services {
		rows = append(rows,
			[]interface{}{stat.Label + " Count", stat.Count},
			[]interface{}{stat.Label + " Revenue", stat.Revenue.InexactFloat64()},
		)
	}
	if err := w.setRows(TotalsSheetName, rows); err != nil {
		return err
	}
	if err := w.workbook.SetCellStyle(TotalsSheetName, "A2", "B2", w.headerStyle); err != nil {
		return err
	}
	return w.workbook.SetColWidth(TotalsSheetName, "A", "B", 22)
}

func (w *workbookBuilder) series(series []reporting.Point) error {
	if _, err := w.workbook.NewSheet(SeriesSheetName); err != nil {
		return err
	}
	rows := make([][]interface{}, 0, len(series)+1)
	rows = append(rows, seriesHeader)
	for _, p := range series {
		rows = append(rows, []interface{}{p.Date, p.RxCount, p.Deliveries, p.Services, p.RxPerDelivery})
	}
	if err := w.setRows(SeriesSheetName, rows); err != nil {
		return err
	}
	if err := w.workbook.SetCellStyle(SeriesSheetName, "A1", "E1", w.headerStyle); err != nil {
		return err
	}
	return w.workbook.SetColWidth(SeriesSheetName, "A", "E", 16)
}

func (w *workbookBuilder) breakdown(breakdown reporting.Breakdown) error {
	if _, err := w.workbook.NewSheet(BreakdownSheetName); err != nil {
		return err
	}
	rows := [][]interface{}{breakdownHeader}
	for _, month := range breakdown.Months {
		for _, group := range month.Services {
			for _, r := range group.Entries {
				rows = append(rows, []interface{}{month.Label, group.Label, models.FormatDate(r.Date), r.PatientName, r.PharmacistName, r.ServiceCost.InexactFloat64()})
			}
			rows = append(rows, []interface{}{month.Label, group.Label + " subtotal", nil, nil, nil, group.Subtotal.InexactFloat64()})
		}
		rows = append(rows, []interface{}{month.Label + " total", nil, nil, nil, nil, month.Total.InexactFloat64()})
	}
	rows = append(rows, []interface{}{"Grand total", nil, nil, nil, nil, breakdown.GrandTotal.InexactFloat64()})

	if err := w.setRows(BreakdownSheetName, rows); err != nil {
		return err
	}
	if err := w.workbook.SetCellStyle(BreakdownSheetName, "A1", "F1", w.headerStyle); err != nil {
		return err
	}
	return w.workbook.SetColWidth(BreakdownSheetName, "A", "F", 18)
}

func (w *workbookBuilder) records(dataset []models.DailyMetricRecord) error {
	if _, err := w.workbook.NewSheet(RecordsSheetName); err != nil {
		return err
	}
	rows := make([][]interface{}, 0, len(dataset)+1)
	rows = append(rows, recordsHeader)
	for _, r := range dataset {
		var service interface{}
		if r.HasService() {
			service = r.ServiceType.Label()
		}
		rows = append(rows, []interface{}{
			r.Date, r.Purolator, r.Fedex, r.OneCourier, r.GoBolt,
			r.NewRx, r.Refill, r.ReAuth, r.Hold,
			r.ProfilesEntered, r.WhoFilledRx, r.ActivePercentage.InexactFloat64(),
			service, r.ServiceCost.InexactFloat64(), r.PatientName, r.PatientDob, r.PharmacistName,
		})
	}
	if err := w.setRows(RecordsSheetName, rows); err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(recordsHeader))
	if err != nil {
		return err
	}
	if err := w.workbook.SetCellStyle(RecordsSheetName, "A1", lastCol+"1", w.headerStyle); err != nil {
		return err
	}
	if len(dataset) > 0 {
		err = w.workbook.AutoFilter(RecordsSheetName, fmt.Sprintf("A1:%s1", lastCol), []excelize.AutoFilterOptions{})
		if err != nil {
			return err
		}
	}
	return w.workbook.SetColWidth(RecordsSheetName, "A", lastCol, 14)
}

func (w *workbookBuilder) setRows(sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := w.workbook.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func getHeaderStyle(file *excelize.File) (style int) {
	headerStyle, _ := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:   true,
			Family: "Arial",
			Size:   10,
			Color:  "FFFFFF",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "E2E5E8", Style: 1},
			{Type: "right", Color: "E2E5E8", Style: 1},
			{Type: "top", Color: "E2E5E8", Style: 1},
			{Type: "bottom", Color: "E2E5E8", Style: 1},
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"3B82F6"},
			Pattern: 1,
		},
	})
	return headerStyle
}
