package reporting

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/wellca/internal/domain/models"
)

// WeeklyFigures summarizes profile and prescription activity over a period.
type WeeklyFigures struct {
	Entries             int             `json:"entriesCount"`
	TotalRx             int             `json:"totalRx"`
	AvgProfilesEntered  decimal.Decimal `json:"avgProfilesEntered"`
	AvgActivePercentage decimal.Decimal `json:"avgActivePercentage"`
}

// WeeklyStats averages profile figures and totals filled prescriptions.
// Averages are rounded to two decimals and are 0 for an empty dataset.
func WeeklyStats(dataset []models.DailyMetricRecord) WeeklyFigures {
	figures := WeeklyFigures{
		Entries:             len(dataset),
		AvgProfilesEntered:  decimal.Zero,
		AvgActivePercentage: decimal.Zero,
	}
	if len(dataset) == 0 {
		return figures
	}

	profiles := decimal.Zero
	active := decimal.Zero
	for _, r := range dataset {
		figures.TotalRx += r.RxFilled()
		profiles = profiles.Add(decimal.NewFromInt(int64(r.ProfilesEntered)))
		active = active.Add(r.ActivePercentage)
	}

	count := decimal.NewFromInt(int64(len(dataset)))
	figures.AvgProfilesEntered = profiles.DivRound(count, 2)
	figures.AvgActivePercentage = active.DivRound(count, 2)
	return figures
}

// ServiceStat is the count and revenue of one service type.
type ServiceStat struct {
	Type    models.ServiceType `json:"serviceType"`
	Label   string             `json:"label"`
	Count   int                `json:"count"`
	Revenue decimal.Decimal    `json:"revenue"`
}

// ServiceFigures lists service statistics ordered by type name.
type ServiceFigures struct {
	Services     []ServiceStat   `json:"services"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
}

// ServiceStats counts services and sums their revenue per type.
func ServiceStats(dataset []models.DailyMetricRecord) ServiceFigures {
	figures := ServiceFigures{Services: make([]ServiceStat, 0), TotalRevenue: decimal.Zero}
	index := make(map[models.ServiceType]int)

	for _, r := range dataset {
		if !r.HasService() {
			continue
		}
		i, ok := index[r.ServiceType]
		if !ok {
			i = len(figures.Services)
			index[r.ServiceType] = i
			figures.Services = append(figures.Services, ServiceStat{
				Type:    r.ServiceType,
				Label:   r.ServiceType.Label(),
				Revenue: decimal.Zero,
			})
		}
		figures.Services[i].Count++
		figures.Services[i].Revenue = figures.Services[i].Revenue.Add(r.ServiceCost)
		figures.TotalRevenue = figures.TotalRevenue.Add(r.ServiceCost)
	}

	slices.SortFunc(figures.Services, func(a, b ServiceStat) int {
		return strings.Compare(string(a.Type), string(b.Type))
	})
	return figures
}

// Summary renders a short plain-text digest of a report.
func Summary(report Report, startDate, endDate string) string {
	t := report.Totals
	if t.Entries == 0 {
		return fmt.Sprintf("Wellca report (%s - %s): no entries recorded.", startDate, endDate)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Wellca report (%s - %s): %d entries.", startDate, endDate, t.Entries)
	fmt.Fprintf(&b, " Deliveries %d (Purolator %d, FedEx %d, OneCourier %d, GoBolt %d).",
		t.Deliveries, t.Purolator, t.Fedex, t.OneCourier, t.GoBolt)
	fmt.Fprintf(&b, " Rx filled %d, processed %d.", t.Rx, t.Processed)
	fmt.Fprintf(&b, " Services %d, revenue $%s.", t.Services, report.Breakdown.GrandTotal.StringFixed(2))
	return b.String()
}
