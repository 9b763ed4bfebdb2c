package reporting

import (
	"cmp"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/wellca/internal/domain/models"
)

// Totals sums every numeric metric across a dataset.
type Totals struct {
	Entries int `json:"entries"`

	Purolator  int `json:"purolator"`
	Fedex      int `json:"fedex"`
	OneCourier int `json:"oneCourier"`
	GoBolt     int `json:"goBolt"`
	Deliveries int `json:"deliveries"`

	NewRx     int `json:"newRx"`
	Refill    int `json:"refill"`
	ReAuth    int `json:"reAuth"`
	Hold      int `json:"hold"`
	Rx        int `json:"rx"`
	Processed int `json:"processed"`

	ProfilesEntered int `json:"profilesEntered"`
	WhoFilledRx     int `json:"whoFilledRx"`

	Services    int             `json:"services"`
	ServiceCost decimal.Decimal `json:"serviceCost"`
}

// Point is one date bucket of the chart series.
type Point struct {
	Date          string  `json:"date"`
	RxCount       int     `json:"rxCount"`
	Deliveries    int     `json:"deliveries"`
	Services      int     `json:"services"`
	RxPerDelivery float64 `json:"rxPerDelivery"`
}

// ServiceGroup holds the records of one service type within a month.
type ServiceGroup struct {
	Type     models.ServiceType         `json:"serviceType"`
	Label    string                     `json:"label"`
	Entries  []models.DailyMetricRecord `json:"entries"`
	Subtotal decimal.Decimal            `json:"subtotal"`
}

// MonthGroup is the breakdown of one YYYY-MM month.
type MonthGroup struct {
	Month    string          `json:"month"`
	Label    string          `json:"label"`
	Services []ServiceGroup  `json:"services"`
	Total    decimal.Decimal `json:"total"`
}

// Service looks up the group of a service type.
func (m MonthGroup) Service(serviceType models.ServiceType) (ServiceGroup, bool) {
	for _, group := range m.Services {
		if group.Type == serviceType {
			return group, true
		}
	}
	return ServiceGroup{}, false
}

// Breakdown groups service records by month, then by service type.
type Breakdown struct {
	Months     []MonthGroup    `json:"months"`
	GrandTotal decimal.Decimal `json:"grandTotal"`
}

// Month looks up a month by its YYYY-MM key.
func (b Breakdown) Month(key string) (MonthGroup, bool) {
	for _, month := range b.Months {
		if month.Month == key {
			return month, true
		}
	}
	return MonthGroup{}, false
}

// Report is the full view derived from one fetched dataset.
type Report struct {
	Totals       Totals         `json:"totals"`
	TimeSeries   []Point        `json:"timeSeries"`
	Breakdown    Breakdown      `json:"breakdown"`
	Weekly       WeeklyFigures  `json:"weeklyStats"`
	ServiceStats ServiceFigures `json:"serviceStats"`
}

// Aggregate derives totals, the chart series, the service breakdown and the
// averaged figures from a dataset in fetch order. The dataset is not modified.
func Aggregate(dataset []models.DailyMetricRecord) Report {
	return Report{
		Totals:       sumTotals(dataset),
		TimeSeries:   buildTimeSeries(dataset),
		Breakdown:    buildBreakdown(dataset),
		Weekly:       WeeklyStats(dataset),
		ServiceStats: ServiceStats(dataset),
	}
}

func sumTotals(dataset []models.DailyMetricRecord) Totals {
	totals := Totals{Entries: len(dataset), ServiceCost: decimal.Zero}
	for _, r := range dataset {
		totals.Purolator += r.Purolator
		totals.Fedex += r.Fedex
		totals.OneCourier += r.OneCourier
		totals.GoBolt += r.GoBolt

		totals.NewRx += r.NewRx
		totals.Refill += r.Refill
		totals.ReAuth += r.ReAuth
		totals.Hold += r.Hold

		totals.ProfilesEntered += r.ProfilesEntered
		totals.WhoFilledRx += r.WhoFilledRx

		if r.HasService() {
			totals.Services++
		}
		totals.ServiceCost = totals.ServiceCost.Add(r.ServiceCost)
	}
	totals.Deliveries = totals.Purolator + totals.Fedex + totals.OneCourier + totals.GoBolt
	totals.Rx = totals.NewRx + totals.Refill + totals.ReAuth
	totals.Processed = totals.Rx + totals.Hold
	return totals
}

// dateKey normalizes a record date to YYYY-MM-DD. Unreadable dates keep their
// trimmed text so they still form their own bucket.
func dateKey(date string) string {
	day, err := models.ParseDate(date)
	if err != nil {
		return strings.TrimSpace(date)
	}
	return day.Format(models.DateLayout)
}

func buildTimeSeries(dataset []models.DailyMetricRecord) []Point {
	index := make(map[string]int)
	points := make([]Point, 0)

	for _, r := range dataset {
		key := dateKey(r.Date)
		i, ok := index[key]
		if !ok {
			i = len(points)
			index[key] = i
			points = append(points, Point{Date: key})
		}
		points[i].RxCount += r.RxFilled()
		points[i].Deliveries += r.Deliveries()
		if r.HasService() {
			points[i].Services++
		}
	}

	for i := range points {
		points[i].RxPerDelivery = rxPerDelivery(points[i].RxCount, points[i].Deliveries)
	}

	slices.SortStableFunc(points, func(a, b Point) int {
		return compareDateKeys(a.Date, b.Date)
	})
	return points
}

func rxPerDelivery(rx, deliveries int) float64 {
	if deliveries <= 0 {
		return 0
	}
	return float64(rx) / float64(deliveries)
}

// compareDateKeys orders ISO keys chronologically and unreadable keys last.
func compareDateKeys(a, b string) int {
	_, errA := models.ParseDate(a)
	_, errB := models.ParseDate(b)
	switch {
	case errA == nil && errB != nil:
		return -1
	case errA != nil && errB == nil:
		return 1
	case errA != nil && errB != nil:
		return 0
	}
	return cmp.Compare(a, b)
}

func buildBreakdown(dataset []models.DailyMetricRecord) Breakdown {
	breakdown := Breakdown{Months: make([]MonthGroup, 0), GrandTotal: decimal.Zero}
	monthIndex := make(map[string]int)

	for _, r := range dataset {
		if !r.HasService() {
			continue
		}

		key := models.MonthKey(r.Date)
		mi, ok := monthIndex[key]
		if !ok {
			mi = len(breakdown.Months)
			monthIndex[key] = mi
			breakdown.Months = append(breakdown.Months, MonthGroup{
				Month: key,
				Label: models.FormatMonth(key),
				Total: decimal.Zero,
			})
		}
		month := &breakdown.Months[mi]

		si := slices.IndexFunc(month.Services, func(g ServiceGroup) bool { return g.Type == r.ServiceType })
		if si < 0 {
			si = len(month.Services)
			month.Services = append(month.Services, ServiceGroup{
				Type:     r.ServiceType,
				Label:    r.ServiceType.Label(),
				Subtotal: decimal.Zero,
			})
		}
		group := &month.Services[si]

		group.Entries = append(group.Entries, r)
		group.Subtotal = group.Subtotal.Add(r.ServiceCost)
		month.Total = month.Total.Add(r.ServiceCost)
		breakdown.GrandTotal = breakdown.GrandTotal.Add(r.ServiceCost)
	}

	slices.SortStableFunc(breakdown.Months, func(a, b MonthGroup) int {
		switch {
		case a.Month == models.UnknownMonth && b.Month != models.UnknownMonth:
			return 1
		case a.Month != models.UnknownMonth && b.Month == models.UnknownMonth:
			return -1
		}
		return cmp.Compare(a.Month, b.Month)
	})
	return breakdown
}
