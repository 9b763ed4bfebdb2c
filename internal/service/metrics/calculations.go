package metrics

import (
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/wellca/internal/domain/models"
)

// WorkHoursPerDay is the fixed shift length used for the per-hour rate.
const WorkHoursPerDay = 8

// RxSummary holds the live prescription totals of the RX sales form.
type RxSummary struct {
	Filled  int
	Entered int
	PerHour decimal.Decimal
}

// PerHourText renders the hourly rate with two decimals, e.g. "2.50".
func (r RxSummary) PerHourText() string {
	return r.PerHour.StringFixed(2)
}

// Calculations is every derived value shown next to the forms.
type Calculations struct {
	TotalDeliveries  int     `json:"totalDeliveries"`
	TotalFilled      int     `json:"totalFilled"`
	TotalEntered     int     `json:"totalEntered"`
	TotalPerHour     string  `json:"totalPerHour"`
	ActivePercentage *string `json:"activePercentage,omitempty"`
}

// DeliveryTotal sums the four carrier inputs.
func DeliveryTotal(form models.FormSnapshot) int {
	total := 0
	for _, field := range models.DeliveryFields {
		total += parseCount(form, field)
	}
	return total
}

// RxTotals computes filled = newRx+refill+reAuth, entered = filled+hold and
// the per-hour rate over a fixed workday.
func RxTotals(form models.FormSnapshot) RxSummary {
	filled := parseCount(form, models.FieldNewRx) + parseCount(form, models.FieldRefill) + parseCount(form, models.FieldReAuth)
	entered := filled + parseCount(form, models.FieldHold)

	return RxSummary{
		Filled:  filled,
		Entered: entered,
		PerHour: decimal.NewFromInt(int64(entered)).Div(decimal.NewFromInt(WorkHoursPerDay)),
	}
}

// ActivePercentage is whoFilledRx / profilesEntered * 100 rounded to two
// decimals. It is only defined when profilesEntered is positive.
func ActivePercentage(form models.FormSnapshot) (decimal.Decimal, bool) {
	profiles := parseCount(form, models.FieldProfilesEntered)
	if profiles <= 0 {
		return decimal.Zero, false
	}
	filled := parseCount(form, models.FieldWhoFilledRx)
	return decimal.NewFromInt(int64(filled) * 100).DivRound(decimal.NewFromInt(int64(profiles)), 2), true
}

// Derive evaluates every calculation against one snapshot.
func Derive(form models.FormSnapshot) Calculations {
	rx := RxTotals(form)
	calc := Calculations{
		TotalDeliveries: DeliveryTotal(form),
		TotalFilled:     rx.Filled,
		TotalEntered:    rx.Entered,
		TotalPerHour:    rx.PerHourText(),
	}
	if pct, ok := ActivePercentage(form); ok {
		text := pct.StringFixed(2)
		calc.ActivePercentage = &text
	}
	return calc
}
