package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceType_JSON(t *testing.T) {
	out, err := json.Marshal(struct {
		Type ServiceType `json:"serviceType"`
	}{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"serviceType":null}`, string(out))

	var decoded struct {
		Type ServiceType `json:"serviceType"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"serviceType":" FLU_SHOT "}`), &decoded))
	assert.Equal(t, ServiceType("FLU_SHOT"), decoded.Type)

	require.NoError(t, json.Unmarshal([]byte(`{"serviceType":null}`), &decoded))
	assert.Equal(t, ServiceType(""), decoded.Type)
}

func TestServiceType_Label(t *testing.T) {
	assert.Equal(t, "Flu Shot", ServiceType("FLU_SHOT").Label())
	assert.Equal(t, "Medication Review", ServiceType("medication_review").Label())
	assert.Equal(t, "N/A", ServiceType("").Label())
	assert.Equal(t, "Évaluation Santé", ServiceType("ÉVALUATION_SANTÉ").Label())
}

func TestDailyMetricRecord_MarshalsDecimalsAsNumbers(t *testing.T) {
	rec := DailyMetricRecord{
		Date:        "2024-03-01",
		ServiceType: "FLU_SHOT",
		ServiceCost: decimal.RequireFromString("25.50"),
	}
	out, err := json.Marshal(rec)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(out, &fields))
	assert.Equal(t, 25.5, fields["serviceCost"])
	assert.Equal(t, float64(0), fields["activePercentage"])
	assert.Equal(t, "FLU_SHOT", fields["serviceType"])
	assert.NotContains(t, fields, "id")
	for _, name := range append(append(append([]string{}, DeliveryFields...), RxSalesFields...), ProfileFields...) {
		assert.Contains(t, fields, name)
	}
}

func TestDailyMetricRecord_Totals(t *testing.T) {
	rec := DailyMetricRecord{Purolator: 2, Fedex: 1, OneCourier: 3, GoBolt: 4, NewRx: 5, Refill: 1, ReAuth: 2, Hold: 3}
	assert.Equal(t, 10, rec.Deliveries())
	assert.Equal(t, 8, rec.RxFilled())
	assert.Equal(t, 11, rec.RxProcessed())
	assert.False(t, rec.HasService())
}

func TestParseCategory(t *testing.T) {
	c, ok := ParseCategory(" RX-Sales ")
	assert.True(t, ok)
	assert.Equal(t, CategoryRxSales, c)

	_, ok = ParseCategory("payroll")
	assert.False(t, ok)
}

func TestCalendarHelpers(t *testing.T) {
	day, err := ParseDate("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, 12, day.Hour())
	assert.Equal(t, 1, day.Day())

	assert.Equal(t, "2024-03", MonthKey("2024-03-01"))
	assert.Equal(t, "2024-11", MonthKey("2024-11-30T00:00:00"))
	assert.Equal(t, UnknownMonth, MonthKey("not-a-date"))

	assert.Equal(t, "March 1, 2024", FormatDate("2024-03-01"))
	assert.Equal(t, "N/A", FormatDate(""))
	assert.Equal(t, "Invalid Date", FormatDate("03/01/2024"))
	assert.Equal(t, "March 2024", FormatMonth("2024-03"))
}

func TestFormSnapshot(t *testing.T) {
	snap := SnapshotFromValues(map[string][]string{"fedex": {" 4 ", "9"}, "hold": {}})
	v, ok := snap.Value("fedex")
	assert.True(t, ok)
	assert.Equal(t, "4", v)

	_, ok = snap.Value("purolator")
	assert.False(t, ok)
	assert.Equal(t, "", snap.Text("hold"))

	var empty FormSnapshot
	_, ok = empty.Value("fedex")
	assert.False(t, ok)
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "Please fill in all required fields (serviceCost)",
		(&ValidationError{Message: MsgRequiredFields, Fields: []string{"serviceCost"}}).Error())
	assert.Equal(t, "API Error (500): boom", (&SubmissionError{StatusCode: 500, Body: "boom"}).Error())
	assert.Equal(t, "API Error (404): missing", (&FetchError{StatusCode: 404, Body: "missing"}).Error())
}
