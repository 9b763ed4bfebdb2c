package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

func init() {
	// The backend binds BigDecimal fields from plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Category identifies which dashboard form produced a record.
type Category string

const (
	CategoryDelivery Category = "delivery"
	CategoryRxSales  Category = "rx-sales"
	CategoryProfiles Category = "profiles"
	CategoryServices Category = "services"
)

// Categories lists every form category in page order.
var Categories = []Category{CategoryDelivery, CategoryRxSales, CategoryProfiles, CategoryServices}

// ParseCategory resolves a category from its wire name.
func ParseCategory(value string) (Category, bool) {
	normalized := Category(strings.ToLower(strings.TrimSpace(value)))
	for _, c := range Categories {
		if c == normalized {
			return c, true
		}
	}
	return "", false
}

// ServiceType is the professional service performed, e.g. FLU_SHOT. The empty
// value means "no service" and is sent as null.
type ServiceType string

// MarshalJSON encodes an empty service type as null.
func (s ServiceType) MarshalJSON() ([]byte, error) {
	if s == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(s))
}

// UnmarshalJSON accepts null or a string.
func (s *ServiceType) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = ""
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ServiceType(strings.TrimSpace(raw))
	return nil
}

// Label renders FLU_SHOT as "Flu Shot".
func (s ServiceType) Label() string {
	if s == "" {
		return "N/A"
	}
	words := strings.Fields(strings.ReplaceAll(strings.ToLower(string(s)), "_", " "))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// DailyMetricRecord is the single wide row shared by all four dashboard forms.
// Fields outside the submitting form are zero-filled.
type DailyMetricRecord struct {
	ID   *int64 `json:"id,omitempty" bson:"id,omitempty"`
	Date string `json:"date" bson:"date"`

	Purolator  int `json:"purolator" bson:"purolator" binding:"gte=0,lte=9999"`
	Fedex      int `json:"fedex" bson:"fedex" binding:"gte=0,lte=9999"`
	OneCourier int `json:"oneCourier" bson:"one_courier" binding:"gte=0,lte=9999"`
	GoBolt     int `json:"goBolt" bson:"go_bolt" binding:"gte=0,lte=9999"`

	NewRx  int `json:"newRx" bson:"new_rx" binding:"gte=0"`
	Refill int `json:"refill" bson:"refill" binding:"gte=0"`
	ReAuth int `json:"reAuth" bson:"re_auth" binding:"gte=0"`
	Hold   int `json:"hold" bson:"hold" binding:"gte=0"`

	ProfilesEntered  int             `json:"profilesEntered" bson:"profiles_entered" binding:"gte=0"`
	WhoFilledRx      int             `json:"whoFilledRx" bson:"who_filled_rx" binding:"gte=0"`
	ActivePercentage decimal.Decimal `json:"activePercentage" bson:"active_percentage"`

	ServiceType    ServiceType     `json:"serviceType" bson:"service_type"`
	ServiceCost    decimal.Decimal `json:"serviceCost" bson:"service_cost"`
	PatientName    string          `json:"patientName" bson:"patient_name"`
	PatientDob     string          `json:"patientDob" bson:"patient_dob"`
	PharmacistName string          `json:"pharmacistName" bson:"pharmacist_name"`
}

// Deliveries sums the four carrier counts.
func (r DailyMetricRecord) Deliveries() int {
	return r.Purolator + r.Fedex + r.OneCourier + r.GoBolt
}

// RxFilled is newRx + refill + reAuth.
func (r DailyMetricRecord) RxFilled() int {
	return r.NewRx + r.Refill + r.ReAuth
}

// RxProcessed adds held prescriptions to RxFilled.
func (r DailyMetricRecord) RxProcessed() int {
	return r.RxFilled() + r.Hold
}

// HasService reports whether the row records a professional service.
func (r DailyMetricRecord) HasService() bool {
	return r.ServiceType != ""
}
