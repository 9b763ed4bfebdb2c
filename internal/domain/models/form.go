package models

import "strings"

// Input field names posted by the dashboard forms.
const (
	FieldDate      = "date"
	FieldStartDate = "startDate"
	FieldEndDate   = "endDate"

	FieldPurolator  = "purolator"
	FieldFedex      = "fedex"
	FieldOneCourier = "oneCourier"
	FieldGoBolt     = "goBolt"

	FieldNewRx  = "newRx"
	FieldRefill = "refill"
	FieldReAuth = "reAuth"
	FieldHold   = "hold"

	FieldProfilesEntered = "profilesEntered"
	FieldWhoFilledRx     = "whoFilledRx"

	FieldServiceType    = "serviceType"
	FieldServiceCost    = "serviceCost"
	FieldPatientName    = "patientName"
	FieldPatientDob     = "patientDob"
	FieldPharmacistName = "pharmacistName"
)

var (
	DeliveryFields = []string{FieldPurolator, FieldFedex, FieldOneCourier, FieldGoBolt}
	RxSalesFields  = []string{FieldNewRx, FieldRefill, FieldReAuth, FieldHold}
	ProfileFields  = []string{FieldProfilesEntered, FieldWhoFilledRx}
	ServiceFields  = []string{FieldServiceType, FieldServiceCost, FieldPatientName, FieldPatientDob, FieldPharmacistName}
)

// FormSnapshot is the set of input values read once per interaction. A
// missing key stands for a missing input element.
type FormSnapshot map[string]string

// Value returns the trimmed value of a field and whether the field exists.
func (f FormSnapshot) Value(field string) (string, bool) {
	if f == nil {
		return "", false
	}
	v, ok := f[field]
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// Text returns the trimmed value, or "" when the field is missing.
func (f FormSnapshot) Text(field string) string {
	v, _ := f.Value(field)
	return v
}

// SnapshotFromValues builds a snapshot from multi-valued form data, keeping
// the first value per field.
func SnapshotFromValues(values map[string][]string) FormSnapshot {
	snapshot := make(FormSnapshot, len(values))
	for k, v := range values {
		if len(v) == 0 {
			snapshot[k] = ""
			continue
		}
		snapshot[k] = v[0]
	}
	return snapshot
}

// User-facing notification texts.
const (
	MsgRequiredFields    = "Please fill in all required fields"
	MsgInvalidDateRange  = "Please select both start and end dates"
	MsgInvertedDateRange = "End date must not be before start date"
	MsgSubmissionSuccess = "Successfully Submitted!"
	MsgSubmissionError   = "Failed to save data: "
	MsgServiceAdded      = "Service added successfully"
	MsgReportError       = "Error loading report: "
	MsgReportReady       = "Report generated"
)
