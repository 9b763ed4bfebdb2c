package metrics

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/wellca/internal/domain/models"
)

// ErrUnknownCategory indicates a form category the dashboard does not have.
var ErrUnknownCategory = errors.New("unknown form category")

var (
	leadingInteger = regexp.MustCompile(`^[+-]?\d+`)
	leadingDecimal = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)`)
)

// Service turns form snapshots into flat records.
type Service struct {
	logger   *zap.Logger
	location *time.Location
	now      func() time.Time
}

// NewService constructs the input aggregator. The location decides which
// calendar day "today" is when a form omits its date.
func NewService(location *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}
	return &Service{logger: logger, location: location, now: time.Now}
}

// BuildRecord reads the fields owned by category from the snapshot and
// zero-fills the rest. Services are refused with a ValidationError unless
// type, cost, patient name, patient date of birth and pharmacist are all set;
// a cost of 0 counts as missing.
func (s *Service) BuildRecord(category models.Category, form models.FormSnapshot) (models.DailyMetricRecord, error) {
	record := models.DailyMetricRecord{
		Date:             s.recordDate(form),
		ActivePercentage: decimal.Zero,
		ServiceCost:      decimal.Zero,
	}

	switch category {
	case models.CategoryDelivery:
		record.Purolator = parseCount(form, models.FieldPurolator)
		record.Fedex = parseCount(form, models.FieldFedex)
		record.OneCourier = parseCount(form, models.FieldOneCourier)
		record.GoBolt = parseCount(form, models.FieldGoBolt)
	case models.CategoryRxSales:
		record.NewRx = parseCount(form, models.FieldNewRx)
		record.Refill = parseCount(form, models.FieldRefill)
		record.ReAuth = parseCount(form, models.FieldReAuth)
		record.Hold = parseCount(form, models.FieldHold)
	case models.CategoryProfiles:
		record.ProfilesEntered = parseCount(form, models.FieldProfilesEntered)
		record.WhoFilledRx = parseCount(form, models.FieldWhoFilledRx)
		if pct, ok := ActivePercentage(form); ok {
			record.ActivePercentage = pct
		}
	case models.CategoryServices:
		if err := s.fillService(&record, form); err != nil {
			return models.DailyMetricRecord{}, err
		}
	default:
		return models.DailyMetricRecord{}, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}

	s.logger.Debug("record assembled",
		zap.String("category", string(category)),
		zap.String("date", record.Date))

	return record, nil
}

func (s *Service) fillService(record *models.DailyMetricRecord, form models.FormSnapshot) error {
	serviceType := models.ServiceType(form.Text(models.FieldServiceType))
	cost := parseAmount(form, models.FieldServiceCost)
	patientName := form.Text(models.FieldPatientName)
	patientDob := form.Text(models.FieldPatientDob)
	pharmacist := form.Text(models.FieldPharmacistName)

	var missing []string
	if serviceType == "" {
		missing = append(missing, models.FieldServiceType)
	}
	if cost.IsZero() {
		missing = append(missing, models.FieldServiceCost)
	}
	if patientName == "" {
		missing = append(missing, models.FieldPatientName)
	}
	if patientDob == "" {
		missing = append(missing, models.FieldPatientDob)
	}
	if pharmacist == "" {
		missing = append(missing, models.FieldPharmacistName)
	}
	if len(missing) > 0 {
		s.logger.Warn("service validation failed", zap.Strings("missing", missing))
		return &models.ValidationError{Message: models.MsgRequiredFields, Fields: missing}
	}

	record.ServiceType = serviceType
	record.ServiceCost = cost
	record.PatientName = patientName
	record.PatientDob = patientDob
	record.PharmacistName = pharmacist
	return nil
}

func (s *Service) recordDate(form models.FormSnapshot) string {
	if date := form.Text(models.FieldDate); date != "" {
		return date
	}
	return models.Today(s.now(), s.location)
}

// parseCount reads a leading integer the way the dashboard page does. Missing,
// unparseable or negative input yields 0.
func parseCount(form models.FormSnapshot, field string) int {
	raw, ok := form.Value(field)
	if !ok {
		return 0
	}
	prefix := leadingInteger.FindString(raw)
	if prefix == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimPrefix(prefix, "+"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// parseAmount reads a leading decimal number; anything else, including a
// negative amount, yields 0.
func parseAmount(form models.FormSnapshot, field string) decimal.Decimal {
	raw, ok := form.Value(field)
	if !ok {
		return decimal.Zero
	}
	prefix := strings.TrimPrefix(leadingDecimal.FindString(raw), "+")
	if prefix == "" {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(prefix)
	if err != nil || amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}
