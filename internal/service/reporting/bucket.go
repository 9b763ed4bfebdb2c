package reporting

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/mamadbah2/wellca/internal/domain/models"
)

// Granularity selects the width of chart buckets.
type Granularity string

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

// ParseGranularity resolves a granularity name; empty means daily.
func ParseGranularity(value string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(value))); g {
	case "":
		return Daily, nil
	case Daily, Weekly, Monthly:
		return g, nil
	default:
		return "", fmt.Errorf("unsupported granularity %q", value)
	}
}

// Bucket folds a daily series into weekly or monthly points. Weekly points
// are labelled with the Sunday closing their ISO week, monthly points with
// YYYY-MM. Points whose date cannot be read are kept as they are.
func Bucket(points []Point, granularity Granularity) []Point {
	if granularity == Daily || granularity == "" {
		return slices.Clone(points)
	}

	index := make(map[string]int)
	out := make([]Point, 0, len(points))
	for _, p := range points {
		key := bucketKey(p.Date, granularity)
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, Point{Date: key})
		}
		out[i].RxCount += p.RxCount
		out[i].Deliveries += p.Deliveries
		out[i].Services += p.Services
	}

	for i := range out {
		out[i].RxPerDelivery = rxPerDelivery(out[i].RxCount, out[i].Deliveries)
	}
	return out
}

func bucketKey(date string, granularity Granularity) string {
	day, err := models.ParseDate(date)
	if err != nil {
		return date
	}
	switch granularity {
	case Monthly:
		return day.Format(models.MonthLayout)
	default:
		return weekEnd(day).Format(models.DateLayout)
	}
}

// weekEnd returns the Sunday of the ISO week containing day.
func weekEnd(day time.Time) time.Time {
	offset := (7 - int(day.Weekday())) % 7
	return day.AddDate(0, 0, offset)
}
