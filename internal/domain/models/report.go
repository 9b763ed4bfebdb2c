package models

import "time"

// ReportSnapshot represents the aggregated weekly figures stored in MongoDB.
type ReportSnapshot struct {
	StartDate      string    `bson:"start_date" json:"start_date"`
	EndDate        string    `bson:"end_date" json:"end_date"`
	Entries        int       `bson:"entries" json:"entries"`
	Deliveries     int       `bson:"deliveries" json:"deliveries"`
	RxFilled       int       `bson:"rx_filled" json:"rx_filled"`
	RxProcessed    int       `bson:"rx_processed" json:"rx_processed"`
	Services       int       `bson:"services" json:"services"`
	ServiceRevenue float64   `bson:"service_revenue" json:"service_revenue"`
	Summary        string    `bson:"summary" json:"summary"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
}
