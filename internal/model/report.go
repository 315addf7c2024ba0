package model

import "time"

// DateRange bounds a report. Zero values are open ends.
type DateRange struct {
	From time.Time
	To   time.Time
}

// ReportBucket is one grouped row of a report.
type ReportBucket struct {
	Key   string  `json:"key"`
	Count int     `json:"count"`
	Sum   float64 `json:"sum"`
}

// Report is a grouped aggregation over a small result set.
type Report struct {
	Name        string         `json:"name"`
	KeyLabel    string         `json:"key_label"`
	ValueLabel  string         `json:"value_label"`
	Buckets     []ReportBucket `json:"buckets"`
	TotalCount  int            `json:"total_count"`
	TotalSum    float64        `json:"total_sum"`
	GeneratedAt time.Time      `json:"generated_at"`
}
