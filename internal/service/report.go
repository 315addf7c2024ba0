package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/heritage-trails/admin-api/internal/model"
	"github.com/heritage-trails/admin-api/internal/store"
	"github.com/heritage-trails/admin-api/pkg/logger"
)

// ReportService aggregates small result sets for the reports screen.
type ReportService struct {
	bookings  store.BookingStore
	feedback  store.FeedbackStore
	campaigns store.CampaignStore
	logger    *logger.Logger
}

// NewReportService creates a new report service.
func NewReportService(bookings store.BookingStore, feedback store.FeedbackStore, campaigns store.CampaignStore, log *logger.Logger) *ReportService {
	return &ReportService{
		bookings:  bookings,
		feedback:  feedback,
		campaigns: campaigns,
		logger:    log.Named("reports"),
	}
}

// GroupSum groups rows by key, counting rows and summing value per group.
// Buckets are ordered by sum descending, then count descending, then key.
func GroupSum[T any](rows []T, key func(T) string, value func(T) float64) []model.ReportBucket {
	index := make(map[string]int)
	buckets := []model.ReportBucket{}
	for _, row := range rows {
		k := key(row)
		i, ok := index[k]
		if !ok {
			i = len(buckets)
			index[k] = i
			buckets = append(buckets, model.ReportBucket{Key: k})
		}
		buckets[i].Count++
		buckets[i].Sum += value(row)
	}

	sort.Slice(buckets, func(i, j int) bool {
		a, b := buckets[i], buckets[j]
		if a.Sum != b.Sum {
			return a.Sum > b.Sum
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Key < b.Key
	})
	return buckets
}

func newReport(name, keyLabel, valueLabel string, buckets []model.ReportBucket) *model.Report {
	r := &model.Report{
		Name:        name,
		KeyLabel:    keyLabel,
		ValueLabel:  valueLabel,
		Buckets:     buckets,
		GeneratedAt: time.Now().UTC(),
	}
	for _, b := range buckets {
		r.TotalCount += b.Count
		r.TotalSum += b.Sum
	}
	return r
}

func validateRange(r model.DateRange) error {
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return invalid("to", "must not be before from")
	}
	return nil
}

// BookingSummary counts bookings and sums their amounts by status.
func (s *ReportService) BookingSummary(ctx context.Context, r model.DateRange) (*model.Report, error) {
	if err := validateRange(r); err != nil {
		return nil, err
	}
	bookings, err := s.bookings.InRange(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("loading bookings: %w", err)
	}

	buckets := GroupSum(bookings,
		func(b model.Booking) string { return string(b.Status) },
		func(b model.Booking) float64 { return b.TotalAmount },
	)
	return newReport("Booking summary", "Status", "Amount", buckets), nil
}

// RevenueBySite sums confirmed and completed booking amounts per site.
func (s *ReportService) RevenueBySite(ctx context.Context, r model.DateRange) (*model.Report, error) {
	if err := validateRange(r); err != nil {
		return nil, err
	}
	bookings, err := s.bookings.InRange(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("loading bookings: %w", err)
	}

	earned := bookings[:0:0]
	for _, b := range bookings {
		if b.Status == model.BookingConfirmed || b.Status == model.BookingCompleted {
			earned = append(earned, b)
		}
	}

	buckets := GroupSum(earned,
		func(b model.Booking) string {
			if b.SiteName != "" {
				return b.SiteName
			}
			return b.SiteID
		},
		func(b model.Booking) float64 { return b.TotalAmount },
	)
	return newReport("Revenue by site", "Site", "Revenue", buckets), nil
}

// FeedbackByRating counts feedback entries per star rating.
func (s *ReportService) FeedbackByRating(ctx context.Context, r model.DateRange) (*model.Report, error) {
	if err := validateRange(r); err != nil {
		return nil, err
	}
	entries, err := s.feedback.InRange(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("loading feedback: %w", err)
	}

	buckets := GroupSum(entries,
		func(f model.Feedback) string { return strconv.Itoa(f.Rating) },
		func(model.Feedback) float64 { return 1 },
	)
	return newReport("Feedback by rating", "Rating", "Entries", buckets), nil
}

// CampaignPerformance sums delivered notifications per sent campaign.
func (s *ReportService) CampaignPerformance(ctx context.Context) (*model.Report, error) {
	campaigns, err := s.campaigns.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading campaigns: %w", err)
	}

	sent := campaigns[:0:0]
	for _, c := range campaigns {
		if c.Status == model.CampaignSent {
			sent = append(sent, c)
		}
	}

	buckets := GroupSum(sent,
		func(c model.Campaign) string { return c.Name },
		func(c model.Campaign) float64 { return float64(c.SentCount) },
	)
	return newReport("Campaign performance", "Campaign", "Delivered", buckets), nil
}

// ExportXLSX renders a report as an Excel workbook.
func (s *ReportService) ExportXLSX(report *model.Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(report.Name)
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if sheet != "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return nil, fmt.Errorf("removing default sheet: %w", err)
		}
	}

	headers := []any{report.KeyLabel, "Count", report.ValueLabel}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return nil, err
	}

	row := 2
	for _, b := range report.Buckets {
		values := []any{b.Key, b.Count, b.Sum}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, err
		}
		row++
	}

	totals := []any{"Total", report.TotalCount, report.TotalSum}
	cell, _ := excelize.CoordinatesToCellName(1, row)
	if err := f.SetSheetRow(sheet, cell, &totals); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetName trims a title to what Excel accepts as a sheet name.
func sheetName(title string) string {
	out := make([]rune, 0, 31)
	for _, r := range title {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			continue
		}
		out = append(out, r)
		if len(out) == 31 {
			break
		}
	}
	if len(out) == 0 {
		return "Sheet1"
	}
	return string(out)
}
