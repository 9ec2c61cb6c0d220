package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/boddenberg/pos-bfa-go/internal/analytics"
	"github.com/boddenberg/pos-bfa-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ReportQuery selects the report window. Empty fields default to the UTC date and
// the current month.
type ReportQuery struct {
	Date  string
	Month string
	Year  string
}

func (q ReportQuery) window(now time.Time) (analytics.Day, analytics.Month, error) {
	day := analytics.DayOf(now.UTC())
	if v := strings.TrimSpace(q.Date); v != "" {
		d, err := analytics.ParseDay(v)
		if err != nil {
			return analytics.Day{}, analytics.Month{}, &domain.ErrValidation{Field: "date", Message: "date must be YYYY-MM-DD"}
		}
		day = d
	}

	cur := analytics.MonthOf(now)
	year, month := cur.Year, int(cur.Month)
	if v := strings.TrimSpace(q.Month); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return analytics.Day{}, analytics.Month{}, &domain.ErrValidation{Field: "month", Message: "month must be a number"}
		}
		month = n
	}
	if v := strings.TrimSpace(q.Year); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return analytics.Day{}, analytics.Month{}, &domain.ErrValidation{Field: "year", Message: "year must be a number"}
		}
		year = n
	}
	m, err := analytics.NewMonth(year, month)
	if err != nil {
		return analytics.Day{}, analytics.Month{}, &domain.ErrValidation{Field: "month", Message: err.Error()}
	}
	return day, m, nil
}

// Report aggregates the order history of the current snapshot for the
// selected window. Results are memoised per snapshot version and window.
func (s *POSService) Report(ctx context.Context, q ReportQuery) (*domain.SalesReport, error) {
	_, span := tracer.Start(ctx, "POS.Report")
	defer span.End()

	day, month, err := q.window(s.now())
	if err != nil {
		return nil, err
	}

	snap := s.snapshot.Current()
	key := fmt.Sprintf("%d|%s|%s", snap.Version, day, month)
	span.SetAttributes(attribute.String("report.key", key))

	if r, ok := s.reports.Get(key); ok {
		s.metrics.IncrCacheHit("report")
		return r, nil
	}
	s.metrics.IncrCacheMiss("report")

	start := time.Now()
	r := analytics.Report(snap.Orders, snap.Products, day, month)
	s.metrics.RecordRequestDuration("report", time.Since(start))

	s.reports.Set(key, r)
	return r, nil
}

// Metrics returns the POS metrics snapshot.
func (s *POSService) Metrics() *domain.POSMetrics {
	return s.metrics.GetPOSSnapshot()
}
