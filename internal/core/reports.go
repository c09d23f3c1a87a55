package core

import (
	"clinicstaff/internal/reports"
	"clinicstaff/pkg/domain"
	"context"
	"time"
)

var _ reports.Source = (*Service)(nil)

// Productivity builds a productivity report over a consistent snapshot.
func (s *Service) Productivity(ctx context.Context, q reports.Query) (reports.Report, error) {
	var rep reports.Report
	err := s.observeRead(ctx, "productivity_report", func(view domain.TransactionView) error {
		var err error
		rep, err = reports.Productivity(view, q, s.clock.Now())
		return err
	})
	return rep, err
}

// Summary computes the dashboard totals over a consistent snapshot.
func (s *Service) Summary(ctx context.Context, q reports.Query) (reports.Summary, error) {
	var sum reports.Summary
	err := s.observeRead(ctx, "summary_report", func(view domain.TransactionView) error {
		var err error
		sum, err = reports.Summarize(view, q, s.clock.Now())
		return err
	})
	return sum, err
}

// observeRead traces and times a read-only operation. Reads are not audited.
func (s *Service) observeRead(ctx context.Context, op string, fn func(domain.TransactionView) error) error {
	ctx, span := s.tracer.Start(ctx, op)
	start := time.Now()
	err := s.store.View(ctx, fn)
	s.metrics.Observe(ctx, op, err == nil, time.Since(start))
	span.End(err)
	if err != nil {
		s.logger.Warn("report failed", "operation", op, "error", err)
	}
	return err
}
