package app

import (
	"context"
	"errors"
	"time"

	"weighbridge/internal/domain"
)

// maxSummaryDays caps how far back Daily reaches.
const maxSummaryDays = 366

// SummaryService aggregates tickets into daily totals.
type SummaryService struct {
	repo domain.RecordRepository
	now  func() time.Time
	loc  *time.Location
}

// NewSummaryService creates a SummaryService backed by the given repository.
// Days are bucketed in time.Local.
func NewSummaryService(repo domain.RecordRepository) *SummaryService {
	return &SummaryService{repo: repo, now: time.Now, loc: time.Local}
}

// DayPoint is one day of traffic across the weighbridge.
type DayPoint struct {
	Day            string  `json:"day"`
	InboundCount   int     `json:"inboundCount"`
	OutboundCount  int     `json:"outboundCount"`
	InboundNetKg   float64 `json:"inboundNetKg"`
	OutboundNetKg  float64 `json:"outboundNetKg"`
	FormattedTotal string  `json:"formattedTotal"`
}

// Daily returns one point per local day for the last days days, oldest
// first, ending today.
func (s *SummaryService) Daily(ctx context.Context, days int) ([]DayPoint, error) {
	if days <= 0 {
		return nil, errors.New("days must be positive")
	}
	if days > maxSummaryDays {
		days = maxSummaryDays
	}

	today := s.now().In(s.loc)
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, s.loc).AddDate(0, 0, -(days - 1))

	points := make([]DayPoint, days)
	index := make(map[string]int, days)
	for i := range points {
		day := start.AddDate(0, 0, i).Format("2006-01-02")
		points[i].Day = day
		index[day] = i
	}

	records, err := s.repo.ListRecords(ctx)
	if err != nil {
		return nil, &OpError{Op: "summary", Err: err}
	}
	for _, r := range records {
		i, ok := index[r.EntryDate.In(s.loc).Format("2006-01-02")]
		if !ok {
			continue
		}
		switch r.FleetType {
		case domain.FleetInbound:
			points[i].InboundCount++
			points[i].InboundNetKg += r.NetWeight()
		case domain.FleetOutbound:
			points[i].OutboundCount++
			points[i].OutboundNetKg += r.NetWeight()
		}
	}
	for i := range points {
		points[i].FormattedTotal = domain.FormatWeight(points[i].InboundNetKg + points[i].OutboundNetKg)
	}
	return points, nil
}
