package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"tourism_occupancy/internal/domain"
	"tourism_occupancy/internal/stats"
)

const (
	DefaultPeakMonths      = 6
	DefaultProvenanceLimit = 15
	DefaultCompareMonths   = 6
	DefaultTrendMonths     = 12
	DefaultTopMonths       = 6
	DefaultTopLimit        = 10
	DefaultKindStatsMonths = 6
	DefaultKindStatsLimit  = 10
	DefaultStatsScanLimit  = 50000
	maxAnalysisMonths      = 120
)

// StatisticsService runs the read-side rollups. Each call is one bounded scan.
type StatisticsService struct {
	repo      domain.QuestionnaireRepository
	dir       domain.EstablishmentDirectory
	opts      stats.Options
	scanLimit int
	now       func() time.Time
}

func NewStatisticsService(r domain.QuestionnaireRepository, d domain.EstablishmentDirectory, opts stats.Options, scanLimit int) *StatisticsService {
	if scanLimit <= 0 {
		scanLimit = DefaultStatsScanLimit
	}
	return &StatisticsService{repo: r, dir: d, opts: opts, scanLimit: scanLimit, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the time source. Tests only.
func (s *StatisticsService) WithClock(now func() time.Time) *StatisticsService {
	s.now = now
	return s
}

// Period names a preset reporting window measured back from now.
type Period string

const (
	PeriodQuarter  Period = "quarter"
	PeriodSemester Period = "semester"
	PeriodYear     Period = "year"
)

var periodAliases = map[string]Period{
	"":          PeriodQuarter,
	"quarter":   PeriodQuarter,
	"trimestre": PeriodQuarter,
	"semester":  PeriodSemester,
	"semestre":  PeriodSemester,
	"year":      PeriodYear,
	"año":       PeriodYear,
	"anio":      PeriodYear,
}

func ParsePeriod(s string) (Period, error) {
	if p, ok := periodAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return p, nil
	}
	return "", domain.NewValidationError(domain.Violation{
		Field: "period", Rule: "oneof", Message: "period must be quarter, semester or year",
	})
}

func (p Period) months() int {
	switch p {
	case PeriodSemester:
		return 6
	case PeriodYear:
		return 12
	}
	return 3
}

// RangeFilter selects records by kind and either an explicit [From, To]
// date range (To inclusive) or a preset period.
type RangeFilter struct {
	Kind   domain.Kind
	From   time.Time
	To     time.Time
	Period Period
}

func (s *StatisticsService) resolve(f RangeFilter) (domain.QuestionnaireFilter, error) {
	q := domain.QuestionnaireFilter{Kind: f.Kind}
	if !f.From.IsZero() && !f.To.IsZero() {
		if f.To.Before(f.From) {
			return q, domain.NewValidationError(domain.Violation{Field: "to", Rule: "after_from", Message: "to cannot precede from"})
		}
		q.From, q.To = dateOnly(f.From), dateOnly(f.To).AddDate(0, 0, 1)
		return q, nil
	}
	q.From = s.now().AddDate(0, -f.Period.months(), 0)
	return q, nil
}

func requireSuperAdmin(p domain.Principal, view string) error {
	if !p.SuperAdmin {
		return fmt.Errorf("%s: %w", view, domain.ErrForbidden)
	}
	return nil
}

func monthsOr(m, def int) (int, error) {
	switch {
	case m == 0:
		return def, nil
	case m < 0 || m > maxAnalysisMonths:
		return 0, domain.NewValidationError(domain.Violation{
			Field: "months", Rule: "range", Message: fmt.Sprintf("months must be between 1 and %d", maxAnalysisMonths),
		})
	}
	return m, nil
}

func (s *StatisticsService) scan(ctx context.Context, view string, f domain.QuestionnaireFilter) ([]domain.Questionnaire, error) {
	f.Limit = s.scanLimit
	out, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, internal(view, err)
	}
	if len(out) == s.scanLimit {
		log.Warn().Str("view", view).Int("limit", s.scanLimit).Msg("aggregation scan hit limit, older records ignored")
	}
	return out, nil
}

// KindStatistics is the basic per-kind aggregate, owner-scoped unless super-admin.
func (s *StatisticsService) KindStatistics(ctx context.Context, p domain.Principal, f ListFilter) ([]stats.KindStats, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	q := f.toQuery(0)
	if !p.SuperAdmin {
		if p.UserID == "" {
			return nil, domain.ErrUnauthorized
		}
		q.OwnerID = p.UserID
	}
	records, err := s.scan(ctx, "kind_statistics", q)
	if err != nil {
		return nil, err
	}
	return stats.KindStatistics(records), nil
}

type AdvancedStatistics struct {
	From    time.Time
	To      time.Time
	Records []domain.Questionnaire
	Summary stats.Summary
}

func (s *StatisticsService) Advanced(ctx context.Context, p domain.Principal, f RangeFilter) (AdvancedStatistics, error) {
	if err := requireSuperAdmin(p, "advanced statistics"); err != nil {
		return AdvancedStatistics{}, err
	}
	q, err := s.resolve(f)
	if err != nil {
		return AdvancedStatistics{}, err
	}
	records, err := s.scan(ctx, "advanced_statistics", q)
	if err != nil {
		return AdvancedStatistics{}, err
	}
	attachEstablishments(ctx, s.dir, records)
	return AdvancedStatistics{
		From:    q.From,
		To:      q.To,
		Records: records,
		Summary: stats.Summarize(records, s.opts),
	}, nil
}

func (s *StatisticsService) PeakPeriods(ctx context.Context, p domain.Principal, kind domain.Kind, months int) (stats.PeakReport, error) {
	if err := requireSuperAdmin(p, "peak periods"); err != nil {
		return stats.PeakReport{}, err
	}
	months, err := monthsOr(months, DefaultPeakMonths)
	if err != nil {
		return stats.PeakReport{}, err
	}
	records, err := s.scan(ctx, "peak_periods", domain.QuestionnaireFilter{Kind: kind, From: s.now().AddDate(0, -months, 0)})
	if err != nil {
		return stats.PeakReport{}, err
	}
	return stats.PeakPeriods(records, s.opts), nil
}

// ProvenanceAnalysis covers every stored record of the kind, not a window.
func (s *StatisticsService) ProvenanceAnalysis(ctx context.Context, p domain.Principal, kind domain.Kind, limit int) (stats.ProvenanceReport, error) {
	if err := requireSuperAdmin(p, "provenance analysis"); err != nil {
		return stats.ProvenanceReport{}, err
	}
	if limit <= 0 {
		limit = DefaultProvenanceLimit
	}
	records, err := s.scan(ctx, "provenance_analysis", domain.QuestionnaireFilter{Kind: kind})
	if err != nil {
		return stats.ProvenanceReport{}, err
	}
	return stats.ProvenanceBreakdown(records, limit), nil
}

func (s *StatisticsService) ComparePeriods(ctx context.Context, p domain.Principal, kind domain.Kind, months int) (stats.Comparison, error) {
	if err := requireSuperAdmin(p, "period comparison"); err != nil {
		return stats.Comparison{}, err
	}
	months, err := monthsOr(months, DefaultCompareMonths)
	if err != nil {
		return stats.Comparison{}, err
	}
	now := s.now()
	prevFrom, _ := stats.ComparisonWindows(now, months)
	// one scan covers both windows
	records, err := s.scan(ctx, "period_comparison", domain.QuestionnaireFilter{Kind: kind, From: prevFrom})
	if err != nil {
		return stats.Comparison{}, err
	}
	return stats.ComparePeriods(records, now, months), nil
}

func (s *StatisticsService) MonthlyTrends(ctx context.Context, p domain.Principal, kind domain.Kind, months int) (stats.TrendReport, error) {
	if err := requireSuperAdmin(p, "monthly trends"); err != nil {
		return stats.TrendReport{}, err
	}
	months, err := monthsOr(months, DefaultTrendMonths)
	if err != nil {
		return stats.TrendReport{}, err
	}
	records, err := s.scan(ctx, "monthly_trends", domain.QuestionnaireFilter{Kind: kind, From: s.now().AddDate(0, -months, 0)})
	if err != nil {
		return stats.TrendReport{}, err
	}
	return stats.MonthlyTrends(records, s.opts), nil
}

func (s *StatisticsService) TopEstablishments(ctx context.Context, p domain.Principal, metric stats.Metric, limit, months int) (stats.TopReport, error) {
	if err := requireSuperAdmin(p, "top establishments"); err != nil {
		return stats.TopReport{}, err
	}
	months, err := monthsOr(months, DefaultTopMonths)
	if err != nil {
		return stats.TopReport{}, err
	}
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	records, err := s.scan(ctx, "top_establishments", domain.QuestionnaireFilter{From: s.now().AddDate(0, -months, 0)})
	if err != nil {
		return stats.TopReport{}, err
	}
	attachEstablishments(ctx, s.dir, records)
	return stats.TopEstablishments(records, metric, limit, s.opts), nil
}

func (s *StatisticsService) EstablishmentsByKind(ctx context.Context, p domain.Principal, kind domain.Kind, months, limit int) (stats.KindReport, error) {
	if err := requireSuperAdmin(p, "kind statistics"); err != nil {
		return stats.KindReport{}, err
	}
	months, err := monthsOr(months, DefaultKindStatsMonths)
	if err != nil {
		return stats.KindReport{}, err
	}
	if limit <= 0 {
		limit = DefaultKindStatsLimit
	}
	records, err := s.scan(ctx, "kind_statistics", domain.QuestionnaireFilter{Kind: kind, From: s.now().AddDate(0, -months, 0)})
	if err != nil {
		return stats.KindReport{}, err
	}
	attachEstablishments(ctx, s.dir, records)
	return stats.EstablishmentsByKind(records, kind, limit, s.opts), nil
}

// Export returns the same record set as Advanced; the caller renders it.
func (s *StatisticsService) Export(ctx context.Context, p domain.Principal, f RangeFilter) (AdvancedStatistics, error) {
	if err := requireSuperAdmin(p, "export"); err != nil {
		return AdvancedStatistics{}, err
	}
	return s.Advanced(ctx, p, f)
}
