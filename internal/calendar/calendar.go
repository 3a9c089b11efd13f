package calendar

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/b3lake/backend/internal/contracts"
	"github.com/wonny/b3lake/backend/internal/external/brasilapi"
	"github.com/wonny/b3lake/backend/pkg/logger"
)

// HolidaySource lists national holidays by year
type HolidaySource interface {
	Holidays(ctx context.Context, year int) ([]brasilapi.Holiday, error)
}

// DateSource reports the latest date present in the store
type DateSource interface {
	MaxDate(ctx context.Context) (time.Time, error)
}

// Calendar resolves Brazilian business days
// ⭐ SSOT: 영업일 판단은 여기서만
type Calendar struct {
	holidays HolidaySource
	fallback DateSource
	logger   *logger.Logger

	mu    sync.Mutex
	years map[int]map[string]struct{}
}

// New creates a calendar. fallback may be nil.
func New(holidays HolidaySource, fallback DateSource, log *logger.Logger) *Calendar {
	return &Calendar{
		holidays: holidays,
		fallback: fallback,
		logger:   log,
		years:    make(map[int]map[string]struct{}),
	}
}

// LastBusinessDay returns the last weekday strictly before the date that is not a holiday.
// Holidays of the date's year and the previous year are consulted. When they cannot be
// loaded the latest stored date is returned instead.
func (c *Calendar) LastBusinessDay(ctx context.Context, before time.Time) (time.Time, error) {
	day := contracts.DateOnly(before)

	holidays, err := c.load(ctx, day.Year(), day.Year()-1)
	if err != nil {
		c.logger.WithError(err).Error("Failed to fetch holidays, falling back to store")
		return c.fromStore(ctx)
	}

	d := day.AddDate(0, 0, -1)
	for !IsBusinessDay(d, holidays) {
		d = d.AddDate(0, 0, -1)
	}
	return d, nil
}

// IsBusinessDay reports whether d is a weekday absent from holidays
func IsBusinessDay(d time.Time, holidays map[string]struct{}) bool {
	if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		return false
	}
	_, holiday := holidays[d.Format(contracts.DateLayout)]
	return !holiday
}

func (c *Calendar) load(ctx context.Context, years ...int) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	for _, y := range years {
		set, err := c.year(ctx, y)
		if err != nil {
			return nil, err
		}
		for k := range set {
			out[k] = struct{}{}
		}
	}
	return out, nil
}

func (c *Calendar) year(ctx context.Context, y int) (map[string]struct{}, error) {
	c.mu.Lock()
	set, ok := c.years[y]
	c.mu.Unlock()
	if ok {
		return set, nil
	}

	c.logger.WithField("year", y).Info("Fetching holidays")
	list, err := c.holidays.Holidays(ctx, y)
	if err != nil {
		return nil, err
	}

	set = make(map[string]struct{}, len(list))
	for _, h := range list {
		set[h.Date.Format(contracts.DateLayout)] = struct{}{}
	}

	c.mu.Lock()
	c.years[y] = set
	c.mu.Unlock()
	return set, nil
}

func (c *Calendar) fromStore(ctx context.Context) (time.Time, error) {
	if c.fallback == nil {
		return time.Time{}, fmt.Errorf("no business day available: holidays unavailable and no store fallback")
	}
	last, err := c.fallback.MaxDate(ctx)
	if err != nil {
		c.logger.WithError(err).Error("No fallback date available from store")
		return time.Time{}, fmt.Errorf("no business day available: %w", err)
	}
	c.logger.WithField("date", last.Format(contracts.DateLayout)).Info("Using last available date from store")
	return contracts.DateOnly(last), nil
}
