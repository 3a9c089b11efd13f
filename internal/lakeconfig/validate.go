package lakeconfig

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// ValidationError 검증 실패
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ScheduleParser parses six-field cron expressions (seconds first)
var ScheduleParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Validate checks all required constraints
func Validate(cfg *Config) error {
	if cfg.Assembler.DaysBack < 1 {
		return ValidationError{"assembler.days_back", "must be >= 1"}
	}
	if cfg.Assembler.RequiredRows < 2 {
		return ValidationError{"assembler.required_rows", "must be >= 2"}
	}
	if cfg.Engine.PlaceholderMarket == "" {
		return ValidationError{"engine.placeholder_market", "required"}
	}
	if cfg.Cache.AssetTTL < 0 {
		return ValidationError{"cache.asset_ttl", "must be >= 0"}
	}

	for field, expr := range map[string]string{
		"schedule.ingest":   cfg.Schedule.Ingest,
		"schedule.featured": cfg.Schedule.Featured,
	} {
		if expr == "" {
			return ValidationError{field, "required"}
		}
		if _, err := ScheduleParser.Parse(expr); err != nil {
			return ValidationError{field, err.Error()}
		}
	}
	if cfg.Schedule.Timeout <= 0 {
		return ValidationError{"schedule.timeout", "must be > 0"}
	}

	return nil
}
