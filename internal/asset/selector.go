package asset

import (
	"time"

	"github.com/wonny/b3lake/backend/internal/contracts"
)

// Select picks the row for target from engine output.
// Without an exact match it falls back to the most recent row; exact reports which case applied.
// A nil result means nothing could be selected.
func Select(rows []contracts.FeaturedRecord, target time.Time) (rec *contracts.FeaturedRecord, exact bool) {
	day := contracts.DateOnly(target)

	var latest *contracts.FeaturedRecord
	for i := range rows {
		r := &rows[i]
		if contracts.DateOnly(r.Date).Equal(day) {
			return r, true
		}
		if latest == nil || r.Date.After(latest.Date) {
			latest = r
		}
	}
	return latest, false
}
