package nba

import (
	"fmt"
	"strconv"
	"time"

	"github.com/umq7573/streaky-shooter/internal/cache"
)

// seasonRolloverMonth is when a concluded season is treated as final:
// the finals end in June, so from July onward the season cannot change.
const seasonRolloverMonth = time.July

// CurrentSeason returns the season string ("2025-26") in progress or most
// recently concluded at the given instant. Seasons start in October; before
// then the prior start year applies.
func CurrentSeason(now time.Time) string {
	start := now.Year()
	if now.Month() < time.October {
		start--
	}
	return FormatSeason(start)
}

// FormatSeason renders a start year as the API's season string.
func FormatSeason(startYear int) string {
	return fmt.Sprintf("%d-%02d", startYear, (startYear+1)%100)
}

// SeasonContext classifies a season string for the cache's TTL policy:
// completed once July 1 after its end year has passed, current otherwise.
// Strings that do not look like a season get no season context.
func SeasonContext(season string, now time.Time) cache.SeasonContext {
	startYear, ok := parseSeason(season)
	if !ok {
		return cache.ContextNone
	}
	boundary := time.Date(startYear+1, seasonRolloverMonth, 1, 0, 0, 0, 0, time.UTC)
	if now.Before(boundary) {
		return cache.ContextCurrent
	}
	return cache.ContextCompleted
}

// parseSeason extracts the start year from "YYYY-YY".
func parseSeason(season string) (int, bool) {
	if len(season) != 7 || season[4] != '-' {
		return 0, false
	}
	start, err := strconv.Atoi(season[:4])
	if err != nil {
		return 0, false
	}
	suffix, err := strconv.Atoi(season[5:])
	if err != nil || (start+1)%100 != suffix {
		return 0, false
	}
	return start, true
}
