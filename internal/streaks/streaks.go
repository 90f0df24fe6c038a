// Package streaks updates session and daily-streak counters after a review.
package streaks

import (
	"github.com/example/studyquest/internal/calendar"
	"github.com/example/studyquest/pkg/models"
)

// IsNewSession reports whether a review today opens a new study session,
// i.e. nothing has been recorded for the profile yet today.
func IsNewSession(stats models.ProfileStats, today string) bool {
	return stats.LastSessionDate == nil || *stats.LastSessionDate != today
}

// Update returns the stats after one review recorded on day today.
// It must be called once per review, with isNewSession computed before any update.
func Update(prev models.ProfileStats, isNewSession bool, today string) models.ProfileStats {
	next := prev
	next.TotalCardsStudied++
	if isNewSession {
		next.TotalSessions++
	}

	gap := -1
	if prev.LastSessionDate != nil {
		if days, err := calendar.DaysBetween(*prev.LastSessionDate, today); err == nil {
			gap = days
		}
	}

	switch {
	case gap == 0:
		// Same day, streak unchanged
		if next.CurrentStreak == 0 {
			next.CurrentStreak = 1
		}
	case gap == 1:
		next.CurrentStreak++
	default:
		next.CurrentStreak = 1
	}

	if next.CurrentStreak > next.LongestStreak {
		next.LongestStreak = next.CurrentStreak
	}
	day := today
	next.LastSessionDate = &day

	return next
}
