package engine

import (
	"time"

	"github.com/limbo/habitadventure/pkg/entity"
)

const dayFormat = "2006-01-02"

type StreakResult struct {
	// Counted is false when the day was already credited.
	Counted       bool
	CurrentStreak int
	BonusXP       int
}

// TickStreak advances the daily streak for one qualifying action. At most one
// transition happens per calendar day; repeated calls on the same day are
// no-ops. A gap of two or more days, a first-ever action, and a clock rolled
// back behind the recorded date all reset the streak to 1.
//
// Streak milestones grant bonus xp: every 7th day pays WeeklyStreakBonusXP,
// otherwise every 3rd day pays ShortStreakBonusXP. Only the higher applicable
// milestone fires per transition.
func TickStreak(u *entity.User, now time.Time) StreakResult {
	today := now.Format(dayFormat)
	if u.LastActivityDate == today {
		return StreakResult{CurrentStreak: u.CurrentStreak}
	}

	yesterday := now.AddDate(0, 0, -1).Format(dayFormat)
	if u.LastActivityDate == yesterday {
		u.CurrentStreak++
		if u.CurrentStreak > u.LongestStreak {
			u.LongestStreak = u.CurrentStreak
		}
	} else {
		u.CurrentStreak = 1
	}
	u.LastActivityDate = today

	res := StreakResult{Counted: true, CurrentStreak: u.CurrentStreak}
	switch {
	case u.CurrentStreak%7 == 0:
		res.BonusXP = WeeklyStreakBonusXP
	case u.CurrentStreak%3 == 0:
		res.BonusXP = ShortStreakBonusXP
	}
	return res
}
