package engine

import (
	errorvalues "github.com/limbo/habitadventure/internal/error_values"
	"github.com/limbo/habitadventure/pkg/entity"
)

const (
	// XPPerLevel is the width of every level band, for the user and for
	// each skill alike.
	XPPerLevel = 100

	// MaxSkillLevel is the skill cap. At the cap a skill's xp is pinned at
	// XPPerLevel and further grants are discarded.
	MaxSkillLevel = 50

	// SkillLevelUpBonusXP is granted to the user for every skill level
	// gained.
	SkillLevelUpBonusXP = 20

	// QuestBonusXP is granted once when a quest reward is claimed.
	QuestBonusXP = 50

	// SkillCreationXP and ActivityCreationXP are granted to the user for
	// setting up a new skill or activity.
	SkillCreationXP    = 10
	ActivityCreationXP = 5

	WeeklyStreakBonusXP = 50
	ShortStreakBonusXP  = 20
)

// LevelForXP maps accumulated user xp to a level. A fresh user with 0 xp is
// level 1.
func LevelForXP(totalXP int) int {
	if totalXP < 0 {
		return 1
	}
	return totalXP/XPPerLevel + 1
}

// XPForNextLevel returns the total xp threshold at which the given level is
// left behind.
func XPForNextLevel(level int) int {
	return level * XPPerLevel
}

// GrantUserXP adds xp to the user and recomputes the level. It reports
// whether the user leveled up; notifying is the caller's business.
func GrantUserXP(u *entity.User, amount int) (bool, error) {
	if amount <= 0 {
		return false, errorvalues.ErrInvalidXPAmount
	}
	before := u.Level
	u.TotalXP += amount
	u.Level = LevelForXP(u.TotalXP)
	return u.Level > before, nil
}

// GrantSkillXP adds xp to a skill, carrying overflow into level-ups until the
// cap. At MaxSkillLevel the xp is pinned at XPPerLevel and the excess is
// discarded, not banked. Returns the count of levels gained by this call.
func GrantSkillXP(s *entity.Skill, amount int) (int, error) {
	if amount <= 0 {
		return 0, errorvalues.ErrInvalidXPAmount
	}
	if s.Level >= MaxSkillLevel {
		s.XP = XPPerLevel
		return 0, nil
	}
	gained := 0
	s.XP += amount
	for s.XP >= XPPerLevel && s.Level < MaxSkillLevel {
		s.Level++
		s.XP -= XPPerLevel
		gained++
	}
	if s.Level == MaxSkillLevel {
		s.XP = XPPerLevel
	}
	return gained, nil
}
