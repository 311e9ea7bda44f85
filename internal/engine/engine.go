package engine

import (
	"time"

	errorvalues "github.com/limbo/habitadventure/internal/error_values"
	"github.com/limbo/habitadventure/pkg/entity"
)

type CompleteActivityResult struct {
	Activity          *entity.Activity
	Skill             *entity.Skill
	XPAwarded         int
	SkillLevelsGained int
	UserLeveledUp     bool
	UserLevel         int
	Streak            StreakResult
	QuestsReady       []string
	Unlocked          []Achievement
}

// CompleteActivity runs the full progression cascade for one completion:
// activity state change, skill xp with level-up bonuses, user xp, streak
// tick, quest readiness recomputation, achievement evaluation. All of it
// happens in memory; the caller decides when to persist.
//
// Completing a non-repeatable activity twice is rejected before any state is
// touched.
func (s *Store) CompleteActivity(id string, now time.Time) (*CompleteActivityResult, error) {
	a := s.ActivityByID(id)
	if a == nil {
		return nil, errorvalues.ErrActivityNotFound
	}
	if !a.Repeatable && a.Status == entity.ActivityCompleted {
		return nil, errorvalues.ErrActivityCompleted
	}

	if a.Repeatable {
		a.CompletionCount++
		a.Status = entity.ActivityRecurring
	} else {
		a.Status = entity.ActivityCompleted
	}
	a.LastUpdated = now

	user := s.state.User
	levelBefore := user.Level
	res := &CompleteActivityResult{Activity: a}

	// A skill at the cap absorbs nothing: neither skill xp nor the base
	// user xp is credited.
	skill := s.SkillByID(a.SkillID)
	if skill != nil && skill.Level < MaxSkillLevel {
		levels, err := GrantSkillXP(skill, a.XP)
		if err != nil {
			return nil, err
		}
		if _, err := GrantUserXP(user, a.XP); err != nil {
			return nil, err
		}
		res.XPAwarded = a.XP
		res.SkillLevelsGained = levels
		res.Skill = skill
		if levels > 0 {
			if _, err := GrantUserXP(user, levels*SkillLevelUpBonusXP); err != nil {
				return nil, err
			}
			res.XPAwarded += levels * SkillLevelUpBonusXP
		}
	}

	res.Streak = TickStreak(user, now)
	if res.Streak.BonusXP > 0 {
		if _, err := GrantUserXP(user, res.Streak.BonusXP); err != nil {
			return nil, err
		}
		res.XPAwarded += res.Streak.BonusXP
	}

	res.QuestsReady = s.ReadyQuests()
	res.Unlocked = s.EvaluateAchievements(now)
	res.UserLevel = user.Level
	res.UserLeveledUp = user.Level > levelBefore
	return res, nil
}

// UncompleteActivity reverts one completion. Granted xp is not clawed back;
// only the activity's own state flips, which in turn flips any derived quest
// readiness on the next recomputation.
func (s *Store) UncompleteActivity(id string, now time.Time) (*entity.Activity, error) {
	a := s.ActivityByID(id)
	if a == nil {
		return nil, errorvalues.ErrActivityNotFound
	}
	if a.Repeatable {
		if a.CompletionCount == 0 {
			return nil, errorvalues.ErrActivityNotCompleted
		}
		a.CompletionCount--
	} else {
		if a.Status != entity.ActivityCompleted {
			return nil, errorvalues.ErrActivityNotCompleted
		}
		a.Status = entity.ActivityActive
	}
	a.LastUpdated = now
	return a, nil
}

type ClaimQuestResult struct {
	Quest         *entity.Quest
	BonusXP       int
	UserLeveledUp bool
	Unlocked      []Achievement
}

// ClaimQuestReward asserts the derived completion predicate, marks the quest
// claimed, and grants the one-time quest bonus. A second claim fails without
// granting anything.
func (s *Store) ClaimQuestReward(id string, now time.Time) (*ClaimQuestResult, error) {
	q := s.QuestByID(id)
	if q == nil {
		return nil, errorvalues.ErrQuestNotFound
	}
	if q.Completed {
		return nil, errorvalues.ErrQuestAlreadyClaimed
	}
	if !IsQuestComplete(q, s.state.Activities) {
		return nil, errorvalues.ErrQuestNotReady
	}

	q.Completed = true
	leveledUp, err := GrantUserXP(s.state.User, QuestBonusXP)
	if err != nil {
		return nil, err
	}
	return &ClaimQuestResult{
		Quest:         q,
		BonusXP:       QuestBonusXP,
		UserLeveledUp: leveledUp,
		Unlocked:      s.EvaluateAchievements(now),
	}, nil
}

// ClaimReward claims a milestone. Claimable only once the gating skill has
// reached the required level; once claimed it is immutable.
func (s *Store) ClaimReward(id string) (*entity.Reward, error) {
	r := s.RewardByID(id)
	if r == nil {
		return nil, errorvalues.ErrRewardNotFound
	}
	if r.Claimed {
		return nil, errorvalues.ErrRewardAlreadyClaimed
	}
	skill := s.SkillByID(r.SkillID)
	if skill == nil {
		return nil, errorvalues.ErrSkillNotFound
	}
	if skill.Level < r.Level {
		return nil, errorvalues.ErrRewardLocked
	}
	r.Claimed = true
	return r, nil
}
