package engine

import (
	"time"

	"github.com/limbo/habitadventure/pkg/entity"
)

// Achievement is a static badge definition. Check is a pure predicate over a
// state snapshot and the evaluation time; it owns no ambient data.
type Achievement struct {
	ID          string
	Name        string
	Description string
	Check       func(st *entity.State, now time.Time) bool
}

// Achievements returns the static badge list. Evaluation order is declaration
// order.
func Achievements() []Achievement {
	return achievementList
}

var achievementList = []Achievement{
	{ID: "first_skill", Name: "Skill Starter", Description: "Create your first skill",
		Check: func(st *entity.State, _ time.Time) bool { return len(st.Skills) >= 1 }},
	{ID: "five_skills", Name: "Skill Collector", Description: "Create five skills",
		Check: func(st *entity.State, _ time.Time) bool { return len(st.Skills) >= 5 }},
	{ID: "ten_skills", Name: "Skill Master", Description: "Create ten skills",
		Check: func(st *entity.State, _ time.Time) bool { return len(st.Skills) >= 10 }},
	{ID: "first_activity", Name: "Go-Getter", Description: "Complete your first activity",
		Check: func(st *entity.State, _ time.Time) bool { return countDoneActivities(st) >= 1 }},
	{ID: "ten_activities", Name: "Busy Bee", Description: "Complete 10 activities",
		Check: func(st *entity.State, _ time.Time) bool { return countDoneActivities(st) >= 10 }},
	{ID: "fifty_activities", Name: "Productivity King", Description: "Complete 50 activities",
		Check: func(st *entity.State, _ time.Time) bool { return countDoneActivities(st) >= 50 }},
	{ID: "first_quest", Name: "Questor", Description: "Complete your first quest",
		Check: func(st *entity.State, _ time.Time) bool { return countCompletedQuests(st) >= 1 }},
	{ID: "five_quests", Name: "Quest Conqueror", Description: "Complete 5 quests",
		Check: func(st *entity.State, _ time.Time) bool { return countCompletedQuests(st) >= 5 }},
	{ID: "skill_level_10", Name: "Skilled Practitioner", Description: "Reach level 10 in any skill",
		Check: anySkillAtLevel(10)},
	{ID: "skill_level_20", Name: "Expert", Description: "Reach level 20 in any skill",
		Check: anySkillAtLevel(20)},
	{ID: "skill_level_max", Name: "Grand Master", Description: "Reach max level in any skill",
		Check: anySkillAtLevel(MaxSkillLevel)},
	{ID: "streak_7", Name: "Week Warrior", Description: "Maintain a 7-day streak",
		Check: func(st *entity.State, _ time.Time) bool { return st.User.CurrentStreak >= 7 }},
	{ID: "streak_30", Name: "Monthly Motivator", Description: "Maintain a 30-day streak",
		Check: func(st *entity.State, _ time.Time) bool { return st.User.CurrentStreak >= 30 }},
	{ID: "level_5", Name: "Apprentice", Description: "Reach level 5",
		Check: userAtLevel(5)},
	{ID: "level_10", Name: "Rising Star", Description: "Reach level 10",
		Check: userAtLevel(10)},
	{ID: "level_20", Name: "Habit Hero", Description: "Reach level 20",
		Check: userAtLevel(20)},
	{ID: "level_50", Name: "Habit Master", Description: "Reach level 50",
		Check: userAtLevel(50)},
	{ID: "diverse_skiller", Name: "Renaissance Person", Description: "Complete activities across 5 skills in a single day",
		Check: checkDiverseSkiller},
	{ID: "night_owl", Name: "Night Owl", Description: "Complete an activity between 12 AM and 4 AM",
		Check: completedInHourWindow(0, 4)},
	{ID: "early_bird", Name: "Early Bird", Description: "Complete an activity between 5 AM and 7 AM",
		Check: completedInHourWindow(5, 7)},
}

func countDoneActivities(st *entity.State) int {
	n := 0
	for _, a := range st.Activities {
		if a.Done() {
			n++
		}
	}
	return n
}

func countCompletedQuests(st *entity.State) int {
	n := 0
	for _, q := range st.Quests {
		if q.Completed {
			n++
		}
	}
	return n
}

func anySkillAtLevel(level int) func(*entity.State, time.Time) bool {
	return func(st *entity.State, _ time.Time) bool {
		for _, sk := range st.Skills {
			if sk.Level >= level {
				return true
			}
		}
		return false
	}
}

func userAtLevel(level int) func(*entity.State, time.Time) bool {
	return func(st *entity.State, _ time.Time) bool {
		return st.User.Level >= level
	}
}

// checkDiverseSkiller looks for completions touching 5 distinct skills within
// the last 24 hours of the evaluation time.
func checkDiverseSkiller(st *entity.State, now time.Time) bool {
	cutoff := now.Add(-24 * time.Hour)
	skillsTouched := make(map[string]struct{})
	for _, a := range st.Activities {
		if a.Done() && !a.LastUpdated.Before(cutoff) {
			skillsTouched[a.SkillID] = struct{}{}
		}
	}
	return len(skillsTouched) >= 5
}

func completedInHourWindow(fromHour, toHour int) func(*entity.State, time.Time) bool {
	return func(st *entity.State, _ time.Time) bool {
		for _, a := range st.Activities {
			if !a.Done() {
				continue
			}
			h := a.LastUpdated.Hour()
			if h >= fromHour && h < toHour {
				return true
			}
		}
		return false
	}
}

// EvaluateAchievements runs every not-yet-unlocked predicate against the
// current state and appends newly satisfied ids to the user, at most once
// each. Re-running after no state change unlocks nothing.
func (s *Store) EvaluateAchievements(now time.Time) []Achievement {
	unlockedSet := make(map[string]struct{}, len(s.state.User.Achievements))
	for _, id := range s.state.User.Achievements {
		unlockedSet[id] = struct{}{}
	}
	var unlocked []Achievement
	for _, a := range achievementList {
		if _, ok := unlockedSet[a.ID]; ok {
			continue
		}
		if a.Check(s.state, now) {
			s.state.User.Achievements = append(s.state.User.Achievements, a.ID)
			unlocked = append(unlocked, a)
		}
	}
	return unlocked
}
