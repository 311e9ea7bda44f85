package entity

import (
	"time"

	"github.com/google/uuid"
)

type Account struct {
	ID           uuid.UUID
	Name         string
	PasswordHash string
}

type User struct {
	Name             string   `json:"name"`
	TotalXP          int      `json:"xp"`
	Level            int      `json:"level"`
	Achievements     []string `json:"achievements"`
	Avatar           string   `json:"avatar"`
	LastActivityDate string   `json:"last_activity_date,omitempty"`
	CurrentStreak    int      `json:"current_streak"`
	LongestStreak    int      `json:"longest_streak"`
}

type Skill struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	XP    int    `json:"xp"`
	Level int    `json:"level"`
}

type ActivityStatus string

const (
	ActivityNotStarted ActivityStatus = "not_started"
	ActivityActive     ActivityStatus = "active"
	ActivityCompleted  ActivityStatus = "completed"
	ActivityRecurring  ActivityStatus = "recurring"
)

type Activity struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	XP              int            `json:"xp"`
	SkillID         string         `json:"skill_id"`
	Repeatable      bool           `json:"repeatable"`
	Status          ActivityStatus `json:"status"`
	CompletionCount int            `json:"completion_count"`
	LastUpdated     time.Time      `json:"last_updated"`
}

// Done reports whether the activity counts as completed for quest and
// achievement purposes. Repeatable activities have no terminal state, so any
// registered completion counts.
func (a *Activity) Done() bool {
	if a.Repeatable {
		return a.CompletionCount > 0
	}
	return a.Status == ActivityCompleted
}

type Quest struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	ActivityIDs []string `json:"activity_ids"`
	Reward      string   `json:"reward,omitempty"`
	Completed   bool     `json:"completed"`
}

type RewardType string

const (
	RewardAchievement RewardType = "Achievement"
	RewardMilestone   RewardType = "Milestone"
)

type Reward struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	SkillID     string     `json:"skill_id"`
	Level       int        `json:"level"`
	Type        RewardType `json:"type"`
	Claimed     bool       `json:"claimed"`
}

type Notification struct {
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// State is the full persisted document, one per owner.
type State struct {
	User                *User             `json:"user"`
	Skills              map[string]*Skill `json:"skills"`
	Activities          []*Activity       `json:"activities"`
	Quests              []*Quest          `json:"quests"`
	Rewards             []*Reward         `json:"rewards"`
	DarkMode            bool              `json:"dark_mode"`
	NotificationHistory []Notification    `json:"notification_history,omitempty"`
}

func DefaultUser() *User {
	return &User{
		Name:         "Adventurer",
		Level:        1,
		Achievements: []string{},
		Avatar:       "default-avatar.webp",
	}
}

func DefaultState() *State {
	return &State{
		User:       DefaultUser(),
		Skills:     make(map[string]*Skill),
		Activities: []*Activity{},
		Quests:     []*Quest{},
		Rewards:    []*Reward{},
	}
}
