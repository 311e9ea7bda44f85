package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/limbo/habitadventure/internal/engine"
	"github.com/limbo/habitadventure/pkg/entity"
)

type RegisterRequest struct {
	Name     string `validate:"required,alphanum_underscore,min=3,max=100"`
	Password string `validate:"required,min=8,max=72"`
}

type CreateSkillRequest struct {
	Name string `validate:"required,max=100"`
	Icon string `validate:"max=100"`
}

type CreateActivityRequest struct {
	Name       string `validate:"required,max=200"`
	XP         int    `validate:"required,gt=0"`
	SkillID    string `validate:"required"`
	Repeatable bool
}

type UpdateActivityRequest struct {
	Name       string `validate:"required,max=200"`
	XP         int    `validate:"required,gt=0"`
	SkillID    string `validate:"required"`
	Repeatable bool
}

type QuestRequest struct {
	Name        string   `validate:"required,max=200"`
	Description string   `validate:"max=1000"`
	ActivityIDs []string `validate:"required,min=1"`
	Reward      string   `validate:"max=200"`
}

type CreateMilestoneRequest struct {
	Name        string `validate:"required,max=200"`
	Description string `validate:"max=1000"`
	SkillID     string `validate:"required"`
	Level       int    `validate:"required,gte=1"`
}

// AchievementStatus pairs a static badge definition with the owner's unlock
// state. Type distinguishes these from milestone rewards when a client lists
// both kinds together.
type AchievementStatus struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Type        entity.RewardType `json:"type"`
	Unlocked    bool              `json:"unlocked"`
}

type AccountServiceI interface {
	// Validates credentials, creates new account row. Returns account data with ID
	Register(ctx context.Context, req *RegisterRequest) (*entity.Account, error)
	// Compares given credentials. If ok, gives back account data with ID
	Login(ctx context.Context, name, password string) (*entity.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Account, error)
	DeleteAccount(ctx context.Context, id uuid.UUID, password string) error
}

// ProgressionServiceI is the mutation surface over one owner's state. Every
// mutating call is serialized per owner, applied in memory first, then
// persisted; a persistence failure surfaces as errorvalues.ErrPersistence
// with the in-memory result intact.
type ProgressionServiceI interface {
	Snapshot(ctx context.Context, owner string) ([]byte, error)

	CreateSkill(ctx context.Context, owner string, req *CreateSkillRequest) (*entity.Skill, error)
	UpdateSkill(ctx context.Context, owner, id string, req *CreateSkillRequest) (*entity.Skill, error)
	DeleteSkill(ctx context.Context, owner, id string) error

	CreateActivity(ctx context.Context, owner string, req *CreateActivityRequest) (*entity.Activity, error)
	UpdateActivity(ctx context.Context, owner, id string, req *UpdateActivityRequest) (*entity.Activity, error)
	DeleteActivity(ctx context.Context, owner, id string) error
	CompleteActivity(ctx context.Context, owner, id string) (*engine.CompleteActivityResult, error)
	UncompleteActivity(ctx context.Context, owner, id string) (*entity.Activity, error)

	CreateQuest(ctx context.Context, owner string, req *QuestRequest) (*entity.Quest, error)
	UpdateQuest(ctx context.Context, owner, id string, req *QuestRequest) (*entity.Quest, error)
	DeleteQuest(ctx context.Context, owner, id string) error
	ClaimQuestReward(ctx context.Context, owner, id string) (*engine.ClaimQuestResult, error)

	CreateMilestone(ctx context.Context, owner string, req *CreateMilestoneRequest) (*entity.Reward, error)
	DeleteReward(ctx context.Context, owner, id string) error
	ClaimReward(ctx context.Context, owner, id string) (*entity.Reward, error)

	Achievements(ctx context.Context, owner string) ([]AchievementStatus, error)
	SetDarkMode(ctx context.Context, owner string, enabled bool) error
	Import(ctx context.Context, owner string, raw []byte) error
	Reset(ctx context.Context, owner string) error
}
