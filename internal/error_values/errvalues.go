package errorvalues

import "errors"

var (
	ErrUserExists       = errors.New("such user already exists")
	ErrUserNotFound     = errors.New("user doesn't exists")
	ErrWrongCredentials = errors.New("wrong name or password")
	ErrInvalidToken     = errors.New("invalid token")

	ErrEmptyName          = errors.New("name must not be empty")
	ErrInvalidXPAmount    = errors.New("xp amount must be positive")
	ErrInvalidLevel       = errors.New("required level is out of range")
	ErrDuplicateSkillName = errors.New("skill with such name already exists")
	ErrSkillNotFound      = errors.New("skill doesn't exist")
	ErrActivityNotFound   = errors.New("activity doesn't exist")
	ErrQuestNotFound      = errors.New("quest doesn't exist")
	ErrRewardNotFound     = errors.New("reward doesn't exist")

	ErrActivityCompleted    = errors.New("activity is already completed")
	ErrActivityNotCompleted = errors.New("activity has no completion to undo")
	ErrEmptyQuest           = errors.New("quest must reference at least one activity")
	ErrQuestNotReady        = errors.New("quest activities are not all completed")
	ErrQuestAlreadyClaimed  = errors.New("quest reward already claimed")
	ErrRewardAlreadyClaimed = errors.New("reward already claimed")
	ErrRewardLocked         = errors.New("required skill level not reached")

	ErrStateNotFound  = errors.New("no saved state for this owner")
	ErrPersistence    = errors.New("saving state failed")
	ErrSchemaMismatch = errors.New("imported data doesn't match the expected schema")
)
