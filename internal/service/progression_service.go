package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/limbo/habitadventure/internal/engine"
	errorvalues "github.com/limbo/habitadventure/internal/error_values"
	"github.com/limbo/habitadventure/internal/repository"
	"github.com/limbo/habitadventure/pkg/entity"
)

const notificationHistoryCap = 50

// session holds one owner's live state. The mutex serializes mutations so two
// rapid requests can't interleave half-applied cascades.
type session struct {
	mu    sync.Mutex
	store *engine.Store
}

// ProgressionService orchestrates the progression engine over per-owner state
// documents. Mutations follow a unit-of-work shape: the engine applies the
// change in memory, then the service persists. When persisting fails the
// in-memory change stands and the call reports errorvalues.ErrPersistence.
type ProgressionService struct {
	states repository.StateRepositoryI
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

func NewProgressionService(statesRepo repository.StateRepositoryI) *ProgressionService {
	if statesRepo == nil {
		log.Fatal("provided nil statesRepo")
	}
	return &ProgressionService{
		states:   statesRepo,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// NewProgressionServiceWithClock is for tests that need a deterministic clock.
func NewProgressionServiceWithClock(statesRepo repository.StateRepositoryI, now func() time.Time) *ProgressionService {
	ps := NewProgressionService(statesRepo)
	ps.now = now
	return ps
}

func (ps *ProgressionService) session(ctx context.Context, owner string) (*session, error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if sess, ok := ps.sessions[owner]; ok {
		return sess, nil
	}
	st, err := ps.states.Load(ctx, owner)
	if err != nil {
		if !errors.Is(err, errorvalues.ErrStateNotFound) {
			return nil, errors.New("repository loading error: " + err.Error())
		}
		st = entity.DefaultState()
	}
	sess := &session{store: engine.NewStore(st)}
	ps.sessions[owner] = sess
	return sess, nil
}

// persist flushes the owner's document. Failures are logged and reported but
// never roll back what already happened in memory.
func (ps *ProgressionService) persist(ctx context.Context, owner string, sess *session) error {
	if err := ps.states.Save(ctx, owner, sess.store.State()); err != nil {
		slog.Error("persisting state failed", slog.String("owner", owner), slog.String("error", err.Error()))
		return errorvalues.ErrPersistence
	}
	return nil
}

func (ps *ProgressionService) notify(st *entity.State, now time.Time, kind, format string, args ...any) {
	st.NotificationHistory = append(st.NotificationHistory, entity.Notification{
		Message:   fmt.Sprintf(format, args...),
		Type:      kind,
		Timestamp: now,
	})
	if over := len(st.NotificationHistory) - notificationHistoryCap; over > 0 {
		st.NotificationHistory = st.NotificationHistory[over:]
	}
}

func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	if validationError, ok := err.(validator.ValidationErrors); ok {
		err = errors.New("validation error: ")
		for _, fieldErr := range validationError {
			err = errors.Join(err, fieldErr)
		}
		return err
	}
	return errors.New("validation unexpected error: " + err.Error())
}

// Snapshot serializes the owner's full state under the session lock. Used for
// both the state endpoint and export.
func (ps *ProgressionService) Snapshot(ctx context.Context, owner string) ([]byte, error) {
	sess, err := ps.session(ctx, owner)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	raw, err := sonic.Marshal(sess.store.State())
	if err != nil {
		return nil, errors.New("marshalling state error: " + err.Error())
	}
	return raw, nil
}

func (ps *ProgressionService) CreateSkill(ctx context.Context, owner string, req *CreateSkillRequest) (*entity.Skill, error) {
	if err := validateRequest(*req); err != nil {
		return nil, err
	}
	sess, err := ps.session(ctx, owner)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	now := ps.now()
	sk, err := sess.store.CreateSkill(req.Name, req.Icon, now)
	if err != nil {
		return nil, err
	}
	for _, a := range sess.store.EvaluateAchievements(now) {
		ps.notify(sess.store.State(), now, "achievement", "Achievement Unlocked: %s", a.Name)
	}
	return sk, ps.persist(ctx, owner, sess)
}

func (ps *ProgressionService) UpdateSkill(ctx context.Context, owner, id string, req *CreateSkillRequest) (*entity.Skill, error) {
	if err := validateRequest(*req); err != nil {
		return nil, err
	}
	sess, err := ps.session(ctx, owner)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sk, err := sess.store.UpdateSkill(id, req.Name, req.Icon)
	if err != nil {
		return nil, err
	}
	return sk, ps.persist(ctx, owner, sess)
}

func (ps *ProgressionService) DeleteSkill(ctx context.Context, owner, id string) error {
	sess, err := ps.session(ctx, owner)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.store.DeleteSkill(id); err != nil {
		return err
	}
	return ps.persist(ctx, owner, sess)
}

func (ps *ProgressionService) CreateActivity(ctx context.Context, owner string, req *CreateActivityRequest) (*entity.Activity, error) {
	if err := validateRequest(*req); err != nil {
		return nil, err
	}
	sess, err := ps.session(ctx, owner)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	now := ps.now()
	a, err := sess.store.CreateActivity(req.Name, req.XP, req.SkillID, req.Repeatable, now)
	if err != nil {
		return nil, err
	}
	for _, unlocked := range sess.store.EvaluateAchievements(now) {
		ps.notify(sess.store.State(), now, "achievement", "Achievement Unlocked: %s", unlocked.Name)
	}
	return a, ps.persist(ctx, owner, sess)
}

func (ps *ProgressionService) UpdateActivity(ctx context.Context, owner, id string, req *UpdateActivityRequest) (*entity.Activity, error) {
	if err := validateRequest(*req); err != nil {
		return nil, err
	}
	sess, err := ps.session(ctx, owner)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	a, err := sess.store.UpdateActivity(id, req.Name, req.XP, req.SkillID, req.Repeatable, ps.now())
	if err != nil {
		return nil, err
	}
	return a, ps.persist(ctx, owner, sess)
}

func (ps *ProgressionService) DeleteActivity(ctx context.Context, owner, id string) error {
	sess, err := ps.session(ctx, owner)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.store.DeleteActivity(id); err != nil {
		return err
	}
	return ps.persist(ctx, owner, sess)
}

func (ps *ProgressionService) CompleteActivity(ctx context.Context, owner, id string) (*engine.CompleteActivityResult, error) {
	sess, err := ps.session(ctx, owner)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	now := ps.now()
	res, err := sess.store.CompleteActivity(id, now)
	if err != nil {
		return nil, err
	}
	st := sess.store.State()
	if res.SkillLevelsGained > 0 && res.Skill != nil {
		ps.notify(st, now, "levelup", "You've leveled up %s to level %d!", res.Skill.Name, res.Skill.Level)
	}
	if res.UserLeveledUp {
		ps.notify(st, now, "levelup", "You've reached level %d!", res.UserLevel)
	}
	if res.Streak.BonusXP > 0 {
		ps.notify(st, now, "streak", "You've maintained a %d-day streak! Bonus %d XP awarded!", res.Streak.CurrentStreak, res.Streak.BonusXP)
	}
	for _, qid := range res.QuestsReady {
		if q := sess.store.QuestByID(qid); q != nil {
			ps.notify(st, now, "quest", "All activities for the quest %q are completed! Claim your reward.", q.Name)
		}
	}
	for _, a := range res.Unlocked {
		ps.notify(st, now, "achievement", "Achievement Unlocked: %s", a.Name)
	}
	return res, ps.persist(ctx, owner, sess)
}

func (ps *ProgressionService) UncompleteActivity(ctx context.Context, owner, id string) (*entity.Activity, error) {
	sess, err := ps.session(ctx, owner)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	a, err := sess.store.UncompleteActivity(id, ps.now())
	if err != nil {
		return nil, err
	}
	return a, ps.persist(ctx, owner, sess)
}

func (ps *ProgressionService) CreateQuest(ctx context.Context, owner string, req *QuestRequest) (*entity.Quest, error) {
	if err := validateRequest(*req); err != nil {
		return nil, err
	}
	sess, err := ps.session(ctx, owner)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	q, err := sess.store.CreateQuest(req.Name, req.Description, req.ActivityIDs, req.Reward, ps.now())
	if err != nil {
		return nil, err
	}
	return q, ps.persist(ctx, owner, sess)
}

func (ps *ProgressionService) UpdateQuest(ctx context.Context, owner, id string, req *QuestRequest) (*entity.Quest, error) {
	if err := validateRequest(*req); err != nil {
		return nil, err
	}
	sess, err := ps.session(ctx, owner)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	q, err := sess.store.UpdateQuest(id, req.Name, req.Description, req.ActivityIDs, req.Reward)
	if err != nil {
		return nil, err
	}
	return q, ps.persist(ctx, owner, sess)
}

func (ps *ProgressionService) DeleteQuest(ctx context.Context, owner, id string) error {
	sess, err := ps.session(ctx, owner)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.store.DeleteQuest(id); err != nil {
		return err
	}
	return ps.persist(ctx, owner, sess)
}

func (ps *ProgressionService) ClaimQuestReward(ctx context.Context, owner, id string) (*engine.ClaimQuestResult, error) {
	sess, err := ps.session(ctx, owner)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	now := ps.now()
	res, err := sess.store.ClaimQuestReward(id, now)
	if err != nil {
		return nil, err
	}
	st := sess.store.State()
	if res.Quest.Reward != "" {
		ps.notify(st, now, "quest", "You've completed the quest %q and earned the reward: %s", res.Quest.Name, res.Quest.Reward)
	} else {
		ps.notify(st, now, "quest", "You've completed the quest %q", res.Quest.Name)
	}
	for _, a := range res.Unlocked {
		ps.notify(st, now, "achievement", "Achievement Unlocked: %s", a.Name)
	}
	return res, ps.persist(ctx, owner, sess)
}

func (ps *ProgressionService) CreateMilestone(ctx context.Context, owner string, req *CreateMilestoneRequest) (*entity.Reward, error) {
	if err := validateRequest(*req); err != nil {
		return nil, err
	}
	sess, err := ps.session(ctx, owner)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	r, err := sess.store.CreateMilestone(req.Name, req.Description, req.SkillID, req.Level, ps.now())
	if err != nil {
		return nil, err
	}
	return r, ps.persist(ctx, owner, sess)
}

func (ps *ProgressionService) DeleteReward(ctx context.Context, owner, id string) error {
	sess, err := ps.session(ctx, owner)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.store.DeleteReward(id); err != nil {
		return err
	}
	return ps.persist(ctx, owner, sess)
}

func (ps *ProgressionService) ClaimReward(ctx context.Context, owner, id string) (*entity.Reward, error) {
	sess, err := ps.session(ctx, owner)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	r, err := sess.store.ClaimReward(id)
	if err != nil {
		return nil, err
	}
	ps.notify(sess.store.State(), ps.now(), "reward", "You've claimed the reward: %s", r.Name)
	return r, ps.persist(ctx, owner, sess)
}

func (ps *ProgressionService) Achievements(ctx context.Context, owner string) ([]AchievementStatus, error) {
	sess, err := ps.session(ctx, owner)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	unlocked := make(map[string]struct{})
	for _, id := range sess.store.State().User.Achievements {
		unlocked[id] = struct{}{}
	}
	defs := engine.Achievements()
	statuses := make([]AchievementStatus, 0, len(defs))
	for _, def := range defs {
		_, ok := unlocked[def.ID]
		statuses = append(statuses, AchievementStatus{
			ID:          def.ID,
			Name:        def.Name,
			Description: def.Description,
			Type:        entity.RewardAchievement,
			Unlocked:    ok,
		})
	}
	return statuses, nil
}

func (ps *ProgressionService) SetDarkMode(ctx context.Context, owner string, enabled bool) error {
	sess, err := ps.session(ctx, owner)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.store.State().DarkMode = enabled
	return ps.persist(ctx, owner, sess)
}

// Import replaces the owner's entire state with the given document. Unknown
// fields or a missing user block fail the whole import; nothing is partially
// applied.
func (ps *ProgressionService) Import(ctx context.Context, owner string, raw []byte) error {
	var st entity.State
	dec := sonic.ConfigDefault.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&st); err != nil {
		return errorvalues.ErrSchemaMismatch
	}
	if st.User == nil || st.Skills == nil || st.Activities == nil || st.Quests == nil || st.Rewards == nil {
		return errorvalues.ErrSchemaMismatch
	}
	sess, err := ps.session(ctx, owner)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	*sess.store = *engine.NewStore(&st)
	return ps.persist(ctx, owner, sess)
}

func (ps *ProgressionService) Reset(ctx context.Context, owner string) error {
	sess, err := ps.session(ctx, owner)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	*sess.store = *engine.NewStore(entity.DefaultState())
	return ps.persist(ctx, owner, sess)
}
