package engine

import (
	"math/rand"
	"strconv"
	"strings"
	"time"

	errorvalues "github.com/limbo/habitadventure/internal/error_values"
	"github.com/limbo/habitadventure/pkg/entity"
)

// Store is the single source of truth for the five collections. Cascade rules
// are enforced here, not left to callers.
type Store struct {
	state *entity.State
}

func NewStore(st *entity.State) *Store {
	if st == nil {
		st = entity.DefaultState()
	}
	if st.User == nil {
		st.User = entity.DefaultUser()
	}
	if st.Skills == nil {
		st.Skills = make(map[string]*entity.Skill)
	}
	return &Store{state: st}
}

func (s *Store) State() *entity.State { return s.state }

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// generateID builds a collision-resistant identifier from the millisecond
// timestamp in base36 plus a 5-character random suffix.
func generateID(now time.Time) string {
	var sb strings.Builder
	sb.WriteString("id_")
	sb.WriteString(strconv.FormatInt(now.UnixMilli(), 36))
	for i := 0; i < 5; i++ {
		sb.WriteByte(idAlphabet[rand.Intn(len(idAlphabet))])
	}
	return sb.String()
}

func (s *Store) SkillByID(id string) *entity.Skill {
	return s.state.Skills[id]
}

func (s *Store) ActivityByID(id string) *entity.Activity {
	for _, a := range s.state.Activities {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (s *Store) QuestByID(id string) *entity.Quest {
	for _, q := range s.state.Quests {
		if q.ID == id {
			return q
		}
	}
	return nil
}

func (s *Store) RewardByID(id string) *entity.Reward {
	for _, r := range s.state.Rewards {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (s *Store) CreateSkill(name, icon string, now time.Time) (*entity.Skill, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errorvalues.ErrEmptyName
	}
	for _, sk := range s.state.Skills {
		if strings.EqualFold(sk.Name, name) {
			return nil, errorvalues.ErrDuplicateSkillName
		}
	}
	sk := &entity.Skill{
		ID:    generateID(now),
		Name:  name,
		Icon:  icon,
		Level: 1,
	}
	s.state.Skills[sk.ID] = sk
	if _, err := GrantUserXP(s.state.User, SkillCreationXP); err != nil {
		return nil, err
	}
	return sk, nil
}

func (s *Store) UpdateSkill(id, name, icon string) (*entity.Skill, error) {
	sk := s.SkillByID(id)
	if sk == nil {
		return nil, errorvalues.ErrSkillNotFound
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errorvalues.ErrEmptyName
	}
	for _, other := range s.state.Skills {
		if other.ID != id && strings.EqualFold(other.Name, name) {
			return nil, errorvalues.ErrDuplicateSkillName
		}
	}
	sk.Name = name
	sk.Icon = icon
	return sk, nil
}

// DeleteSkill removes the skill, its dependent activities, and every stripped
// activity id from quest membership. Quests whose activity list empties out
// are removed as well, keeping the non-empty quest invariant.
func (s *Store) DeleteSkill(id string) error {
	if s.SkillByID(id) == nil {
		return errorvalues.ErrSkillNotFound
	}
	delete(s.state.Skills, id)

	kept := s.state.Activities[:0]
	for _, a := range s.state.Activities {
		if a.SkillID == id {
			s.stripActivityFromQuests(a.ID)
			continue
		}
		kept = append(kept, a)
	}
	s.state.Activities = kept
	s.dropEmptyQuests()
	return nil
}

func (s *Store) CreateActivity(name string, xp int, skillID string, repeatable bool, now time.Time) (*entity.Activity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errorvalues.ErrEmptyName
	}
	if xp <= 0 {
		return nil, errorvalues.ErrInvalidXPAmount
	}
	if s.SkillByID(skillID) == nil {
		return nil, errorvalues.ErrSkillNotFound
	}
	status := entity.ActivityNotStarted
	if repeatable {
		status = entity.ActivityRecurring
	}
	a := &entity.Activity{
		ID:          generateID(now),
		Name:        name,
		XP:          xp,
		SkillID:     skillID,
		Repeatable:  repeatable,
		Status:      status,
		LastUpdated: now,
	}
	s.state.Activities = append(s.state.Activities, a)
	if _, err := GrantUserXP(s.state.User, ActivityCreationXP); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Store) UpdateActivity(id, name string, xp int, skillID string, repeatable bool, now time.Time) (*entity.Activity, error) {
	a := s.ActivityByID(id)
	if a == nil {
		return nil, errorvalues.ErrActivityNotFound
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errorvalues.ErrEmptyName
	}
	if xp <= 0 {
		return nil, errorvalues.ErrInvalidXPAmount
	}
	if s.SkillByID(skillID) == nil {
		return nil, errorvalues.ErrSkillNotFound
	}
	a.Name = name
	a.XP = xp
	a.SkillID = skillID
	if repeatable != a.Repeatable {
		a.Repeatable = repeatable
		if repeatable {
			a.Status = entity.ActivityRecurring
		} else if a.Status == entity.ActivityRecurring {
			a.Status = entity.ActivityNotStarted
			a.CompletionCount = 0
		}
	}
	a.LastUpdated = now
	return a, nil
}

func (s *Store) DeleteActivity(id string) error {
	idx := -1
	for i, a := range s.state.Activities {
		if a.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errorvalues.ErrActivityNotFound
	}
	s.state.Activities = append(s.state.Activities[:idx], s.state.Activities[idx+1:]...)
	s.stripActivityFromQuests(id)
	s.dropEmptyQuests()
	return nil
}

func (s *Store) stripActivityFromQuests(activityID string) {
	for _, q := range s.state.Quests {
		kept := q.ActivityIDs[:0]
		for _, aid := range q.ActivityIDs {
			if aid != activityID {
				kept = append(kept, aid)
			}
		}
		q.ActivityIDs = kept
	}
}

func (s *Store) dropEmptyQuests() {
	kept := s.state.Quests[:0]
	for _, q := range s.state.Quests {
		if len(q.ActivityIDs) > 0 {
			kept = append(kept, q)
		}
	}
	s.state.Quests = kept
}

func (s *Store) CreateQuest(name, description string, activityIDs []string, reward string, now time.Time) (*entity.Quest, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errorvalues.ErrEmptyName
	}
	if len(activityIDs) == 0 {
		return nil, errorvalues.ErrEmptyQuest
	}
	for _, aid := range activityIDs {
		if s.ActivityByID(aid) == nil {
			return nil, errorvalues.ErrActivityNotFound
		}
	}
	q := &entity.Quest{
		ID:          generateID(now),
		Name:        name,
		Description: description,
		ActivityIDs: append([]string{}, activityIDs...),
		Reward:      reward,
	}
	s.state.Quests = append(s.state.Quests, q)
	return q, nil
}

func (s *Store) UpdateQuest(id, name, description string, activityIDs []string, reward string) (*entity.Quest, error) {
	q := s.QuestByID(id)
	if q == nil {
		return nil, errorvalues.ErrQuestNotFound
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errorvalues.ErrEmptyName
	}
	if len(activityIDs) == 0 {
		return nil, errorvalues.ErrEmptyQuest
	}
	for _, aid := range activityIDs {
		if s.ActivityByID(aid) == nil {
			return nil, errorvalues.ErrActivityNotFound
		}
	}
	q.Name = name
	q.Description = description
	q.ActivityIDs = append(q.ActivityIDs[:0], activityIDs...)
	q.Reward = reward
	return q, nil
}

func (s *Store) DeleteQuest(id string) error {
	idx := -1
	for i, q := range s.state.Quests {
		if q.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errorvalues.ErrQuestNotFound
	}
	s.state.Quests = append(s.state.Quests[:idx], s.state.Quests[idx+1:]...)
	return nil
}

func (s *Store) CreateMilestone(name, description, skillID string, level int, now time.Time) (*entity.Reward, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errorvalues.ErrEmptyName
	}
	if s.SkillByID(skillID) == nil {
		return nil, errorvalues.ErrSkillNotFound
	}
	if level < 1 || level > MaxSkillLevel {
		return nil, errorvalues.ErrInvalidLevel
	}
	r := &entity.Reward{
		ID:          generateID(now),
		Name:        name,
		Description: description,
		SkillID:     skillID,
		Level:       level,
		Type:        entity.RewardMilestone,
	}
	s.state.Rewards = append(s.state.Rewards, r)
	return r, nil
}

func (s *Store) DeleteReward(id string) error {
	idx := -1
	for i, r := range s.state.Rewards {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errorvalues.ErrRewardNotFound
	}
	s.state.Rewards = append(s.state.Rewards[:idx], s.state.Rewards[idx+1:]...)
	return nil
}
