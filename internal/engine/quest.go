package engine

import (
	"github.com/limbo/habitadventure/pkg/entity"
)

// IsQuestComplete reports whether every activity the quest references is in a
// completed-equivalent state. This is derived on every call, never cached:
// the stored Completed flag only records that the reward was claimed. A quest
// with an empty activity list is never complete.
func IsQuestComplete(q *entity.Quest, activities []*entity.Activity) bool {
	if len(q.ActivityIDs) == 0 {
		return false
	}
	byID := make(map[string]*entity.Activity, len(activities))
	for _, a := range activities {
		byID[a.ID] = a
	}
	for _, aid := range q.ActivityIDs {
		a := byID[aid]
		if a == nil || !a.Done() {
			return false
		}
	}
	return true
}

// ReadyQuests lists ids of quests whose activities are all complete but whose
// reward hasn't been claimed yet.
func (s *Store) ReadyQuests() []string {
	var ready []string
	for _, q := range s.state.Quests {
		if !q.Completed && IsQuestComplete(q, s.state.Activities) {
			ready = append(ready, q.ID)
		}
	}
	return ready
}
