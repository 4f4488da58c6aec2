package history

import "sync"

// Store keeps the per-user action histories in memory. Each user's slice is
// append-only and insertion order equals chronological order, which is the
// contract the metrics functions rely on.
type Store struct {
	mu     sync.RWMutex
	byUser map[string][]AnnotationAction
}

// NewStore constructs an empty history store.
func NewStore() *Store {
	return &Store{byUser: make(map[string][]AnnotationAction)}
}

// Append adds an action to its user's history.
func (s *Store) Append(action AnnotationAction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[action.UserID] = append(s.byUser[action.UserID], action)
}

// Seed replaces a user's history wholesale, used when restoring persisted
// state at startup. The slice must already be in chronological order.
func (s *Store) Seed(userID string, actions []AnnotationAction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[userID] = append([]AnnotationAction(nil), actions...)
}

// Actions returns a copy of the user's history in chronological order.
func (s *Store) Actions(userID string) []AnnotationAction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]AnnotationAction(nil), s.byUser[userID]...)
}

// All returns a copy of every user's history.
func (s *Store) All() map[string][]AnnotationAction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string][]AnnotationAction, len(s.byUser))
	for userID, actions := range s.byUser {
		result[userID] = append([]AnnotationAction(nil), actions...)
	}
	return result
}

// BackfillProcessingTime patches the most recently appended action for the
// user with the final request duration, returning the patched action id.
// Actions are created before the enclosing request's total processing time
// is known, so the duration lands here once handling completes.
func (s *Store) BackfillProcessingTime(userID string, ms int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	actions := s.byUser[userID]
	if len(actions) == 0 {
		return "", false
	}

	actions[len(actions)-1].ServerProcessingTimeMS = ms
	return actions[len(actions)-1].ActionID, true
}

// DeleteUser removes a user's history, as part of whole-user-state deletion.
func (s *Store) DeleteUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byUser, userID)
}

// TotalActions counts actions across all users.
func (s *Store) TotalActions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, actions := range s.byUser {
		total += len(actions)
	}
	return total
}

// Users lists the user ids with at least one recorded action.
func (s *Store) Users() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]string, 0, len(s.byUser))
	for userID := range s.byUser {
		users = append(users, userID)
	}
	return users
}
