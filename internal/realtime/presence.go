package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"team_inbox/internal/domain"
	"team_inbox/pkg/logger"
)

// PresenceService tracks who is viewing or editing each conversation. State
// is process-local and ephemeral; a periodic sweep is the safety net for
// disconnect events that never arrive.
type PresenceService struct {
	mu            sync.RWMutex
	conversations map[uuid.UUID]map[uuid.UUID]*domain.PresenceUser

	ttl           time.Duration
	sweepInterval time.Duration
	stop          chan struct{}
	stopOnce      sync.Once
	now           func() time.Time
	log           logger.Logger
}

func NewPresenceService(ttl, sweepInterval time.Duration, log logger.Logger) *PresenceService {
	return &PresenceService{
		conversations: make(map[uuid.UUID]map[uuid.UUID]*domain.PresenceUser),
		ttl:           ttl,
		sweepInterval: sweepInterval,
		stop:          make(chan struct{}),
		now:           time.Now,
		log:           log,
	}
}

// UpdatePresence is a last-write-wins upsert keyed by (conversation, user).
func (s *PresenceService) UpdatePresence(conversationID, userID uuid.UUID, status domain.PresenceStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, ok := s.conversations[conversationID]
	if !ok {
		users = make(map[uuid.UUID]*domain.PresenceUser)
		s.conversations[conversationID] = users
	}

	users[userID] = &domain.PresenceUser{
		UserID:   userID,
		Status:   status,
		LastSeen: s.now(),
	}
}

func (s *PresenceService) RemovePresence(conversationID, userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, ok := s.conversations[conversationID]
	if !ok {
		return
	}
	delete(users, userID)
	if len(users) == 0 {
		delete(s.conversations, conversationID)
	}
}

// GetConversationPresence returns a snapshot copy of the current occupants.
func (s *PresenceService) GetConversationPresence(conversationID uuid.UUID) []*domain.PresenceUser {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := s.conversations[conversationID]
	snapshot := make([]*domain.PresenceUser, 0, len(users))
	for _, user := range users {
		copied := *user
		snapshot = append(snapshot, &copied)
	}
	return snapshot
}

// Start runs the TTL sweep loop until Stop is called.
func (s *PresenceService) Start() {
	go func() {
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				removed := s.sweep()
				if removed > 0 {
					s.log.Debug("Presence sweep removed stale entries", "count", removed)
				}
			}
		}
	}()
}

func (s *PresenceService) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// sweep removes entries whose lastSeen is older than the TTL, and empties
// out conversations with no remaining occupants.
func (s *PresenceService) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	removed := 0

	for conversationID, users := range s.conversations {
		for userID, user := range users {
			if user.LastSeen.Before(cutoff) {
				delete(users, userID)
				removed++
			}
		}
		if len(users) == 0 {
			delete(s.conversations, conversationID)
		}
	}

	return removed
}
