package memory

import (
	"context"
	"sync"

	"github.com/cheng-chun-yuan/yap2win/internal/models"
)

// Store is the in-memory implementation of the storage interface. It is the
// default backend and the reference for the semantics the bot relies on:
// setting an event config clears participants, participant order is
// first-seen order, points only ever accumulate.
type Store struct {
	mu sync.RWMutex

	// points[userID][groupID]
	points map[int64]map[int64]*models.PointsEntry
	// pointsOrder[userID] keeps group insertion order for stable listings.
	pointsOrder map[int64][]int64

	listening map[int64]bool

	configs map[int64]*models.EventConfig
	// participants[groupID] in first-seen order.
	participants map[int64][]*models.Participant

	rules     map[int64]*models.VerificationRule
	verified  map[int64]bool
	addresses map[int64]string
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		points:       make(map[int64]map[int64]*models.PointsEntry),
		pointsOrder:  make(map[int64][]int64),
		listening:    make(map[int64]bool),
		configs:      make(map[int64]*models.EventConfig),
		participants: make(map[int64][]*models.Participant),
		rules:        make(map[int64]*models.VerificationRule),
		verified:     make(map[int64]bool),
		addresses:    make(map[int64]string),
	}
}

// AddPoints adds points for a user in a group, creating the entry on first
// use and refreshing the stored group name.
func (s *Store) AddPoints(ctx context.Context, userID, groupID int64, points float64, groupName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	groups, ok := s.points[userID]
	if !ok {
		groups = make(map[int64]*models.PointsEntry)
		s.points[userID] = groups
	}
	entry, ok := groups[groupID]
	if !ok {
		entry = &models.PointsEntry{UserID: userID, GroupID: groupID}
		groups[groupID] = entry
		s.pointsOrder[userID] = append(s.pointsOrder[userID], groupID)
	}
	entry.Points += points
	entry.GroupName = groupName
	return nil
}

func (s *Store) GroupPoints(ctx context.Context, userID, groupID int64) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if entry, ok := s.points[userID][groupID]; ok {
		return entry.Points, nil
	}
	return 0, nil
}

func (s *Store) UserPoints(ctx context.Context, userID int64) ([]models.PointsEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []models.PointsEntry
	for _, groupID := range s.pointsOrder[userID] {
		if entry, ok := s.points[userID][groupID]; ok {
			entries = append(entries, *entry)
		}
	}
	return entries, nil
}

func (s *Store) AddListeningGroup(ctx context.Context, groupID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listening[groupID] = true
	return nil
}

func (s *Store) RemoveListeningGroup(ctx context.Context, groupID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listening, groupID)
	return nil
}

func (s *Store) IsListeningGroup(ctx context.Context, groupID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listening[groupID], nil
}

func (s *Store) ListeningGroups(ctx context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make([]int64, 0, len(s.listening))
	for groupID := range s.listening {
		groups = append(groups, groupID)
	}
	return groups, nil
}

// SetEventConfig replaces the group's event config and clears its
// participant scoreboard.
func (s *Store) SetEventConfig(ctx context.Context, cfg models.EventConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cfg
	s.configs[cfg.GroupID] = &stored
	s.participants[cfg.GroupID] = nil
	return nil
}

func (s *Store) EventConfig(ctx context.Context, groupID int64) (*models.EventConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.configs[groupID]
	if !ok {
		return nil, nil
	}
	copied := *cfg
	return &copied, nil
}

func (s *Store) EventConfigs(ctx context.Context) ([]models.EventConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var configs []models.EventConfig
	for _, cfg := range s.configs {
		configs = append(configs, *cfg)
	}
	return configs, nil
}

func (s *Store) FinishEvent(ctx context.Context, groupID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg, ok := s.configs[groupID]; ok {
		cfg.State = models.EventStateFinished
	}
	return nil
}

func (s *Store) AddParticipantPoints(ctx context.Context, groupID, userID int64, points float64, username, firstName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.participants[groupID] {
		if p.UserID == userID {
			p.Points += points
			p.Username = username
			p.FirstName = firstName
			return nil
		}
	}
	s.participants[groupID] = append(s.participants[groupID], &models.Participant{
		GroupID:   groupID,
		UserID:    userID,
		Points:    points,
		Username:  username,
		FirstName: firstName,
	})
	return nil
}

func (s *Store) Participants(ctx context.Context, groupID int64) ([]models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	participants := make([]models.Participant, 0, len(s.participants[groupID]))
	for _, p := range s.participants[groupID] {
		participants = append(participants, *p)
	}
	return participants, nil
}

func (s *Store) SetRule(ctx context.Context, rule models.VerificationRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := rule
	s.rules[rule.GroupID] = &stored
	return nil
}

func (s *Store) Rule(ctx context.Context, groupID int64) (*models.VerificationRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, ok := s.rules[groupID]
	if !ok {
		return nil, nil
	}
	copied := *rule
	return &copied, nil
}

func (s *Store) RuleGroups(ctx context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make([]int64, 0, len(s.rules))
	for groupID := range s.rules {
		groups = append(groups, groupID)
	}
	return groups, nil
}

func (s *Store) MarkVerified(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verified[userID] = true
	return nil
}

func (s *Store) IsVerified(ctx context.Context, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.verified[userID], nil
}

func (s *Store) SetWalletAddress(ctx context.Context, userID int64, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addresses[userID] = address
	return nil
}

func (s *Store) WalletAddress(ctx context.Context, userID int64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addresses[userID], nil
}

// Initialize does nothing for the in-memory store.
func (s *Store) Initialize(ctx context.Context) error {
	return nil
}

// Close does nothing for the in-memory store.
func (s *Store) Close() error {
	return nil
}
