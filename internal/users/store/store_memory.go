package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gatekeeper/internal/sentinel"
	"gatekeeper/internal/users/models"
	"gatekeeper/pkg/domain"
)

// Error contract shared by both stores:
//   - sentinel.ErrNotFound when the user does not exist
//   - sentinel.ErrAlreadyExists when the email is taken
//   - wrapped infrastructure errors otherwise

// InMemoryStore keeps users in process memory. Used when no DATABASE_URL is
// configured and in tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	users   map[domain.UserID]*models.User
	byEmail map[string]domain.UserID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:   make(map[domain.UserID]*models.User),
		byEmail: make(map[string]domain.UserID),
	}
}

// Create inserts a new user.
func (s *InMemoryStore) Create(_ context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[user.Email]; taken {
		return fmt.Errorf("email %s: %w", user.Email, sentinel.ErrAlreadyExists)
	}
	stored := *user
	s.users[user.ID] = &stored
	s.byEmail[user.Email] = user.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, userID domain.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[userID]; ok {
		found := *user
		return &found, nil
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if userID, ok := s.byEmail[email]; ok {
		found := *s.users[userID]
		return &found, nil
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

// List returns users ordered by creation time, then id.
func (s *InMemoryStore) List(_ context.Context, skip, limit int) ([]*models.User, error) {
	s.mu.RLock()
	all := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		found := *u
		all = append(all, &found)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID.String() < all[j].ID.String()
	})
	if skip >= len(all) {
		return []*models.User{}, nil
	}
	end := min(skip+limit, len(all))
	return all[skip:end], nil
}
