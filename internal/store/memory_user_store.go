package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stockroomhq/stockroom/internal/models"
)

// MemoryUserStore is an in-memory implementation of UserStore for
// development and testing.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*models.User
}

// NewMemoryUserStore creates a new in-memory user store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		users: make(map[uuid.UUID]*models.User),
	}
}

// Create creates a new user.
func (s *MemoryUserStore) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == user.Email {
			return ErrEmailTaken
		}
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	s.users[user.ID] = cloneUser(user)
	return nil
}

// Get retrieves a user by ID, including archived users.
func (s *MemoryUserStore) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[id]
	if !exists {
		return nil, ErrUserNotFound
	}

	return cloneUser(user), nil
}

// GetByEmail retrieves a user by email.
func (s *MemoryUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Email == email {
			return cloneUser(user), nil
		}
	}

	return nil, ErrUserNotFound
}

// List returns a page of users ordered per params.
func (s *MemoryUserStore) List(ctx context.Context, params ListParams) (*UserPage, error) {
	return s.page(params, nil)
}

// Search returns a page of users whose email or name matches the query,
// case-insensitively.
func (s *MemoryUserStore) Search(ctx context.Context, query string, params ListParams) (*UserPage, error) {
	needle := strings.ToLower(query)
	return s.page(params, func(u *models.User) bool {
		return strings.Contains(strings.ToLower(u.Email), needle) ||
			strings.Contains(strings.ToLower(u.FirstName), needle) ||
			strings.Contains(strings.ToLower(u.LastName), needle)
	})
}

func (s *MemoryUserStore) page(params ListParams, match func(*models.User) bool) (*UserPage, error) {
	params.ApplyDefaults()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.User
	for _, user := range s.users {
		if !params.IncludeArchived && user.IsArchived() {
			continue
		}
		if match != nil && !match(user) {
			continue
		}
		matched = append(matched, cloneUser(user))
	}

	sortUsers(matched, params)

	total := int64(len(matched))
	start := params.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + params.Limit
	if end > len(matched) {
		end = len(matched)
	}

	return &UserPage{
		Records:    matched[start:end],
		Pagination: NewPagination(total, params),
	}, nil
}

// Update applies the non-nil fields of update to the user.
func (s *MemoryUserStore) Update(ctx context.Context, id uuid.UUID, update models.UserUpdate) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[id]
	if !exists {
		return nil, ErrUserNotFound
	}

	if update.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*update.Email))
		for otherID, other := range s.users {
			if otherID != id && other.Email == email {
				return nil, ErrEmailTaken
			}
		}
		user.Email = email
	}
	if update.FirstName != nil {
		user.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		user.LastName = *update.LastName
	}
	if update.Role != nil {
		user.Role = *update.Role
	}
	user.UpdatedAt = time.Now()

	return cloneUser(user), nil
}

// Archive soft-deletes the user. Archiving an already archived user is
// a no-op that still succeeds.
func (s *MemoryUserStore) Archive(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[id]
	if !exists {
		return nil, ErrUserNotFound
	}

	if user.DeletedAt == nil {
		now := time.Now()
		user.DeletedAt = &now
		user.UpdatedAt = now
	}

	return cloneUser(user), nil
}

// Delete removes the user permanently.
func (s *MemoryUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[id]; !exists {
		return ErrUserNotFound
	}

	delete(s.users, id)
	return nil
}

func sortUsers(users []*models.User, params ListParams) {
	asc := params.OrderBy == SortAsc

	sort.Slice(users, func(i, j int) bool {
		a, b := users[i], users[j]
		if !asc {
			a, b = b, a
		}
		switch params.SortBy {
		case "email":
			return a.Email < b.Email
		case "first_name":
			return a.FirstName < b.FirstName
		case "last_name":
			return a.LastName < b.LastName
		case "updated_at":
			return a.UpdatedAt.Before(b.UpdatedAt)
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	})
}

func cloneUser(user *models.User) *models.User {
	copy := *user
	if user.DeletedAt != nil {
		t := *user.DeletedAt
		copy.DeletedAt = &t
	}
	return &copy
}
