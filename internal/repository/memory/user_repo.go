package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/FeruzyNtillah/my-e-commerce/internal/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type userRepository struct {
	mu      sync.RWMutex
	users   map[string]*domain.User
	byEmail map[string]string
	log     *logrus.Logger
	now     func() time.Time
}

func NewUserRepository(logger *logrus.Logger) domain.UserRepository {
	return &userRepository{
		users:   make(map[string]*domain.User),
		byEmail: make(map[string]string),
		log:     logger,
		now:     time.Now,
	}
}

func (r *userRepository) CreateUser(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, taken := r.byEmail[email]; taken {
		return nil, domain.ErrDuplicateEmail
	}
	stored := *user
	stored.Email = email
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	now := r.now()
	stored.CreatedAt, stored.UpdatedAt = now, now
	r.users[stored.ID] = &stored
	r.byEmail[email] = stored.ID
	r.log.Infof("Repository: User created with ID %s", stored.ID)
	out := stored
	return &out, nil
}

func (r *userRepository) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := *r.users[id]
	return &out, nil
}

func (r *userRepository) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (r *userRepository) UpdateProfile(_ context.Context, id string, update domain.ProfileUpdate) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.Phone != nil {
		u.Phone = *update.Phone
	}
	if update.Avatar != nil {
		u.Avatar = *update.Avatar
	}
	u.UpdatedAt = r.now()
	out := *u
	return &out, nil
}

func (r *userRepository) UpdatePassword(_ context.Context, id string, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = r.now()
	return nil
}

func (r *userRepository) UpdateRole(_ context.Context, id string, role domain.Role) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.Role = role
	u.UpdatedAt = r.now()
	out := *u
	return &out, nil
}

func (r *userRepository) DeleteUser(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	delete(r.byEmail, u.Email)
	delete(r.users, id)
	return nil
}

func (r *userRepository) ListUsers(_ context.Context, limit, offset int) ([]domain.User, error) {
	r.mu.RLock()
	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if offset > len(out) {
		offset = len(out)
	}
	end := len(out)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return out[offset:end], nil
}
