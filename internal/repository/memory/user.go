package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/model"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/repository"
)

// UserRepository is a fixed user directory. With allowUnknown set, any id
// resolves to a nameless user, which lets local runs accept any valid token.
type UserRepository struct {
	mu           sync.RWMutex
	users        map[uuid.UUID]model.User
	allowUnknown bool
}

func NewUserRepository(allowUnknown bool, users ...model.User) *UserRepository {
	r := &UserRepository{
		users:        make(map[uuid.UUID]model.User, len(users)),
		allowUnknown: allowUnknown,
	}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

var _ repository.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Put(u model.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
}

func (r *UserRepository) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		if r.allowUnknown {
			return &model.User{ID: id}, nil
		}
		return nil, repository.ErrNotFound
	}
	return &u, nil
}
