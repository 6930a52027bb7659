package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/model"
)

// ErrNotFound is returned when no row matched, including rows owned by
// another user.
var ErrNotFound = errors.New("not found")

// All repository interfaces in one file
type (
	// RecordRepository stores one kind of record. Every method except
	// GetByID is scoped to the owning user.
	RecordRepository interface {
		Kind() model.RecordKind
		Create(ctx context.Context, record *model.Record) error
		Get(ctx context.Context, userID, id uuid.UUID) (*model.Record, error)
		List(ctx context.Context, userID uuid.UUID, filter model.RecordFilter) ([]*model.Record, error)
		Update(ctx context.Context, record *model.Record) error
		Delete(ctx context.Context, userID, id uuid.UUID) error

		// GetByID ignores ownership. Only share-link redemption and the
		// issuance ownership check may use it.
		GetByID(ctx context.Context, id uuid.UUID) (*model.Record, error)
	}

	UserRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	}

	HealthChecker interface {
		Ping(ctx context.Context) error
	}
)
