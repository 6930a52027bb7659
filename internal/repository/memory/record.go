// Package memory holds map-backed repositories for local runs and tests.
// They follow the same ownership and filter rules as the postgres ones.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/model"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/repository"
)

type RecordRepository struct {
	kind    model.RecordKind
	mu      sync.RWMutex
	records map[uuid.UUID]model.Record
}

func NewRecordRepository(kind model.RecordKind) *RecordRepository {
	return &RecordRepository{
		kind:    kind,
		records: make(map[uuid.UUID]model.Record),
	}
}

var _ repository.RecordRepository = (*RecordRepository)(nil)

func (r *RecordRepository) Kind() model.RecordKind {
	return r.kind
}

func (r *RecordRepository) Ping(context.Context) error {
	return nil
}

func (r *RecordRepository) Create(_ context.Context, record *model.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record.Kind = r.kind
	r.records[record.ID] = clone(record)
	return nil
}

func (r *RecordRepository) Get(_ context.Context, userID, id uuid.UUID) (*model.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok || rec.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return ptr(rec), nil
}

func (r *RecordRepository) GetByID(_ context.Context, id uuid.UUID) (*model.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return ptr(rec), nil
}

func (r *RecordRepository) List(_ context.Context, userID uuid.UUID, filter model.RecordFilter) ([]*model.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*model.Record{}
	for _, rec := range r.records {
		if rec.UserID == userID && matches(&rec, filter) {
			out = append(out, ptr(rec))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *RecordRepository) Update(_ context.Context, record *model.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.records[record.ID]
	if !ok || existing.UserID != record.UserID {
		return repository.ErrNotFound
	}
	record.CreatedAt = existing.CreatedAt
	record.Kind = r.kind
	r.records[record.ID] = clone(record)
	return nil
}

func (r *RecordRepository) Delete(_ context.Context, userID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok || rec.UserID != userID {
		return repository.ErrNotFound
	}
	delete(r.records, id)
	return nil
}

// Len returns the number of stored records across all owners.
func (r *RecordRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

func matches(rec *model.Record, f model.RecordFilter) bool {
	if f.ID != nil && rec.ID != *f.ID {
		return false
	}
	if f.Category != "" && rec.Category != f.Category {
		return false
	}
	if f.MemberID != nil && (rec.MemberID == nil || *rec.MemberID != *f.MemberID) {
		return false
	}
	if len(f.Tags) > 0 && !overlaps(rec.Tags, f.Tags) {
		return false
	}
	if f.StartDate != nil && rec.Date.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && rec.Date.After(*f.EndDate) {
		return false
	}
	if f.EndBefore != nil && !rec.Date.Before(*f.EndBefore) {
		return false
	}
	return true
}

func overlaps(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

func clone(rec *model.Record) model.Record {
	c := *rec
	c.Tags = make([]string, len(rec.Tags))
	copy(c.Tags, rec.Tags)
	if rec.MemberID != nil {
		id := *rec.MemberID
		c.MemberID = &id
	}
	return c
}

func ptr(rec model.Record) *model.Record {
	c := clone(&rec)
	return &c
}
