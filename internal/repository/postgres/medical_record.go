package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/model"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/repository"
)

type recordRepository struct {
	BaseRepository
	kind  model.RecordKind
	table string
}

// NewRecordRepository stores records of one kind in the table named after it.
func NewRecordRepository(base BaseRepository, kind model.RecordKind) repository.RecordRepository {
	return &recordRepository{
		BaseRepository: base,
		kind:           kind,
		table:          kind.Collection(),
	}
}

func (r *recordRepository) Kind() model.RecordKind {
	return r.kind
}

func (r *recordRepository) op(name string) string {
	return r.table + "." + name
}

func (r *recordRepository) Create(ctx context.Context, record *model.Record) (err error) {
	defer func(start time.Time) { r.observe(r.op("create"), start, err) }(time.Now())

	query := fmt.Sprintf(`
		INSERT INTO %s (
			id, user_id, member_id, title, category, tags, doctor,
			description, date, file_url, created_at, updated_at
		) VALUES (
			:id, :user_id, :member_id, :title, :category, :tags, :doctor,
			:description, :date, :file_url, :created_at, :updated_at
		)`, r.table)

	if _, err = r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("failed to create %s: %w", r.kind, err)
	}
	record.Kind = r.kind
	return nil
}

func (r *recordRepository) Get(ctx context.Context, userID, id uuid.UUID) (*model.Record, error) {
	return r.getOne(ctx, "get", ownedBy(r.table, userID).withID(id))
}

func (r *recordRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Record, error) {
	return r.getOne(ctx, "get_by_id", anyOwner(r.table).withID(id))
}

func (r *recordRepository) getOne(ctx context.Context, name string, q *recordQuery) (rec *model.Record, err error) {
	defer func(start time.Time) { r.observe(r.op(name), start, err) }(time.Now())

	query, args := q.selectOneSQL()
	var record model.Record
	if err = r.db.GetContext(ctx, &record, query, args...); err != nil {
		if err = notFound(err); err == repository.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get %s: %w", r.kind, err)
	}
	record.Kind = r.kind
	return &record, nil
}

func (r *recordRepository) List(ctx context.Context, userID uuid.UUID, filter model.RecordFilter) (records []*model.Record, err error) {
	defer func(start time.Time) { r.observe(r.op("list"), start, err) }(time.Now())

	query, args := ownedBy(r.table, userID).filter(filter).selectSQL()
	records = []*model.Record{}
	if err = r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", r.table, err)
	}
	for _, rec := range records {
		rec.Kind = r.kind
	}
	return records, nil
}

func (r *recordRepository) Update(ctx context.Context, record *model.Record) (err error) {
	defer func(start time.Time) { r.observe(r.op("update"), start, err) }(time.Now())

	query := fmt.Sprintf(`
		UPDATE %s SET
			member_id = :member_id,
			title = :title,
			category = :category,
			tags = :tags,
			doctor = :doctor,
			description = :description,
			date = :date,
			file_url = :file_url,
			updated_at = :updated_at
		WHERE user_id = :user_id AND id = :id`, r.table)

	res, err := r.db.NamedExecContext(ctx, query, record)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", r.kind, err)
	}
	return checkAffected(res)
}

func (r *recordRepository) Delete(ctx context.Context, userID, id uuid.UUID) (err error) {
	defer func(start time.Time) { r.observe(r.op("delete"), start, err) }(time.Now())

	query, args := ownedBy(r.table, userID).withID(id).deleteSQL()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", r.kind, err)
	}
	return checkAffected(res)
}
