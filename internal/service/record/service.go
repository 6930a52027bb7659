package record

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/model"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/repository"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/storage"
	apperrors "github.com/ShubhamPrakash26/Prescription-Tracker-Backend/pkg/errors"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/pkg/messaging"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/pkg/metrics"
)

const (
	EventCreated = "record.created"
	EventUpdated = "record.updated"
	EventDeleted = "record.deleted"

	memberAll = "all"
)

// Upload is a file attached to a create or update request.
type Upload struct {
	Name string
	Size int64
	Body io.Reader
}

// Service implements record CRUD for one record kind.
type Service struct {
	repo      repository.RecordRepository
	uploader  storage.Uploader
	broker    messaging.Broker
	metrics   *metrics.Metrics
	maxUpload int64
	now       func() time.Time
}

// NewService builds a record service. uploader may be nil, in which case
// requests carrying a file are refused.
func NewService(repo repository.RecordRepository, uploader storage.Uploader, broker messaging.Broker, m *metrics.Metrics, maxUpload int64) *Service {
	if broker == nil {
		broker = messaging.NopBroker{}
	}
	if maxUpload <= 0 {
		maxUpload = storage.MaxFileSize
	}
	return &Service{
		repo:      repo,
		uploader:  uploader,
		broker:    broker,
		metrics:   m,
		maxUpload: maxUpload,
		now:       time.Now,
	}
}

func (s *Service) Kind() model.RecordKind {
	return s.repo.Kind()
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, req model.RecordRequest, file *Upload) (rec *model.Record, err error) {
	defer func() { s.count("create", err) }()

	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Date) == "" {
		return nil, apperrors.NewBadRequest("Title and date are required", nil)
	}
	date, _, err := model.ParseDate(req.Date)
	if err != nil {
		return nil, apperrors.NewBadRequest("Invalid date", err)
	}
	memberID, err := parseMemberID(req.MemberID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	rec = &model.Record{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Kind:        s.Kind(),
		UserID:      userID,
		MemberID:    memberID,
		Title:       strings.TrimSpace(req.Title),
		Category:    strings.TrimSpace(req.Category),
		Tags:        model.SplitTags(req.Tags),
		Doctor:      strings.TrimSpace(req.Doctor),
		Description: req.Description,
		Date:        date,
	}

	if file != nil {
		if rec.FileURL, err = s.upload(ctx, file); err != nil {
			return nil, err
		}
	}

	if err = s.repo.Create(ctx, rec); err != nil {
		s.logOrphan(rec, rec.FileURL, err)
		return nil, fmt.Errorf("failed to create %s: %w", s.Kind(), err)
	}

	s.publish(ctx, EventCreated, rec)
	return rec, nil
}

// List returns the caller's records matching q, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, q model.ListRecordsQuery) ([]*model.Record, error) {
	filter, err := ParseFilter(q)
	if err != nil {
		return nil, err
	}

	records, err := s.repo.List(ctx, userID, filter)
	s.count("list", err)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.Kind().Collection(), err)
	}
	return records, nil
}

func (s *Service) Get(ctx context.Context, userID uuid.UUID, id string) (*model.Record, error) {
	recordID, err := uuid.Parse(id)
	if err != nil {
		return nil, s.notFound(err)
	}

	rec, err := s.repo.Get(ctx, userID, recordID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, s.notFound(err)
		}
		return nil, fmt.Errorf("failed to get %s: %w", s.Kind(), err)
	}
	return rec, nil
}

// Update merges the non-empty fields of req into the stored record. A new
// file replaces the stored file reference.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, id string, req model.RecordRequest, file *Upload) (rec *model.Record, err error) {
	defer func() { s.count("update", err) }()

	rec, err = s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if v := strings.TrimSpace(req.Title); v != "" {
		rec.Title = v
	}
	if v := strings.TrimSpace(req.Category); v != "" {
		rec.Category = v
	}
	if v := strings.TrimSpace(req.Doctor); v != "" {
		rec.Doctor = v
	}
	if req.Description != "" {
		rec.Description = req.Description
	}
	if strings.TrimSpace(req.Tags) != "" {
		rec.Tags = model.SplitTags(req.Tags)
	}
	if strings.TrimSpace(req.Date) != "" {
		date, _, err := model.ParseDate(req.Date)
		if err != nil {
			return nil, apperrors.NewBadRequest("Invalid date", err)
		}
		rec.Date = date
	}
	if strings.TrimSpace(req.MemberID) != "" {
		if rec.MemberID, err = parseMemberID(req.MemberID); err != nil {
			return nil, err
		}
	}

	var uploaded string
	if file != nil {
		if uploaded, err = s.upload(ctx, file); err != nil {
			return nil, err
		}
		rec.FileURL = uploaded
	}
	rec.UpdatedAt = s.now().UTC()

	if err = s.repo.Update(ctx, rec); err != nil {
		s.logOrphan(rec, uploaded, err)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, s.notFound(err)
		}
		return nil, fmt.Errorf("failed to update %s: %w", s.Kind(), err)
	}

	s.publish(ctx, EventUpdated, rec)
	return rec, nil
}

func (s *Service) Delete(ctx context.Context, userID uuid.UUID, id string) (err error) {
	defer func() { s.count("delete", err) }()

	recordID, err := uuid.Parse(id)
	if err != nil {
		return s.notFound(err)
	}

	if err = s.repo.Delete(ctx, userID, recordID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return s.notFound(err)
		}
		return fmt.Errorf("failed to delete %s: %w", s.Kind(), err)
	}

	s.publish(ctx, EventDeleted, &model.Record{Base: model.Base{ID: recordID}, UserID: userID})
	return nil
}

// FileURL returns the stored file reference of an owned record.
func (s *Service) FileURL(ctx context.Context, userID uuid.UUID, id string) (string, error) {
	rec, err := s.Get(ctx, userID, id)
	if err != nil {
		return "", err
	}
	if rec.FileURL == "" {
		return "", apperrors.NewNotFound("File not found", nil)
	}
	return rec.FileURL, nil
}

func (s *Service) upload(ctx context.Context, file *Upload) (string, error) {
	kind := string(s.Kind())

	switch err := storage.CheckFile(file.Name, file.Size, s.maxUpload); {
	case errors.Is(err, storage.ErrFileTooLarge):
		s.metrics.FileUploads.WithLabelValues(kind, "rejected").Inc()
		return "", s.FileTooLarge(err)
	case errors.Is(err, storage.ErrUnsupportedFormat):
		s.metrics.FileUploads.WithLabelValues(kind, "rejected").Inc()
		return "", apperrors.NewBadRequest(
			"Unsupported file format. Supported formats: "+strings.Join(storage.AllowedExtensions, ", "), err)
	}
	if s.uploader == nil {
		return "", apperrors.NewUnavailable("File storage is not configured", nil)
	}

	object := storage.ObjectName(kind, file.Name, s.now())
	url, err := s.uploader.Upload(ctx, object, storage.ContentType(file.Name), file.Body)
	s.metrics.FileUploads.WithLabelValues(kind, metrics.Status(err)).Inc()
	if err != nil {
		return "", fmt.Errorf("failed to upload %s file: %w", kind, err)
	}
	s.metrics.FileUploadBytes.WithLabelValues(kind).Observe(float64(file.Size))
	return url, nil
}

// logOrphan names a stored file whose record write failed. Nothing
// references the object afterwards, so it has to be removed by hand.
func (s *Service) logOrphan(rec *model.Record, fileURL string, err error) {
	if fileURL == "" {
		return
	}
	log.Warn().
		Err(err).
		Str("kind", string(s.Kind())).
		Str("record_id", rec.ID.String()).
		Str("file_url", fileURL).
		Msg("stored file is orphaned")
}

// FileTooLarge is the client error for an upload over the size limit.
func (s *Service) FileTooLarge(err error) error {
	return apperrors.NewBadRequest(fmt.Sprintf("File size is too large. Maximum %dMB allowed.", s.maxUpload>>20), err)
}

func (s *Service) publish(ctx context.Context, eventType string, rec *model.Record) {
	payload := model.RecordEvent{Kind: s.Kind(), RecordID: rec.ID, UserID: rec.UserID}
	err := s.broker.Publish(ctx, messaging.Channel, messaging.NewMessage(eventType, payload))
	s.metrics.EventsPublished.WithLabelValues(eventType, metrics.Status(err)).Inc()
	if err != nil {
		log.Warn().Err(err).Str("event", eventType).Str("record_id", rec.ID.String()).Msg("failed to publish event")
	}
}

func (s *Service) count(operation string, err error) {
	status := metrics.Status(err)
	if appErr, ok := apperrors.As(err); ok && appErr.Code != apperrors.ErrInternal {
		status = "rejected"
	}
	s.metrics.RecordOperations.WithLabelValues(string(s.Kind()), operation, status).Inc()
}

func (s *Service) notFound(err error) error {
	return apperrors.NewNotFound(s.Kind().Title()+" not found", err)
}

func parseMemberID(raw string) (*uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == memberAll {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperrors.NewBadRequest("Invalid member_id", err)
	}
	return &id, nil
}
