package share

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/model"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/repository"
	apperrors "github.com/ShubhamPrakash26/Prescription-Tracker-Backend/pkg/errors"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/pkg/messaging"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/pkg/metrics"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/pkg/sharetoken"
)

const EventIssued = "share.issued"

const (
	msgInvalidType  = "Invalid type"
	msgNotFound     = "Document not found"
	msgForbidden    = "Not authorized to share this document"
	msgInvalidLink  = "Invalid or expired link"
	msgGone         = "Document not found or expired"
	msgEmailFailure = "Failed to send email"
)

// Notifier delivers a share link by email.
type Notifier interface {
	SendShareLink(ctx context.Context, to, senderName string, kind model.RecordKind, link string) error
}

type Service struct {
	frontendURL string
	signer      *sharetoken.Signer
	records     map[model.RecordKind]repository.RecordRepository
	users       repository.UserRepository
	notifier    Notifier
	broker      messaging.Broker
	metrics     *metrics.Metrics
}

type Deps struct {
	FrontendURL string
	Signer      *sharetoken.Signer
	Records     []repository.RecordRepository
	Users       repository.UserRepository
	Notifier    Notifier
	Broker      messaging.Broker
	Metrics     *metrics.Metrics
}

func NewService(d Deps) *Service {
	records := make(map[model.RecordKind]repository.RecordRepository, len(d.Records))
	for _, r := range d.Records {
		records[r.Kind()] = r
	}
	broker := d.Broker
	if broker == nil {
		broker = messaging.NopBroker{}
	}

	return &Service{
		frontendURL: d.FrontendURL,
		signer:      d.Signer,
		records:     records,
		users:       d.Users,
		notifier:    d.Notifier,
		broker:      broker,
		metrics:     d.Metrics,
	}
}

// IssueLink signs a link for a document the caller owns.
func (s *Service) IssueLink(ctx context.Context, userID uuid.UUID, docType, id string) (*model.ShareLink, error) {
	link, ev, err := s.issue(ctx, userID, docType, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, ev)
	return link, nil
}

// SendLink issues a link and emails it to the recipient.
func (s *Service) SendLink(ctx context.Context, userID uuid.UUID, to, docType, id string) (*model.ShareLink, error) {
	link, ev, err := s.issue(ctx, userID, docType, id)
	if err != nil {
		return nil, err
	}

	if err := s.notifier.SendShareLink(ctx, to, s.senderName(ctx, userID), ev.Type, link.URL); err != nil {
		return nil, apperrors.NewInternal(msgEmailFailure, err)
	}
	ev.Emailed = true
	s.publish(ctx, ev)
	return link, nil
}

func (s *Service) issue(ctx context.Context, userID uuid.UUID, docType, id string) (*model.ShareLink, model.ShareEvent, error) {
	var ev model.ShareEvent

	kind, repo, err := s.repoFor(docType)
	if err != nil {
		return nil, ev, apperrors.NewBadRequest(msgInvalidType, err)
	}

	docID, err := uuid.Parse(id)
	if err != nil {
		return nil, ev, apperrors.NewNotFound(msgNotFound, err)
	}

	doc, err := repo.GetByID(ctx, docID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ev, apperrors.NewNotFound(msgNotFound, err)
		}
		return nil, ev, fmt.Errorf("failed to load %s for sharing: %w", kind, err)
	}
	if doc.UserID != userID {
		return nil, ev, apperrors.NewForbidden(msgForbidden, nil)
	}

	token, expires, err := s.signer.Sign(docID.String(), string(kind))
	if err != nil {
		return nil, ev, err
	}
	s.metrics.ShareLinksIssued.WithLabelValues(string(kind)).Inc()

	link := &model.ShareLink{
		URL:       fmt.Sprintf("%s/view/%s/%s", s.frontendURL, kind, token),
		ExpiresAt: expires,
	}
	ev = model.ShareEvent{Type: kind, RecordID: docID.String(), ExpiresAt: expires}
	return link, ev, nil
}

// Redeem resolves a token to its document. It does not check ownership:
// holding a valid token is the authorization.
func (s *Service) Redeem(ctx context.Context, token string) (doc *model.SharedDocument, err error) {
	result := "ok"
	defer func() { s.metrics.ShareLinksRedeemed.WithLabelValues(result).Inc() }()

	claims, err := s.signer.Verify(token)
	if err != nil {
		result = "invalid"
		return nil, apperrors.NewBadRequest(msgInvalidLink, err)
	}
	kind, repo, err := s.repoFor(claims.Type)
	if err != nil {
		result = "invalid"
		return nil, apperrors.NewBadRequest(msgInvalidLink, err)
	}

	docID, err := uuid.Parse(claims.ID)
	if err != nil {
		result = "not_found"
		return nil, apperrors.NewNotFound(msgGone, err)
	}

	rec, err := repo.GetByID(ctx, docID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			result = "not_found"
			return nil, apperrors.NewNotFound(msgGone, err)
		}
		result = "error"
		return nil, fmt.Errorf("failed to load shared %s: %w", kind, err)
	}

	return &model.SharedDocument{Type: kind, Record: rec}, nil
}

func (s *Service) repoFor(docType string) (model.RecordKind, repository.RecordRepository, error) {
	kind, ok := model.ParseRecordKind(docType)
	if !ok {
		return "", nil, fmt.Errorf("unknown document type %q", docType)
	}
	repo, ok := s.records[kind]
	if !ok {
		return "", nil, fmt.Errorf("no repository for %q", kind)
	}
	return kind, repo, nil
}

// senderName is best effort; a failed lookup falls back to an anonymous sender.
func (s *Service) senderName(ctx context.Context, userID uuid.UUID) string {
	if s.users == nil {
		return ""
	}
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("sender lookup failed")
		return ""
	}
	return u.FullName
}

func (s *Service) publish(ctx context.Context, ev model.ShareEvent) {
	err := s.broker.Publish(ctx, messaging.Channel, messaging.NewMessage(EventIssued, ev))
	s.metrics.EventsPublished.WithLabelValues(EventIssued, metrics.Status(err)).Inc()
	if err != nil {
		log.Warn().Err(err).Str("event", EventIssued).Msg("failed to publish event")
	}
}
