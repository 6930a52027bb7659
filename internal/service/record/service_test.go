package record

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/model"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/repository/memory"
	apperrors "github.com/ShubhamPrakash26/Prescription-Tracker-Backend/pkg/errors"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/pkg/messaging"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/pkg/metrics"
)

type fakeUploader struct {
	objects map[string]string
	err     error
}

func (f *fakeUploader) Upload(_ context.Context, object, _ string, body io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	if f.objects == nil {
		f.objects = map[string]string{}
	}
	f.objects[object] = string(data)
	return "https://files.example.com/" + object, nil
}

type recordingBroker struct {
	mu     sync.Mutex
	events []string
}

func (b *recordingBroker) Publish(_ context.Context, _ string, message interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, message.(messaging.Message).Type)
	return nil
}

func (b *recordingBroker) Close() error { return nil }

type fixture struct {
	svc      *Service
	repo     *memory.RecordRepository
	uploader *fakeUploader
	broker   *recordingBroker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     memory.NewRecordRepository(model.KindPrescription),
		uploader: &fakeUploader{},
		broker:   &recordingBroker{},
	}
	f.svc = NewService(f.repo, f.uploader, f.broker, metrics.New("test", prometheus.NewRegistry()), 10<<20)
	f.svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return f
}

func assertCode(t *testing.T, err error, code apperrors.ErrorCode) {
	t.Helper()
	appErr, ok := apperrors.As(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
}

func TestCreateThenGetRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	member := uuid.New()

	created, err := f.svc.Create(ctx, owner, model.RecordRequest{
		Title:       "Amoxicillin",
		Category:    "antibiotic",
		Tags:        "infection, ent ,",
		Doctor:      "Dr. Mehta",
		Description: "500mg thrice daily",
		Date:        "2024-03-10",
		MemberID:    member.String(),
	}, nil)
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, owner, created.ID.String())
	require.NoError(t, err)

	assert.Equal(t, "Amoxicillin", got.Title)
	assert.Equal(t, "antibiotic", got.Category)
	assert.Equal(t, []string{"infection", "ent"}, []string(got.Tags))
	assert.Equal(t, "Dr. Mehta", got.Doctor)
	assert.Equal(t, "500mg thrice daily", got.Description)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), got.Date)
	require.NotNil(t, got.MemberID)
	assert.Equal(t, member, *got.MemberID)
	assert.Equal(t, owner, got.UserID)
	assert.Equal(t, []string{EventCreated}, f.broker.events)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, uuid.New(), model.RecordRequest{Date: "2024-01-01"}, nil)
	assertCode(t, err, apperrors.ErrBadRequest)
	assert.Equal(t, "Title and date are required", err.(*apperrors.AppError).Message)

	_, err = f.svc.Create(ctx, uuid.New(), model.RecordRequest{Title: "x"}, nil)
	assertCode(t, err, apperrors.ErrBadRequest)

	_, err = f.svc.Create(ctx, uuid.New(), model.RecordRequest{Title: "x", Date: "yesterday"}, nil)
	assertCode(t, err, apperrors.ErrBadRequest)

	_, err = f.svc.Create(ctx, uuid.New(), model.RecordRequest{Title: "x", Date: "2024-01-01", MemberID: "kid"}, nil)
	assertCode(t, err, apperrors.ErrBadRequest)

	assert.Equal(t, 0, f.repo.Len())
}

func TestCreateWithFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.svc.Create(ctx, uuid.New(), model.RecordRequest{Title: "Scan", Date: "2024-01-01"}, &Upload{
		Name: "scan.pdf",
		Size: 4,
		Body: strings.NewReader("%PDF"),
	})
	require.NoError(t, err)

	object := "prescriptions/prescription-1700000000000-scan.pdf"
	assert.Equal(t, "https://files.example.com/"+object, rec.FileURL)
	assert.Equal(t, "%PDF", f.uploader.objects[object])
}

func TestCreateRejectsBadFilesBeforeUploading(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := model.RecordRequest{Title: "Scan", Date: "2024-01-01"}

	_, err := f.svc.Create(ctx, uuid.New(), req, &Upload{Name: "scan.exe", Size: 10, Body: strings.NewReader("x")})
	assertCode(t, err, apperrors.ErrBadRequest)
	assert.Contains(t, err.(*apperrors.AppError).Message, "jpg, jpeg, png, pdf")

	_, err = f.svc.Create(ctx, uuid.New(), req, &Upload{Name: "scan.pdf", Size: 11 << 20, Body: strings.NewReader("x")})
	assertCode(t, err, apperrors.ErrBadRequest)
	assert.Equal(t, "File size is too large. Maximum 10MB allowed.", err.(*apperrors.AppError).Message)

	assert.Empty(t, f.uploader.objects)
	assert.Equal(t, 0, f.repo.Len())
}

func TestCreateUploadFailureIsInternal(t *testing.T) {
	f := newFixture(t)
	f.uploader.err = errors.New("bucket gone")

	_, err := f.svc.Create(context.Background(), uuid.New(), model.RecordRequest{Title: "Scan", Date: "2024-01-01"},
		&Upload{Name: "scan.png", Size: 1, Body: strings.NewReader("x")})
	require.Error(t, err)
	_, isApp := apperrors.As(err)
	assert.False(t, isApp)
	assert.Equal(t, 0, f.repo.Len())
}

func TestCreateWithoutStorage(t *testing.T) {
	repo := memory.NewRecordRepository(model.KindReport)
	svc := NewService(repo, nil, nil, metrics.New("test", prometheus.NewRegistry()), 0)

	_, err := svc.Create(context.Background(), uuid.New(), model.RecordRequest{Title: "Scan", Date: "2024-01-01"},
		&Upload{Name: "scan.png", Size: 1, Body: strings.NewReader("x")})
	assertCode(t, err, apperrors.ErrUnavailable)
}

type failingRepo struct {
	*memory.RecordRepository
	err error
}

func (r *failingRepo) Create(context.Context, *model.Record) error { return r.err }

func (r *failingRepo) Update(context.Context, *model.Record) error { return r.err }

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func TestFailedWriteLogsOrphanedFile(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	inner := memory.NewRecordRepository(model.KindPrescription)
	repo := &failingRepo{RecordRepository: inner, err: errors.New("connection refused")}
	uploader := &fakeUploader{}
	svc := NewService(repo, uploader, nil, metrics.New("test", prometheus.NewRegistry()), 0)
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	logs := captureLog(t)

	_, err := svc.Create(ctx, owner, model.RecordRequest{Title: "Scan", Date: "2024-01-01"},
		&Upload{Name: "scan.pdf", Size: 4, Body: strings.NewReader("%PDF")})
	require.Error(t, err)
	assert.Contains(t, logs.String(), "https://files.example.com/prescriptions/prescription-1700000000000-scan.pdf")

	existing := &model.Record{Base: model.Base{ID: uuid.New()}, UserID: owner, Title: "X", Date: time.Now()}
	require.NoError(t, inner.Create(ctx, existing))
	logs.Reset()
	svc.now = func() time.Time { return time.UnixMilli(1700000009000) }

	_, err = svc.Update(ctx, owner, existing.ID.String(), model.RecordRequest{},
		&Upload{Name: "new.png", Size: 1, Body: strings.NewReader("x")})
	require.Error(t, err)
	assert.Contains(t, logs.String(), "prescription-1700000009000-new.png")
	assert.Contains(t, logs.String(), existing.ID.String())

	logs.Reset()
	_, err = svc.Create(ctx, owner, model.RecordRequest{Title: "No file", Date: "2024-01-01"}, nil)
	require.Error(t, err)
	assert.NotContains(t, logs.String(), "orphaned")
}

func TestForeignOwnerIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	rec, err := f.svc.Create(ctx, alice, model.RecordRequest{Title: "Private", Date: "2024-01-01"}, nil)
	require.NoError(t, err)
	id := rec.ID.String()

	_, err = f.svc.Get(ctx, bob, id)
	assertCode(t, err, apperrors.ErrNotFound)
	assert.Equal(t, "Prescription not found", err.(*apperrors.AppError).Message)

	_, err = f.svc.Update(ctx, bob, id, model.RecordRequest{Title: "Mine now"}, nil)
	assertCode(t, err, apperrors.ErrNotFound)

	err = f.svc.Delete(ctx, bob, id)
	assertCode(t, err, apperrors.ErrNotFound)

	list, err := f.svc.List(ctx, bob, model.ListRecordsQuery{})
	require.NoError(t, err)
	assert.Empty(t, list)

	got, err := f.svc.Get(ctx, alice, id)
	require.NoError(t, err)
	assert.Equal(t, "Private", got.Title)
	assert.Equal(t, 1, f.repo.Len())
}

func TestUpdateIsPartial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()

	rec, err := f.svc.Create(ctx, owner, model.RecordRequest{
		Title:    "Metformin",
		Category: "diabetes",
		Tags:     "daily",
		Doctor:   "Dr. Iyer",
		Date:     "2024-01-01",
	}, nil)
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, owner, rec.ID.String(), model.RecordRequest{Doctor: "Dr. Rao", Title: "  "}, nil)
	require.NoError(t, err)

	assert.Equal(t, "Metformin", updated.Title)
	assert.Equal(t, "diabetes", updated.Category)
	assert.Equal(t, []string{"daily"}, []string(updated.Tags))
	assert.Equal(t, "Dr. Rao", updated.Doctor)
	assert.Equal(t, rec.Date, updated.Date)

	stored, err := f.svc.Get(ctx, owner, rec.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Dr. Rao", stored.Doctor)
	assert.Equal(t, "Metformin", stored.Title)
}

func TestUpdateReplacesFileAndTags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()

	rec, err := f.svc.Create(ctx, owner, model.RecordRequest{Title: "X", Date: "2024-01-01", Tags: "a,b"},
		&Upload{Name: "old.png", Size: 1, Body: strings.NewReader("1")})
	require.NoError(t, err)

	f.svc.now = func() time.Time { return time.UnixMilli(1700000005000) }
	updated, err := f.svc.Update(ctx, owner, rec.ID.String(), model.RecordRequest{Tags: "c"},
		&Upload{Name: "new.jpg", Size: 1, Body: strings.NewReader("2")})
	require.NoError(t, err)

	assert.Equal(t, []string{"c"}, []string(updated.Tags))
	assert.Equal(t, "https://files.example.com/prescriptions/prescription-1700000005000-new.jpg", updated.FileURL)
	assert.NotEqual(t, rec.FileURL, updated.FileURL)
	assert.Equal(t, []string{EventCreated, EventUpdated}, f.broker.events)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()

	rec, err := f.svc.Create(ctx, owner, model.RecordRequest{Title: "X", Date: "2024-01-01"}, nil)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, owner, rec.ID.String()))
	assert.Equal(t, 0, f.repo.Len())

	err = f.svc.Delete(ctx, owner, rec.ID.String())
	assertCode(t, err, apperrors.ErrNotFound)

	err = f.svc.Delete(ctx, owner, "not-a-uuid")
	assertCode(t, err, apperrors.ErrNotFound)
}

func TestListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	member := uuid.New()

	create := func(title, date, tags, category, memberID string) {
		_, err := f.svc.Create(ctx, owner, model.RecordRequest{
			Title: title, Date: date, Tags: tags, Category: category, MemberID: memberID,
		}, nil)
		require.NoError(t, err)
	}
	create("jan", "2024-01-15", "lab", "blood", "")
	create("feb-start", "2024-02-01", "imaging", "scan", member.String())
	create("feb-end", "2024-02-29T18:30:00Z", "lab,imaging", "blood", member.String())
	create("mar", "2024-03-01", "misc", "blood", "")

	titles := func(q model.ListRecordsQuery) []string {
		recs, err := f.svc.List(ctx, owner, q)
		require.NoError(t, err)
		out := []string{}
		for _, r := range recs {
			out = append(out, r.Title)
		}
		return out
	}

	assert.Equal(t, []string{"mar", "feb-end", "feb-start", "jan"}, titles(model.ListRecordsQuery{}))
	assert.Equal(t, []string{"feb-end", "feb-start"}, titles(model.ListRecordsQuery{StartDate: "2024-02-01", EndDate: "2024-02-29"}))
	assert.Equal(t, []string{"feb-end", "feb-start", "jan"}, titles(model.ListRecordsQuery{Tags: "lab,imaging"}))
	assert.Equal(t, []string{"feb-end"}, titles(model.ListRecordsQuery{Tags: "lab", Category: "blood", MemberID: member.String()}))
	assert.Equal(t, []string{"mar", "feb-end", "feb-start", "jan"}, titles(model.ListRecordsQuery{MemberID: "all"}))

	_, err := f.svc.List(ctx, owner, model.ListRecordsQuery{StartDate: "soon"})
	assertCode(t, err, apperrors.ErrBadRequest)
}

func TestFileURL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()

	bare, err := f.svc.Create(ctx, owner, model.RecordRequest{Title: "X", Date: "2024-01-01"}, nil)
	require.NoError(t, err)
	_, err = f.svc.FileURL(ctx, owner, bare.ID.String())
	assertCode(t, err, apperrors.ErrNotFound)

	withFile, err := f.svc.Create(ctx, owner, model.RecordRequest{Title: "Y", Date: "2024-01-01"},
		&Upload{Name: "a.pdf", Size: 1, Body: strings.NewReader("x")})
	require.NoError(t, err)
	url, err := f.svc.FileURL(ctx, owner, withFile.ID.String())
	require.NoError(t, err)
	assert.Equal(t, withFile.FileURL, url)
}
