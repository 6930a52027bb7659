package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/googleapi"

	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/pkg/circuitbreaker"
)

// GCSUploader writes objects to a Google Cloud Storage bucket.
type GCSUploader struct {
	client  *storage.Client
	bucket  string
	baseURL string
	cb      *circuitbreaker.CircuitBreaker
}

// NewGCSUploader uses application default credentials.
func NewGCSUploader(ctx context.Context, bucket, baseURL string) (*GCSUploader, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &GCSUploader{
		client:  client,
		bucket:  bucket,
		baseURL: baseURL,
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:             "gcs-uploader",
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          30 * time.Second,
			FailureThreshold: 5,
		}),
	}, nil
}

// Upload refuses to overwrite an existing object.
func (u *GCSUploader) Upload(ctx context.Context, objectName, contentType string, body io.Reader) (string, error) {
	err := u.cb.Execute(func() error {
		wctx, cancel := context.WithCancel(ctx)
		defer cancel()

		w := u.client.Bucket(u.bucket).Object(objectName).
			If(storage.Conditions{DoesNotExist: true}).
			NewWriter(wctx)
		w.ContentType = contentType

		if err := writeObject(w, cancel, body); err != nil {
			var gerr *googleapi.Error
			if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
				return ErrObjectExists
			}
			return err
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("bucket", u.bucket).Str("object", objectName).Msg("upload failed")
		return "", err
	}

	return PublicURL(u.baseURL, u.bucket, objectName), nil
}

// writeObject streams body into w. Close commits whatever was written, so a
// failed read cancels the write context instead and nothing is stored.
func writeObject(w io.WriteCloser, cancel context.CancelFunc, body io.Reader) error {
	if _, err := io.Copy(w, body); err != nil {
		cancel()
		return fmt.Errorf("failed to write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize object: %w", err)
	}
	return nil
}

func (u *GCSUploader) Close() error {
	return u.client.Close()
}
