package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"webcamupload/internal/logging"
	"webcamupload/internal/model"
	"webcamupload/internal/payload"
	"webcamupload/internal/repository"
	"webcamupload/internal/storage"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
	pngContentType   = "image/png"
)

// ErrHistoryDisabled is returned by History when no capture log is configured.
var ErrHistoryDisabled = errors.New("capture history is not configured")

var tracer = otel.Tracer("webcamupload/internal/service")

// CaptureListResult is the service-level DTO for paginated captures.
type CaptureListResult struct {
	Items []model.Capture `json:"data"`
	Total int             `json:"total"`
}

// IngestService defines the webcam upload use cases.
type IngestService interface {
	// Ingest validates body and stores it under the current time. Errors wrap
	// payload.ErrFormatInvalid, payload.ErrTooLarge or storage.ErrIOFailure.
	Ingest(ctx context.Context, body []byte) (*model.Capture, error)

	// Latest returns the URL path of the newest image, or storage.ErrNotFound.
	Latest(ctx context.Context) (string, error)

	// History lists recorded captures newest first.
	History(ctx context.Context, limit, offset int) (*CaptureListResult, error)
}

// Option configures optional collaborators of the ingest service.
type Option func(*ingestService)

// WithMirror copies every stored image to an object store.
func WithMirror(m storage.ObjectStore) Option {
	return func(s *ingestService) { s.mirror = m }
}

// WithCaptureLog records every stored image in repo.
func WithCaptureLog(repo repository.CaptureRepository) Option {
	return func(s *ingestService) { s.repo = repo }
}

// WithClock overrides the time source used for filenames.
func WithClock(now func() time.Time) Option {
	return func(s *ingestService) { s.now = now }
}

// WithLogger sets the event logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *ingestService) { s.log = l }
}

// WithMetrics sets the upload counters.
func WithMetrics(m *Metrics) Option {
	return func(s *ingestService) { s.metrics = m }
}

type ingestService struct {
	validator *payload.Validator
	images    storage.ImageStore
	mirror    storage.ObjectStore
	repo      repository.CaptureRepository
	now       func() time.Time
	log       *logging.Logger
	metrics   *Metrics
}

// NewIngestService constructs a new IngestService.
func NewIngestService(validator *payload.Validator, images storage.ImageStore, opts ...Option) IngestService {
	s := &ingestService{
		validator: validator,
		images:    images,
		now:       time.Now,
		log:       logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("ingest")
	return s
}

func (s *ingestService) Ingest(ctx context.Context, body []byte) (*model.Capture, error) {
	ctx, span := tracer.Start(ctx, "IngestService.Ingest", trace.WithAttributes(attribute.Int("upload.size", len(body))))
	defer span.End()

	receivedAt := s.now()

	data, err := s.validator.Validate(body)
	if err != nil {
		outcome := OutcomeInvalidPayload
		if errors.Is(err, payload.ErrTooLarge) {
			outcome = OutcomeTooLarge
		}
		s.metrics.observe(outcome)
		s.log.Info("upload_rejected", logging.Fields{"reason": outcome, "size": len(body)})
		span.SetStatus(codes.Error, outcome)
		return nil, err
	}

	capture, err := s.images.Store(ctx, data, receivedAt)
	if err != nil {
		s.metrics.observe(OutcomeStorageFailure)
		s.log.Error("upload_store_failed", logging.Fields{"error": err, "size": len(data)})
		span.RecordError(err)
		span.SetStatus(codes.Error, OutcomeStorageFailure)
		return nil, fmt.Errorf("store image: %w", err)
	}
	capture.ID = uuid.NewString()

	span.SetAttributes(attribute.String("upload.filename", capture.Filename))
	s.replicate(ctx, &capture, data)

	s.metrics.observe(OutcomeAccepted)
	s.log.Info("upload_accepted", logging.Fields{"filename": capture.Filename, "size": capture.Size})
	return &capture, nil
}

// replicate notifies the optional mirror and capture log. Failures are logged, never returned:
// the image is already durable on disk.
func (s *ingestService) replicate(ctx context.Context, c *model.Capture, data []byte) {
	if s.mirror != nil {
		key := storage.MirrorKey(c.Filename)
		_, err := s.mirror.Put(ctx, key, bytes.NewReader(data), storage.PutObjectOptions{
			Size:        int64(len(data)),
			ContentType: pngContentType,
			Metadata:    map[string]string{"captured-at": c.CapturedAt.Format(time.RFC3339Nano)},
		})
		if err != nil {
			s.metrics.replicationFailed(TargetMirror)
			s.log.Warn("mirror_put_failed", logging.Fields{"key": key, "error": err})
		}
	}

	if s.repo != nil {
		if _, err := s.repo.Create(ctx, c); err != nil {
			s.metrics.replicationFailed(TargetCaptureLog)
			s.log.Warn("capture_log_failed", logging.Fields{"filename": c.Filename, "error": err})
		}
	}
}

func (s *ingestService) Latest(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "IngestService.Latest")
	defer span.End()

	url, err := s.images.Latest(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		span.RecordError(err)
		s.log.Error("latest_lookup_failed", logging.Fields{"error": err})
	}
	return url, err
}

// History returns paginated captures without exposing repository types.
func (s *ingestService) History(ctx context.Context, limit, offset int) (*CaptureListResult, error) {
	if s.repo == nil {
		return nil, ErrHistoryDisabled
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &CaptureListResult{Items: res.Items, Total: res.Total}, nil
}
