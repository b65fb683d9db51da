package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"webcamupload/internal/model"
	"webcamupload/internal/payload"
	"webcamupload/internal/repository"
	repoMocks "webcamupload/internal/repository/mocks"
	"webcamupload/internal/storage"
	storeMocks "webcamupload/internal/storage/mocks"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, time.March, 5, 7, 8, 9, 10*int(time.Millisecond), time.UTC)

func pngBody(n int) []byte {
	b := make([]byte, n)
	copy(b, payload.Signature)
	return b
}

func storedCapture(size int) model.Capture {
	return model.Capture{
		Filename:    storage.FileName(fixedNow),
		StoragePath: storage.URLPath(storage.FileName(fixedNow)),
		Size:        int64(size),
		CapturedAt:  fixedNow,
	}
}

func TestIngestService_Ingest(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		body        []byte
		setupMocks  func(mImages *storeMocks.MockImageStore, mMirror *storeMocks.MockObjectStore, mRepo *repoMocks.MockCaptureRepository)
		wantErr     error
		wantOutcome string
	}{
		{
			name: "happy path replicates to mirror and capture log",
			body: pngBody(20),
			setupMocks: func(mImages *storeMocks.MockImageStore, mMirror *storeMocks.MockObjectStore, mRepo *repoMocks.MockCaptureRepository) {
				mImages.On("Store", mock.Anything, pngBody(20), fixedNow).Return(storedCapture(20), nil)
				mMirror.On("Put", mock.Anything, "webcamupload/2024-03-05-07-08-09-010.png", mock.Anything, mock.MatchedBy(func(opt storage.PutObjectOptions) bool {
					return opt.Size == 20 && opt.ContentType == "image/png"
				})).Return(storage.ObjectInfo{}, nil)
				mRepo.On("Create", mock.Anything, mock.MatchedBy(func(c *model.Capture) bool {
					return c.ID != "" && c.Filename == "2024-03-05-07-08-09-010.png"
				})).Return(&model.Capture{}, nil)
			},
			wantOutcome: OutcomeAccepted,
		},
		{
			name: "secondary failures do not fail the upload",
			body: pngBody(20),
			setupMocks: func(mImages *storeMocks.MockImageStore, mMirror *storeMocks.MockObjectStore, mRepo *repoMocks.MockCaptureRepository) {
				mImages.On("Store", mock.Anything, mock.Anything, fixedNow).Return(storedCapture(20), nil)
				mMirror.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(storage.ObjectInfo{}, errors.New("bucket gone"))
				mRepo.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))
			},
			wantOutcome: OutcomeAccepted,
		},
		{
			name:        "not a png",
			body:        []byte("not a png"),
			setupMocks:  func(*storeMocks.MockImageStore, *storeMocks.MockObjectStore, *repoMocks.MockCaptureRepository) {},
			wantErr:     payload.ErrFormatInvalid,
			wantOutcome: OutcomeInvalidPayload,
		},
		{
			name:        "too large",
			body:        pngBody(65),
			setupMocks:  func(*storeMocks.MockImageStore, *storeMocks.MockObjectStore, *repoMocks.MockCaptureRepository) {},
			wantErr:     payload.ErrTooLarge,
			wantOutcome: OutcomeTooLarge,
		},
		{
			name: "storage failure skips replication",
			body: pngBody(20),
			setupMocks: func(mImages *storeMocks.MockImageStore, mMirror *storeMocks.MockObjectStore, mRepo *repoMocks.MockCaptureRepository) {
				mImages.On("Store", mock.Anything, mock.Anything, fixedNow).Return(model.Capture{}, storage.ErrIOFailure)
			},
			wantErr:     storage.ErrIOFailure,
			wantOutcome: OutcomeStorageFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mImages := new(storeMocks.MockImageStore)
			mMirror := new(storeMocks.MockObjectStore)
			mRepo := new(repoMocks.MockCaptureRepository)
			metrics, err := NewMetrics(prometheus.NewRegistry())
			require.NoError(t, err)

			svc := NewIngestService(payload.NewValidator(64), mImages,
				WithMirror(mMirror),
				WithCaptureLog(mRepo),
				WithClock(func() time.Time { return fixedNow }),
				WithMetrics(metrics),
			)
			tt.setupMocks(mImages, mMirror, mRepo)

			got, err := svc.Ingest(ctx, tt.body)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
				require.NotNil(t, got)
				assert.NotEmpty(t, got.ID)
				assert.Equal(t, "/images/webcamupload/2024-03-05-07-08-09-010.png", got.StoragePath)
			}
			assert.Equal(t, float64(1), testutil.ToFloat64(metrics.uploads.WithLabelValues(tt.wantOutcome)))

			mImages.AssertExpectations(t)
			mMirror.AssertExpectations(t)
			mRepo.AssertExpectations(t)
		})
	}
}

func TestIngestService_IngestWithoutOptionalTargets(t *testing.T) {
	ctx := context.Background()
	mImages := new(storeMocks.MockImageStore)
	mImages.On("Store", mock.Anything, mock.Anything, fixedNow).Return(storedCapture(8), nil)

	svc := NewIngestService(payload.NewValidator(0), mImages, WithClock(func() time.Time { return fixedNow }))

	got, err := svc.Ingest(ctx, pngBody(8))
	require.NoError(t, err)
	assert.Equal(t, int64(8), got.Size)
	mImages.AssertExpectations(t)
}

func TestIngestService_ReplicationFailureMetrics(t *testing.T) {
	ctx := context.Background()
	mImages := new(storeMocks.MockImageStore)
	mMirror := new(storeMocks.MockObjectStore)
	mImages.On("Store", mock.Anything, mock.Anything, fixedNow).Return(storedCapture(8), nil)
	mMirror.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(storage.ObjectInfo{}, errors.New("timeout"))

	metrics, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	svc := NewIngestService(payload.NewValidator(0), mImages,
		WithMirror(mMirror),
		WithClock(func() time.Time { return fixedNow }),
		WithMetrics(metrics),
	)

	_, err = svc.Ingest(ctx, pngBody(8))
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.replicationFailures.WithLabelValues(TargetMirror)))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.replicationFailures.WithLabelValues(TargetCaptureLog)))
}

func TestIngestService_Latest(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		url     string
		err     error
		wantErr error
	}{
		{name: "found", url: "/images/webcamupload/2024-03-05-07-08-09-010.png"},
		{name: "empty library", err: storage.ErrNotFound, wantErr: storage.ErrNotFound},
		{name: "unreadable", err: storage.ErrIOFailure, wantErr: storage.ErrIOFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mImages := new(storeMocks.MockImageStore)
			mImages.On("Latest", mock.Anything).Return(tt.url, tt.err)
			svc := NewIngestService(payload.NewValidator(0), mImages)

			got, err := svc.Latest(ctx)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.url, got)
			}
			mImages.AssertExpectations(t)
		})
	}
}

func TestIngestService_History(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		limit     int
		offset    int
		wantQuery repository.PageQuery
		repoErr   error
	}{
		{name: "happy path", limit: 5, offset: 10, wantQuery: repository.PageQuery{Limit: 5, Offset: 10}},
		{name: "defaults", limit: 0, offset: -3, wantQuery: repository.PageQuery{Limit: 10, Offset: 0}},
		{name: "capped limit", limit: 1000, wantQuery: repository.PageQuery{Limit: 100}},
		{name: "repository error", limit: 10, wantQuery: repository.PageQuery{Limit: 10}, repoErr: errors.New("db fail")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockCaptureRepository)
			svc := NewIngestService(payload.NewValidator(0), nil, WithCaptureLog(mRepo))

			if tt.repoErr != nil {
				mRepo.On("List", ctx, tt.wantQuery).Return(nil, tt.repoErr)
			} else {
				mRepo.On("List", ctx, tt.wantQuery).Return(&repository.PageResult[model.Capture]{
					Items: []model.Capture{{ID: "1"}},
					Total: 1,
				}, nil)
			}

			res, err := svc.History(ctx, tt.limit, tt.offset)

			if tt.repoErr != nil {
				assert.Error(t, err)
				assert.Nil(t, res)
			} else {
				require.NoError(t, err)
				assert.Equal(t, 1, res.Total)
				assert.Len(t, res.Items, 1)
			}
			mRepo.AssertExpectations(t)
		})
	}

	t.Run("disabled without capture log", func(t *testing.T) {
		svc := NewIngestService(payload.NewValidator(0), nil)
		res, err := svc.History(ctx, 10, 0)
		assert.ErrorIs(t, err, ErrHistoryDisabled)
		assert.Nil(t, res)
	})
}
