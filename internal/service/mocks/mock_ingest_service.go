package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"webcamupload/internal/model"
	"webcamupload/internal/service"
)

type MockIngestService struct {
	mock.Mock
}

func (m *MockIngestService) Ingest(ctx context.Context, body []byte) (*model.Capture, error) {
	args := m.Called(ctx, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Capture), args.Error(1)
}

func (m *MockIngestService) Latest(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockIngestService) History(ctx context.Context, limit, offset int) (*service.CaptureListResult, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CaptureListResult), args.Error(1)
}
