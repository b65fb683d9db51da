package mocks

import (
	"context"
	"io"
	"time"

	"webcamupload/internal/model"
	"webcamupload/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockImageStore struct {
	mock.Mock
}

func (m *MockImageStore) Store(ctx context.Context, data []byte, ts time.Time) (model.Capture, error) {
	args := m.Called(ctx, data, ts)
	if f, ok := args.Get(0).(func(context.Context, []byte, time.Time) model.Capture); ok {
		return f(ctx, data, ts), args.Error(1)
	}
	return args.Get(0).(model.Capture), args.Error(1)
}

func (m *MockImageStore) Latest(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockImageStore) Check(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Put(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) (storage.ObjectInfo, error) {
	args := m.Called(ctx, key, r, opt)
	return args.Get(0).(storage.ObjectInfo), args.Error(1)
}
