package storage_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/nfe-analyzer/internal/config"
	"github.com/rezonia/nfe-analyzer/internal/storage"
	"github.com/rezonia/nfe-analyzer/internal/storage/mocks"
)

func TestWorkbookKey(t *testing.T) {
	key := storage.WorkbookKey("exports/2024")

	require.True(t, strings.HasPrefix(key, "exports/2024/"))
	require.True(t, strings.HasSuffix(key, ".xlsx"))
	id := strings.TrimSuffix(strings.TrimPrefix(key, "exports/2024/"), ".xlsx")
	_, err := uuid.Parse(id)
	assert.NoError(t, err)

	assert.NotEqual(t, key, storage.WorkbookKey("exports/2024"))
}

func TestUploadWorkbook(t *testing.T) {
	st := new(mocks.MockStorage)
	data := []byte("PK\x03\x04workbook")
	meta := map[string]string{"invoices": "2"}

	st.On("Put", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "reports/")
	}), mock.Anything, storage.PutObjectOptions{
		Size:        int64(len(data)),
		ContentType: storage.XLSXContentType,
		Metadata:    meta,
	}).Return(func(_ context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
		body, _ := io.ReadAll(r)
		return storage.ObjectInfo{Key: key, Size: int64(len(body)), ContentType: opt.ContentType}
	}, nil)

	info, err := storage.UploadWorkbook(context.Background(), st, "reports", data, meta)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), info.Size)
	assert.Equal(t, storage.XLSXContentType, info.ContentType)
	assert.True(t, strings.HasPrefix(info.Key, "reports/"))
	st.AssertExpectations(t)
}

func TestUploadWorkbook_Error(t *testing.T) {
	st := new(mocks.MockStorage)
	st.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(storage.ObjectInfo{}, errors.New("bucket unavailable"))

	_, err := storage.UploadWorkbook(context.Background(), st, "exports", []byte("x"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket unavailable")
	assert.Contains(t, err.Error(), "upload exports/")
}

func TestNewMinIO_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.StorageConfig
		want string
	}{
		{"endpoint", config.StorageConfig{}, "endpoint is required"},
		{"credentials", config.StorageConfig{Endpoint: "localhost:9000", Bucket: "b"}, "credentials are required"},
		{"bucket", config.StorageConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"}, "bucket is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := storage.NewMinIO(context.Background(), tt.cfg)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
