package reliability

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testingpkg "github.com/aristath/meridian/internal/testing"
)

type memoryUploader struct {
	objects map[string][]byte
	err     error
}

func (m *memoryUploader) Upload(ctx context.Context, key string, body io.Reader) error {
	if m.err != nil {
		return m.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects[key] = data
	return nil
}

func TestBackupService_Run(t *testing.T) {
	db := testingpkg.NewTestDBFromFile(t)
	_, err := db.Conn().Exec(`INSERT INTO tickers (symbol) VALUES ('AAPL')`)
	require.NoError(t, err)

	uploader := &memoryUploader{}
	staging := t.TempDir()
	svc := NewBackupService(db, uploader, staging, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }

	key, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "meridian-backup-2024-05-06-070809.db.gz", key)

	gz, err := gzip.NewReader(bytes.NewReader(uploader.objects[key]))
	require.NoError(t, err)
	raw, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("SQLite format 3")))

	entries, err := os.ReadDir(staging)
	require.NoError(t, err)
	assert.Empty(t, entries, "staging files are removed")
}

func TestBackupService_UploadFailure(t *testing.T) {
	db := testingpkg.NewTestDBFromFile(t)
	boom := errors.New("access denied")

	svc := NewBackupService(db, &memoryUploader{err: boom}, t.TempDir(), zerolog.Nop())
	_, err := svc.Run(context.Background())

	assert.ErrorIs(t, err, boom)
}

func TestNewS3Uploader_RequiresBucket(t *testing.T) {
	_, err := NewS3Uploader(context.Background(), S3Config{})
	assert.Error(t, err)
}
