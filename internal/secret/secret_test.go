package secret

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/smallbiznis/webhookharness/internal/liveevents"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type collector struct {
	mu    sync.Mutex
	items []liveevents.Notification
}

func (c *collector) Publish(_ context.Context, n liveevents.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, n)
}

func (c *collector) all() []liveevents.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]liveevents.Notification(nil), c.items...)
}

func TestCell(t *testing.T) {
	c := NewCell("")
	assert.False(t, c.Configured())
	assert.Equal(t, "", c.Load())

	c.Store("first-secret-value")
	assert.True(t, c.Configured())
	assert.Equal(t, "first-secret-value", c.Load())

	c.Clear()
	assert.False(t, c.Configured())

	var nilCell *Cell
	assert.Equal(t, "", nilCell.Load())
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "", Preview(""))
	assert.Equal(t, "****", Preview("short"))
	assert.Equal(t, "abcd...mnop", Preview("abcdefghijklmnop"))
	assert.Equal(t, "wh_s...9xyz", Preview("wh_secret_0123456789xyz"))
}

func TestServiceSetAndClear(t *testing.T) {
	cell := NewCell("")
	sink := &collector{}
	svc := NewService(ServiceParam{Cell: cell, Log: zap.NewNop(), Sink: sink})
	ctx := context.Background()

	assert.Equal(t, Status{}, svc.Status())

	status, err := svc.Set(ctx, "abcdefghijklmnop")
	require.NoError(t, err)
	assert.True(t, status.Configured)
	require.NotNil(t, status.Preview)
	assert.Equal(t, "abcd...mnop", *status.Preview)
	assert.Equal(t, "abcdefghijklmnop", cell.Load())

	status = svc.Clear(ctx)
	assert.False(t, status.Configured)
	assert.Nil(t, status.Preview)
	assert.Equal(t, "", cell.Load())

	got := sink.all()
	require.Len(t, got, 2)
	assert.Equal(t, liveevents.NameSecretUpdated, got[0].Name)
	assert.Equal(t, map[string]bool{"configured": true}, got[0].Data)
	assert.Equal(t, map[string]bool{"configured": false}, got[1].Data)
}

func TestServiceSetRejectsShortSecret(t *testing.T) {
	cell := NewCell("existing-secret-value")
	sink := &collector{}
	svc := NewService(ServiceParam{Cell: cell, Sink: sink})

	_, err := svc.Set(context.Background(), "too-short")
	assert.ErrorIs(t, err, ErrSecretTooShort)

	_, err = svc.Set(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrSecretRequired)

	assert.Equal(t, "existing-secret-value", cell.Load())
	assert.Empty(t, sink.all())
}

func TestServiceWithoutSink(t *testing.T) {
	svc := NewService(ServiceParam{Cell: NewCell("")})
	_, err := svc.Set(context.Background(), "abcdefghijklmnopq")
	require.NoError(t, err)
	assert.False(t, svc.Clear(context.Background()).Configured)
}

func TestFileWatcherMissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	w, err := NewFileWatcher("", NewService(ServiceParam{Cell: NewCell("")}), zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, w)
	// Start on a nil watcher is a no-op
	w.Start()
}

func TestFileWatcherAppliesSecret(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "harness.yml")
	require.NoError(t, os.WriteFile(path, []byte("webhook:\n  secret: file-provided-secret-123\n"), 0o600))

	cell := NewCell("env-secret-value-0000")
	svc := NewService(ServiceParam{Cell: cell})
	w, err := NewFileWatcher(path, svc, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, w)

	w.apply(context.Background(), w.v.GetString(fileSecretKey))
	assert.Equal(t, "file-provided-secret-123", cell.Load())
}

func TestFileWatcherApplyOnlyOnChange(t *testing.T) {
	cell := NewCell("")
	svc := NewService(ServiceParam{Cell: cell})
	w := &FileWatcher{svc: svc, log: zap.NewNop()}
	ctx := context.Background()

	w.apply(ctx, "file-provided-secret-123")
	assert.Equal(t, "file-provided-secret-123", cell.Load())

	// admin API change survives a reload with the same file value
	_, err := svc.Set(ctx, "admin-provided-secret-456")
	require.NoError(t, err)
	w.apply(ctx, "file-provided-secret-123")
	assert.Equal(t, "admin-provided-secret-456", cell.Load())

	// invalid file values are ignored
	w.apply(ctx, "short")
	assert.Equal(t, "admin-provided-secret-456", cell.Load())

	// removing the key from the file clears the secret
	w.apply(ctx, "")
	assert.Equal(t, "", cell.Load())
}
