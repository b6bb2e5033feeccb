package document

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_IndexesAndRemoves(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping watcher test in short mode")
	}

	s := newTestDocStore(t)
	w, err := NewWatcher(s)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	path := filepath.Join(s.UploadDir(), "onboarding.txt")
	require.NoError(t, os.WriteFile(path, []byte("New hires complete orientation in week one."), 0644))

	require.Eventually(t, func() bool {
		docs, _ := s.Count()
		return docs == 1
	}, 5*time.Second, 50*time.Millisecond, "create event should index the file")

	require.NoError(t, os.Remove(path))

	require.Eventually(t, func() bool {
		docs, _ := s.Count()
		return docs == 0
	}, 5*time.Second, 50*time.Millisecond, "remove event should drop the document")
}

func TestWatcher_IgnoresHiddenAndUnsupported(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping watcher test in short mode")
	}

	s := newTestDocStore(t)
	w, err := NewWatcher(s)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	require.NoError(t, os.WriteFile(filepath.Join(s.UploadDir(), ".hidden.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(s.UploadDir(), "data.bin"), []byte("x"), 0644))

	time.Sleep(2 * debounceWindow)
	docs, _ := s.Count()
	assert.Equal(t, 0, docs)
}
