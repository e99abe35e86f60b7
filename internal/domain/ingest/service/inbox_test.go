package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProcessor struct {
	mu    sync.Mutex
	seen  []Input
	errOn string
	err   error
}

func (s *stubProcessor) Process(_ context.Context, in Input) (*Result, error) {
	s.mu.Lock()
	s.seen = append(s.seen, in)
	s.mu.Unlock()

	if s.errOn != "" && strings.Contains(filepath.Base(in.Path), s.errOn) {
		return nil, s.err
	}
	return &Result{File: filepath.Base(in.Path)}, nil
}

func seedInbox(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644))
	}
	return dir
}

func TestInbox_Pending(t *testing.T) {
	dir := seedInbox(t, "b.pdf", "a.CSV", "notes.md", ".hidden.csv")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.csv"), 0o755))

	files, err := NewInbox(dir, &stubProcessor{}, 2, testLogger()).Pending()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.CSV"), filepath.Join(dir, "b.pdf")}, files)
}

func TestInbox_PendingMissingDir(t *testing.T) {
	_, err := NewInbox(filepath.Join(t.TempDir(), "gone"), &stubProcessor{}, 1, testLogger()).Pending()
	assert.Error(t, err)
}

func TestInbox_Sweep(t *testing.T) {
	dir := seedInbox(t, "a.csv", "bad.csv", "notes.md")
	proc := &stubProcessor{errOn: "bad", err: errors.New("no header")}

	var delivered []string
	inbox := NewInbox(dir, proc, 4, testLogger()).WithBankName("HDFC Bank")
	inbox.Results = func(r *Result) { delivered = append(delivered, r.File) }

	report, err := inbox.Sweep(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Processed, 1)
	assert.Equal(t, "a.csv", report.Processed[0].File)
	require.Contains(t, report.Failed, "bad.csv")
	assert.EqualError(t, report.Failed["bad.csv"], "no header")
	assert.Equal(t, []string{"a.csv"}, delivered)

	assert.FileExists(t, filepath.Join(dir, ProcessedDir, "a.csv"))
	assert.FileExists(t, filepath.Join(dir, FailedDir, "bad.csv"))
	assert.FileExists(t, filepath.Join(dir, "notes.md"))
	assert.NoFileExists(t, filepath.Join(dir, "a.csv"))

	for _, in := range proc.seen {
		assert.Equal(t, "HDFC Bank", in.BankName)
	}

	// handled files are not picked up again
	again, err := inbox.Sweep(context.Background())
	require.NoError(t, err)
	assert.Empty(t, again.Processed)
	assert.Empty(t, again.Failed)
}

func TestInbox_SweepLeavesCancelledFiles(t *testing.T) {
	dir := seedInbox(t, "a.csv")
	proc := &stubProcessor{errOn: "a", err: context.Canceled}

	report, err := NewInbox(dir, proc, 1, testLogger()).Sweep(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Processed)
	assert.Empty(t, report.Failed)
	assert.FileExists(t, filepath.Join(dir, "a.csv"))
}
