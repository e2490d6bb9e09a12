package history

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deixis/mac/internal/runner"
)

func newEntry() *Entry {
	return &Entry{ID: uuid.NewString(), Argv: []string{"container", "--version"}}
}

func TestDiskStore_RoundTrip(t *testing.T) {
	s := NewDiskStore(t.TempDir())
	e := newEntry()
	e.Stdout = "1.2.3\n"
	require.NoError(t, s.Save(e))

	got, err := s.Load(e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.Argv, got.Argv)
	assert.Equal(t, "1.2.3\n", got.Stdout)
}

func TestDiskStore_LazyTempDir(t *testing.T) {
	s := NewDiskStore("")
	e := newEntry()
	require.NoError(t, s.Save(e))
	t.Cleanup(func() { _ = removeAll(s) })

	_, err := s.Load(e.ID)
	require.NoError(t, err)
}

func removeAll(s *DiskStore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return os.RemoveAll(s.dir)
}

func TestDiskStore_Missing(t *testing.T) {
	s := NewDiskStore(t.TempDir())
	_, err := s.Load(uuid.NewString())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDiskStore_RejectsPathLikeIDs(t *testing.T) {
	s := NewDiskStore(t.TempDir())
	_, err := s.Load("../../etc/passwd")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Error(t, s.Save(&Entry{ID: "../x"}))
}

func TestLRUStore_Eviction(t *testing.T) {
	s := NewLRUStore(2, nil)
	a, b, c := newEntry(), newEntry(), newEntry()
	require.NoError(t, s.Save(a))
	require.NoError(t, s.Save(b))

	// Touch a so b becomes the oldest.
	_, err := s.Load(a.ID)
	require.NoError(t, err)
	require.NoError(t, s.Save(c))

	_, err = s.Load(b.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	recent := s.Recent(0)
	require.Len(t, recent, 2)
	assert.Equal(t, c.ID, recent[0].ID)
	assert.Equal(t, a.ID, recent[1].ID)
	assert.Len(t, s.Recent(1), 1)
}

func TestLRUStore_FallsBackToDisk(t *testing.T) {
	disk := NewDiskStore(t.TempDir())
	s := NewLRUStore(1, disk)
	a, b := newEntry(), newEntry()
	require.NoError(t, s.Save(a))
	require.NoError(t, s.Save(b)) // evicts a from memory

	got, err := s.Load(a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, a.ID, s.Recent(1)[0].ID)
}

type stubRunner struct {
	res *runner.Result
	err error
}

func (s stubRunner) Run(context.Context, []string) (*runner.Result, error) {
	return s.res, s.err
}

func fixedClock() func() time.Time {
	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	calls := 0
	return func() time.Time {
		calls++
		return t0.Add(time.Duration(calls-1) * time.Second)
	}
}

func TestRecorder_RecordsResult(t *testing.T) {
	store := NewLRUStore(5, nil)
	id := uuid.NewString()
	rec := &Recorder{
		Runner: stubRunner{res: &runner.Result{RunID: id, ExitCode: 1, Stderr: []byte("nope\n")}},
		Store:  store,
		now:    fixedClock(),
	}

	res, err := rec.Run(context.Background(), []string{"container", "system", "status"})
	require.NoError(t, err)
	assert.Equal(t, id, res.RunID)

	e, err := store.Load(id)
	require.NoError(t, err)
	assert.Equal(t, 1, e.ExitCode)
	assert.Equal(t, "nope\n", e.Stderr)
	assert.Equal(t, time.Second, e.Duration)
	assert.Equal(t, []string{"container", "system", "status"}, e.Argv)
	assert.Contains(t, e.Summary(), "exit 1")
}

func TestRecorder_RecordsLaunchFailure(t *testing.T) {
	store := NewLRUStore(5, nil)
	launchErr := &runner.LaunchError{Name: "container", Err: exec.ErrNotFound}
	rec := &Recorder{Runner: stubRunner{err: launchErr}, Store: store}

	res, err := rec.Run(context.Background(), []string{"container", "--version"})
	assert.Nil(t, res)
	assert.Same(t, launchErr, err)

	recent := store.Recent(0)
	require.Len(t, recent, 1)
	assert.Equal(t, -1, recent[0].ExitCode)
	assert.Contains(t, recent[0].LaunchError, "executable file not found")
	assert.Contains(t, recent[0].Summary(), "launch failed")
}

type failingStore struct{}

func (failingStore) Save(*Entry) error            { return errors.New("disk full") }
func (failingStore) Load(string) (*Entry, error) { return nil, ErrNotFound }

func TestRecorder_SaveErrorDoesNotChangeResult(t *testing.T) {
	want := &runner.Result{RunID: uuid.NewString(), Stdout: []byte("ok")}
	rec := &Recorder{Runner: stubRunner{res: want}, Store: failingStore{}}

	got, err := rec.Run(context.Background(), []string{"container", "--version"})
	require.NoError(t, err)
	assert.Same(t, want, got)
}
