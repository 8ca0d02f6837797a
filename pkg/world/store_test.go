package world

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dramaturge/dramaturge/pkg/models"
)

func newWorld(id string) *models.World {
	return &models.World{
		ID:         id,
		Characters: map[string]*models.Character{},
		Status:     "initialized",
	}
}

func TestCreateAndSnapshot(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Create(newWorld("w1")))

	snap, err := s.Snapshot("w1")
	require.NoError(t, err)
	assert.Equal(t, "w1", snap.ID)

	// Snapshots are detached from the live state.
	snap.Status = "mutated"
	again, err := s.Snapshot("w1")
	require.NoError(t, err)
	assert.Equal(t, "initialized", again.Status)
}

func TestCreateDuplicate(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Create(newWorld("w1")))
	assert.ErrorIs(t, s.Create(newWorld("w1")), ErrAlreadyExists)
}

func TestWithWorldMutates(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Create(newWorld("w1")))

	err := s.WithWorld("w1", func(w *models.World) error {
		w.Status = "advancing"
		return nil
	})
	require.NoError(t, err)

	snap, err := s.Snapshot("w1")
	require.NoError(t, err)
	assert.Equal(t, "advancing", snap.Status)
}

func TestWithWorldNotFound(t *testing.T) {
	s := NewStore()
	err := s.WithWorld("missing", func(w *models.World) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Create(newWorld("w1")))
	require.NoError(t, s.Delete("w1"))

	assert.False(t, s.Alive("w1"))
	assert.ErrorIs(t, s.Delete("w1"), ErrNotFound)
	_, err := s.Snapshot("w1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteDoesNotBlockOnHeldLock(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Create(newWorld("w1")))

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.WithWorld("w1", func(w *models.World) error {
			close(started)
			<-release
			w.Status = "abandoned-mutation"
			return nil
		})
	}()

	<-started
	// Delete returns while the lock is still held by the goroutine above.
	require.NoError(t, s.Delete("w1"))
	assert.False(t, s.Alive("w1"))
	close(release)
	<-done

	// Later access sees the world gone.
	err := s.WithWorld("w1", func(w *models.World) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWithWorldSerializes(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Create(newWorld("w1")))

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.WithWorld("w1", func(w *models.World) error {
				w.CurrentBeatIndex++
				return nil
			})
		}()
	}
	wg.Wait()

	snap, err := s.Snapshot("w1")
	require.NoError(t, err)
	assert.Equal(t, n, snap.CurrentBeatIndex)
}

func TestList(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Create(newWorld("a")))
	require.NoError(t, s.Create(newWorld("b")))
	assert.Len(t, s.List(), 2)
}
