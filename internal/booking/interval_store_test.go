package booking

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestReserveRejectsOverlap(t *testing.T) {
	s := NewIntervalStore()

	require.NoError(t, s.Reserve(1, iv(base, 0, 2*time.Hour), 10))

	cases := []struct {
		name  string
		start time.Duration
		end   time.Duration
	}{
		{"identical", 0, 2 * time.Hour},
		{"contained", 30 * time.Minute, 90 * time.Minute},
		{"containing", -time.Hour, 3 * time.Hour},
		{"overlaps start", -time.Hour, time.Hour},
		{"overlaps end", time.Hour, 3 * time.Hour},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := s.Reserve(1, iv(base, tc.start, tc.end), 11)
			assert.ErrorIs(t, err, ErrConflict)
		})
	}
	assert.Equal(t, 1, s.ActiveCount(1))
}

func TestReserveAllowsBackToBack(t *testing.T) {
	s := NewIntervalStore()

	// [9, 11) then [11, 12): sharing the boundary instant is not an
	// overlap under half-open semantics.
	require.NoError(t, s.Reserve(1, iv(base, 0, 2*time.Hour), 10))
	require.NoError(t, s.Reserve(1, iv(base, 2*time.Hour, 3*time.Hour), 11))
	// And the slot immediately before.
	require.NoError(t, s.Reserve(1, iv(base, -time.Hour, 0), 12))

	assert.Equal(t, 3, s.ActiveCount(1))
}

func TestReserveIsPerRoom(t *testing.T) {
	s := NewIntervalStore()

	require.NoError(t, s.Reserve(1, iv(base, 0, time.Hour), 10))
	// Same interval in another room never conflicts.
	require.NoError(t, s.Reserve(2, iv(base, 0, time.Hour), 11))
}

func TestReserveRejectsInvalidInterval(t *testing.T) {
	s := NewIntervalStore()

	err := s.Reserve(1, iv(base, time.Hour, time.Hour), 10)
	assert.Error(t, err)
	assert.Equal(t, 0, s.ActiveCount(1))
}

func TestReleaseIsIdempotent(t *testing.T) {
	s := NewIntervalStore()
	window := iv(base, 0, time.Hour)

	require.NoError(t, s.Reserve(1, window, 10))
	s.Release(1, 10)
	s.Release(1, 10) // second release is a no-op
	s.Release(1, 99) // unknown booking is a no-op
	assert.Equal(t, 0, s.ActiveCount(1))

	// The freed slot is reservable again.
	require.NoError(t, s.Reserve(1, window, 11))
}

func TestRebookMovesInterval(t *testing.T) {
	s := NewIntervalStore()

	require.NoError(t, s.Reserve(1, iv(base, 0, time.Hour), 10))
	require.NoError(t, s.Rebook(1, iv(base, 2*time.Hour, 3*time.Hour), 10))

	assert.Equal(t, 1, s.ActiveCount(1))
	assert.Empty(t, s.Query(1, iv(base, 0, time.Hour)))
	assert.Equal(t, []uint64{10}, s.Query(1, iv(base, 2*time.Hour, 3*time.Hour)))
}

func TestRebookIgnoresOwnInterval(t *testing.T) {
	s := NewIntervalStore()

	// Shifting within the old window must not conflict with itself.
	require.NoError(t, s.Reserve(1, iv(base, 0, 2*time.Hour), 10))
	require.NoError(t, s.Rebook(1, iv(base, time.Hour, 3*time.Hour), 10))
	require.NoError(t, s.Rebook(1, iv(base, 90*time.Minute, 2*time.Hour), 10))
	assert.Equal(t, 1, s.ActiveCount(1))
}

func TestRebookKeepsOldIntervalOnConflict(t *testing.T) {
	s := NewIntervalStore()

	require.NoError(t, s.Reserve(1, iv(base, 0, time.Hour), 10))
	require.NoError(t, s.Reserve(1, iv(base, 2*time.Hour, 3*time.Hour), 11))

	err := s.Rebook(1, iv(base, 150*time.Minute, 4*time.Hour), 10)
	assert.ErrorIs(t, err, ErrConflict)

	// The failed move left the original reservation in place.
	assert.Equal(t, []uint64{10}, s.Query(1, iv(base, 0, time.Hour)))
	assert.Equal(t, 2, s.ActiveCount(1))
}

func TestRebookWithoutExistingEntry(t *testing.T) {
	s := NewIntervalStore()

	// Acts as a plain reserve when the booking holds nothing.
	require.NoError(t, s.Rebook(1, iv(base, 0, time.Hour), 10))
	assert.Equal(t, []uint64{10}, s.Query(1, iv(base, 0, time.Hour)))
}

func TestQueryReturnsOverlapping(t *testing.T) {
	s := NewIntervalStore()

	require.NoError(t, s.Reserve(1, iv(base, 0, time.Hour), 10))
	require.NoError(t, s.Reserve(1, iv(base, time.Hour, 2*time.Hour), 11))
	require.NoError(t, s.Reserve(1, iv(base, 3*time.Hour, 4*time.Hour), 12))

	assert.Empty(t, s.Query(1, iv(base, 2*time.Hour, 3*time.Hour)))
	assert.Equal(t, []uint64{10}, s.Query(1, iv(base, -time.Hour, 30*time.Minute)))
	assert.Equal(t, []uint64{10, 11, 12}, s.Query(1, iv(base, 30*time.Minute, 5*time.Hour)))
}

func TestReserveConcurrentSameSlot(t *testing.T) {
	s := NewIntervalStore()
	window := iv(base, 0, time.Hour)

	const n = 64
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins []uint64
	)
	start := make(chan struct{})
	for g := 0; g < n; g++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			<-start
			if err := s.Reserve(1, window, id); err == nil {
				mu.Lock()
				wins = append(wins, id)
				mu.Unlock()
			}
		}(uint64(g + 1))
	}
	close(start)
	wg.Wait()

	// Exactly one of the racing requests may hold the slot.
	require.Len(t, wins, 1)
	assert.Equal(t, 1, s.ActiveCount(1))
	assert.Equal(t, wins, s.Query(1, window))
}

func TestReserveConcurrentDisjointSlots(t *testing.T) {
	s := NewIntervalStore()

	const n = 32
	var wg sync.WaitGroup
	errs := make([]error, n)
	for g := 0; g < n; g++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := iv(base, time.Duration(i)*time.Hour, time.Duration(i+1)*time.Hour)
			errs[i] = s.Reserve(1, w, uint64(i+1))
		}(g)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "slot %d", i)
	}
	assert.Equal(t, n, s.ActiveCount(1))
}
