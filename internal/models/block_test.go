package models

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 5, 14, 7, 0, 0, time.UTC)}
}

func TestNewBlock(t *testing.T) {
	b := NewBlock("ls -la")
	assert.True(t, strings.HasPrefix(b.ID(), "block_"))
	assert.Equal(t, BlockStatusPending, b.Status())
	assert.False(t, b.IsAICommand())
	_, ok := b.EndTime()
	assert.False(t, ok)
	_, ok = b.ExitCode()
	assert.False(t, ok)

	assert.True(t, NewBlock("ai hello").IsAICommand())
	assert.True(t, NewBlock("edit notes.txt").IsAICommand())
	assert.NotEqual(t, NewBlock("x").ID(), NewBlock("x").ID())
}

func TestBlockTransitions(t *testing.T) {
	tests := []struct {
		name    string
		steps   []BlockStatus
		wantErr bool
	}{
		{"pending to executing to completed", []BlockStatus{BlockStatusExecuting, BlockStatusCompleted}, false},
		{"pending to processing to error", []BlockStatus{BlockStatusProcessing, BlockStatusError}, false},
		{"pending straight to error", []BlockStatus{BlockStatusError}, false},
		{"back to pending", []BlockStatus{BlockStatusExecuting, BlockStatusPending}, true},
		{"executing to processing", []BlockStatus{BlockStatusExecuting, BlockStatusProcessing}, true},
		{"completed is final", []BlockStatus{BlockStatusExecuting, BlockStatusCompleted, BlockStatusError}, true},
		{"error is final", []BlockStatus{BlockStatusError, BlockStatusCompleted}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBlock("echo hi")
			var err error
			for _, s := range tt.steps {
				if err = b.SetStatus(s); err != nil {
					break
				}
			}
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEndTimeStampedOnce(t *testing.T) {
	clock := newClock()
	b := newBlockAt("sleep 1", clock.Now)

	require.NoError(t, b.SetStatus(BlockStatusExecuting))
	clock.Advance(1500 * time.Millisecond)
	require.NoError(t, b.SetStatus(BlockStatusCompleted))

	end, ok := b.EndTime()
	require.True(t, ok)

	clock.Advance(time.Minute)
	assert.Error(t, b.SetStatus(BlockStatusError))
	end2, _ := b.EndTime()
	assert.Equal(t, end, end2)
	assert.Equal(t, BlockStatusCompleted, b.Status())
	assert.Equal(t, 1500*time.Millisecond, b.Elapsed())
}

func TestElapsedWhileRunning(t *testing.T) {
	clock := newClock()
	b := newBlockAt("make", clock.Now)
	require.NoError(t, b.SetStatus(BlockStatusExecuting))
	clock.Advance(250 * time.Millisecond)
	assert.Equal(t, 250*time.Millisecond, b.Elapsed())
}

func TestConcurrentAppends(t *testing.T) {
	b := NewBlock("yes")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); b.AppendOutput("o") }()
		go func() { defer wg.Done(); b.AppendError("e") }()
	}
	wg.Wait()
	assert.Len(t, b.Output(), 50)
	assert.Len(t, b.ErrorOutput(), 50)
}

func TestRecordRoundTrip(t *testing.T) {
	clock := newClock()
	b := newBlockAt("false", clock.Now)
	require.NoError(t, b.SetStatus(BlockStatusExecuting))
	b.AppendError("boom\n")
	b.SetExitCode(1)
	clock.Advance(42 * time.Millisecond)
	require.NoError(t, b.SetStatus(BlockStatusError))

	rec := b.Record()
	assert.Equal(t, int64(42), rec.Duration)
	require.NotNil(t, rec.EndTime)
	require.NotNil(t, rec.ExitCode)
	assert.Equal(t, 1, *rec.ExitCode)

	restored := BlockFromRecord(rec)
	assert.Equal(t, rec, restored.Record())
}

func TestRecordWithoutExitCode(t *testing.T) {
	b := NewBlock("badcommand123")
	require.NoError(t, b.SetStatus(BlockStatusError))
	rec := b.Record()
	assert.Nil(t, rec.ExitCode)
	assert.NotNil(t, rec.EndTime)
}

func TestRestoredRunningBlockStopsCounting(t *testing.T) {
	start := time.Now().Add(-2 * time.Hour)
	b := BlockFromRecord(BlockRecord{
		ID:        "block_1_abc",
		Input:     "sleep 100",
		Status:    BlockStatusExecuting,
		StartTime: start.UnixMilli(),
		Duration:  1500,
	})

	assert.Equal(t, 1500*time.Millisecond, b.Elapsed())
	assert.Equal(t, int64(1500), b.Record().Duration)
	assert.Nil(t, b.Record().EndTime)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0ms", FormatDuration(0))
	assert.Equal(t, "999ms", FormatDuration(999*time.Millisecond))
	assert.Equal(t, "1.5s", FormatDuration(1500*time.Millisecond))
	assert.Equal(t, "59.9s", FormatDuration(59900*time.Millisecond))
	assert.Equal(t, "2m 5s", FormatDuration(125*time.Second))
}
