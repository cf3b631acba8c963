package session

import (
	"math"
	"time"

	"github.com/fentz26/blockterm/internal/models"
)

// Stats summarizes the blocks of a session.
type Stats struct {
	SessionID     string
	StartTime     time.Time
	TotalBlocks   int
	AIBlocks      int
	SystemBlocks  int
	ErrorBlocks   int
	SuccessRate   float64 // percent, one decimal
	TotalDuration time.Duration
	AvgDuration   time.Duration
}

// Stats computes statistics over the current session.
func (m *Manager) Stats() Stats {
	blocks := m.Blocks()
	st := ComputeStats(blocks)
	st.SessionID = m.SessionID()
	st.StartTime = m.StartTime()
	return st
}

// ComputeStats computes block statistics. Durations of blocks still running
// count up to now.
func ComputeStats(blocks []*models.Block) Stats {
	var st Stats
	st.TotalBlocks = len(blocks)
	for _, b := range blocks {
		if b.IsAICommand() {
			st.AIBlocks++
		}
		if b.Status() == models.BlockStatusError {
			st.ErrorBlocks++
		}
		st.TotalDuration += b.Elapsed()
	}
	st.SystemBlocks = st.TotalBlocks - st.AIBlocks

	if st.TotalBlocks > 0 {
		rate := float64(st.TotalBlocks-st.ErrorBlocks) / float64(st.TotalBlocks) * 100
		st.SuccessRate = math.Round(rate*10) / 10
		st.AvgDuration = st.TotalDuration / time.Duration(st.TotalBlocks)
	}
	return st
}
