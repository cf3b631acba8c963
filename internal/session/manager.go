// Package session tracks the blocks of the current shell session and persists
// them as snapshots.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fentz26/blockterm/internal/models"
	"github.com/fentz26/blockterm/internal/store"
	"go.uber.org/zap"
)

// ErrSessionNotFound is returned when a requested session has no snapshot.
var ErrSessionNotFound = errors.New("session not found")

// SnapshotStore is the persistence backend for session snapshots.
type SnapshotStore interface {
	Init(ctx context.Context) error
	SaveSnapshot(ctx context.Context, snap *models.Snapshot) error
	LoadSnapshot(ctx context.Context, id string) (*models.Snapshot, error)
	ListSnapshots(ctx context.Context) ([]models.SessionSummary, error)
	DeleteSnapshot(ctx context.Context, id string) (bool, error)
}

// Manager owns the ordered blocks of the current session.
type Manager struct {
	mu        sync.Mutex
	store     SnapshotStore
	logger    *zap.Logger
	clock     func() time.Time
	id        string
	startedAt time.Time
	blocks    []*models.Block
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) { m.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager starts a new session; its id is derived from the start time.
func NewManager(st SnapshotStore, opts ...Option) *Manager {
	m := &Manager{
		store:  st,
		logger: zap.NewNop(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.startedAt = m.clock()
	m.id = IDFor(m.startedAt)
	return m
}

// IDFor formats a session id, session_YYYY_MM_DD_HH_MM, from a start time.
func IDFor(t time.Time) string {
	return "session_" + t.Format("2006_01_02_15_04")
}

// SessionID returns the id of the current session.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id
}

// StartTime returns when the current session started.
func (m *Manager) StartTime() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startedAt
}

// Initialize prepares storage and resumes a snapshot saved under the current id.
func (m *Manager) Initialize(ctx context.Context) error {
	if err := m.store.Init(ctx); err != nil {
		return fmt.Errorf("init session storage: %w", err)
	}

	id := m.SessionID()
	snap, err := m.store.LoadSnapshot(ctx, id)
	if errors.Is(err, store.ErrSnapshotNotFound) {
		m.logger.Info("starting new session", zap.String("session", id))
		return nil
	}
	if err != nil {
		// A damaged snapshot does not stop the shell; the next save replaces it.
		m.logger.Warn("could not resume session", zap.String("session", id), zap.Error(err))
		return nil
	}

	m.restore(snap)
	m.logger.Info("resumed session", zap.String("session", id), zap.Int("blocks", len(snap.Blocks)))
	return nil
}

// AddBlock appends a block and persists the session. The block stays in the
// session even when persisting fails.
func (m *Manager) AddBlock(ctx context.Context, b *models.Block) error {
	m.mu.Lock()
	m.blocks = append(m.blocks, b)
	m.mu.Unlock()
	return m.Save(ctx)
}

// Save writes a full snapshot of the current session.
func (m *Manager) Save(ctx context.Context) error {
	snap := m.Snapshot()
	if err := m.store.SaveSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("save session %s: %w", snap.ID, err)
	}
	return nil
}

// Snapshot captures the current session state.
func (m *Manager) Snapshot() *models.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	snap := &models.Snapshot{
		ID:        m.id,
		StartTime: now.UnixMilli(),
		LastSaved: now.UnixMilli(),
		Blocks:    make([]models.BlockRecord, 0, len(m.blocks)),
	}
	// The document's start time is that of its first block.
	if len(m.blocks) > 0 {
		snap.StartTime = m.blocks[0].StartTime().UnixMilli()
	}
	for _, b := range m.blocks {
		snap.Blocks = append(snap.Blocks, b.Record())
	}
	return snap
}

// Blocks returns the blocks of the session in insertion order.
func (m *Manager) Blocks() []*models.Block {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Block, len(m.blocks))
	copy(out, m.blocks)
	return out
}

// BlockByID finds a block of the current session.
func (m *Manager) BlockByID(id string) (*models.Block, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.blocks {
		if b.ID() == id {
			return b, true
		}
	}
	return nil, false
}

// RecentBlocks returns the last n blocks, oldest first.
func (m *Manager) RecentBlocks(n int) []*models.Block {
	blocks := m.Blocks()
	if n <= 0 {
		return nil
	}
	if n < len(blocks) {
		blocks = blocks[len(blocks)-n:]
	}
	return blocks
}

// Clear removes every block of the current session and persists the empty session.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.blocks = nil
	m.mu.Unlock()
	return m.Save(ctx)
}

// ListSessions returns stored sessions, most recently saved first.
func (m *Manager) ListSessions(ctx context.Context) ([]models.SessionSummary, error) {
	list, err := m.store.ListSnapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return list, nil
}

// LoadSessionByID replaces the current session with a stored one. It reports
// false when no such session exists.
func (m *Manager) LoadSessionByID(ctx context.Context, id string) (bool, error) {
	snap, err := m.store.LoadSnapshot(ctx, id)
	if errors.Is(err, store.ErrSnapshotNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load session %s: %w", id, err)
	}
	m.restore(snap)
	return true, nil
}

// DeleteSession removes a stored session. Deleting the current session only
// removes its snapshot; its blocks stay in memory and are saved again on the
// next change.
func (m *Manager) DeleteSession(ctx context.Context, id string) (bool, error) {
	deleted, err := m.store.DeleteSnapshot(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete session %s: %w", id, err)
	}
	return deleted, nil
}

// LoadSnapshot reads a stored session without switching to it.
func (m *Manager) LoadSnapshot(ctx context.Context, id string) (*models.Snapshot, error) {
	snap, err := m.store.LoadSnapshot(ctx, id)
	if errors.Is(err, store.ErrSnapshotNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return snap, err
}

func (m *Manager) restore(snap *models.Snapshot) {
	blocks := make([]*models.Block, 0, len(snap.Blocks))
	for _, rec := range snap.Blocks {
		blocks = append(blocks, models.BlockFromRecord(rec))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = snap.ID
	m.startedAt = time.UnixMilli(snap.StartTime)
	m.blocks = blocks
}
