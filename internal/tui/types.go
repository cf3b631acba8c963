package tui

import (
	"context"

	"github.com/fentz26/blockterm/internal/models"
)

// Source is the read side of the session store the browser needs.
type Source interface {
	ListSessions(ctx context.Context) ([]models.SessionSummary, error)
	LoadSnapshot(ctx context.Context, id string) (*models.Snapshot, error)
	DeleteSession(ctx context.Context, id string) (bool, error)
}

type sessionsLoadedMsg struct {
	sessions []models.SessionSummary
}

type snapshotLoadedMsg struct {
	snap *models.Snapshot
}

type sessionDeletedMsg struct {
	id      string
	deleted bool
}

type errMsg struct {
	err error
}
