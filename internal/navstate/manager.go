package navstate

import (
	"bytes"
	"encoding/json"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"

	agenterrors "github.com/fareya22/CleanCodeAAgent/internal/errors"
	"github.com/fareya22/CleanCodeAAgent/internal/githost"
	"github.com/fareya22/CleanCodeAAgent/internal/logging"
	"github.com/fareya22/CleanCodeAAgent/internal/pipeline"
)

// Manager persists the last completed analysis across a full navigation.
// The slot holds at most one pending restoration; writing overwrites any
// previous content and reading consumes it.
type Manager struct {
	store  *Store
	logger *logging.Logger
}

// NewManager creates a navigation state manager over the store
func NewManager(store *Store, logger *logging.Logger) *Manager {
	return &Manager{store: store, logger: logger}
}

// handoffPayload is the serialized slot content
type handoffPayload struct {
	Snapshot *pipeline.Snapshot `json:"snapshot"`
	Ref      *githost.RepoRef   `json:"repoRef"`
	SavedAt  time.Time          `json:"savedAt"`
}

// SaveForNavigation writes the snapshot and repository identity into the
// handoff slot, replacing whatever was there
func (m *Manager) SaveForNavigation(snap *pipeline.Snapshot, ref *githost.RepoRef) error {
	payload := handoffPayload{Snapshot: snap, Ref: ref, SavedAt: time.Now().UTC()}

	data, err := json.Marshal(payload)
	if err != nil {
		return agenterrors.New(agenterrors.InternalError, "failed to serialize navigation snapshot", err)
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return agenterrors.New(agenterrors.InternalError, "failed to compress navigation snapshot", err)
	}
	if err := zw.Close(); err != nil {
		return agenterrors.New(agenterrors.InternalError, "failed to compress navigation snapshot", err)
	}

	if err := m.store.writeSlot(buf.Bytes()); err != nil {
		return agenterrors.New(agenterrors.InternalError, "failed to persist navigation snapshot", err)
	}

	m.logger.Debug("Navigation snapshot saved", map[string]interface{}{
		"repo":  snap.RepoKey,
		"bytes": buf.Len(),
	})
	return nil
}

// ConsumePending atomically reads and deletes the pending snapshot.
// It returns (nil, nil, nil) when no snapshot is pending; a second call in
// the same page lifetime always lands here. A slot that cannot be decoded
// is still consumed and reported as RESTORE_FAILED so the caller falls back
// to a fresh pipeline run.
func (m *Manager) ConsumePending() (*pipeline.Snapshot, *githost.RepoRef, error) {
	raw, err := m.store.takeSlot()
	if err != nil {
		return nil, nil, agenterrors.New(agenterrors.RestoreFailed, "failed to read navigation slot", err)
	}
	if raw == nil {
		return nil, nil, nil
	}

	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, agenterrors.New(agenterrors.RestoreFailed, "navigation slot payload is corrupt", err)
	}
	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, nil, agenterrors.New(agenterrors.RestoreFailed, "navigation slot payload is corrupt", err)
	}

	var payload handoffPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, nil, agenterrors.New(agenterrors.RestoreFailed, "navigation slot payload is not valid JSON", err)
	}
	if payload.Snapshot == nil || payload.Ref == nil {
		return nil, nil, agenterrors.New(agenterrors.RestoreFailed, "navigation slot payload is incomplete", nil)
	}

	m.logger.Debug("Navigation snapshot consumed", map[string]interface{}{
		"repo":    payload.Snapshot.RepoKey,
		"savedAt": payload.SavedAt.Format(time.RFC3339),
	})
	return payload.Snapshot, payload.Ref, nil
}
