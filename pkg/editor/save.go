package editor

import (
	"context"

	"transcription-editor/pkg/block"
)

// SaveFunc persists a document snapshot.
type SaveFunc func(ctx context.Context, blocks []block.Snapshot) error

// DispatchSave snapshots the document now and saves it on a new goroutine.
// Edits made after DispatchSave returns do not reach this save, and the save
// never blocks them. The save outlives ctx cancellation; saves dispatched
// back to back race and the last write wins.
//
// The returned channel yields the save's result and is then closed.
func (s *Session) DispatchSave(ctx context.Context, save SaveFunc) <-chan error {
	snapshot := s.store.Snapshot()
	done := make(chan error, 1)
	log := s.log
	go func() {
		defer close(done)
		err := save(context.WithoutCancel(ctx), snapshot)
		if err != nil {
			log.Error("save failed", "error", err, "blocks", len(snapshot))
		} else {
			log.Debug("saved", "blocks", len(snapshot))
		}
		done <- err
	}()
	return done
}
