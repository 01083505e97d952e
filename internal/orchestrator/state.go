package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Preflight/internal/domain"
)

// RunState — run, для которого сейчас выполняется pipeline.
//
// Создаётся, когда run переведён в RUNNING, и удаляется после записи итога.
type RunState struct {
	run     *domain.Run
	started time.Time
	cancel  context.CancelFunc
}

func newRunState(run *domain.Run, cancel context.CancelFunc) *RunState {
	return &RunState{
		run:     run,
		started: time.Now(),
		cancel:  cancel,
	}
}

// RunID возвращает ID run.
func (s *RunState) RunID() uuid.UUID {
	return s.run.ID
}

// RunStats — сводка по активному run.
type RunStats struct {
	RunID         uuid.UUID
	ReviewRequest domain.ReviewRequest
	Elapsed       time.Duration
}

// Stats возвращает сводку по run.
func (s *RunState) Stats() RunStats {
	return RunStats{
		RunID:         s.run.ID,
		ReviewRequest: s.run.ReviewRequest,
		Elapsed:       time.Since(s.started),
	}
}
