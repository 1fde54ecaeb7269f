// package tasks implements batch operations over stored profiles.
package tasks

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lovewrapped/internal/shared"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	QueueProfiles Phase = iota
	ExportProfile
	WriteManifest
)

func (p Phase) String() string {
	switch p {
	case QueueProfiles:
		return "queue_profiles"
	case ExportProfile:
		return "export_profile"
	case WriteManifest:
		return "write_manifest"
	default:
		return ""
	}
}

// ExportEngine exports archived profiles.
type ExportEngine struct {
	logger *log.Logger
}

// NewExportEngine creates an [ExportEngine].
func NewExportEngine(logger *log.Logger) *ExportEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ExportEngine{logger: logger}
}

// sendProgress sends without blocking; updates are dropped when nobody is reading.
func (e *ExportEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func queuedUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   QueueProfiles,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Queued %d archived profiles...", total),
	}
}

func exportCompletedUpdate(step, total int, res ProfileExportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportProfile,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, res.File),
		Data:    res,
	}
}

func exportFailedUpdate(step, total int, res ProfileExportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportProfile,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.EntryID, res.Error),
		Data:    res,
	}
}

func manifestUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteManifest,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Manifest written to %s", path),
	}
}
