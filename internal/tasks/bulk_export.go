package tasks

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/desertthunder/lovewrapped/internal/formatter"
	"github.com/desertthunder/lovewrapped/internal/profile"
	"github.com/desertthunder/lovewrapped/internal/shared"
	"github.com/desertthunder/lovewrapped/internal/store"
)

const (
	defaultWorkers = 4
	maxWorkers     = 10
	manifestName   = "export_manifest.json"
)

// BulkExportOpts contains configuration for bulk profile exports.
type BulkExportOpts struct {
	Format     formatter.Format // Export format (default: json)
	OutputDir  string           // Base output directory (default: wrapped_export_{epoch})
	NumWorkers int              // Concurrent workers (default: 4, max: 10)
}

// ProfileExportResult is the outcome for one archived entry.
type ProfileExportResult struct {
	EntryID string    `json:"entry_id"`
	UserID  string    `json:"user_id"`
	BuiltAt time.Time `json:"built_at"`
	File    string    `json:"file,omitempty"`
	Success bool      `json:"success"`
	Error   error     `json:"-"`
	Message string    `json:"error,omitempty"`

	index int
}

// BulkExportResult summarizes a batch. Results keep the order of the input entries.
type BulkExportResult struct {
	Total           int                   `json:"total"`
	Successful      int                   `json:"successful"`
	Failed          int                   `json:"failed"`
	Format          formatter.Format      `json:"format"`
	OutputDirectory string                `json:"output_directory"`
	ManifestPath    string                `json:"-"`
	Results         []ProfileExportResult `json:"results"`
}

type exportJob struct {
	index int
	entry *store.HistoryEntry
}

// BulkExport exports entries concurrently and writes a manifest.
//
// A cancelled ctx stops queueing; entries already queued still finish.
func (e *ExportEngine) BulkExport(ctx context.Context, prog chan<- ProgressUpdate, entries []*store.HistoryEntry, opts BulkExportOpts) (*BulkExportResult, error) {
	format, err := formatter.ParseFormat(string(opts.Format))
	if err != nil {
		return nil, err
	}
	opts.Format = format
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("wrapped_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = defaultWorkers
	}
	if opts.NumWorkers > maxWorkers {
		opts.NumWorkers = maxWorkers
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		Total:           len(entries),
		Format:          opts.Format,
		OutputDirectory: opts.OutputDir,
		Results:         make([]ProfileExportResult, 0, len(entries)),
	}

	jobs := make(chan exportJob, len(entries))
	results := make(chan ProfileExportResult, len(entries))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.exportWorker(&wg, jobs, results, opts)
	}

	e.sendProgress(prog, queuedUpdate(len(entries)))
	go func() {
		defer close(jobs)
		for i, entry := range entries {
			select {
			case <-ctx.Done():
				return
			case jobs <- exportJob{index: i, entry: entry}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.Successful++
			e.sendProgress(prog, exportCompletedUpdate(completed, len(entries), res))
		} else {
			result.Failed++
			e.logger.Warn("profile export failed", "entry", res.EntryID, "error", res.Error)
			e.sendProgress(prog, exportFailedUpdate(completed, len(entries), res))
		}
	}
	slices.SortFunc(result.Results, func(a, b ProfileExportResult) int { return cmp.Compare(a.index, b.index) })

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("export cancelled after %d of %d profiles: %w", completed, len(entries), err)
	}

	manifestPath := filepath.Join(opts.OutputDir, manifestName)
	data, err := shared.MarshalJSON(result, true)
	if err != nil {
		return result, fmt.Errorf("export completed but failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(manifestPath, data, 0644); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	e.sendProgress(prog, manifestUpdate(manifestPath))

	e.logger.Info("bulk export complete", "dir", opts.OutputDir, "ok", result.Successful, "failed", result.Failed)
	return result, nil
}

// exportWorker is a worker goroutine that exports entries from the jobs channel.
func (e *ExportEngine) exportWorker(wg *sync.WaitGroup, jobs <-chan exportJob, results chan<- ProfileExportResult, opts BulkExportOpts) {
	defer wg.Done()

	for job := range jobs {
		results <- e.exportEntry(job, opts)
	}
}

func (e *ExportEngine) exportEntry(j exportJob, opts BulkExportOpts) ProfileExportResult {
	res := ProfileExportResult{
		EntryID: j.entry.ID,
		UserID:  j.entry.UserID,
		BuiltAt: j.entry.BuiltAt,
		index:   j.index,
	}

	p, err := profile.Decode(j.entry.Payload)
	if err != nil {
		res.Error = err
		res.Message = err.Error()
		return res
	}

	name := fmt.Sprintf("%s_%s.%s", j.entry.BuiltAt.UTC().Format("20060102T150405Z"), shortID(j.entry.ID), opts.Format.Ext())
	path, err := formatter.WriteExport(*p, opts.Format, filepath.Join(opts.OutputDir, name))
	if err != nil {
		res.Error = err
		res.Message = err.Error()
		return res
	}

	res.File = path
	res.Success = true
	return res
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
