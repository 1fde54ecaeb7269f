// Package tasks runs long profile operations with real-time progress reporting.
//
// # Bulk Export
//
// [ExportEngine.BulkExport] writes a batch of archived profile builds to a directory:
//   - Each entry is decoded and validated before rendering
//   - A fixed pool of workers renders and writes files concurrently
//   - Failures are recorded per entry and never abort the batch
//   - An export_manifest.json summarizing the results is written last
//
// # Progress Reporting
//
// Operations send [ProgressUpdate] values on an optional channel. Updates use select with
// default so a slow or absent reader never blocks the workers.
package tasks
