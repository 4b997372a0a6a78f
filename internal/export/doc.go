// Package export plans and executes cache-to-container export batches.
//
// Planning resolves selections into jobs with collision-free destination
// names. Execution remuxes each job through ffmpeg into a temporary file
// and publishes it with an atomic rename, so destinations never hold
// partial output. Batches run under a file lock and persist per-job state
// in the queue store.
package export
