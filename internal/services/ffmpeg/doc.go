// Package ffmpeg wraps the external ffmpeg binary for container remuxing.
//
// Cached Bilibili segments are elementary streams; ffmpeg combines them into
// a standard container with stream copy only. The client runs the binary with
// a bounded timeout, forwards -progress output to the caller, and preserves a
// tail of stderr for failure diagnostics.
package ffmpeg
