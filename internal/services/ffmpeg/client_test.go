package ffmpeg

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type recordingExecutor struct {
	binary      string
	args        []string
	stdoutLines []string
	stderrLines []string
	err         error
}

func (r *recordingExecutor) Run(_ context.Context, binary string, args []string, onStdout, onStderr func(string)) error {
	r.binary = binary
	r.args = args
	for _, line := range r.stdoutLines {
		onStdout(line)
	}
	for _, line := range r.stderrLines {
		onStderr(line)
	}
	return r.err
}

func TestRemuxBuildsStreamCopyArgs(t *testing.T) {
	exec := &recordingExecutor{}
	client, err := New("ffmpeg", 0, WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	in := Input{VideoPath: "/cache/video.m4s", AudioPath: "/cache/audio.m4s", Container: "mp4"}
	if err := client.Remux(context.Background(), in, "/out/clip.mp4", nil); err != nil {
		t.Fatalf("Remux: %v", err)
	}

	joined := strings.Join(exec.args, " ")
	for _, want := range []string{
		"-i /cache/video.m4s",
		"-i /cache/audio.m4s",
		"-c copy",
		"-movflags +faststart",
		"-f mp4",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in args %q", want, joined)
		}
	}
	if exec.args[len(exec.args)-1] != "/out/clip.mp4" {
		t.Fatalf("expected destination last, got %q", exec.args[len(exec.args)-1])
	}
}

func TestRemuxVideoOnlySkipsSecondInput(t *testing.T) {
	exec := &recordingExecutor{}
	client, err := New("ffmpeg", 0, WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	in := Input{VideoPath: "/cache/video.m4s", Container: "mkv"}
	if err := client.Remux(context.Background(), in, "/out/clip.mkv", nil); err != nil {
		t.Fatalf("Remux: %v", err)
	}
	if count := strings.Count(strings.Join(exec.args, " "), "-i "); count != 1 {
		t.Fatalf("expected exactly one input, got args %v", exec.args)
	}
	if !strings.Contains(strings.Join(exec.args, " "), "-f matroska") {
		t.Fatalf("expected matroska muxer, got %v", exec.args)
	}
}

func TestRemuxRejectsEmptyInput(t *testing.T) {
	client, err := New("ffmpeg", 0, WithExecutor(&recordingExecutor{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := client.Remux(context.Background(), Input{}, "/out/clip.mp4", nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestRemuxForwardsProgress(t *testing.T) {
	exec := &recordingExecutor{
		stdoutLines: []string{
			"out_time_ms=1500000",
			"speed=32.1x",
			"progress=end",
			"frame=123", // ignored
		},
	}
	client, err := New("ffmpeg", 0, WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var updates []ProgressUpdate
	in := Input{VideoPath: "/cache/video.m4s"}
	if err := client.Remux(context.Background(), in, "/out/clip.mp4", func(u ProgressUpdate) {
		updates = append(updates, u)
	}); err != nil {
		t.Fatalf("Remux: %v", err)
	}

	if len(updates) != 3 {
		t.Fatalf("expected 3 updates, got %d", len(updates))
	}
	if updates[0].OutTime != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s out time, got %v", updates[0].OutTime)
	}
	if updates[1].Speed != "32.1x" {
		t.Fatalf("expected speed update, got %+v", updates[1])
	}
	if !updates[2].Done {
		t.Fatalf("expected done update, got %+v", updates[2])
	}
}

func TestRemuxCapturesDiagnosticTail(t *testing.T) {
	toolErr := errors.New("wait command: exit status 1")
	exec := &recordingExecutor{
		stderrLines: []string{"moov atom not found", "Invalid data found when processing input"},
		err:         toolErr,
	}
	client, err := New("ffmpeg", 0, WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	remuxErr := client.Remux(context.Background(), Input{VideoPath: "/cache/video.m4s"}, "/out/clip.mp4", nil)
	if remuxErr == nil {
		t.Fatal("expected remux failure")
	}
	var runErr *RunError
	if !errors.As(remuxErr, &runErr) {
		t.Fatalf("expected RunError, got %T", remuxErr)
	}
	if !strings.Contains(runErr.Diagnostic, "Invalid data found") {
		t.Fatalf("expected stderr tail, got %q", runErr.Diagnostic)
	}
	if !errors.Is(remuxErr, toolErr) {
		t.Fatalf("expected wrapped tool error, got %v", remuxErr)
	}
}
