package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ProgressUpdate captures ffmpeg -progress output.
type ProgressUpdate struct {
	OutTime time.Duration
	Speed   string
	Done    bool
}

// Input names the elementary streams to combine. Either path may be empty for
// single-stream remuxes, but not both.
type Input struct {
	VideoPath string
	AudioPath string
	Container string
}

// Muxer defines the behaviour the export remuxer needs.
type Muxer interface {
	Remux(ctx context.Context, in Input, destPath string, progress func(ProgressUpdate)) error
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout, onStderr func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps ffmpeg CLI interactions for stream-copy remuxing.
type Client struct {
	binary  string
	timeout time.Duration
	exec    Executor
}

// New constructs an ffmpeg client.
func New(binary string, timeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	client := &Client{
		binary:  binary,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// RunError carries the captured diagnostic tail of a failed ffmpeg run.
type RunError struct {
	Diagnostic string
	Err        error
}

func (e *RunError) Error() string {
	if e.Diagnostic == "" {
		return fmt.Sprintf("ffmpeg: %v", e.Err)
	}
	return fmt.Sprintf("ffmpeg: %v: %s", e.Err, e.Diagnostic)
}

func (e *RunError) Unwrap() error { return e.Err }

// Remux combines the input streams into a container at destPath without
// re-encoding. The caller owns destPath cleanup on failure.
func (c *Client) Remux(ctx context.Context, in Input, destPath string, progress func(ProgressUpdate)) error {
	if destPath == "" {
		return errors.New("destination path required")
	}
	args, err := buildArgs(in, destPath)
	if err != nil {
		return err
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	diag := newTailBuffer(40)
	runErr := c.exec.Run(runCtx, c.binary, args,
		func(line string) {
			if progress == nil {
				return
			}
			if update, ok := parseProgress(line); ok {
				progress(update)
			}
		},
		diag.Add,
	)
	if runErr != nil {
		// Prefer the timeout cause over the generic "signal: killed" the
		// process exits with after CommandContext fires.
		if runCtx.Err() != nil && ctx.Err() == nil {
			runErr = context.DeadlineExceeded
		}
		return &RunError{Diagnostic: diag.String(), Err: runErr}
	}
	return nil
}

func buildArgs(in Input, destPath string) ([]string, error) {
	if in.VideoPath == "" && in.AudioPath == "" {
		return nil, errors.New("remux requires at least one input stream")
	}
	muxer, err := containerMuxer(in.Container)
	if err != nil {
		return nil, err
	}

	args := []string{"-hide_banner", "-nostdin", "-y", "-loglevel", "error"}
	if in.VideoPath != "" {
		args = append(args, "-i", in.VideoPath)
	}
	if in.AudioPath != "" {
		args = append(args, "-i", in.AudioPath)
	}
	args = append(args, "-c", "copy")
	if muxer == "mp4" {
		args = append(args, "-movflags", "+faststart")
	}
	args = append(args, "-f", muxer, "-progress", "pipe:1", destPath)
	return args, nil
}

func containerMuxer(container string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(container)) {
	case "", "mp4":
		return "mp4", nil
	case "mkv", "matroska":
		return "matroska", nil
	default:
		return "", fmt.Errorf("unsupported container %q", container)
	}
}

// parseProgress understands the key=value records ffmpeg emits with
// -progress pipe:1.
func parseProgress(line string) (ProgressUpdate, bool) {
	line = strings.TrimSpace(line)
	key, value, found := strings.Cut(line, "=")
	if !found {
		return ProgressUpdate{}, false
	}
	switch key {
	case "out_time_ms":
		micros, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil || micros < 0 {
			return ProgressUpdate{}, false
		}
		// Despite the name, ffmpeg reports microseconds here.
		return ProgressUpdate{OutTime: time.Duration(micros) * time.Microsecond}, true
	case "speed":
		return ProgressUpdate{Speed: strings.TrimSpace(value)}, true
	case "progress":
		return ProgressUpdate{Done: strings.TrimSpace(value) == "end"}, true
	default:
		return ProgressUpdate{}, false
	}
}

// tailBuffer keeps the last n lines of tool output for diagnostics.
type tailBuffer struct {
	mu    sync.Mutex
	lines []string
	max   int
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (b *tailBuffer) Add(line string) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, line)
	if len(b.lines) > b.max {
		b.lines = b.lines[len(b.lines)-b.max:]
	}
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(b.lines, "; ")
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onStdout, onStderr func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	scan := func(r io.Reader, forward func(string)) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if forward != nil {
				forward(scanner.Text())
			}
		}
	}

	wg.Add(2)
	go scan(stdout, onStdout)
	go scan(stderr, onStderr)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
