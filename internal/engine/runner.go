// Package engine spawns the encoding subprocess compiled by the
// Timeline Compiler and surfaces its progress and failures — the
// Engine Runner (spec §4.5). The subprocess-lifecycle idiom (retained
// stderr tail, non-zero-exit surfacing) is grounded on the ffmpeg
// runner pattern used elsewhere in the retrieval pack for other
// transcoding workers.
package engine

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	startsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "render_engine_starts_total",
		Help: "Total number of encoding engine subprocess starts",
	}, []string{"kind"})
)

// timePattern matches ffmpeg's stderr progress lines, e.g.
// "frame=  120 fps=30 ... time=00:00:04.00 bitrate=...".
var timePattern = regexp.MustCompile(`time=(\d+):(\d+):(\d+(?:\.\d+)?)`)

const stderrTailBytes = 1500

// Runner spawns ffmpeg/ffprobe-style subprocesses for one job.
type Runner struct {
	binaryPath string
}

// New creates a Runner. binaryPath defaults to "ffmpeg" when empty.
func New(binaryPath string) *Runner {
	if binaryPath == "" {
		binaryPath = "ffmpeg"
	}
	return &Runner{binaryPath: binaryPath}
}

// ProgressFunc receives the elapsed output seconds parsed from the
// engine's stderr. It is a best-effort signal, not a correctness
// dependency (spec Design Notes §9).
type ProgressFunc func(elapsedSeconds float64)

// Encode runs the compiled filter graph through the engine, streaming
// stderr for progress lines and retaining its tail for diagnostics.
func (r *Runner) Encode(ctx context.Context, args []string, outputPath string, onProgress ProgressFunc) error {
	fullArgs := append(append([]string{}, args...), outputPath)
	cmd := exec.CommandContext(ctx, r.binaryPath, fullArgs...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("attaching stderr pipe: %w", err)
	}

	tail := newLineRing(stderrTailBytes)

	if err := cmd.Start(); err != nil {
		startsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("starting encoding engine: %w", err)
	}
	startsTotal.WithLabelValues("ok").Inc()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			tail.Write(line)
			if onProgress != nil {
				if secs, ok := parseElapsedSeconds(line); ok {
					onProgress(secs)
				}
			}
		}
	}()

	waitErr := cmd.Wait()
	wg.Wait()

	if waitErr != nil {
		return &EngineError{Err: waitErr, StderrTail: tail.String()}
	}
	return nil
}

// Thumbnail produces a single still JPEG at t=1s (spec §4.5), as a
// separate invocation from the main encode.
func (r *Runner) Thumbnail(ctx context.Context, inputPath, outputPath string) error {
	args := []string{
		"-y",
		"-ss", "1",
		"-i", inputPath,
		"-frames:v", "1",
		"-q:v", "2",
		outputPath,
	}
	cmd := exec.CommandContext(ctx, r.binaryPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &EngineError{Err: err, StderrTail: lastNBytes(string(out), stderrTailBytes)}
	}
	return nil
}

// EngineError carries the retained stderr tail for a failed subprocess
// exit (spec §4.5 / §8 scenario 6).
type EngineError struct {
	Err        error
	StderrTail string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("encoding engine exited: %v", e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

func parseElapsedSeconds(line string) (float64, bool) {
	m := timePattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	hours, _ := strconv.ParseFloat(m[1], 64)
	minutes, _ := strconv.ParseFloat(m[2], 64)
	seconds, _ := strconv.ParseFloat(m[3], 64)
	return hours*3600 + minutes*60 + seconds, true
}

func lastNBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// lineRing retains roughly the last maxBytes of appended lines, used to
// surface a bounded diagnostic tail without holding the whole stream.
type lineRing struct {
	mu       sync.Mutex
	maxBytes int
	buf      []byte
}

func newLineRing(maxBytes int) *lineRing {
	return &lineRing{maxBytes: maxBytes}
}

func (r *lineRing) Write(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf = append(r.buf, []byte(line+"\n")...)
	if len(r.buf) > r.maxBytes {
		r.buf = r.buf[len(r.buf)-r.maxBytes:]
	}
}

func (r *lineRing) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return string(r.buf)
}
