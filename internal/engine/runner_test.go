package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultsToFFmpegBinary(t *testing.T) {
	r := New("")
	assert.Equal(t, "ffmpeg", r.binaryPath)
}

func TestNew_KeepsExplicitBinaryPath(t *testing.T) {
	r := New("/opt/ffmpeg/bin/ffmpeg")
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", r.binaryPath)
}

func TestParseElapsedSeconds(t *testing.T) {
	tests := []struct {
		line    string
		want    float64
		wantOK  bool
	}{
		{"frame=  120 fps=30 q=28.0 size=1024kB time=00:00:04.00 bitrate=2048.0kbits/s", 4, true},
		{"frame=  300 fps=30 q=28.0 size=2048kB time=00:01:30.50 bitrate=2048.0kbits/s", 90.5, true},
		{"time=01:02:03.00 random noise", 3723, true},
		{"no timestamp in this line at all", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseElapsedSeconds(tt.line)
		assert.Equal(t, tt.wantOK, ok, tt.line)
		if tt.wantOK {
			assert.InDelta(t, tt.want, got, 0.001, tt.line)
		}
	}
}

func TestLineRing_RetainsBoundedTail(t *testing.T) {
	ring := newLineRing(10)
	ring.Write("0123456789")
	ring.Write("abcde")

	got := ring.String()
	assert.LessOrEqual(t, len(got), 10)
	assert.Contains(t, got, "abcde")
}

func TestEncode_SurfacesNonZeroExitWithStderrTail(t *testing.T) {
	// /bin/false-equivalent: use "sh" to emit to stderr and exit non-zero,
	// exercising the EngineError/stderr-tail path without a real ffmpeg binary.
	r := New("sh")
	err := r.Encode(context.Background(), []string{"-c", "echo time=00:00:01.00 failing >&2; exit 1"}, "/dev/null", nil)
	require.Error(t, err)

	var engErr *EngineError
	require.ErrorAs(t, err, &engErr)
	assert.Contains(t, engErr.StderrTail, "failing")
}

func TestEncode_ReportsProgressFromStderr(t *testing.T) {
	r := New("sh")
	var seen []float64
	err := r.Encode(context.Background(), []string{"-c", "echo time=00:00:02.00 >&2; exit 0"}, "/dev/null", func(elapsed float64) {
		seen = append(seen, elapsed)
	})
	require.NoError(t, err)
	require.NotEmpty(t, seen)
	assert.InDelta(t, 2.0, seen[0], 0.001)
}
