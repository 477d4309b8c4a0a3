package media

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const (
	manifestFileName = "playlist.m3u8"
	segmentPattern   = "segment_%05d.ts"

	// stderrTailLines bounds the diagnostic tail kept from the engine's
	// stderr stream.
	stderrTailLines = 30
)

// FFmpegConfig holds configuration for the FFmpeg-backed engine.
type FFmpegConfig struct {
	// FFmpegPath is the path to the ffmpeg binary.
	// If empty, "ffmpeg" will be used (assumes it's in PATH).
	FFmpegPath string

	// FFprobePath is the path to the ffprobe binary.
	// If empty, "ffprobe" will be used.
	FFprobePath string

	// VideoCodec is the video codec to use.
	// Default: libx264
	VideoCodec string

	// VideoPreset controls the encoding speed/quality tradeoff.
	// Options: ultrafast, superfast, veryfast, faster, fast, medium, slow, slower, veryslow
	// Default: fast
	VideoPreset string

	// AudioCodec is the audio codec to use.
	// Default: aac
	AudioCodec string

	// SegmentDuration is the target duration of each HLS segment in seconds.
	SegmentDuration int
}

// DefaultFFmpegConfig returns an FFmpegConfig with production-ready defaults.
func DefaultFFmpegConfig() FFmpegConfig {
	return FFmpegConfig{
		FFmpegPath:      "ffmpeg",
		FFprobePath:     "ffprobe",
		VideoCodec:      "libx264",
		VideoPreset:     "fast",
		AudioCodec:      "aac",
		SegmentDuration: 10,
	}
}

// FFmpegEngine implements Engine by shelling out to ffmpeg and ffprobe.
type FFmpegEngine struct {
	config FFmpegConfig
	logger *slog.Logger
}

// Compile-time verification that FFmpegEngine implements Engine.
var _ Engine = (*FFmpegEngine)(nil)

// NewFFmpegEngine creates a new FFmpeg-backed engine.
func NewFFmpegEngine(cfg FFmpegConfig, logger *slog.Logger) *FFmpegEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &FFmpegEngine{
		config: cfg,
		logger: logger,
	}
}

// probeFormat mirrors the subset of ffprobe's -show_format JSON output
// the pipeline needs.
type probeFormat struct {
	Duration string `json:"duration"`
}

type probeStream struct {
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

type probeOutput struct {
	Format  probeFormat   `json:"format"`
	Streams []probeStream `json:"streams"`
}

// Probe runs ffprobe in a read-only analysis mode and parses its JSON
// output into MediaInfo.
func (e *FFmpegEngine) Probe(ctx context.Context, inputPath string) (*MediaInfo, error) {
	if err := e.validateInput(inputPath); err != nil {
		return nil, &ProbeError{Path: inputPath, Reason: "input not readable", Err: err}
	}

	cmd := exec.CommandContext(ctx, e.config.FFprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		inputPath,
	)

	var stderr strings.Builder
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, &ProbeError{Path: inputPath, Reason: "probe cancelled", Err: ctx.Err()}
		}
		e.logger.Error("ffprobe failed",
			slog.String("input", inputPath),
			slog.String("stderr", tail(stderr.String(), stderrTailLines)),
		)
		return nil, &ProbeError{Path: inputPath, Reason: "ffprobe execution failed", Err: err}
	}

	info, err := parseProbeOutput(out)
	if err != nil {
		return nil, &ProbeError{Path: inputPath, Reason: "invalid probe output", Err: err}
	}

	return info, nil
}

// parseProbeOutput extracts duration and resolution from ffprobe JSON.
// A missing or non-numeric field is an error, never a zero value.
func parseProbeOutput(data []byte) (*MediaInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode probe JSON: %w", err)
	}

	if out.Format.Duration == "" {
		return nil, fmt.Errorf("probe output has no duration field")
	}
	seconds, err := strconv.ParseFloat(out.Format.Duration, 64)
	if err != nil {
		return nil, fmt.Errorf("parse duration %q: %w", out.Format.Duration, err)
	}
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return nil, fmt.Errorf("duration %q out of range", out.Format.Duration)
	}

	var video *probeStream
	for i := range out.Streams {
		if out.Streams[i].CodecType == "video" {
			video = &out.Streams[i]
			break
		}
	}
	if video == nil {
		return nil, fmt.Errorf("probe output has no video stream")
	}
	if video.Width <= 0 || video.Height <= 0 {
		return nil, fmt.Errorf("video stream has invalid dimensions %dx%d", video.Width, video.Height)
	}

	return &MediaInfo{
		DurationSeconds: int(math.Round(seconds)),
		Width:           video.Width,
		Height:          video.Height,
	}, nil
}

// TranscodeToHLS converts the input video to a single HLS rendition.
// FFmpeg writes all progress and diagnostics to stderr; a line-buffered
// scanner drains the stream while the process runs so a chatty engine
// can never deadlock against a full pipe buffer.
func (e *FFmpegEngine) TranscodeToHLS(ctx context.Context, inputPath, outputDir string) (*HLSOutput, error) {
	if err := e.validateInput(inputPath); err != nil {
		return nil, &TranscodeError{Path: inputPath, Err: err}
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, &TranscodeError{Path: inputPath, Err: fmt.Errorf("create output directory: %w", err)}
	}

	manifestPath := filepath.Join(outputDir, manifestFileName)
	args := e.buildFFmpegArgs(inputPath, manifestPath, filepath.Join(outputDir, segmentPattern))

	cmd := exec.CommandContext(ctx, e.config.FFmpegPath, args...)
	cmd.Stdout = nil

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &TranscodeError{Path: inputPath, Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		return nil, &TranscodeError{Path: inputPath, Err: fmt.Errorf("start ffmpeg: %w", err)}
	}

	tailCh := e.drainStderr(inputPath, stderr)

	waitErr := cmd.Wait()
	stderrTail := <-tailCh

	if waitErr != nil {
		if ctx.Err() != nil {
			return nil, &TranscodeError{Path: inputPath, StderrTail: stderrTail, Err: fmt.Errorf("transcoding cancelled: %w", ctx.Err())}
		}
		e.logger.Error("ffmpeg failed",
			slog.String("input", inputPath),
			slog.String("stderr_tail", stderrTail),
		)
		return nil, &TranscodeError{Path: inputPath, StderrTail: stderrTail, Err: fmt.Errorf("ffmpeg execution failed: %w", waitErr)}
	}

	segments, err := collectSegments(outputDir)
	if err != nil {
		return nil, &TranscodeError{Path: inputPath, Err: err}
	}

	return &HLSOutput{
		ManifestPath: manifestPath,
		SegmentPaths: segments,
	}, nil
}

// drainStderr consumes the engine's diagnostic stream line by line,
// logging each line and returning the bounded tail once the stream
// closes.
func (e *FFmpegEngine) drainStderr(inputPath string, r io.Reader) <-chan string {
	done := make(chan string, 1)

	go func() {
		var lines []string
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)
		for scanner.Scan() {
			line := scanner.Text()
			e.logger.Debug("ffmpeg", slog.String("input", inputPath), slog.String("line", line))

			lines = append(lines, line)
			if len(lines) > stderrTailLines {
				lines = lines[1:]
			}
		}
		done <- strings.Join(lines, "\n")
	}()

	return done
}

// validateInput checks if the input file exists and is readable.
func (e *FFmpegEngine) validateInput(inputPath string) error {
	info, err := os.Stat(inputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("input file does not exist: %s", inputPath)
		}
		return fmt.Errorf("failed to access input file: %w", err)
	}

	if info.IsDir() {
		return fmt.Errorf("input path is a directory, expected a file: %s", inputPath)
	}

	return nil
}

// buildFFmpegArgs constructs the FFmpeg command arguments for a single
// broadly-compatible VOD rendition.
func (e *FFmpegEngine) buildFFmpegArgs(inputPath, manifestPath, segmentPath string) []string {
	return []string{
		"-i", inputPath,
		"-c:v", e.config.VideoCodec,
		"-preset", e.config.VideoPreset,
		"-c:a", e.config.AudioCodec,
		"-f", "hls",
		"-hls_time", strconv.Itoa(e.config.SegmentDuration),
		"-hls_list_size", "0", // Include all segments in playlist
		"-hls_playlist_type", "vod",
		"-hls_segment_filename", segmentPath,
		"-y", // Overwrite output files without asking
		manifestPath,
	}
}

// collectSegments finds all generated .ts segment files in the output
// directory, sorted by file name so the order matches the zero-padded
// segment pattern and therefore playback order.
func collectSegments(outputDir string) ([]string, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	var segments []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".ts") {
			segments = append(segments, filepath.Join(outputDir, entry.Name()))
		}
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("no segments generated in output directory")
	}

	sort.Strings(segments)
	return segments, nil
}

// tail returns the last n lines of s.
func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
