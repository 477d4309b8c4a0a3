package media

import (
	"context"
)

// MediaInfo holds the metadata probed from a source file.
type MediaInfo struct {
	// DurationSeconds is the container duration rounded to whole seconds.
	DurationSeconds int
	// Width and Height are the dimensions of the first video stream.
	Width  int
	Height int
}

// HLSOutput contains the result of an HLS transcoding operation.
type HLSOutput struct {
	// ManifestPath is the path to the generated .m3u8 manifest file.
	ManifestPath string
	// SegmentPaths contains paths to all generated .ts segment files,
	// sorted by file name, which matches playback order for the
	// zero-padded pattern the engine writes.
	SegmentPaths []string
}

// Engine defines the capability interface over the external media
// tooling. The real implementation shells out to ffprobe/ffmpeg;
// consumers test against doubles so pipeline logic never needs the
// binaries installed.
type Engine interface {
	// Probe inspects a source file and extracts duration and
	// resolution. A file the tool cannot decode, or structured output
	// missing a numeric duration or dimension, is a *ProbeError.
	Probe(ctx context.Context, inputPath string) (*MediaInfo, error)

	// TranscodeToHLS converts an input video into a single segmented
	// HLS rendition in outputDir, creating the directory if absent.
	// A non-zero engine exit or context cancellation is a
	// *TranscodeError; the subprocess never outlives ctx.
	TranscodeToHLS(ctx context.Context, inputPath, outputDir string) (*HLSOutput, error)
}
