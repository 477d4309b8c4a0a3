package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultFFmpegConfig(t *testing.T) {
	cfg := DefaultFFmpegConfig()

	tests := []struct {
		name     string
		got      any
		expected any
	}{
		{"FFmpegPath", cfg.FFmpegPath, "ffmpeg"},
		{"FFprobePath", cfg.FFprobePath, "ffprobe"},
		{"VideoCodec", cfg.VideoCodec, "libx264"},
		{"VideoPreset", cfg.VideoPreset, "fast"},
		{"AudioCodec", cfg.AudioCodec, "aac"},
		{"SegmentDuration", cfg.SegmentDuration, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %v, expected %v", tt.got, tt.expected)
			}
		})
	}
}

func TestParseProbeOutput(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		want    MediaInfo
		wantErr bool
	}{
		{
			name: "valid output",
			json: `{
				"format": {"duration": "10.047000"},
				"streams": [
					{"codec_type": "audio"},
					{"codec_type": "video", "width": 1280, "height": 720}
				]
			}`,
			want: MediaInfo{DurationSeconds: 10, Width: 1280, Height: 720},
		},
		{
			name: "duration rounds to nearest second",
			json: `{
				"format": {"duration": "9.61"},
				"streams": [{"codec_type": "video", "width": 640, "height": 360}]
			}`,
			want: MediaInfo{DurationSeconds: 10, Width: 640, Height: 360},
		},
		{
			name:    "missing duration",
			json:    `{"format": {}, "streams": [{"codec_type": "video", "width": 640, "height": 360}]}`,
			wantErr: true,
		},
		{
			name:    "non-numeric duration",
			json:    `{"format": {"duration": "N/A"}, "streams": [{"codec_type": "video", "width": 640, "height": 360}]}`,
			wantErr: true,
		},
		{
			name:    "negative duration",
			json:    `{"format": {"duration": "-3"}, "streams": [{"codec_type": "video", "width": 640, "height": 360}]}`,
			wantErr: true,
		},
		{
			name:    "no video stream",
			json:    `{"format": {"duration": "10"}, "streams": [{"codec_type": "audio"}]}`,
			wantErr: true,
		},
		{
			name:    "zero dimensions",
			json:    `{"format": {"duration": "10"}, "streams": [{"codec_type": "video", "width": 0, "height": 0}]}`,
			wantErr: true,
		},
		{
			name:    "malformed JSON",
			json:    `{"format":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := parseProbeOutput([]byte(tt.json))

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if *info != tt.want {
				t.Errorf("got %+v, expected %+v", *info, tt.want)
			}
		})
	}
}

func TestFFmpegEngine_ValidateInput(t *testing.T) {
	engine := NewFFmpegEngine(DefaultFFmpegConfig(), nil)

	t.Run("non-existent file returns error", func(t *testing.T) {
		err := engine.validateInput("/non/existent/file.mp4")
		if err == nil {
			t.Error("expected error for non-existent file")
		}
	})

	t.Run("directory returns error", func(t *testing.T) {
		tmpDir := t.TempDir()
		err := engine.validateInput(tmpDir)
		if err == nil {
			t.Error("expected error when input is a directory")
		}
	})

	t.Run("existing file succeeds", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "test.mp4")
		if err := os.WriteFile(tmpFile, []byte("dummy"), 0o644); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}

		if err := engine.validateInput(tmpFile); err != nil {
			t.Errorf("unexpected error for existing file: %v", err)
		}
	})
}

func TestFFmpegEngine_BuildFFmpegArgs(t *testing.T) {
	cfg := DefaultFFmpegConfig()
	cfg.SegmentDuration = 10
	engine := NewFFmpegEngine(cfg, nil)

	args := engine.buildFFmpegArgs("/in/video.mp4", "/out/playlist.m3u8", "/out/segment_%05d.ts")
	joined := strings.Join(args, " ")

	for _, want := range []string{
		"-i /in/video.mp4",
		"-c:v libx264",
		"-c:a aac",
		"-f hls",
		"-hls_time 10",
		"-hls_list_size 0",
		"-hls_playlist_type vod",
		"-hls_segment_filename /out/segment_%05d.ts",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected args to contain %q, got %q", want, joined)
		}
	}

	if args[len(args)-1] != "/out/playlist.m3u8" {
		t.Errorf("expected manifest path as final argument, got %q", args[len(args)-1])
	}
}

func TestFFmpegEngine_TranscodeToHLS_ContextCancellation(t *testing.T) {
	// A non-existent ffmpeg path guarantees failure even if the
	// cancelled context were ignored.
	cfg := DefaultFFmpegConfig()
	cfg.FFmpegPath = "/non/existent/ffmpeg"
	engine := NewFFmpegEngine(cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inputFile := filepath.Join(t.TempDir(), "input.mp4")
	if err := os.WriteFile(inputFile, []byte("dummy"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	_, err := engine.TranscodeToHLS(ctx, inputFile, t.TempDir())
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}

	var tErr *TranscodeError
	if !errors.As(err, &tErr) {
		t.Errorf("expected *TranscodeError, got %T", err)
	}
}

func TestCollectSegments(t *testing.T) {
	t.Run("returns segments sorted by name", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{"segment_00002.ts", "segment_00000.ts", "segment_00001.ts", "playlist.m3u8"} {
			if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
				t.Fatalf("failed to create file: %v", err)
			}
		}

		segments, err := collectSegments(dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(segments) != 3 {
			t.Fatalf("expected 3 segments, got %d", len(segments))
		}
		for i, want := range []string{"segment_00000.ts", "segment_00001.ts", "segment_00002.ts"} {
			if filepath.Base(segments[i]) != want {
				t.Errorf("segment %d: expected %s, got %s", i, want, filepath.Base(segments[i]))
			}
		}
	})

	t.Run("empty directory returns error", func(t *testing.T) {
		if _, err := collectSegments(t.TempDir()); err == nil {
			t.Error("expected error for directory with no segments")
		}
	})
}

func TestProbeError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &ProbeError{Path: "/x.mp4", Reason: "test", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to match wrapped cause")
	}

	var probeErr *ProbeError
	if !errors.As(error(err), &probeErr) {
		t.Error("expected errors.As to match *ProbeError")
	}
}
