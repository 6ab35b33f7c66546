package sampler

import (
	"path/filepath"
	"strings"
	"testing"

	"sopgen/internal/media/ffprobe"
)

func TestExtractArgs(t *testing.T) {
	args := extractArgs(ExtractRequest{
		InputPath:       "/videos/demo.mp4",
		IntervalSeconds: 2,
		MaxWidth:        512,
		Quality:         2,
		MaxFrames:       5,
		OutputDir:       "/tmp/scratch",
	})
	joined := strings.Join(args, " ")
	for _, want := range []string{
		"-i /videos/demo.mp4",
		"-vf fps=1/2,scale='min(iw,512)':-2",
		"-q:v 2",
		"-frames:v 5",
		"-nostdin",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in args: %s", want, joined)
		}
	}
	if last := args[len(args)-1]; last != filepath.Join("/tmp/scratch", "frame_%06d.jpg") {
		t.Fatalf("unexpected output pattern %q", last)
	}
}

func TestExtractArgsFractionalIntervalNoCap(t *testing.T) {
	args := extractArgs(ExtractRequest{InputPath: "in.mov", IntervalSeconds: 0.5, MaxWidth: 640, Quality: 4, OutputDir: "out"})
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "fps=1/0.5,scale='min(iw,640)':-2") {
		t.Fatalf("unexpected filter: %s", joined)
	}
	if strings.Contains(joined, "-frames:v") {
		t.Fatalf("expected no frame cap: %s", joined)
	}
}

func TestScaledSize(t *testing.T) {
	tests := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{1920, 1080, 512, 512, 288},
		{640, 480, 512, 512, 384},
		{320, 240, 512, 320, 240},
		{1080, 1920, 512, 512, 910},
		{513, 301, 512, 512, 300},
		{0, 100, 512, 0, 0},
	}
	for _, tc := range tests {
		w, h := ScaledSize(tc.w, tc.h, tc.max)
		if w != tc.wantW || h != tc.wantH {
			t.Fatalf("ScaledSize(%d,%d,%d) = %dx%d, want %dx%d", tc.w, tc.h, tc.max, w, h, tc.wantW, tc.wantH)
		}
		if tc.w > 0 {
			if w > tc.w {
				t.Fatalf("ScaledSize upscaled %d to %d", tc.w, w)
			}
			srcAspect := float64(tc.h) / float64(tc.w)
			gotAspect := float64(h) / float64(w)
			if diff := (gotAspect - srcAspect) * float64(w); diff > 1.01 || diff < -1.01 {
				t.Fatalf("aspect drift of %.2f px for %dx%d", diff, tc.w, tc.h)
			}
		}
	}
}

func TestMetadataFromProbe(t *testing.T) {
	result := ffprobe.Result{
		Streams: []ffprobe.Stream{
			{CodecType: "audio"},
			{CodecType: "video", Width: 1280, Height: 720, AvgFrameRate: "25/1"},
		},
		Format: ffprobe.Format{Duration: "10.0"},
	}
	meta, err := metadataFromProbe(result)
	if err != nil {
		t.Fatalf("metadataFromProbe returned error: %v", err)
	}
	if meta.Width != 1280 || meta.Height != 720 || meta.FrameRate != 25 || meta.DurationSeconds != 10 {
		t.Fatalf("unexpected metadata %+v", meta)
	}
	if meta.FrameCount != 250 {
		t.Fatalf("expected estimated frame count 250, got %d", meta.FrameCount)
	}
	if !meta.HasAudio {
		t.Fatal("expected audio detected")
	}
}

func TestMetadataFromProbeRequiresVideo(t *testing.T) {
	if _, err := metadataFromProbe(ffprobe.Result{Streams: []ffprobe.Stream{{CodecType: "audio"}}}); err == nil {
		t.Fatal("expected error without video stream")
	}
	if _, err := metadataFromProbe(ffprobe.Result{Streams: []ffprobe.Stream{{CodecType: "video"}}}); err == nil {
		t.Fatal("expected error for zero resolution")
	}
}
