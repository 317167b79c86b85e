// Package ffmpegtest generates small synthetic videos for tests that need a
// real ffmpeg round trip.
package ffmpegtest

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"testing"
)

// ClipFrames is the number of frames in a clip made by Clip.
const ClipFrames = 5

// Clip renders a one-second 64x48 test pattern at ClipFrames fps into dir
// and returns its path. The test is skipped when ffmpeg or ffprobe is not
// installed.
func Clip(t testing.TB, dir string) string {
	t.Helper()
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not found on PATH", bin)
		}
	}

	path := filepath.Join(dir, "clip.mp4")
	cmd := exec.Command("ffmpeg",
		"-v", "error",
		"-f", "lavfi",
		"-i", fmt.Sprintf("testsrc=duration=1:size=64x48:rate=%d", ClipFrames),
		"-c:v", "mpeg4",
		"-pix_fmt", "yuv420p",
		"-y", path,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("generate clip: %v: %s", err, out)
	}
	return path
}
