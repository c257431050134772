package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// FFmpegConverter shells out to ffmpeg for audio containers the pure-Go
// converter cannot parse (mp3, m4a, ogg, ...).
type FFmpegConverter struct {
	Path string
}

func (c *FFmpegConverter) Convert(ctx context.Context, data []byte, mono bool) ([]byte, error) {
	bin := c.Path
	if bin == "" {
		bin = "ffmpeg"
	}

	args := []string{"-hide_banner", "-loglevel", "error", "-i", "pipe:0"}
	if mono {
		args = append(args, "-ac", "1")
	}
	args = append(args, "-ar", "16000", "-f", "wav", "pipe:1")

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdin = bytes.NewReader(data)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, stderr.String())
	}
	return stdout.Bytes(), nil
}
