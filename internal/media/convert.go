package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"os"
	"os/exec"

	"crosspost/internal/queue"
	"crosspost/internal/services"
)

// Converter turns raw submitted media into the canonical publishable format:
// flat-color JPEG for photos, MP4 for videos. The returned path is the
// converted file; the original is left in place.
type Converter interface {
	Convert(ctx context.Context, path string, kind queue.MediaKind) (string, error)
}

// FFmpegConverter re-encodes photos in-process and shells out to ffmpeg for
// video transcodes.
type FFmpegConverter struct {
	binary      string
	jpegQuality int
}

// NewFFmpegConverter builds a converter using the given ffmpeg binary name or
// path and JPEG encode quality.
func NewFFmpegConverter(binary string, jpegQuality int) *FFmpegConverter {
	if binary == "" {
		binary = "ffmpeg"
	}
	if jpegQuality <= 0 || jpegQuality > 100 {
		jpegQuality = 90
	}
	return &FFmpegConverter{binary: binary, jpegQuality: jpegQuality}
}

// CheckBinary verifies the configured ffmpeg binary can be resolved.
func (c *FFmpegConverter) CheckBinary() error {
	if _, err := exec.LookPath(c.binary); err != nil {
		return fmt.Errorf("ffmpeg binary %q not found: %w", c.binary, err)
	}
	return nil
}

// Convert dispatches on media kind. Unknown kinds are a conversion error.
func (c *FFmpegConverter) Convert(ctx context.Context, path string, kind queue.MediaKind) (string, error) {
	switch kind {
	case queue.KindPhoto:
		return c.convertPhoto(path)
	case queue.KindVideo:
		return c.convertVideo(ctx, path)
	default:
		return "", services.Wrap(services.ErrConversion, "media", "convert", fmt.Sprintf("unsupported media kind %q", kind), nil)
	}
}

// convertPhoto decodes the source image, flattens any alpha channel onto a
// white background, and re-encodes as JPEG next to the original.
func (c *FFmpegConverter) convertPhoto(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", services.Wrap(services.ErrConversion, "media", "convert photo", "read source", err)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", services.Wrap(services.ErrConversion, "media", "convert photo", "decode image", err)
	}

	bounds := src.Bounds()
	flat := image.NewRGBA(bounds)
	draw.Draw(flat, bounds, image.White, image.Point{}, draw.Src)
	draw.Draw(flat, bounds, src, bounds.Min, draw.Over)

	dst := path + "_converted.jpg"
	out, err := os.Create(dst)
	if err != nil {
		return "", services.Wrap(services.ErrConversion, "media", "convert photo", "create output", err)
	}
	defer out.Close()

	if err := jpeg.Encode(out, flat, &jpeg.Options{Quality: c.jpegQuality}); err != nil {
		return "", services.Wrap(services.ErrConversion, "media", "convert photo", "encode jpeg", err)
	}
	if err := out.Close(); err != nil {
		return "", services.Wrap(services.ErrConversion, "media", "convert photo", "close output", err)
	}
	return dst, nil
}

// convertVideo transcodes the source to MP4 via ffmpeg. Stderr is captured
// into the error so transcode failures are diagnosable from the queue record.
func (c *FFmpegConverter) convertVideo(ctx context.Context, path string) (string, error) {
	dst := path + "_converted.mp4"

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.binary,
		"-y",
		"-i", path,
		"-c:v", "libx264",
		"-c:a", "aac",
		"-movflags", "+faststart",
		dst,
	)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := fmt.Sprintf("ffmpeg transcode: %s", lastLine(stderr.String()))
		return "", services.Wrap(services.ErrConversion, "media", "convert video", detail, err)
	}
	return dst, nil
}

func lastLine(output string) string {
	line := ""
	start := 0
	for i := 0; i < len(output); i++ {
		if output[i] == '\n' {
			if i > start {
				line = output[start:i]
			}
			start = i + 1
		}
	}
	if start < len(output) {
		line = output[start:]
	}
	if line == "" {
		return "no output"
	}
	return line
}
