package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/star/orbitviz/internal/frames"
)

// Export defaults.
const (
	DefaultFPS    = 30
	DefaultWidth  = 480
	DefaultHeight = 480
	DefaultFFmpeg = "ffmpeg"
)

// Options controls one export.
type Options struct {
	Format Format
	Path   string
	FPS    int
	Width  int
	Height int
	// FFmpeg is the encoder binary for MP4, looked up in PATH when not absolute.
	FFmpeg string
}

func (o Options) withDefaults() Options {
	if o.FPS <= 0 {
		o.FPS = DefaultFPS
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	// yuv420p needs even dimensions.
	o.Width += o.Width % 2
	o.Height += o.Height % 2
	if o.FFmpeg == "" {
		o.FFmpeg = DefaultFFmpeg
	}
	return o
}

// ExportFailure reports an export that did not produce its output file.
// Any partial output has been removed.
type ExportFailure struct {
	Path string
	Err  error
}

func (e *ExportFailure) Error() string {
	return fmt.Sprintf("export %s: %v", e.Path, e.Err)
}

func (e *ExportFailure) Unwrap() error {
	return e.Err
}

// Export renders every frame of seq and writes the animation to opts.Path.
// Output is written to a temporary file in the same directory and renamed
// into place on success, so opts.Path either holds a complete file or does
// not exist.
func Export(ctx context.Context, seq frames.Sequence, opts Options, logger *slog.Logger) error {
	opts = opts.withDefaults()
	if err := export(ctx, &seq, opts, logger); err != nil {
		return &ExportFailure{Path: opts.Path, Err: err}
	}
	return nil
}

func export(ctx context.Context, seq *frames.Sequence, opts Options, logger *slog.Logger) (err error) {
	switch opts.Format {
	case GIF, MP4:
	default:
		return fmt.Errorf("%w %q", ErrUnsupportedFormat, opts.Format)
	}
	if len(seq.Frames) == 0 {
		return fmt.Errorf("sequence has no frames")
	}

	canvas, err := NewCanvas(seq, opts.Width, opts.Height)
	if err != nil {
		return err
	}
	defer canvas.Close()

	dir, base := filepath.Split(opts.Path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	var enc encoder
	switch opts.Format {
	case GIF:
		enc = newGIFEncoder(tmp, opts.FPS)
	case MP4:
		if enc, err = newFFmpegEncoder(ctx, opts.FFmpeg, tmpPath, opts.FPS); err != nil {
			return err
		}
	}

	for i := 0; i < canvas.Frames(); i++ {
		if err = encodeFrame(ctx, canvas, enc, i); err != nil {
			enc.Close()
			return err
		}
	}
	if err = enc.Close(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err = os.Rename(tmpPath, opts.Path); err != nil {
		return fmt.Errorf("moving into place: %w", err)
	}

	logger.Debug("export complete",
		"path", opts.Path,
		"format", string(opts.Format),
		"frames", canvas.Frames(),
		"size", fmt.Sprintf("%dx%d", opts.Width, opts.Height),
	)
	return nil
}

func encodeFrame(ctx context.Context, canvas *Canvas, enc encoder, i int) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("rendering frame %d: %w", i, err)
	}
	img, err := canvas.DrawFrame(i)
	if err != nil {
		return fmt.Errorf("drawing frame %d: %w", i, err)
	}
	return enc.Encode(img)
}
