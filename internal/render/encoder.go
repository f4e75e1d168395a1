package render

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color/palette"
	imgdraw "image/draw"
	"image/gif"
	"image/png"
	"io"
	"os/exec"
	"strconv"
)

// ErrEncoderUnavailable reports a missing external encoder binary.
var ErrEncoderUnavailable = errors.New("encoder unavailable")

// encoder consumes frames in order. Close flushes the output.
type encoder interface {
	Encode(img image.Image) error
	Close() error
}

// gifEncoder quantizes frames to the Plan9 palette and writes them on Close.
type gifEncoder struct {
	w     io.Writer
	delay int // hundredths of a second
	anim  gif.GIF
}

func newGIFEncoder(w io.Writer, fps int) *gifEncoder {
	delay := 100 / fps
	if delay < 1 {
		delay = 1
	}
	return &gifEncoder{w: w, delay: delay}
}

func (e *gifEncoder) Encode(img image.Image) error {
	b := img.Bounds()
	pm := image.NewPaletted(b, palette.Plan9)
	imgdraw.Draw(pm, b, img, b.Min, imgdraw.Src)
	e.anim.Image = append(e.anim.Image, pm)
	e.anim.Delay = append(e.anim.Delay, e.delay)
	return nil
}

func (e *gifEncoder) Close() error {
	if len(e.anim.Image) == 0 {
		return errors.New("no frames to encode")
	}
	bw := bufio.NewWriter(e.w)
	if err := gif.EncodeAll(bw, &e.anim); err != nil {
		return fmt.Errorf("encoding gif: %w", err)
	}
	return bw.Flush()
}

// ffmpegEncoder pipes PNG frames into ffmpeg, which writes an H.264 MP4 to path.
type ffmpegEncoder struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	frames int
}

func newFFmpegEncoder(ctx context.Context, bin, path string, fps int) (*ffmpegEncoder, error) {
	resolved, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEncoderUnavailable, bin, err)
	}
	e := &ffmpegEncoder{}
	e.cmd = exec.CommandContext(ctx, resolved,
		"-y", "-loglevel", "error",
		"-f", "image2pipe", "-framerate", strconv.Itoa(fps), "-i", "-",
		"-c:v", "libx264", "-pix_fmt", "yuv420p",
		"-f", "mp4", path,
	)
	e.cmd.Stderr = &e.stderr
	if e.stdin, err = e.cmd.StdinPipe(); err != nil {
		return nil, fmt.Errorf("ffmpeg stdin: %w", err)
	}
	if err := e.cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting ffmpeg: %w", err)
	}
	return e, nil
}

func (e *ffmpegEncoder) Encode(img image.Image) error {
	if err := png.Encode(e.stdin, img); err != nil {
		return fmt.Errorf("writing frame %d to ffmpeg: %w", e.frames, err)
	}
	e.frames++
	return nil
}

func (e *ffmpegEncoder) Close() error {
	closeErr := e.stdin.Close()
	if err := e.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, bytes.TrimSpace(e.stderr.Bytes()))
	}
	return closeErr
}
