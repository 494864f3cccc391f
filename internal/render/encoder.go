package render

import (
	"context"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"image/png"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// Encoder consumes frames in order and writes them to one output.
type Encoder interface {
	Add(img image.Image) error
	Close() error
	// Files lists what the encoder wrote, valid after Close.
	Files() []string
}

// gifEncoder buffers paletted frames and writes an endlessly looping GIF
// on Close.
type gifEncoder struct {
	path  string
	delay int // hundredths of a second
	anim  gif.GIF
}

func newGIFEncoder(path string, fps int) *gifEncoder {
	delay := 100 / fps
	if delay < 2 {
		delay = 2
	}
	return &gifEncoder{path: path, delay: delay}
}

func (e *gifEncoder) Add(img image.Image) error {
	b := img.Bounds()
	pm := image.NewPaletted(b, palette.Plan9)
	draw.FloydSteinberg.Draw(pm, b, img, b.Min)
	e.anim.Image = append(e.anim.Image, pm)
	e.anim.Delay = append(e.anim.Delay, e.delay)
	return nil
}

// hold repeats the last frame so the final ranking stays on screen.
func (e *gifEncoder) hold(frames int) {
	n := len(e.anim.Image)
	if n == 0 {
		return
	}
	e.anim.Delay[n-1] += e.delay * frames
}

func (e *gifEncoder) Close() error {
	if len(e.anim.Image) == 0 {
		return ErrNoFrames
	}
	f, err := os.Create(e.path)
	if err != nil {
		return fmt.Errorf("create gif: %w", err)
	}
	if err := gif.EncodeAll(f, &e.anim); err != nil {
		f.Close()
		return fmt.Errorf("encode gif: %w", err)
	}
	return f.Close()
}

func (e *gifEncoder) Files() []string { return []string{e.path} }

// pngEncoder writes each frame as frame_0000.png, frame_0001.png, ... in dir.
type pngEncoder struct {
	dir   string
	files []string
}

func newPNGEncoder(dir string) (*pngEncoder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create frame dir: %w", err)
	}
	return &pngEncoder{dir: dir}, nil
}

func (e *pngEncoder) Add(img image.Image) error {
	path := filepath.Join(e.dir, fmt.Sprintf("frame_%04d.png", len(e.files)))
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	e.files = append(e.files, path)
	return f.Close()
}

func (e *pngEncoder) Close() error {
	if len(e.files) == 0 {
		return ErrNoFrames
	}
	return nil
}

func (e *pngEncoder) Files() []string { return e.files }

// Abort removes the partially written frame directory.
func (e *pngEncoder) Abort() {
	os.RemoveAll(e.dir)
	e.files = nil
}

// ffmpegEncoder pipes PNG frames into an ffmpeg process producing H.264.
type ffmpegEncoder struct {
	path  string
	cmd   *exec.Cmd
	stdin io.WriteCloser
	count int
}

func newFFmpegEncoder(ctx context.Context, bin, path string, fps int) (*ffmpegEncoder, error) {
	cmd := exec.CommandContext(ctx, bin,
		"-y", "-loglevel", "error",
		"-f", "image2pipe", "-framerate", strconv.Itoa(fps), "-i", "-",
		"-c:v", "libx264", "-pix_fmt", "yuv420p",
		"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2",
		path,
	)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	return &ffmpegEncoder{path: path, cmd: cmd, stdin: stdin}, nil
}

func (e *ffmpegEncoder) Add(img image.Image) error {
	if err := png.Encode(e.stdin, img); err != nil {
		return fmt.Errorf("pipe frame %d to ffmpeg: %w", e.count, err)
	}
	e.count++
	return nil
}

func (e *ffmpegEncoder) Close() error {
	if err := e.stdin.Close(); err != nil {
		return err
	}
	if err := e.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg: %w", err)
	}
	if e.count == 0 {
		return ErrNoFrames
	}
	return nil
}

func (e *ffmpegEncoder) Files() []string { return []string{e.path} }

// Abort stops ffmpeg without waiting for a complete stream.
func (e *ffmpegEncoder) Abort() {
	e.stdin.Close()
	if e.cmd.Process != nil {
		e.cmd.Process.Kill()
	}
	e.cmd.Wait()
	os.Remove(e.path)
}
