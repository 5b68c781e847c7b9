package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/image/draw"

	// Input formats beyond the standard library's.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/deepteams/m4v"
)

// source yields input frames in display order. Next returns io.EOF after
// the last frame.
type source interface {
	Size() (width, height int)
	Next() (*m4v.Frame, error)
	Close() error
}

// frameOrErr travels from the reader goroutine to the encoder.
type frameOrErr struct {
	frame *m4v.Frame
	err   error
}

// frameReader decodes frames from a source in the background so that
// image decoding and scaling overlap with encoding.
type frameReader struct {
	C <-chan frameOrErr

	cancel context.CancelFunc
	done   chan struct{}
}

// readFrames starts reading src. At most limit frames are read when
// limit > 0. C is closed after the last frame, the first error or
// cancellation. Stop must be called before src is closed.
func readFrames(ctx context.Context, src source, limit int) *frameReader {
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan frameOrErr, 4)
	r := &frameReader{C: ch, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(r.done)
		defer close(ch)
		for n := 0; limit <= 0 || n < limit; n++ {
			if ctx.Err() != nil {
				return
			}
			f, err := src.Next()
			if err == io.EOF {
				return
			}
			select {
			case ch <- frameOrErr{f, err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return r
}

// Stop cancels reading and waits until the reader no longer touches the
// source. A Next call in progress is allowed to finish.
func (r *frameReader) Stop() {
	r.cancel()
	<-r.done
}

// parseSize parses "WIDTHxHEIGHT".
func parseSize(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("size %q: want WIDTHxHEIGHT", s)
	}
	w, err1 := strconv.Atoi(ws)
	h, err2 := strconv.Atoi(hs)
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("size %q: want WIDTHxHEIGHT", s)
	}
	return w, h, nil
}

func parseLayout(s string) (m4v.Layout, error) {
	switch strings.ToLower(s) {
	case "i420", "iyuv":
		return m4v.LayoutI420, nil
	case "yv12":
		return m4v.LayoutYV12, nil
	case "yuy2", "yuyv":
		return m4v.LayoutYUY2, nil
	case "yvyu":
		return m4v.LayoutYVYU, nil
	case "uyvy":
		return m4v.LayoutUYVY, nil
	default:
		return 0, fmt.Errorf("unknown layout %q (use i420, yv12, yuy2, yvyu or uyvy)", s)
	}
}

// rawSource reads tightly packed YUV frames.
type rawSource struct {
	r      io.ReadCloser
	w, h   int
	layout m4v.Layout
	size   int
}

func newRawSource(r io.ReadCloser, w, h int, layout m4v.Layout) *rawSource {
	size := w*h + 2*(w/2)*(h/2)
	if layout >= m4v.LayoutYUY2 {
		size = 2 * w * h
	}
	return &rawSource{r: r, w: w, h: h, layout: layout, size: size}
}

func (s *rawSource) Size() (int, int) { return s.w, s.h }

func (s *rawSource) Next() (*m4v.Frame, error) {
	buf := make([]byte, s.size)
	if _, err := io.ReadFull(s.r, buf); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, errors.New("truncated raw frame")
		}
		return nil, err
	}
	return &m4v.Frame{Layout: s.layout, Planes: [3][]byte{buf}}, nil
}

func (s *rawSource) Close() error { return s.r.Close() }

// imageSource decodes one image file per frame and scales it to the
// stream size.
type imageSource struct {
	paths []string
	w, h  int
}

// newImageSource expands directories into their sorted image files. The
// stream size defaults to the first image's size rounded down to even.
func newImageSource(args []string, w, h int) (*imageSource, error) {
	var paths []string
	for _, arg := range args {
		fi, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !fi.IsDir() {
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		var names []string
		for _, e := range entries {
			if !e.IsDir() && isImageFile(e.Name()) {
				names = append(names, filepath.Join(arg, e.Name()))
			}
		}
		sort.Strings(names)
		paths = append(paths, names...)
	}
	if len(paths) == 0 {
		return nil, errors.New("no input images")
	}

	if w == 0 || h == 0 {
		f, err := os.Open(paths[0])
		if err != nil {
			return nil, err
		}
		cfg, _, err := image.DecodeConfig(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", paths[0], err)
		}
		w, h = evenSize(cfg.Width, cfg.Height, w, h)
	}
	return &imageSource{paths: paths, w: w, h: h}, nil
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return true
	}
	return false
}

// evenSize fills missing dimensions from the image size, keeping the
// aspect ratio when one of them is given, and rounds down to even.
func evenSize(imgW, imgH, w, h int) (int, int) {
	switch {
	case w == 0 && h == 0:
		w, h = imgW, imgH
	case w == 0:
		w = imgW * h / max(imgH, 1)
	case h == 0:
		h = imgH * w / max(imgW, 1)
	}
	return max(w&^1, 2), max(h&^1, 2)
}

func (s *imageSource) Size() (int, int) { return s.w, s.h }

func (s *imageSource) Next() (*m4v.Frame, error) {
	if len(s.paths) == 0 {
		return nil, io.EOF
	}
	path := s.paths[0]
	s.paths = s.paths[1:]

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return frameFromImage(img, s.w, s.h)
}

func (s *imageSource) Close() error { return nil }

// frameFromImage scales img to w x h when needed and converts it.
func frameFromImage(img image.Image, w, h int) (*m4v.Frame, error) {
	b := img.Bounds()
	if b.Dx() != w || b.Dy() != h {
		dst := image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		img = dst
	}
	return m4v.FrameFromImage(img)
}

// gifSource plays back the frames of an animated GIF, applying each
// frame's disposal to a persistent canvas.
type gifSource struct {
	g      *gif.GIF
	canvas *image.NRGBA
	next   int
	w, h   int

	// Disposal pending from the previous frame. saved holds the canvas
	// under that frame for DisposalPrevious.
	pendingRect image.Rectangle
	pendingDisp byte
	saved       *image.NRGBA
}

func newGIFSource(r io.Reader, w, h int) (*gifSource, error) {
	g, err := gif.DecodeAll(r)
	if err != nil {
		return nil, fmt.Errorf("decoding GIF: %w", err)
	}
	if len(g.Image) == 0 {
		return nil, errors.New("GIF has no frames")
	}
	cw, ch := g.Config.Width, g.Config.Height
	if cw == 0 || ch == 0 {
		cw, ch = g.Image[0].Bounds().Dx(), g.Image[0].Bounds().Dy()
	}
	w, h = evenSize(cw, ch, w, h)
	return &gifSource{g: g, canvas: image.NewNRGBA(image.Rect(0, 0, cw, ch)), w: w, h: h}, nil
}

func (s *gifSource) Size() (int, int) { return s.w, s.h }

func (s *gifSource) Next() (*m4v.Frame, error) {
	if s.next >= len(s.g.Image) {
		return nil, io.EOF
	}
	s.dispose()

	frame := s.g.Image[s.next]
	var disposal byte
	if s.next < len(s.g.Disposal) {
		disposal = s.g.Disposal[s.next]
	}
	s.remember(frame.Bounds(), disposal)
	draw.Draw(s.canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
	s.next++
	return frameFromImage(s.canvas, s.w, s.h)
}

// remember records how the area r of the frame about to be drawn is
// disposed of before the next one.
func (s *gifSource) remember(r image.Rectangle, disposal byte) {
	s.pendingRect = r.Intersect(s.canvas.Bounds())
	s.pendingDisp = disposal
	s.saved = nil
	if disposal == gif.DisposalPrevious && !s.pendingRect.Empty() {
		s.saved = image.NewNRGBA(s.pendingRect)
		draw.Draw(s.saved, s.pendingRect, s.canvas, s.pendingRect.Min, draw.Src)
	}
}

// dispose applies the pending disposal of the previous frame.
func (s *gifSource) dispose() {
	switch s.pendingDisp {
	case gif.DisposalBackground:
		draw.Draw(s.canvas, s.pendingRect, image.Transparent, image.Point{}, draw.Src)
	case gif.DisposalPrevious:
		if s.saved != nil {
			draw.Draw(s.canvas, s.pendingRect, s.saved, s.pendingRect.Min, draw.Src)
		}
	}
	s.pendingDisp = gif.DisposalNone
}

func (s *gifSource) Close() error { return nil }
