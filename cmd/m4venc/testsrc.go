package main

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/fogleman/gg"
	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/deepteams/m4v"
)

func testsrcCommand() *cli.Command {
	return &cli.Command{
		Name:  "testsrc",
		Usage: l10n.T("Encode a synthetic moving test pattern"),
		Flags: append(append(encoderFlags(),
			&cli.IntFlag{Name: "width", Aliases: []string{"W"}, Value: 320, Usage: l10n.T("Picture width")},
			&cli.IntFlag{Name: "height", Aliases: []string{"H"}, Value: 240, Usage: l10n.T("Picture height")},
			&cli.IntFlag{Name: "length", Value: 50, Usage: l10n.T("Number of frames to generate")},
			&cli.BoolFlag{Name: "raw", Usage: l10n.T("Write raw I420 instead of encoding")},
		), logFlags()...),
		Action: runTestsrc,
	}
}

func runTestsrc(c *cli.Context) error {
	w, h := c.Int("width"), c.Int("height")
	if w <= 0 || h <= 0 || w%2 != 0 || h%2 != 0 {
		return fmt.Errorf("testsrc: %w: %dx%d", m4v.ErrInvalidDimensions, w, h)
	}
	src := newPatternSource(w, h, c.Int("length"))

	if c.Bool("raw") {
		return writeRaw(c, src)
	}
	cfg, err := loadProfile(c)
	if err != nil {
		return fmt.Errorf("testsrc: %w", err)
	}
	return encodeStream(c, cfg, src)
}

// writeRaw writes the pattern as raw I420 frames.
func writeRaw(c *cli.Context, src source) error {
	out, err := createOutput(c.String("output"))
	if err != nil {
		return err
	}
	defer out.discard()

	frames := readFrames(c.Context, src, c.Int("frames"))
	defer frames.Stop()
	for item := range frames.C {
		if item.err != nil {
			return item.err
		}
		if _, err := out.Write(item.frame.Planes[0]); err != nil {
			return err
		}
	}
	return out.commit()
}

// patternSource draws a gradient with a bouncing ball, a sliding bar and
// a frame counter.
type patternSource struct {
	w, h     int
	n, count int
}

func newPatternSource(w, h, length int) *patternSource {
	return &patternSource{w: w, h: h, count: length}
}

func (s *patternSource) Size() (int, int) { return s.w, s.h }

func (s *patternSource) Next() (*m4v.Frame, error) {
	if s.n >= s.count {
		return nil, io.EOF
	}
	dc := s.draw(s.n)
	s.n++
	return m4v.FrameFromImage(dc.Image())
}

func (s *patternSource) Close() error { return nil }

func (s *patternSource) draw(n int) *gg.Context {
	w, h := float64(s.w), float64(s.h)
	dc := gg.NewContext(s.w, s.h)

	grad := gg.NewLinearGradient(0, 0, w, h)
	grad.AddColorStop(0, color.RGBA{40, 60, 140, 255})
	grad.AddColorStop(1, color.RGBA{220, 180, 60, 255})
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, w, h)
	dc.Fill()

	// Bar sliding right at two pixels per frame.
	bar := math.Mod(float64(2*n), w+w/8) - w/8
	dc.SetRGB(0.9, 0.9, 0.9)
	dc.DrawRectangle(bar, h*0.7, w/8, h/10)
	dc.Fill()

	// Ball on a Lissajous path.
	t := float64(n) / 25
	r := math.Min(w, h) / 8
	dc.SetRGB(0.8, 0.1, 0.1)
	dc.DrawCircle(w/2+(w/2-r)*math.Sin(2*t), h/2+(h/2-r)*math.Sin(3*t), r)
	dc.Fill()

	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored(fmt.Sprintf("%04d", n), 8, 8, 0, 1)
	return dc
}
