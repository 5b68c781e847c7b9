package main

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/deepteams/m4v"
)

func decodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     l10n.T("Decode a stream into image files or raw I420"),
		ArgsUsage: "<input>",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: l10n.T(`Output directory, or file with --raw ("-" for stdout)`)},
			&cli.BoolFlag{Name: "raw", Usage: l10n.T("Write raw I420 instead of images")},
			&cli.StringFlag{Name: "fmt", Value: "png", Usage: l10n.T("Image format: png, jpeg")},
		}, logFlags()...),
		Action: runDecode,
	}
}

func runDecode(c *cli.Context) error {
	if c.NArg() < 1 {
		return errors.New(l10n.T("decode: missing input"))
	}
	format := strings.ToLower(c.String("fmt"))
	if format != "png" && format != "jpeg" && format != "jpg" {
		return fmt.Errorf("decode: unknown format %q", format)
	}
	log := newLogger(c, "")

	in, err := openInput(c.Args().First())
	if err != nil {
		return err
	}
	defer in.Close()
	dec := m4v.NewDecoder(in)
	defer dec.Close()

	if c.Bool("raw") {
		out, err := createOutput(c.String("output"))
		if err != nil {
			return err
		}
		defer out.discard()
		bw := bufio.NewWriter(out)
		n, err := decodeFrames(dec, func(i int, img *image.YCbCr) error {
			return writeI420(bw, img)
		})
		if err != nil {
			return fmt.Errorf("decode: %w", err)
		}
		if err := bw.Flush(); err != nil {
			return err
		}
		log.Info("Decoded %d frames to %s", n, c.String("output"))
		return out.commit()
	}

	dir := c.String("output")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	ext := ".png"
	if format != "png" {
		ext = ".jpg"
	}
	n, err := decodeFrames(dec, func(i int, img *image.YCbCr) error {
		return writeImage(filepath.Join(dir, fmt.Sprintf("frame_%05d%s", i, ext)), img, format)
	})
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	log.Info("Decoded %d frames to %s", n, dir)
	return nil
}

// decodeFrames calls fn for every frame and returns the frame count.
func decodeFrames(dec *m4v.Decoder, fn func(int, *image.YCbCr) error) (int, error) {
	for n := 0; ; n++ {
		img, _, err := dec.Decode()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if err := fn(n, img); err != nil {
			return n, err
		}
	}
}

func writeI420(w io.Writer, img *image.YCbCr) error {
	for _, p := range [][]byte{img.Y, img.Cb, img.Cr} {
		if _, err := w.Write(p); err != nil {
			return err
		}
	}
	return nil
}

func writeImage(path string, img *image.YCbCr, format string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if format == "png" {
		err = png.Encode(f, m4v.ToNRGBA(img))
	} else {
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
	}
	if err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
