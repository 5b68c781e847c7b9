package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/deepteams/m4v"
	"github.com/deepteams/m4v/internal/stats"
)

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     l10n.T("Show the frame headers of a stream"),
		ArgsUsage: "<input>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "frames", Aliases: []string{"f"}, Usage: l10n.T("List every frame")},
			&cli.StringFlag{Name: "stats", Usage: l10n.T("Also summarize a statistics file written by encode")},
		},
		Action: runInfo,
	}
}

func runInfo(c *cli.Context) error {
	if c.NArg() < 1 {
		return errors.New(l10n.T("info: missing input"))
	}
	path := c.Args().First()
	in, err := openInput(path)
	if err != nil {
		return err
	}
	defer in.Close()

	headers, scanErr := m4v.ScanHeaders(in)
	if len(headers) == 0 && scanErr != nil {
		return fmt.Errorf("info: %w", scanErr)
	}

	name := path
	if path == "-" {
		name = "<stdin>"
	}
	printInfo(os.Stdout, name, headers, c.Bool("frames"))
	if scanErr != nil {
		fmt.Fprintln(os.Stdout, l10n.F("Stream error: %v", scanErr))
	}

	if p := c.String("stats"); p != "" {
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		records, err := stats.ReadAll(f)
		if err != nil {
			return fmt.Errorf("info: %w", err)
		}
		printStats(os.Stdout, stats.Summarize(records))
	}
	return scanErr
}

func printInfo(w io.Writer, name string, headers []m4v.FrameHeader, frames bool) {
	p := message.NewPrinter(language.English)
	var width, height, keys, size int
	for _, h := range headers {
		if h.KeyFrame {
			keys++
			if width == 0 {
				width, height = h.Width, h.Height
			}
		}
		size += h.Size
	}

	fmt.Fprintf(w, "%-12s %s\n", l10n.T("File:"), name)
	fmt.Fprintf(w, "%-12s %d x %d\n", l10n.T("Dimensions:"), width, height)
	fmt.Fprintf(w, "%-12s %s (%s %s)\n", l10n.T("Frames:"), p.Sprintf("%d", len(headers)), p.Sprintf("%d", keys), l10n.T("key"))
	fmt.Fprintf(w, "%-12s %s %s\n", l10n.T("Size:"), p.Sprintf("%d", size), l10n.T("bytes"))
	if !frames {
		return
	}
	fmt.Fprintf(w, "\n%6s %4s %10s %8s %5s %5s %8s\n", "#", "type", "offset", "size", "quant", "fcode", "rounding")
	for i, h := range headers {
		typ, fcode, rounding := "I", "-", "-"
		if !h.KeyFrame {
			typ, fcode, rounding = "P", fmt.Sprint(h.FCode), fmt.Sprint(h.Rounding)
		}
		fmt.Fprintf(w, "%6d %4s %10d %8d %5d %5s %8s\n", i, typ, h.Offset, h.Size, h.Quantizer, fcode, rounding)
	}
}

func printStats(w io.Writer, s stats.Summary) {
	p := message.NewPrinter(language.English)
	fmt.Fprintf(w, "\n%-12s %s (%s %s)\n", l10n.T("Recoded:"), p.Sprintf("%d", s.Fallbacks), p.Sprintf("%d", s.Frames), l10n.T("frames logged"))
	if s.MeanPSNR > 0 {
		fmt.Fprintf(w, "%-12s %s dB\n", l10n.T("Mean PSNR:"), p.Sprintf("%.2f", s.MeanPSNR))
		fmt.Fprintf(w, "%-12s %s\n", l10n.T("Mean SSIM:"), p.Sprintf("%.4f", s.MeanSSIM))
	}
}
