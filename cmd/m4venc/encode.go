package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/deepteams/m4v"
	"github.com/deepteams/m4v/internal/config"
	"github.com/deepteams/m4v/internal/logging"
	"github.com/deepteams/m4v/internal/stats"
)

// encoderFlags are the flags shared by encode and testsrc. Flags that are
// set override the profile.
func encoderFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: l10n.T(`Output path ("-" for stdout)`)},
		&cli.StringFlag{Name: "profile", Aliases: []string{"p"}, Usage: l10n.T("YAML encoder profile")},
		&cli.IntFlag{Name: "quality", Aliases: []string{"q"}, Usage: l10n.T("Motion search effort 0-5 (0 = I frames only)")},
		&cli.IntFlag{Name: "quantizer", Usage: l10n.T("Frame quantizer 1-31")},
		&cli.IntFlag{Name: "min-quantizer", Usage: l10n.T("Smallest quantizer")},
		&cli.IntFlag{Name: "max-quantizer", Usage: l10n.T("Largest quantizer")},
		&cli.IntFlag{Name: "key-interval", Usage: l10n.T("Largest distance between key frames")},
		&cli.StringFlag{Name: "aq", Usage: l10n.T("Adaptive quantization (none, luminance)")},
		&cli.BoolFlag{Name: "psnr", Usage: l10n.T("Compute the PSNR of every frame")},
		&cli.StringFlag{Name: "stats", Usage: l10n.T("Write zstd-compressed per-frame statistics to this file")},
		&cli.IntFlag{Name: "frames", Aliases: []string{"n"}, Usage: l10n.T("Stop after this many frames (0 = all)")},
	}
}

// loadProfile reads the profile named by --profile, or the defaults, and
// applies the flags that were set.
func loadProfile(c *cli.Context) (config.Config, error) {
	cfg := config.Defaults()
	if path := c.String("profile"); path != "" {
		var err error
		if cfg, err = config.LoadFromFile(path); err != nil {
			return cfg, err
		}
	}
	if c.IsSet("quality") {
		cfg.Quality = c.Int("quality")
	}
	if c.IsSet("quantizer") {
		cfg.Quantizer = c.Int("quantizer")
	}
	if c.IsSet("min-quantizer") {
		cfg.MinQuantizer = c.Int("min-quantizer")
	}
	if c.IsSet("max-quantizer") {
		cfg.MaxQuantizer = c.Int("max-quantizer")
	}
	if c.IsSet("key-interval") {
		cfg.MaxKeyInterval = c.Int("key-interval")
	}
	if c.IsSet("aq") {
		cfg.AQ = c.String("aq")
	}
	if c.IsSet("psnr") {
		cfg.PSNR = c.Bool("psnr")
	}
	if c.IsSet("stats") {
		cfg.StatsFile = c.String("stats")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if _, err := cfg.AQMode(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func encodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "encode",
		Usage:     l10n.T("Encode raw YUV, images or a GIF into a stream"),
		ArgsUsage: "<input>...",
		Flags: append(append(encoderFlags(),
			&cli.StringFlag{Name: "size", Aliases: []string{"s"}, Usage: l10n.T("Raw input size WIDTHxHEIGHT")},
			&cli.StringFlag{Name: "layout", Value: "i420", Usage: l10n.T("Raw input layout (i420, yv12, yuy2, yvyu, uyvy)")},
			&cli.IntFlag{Name: "width", Aliases: []string{"W"}, Usage: l10n.T("Scale images to this width")},
			&cli.IntFlag{Name: "height", Aliases: []string{"H"}, Usage: l10n.T("Scale images to this height")},
		), logFlags()...),
		Action: runEncode,
	}
}

func runEncode(c *cli.Context) error {
	if c.NArg() < 1 {
		return errors.New(l10n.T("encode: missing input"))
	}
	cfg, err := loadProfile(c)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	src, err := openSource(c)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	defer src.Close()
	return encodeStream(c, cfg, src)
}

// openSource picks the source for the command's arguments: raw YUV when
// --size is set or the input ends in .yuv, a GIF animation, or a list of
// images and directories.
func openSource(c *cli.Context) (source, error) {
	first := c.Args().First()
	ext := strings.ToLower(filepath.Ext(first))
	switch {
	case c.IsSet("size") || ext == ".yuv":
		if c.NArg() > 1 {
			return nil, errors.New("raw input takes a single file")
		}
		if !c.IsSet("size") {
			return nil, errors.New("raw input needs --size")
		}
		w, h, err := parseSize(c.String("size"))
		if err != nil {
			return nil, err
		}
		layout, err := parseLayout(c.String("layout"))
		if err != nil {
			return nil, err
		}
		in, err := openInput(first)
		if err != nil {
			return nil, err
		}
		return newRawSource(in, w, h, layout), nil
	case ext == ".gif" && c.NArg() == 1:
		in, err := openInput(first)
		if err != nil {
			return nil, err
		}
		defer in.Close()
		return newGIFSource(in, c.Int("width"), c.Int("height"))
	default:
		return newImageSource(c.Args().Slice(), c.Int("width"), c.Int("height"))
	}
}

// encodeStream encodes every frame of src into the --output file.
func encodeStream(c *cli.Context, cfg config.Config, src source) error {
	log := newLogger(c, cfg.LogLevel)
	w, h := src.Size()

	opts := m4v.DefaultOptions(w, h)
	cfg.Apply(opts)
	opts.Logger = log.WithComponent("encoder")
	aq, _ := cfg.AQMode()

	enc, err := m4v.NewEncoder(opts)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	defer enc.Close()

	out, err := createOutput(c.String("output"))
	if err != nil {
		return err
	}
	defer out.discard()

	var sw *stats.Writer
	var statsOut *output
	if cfg.StatsFile != "" {
		if statsOut, err = createOutput(cfg.StatsFile); err != nil {
			return err
		}
		defer statsOut.discard()
		if sw, err = stats.NewWriter(statsOut); err != nil {
			return err
		}
	}

	log.Info("Encoding %dx%d at quality %d", w, h, enc.Options().Quality)
	start := time.Now()
	var records []stats.Record
	frames := readFrames(c.Context, src, c.Int("frames"))
	defer frames.Stop()
	for item := range frames.C {
		if item.err != nil {
			return fmt.Errorf("encode: frame %d: %w", len(records), item.err)
		}
		item.frame.AQ = aq
		res, err := enc.Encode(item.frame)
		if err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		if _, err := out.Write(res.Data); err != nil {
			return err
		}
		rec := stats.FromResult(len(records), res)
		records = append(records, rec)
		log.Debug("Frame %d: %s, %d bytes, quantizer %d", rec.Frame, rec.Type, rec.Bytes, rec.Quantizer)
		if sw != nil {
			if err := sw.Write(rec); err != nil {
				return err
			}
		}
	}
	if err := c.Context.Err(); err != nil {
		log.Warn("Interrupted, shutting down...")
		return err
	}

	if sw != nil {
		if err := sw.Close(); err != nil {
			return err
		}
		if err := statsOut.commit(); err != nil {
			return err
		}
	}
	if err := out.commit(); err != nil {
		return err
	}
	logSummary(log, stats.Summarize(records), opts.FrameRate, time.Since(start))
	return nil
}

// logSummary reports a finished run with locale-formatted numbers.
func logSummary(log logging.Logger, s stats.Summary, fps float64, elapsed time.Duration) {
	p := message.NewPrinter(language.English)
	kbps := 0.0
	if s.Frames > 0 {
		kbps = float64(s.Bytes) * 8 * fps / float64(s.Frames) / 1000
	}
	log.Info("Encoded %s frames (%s key, %s recoded) into %s bytes, %s kbit/s at %s fps",
		p.Sprintf("%d", s.Frames), p.Sprintf("%d", s.KeyFrames), p.Sprintf("%d", s.Fallbacks),
		p.Sprintf("%d", s.Bytes), p.Sprintf("%.1f", kbps), p.Sprintf("%.2f", fps))
	if s.MeanPSNR > 0 {
		log.Info("Mean PSNR %s dB, SSIM %s", p.Sprintf("%.2f", s.MeanPSNR), p.Sprintf("%.4f", s.MeanSSIM))
	}
	if elapsed > 0 && s.Frames > 0 {
		log.Debug("Encoding took %v (%s frames/s)", elapsed.Round(time.Millisecond),
			p.Sprintf("%.1f", float64(s.Frames)/elapsed.Seconds()))
	}
}
