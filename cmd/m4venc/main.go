// Command m4venc encodes, decodes and inspects m4v video streams.
//
// Usage:
//
//	m4venc encode [options] <input>...   raw YUV, image files, a directory or a GIF → stream
//	m4venc testsrc [options]             synthetic moving pattern → stream or raw I420
//	m4venc decode [options] <input>      stream → PNG/JPEG frames or raw I420
//	m4venc info [options] <input>        per-frame header summary
//
// Use "-" as input to read from stdin and "-o -" to write to stdout.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/deepteams/m4v/internal/logging"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "m4venc: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "m4venc",
		Usage:   l10n.T("Encode, decode and inspect m4v video streams"),
		Version: version,
		Commands: []*cli.Command{
			encodeCommand(),
			testsrcCommand(),
			decodeCommand(),
			infoCommand(),
		},
	}
}

// logFlags are shared by every command.
func logFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Value: "info", Usage: l10n.T("Log level (debug, info, warn, error)")},
		&cli.BoolFlag{Name: "quiet", Aliases: []string{"Q"}, Usage: l10n.T("Suppress all log output")},
	}
}

// newLogger returns the logger for a command. level is used unless
// --log-level was given.
func newLogger(c *cli.Context, level string) logging.Logger {
	if c.Bool("quiet") {
		return logging.NewNop()
	}
	if c.IsSet("log-level") || level == "" {
		level = c.String("log-level")
	}
	lv := logging.ParseLevel(level)
	if c.String("output") == "-" {
		// Keep stdout for the data.
		return logging.NewWriter(lv, os.Stderr)
	}
	return logging.NewConsole(lv)
}

// openInput returns a reader for path. "-" is stdin, which the returned
// closer leaves open.
func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

// output is a file that is removed again unless commit is called.
type output struct {
	f      *os.File
	path   string
	stdout bool
}

func createOutput(path string) (*output, error) {
	if path == "-" {
		return &output{f: os.Stdout, path: path, stdout: true}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &output{f: f, path: path}, nil
}

func (o *output) Write(p []byte) (int, error) { return o.f.Write(p) }

// commit closes the file and keeps it.
func (o *output) commit() error {
	if o.stdout {
		return nil
	}
	if err := o.f.Close(); err != nil {
		os.Remove(o.path)
		return err
	}
	o.f = nil
	return nil
}

// discard closes and removes the file if it was not committed.
func (o *output) discard() {
	if o.stdout || o.f == nil {
		return
	}
	o.f.Close()
	os.Remove(o.path)
}
