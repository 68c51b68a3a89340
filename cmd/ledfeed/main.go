// Command ledfeed serves a moving test pattern in the LED feed formats, for
// running ledview without the LED controller.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"dev.acmcsuf.com/ledview"
	"github.com/go-chi/httplog/v2"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"libdb.so/hserve"
)

var (
	httpAddr  = ":9000"
	frameRate = 10
	verbose   = false
)

func init() {
	pflag.StringVarP(&httpAddr, "http-addr", "a", httpAddr, "HTTP server address")
	pflag.IntVarP(&frameRate, "frame-rate", "r", frameRate, "frames per second")
	pflag.BoolVarP(&verbose, "verbose", "v", verbose, "verbose logging")
}

func main() {
	log.SetFlags(0)
	pflag.Parse()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	logHandler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05 PM", // extended time.Kitchen
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})

	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, logger, level); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, logger *slog.Logger, level slog.Level) error {
	if frameRate <= 0 {
		return fmt.Errorf("invalid frame rate %d", frameRate)
	}

	pattern := newHueSweep(ledview.DefaultGrid)
	server := newFeedServer(logger.With("component", "feed"))

	httpLogger := httplog.NewLogger("ledfeed", httplog.Options{
		LogLevel: level,
		Concise:  true,
	})

	errg, ctx := errgroup.WithContext(ctx)

	errg.Go(func() error {
		return server.run(ctx, pattern, frameRate)
	})

	errg.Go(func() error {
		h := httplog.RequestLogger(httpLogger)(server.routes())

		logger.Info(
			"starting feed HTTP server",
			"addr", httpAddr,
			"leds", pattern.Len(),
			"frame_rate", frameRate)

		return hserve.ListenAndServe(ctx, httpAddr, h)
	})

	return errg.Wait()
}
