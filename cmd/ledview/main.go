package main

import (
	"context"
	"embed"
	"fmt"
	"image"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"dev.acmcsuf.com/christmas/lib/csvutil"
	"dev.acmcsuf.com/ledview"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"libdb.so/hserve"
)

//go:embed frontend
var frontendFS embed.FS
var frontendFilesFS, _ = fs.Sub(frontendFS, "frontend")

var (
	feedOrigin       = "http://localhost:9000"
	feedPath         = ""
	binaryFeed       = false
	httpAddr         = ":9001"
	httpAdminAddr    = "127.0.0.1:9002"
	ledPointsCSV     = ""
	ledPointsDivisor = 40.0
	retryDelay       = 2 * time.Second
	verbose          = false
)

func init() {
	pflag.StringVarP(&feedOrigin, "feed", "f", feedOrigin, "origin or websocket URL of the LED feed")
	pflag.StringVar(&feedPath, "feed-path", feedPath, "path of the LED feed (default /ws, or /wsbin with --binary)")
	pflag.BoolVar(&binaryFeed, "binary", binaryFeed, "use the binary RGB feed")
	pflag.StringVarP(&httpAddr, "http-addr", "a", httpAddr, "HTTP server address")
	pflag.StringVarP(&httpAdminAddr, "http-admin-addr", "A", httpAdminAddr, "HTTP admin server address")
	pflag.StringVar(&ledPointsCSV, "led-points", ledPointsCSV, "CSV file of LED layout points (default: the LED wall grid)")
	pflag.Float64Var(&ledPointsDivisor, "led-points-divisor", ledPointsDivisor, "layout units per canvas unit for --led-points")
	pflag.DurationVar(&retryDelay, "retry-delay", retryDelay, "delay before reconnecting to the feed, 0 to exit instead")
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
	mapper, err := loadMapper()
	if err != nil {
		return err
	}

	path := feedPath
	if path == "" && binaryFeed {
		path = ledview.BinaryFeedPath
	}

	feedURL, err := ledview.FeedURL(feedOrigin, path)
	if err != nil {
		return fmt.Errorf("invalid feed %q: %w", feedOrigin, err)
	}

	canvas := ledview.NewCanvas(ledview.DefaultCanvasOpts)
	hub := newFrameHub(canvas, logger.With("component", "hub"))

	viewer := ledview.NewViewer(ledview.ViewerOpts{
		URL:        feedURL,
		Renderer:   ledview.NewRenderer(mapper, canvas),
		Sink:       hub,
		Logger:     logger.With("component", "viewer"),
		RetryDelay: retryDelay,
	})

	httpLogger := httplog.NewLogger("ledview", httplog.Options{
		LogLevel: level,
		Concise:  true,
	})

	errg, ctx := errgroup.WithContext(ctx)

	errg.Go(func() error {
		return viewer.Run(ctx)
	})

	errg.Go(func() error {
		r := chi.NewRouter()
		r.Use(httplog.RequestLogger(httpLogger))
		r.Get("/events", hub.handleEvents)
		r.Get("/frame.png", hub.handleFramePNG)
		r.Get("/led-pixels.csv", hub.handleLEDPixels)
		r.Mount("/", http.FileServer(http.FS(frontendFilesFS)))

		logger.Info(
			"starting public HTTP server",
			"addr", httpAddr)

		return hserve.ListenAndServe(ctx, httpAddr, r)
	})

	errg.Go(func() error {
		admin := newAdminHandler(viewer)

		logger.Info(
			"starting admin HTTP server",
			"addr", httpAdminAddr)

		return hserve.ListenAndServe(ctx, httpAdminAddr, admin)
	})

	return errg.Wait()
}

func loadMapper() (ledview.Mapper, error) {
	if ledPointsCSV == "" {
		return ledview.DefaultGrid, nil
	}

	points, err := csvutil.UnmarshalFile[image.Point](ledPointsCSV)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal CSV file %q: %v", ledPointsCSV, err)
	}

	mapper, err := ledview.PointsFromLayout(points, ledPointsDivisor)
	if err != nil {
		return nil, fmt.Errorf("invalid LED points: %w", err)
	}

	return mapper, nil
}
