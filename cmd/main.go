package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/guttosm/coinbench/config"
	"github.com/guttosm/coinbench/internal/app"
	"github.com/guttosm/coinbench/internal/bench"
	"github.com/guttosm/coinbench/internal/logger"
)

// startServer initializes and starts the HTTP server in a separate goroutine.
//
// Parameters:
//   - router (http.Handler): The HTTP router (Gin Engine) configured with all routes.
//   - port (string): The port where the server will listen for incoming requests.
//
// Returns:
//   - *http.Server: The initialized HTTP server instance.
func startServer(router http.Handler, port string) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		// a full history batch can take a while upstream
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("server failed to start")
		}
	}()

	return server
}

// gracefulShutdown gracefully terminates the HTTP server and cleans up resources
// when an OS interrupt signal (SIGINT, SIGTERM) is received.
//
// Parameters:
//   - ctx (context.Context): A context with timeout for graceful shutdown.
//   - server (*http.Server): The HTTP server instance to shut down.
//   - cleanup (func()): Cleanup callback to release resources (e.g., the connection pool).
func gracefulShutdown(ctx context.Context, server *http.Server, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	logger.L().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Fatal().Err(err).Msg("server forced to shutdown")
	}

	cleanup()
	logger.L().Info().Msg("server exited gracefully")
}

// splitPairs parses a comma separated --pairs value. Blank items are dropped.
func splitPairs(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// requestCount returns n when given on the command line, otherwise prompts on in.
func requestCount(n int, in io.Reader, out io.Writer) (int, error) {
	if n >= 0 {
		return n, nil
	}
	return bench.ReadRequestCount(in, out)
}

// runBench fetches the preview, then times the sequential loop against the
// batch driver for n requests.
func runBench(ctx context.Context, cfg config.Config, n int, out io.Writer) error {
	up, err := app.BuildUpstream(cfg)
	if err != nil {
		return err
	}
	rng, g, err := app.HistorySettings(cfg)
	if err != nil {
		return err
	}

	runner := bench.NewRunner(up.Client, up.Driver, rng, g, out, logger.Named("bench"))
	_, err = runner.Run(ctx, n)
	return err
}

// main is the entry point of the coinbench application.
//
// Modes (selected via --mode flag):
//   - bench:  Compares sequential and grouped concurrent history fetches.
//   - api:    Starts the REST API proxying the exchange.
//   - ingest: Stores the configured history window in PostgreSQL.
//
// Flags:
//   - --mode:     Execution mode ("bench", "api" or "ingest"). Default: "bench".
//   - --requests: Number of history requests in bench mode (-1 = prompt).
//   - --port:     Port for the API server. Defaults to value from config (SERVER_PORT).
//   - --pairs:    Comma separated pairs for ingest mode.
//   - --parallel: Insert workers for ingest mode (0 = auto).
//   - --force:    Re-ingest pairs that already have rows.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration from environment or .env file
	config.LoadConfig()
	cfg := config.AppConfig

	logger.Init(logger.Options{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})

	mode := flag.String("mode", "bench", "Mode: bench, api or ingest")
	requests := flag.Int("requests", -1, "Number of history requests for bench mode (-1 = prompt)")
	port := flag.String("port", cfg.Server.Port, "Port for API mode")
	pairs := flag.String("pairs", "btc-usdt,eth-usdt,ltc-usdt,xrp-usdt", "Comma separated pairs for ingest mode")
	parallel := flag.Int("parallel", 0, "How many pairs to insert concurrently (0=auto up to CPU, max 8)")
	force := flag.Bool("force", false, "Re-ingest pairs even if rows exist (deletes existing candles in the window)")
	flag.Parse()

	switch *mode {
	case "bench":
		n, err := requestCount(*requests, os.Stdin, os.Stdout)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("invalid request count")
		}
		if err := runBench(ctx, cfg, n, os.Stdout); err != nil {
			logger.L().Fatal().Err(err).Msg("benchmark failed")
		}

	case "api":
		logger.L().Info().Msg("starting API server")

		router, cleanup, err := app.InitializeApp(cfg)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("app init error")
		}

		server := startServer(router, *port)
		gracefulShutdown(context.Background(), server, cleanup)

	case "ingest":
		logger.L().Info().Msg("running ingestion")

		sum, err := app.RunIngest(ctx, cfg, splitPairs(*pairs), *parallel, *force)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("ingestion failed")
		}
		for pair, n := range sum.Inserted {
			fmt.Fprintf(os.Stdout, "%s: %d candles\n", pair, n)
		}
		logger.L().Info().Strs("skipped", sum.Skipped).Msg("ingestion completed successfully")

	default:
		logger.L().Fatal().Str("mode", *mode).Msg("unknown mode")
	}
}
