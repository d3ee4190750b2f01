package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/maxpert/airlock/admin"
	"github.com/maxpert/airlock/catalog"
	"github.com/maxpert/airlock/cfg"
	"github.com/maxpert/airlock/connector"
	_ "github.com/maxpert/airlock/connector/debug"
	_ "github.com/maxpert/airlock/connector/kafka"
	_ "github.com/maxpert/airlock/connector/mysql"
	_ "github.com/maxpert/airlock/connector/nats"
	_ "github.com/maxpert/airlock/connector/sqlite"
	"github.com/maxpert/airlock/engine"
	"github.com/maxpert/airlock/telemetry"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	flag.Parse()

	// Load configuration
	err := cfg.Load(*cfg.ConfigPathFlag)
	if err != nil {
		panic(err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("Invalid configuration: %v", err))
	}

	// Setup logging. Results go to stdout, so logs stay on stderr.
	var writer io.Writer = zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) { w.Out = os.Stderr })
	if cfg.Config.Logging.Format == "json" {
		writer = os.Stderr
	}
	gLog := zerolog.New(writer).
		With().
		Timestamp().
		Uint64("node_id", cfg.Config.NodeID).
		Logger()

	if cfg.Config.Logging.Verbose {
		log.Logger = gLog.Level(zerolog.DebugLevel)
	} else {
		log.Logger = gLog.Level(zerolog.InfoLevel)
	}

	log.Info().Msg("Airlock - access mode gating for external catalogs")
	log.Debug().Msg("Initializing telemetry")
	telemetry.InitializeTelemetry()
	telemetry.InitMetrics()

	store, err := openStore()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open catalog store")
		return
	}
	defer store.Close()

	pool, err := connector.NewPool(connector.Default, cfg.Config.Connectors.PoolSize)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create connector pool")
		return
	}

	eng, err := engine.New(engine.Options{
		Store:    store,
		Registry: connector.Default,
		Pool:     pool,
		Workers:  cfg.Config.Engine.Workers,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize engine")
		return
	}
	defer eng.Close()

	if provider, ok := store.(telemetry.CatalogStatsProvider); ok {
		collector := telemetry.NewMetricsCollector(provider, 15*time.Second)
		collector.Start()
		defer collector.Stop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Config.Admin.Enabled {
		srv := startAdminServer(eng)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("Admin server shutdown failed")
			}
		}()
	}

	log.Info().
		Uint64("node_id", cfg.Config.NodeID).
		Str("catalog", string(cfg.Config.Catalog.Store)).
		Str("data_dir", cfg.Config.DataDir).
		Msg("Airlock started, reading statements from stdin")

	done := make(chan struct{})
	go func() {
		defer close(done)
		runShell(ctx, eng, os.Stdin, os.Stdout)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
	case <-done:
		log.Info().Msg("Input closed, shutting down")
	}
}

func openStore() (catalog.Store, error) {
	switch cfg.Config.Catalog.Store {
	case cfg.CatalogStoreMemory:
		log.Warn().Msg("Using in-memory catalog - entries are lost on exit")
		return catalog.NewMemoryStore(), nil
	default:
		return catalog.OpenPebbleStore(cfg.CatalogPath())
	}
}

func startAdminServer(eng *engine.Engine) *http.Server {
	mux := http.NewServeMux()
	admin.RegisterRoutes(mux, admin.NewAdminHandlers(eng))

	addr := net.JoinHostPort(cfg.Config.Admin.BindAddress, strconv.Itoa(cfg.Config.Admin.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("address", addr).Msg("Admin server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Admin server failed")
		}
	}()
	return srv
}

// runShell executes ';' terminated statements read from in
func runShell(ctx context.Context, eng *engine.Engine, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	scanner.Split(splitStatements)

	for scanner.Scan() {
		sql := strings.TrimSpace(scanner.Text())
		if sql == "" {
			continue
		}

		res, err := eng.Execute(ctx, sql)
		if err != nil {
			fmt.Fprintf(out, "ERROR: %v\n", err)
			continue
		}
		printResult(out, res)
	}

	if err := scanner.Err(); err != nil {
		log.Error().Err(err).Msg("Failed reading statements")
	}
}

// splitStatements is a bufio.SplitFunc breaking input on ';' outside quotes
func splitStatements(data []byte, atEOF bool) (int, []byte, error) {
	var quote byte
	for i := 0; i < len(data); i++ {
		c := data[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == ';':
			return i + 1, data[:i], nil
		}
	}

	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func printResult(out io.Writer, res *engine.Result) {
	switch {
	case res.Databases != nil:
		for _, db := range res.Databases {
			fmt.Fprintf(out, "%s\t%s\t%s\n", db.Name, db.Kind, db.Mode)
		}
	case res.Tables != nil:
		for _, tbl := range res.Tables {
			mode := "INHERIT"
			if m, ok := tbl.AccessModeOverride(); ok {
				mode = m.String()
			}
			fmt.Fprintf(out, "%s\t%s\t%s\n", tbl.Name, tbl.Kind, mode)
		}
	case res.Type.IsMutation():
		fmt.Fprintf(out, "OK, %d rows affected\n", res.RowsAffected)
	default:
		fmt.Fprintln(out, "OK")
	}
}
