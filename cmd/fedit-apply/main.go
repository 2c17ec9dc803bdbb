// Command fedit-apply applies one edit document to a stored status.
//
//	fedit-apply -db fedit.db -uri https://remote.example/statuses/1 -doc update.json
//
// The exit code is 0 when the edit was committed or skipped, 2 when another
// worker held the status lease and 1 for any other failure.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mirkobrombin/go-fedit/v1/adapter"
	"github.com/mirkobrombin/go-fedit/v1/edit"
	"github.com/mirkobrombin/go-fedit/v1/lock"
	"github.com/mirkobrombin/go-fedit/v1/presets"
)

var (
	redisAddr = flag.String("redis", "", "Redis address holding the leases; empty keeps them in-process")
	dsn       = flag.String("db", "fedit.db", "SQLite DSN of the status database")
	uri       = flag.String("uri", "", "URI of the status to edit")
	docPath   = flag.String("doc", "-", "Path of the JSON document, - for stdin")
	ttl       = flag.Duration("ttl", lock.DefaultTTL, "Lease time to live")
	tracing   = flag.Bool("trace", false, "Print OpenTelemetry spans to stdout")
	verbose   = flag.Bool("v", false, "Enable debug logging")
)

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	if *uri == "" {
		log.Error("fedit: -uri is required")
		return 1
	}
	raw, err := readDoc(*docPath, os.Stdin)
	if err != nil {
		log.Error("fedit: read document", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := []edit.Option{edit.WithLockTTL(*ttl), edit.WithLogger(log)}
	if *tracing {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			log.Error("fedit: trace exporter", "error", err)
			return 1
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
		defer func() { _ = tp.Shutdown(context.Background()) }()
		otel.SetTracerProvider(tp)
		opts = append(opts, edit.WithTracing())
	}

	applier, closeFn, err := open(opts)
	if err != nil {
		log.Error("fedit: setup", "error", err)
		return 1
	}
	defer closeFn()

	start := time.Now()
	res := applier.ApplyByURI(ctx, *uri, raw)
	attrs := []any{"uri", *uri, "outcome", res.Outcome.String(), "elapsed", time.Since(start)}
	if res.Err != nil {
		attrs = append(attrs, "error", res.Err)
	}
	log.Info("fedit: apply", attrs...)
	fmt.Println(res.Outcome)
	return exitCode(res)
}

// open builds the applier for the configured backends.
func open(opts []edit.Option) (*edit.Applier, func(), error) {
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if *redisAddr != "" {
		d, err := presets.NewRedisGorm(presets.RedisGormOptions{
			Redis:     presets.RedisOptions{Addr: *redisAddr},
			Dialector: sqlite.Open(*dsn),
			Gorm:      gcfg,
			Apply:     opts,
		})
		if err != nil {
			return nil, nil, err
		}
		return d.Applier, func() { _ = d.Close() }, nil
	}

	db, err := gorm.Open(sqlite.Open(*dsn), gcfg)
	if err != nil {
		return nil, nil, err
	}
	store, err := adapter.NewGormStore(db)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return edit.New(store, lock.NewGate(lock.NewInMemory()), opts...), closeFn, nil
}

func readDoc(path string, stdin io.Reader) ([]byte, error) {
	if path == "" {
		return nil, errors.New("no document path")
	}
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func exitCode(res edit.Result) int {
	switch res.Outcome {
	case edit.OutcomeCommitted, edit.OutcomeSkipped:
		return 0
	case edit.OutcomeRaceCondition:
		return 2
	}
	return 1
}
