package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"sort"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/errgroup"

	"github.com/gobeaver/formkit"
	"github.com/gobeaver/formkit/cmd/formkitd/internal/config"
	"github.com/gobeaver/formkit/cmd/formkitd/internal/httpapi"

	_ "github.com/gobeaver/formkit/driver/azure"
	_ "github.com/gobeaver/formkit/driver/gcs"
	_ "github.com/gobeaver/formkit/driver/local"
	_ "github.com/gobeaver/formkit/driver/memory"
	_ "github.com/gobeaver/formkit/driver/s3"
	_ "github.com/gobeaver/formkit/driver/sftp"
)

// exitCode is a process termination code.
type exitCode int

const (
	exitSuccess exitCode = 0
	exitFailure exitCode = 1
)

// Load balancers may keep routing to the pod for a moment after SIGTERM.
const preStopWait = 5 * time.Second

// Shutdown timeout for http servers.
const shutdownTimeout = 5 * time.Second

var (
	// version is the service version from git tag.
	version = ""
)

func main() {
	os.Exit(int(gracefulMain()))
}

// gracefulMain releases resources gracefully upon termination.
func gracefulMain() exitCode {
	var logger log.Logger
	{
		logger = log.NewJSONLogger(log.NewSyncWriter(os.Stderr))
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
		logger = log.With(logger, "caller", log.DefaultCaller)
	}
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	configPath := fs.String("config", "config.yml", "path to the config file")
	debugLog := fs.Bool("debug", false, "log decode diagnostics")
	v := fs.Bool("v", false, "Show version")

	err := fs.Parse(os.Args[1:])
	if err == flag.ErrHelp {
		return exitSuccess
	}
	if err != nil {
		logger.Log("msg", "parsing cli flags failed", "err", err)
		return exitFailure
	}

	if *v {
		if version == "" {
			level.Error(logger).Log("msg", "version not set")
		} else {
			level.Info(logger).Log("version", version)
		}
		return exitSuccess
	}

	if *debugLog {
		logger = level.NewFilter(logger, level.AllowDebug())
	} else {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	logger.Log("configPath", *configPath)

	cfg, err := config.Parse(*configPath)
	if err != nil {
		level.Error(logger).Log("msg", "cannot parse service config", "err", err)
		return exitFailure
	}

	err = cfg.Validate()
	if err != nil {
		level.Error(logger).Log("msg", "config validation failed", "err", err)
		return exitFailure
	}

	defer monitorPanic(logger)
	ctx := context.Background()

	strategy, err := newStrategy(cfg, logger)
	if err != nil {
		level.Error(logger).Log("msg", "cannot create storage", "err", err)
		return exitFailure
	}

	opts, err := cfg.Decoder.Options()
	if err != nil {
		level.Error(logger).Log("msg", "invalid decoder options", "err", err)
		return exitFailure
	}
	interceptor := formkit.NewInterceptor(append(opts,
		formkit.WithStrategy(strategy),
		formkit.WithLogger(logger),
	)...)

	hServer := httpapi.NewHTTPServer(cfg.API, interceptor, logger)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s := <-sig:
			level.Info(logger).Log("msg", fmt.Sprintf("signal received (waiting %v before terminating): %v", preStopWait, s))
			time.Sleep(preStopWait)
			level.Info(logger).Log("msg", "terminating...")

			return fmt.Errorf("signal received: %s", s)
		}
	})

	group.Go(func() error {
		level.Info(logger).Log("msg", "listening", "addr", cfg.API.HTTPAddr, "driver", cfg.Storage.Driver)
		if err := hServer.ListenAndServe(); err != nil {
			return fmt.Errorf("listen and server error: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()

		level.Info(logger).Log("msg", "graceful shutdown of server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := hServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}

		return ctx.Err()
	})

	if err = group.Wait(); err != nil {
		level.Error(logger).Log("msg", fmt.Sprintf("actors stopped with err: %v", err))
		return exitFailure
	}

	level.Info(logger).Log("msg", "actors stopped without errors")

	return exitSuccess
}

// newStrategy builds the default storage and routes every configured
// field prefix to its own storage.
func newStrategy(cfg config.Server, logger log.Logger) (formkit.Strategy, error) {
	fallback, err := formkit.New(cfg.Storage.Formkit())
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	if len(cfg.Mounts) == 0 {
		return fallback, nil
	}

	fields := make([]string, 0, len(cfg.Mounts))
	for field := range cfg.Mounts {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	mounts := formkit.NewMountStrategy(fallback)
	for _, field := range fields {
		m := cfg.Mounts[field]
		s, err := formkit.New(m.Formkit())
		if err != nil {
			return nil, fmt.Errorf("mount %s: %w", field, err)
		}
		if err := mounts.Mount(field, s); err != nil {
			return nil, fmt.Errorf("mount %s: %w", field, err)
		}
		level.Info(logger).Log("msg", "mounted storage", "field", field, "driver", m.Driver)
	}
	return mounts, nil
}

// monitorPanic reports panics to the log before re-raising them.
func monitorPanic(logger log.Logger) {
	if rec := recover(); rec != nil {
		err := fmt.Sprintf("panic: %v \n stack trace: %s", rec, debug.Stack())
		level.Error(logger).Log("err", err)
		panic(err)
	}
}
