package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cordwainer/mcpwatch/internal/build"
	"github.com/cordwainer/mcpwatch/internal/config"
	"github.com/cordwainer/mcpwatch/internal/lifecycle"
	"github.com/cordwainer/mcpwatch/internal/logging"
	"github.com/cordwainer/mcpwatch/internal/metrics"
	"github.com/cordwainer/mcpwatch/internal/protocol"
	"github.com/cordwainer/mcpwatch/internal/reload"
	"github.com/cordwainer/mcpwatch/internal/telemetry"
	"github.com/cordwainer/mcpwatch/internal/watch"
)

// instanceEnvVar is inspected at startup; its presence means this process
// was itself launched as a managed child of another mcpwatch, and it
// becomes a no-op pass-through rather than nesting a second proxy layer.
const instanceEnvVar = "MCP_PROXY_INSTANCE"

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the proxy in the foreground, speaking MCP over stdio",
	RunE:  runProxy,
}

func init() {
	flags := runCmd.Flags()
	flags.String("server-command", "", "command to launch the managed MCP server")
	flags.StringSlice("server-args", nil, "arguments passed to server-command")
	flags.String("build-command", "", "shell command to run before each restart (empty disables building)")
	flags.StringSlice("watch", nil, "directory path or glob to watch for changes (repeatable)")
	flags.Int("debounce-ms", 0, "debounce window in milliseconds for file-change batching")
	flags.String("cwd", "", "working directory for the build and server commands")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("metrics-addr", "", "address to serve Prometheus /metrics on (empty disables)")
	flags.Bool("trace", false, "emit OpenTelemetry spans for each hot-reload cycle to stderr")

	_ = viperV.BindPFlag("server_command", flags.Lookup("server-command"))
	_ = viperV.BindPFlag("server_args", flags.Lookup("server-args"))
	_ = viperV.BindPFlag("build_command", flags.Lookup("build-command"))
	_ = viperV.BindPFlag("watch_pattern", flags.Lookup("watch"))
	_ = viperV.BindPFlag("debounce_ms", flags.Lookup("debounce-ms"))
	_ = viperV.BindPFlag("cwd", flags.Lookup("cwd"))
	_ = viperV.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = viperV.BindPFlag("metrics_addr", flags.Lookup("metrics-addr"))
	_ = viperV.BindPFlag("trace", flags.Lookup("trace"))

	rootCmd.AddCommand(runCmd)
}

func runProxy(cmd *cobra.Command, args []string) error {
	// Never nest: a second mcpwatch spawned as the managed child of a
	// first one does no proxying of its own and just waits (passThrough).
	if os.Getenv(instanceEnvVar) != "" {
		return passThrough(cmd.Context())
	}

	path := cfgFile
	if path == "" {
		if p, err := config.ConfigFilePath(); err == nil {
			path = p
		}
	}
	cfg, err := config.Load(path, viperV)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := parseLevel(cfg.LogLevel)
	logDir, err := config.LogDir()
	if err != nil {
		return fmt.Errorf("log dir: %w", err)
	}
	if err := config.EnsureDir(logDir, 0700); err != nil {
		fmt.Fprintf(os.Stderr, "mcpwatch: cannot create log directory: %v\n", err)
	}
	logger, logCleanup, err := logging.Setup(logDir, level, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mcpwatch: cannot set up file logging: %v\n", err)
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		logCleanup = func() {}
	}
	defer logCleanup()

	pidFile := ""
	if pidPath, err := config.PIDFilePath(); err == nil {
		if err := config.AtomicWriteFile(pidPath, []byte(fmt.Sprintf("%d", os.Getpid())), 0600); err != nil {
			logger.Warn("failed to write PID file", "error", err)
		} else {
			pidFile = pidPath
			defer os.Remove(pidPath)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var exitOnce sync.Once
	exit := func(code int) {
		exitOnce.Do(func() {
			cancel()
			// os.Exit skips deferred calls, so the PID file is removed here.
			if pidFile != "" {
				_ = os.Remove(pidFile)
			}
			os.Exit(code)
		})
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received termination signal, exiting")
		exit(0)
	}()

	instanceToken := uuid.NewString()
	env := config.ResolveEnv(cfg.Env)
	if env == nil {
		env = map[string]string{}
	}
	env[instanceEnvVar] = instanceToken

	lc := lifecycle.New(lifecycle.ServerConfig{
		Command: cfg.ServerCommand,
		Args:    cfg.ServerArgs,
		Cwd:     cfg.Cwd,
		Env:     env,
	}, nil, logger)

	m := metrics.New()
	lc.OnCrash = func() { m.CrashesTotal.Inc() }

	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.MetricsAddr, m)
		go func() {
			if err := srv.Run(ctx); err != nil {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
	}

	var tel *telemetry.Provider
	if cfg.Trace {
		tel, err = telemetry.New(os.Stderr)
		if err != nil {
			logger.Warn("failed to set up tracing, continuing without it", "error", err)
			tel = telemetry.Noop()
		}
	} else {
		tel = telemetry.Noop()
	}
	defer tel.Shutdown(context.Background())

	handler := protocol.NewHandler(os.Stdout, logger)

	conn, err := lc.Start(ctx)
	if err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	handler.ConnectServer(conn)

	watcher, err := watch.New(watch.Config{
		Patterns: []string(cfg.WatchPattern),
		Cwd:      resolveCwd(cfg.Cwd),
		Debounce: durationFromMs(cfg.DebounceMs),
	})
	if err != nil {
		return fmt.Errorf("set up file watcher: %w", err)
	}

	builder := build.New(build.Config{
		Command: shellCommand(cfg.BuildCommand),
		Args:    shellArgs(cfg.BuildCommand),
		Cwd:     resolveCwd(cfg.Cwd),
		Env:     env,
	}, logger)

	orchestrator := reload.New(watcher, builder, lc, handler, m, tel.Tracer(), logger)

	go func() {
		if err := orchestrator.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("hot-reload loop exited", "error", err)
		}
	}()

	err = handler.ReadClientLoop(os.Stdin)
	if err != nil {
		logger.Debug("client stdin closed", "error", err)
	}
	exit(0)
	return nil
}

// passThrough is what mcpwatch becomes when it detects it was launched as
// the managed child of another mcpwatch instance: it does nothing but
// exist, since the outer instance is the one actually proxying.
func passThrough(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func resolveCwd(cwd string) string {
	if cwd != "" {
		return cwd
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

func shellCommand(buildCommand string) string {
	if strings.TrimSpace(buildCommand) == "" {
		return ""
	}
	return "/bin/sh"
}

func shellArgs(buildCommand string) []string {
	if strings.TrimSpace(buildCommand) == "" {
		return nil
	}
	return []string{"-c", buildCommand}
}

func durationFromMs(ms int) time.Duration {
	if ms <= 0 {
		return 300 * time.Millisecond
	}
	return time.Duration(ms) * time.Millisecond
}
