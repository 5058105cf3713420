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
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/peterh/liner"
	"github.com/prometheus/client_golang/prometheus"

	"proteus/pkg/config"
	"proteus/pkg/driver"
	"proteus/pkg/metrics"
	"proteus/pkg/object"
	"proteus/pkg/script"
)

func main() {
	// Define flags
	exprFlag := flag.String("e", "", "Run the given commands and exit")
	envFlag := flag.String("env", "", "Config environment; reads .proteus.<env> (default dev)")
	metricsFlag := flag.String("metrics", "", "Serve Prometheus metrics on this address (overrides PROTEUS_METRICS_ADDR)")
	cacheStatsFlag := flag.Bool("cache-stats", false, "Show lookup cache statistics after execution")

	flag.Parse() // Parses the command-line flags

	if err := config.InitConfig(*envFlag); err != nil {
		fmt.Fprintf(os.Stderr, "config: %s\n", err)
		os.Exit(78) // Exit code 78: configuration error
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %s\n", err)
		os.Exit(78)
	}
	if *metricsFlag != "" {
		cfg.Metrics.Addr = *metricsFlag
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var recorder object.Recorder
	if cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		recorder = metrics.NewExporter(reg)
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, reg); err != nil {
				logger.Error("metrics server stopped", "addr", cfg.Metrics.Addr, "error", err)
			}
		}()
		logger.Info("serving metrics", "addr", cfg.Metrics.Addr)
	}

	proteus, err := driver.NewProteus(cfg, logger, recorder)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(70)
	}
	defer proteus.Close()

	options := driver.RunOptions{ShowCacheStats: *cacheStatsFlag}

	if *exprFlag != "" {
		// Run the commands provided via -e flag
		out, errs := proteus.RunCode(*exprFlag, options)
		if !proteus.DisplayResult(os.Stdout, *exprFlag, out, errs) {
			proteus.Close()
			os.Exit(70) // Exit code 70: internal software error
		}
		return
	}

	if flag.NArg() > 1 {
		fmt.Fprintf(os.Stderr, "Usage: proteus [script] or proteus -e \"commands\"\n")
		os.Exit(64) // Exit code 64: command line usage error
	} else if flag.NArg() == 1 {
		source, out, errs := proteus.RunFile(flag.Arg(0), options)
		if !proteus.DisplayResult(os.Stdout, source, out, errs) {
			proteus.Close()
			os.Exit(70)
		}
	} else {
		runRepl(proteus, cfg.REPL, options)
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	level, _ := cfg.SlogLevel() // validated by config.Load
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05",
		NoColor:    cfg.NoColor,
	}))
}

// runRepl starts the Read-Eval-Print Loop.
func runRepl(proteus *driver.Proteus, cfg config.REPLConfig, options driver.RunOptions) {
	fmt.Println("Proteus (Ctrl+C cancels input, Ctrl+D exits. Type help for commands)")

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(completer(proteus.Session()))

	if cfg.HistoryFile != "" {
		if f, err := os.Open(cfg.HistoryFile); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if f, err := os.Create(cfg.HistoryFile); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()
	}

	prompt := cfg.Prompt
	if prompt == "" {
		prompt = "> "
	}

	for {
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			fmt.Println("\nGoodbye!")
			return
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading input: %s\n", err)
			return
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if trimmed == ":quit" || trimmed == "exit" {
			return
		}

		start := time.Now()
		out, errs := proteus.RunCode(line, options)
		_ = proteus.DisplayResult(os.Stdout, line, out, errs) // Ignore the bool return in REPL
		slog.Debug("evaluated", "elapsed", time.Since(start))
		ln.AppendHistory(line)
	}
}

// completer offers command names first, then bound object names.
func completer(s *script.Session) liner.Completer {
	return func(line string) []string {
		fields := strings.Fields(line)
		var candidates []string
		prefix := ""
		if len(fields) == 0 || (len(fields) == 1 && !strings.HasSuffix(line, " ")) {
			if len(fields) == 1 {
				prefix = fields[0]
			}
			for _, name := range script.Commands() {
				if strings.HasPrefix(name, prefix) {
					candidates = append(candidates, name+" ")
				}
			}
			return candidates
		}
		head := line
		if !strings.HasSuffix(line, " ") {
			prefix = fields[len(fields)-1]
			head = strings.TrimSuffix(line, prefix)
		}
		for _, name := range s.Names() {
			if strings.HasPrefix(name, prefix) {
				candidates = append(candidates, head+name)
			}
		}
		return candidates
	}
}
