// Command lambo reads a Lambo source file, reduces it and drives any IO
// action it produces to completion, printing the final value.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/eug-vs/lambo/internal/config"
	"github.com/eug-vs/lambo/internal/environment"
	"github.com/eug-vs/lambo/internal/errs"
	"github.com/eug-vs/lambo/internal/heap"
	"github.com/eug-vs/lambo/internal/iodriver"
	"github.com/eug-vs/lambo/internal/lower"
	"github.com/eug-vs/lambo/internal/parser"
	"github.com/eug-vs/lambo/internal/printer"
	"github.com/eug-vs/lambo/internal/reducer"
	"github.com/eug-vs/lambo/internal/source"
)

// Version is set at build time via -ldflags; "dev" otherwise.
var Version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, rest := config.Load(args, "lambo.toml", ".env")

	if cfg.Version {
		fmt.Printf("lambo version %s\n", Version)
		return 0
	}
	if cfg.Help {
		printUsage()
		return 0
	}

	setupLogging(cfg)

	if len(rest) < 1 {
		fmt.Fprintln(os.Stderr, "usage: lambo [options] <source-file>")
		return 2
	}
	path := rest[0]
	if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.RootPath, path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lambo: %v\n", err)
		return 1
	}
	src := source.Extract(path, string(raw))

	slog.Debug("parsing source", slog.String("path", path), slog.Int("bytes", len(src)))
	parsed, err := parser.Parse(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lambo: parse error: %v\n", err)
		return 1
	}

	h := heap.New()
	root := lower.Lower(h, parsed)
	env := environment.New()
	r := reducer.New(h, env)

	driver := iodriver.New(r, os.Stdin, os.Stdout, iodriver.HostConfig{
		SMTPHost: cfg.SmtpHost,
		SMTPPort: cfg.SmtpPort,
		SMTPUser: cfg.SmtpUser,
		SMTPPass: cfg.SmtpPass,
		SMTPFrom: cfg.SmtpFrom,
		Timeout:  cfg.DbTimeout,
	})

	result, err := driver.Drive(root)
	if err != nil {
		return reportError(err)
	}

	fmt.Println(printer.Render(r, result))
	return 0
}

func printUsage() {
	fmt.Print(`Usage: lambo [options] <source-file>

Reads a Lambo source file, reduces it and drives any IO action it
produces to completion, printing the final value.

Options:
  -root string       root directory used to resolve relative paths
  -log-level string  log level: debug, info, warn, error
  -log-file string   log file path (defaults to stderr)
  -help, -h          display this help information and exit
  -version, -v       display version information and exit

Settings also come from an optional lambo.toml file and an optional
.env file, in increasing order of precedence up to these flags.
`)
}

func reportError(err error) int {
	if re, ok := err.(*errs.RuntimeError); ok && re.Kind == errs.UserThrowKind {
		fmt.Fprintf(os.Stderr, "lambo: uncaught throw: %s\n", re.Message)
		slog.Error("uncaught throw", slog.String("value", re.Message))
		return 1
	}
	fmt.Fprintf(os.Stderr, "lambo: %v\n", err)
	slog.Error("evaluation failed", slog.String("error", err.Error()))
	return 1
}

func setupLogging(cfg config.Config) {
	out := os.Stderr
	if cfg.LogFile != "" {
		if f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			out = f
		} else {
			fmt.Fprintf(os.Stderr, "lambo: failed to open log file %q: %v; logging to stderr\n", cfg.LogFile, err)
		}
	}
	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)})
	slog.SetDefault(slog.New(handler))
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
