// Package config resolves the interpreter's ambient configuration by
// layering, lowest precedence first: built-in defaults, lambo.toml,
// environment variables (loaded from a .env file via godotenv), and
// finally command-line flags.
package config

import (
	"flag"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config is the resolved set of ambient settings the interpreter and its
// host facilities run with.
type Config struct {
	RootPath  string
	LogLevel  string
	LogFile   string
	DbTimeout time.Duration

	SmtpHost string
	SmtpPort int
	SmtpUser string
	SmtpPass string
	SmtpFrom string

	// Help and Version report that the corresponding flag was passed; the
	// caller prints the matching message and exits before doing anything
	// else, the same way the rest of the flag set is resolved before any
	// source file is read.
	Help    bool
	Version bool
}

type fileConfig struct {
	RootPath         string `toml:"root_path"`
	LogLevel         string `toml:"log_level"`
	LogFile          string `toml:"log_file"`
	DbTimeoutSeconds int    `toml:"db_timeout_seconds"`
	SmtpHost         string `toml:"smtp_host"`
	SmtpPort         int    `toml:"smtp_port"`
	SmtpUser         string `toml:"smtp_user"`
	SmtpPass         string `toml:"smtp_pass"`
	SmtpFrom         string `toml:"smtp_from"`
}

// Default returns the built-in configuration baseline.
func Default() Config {
	return Config{
		RootPath:  ".",
		LogLevel:  "error",
		DbTimeout: 10 * time.Second,
		SmtpPort:  587,
	}
}

// Load resolves configuration from tomlPath, envPath and args (in that
// order of increasing precedence) and returns it alongside the
// non-flag command-line arguments.
func Load(args []string, tomlPath, envPath string) (Config, []string) {
	cfg := Default()

	if data, err := os.ReadFile(tomlPath); err == nil {
		var fc fileConfig
		if _, err := toml.Decode(string(data), &fc); err == nil {
			applyFileConfig(&cfg, fc)
		}
	}

	_ = godotenv.Load(envPath) // a missing .env file is not an error
	applyEnv(&cfg)

	fs := flag.NewFlagSet("lambo", flag.ExitOnError)
	fs.StringVar(&cfg.RootPath, "root", cfg.RootPath, "root directory used to resolve relative paths")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "log file path (defaults to stderr)")
	fs.BoolVar(&cfg.Help, "help", false, "display help information and exit")
	fs.BoolVar(&cfg.Help, "h", false, "display help information and exit")
	fs.BoolVar(&cfg.Version, "version", false, "display version information and exit")
	fs.BoolVar(&cfg.Version, "v", false, "display version information and exit")
	fs.Parse(args)

	return cfg, fs.Args()
}

func applyFileConfig(cfg *Config, fc fileConfig) {
	if fc.RootPath != "" {
		cfg.RootPath = fc.RootPath
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.LogFile != "" {
		cfg.LogFile = fc.LogFile
	}
	if fc.DbTimeoutSeconds > 0 {
		cfg.DbTimeout = time.Duration(fc.DbTimeoutSeconds) * time.Second
	}
	if fc.SmtpHost != "" {
		cfg.SmtpHost = fc.SmtpHost
	}
	if fc.SmtpPort > 0 {
		cfg.SmtpPort = fc.SmtpPort
	}
	if fc.SmtpUser != "" {
		cfg.SmtpUser = fc.SmtpUser
	}
	if fc.SmtpPass != "" {
		cfg.SmtpPass = fc.SmtpPass
	}
	if fc.SmtpFrom != "" {
		cfg.SmtpFrom = fc.SmtpFrom
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LAMBO_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LAMBO_SMTP_HOST"); v != "" {
		cfg.SmtpHost = v
	}
	if v := os.Getenv("LAMBO_SMTP_USER"); v != "" {
		cfg.SmtpUser = v
	}
	if v := os.Getenv("LAMBO_SMTP_PASS"); v != "" {
		cfg.SmtpPass = v
	}
	if v := os.Getenv("LAMBO_SMTP_FROM"); v != "" {
		cfg.SmtpFrom = v
	}
}
