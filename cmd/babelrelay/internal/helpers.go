package internal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/joho/godotenv"

	"github.com/tinyland-inc/babelrelay/pkg/config"
	"github.com/tinyland-inc/babelrelay/pkg/logger"
)

const Logo = "🌐"

var (
	version   = "dev"
	gitCommit string
	buildTime string
	goVersion string
)

// ConfigFlag is bound to the root --config flag.
var ConfigFlag string

func GetConfigPath() string {
	if ConfigFlag != "" {
		return ConfigFlag
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".babelrelay", "config.json")
}

// LoadConfig reads .env from the working directory, then the config file, and
// initializes logging from the result.
func LoadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %w", err)
	}

	cfg, err := config.LoadConfig(GetConfigPath())
	if err != nil {
		return nil, err
	}

	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logger.Init(os.Stderr, cfg.Logging.Format, level)
	return cfg, nil
}

// FormatVersion returns the version string with optional git commit
func FormatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

// FormatBuildInfo returns build time and go version info
func FormatBuildInfo() (string, string) {
	build := buildTime
	goVer := goVersion
	if goVer == "" {
		goVer = runtime.Version()
	}
	return build, goVer
}

func GetVersion() string {
	return version
}
