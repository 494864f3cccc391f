package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all barrace configuration.
type Config struct {
	Server ServerConfig
	Store  StoreConfig
	Log    LogConfig
	Render RenderConfig
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr       string
	JobTimeout time.Duration
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	DBPath    string
	OutputDir string
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string
	Format string // "text" or "json"
}

// RenderConfig holds defaults for normalization and rendering; run specs and
// CLI flags override them.
type RenderConfig struct {
	TopN         int
	Format       string
	FPS          int
	PeriodMillis int
	Width        int
	Height       int
	DPI          int
	Colormap     string
	Transition   string
	FontFile     string
	Workers      int
}

// LoadDotEnv loads .env style files into the environment without overriding
// variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		Server: ServerConfig{
			Addr:       getenv("BARRACE_ADDR", ":8080"),
			JobTimeout: getenvDuration("BARRACE_JOB_TIMEOUT", 5*time.Minute),
		},
		Store: StoreConfig{
			DBPath:    getenv("BARRACE_DB_PATH", "barrace.db"),
			OutputDir: getenv("BARRACE_OUTPUT_DIR", "outputs"),
		},
		Log: LogConfig{
			Level:  getenv("BARRACE_LOG_LEVEL", "info"),
			Format: getenv("BARRACE_LOG_FORMAT", "text"),
		},
		Render: RenderConfig{
			TopN:         getenvInt("BARRACE_TOP_N", 10),
			Format:       getenv("BARRACE_FORMAT", "gif"),
			FPS:          getenvInt("BARRACE_FPS", 10),
			PeriodMillis: getenvInt("BARRACE_PERIOD_MS", 1000),
			Width:        getenvInt("BARRACE_WIDTH", 1280),
			Height:       getenvInt("BARRACE_HEIGHT", 720),
			DPI:          getenvInt("BARRACE_DPI", 100),
			Colormap:     getenv("BARRACE_COLORMAP", "viridis"),
			Transition:   getenv("BARRACE_TRANSITION", "ease_in_out_cubic"),
			FontFile:     os.Getenv("BARRACE_FONT_FILE"),
			Workers:      getenvInt("BARRACE_RENDER_WORKERS", 4),
		},
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
