package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultContentPath = "content"
	DefaultOutputPath  = "dist"
	DefaultPublicPath  = "public"
	DefaultBasePath    = "at-an-arbor"
	DefaultSiteDomain  = "0xsalome.github.io"
	DefaultListenAddr  = "127.0.0.1:8080"
	DefaultSiteFile    = "arbor.yaml"
	DefaultCodeStyle   = "github"
)

type Config struct {
	ContentPath      string
	OutputPath       string
	PublicPath       string
	BasePath         string
	SiteDomain       string
	CodeStyle        string
	ListenAddr       string
	SiteFile         string
	BuildLockTimeout time.Duration
	Concurrency      int
	LogPretty        bool
	DebugLevel       string
}

// Load resolves the configuration from defaults, then the site file, then
// the environment. Environment variables always win.
func Load() (Config, error) {
	cfg := Config{
		ContentPath: DefaultContentPath,
		OutputPath:  DefaultOutputPath,
		PublicPath:  DefaultPublicPath,
		BasePath:    DefaultBasePath,
		SiteDomain:  DefaultSiteDomain,
		CodeStyle:   DefaultCodeStyle,
		ListenAddr:  DefaultListenAddr,
		SiteFile:    envOr("ARBOR_SITE_FILE", DefaultSiteFile),
	}

	site, err := LoadSiteFile(cfg.SiteFile)
	if err != nil {
		return Config{}, err
	}
	site.apply(&cfg)

	cfg.ContentPath = envOr("ARBOR_CONTENT_PATH", cfg.ContentPath)
	cfg.OutputPath = envOr("ARBOR_OUTPUT_PATH", cfg.OutputPath)
	cfg.PublicPath = envOr("ARBOR_PUBLIC_PATH", cfg.PublicPath)
	cfg.BasePath = envOr("ARBOR_BASE_PATH", cfg.BasePath)
	cfg.SiteDomain = envOr("ARBOR_SITE_DOMAIN", cfg.SiteDomain)
	cfg.CodeStyle = envOr("ARBOR_CODE_STYLE", cfg.CodeStyle)
	cfg.ListenAddr = envOr("ARBOR_LISTEN_ADDR", cfg.ListenAddr)
	cfg.BuildLockTimeout = parseDurationOr("ARBOR_BUILD_LOCK_TIMEOUT", 30*time.Second)
	cfg.Concurrency = parseIntOr("ARBOR_CONCURRENCY", runtime.GOMAXPROCS(0))
	cfg.LogPretty = parseBool(os.Getenv("ARBOR_LOG_PRETTY"))
	cfg.DebugLevel = strings.TrimSpace(os.Getenv("ARBOR_DEBUG_LEVEL"))
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func parseIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return fallback
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
