package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"bitebook/internal/places"

	"github.com/joho/godotenv"
)

// Config holds CLI configuration.
type Config struct {
	APIURL      string
	APIToken    string
	MapsAPIKey  string
	MapsEnabled bool
	Debug       bool
	ConfigDir   string
}

// flagValues are the persistent flags shared by every command.
type flagValues struct {
	api     string
	mapsKey string
	token   string
	debug   bool
}

var flags flagValues

// loadDotEnv reads .env then .env.local. Variables already in the
// environment win over both files.
func loadDotEnv() {
	for _, path := range []string{".env", ".env.local"} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		_ = godotenv.Load(path)
	}
}

// configDir returns ~/.bitebook, creating it when missing.
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	dir := filepath.Join(home, ".bitebook")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// resolveConfig merges flags over environment over defaults.
func resolveConfig(f flagValues, getenv func(string) string) *Config {
	cfg := &Config{
		APIURL:     firstNonEmpty(f.api, getenv("BITEBOOK_API_URL"), places.DefaultBaseURL),
		APIToken:   firstNonEmpty(f.token, getenv("BITEBOOK_API_TOKEN")),
		MapsAPIKey: firstNonEmpty(f.mapsKey, getenv("GOOGLE_MAPS_API_KEY")),
		Debug:      f.debug || envBool(getenv("BITEBOOK_DEBUG")),
	}
	cfg.MapsEnabled = cfg.MapsAPIKey != ""
	return cfg
}

// loadConfig resolves the configuration for the current process.
func loadConfig() (*Config, error) {
	loadDotEnv()
	cfg := resolveConfig(flags, os.Getenv)

	dir, err := configDir()
	if err != nil {
		return nil, err
	}
	cfg.ConfigDir = dir
	return cfg, nil
}

func (c *Config) placesClient() *places.Client {
	return places.NewClient(c.APIURL, places.WithBearerToken(c.APIToken))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func envBool(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		// Any other non-empty value, e.g. "yes", turns debugging on.
		return true
	}
	return b
}
