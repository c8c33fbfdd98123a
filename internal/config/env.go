// Package config loads process configuration from the environment and
// optional .env files.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Prefix is prepended to every cclprep environment variable.
const Prefix = "CCLPREP_"

// LoadDotEnv loads variables from the given .env files into the process
// environment. Variables already set are left untouched. Missing files are
// not an error; with no arguments ".env" in the working directory is tried.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// Get returns the value of CCLPREP_<key>, or fallback when unset or empty.
func Get(key, fallback string) string {
	if v := os.Getenv(Prefix + key); v != "" {
		return v
	}
	return fallback
}

// Bool parses CCLPREP_<key> as a boolean. Unrecognised values yield fallback.
func Bool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(Prefix + key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// Int parses CCLPREP_<key> as an integer.
func Int(key string, fallback int) int {
	v, ok := os.LookupEnv(Prefix + key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return n
}

// Duration parses CCLPREP_<key> with time.ParseDuration. A bare integer is
// read as seconds.
func Duration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(Prefix + key)
	if !ok {
		return fallback
	}
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
