package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	EnvPolicy     = "SELLERGUARD_POLICY"
	EnvReportsDir = "SELLERGUARD_REPORTS_DIR"
	EnvThreads    = "SELLERGUARD_THREADS"
	EnvPlatform   = "SELLERGUARD_PLATFORM"
)

// Env holds the environment overrides. Process variables win over values
// read from the dotenv file, matching godotenv.Load.
type Env struct {
	PolicyPath string
	ReportsDir string
	Threads    int
	Platform   string
}

// LoadEnv reads dotenvPath (a missing file is fine) and the process
// environment.
func LoadEnv(dotenvPath string) (Env, error) {
	file := map[string]string{}
	if dotenvPath != "" {
		values, err := godotenv.Read(dotenvPath)
		switch {
		case err == nil:
			file = values
		case errors.Is(err, os.ErrNotExist):
		default:
			return Env{}, fmt.Errorf("read %s: %w", dotenvPath, err)
		}
	}
	get := func(key string) string {
		if val, ok := os.LookupEnv(key); ok && val != "" {
			return val
		}
		return file[key]
	}

	env := Env{
		PolicyPath: get(EnvPolicy),
		ReportsDir: get(EnvReportsDir),
		Platform:   get(EnvPlatform),
	}
	if val := get(EnvThreads); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil || n < 0 {
			return Env{}, fmt.Errorf("%s: invalid thread count %q", EnvThreads, val)
		}
		env.Threads = n
	}
	return env, nil
}

// PolicyPathOr returns the configured policy path or fallback.
func (e Env) PolicyPathOr(fallback string) string {
	if e.PolicyPath != "" {
		return e.PolicyPath
	}
	return fallback
}

// Apply overlays the non-empty overrides onto p.
func (e Env) Apply(p *Policy) {
	if e.ReportsDir != "" {
		p.Output.ReportsDir = e.ReportsDir
	}
	if e.Threads > 0 {
		p.Scan.Threads = e.Threads
	}
	if e.Platform != "" {
		p.Platform = e.Platform
	}
}
