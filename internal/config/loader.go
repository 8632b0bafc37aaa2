package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix   = "SPARKD_"
	maxFileSize = 1 << 20
)

// LoadWithFile builds the configuration in three layers, later ones winning:
// defaults, the YAML file at configPath, then SPARKD_* environment variables.
//
// An empty configPath falls back to $SPARKD_CONFIG and then to
// ~/.config/sparkd/config.yaml. A missing file is not an error. An existing
// file must live under ~/.config/sparkd/ or /etc/sparkd/, be at most 1MB and
// have mode 0600 or 0400, since it usually holds the postgres DSN.
//
// Environment keys drop the prefix and split on the first underscore:
//
//	SPARKD_SERVER_HTTP_PORT     -> server.http_port
//	SPARKD_STORAGE_POSTGRES_DSN -> storage.postgres_dsn
//	SPARKD_RATELIMIT_BURST      -> ratelimit.burst
func LoadWithFile(configPath string) (*Config, error) {
	path, err := resolvePath(configPath)
	if err != nil {
		return nil, err
	}

	k := koanf.New(".")
	content, err := readFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func envKey(s string) string {
	section, field, ok := strings.Cut(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_")
	if !ok {
		return section
	}
	return section + "." + field
}

// allowedDirs lists where a config file may live.
func allowedDirs() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("locating home directory: %w", err)
	}
	return []string{filepath.Join(home, ".config", "sparkd"), "/etc/sparkd"}, nil
}

// resolvePath picks the config file and rejects paths, including symlink
// targets, outside allowedDirs.
func resolvePath(configPath string) (string, error) {
	dirs, err := allowedDirs()
	if err != nil {
		return "", err
	}
	if configPath == "" {
		configPath = os.Getenv(envPrefix + "CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(dirs[0], "config.yaml")
	}

	abs, err := filepath.Abs(configPath)
	if err != nil {
		return "", fmt.Errorf("config path validation failed: %w", err)
	}
	resolved := abs
	if r, err := filepath.EvalSymlinks(abs); err == nil {
		resolved = r
	}
	for _, dir := range dirs {
		if r, err := filepath.EvalSymlinks(dir); err == nil {
			dir = r
		}
		if strings.HasPrefix(resolved, dir+string(filepath.Separator)) {
			return abs, nil
		}
	}
	return "", fmt.Errorf("config path validation failed: %s is not under ~/.config/sparkd/ or /etc/sparkd/", configPath)
}

// readFile checks size and mode on the open descriptor, so the file that
// was checked is the file that is read.
func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if perm := info.Mode().Perm(); runtime.GOOS != "windows" && perm != 0o600 && perm != 0o400 {
		return nil, fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}
	return io.ReadAll(io.LimitReader(f, maxFileSize))
}
