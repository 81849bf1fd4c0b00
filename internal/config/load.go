package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// DirEnv overrides where Load looks for <env>.yaml.
const DirEnv = "SIMDEX_CONFIG_DIR"

// maxParentDirs bounds the upward search for a config/ directory, so the
// CLI works from any subdirectory of a checkout.
const maxParentDirs = 5

// GetEnv returns SIMDEX_ENV, then ENV, defaulting to "local".
func GetEnv() string {
	for _, key := range []string{"SIMDEX_ENV", "ENV"} {
		if env := os.Getenv(key); env != "" {
			return env
		}
	}
	return "local"
}

// Load reads <env>.yaml from $SIMDEX_CONFIG_DIR, or from the nearest
// config/ directory at or above the working directory.
func Load(env string) (Config, error) {
	path, err := locate(env + ".yaml")
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse expands environment references, decodes YAML, applies defaults and
// validates. References take the shell forms ${VAR}, ${VAR:-default} and
// ${VAR:?message}; the last fails when VAR is unset or empty.
func Parse(data []byte) (Config, error) {
	data, err := expand(data)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func locate(filename string) (string, error) {
	if dir := os.Getenv(DirEnv); dir != "" {
		path := filepath.Join(dir, filename)
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config from %s: %w", DirEnv, err)
		}
		return path, nil
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("locate config: %w", err)
	}
	tried := make([]string, 0, maxParentDirs+1)
	for range maxParentDirs + 1 {
		path := filepath.Join(dir, "config", filename)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		tried = append(tried, path)
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("config %s not found, tried %s", filename, strings.Join(tried, ", "))
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?:(:-|:\?)([^}]*))?\}`)

// expand substitutes environment references and reports every required
// variable that is missing, not just the first.
func expand(data []byte) ([]byte, error) {
	var missing []error
	out := envRef.ReplaceAllFunc(data, func(match []byte) []byte {
		sub := envRef.FindSubmatch(match)
		name, op, arg := string(sub[1]), string(sub[2]), string(sub[3])
		val := os.Getenv(name)
		if val != "" {
			return []byte(val)
		}
		switch op {
		case ":-":
			return []byte(arg)
		case ":?":
			if arg == "" {
				arg = "required"
			}
			missing = append(missing, fmt.Errorf("%s: %s", name, arg))
		}
		return nil
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("unset environment: %w", errors.Join(missing...))
	}
	return out, nil
}
