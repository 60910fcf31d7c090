// Package walconfig loads the ambient configuration a log-backed tool needs:
// which device file to open and what geometry (BSIZE/LOGSIZE/MAXOPBLOCKS) to
// format or mount it with. Layering mirrors the precedence a filesystem
// utility typically wants: built-in defaults, then a global per-user config,
// then a project-local config file, then explicit CLI flags.
package walconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
)

// Config holds the parameters needed to open or format a log device.
type Config struct {
	DevicePath  string `json:"device_path"`
	BSIZE       int    `json:"bsize,omitempty"`
	LOGSIZE     int    `json:"logsize,omitempty"`
	MAXOPBLOCKS int    `json:"maxopblocks,omitempty"`
}

// ConfigSources tracks which config files were loaded, for diagnostics.
type ConfigSources struct {
	Global  string
	Project string
}

// DefaultConfig returns the built-in defaults used by the end-to-end demo
// scenarios.
func DefaultConfig() Config {
	return Config{
		DevicePath:  "wal.img",
		BSIZE:       1024,
		LOGSIZE:     30,
		MAXOPBLOCKS: 10,
	}
}

// ConfigFileName is the default project config file name.
const ConfigFileName = ".walog.json"

// getGlobalConfigPath returns the global config path: $XDG_CONFIG_HOME/walog/config.json
// if set, else ~/.config/walog/config.json. Returns "" if the home directory
// cannot be determined.
func getGlobalConfigPath(env []string) string {
	for _, e := range env {
		if after, ok := strings.CutPrefix(e, "XDG_CONFIG_HOME="); ok {
			return filepath.Join(after, "walog", "config.json")
		}
	}

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "walog", "config.json")
	}

	home, err := os.UserHomeDir()
	if err == nil {
		return filepath.Join(home, ".config", "walog", "config.json")
	}

	return ""
}

// resolveProjectConfigPath decides which file LoadConfig's project layer
// reads from: an explicit --config path (which must exist, since the caller
// named it on purpose) or the default project-local ConfigFileName (which is
// optional, since most callers never create one).
func resolveProjectConfigPath(workDir, configPath string) (path string, mustExist bool, err error) {
	if configPath == "" {
		return filepath.Join(workDir, ConfigFileName), false, nil
	}

	path = configPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(workDir, path)
	}

	if _, statErr := os.Stat(path); statErr != nil {
		return "", false, fmt.Errorf("%w: %s", ErrConfigFileNotFound, configPath)
	}

	return path, true, nil
}

// loadConfigLayer reads and decodes one JSONC config layer. A missing file
// is not an error unless mustExist is set (the caller asked for that exact
// path by name); it instead reports loaded=false so LoadConfig leaves the
// layer's fields untouched.
func loadConfigLayer(path string, mustExist bool) (cfg Config, loaded bool, err error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is intentionally caller-controlled
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return Config{}, false, nil
		}

		if mustExist {
			return Config{}, false, fmt.Errorf("%w: %s", ErrConfigFileRead, path)
		}

		return Config{}, false, nil
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: invalid JSONC: %w", ErrConfigInvalid, path, err)
	}

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, false, fmt.Errorf("%w %s: invalid JSON: %w", ErrConfigInvalid, path, err)
	}

	return cfg, true, nil
}

// LoadConfig loads configuration with the following precedence (highest
// wins): 1. Defaults, 2. Global user config, 3. Project config file (or an
// explicit configPath), 4. CLI overrides.
func LoadConfig(
	workDir, configPath string, cliOverrides Config, hasDeviceOverride bool, env []string,
) (Config, ConfigSources, error) {
	cfg := DefaultConfig()

	var sources ConfigSources

	if globalPath := getGlobalConfigPath(env); globalPath != "" {
		globalCfg, loaded, err := loadConfigLayer(globalPath, false)
		if err != nil {
			return Config{}, ConfigSources{}, err
		}

		if loaded {
			sources.Global = globalPath
			cfg = mergeConfig(cfg, globalCfg)
		}
	}

	projectPath, mustExist, err := resolveProjectConfigPath(workDir, configPath)
	if err != nil {
		return Config{}, ConfigSources{}, err
	}

	projectCfg, loaded, err := loadConfigLayer(projectPath, mustExist)
	if err != nil {
		return Config{}, ConfigSources{}, err
	}

	if loaded {
		sources.Project = projectPath
		cfg = mergeConfig(cfg, projectCfg)
	}

	if hasDeviceOverride {
		cfg.DevicePath = cliOverrides.DevicePath
	}

	cfg = mergeConfig(cfg, Config{
		BSIZE:       cliOverrides.BSIZE,
		LOGSIZE:     cliOverrides.LOGSIZE,
		MAXOPBLOCKS: cliOverrides.MAXOPBLOCKS,
	})

	if err := validateConfig(cfg); err != nil {
		return Config{}, ConfigSources{}, err
	}

	return cfg, sources, nil
}

// mergeConfig overlays overlay's set fields onto base. DevicePath is a
// plain string override: any non-empty overlay value wins. The three
// geometry fields are block counts, never legitimately negative or zero, so
// overlayGeometryField both detects "was this field set at all" and guards
// against a malformed layer (a config file with "bsize": -1) silently
// clobbering a good value from a lower-precedence layer; validateConfig
// still has the final say over whether the merged geometry is usable.
func mergeConfig(base, overlay Config) Config {
	if overlay.DevicePath != "" {
		base.DevicePath = overlay.DevicePath
	}

	base.BSIZE = overlayGeometryField(base.BSIZE, overlay.BSIZE)
	base.LOGSIZE = overlayGeometryField(base.LOGSIZE, overlay.LOGSIZE)
	base.MAXOPBLOCKS = overlayGeometryField(base.MAXOPBLOCKS, overlay.MAXOPBLOCKS)

	return base
}

func overlayGeometryField(base, overlay int) int {
	if overlay > 0 {
		return overlay
	}

	return base
}

func validateConfig(cfg Config) error {
	if cfg.DevicePath == "" {
		return ErrDevicePathEmpty
	}

	if cfg.BSIZE <= 0 || cfg.LOGSIZE <= 0 || cfg.MAXOPBLOCKS <= 0 {
		return ErrGeometryInvalid
	}

	// The header must fit in one block: LOGSIZE*4+4 < BSIZE.
	if cfg.LOGSIZE*4+4 >= cfg.BSIZE {
		return ErrHeaderTooLarge
	}

	return nil
}

// FormatConfig returns cfg as formatted JSON, for tools that want to report
// the resolved configuration back to the user.
func FormatConfig(cfg Config) (string, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to format config: %w", err)
	}

	return string(data), nil
}
