package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	apperrors "github.com/arthur-debert/instaclone/pkg/errors"
	"github.com/arthur-debert/instaclone/pkg/fsutil"
	"github.com/arthur-debert/instaclone/pkg/logging"
)

const envPrefix = "INSTACLONE_"

// DirEnvVar names an extra directory to search for config files.
const DirEnvVar = "INSTACLONE_DIR"

var configFileNames = []string{"instaclone.yml", "instaclone.yaml", "instaclone.toml"}

// Load resolves a config file (the explicit path if given, otherwise
// the search path) and returns the merged, validated configuration.
func Load(explicitPath string) (*Config, error) {
	path, err := findConfigFile(explicitPath)
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom loads configuration from a specific file. Merge order:
// built-in defaults, the file, then INSTACLONE_* environment variables.
func LoadFrom(path string) (*Config, error) {
	logger := logging.GetLogger("config")
	logger.Debug().Str("path", path).Msg("Loading configuration")

	k := koanf.New(".")

	// 1. Built-in defaults
	if err := k.Load(confmap.Provider(systemDefaults(), "."), nil); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrConfig, "failed to load default config")
	}

	// 2. Config file
	parser, err := parserFor(path)
	if err != nil {
		return nil, err
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrConfig, "failed to load config from %s", path)
	}

	// 3. Environment overrides. Double underscore separates nesting
	// levels so single underscores survive inside key names:
	// INSTACLONE_SETTINGS__CACHE_DIR -> settings.cache_dir
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrConfig, "failed to load environment overrides")
	}

	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrConfig, "failed to parse config from %s", path)
	}

	for i := range cfg.Items {
		cfg.Items[i].applyDefaults(cfg.Defaults)
		cfg.Items[i].normalize()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Debug().Int("items", len(cfg.Items)).Msg("Configuration loaded")
	return &cfg, nil
}

// findConfigFile resolves the config file location. An explicit path
// must exist; otherwise the working directory, $INSTACLONE_DIR, and
// ~/.instaclone are searched in order.
func findConfigFile(explicit string) (string, error) {
	if explicit != "" {
		path := fsutil.ExpandPath(explicit)
		if _, err := os.Stat(path); err != nil {
			return "", apperrors.Wrapf(err, apperrors.ErrConfig, "config file %s not found", path)
		}
		return path, nil
	}

	dirs := []string{"."}
	if dir := os.Getenv(DirEnvVar); dir != "" {
		dirs = append(dirs, fsutil.ExpandPath(dir))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".instaclone"))
	}

	for _, dir := range dirs {
		for _, name := range configFileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}
	return "", apperrors.Newf(apperrors.ErrConfig,
		"no config file found (looked for %s in %s)",
		strings.Join(configFileNames, ", "), strings.Join(dirs, ", "))
}

func parserFor(path string) (koanf.Parser, error) {
	switch filepath.Ext(path) {
	case ".yml", ".yaml":
		return yaml.Parser(), nil
	case ".toml":
		return toml.Parser(), nil
	default:
		return nil, apperrors.Newf(apperrors.ErrConfig, "unsupported config format %q", filepath.Ext(path))
	}
}

func systemDefaults() map[string]interface{} {
	return map[string]interface{}{
		"settings.archiver":          string(ArchiverCommand),
		"settings.archive_command":   "zip -q -r $ARCHIVE $DIR",
		"settings.unarchive_command": "unzip -q $ARCHIVE",
		"defaults.copy_type":         string(CopySymlink),
	}
}
