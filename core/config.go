package core

import (
	"fmt"
	"strconv"

	"github.com/gobuffalo/envy"
	"github.com/sirupsen/logrus"
)

// Configuration keys, read from the environment or .env files
const (
	EnvFps            = "KORU_FPS"
	EnvEventPollDelay = "KORU_EVENT_POLL_DELAY"
	EnvArchive        = "KORU_ARCHIVE"
	EnvAssetDir       = "KORU_ASSET_DIR"
	EnvBuiltinDir     = "KORU_BUILTIN_DIR"
	EnvWatch          = "KORU_WATCH"
	EnvLogLevel       = "KORU_LOG_LEVEL"
	EnvLogFormat      = "KORU_LOG_FORMAT"
)

// Configuration defines a global engine configuration setting
type Configuration struct {
	Time   TimeConfiguration
	Assets AssetConfiguration
	Log    LogConfiguration
}

// TimeConfiguration is used to configure time services
type TimeConfiguration struct {
	// FramesPerSecond caps frames per second that is put out
	// To unlimit, set to 0
	FramesPerSecond int

	// EventPollDelay is the delay between event polls, in milliseconds
	EventPollDelay int
}

// AssetConfiguration tells where assets are loaded from. Stores
// are asked in order: archive, directory, builtin.
type AssetConfiguration struct {
	Archive    string
	Directory  string
	BuiltinDir string

	// Watch reloads changed files of Directory
	Watch bool
}

// LogConfiguration sets up logging
type LogConfiguration struct {
	Level  string
	Format string
}

// DefaultConfiguration is used for every key that is not set
var DefaultConfiguration = Configuration{
	Time: TimeConfiguration{
		FramesPerSecond: 60,
		EventPollDelay:  10,
	},
	Assets: AssetConfiguration{
		BuiltinDir: "./builtin",
	},
	Log: LogConfiguration{
		Level:  "info",
		Format: "text",
	},
}

// LoadConfiguration reads the configuration from the environment,
// after loading the given .env files on top of it.
func LoadConfiguration(files ...string) (Configuration, error) {
	envy.Reload()
	if len(files) > 0 {
		if err := envy.Load(files...); err != nil {
			return Configuration{}, err
		}
	}

	cfg := DefaultConfiguration
	var err error
	if cfg.Time.FramesPerSecond, err = envInt(EnvFps, cfg.Time.FramesPerSecond); err != nil {
		return Configuration{}, err
	}
	if cfg.Time.EventPollDelay, err = envInt(EnvEventPollDelay, cfg.Time.EventPollDelay); err != nil {
		return Configuration{}, err
	}
	cfg.Assets.Archive = envy.Get(EnvArchive, cfg.Assets.Archive)
	cfg.Assets.Directory = envy.Get(EnvAssetDir, cfg.Assets.Directory)
	cfg.Assets.BuiltinDir = envy.Get(EnvBuiltinDir, cfg.Assets.BuiltinDir)
	if cfg.Assets.Watch, err = strconv.ParseBool(envy.Get(EnvWatch, "false")); err != nil {
		return Configuration{}, fmt.Errorf("%s: %w", EnvWatch, err)
	}
	cfg.Log.Level = envy.Get(EnvLogLevel, cfg.Log.Level)
	cfg.Log.Format = envy.Get(EnvLogFormat, cfg.Log.Format)
	return cfg, nil
}

func envInt(key string, def int) (int, error) {
	num, err := strconv.Atoi(envy.Get(key, strconv.Itoa(def)))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if num < 0 {
		return 0, fmt.Errorf("%s: must not be negative", key)
	}
	return num, nil
}

// Env returns the configuration as environment keys
func (c Configuration) Env() map[string]string {
	return map[string]string{
		EnvFps:            strconv.Itoa(c.Time.FramesPerSecond),
		EnvEventPollDelay: strconv.Itoa(c.Time.EventPollDelay),
		EnvArchive:        c.Assets.Archive,
		EnvAssetDir:       c.Assets.Directory,
		EnvBuiltinDir:     c.Assets.BuiltinDir,
		EnvWatch:          strconv.FormatBool(c.Assets.Watch),
		EnvLogLevel:       c.Log.Level,
		EnvLogFormat:      c.Log.Format,
	}
}

// ConfigureLogging applies the log configuration to a logger
func ConfigureLogging(cfg LogConfiguration, log *logrus.Logger) error {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return err
	}
	log.SetLevel(level)

	switch cfg.Format {
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return nil
}
