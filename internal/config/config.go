// Package config loads profile configuration from a YAML file, an optional .env file and
// NKAS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/nkas/pkg/domain"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultProfile is used when no profile is named.
const DefaultProfile = "nkas"

// ErrUnknownProfile is returned when the requested profile is not configured.
var ErrUnknownProfile = errors.New("unknown profile")

// Environment overrides.
const (
	EnvSerial        = "NKAS_SERIAL"
	EnvControlMethod = "NKAS_CONTROL_METHOD"
	EnvADB           = "NKAS_ADB"
	EnvRedisAddr     = "NKAS_REDIS_ADDR"
	EnvLogLevel      = "NKAS_LOG_LEVEL"
)

// Config is the content of the configuration file.
type Config struct {
	Profiles   map[string]Profile `mapstructure:"profiles"`
	RedisAddr  string             `mapstructure:"redis_addr"`
	LockDir    string             `mapstructure:"lock_dir"`
	StatusAddr string             `mapstructure:"status_addr"`
	LogLevel   string             `mapstructure:"log_level"`
}

// Profile configures one automation session.
type Profile struct {
	Name             string               `mapstructure:"-"`
	Serial           string               `mapstructure:"serial"`
	ADB              string               `mapstructure:"adb"`
	ControlMethod    domain.ControlMethod `mapstructure:"control_method"`
	Package          string               `mapstructure:"package"`
	Activity         string               `mapstructure:"activity"`
	ScreenshotMethod string               `mapstructure:"screenshot_method"`
	Resolution       Resolution           `mapstructure:"resolution"`
	CommandTimeout   time.Duration        `mapstructure:"command_timeout"`
	HealthInterval   time.Duration        `mapstructure:"health_interval"`
	Retry            Retry                `mapstructure:"retry"`
	Minitouch        Minitouch            `mapstructure:"minitouch"`
	App              App                  `mapstructure:"app"`
}

// Resolution is the expected screen size. It decodes from "720x1280" or a mapping.
type Resolution struct {
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// Retry configures the retry policy.
type Retry struct {
	Tries int `mapstructure:"tries"`
}

// Minitouch configures the direct injection backend.
type Minitouch struct {
	Port   int    `mapstructure:"port"`
	Binary string `mapstructure:"binary"`
}

// App configures the launch sequence.
type App struct {
	Settle  time.Duration `mapstructure:"settle"`
	Dismiss domain.Point  `mapstructure:"dismiss"`
}

// Defaults returns the profile used for unset keys.
func Defaults() Profile {
	return Profile{
		Serial:           "127.0.0.1:16384",
		ADB:              "adb",
		ControlMethod:    domain.MethodMinitouch,
		Package:          "com.proximabeta.nikke",
		Activity:         "com.shiftup.nk.MainActivity",
		ScreenshotMethod: "png",
		Resolution:       Resolution{Width: 720, Height: 1280},
		CommandTimeout:   10 * time.Second,
		HealthInterval:   30 * time.Second,
		Retry:            Retry{Tries: 5},
		Minitouch:        Minitouch{Port: 1111, Binary: "/data/local/tmp/minitouch"},
		App:              App{Settle: time.Second, Dismiss: domain.Pt(250, 615)},
	}
}

// Load reads the configuration file at path. A missing file yields an empty configuration,
// so every profile falls back to Defaults. A .env file next to the configuration file is
// loaded first; variables already set in the environment win.
func Load(path string) (*Config, error) {
	envFile := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg := &Config{LockDir: filepath.Join(".nkas", "locks"), StatusAddr: "127.0.0.1:9464"}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := decode(data, cfg); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv(EnvRedisAddr); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if raw == nil {
		return nil
	}
	// Profiles are decoded onto the defaults so partial profiles keep the other keys.
	rawProfiles, _ := raw["profiles"].(map[string]any)
	delete(raw, "profiles")

	if err := newDecoder(cfg).Decode(raw); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Profiles = make(map[string]Profile, len(rawProfiles))
	for name, v := range rawProfiles {
		p := Defaults()
		if v != nil {
			if err := newDecoder(&p).Decode(v); err != nil {
				return fmt.Errorf("failed to decode profile %q: %w", name, err)
			}
		}
		cfg.Profiles[name] = p
	}
	return nil
}

func newDecoder(out any) *mapstructure.Decoder {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			resolutionHook,
			pointHook,
		),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		// Only reachable with a non-pointer result.
		panic(err)
	}
	return dec
}

// ProfileNames returns the configured profile names, sorted.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Profile returns the named profile with environment overrides applied. An empty name selects
// DefaultProfile, which exists even when the file does not declare it.
func (c *Config) Profile(name string) (Profile, error) {
	if name == "" {
		name = DefaultProfile
	}
	p, ok := c.Profiles[name]
	if !ok {
		if name != DefaultProfile {
			return Profile{}, fmt.Errorf("%w: %q (configured: %s)", ErrUnknownProfile, name, strings.Join(c.ProfileNames(), ", "))
		}
		p = Defaults()
	}
	p.Name = name

	if v := os.Getenv(EnvSerial); v != "" {
		p.Serial = v
	}
	if v := os.Getenv(EnvControlMethod); v != "" {
		p.ControlMethod = domain.ControlMethod(v)
	}
	if v := os.Getenv(EnvADB); v != "" {
		p.ADB = v
	}
	return p, nil
}

var (
	resolutionType = reflect.TypeOf(Resolution{})
	pointType      = reflect.TypeOf(domain.Point{})
)

func resolutionHook(from, to reflect.Type, data any) (any, error) {
	if to != resolutionType || from.Kind() != reflect.String {
		return data, nil
	}
	s := strings.ToLower(strings.TrimSpace(data.(string)))
	w, h, ok := strings.Cut(s, "x")
	if !ok {
		return nil, fmt.Errorf("resolution %q: want WIDTHxHEIGHT", s)
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return nil, fmt.Errorf("resolution %q: %w", s, err)
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return nil, fmt.Errorf("resolution %q: %w", s, err)
	}
	return Resolution{Width: width, Height: height}, nil
}

// pointHook accepts [x, y] and "x,y" for points.
func pointHook(from, to reflect.Type, data any) (any, error) {
	if to != pointType {
		return data, nil
	}
	switch v := data.(type) {
	case []any:
		if len(v) != 2 {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCoordinates, v)
		}
		return map[string]any{"x": v[0], "y": v[1]}, nil
	case string:
		x, y, ok := strings.Cut(v, ",")
		if !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidCoordinates, v)
		}
		return map[string]any{"x": strings.TrimSpace(x), "y": strings.TrimSpace(y)}, nil
	}
	return data, nil
}
