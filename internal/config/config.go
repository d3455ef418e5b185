package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unit-finder/internal/adapters/render"
	"unit-finder/internal/adapters/unitapi"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "configs/finder.yaml"

// Config aggregates the runtime settings of the finder.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Locator LocatorConfig `yaml:"locator"`
	Map     MapConfig     `yaml:"map"`
	Log     LogConfig     `yaml:"log"`
	Output  string        `yaml:"output"`
}

// APIConfig points at the unit-search backend.
type APIConfig struct {
	BaseURL      string        `yaml:"baseUrl"`
	Timeout      time.Duration `yaml:"timeout"`
	RadiusMeters int           `yaml:"radiusMeters"`
	MaxResults   int           `yaml:"maxResults"`
}

// LocatorConfig selects the device position source.
// Kind is "static", "ip" or "none".
type LocatorConfig struct {
	Kind               string        `yaml:"kind"`
	DeviceLat          *float64      `yaml:"deviceLat"`
	DeviceLon          *float64      `yaml:"deviceLon"`
	IPLookupURL        string        `yaml:"ipLookupUrl"`
	EnableHighAccuracy bool          `yaml:"enableHighAccuracy"`
	Timeout            time.Duration `yaml:"timeout"`
	MaximumAge         time.Duration `yaml:"maximumAge"`
}

// MapConfig holds the map defaults and marker artwork.
type MapConfig struct {
	DefaultLat       float64        `yaml:"defaultLat"`
	DefaultLon       float64        `yaml:"defaultLon"`
	DefaultZoom      int            `yaml:"defaultZoom"`
	NeighborhoodZoom int            `yaml:"neighborhoodZoom"`
	FocusZoom        int            `yaml:"focusZoom"`
	Icons            render.IconSet `yaml:"icons"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads .env, then the YAML file, then environment overrides.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path := os.Getenv("FINDER_CONFIG"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat(defaultConfigPath); err == nil {
		if err := hydrateFromFile(cfg, defaultConfigPath); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:      unitapi.DefaultBaseURL,
			Timeout:      15 * time.Second,
			RadiusMeters: unitapi.DefaultRadiusMeters,
		},
		Locator: LocatorConfig{
			Kind:               "ip",
			EnableHighAccuracy: true,
			Timeout:            10 * time.Second,
			MaximumAge:         5 * time.Minute,
		},
		Map: MapConfig{
			DefaultLat:       -12.9714,
			DefaultLon:       -38.5014,
			DefaultZoom:      11,
			NeighborhoodZoom: 12,
			FocusZoom:        16,
			Icons:            render.DefaultIconSet(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Output: "text",
	}
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %q: %w", path, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func applyEnvOverrides(cfg *Config) error {
	cfg.API.BaseURL = getEnv("API_BASE_URL", cfg.API.BaseURL)
	cfg.Locator.Kind = getEnv("LOCATOR", cfg.Locator.Kind)
	cfg.Locator.IPLookupURL = getEnv("IP_LOCATOR_URL", cfg.Locator.IPLookupURL)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
	cfg.Output = getEnv("OUTPUT", cfg.Output)
	cfg.Map.Icons.Public = getEnv("ICON_PUBLIC_URL", cfg.Map.Icons.Public)
	cfg.Map.Icons.Private = getEnv("ICON_PRIVATE_URL", cfg.Map.Icons.Private)
	cfg.Map.Icons.User = getEnv("ICON_USER_URL", cfg.Map.Icons.User)

	var errs []error

	if v := os.Getenv("SEARCH_RADIUS_METERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("SEARCH_RADIUS_METERS: %w", err))
		}
		cfg.API.RadiusMeters = n
	}
	if v := os.Getenv("MAX_RESULTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("MAX_RESULTS: %w", err))
		}
		cfg.API.MaxResults = n
	}
	if v := os.Getenv("HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("HTTP_TIMEOUT: %w", err))
		}
		cfg.API.Timeout = d
	}
	if v := os.Getenv("GEO_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("GEO_TIMEOUT: %w", err))
		}
		cfg.Locator.Timeout = d
	}
	if v := os.Getenv("GEO_MAX_AGE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("GEO_MAX_AGE: %w", err))
		}
		cfg.Locator.MaximumAge = d
	}
	if v := os.Getenv("GEO_HIGH_ACCURACY"); v != "" {
		cfg.Locator.EnableHighAccuracy = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("FINDER_DEVICE_LAT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("FINDER_DEVICE_LAT: %w", err))
		}
		cfg.Locator.DeviceLat = &f
	}
	if v := os.Getenv("FINDER_DEVICE_LON"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("FINDER_DEVICE_LON: %w", err))
		}
		cfg.Locator.DeviceLon = &f
	}

	return errors.Join(errs...)
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.API.RadiusMeters <= 0 {
		return errors.New("api.radiusMeters must be positive")
	}
	if c.API.MaxResults < 0 {
		return errors.New("api.maxResults must not be negative")
	}
	if c.API.Timeout <= 0 {
		return errors.New("api.timeout must be positive")
	}
	if c.Locator.Timeout <= 0 {
		return errors.New("locator.timeout must be positive")
	}

	switch c.Locator.Kind {
	case "ip", "none":
	case "static":
		if c.Locator.DeviceLat == nil || c.Locator.DeviceLon == nil {
			return errors.New("static locator needs FINDER_DEVICE_LAT and FINDER_DEVICE_LON")
		}
	default:
		return fmt.Errorf("unknown locator kind %q", c.Locator.Kind)
	}

	switch c.Output {
	case "text", "geojson":
	default:
		return fmt.Errorf("unknown output %q", c.Output)
	}

	return nil
}
