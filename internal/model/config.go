package model

import (
	"net/url"
	"strings"
	"time"
)

// Config holds the complete carepath configuration
type Config struct {
	Region       RegionConfig       `yaml:"region" mapstructure:"region"`
	Dataset      DatasetConfig      `yaml:"dataset" mapstructure:"dataset"`
	Places       PlacesConfig       `yaml:"places" mapstructure:"places"`
	SafeMode     SafeModeConfig     `yaml:"safe_mode" mapstructure:"safe_mode"`
	Assist       AssistConfig       `yaml:"assist" mapstructure:"assist"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
}

// RegionConfig sets the administrative region assumed when a turn carries
// no resolvable address
type RegionConfig struct {
	DefaultProvince string `yaml:"default_province" mapstructure:"default_province"`
	DefaultDistrict string `yaml:"default_district" mapstructure:"default_district"`
}

// DatasetConfig points at the curated baseline place dataset
type DatasetConfig struct {
	Path     string  `yaml:"path" mapstructure:"path"`
	RadiusKm float64 `yaml:"radius_km" mapstructure:"radius_km"` // Baseline search radius around the caller
}

// PlacesConfig configures the data.go.kr place channels
type PlacesConfig struct {
	ServiceKey string        `yaml:"service_key" mapstructure:"service_key"`
	BaseURL    string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	CacheTTL   time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`

	EmergencyRadiusKm float64 `yaml:"emergency_radius_km" mapstructure:"emergency_radius_km"`
	HospitalRadiusKm  float64 `yaml:"hospital_radius_km" mapstructure:"hospital_radius_km"`
	ChannelLimit      int     `yaml:"channel_limit" mapstructure:"channel_limit"` // Max fresh results per channel in a turn

	// Proxy settings for environments that front outbound traffic
	HTTPProxy  string `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy" mapstructure:"no_proxy"`
}

// Configured reports whether the upstream service key is present
func (c PlacesConfig) Configured() bool {
	return strings.TrimSpace(c.ServiceKey) != ""
}

// SafeModeConfig holds the HIGH-tier category gate lists
type SafeModeConfig struct {
	AllowedCategories  []string `yaml:"allowed_categories" mapstructure:"allowed_categories"`
	ExcludedCategories []string `yaml:"excluded_categories" mapstructure:"excluded_categories"`
}

// AssistConfig configures the assistant message composer
type AssistConfig struct {
	// Provider name: "openai" or "" (canned messages only)
	Provider    string        `yaml:"provider" mapstructure:"provider"`
	Model       string        `yaml:"model" mapstructure:"model"`
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float32       `yaml:"temperature" mapstructure:"temperature"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr           string   `yaml:"addr" mapstructure:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// CacheConfig controls response caching for upstream place queries
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir     string        `yaml:"dir" mapstructure:"dir"` // Empty means ~/.carepath/cache
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// RateLimitingConfig bounds the request rate per upstream host
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ConcurrencyConfig sizes the channel fan-out worker pool
type ConcurrencyConfig struct {
	ChannelWorkers int `yaml:"channel_workers" mapstructure:"channel_workers"`
}

// OutputConfig controls CLI output behavior
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns the built-in defaults. Every knob a config file or
// environment variable can set starts from the value here.
func DefaultConfig() *Config {
	return &Config{
		Region: RegionConfig{
			DefaultProvince: "서울특별시",
			DefaultDistrict: "종로구",
		},
		Dataset: DatasetConfig{
			Path:     "data/medical_places.csv",
			RadiusKm: 3.0,
		},
		Places: PlacesConfig{
			BaseURL:           "http://apis.data.go.kr",
			Timeout:           8 * time.Second,
			CacheTTL:          10 * time.Minute,
			EmergencyRadiusKm: 10.0,
			HospitalRadiusKm:  5.0,
			ChannelLimit:      10,
		},
		SafeMode: SafeModeConfig{
			AllowedCategories:  []string{"emergency_room", "hospital", "trauma_center", "urgent_care"},
			ExcludedCategories: []string{"pharmacy", "convenience_store", "drugstore", "supermarket", "beauty_clinic"},
		},
		Assist: AssistConfig{
			Provider:    "", // Canned messages unless a provider is configured
			Model:       "gpt-4o-mini",
			Timeout:     30 * time.Second,
			MaxTokens:   300,
			Temperature: 0.3,
		},
		Server: ServerConfig{
			Addr:           ":8000",
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     10 * time.Minute,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 5.0,
			BurstSize:         5,
		},
		Concurrency: ConcurrencyConfig{
			ChannelWorkers: 2,
		},
		Output: OutputConfig{
			Verbose: false,
		},
	}
}

// NormalizeServiceKey cleans up a data.go.kr service key taken from the
// environment. Portal keys are issued URL-encoded; when the raw value still
// contains percent escapes it is decoded once so the HTTP client does not
// double-encode it.
func NormalizeServiceKey(raw string) string {
	key := strings.TrimSpace(raw)
	if key == "" {
		return ""
	}
	if strings.Contains(key, "%") {
		if decoded, err := url.QueryUnescape(key); err == nil {
			return decoded
		}
	}
	return key
}
