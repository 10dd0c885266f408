package directions

import (
	"time"

	"github.com/lintang-b-s/naviguide/pkg"
	"github.com/spf13/viper"
)

type Config struct {
	BaseURL string // OSRM-compatible service, e.g. http://localhost:5000
	Profile string // routing profile segment of /route/v1/{profile}

	Timeout       time.Duration
	RatePerSecond float64
	RateBurst     int
	CacheSize     int

	// clockwise roundabout (like in indonesia) or counter-clockwise roundabout
	Clockwise bool
}

func DefaultConfig() Config {
	return Config{
		BaseURL:       "http://localhost:5000",
		Profile:       "driving",
		Timeout:       pkg.DIRECTIONS_TIMEOUT_SECOND * time.Second,
		RatePerSecond: pkg.DIRECTIONS_RATE_PER_SECOND,
		RateBurst:     pkg.DIRECTIONS_RATE_BURST,
		CacheSize:     pkg.ROUTE_CACHE_SIZE,
		Clockwise:     true,
	}
}

// NewConfigFromViper reads the directions.* keys, falling back to the defaults
// above for anything the config file leaves out.
func NewConfigFromViper() Config {
	def := DefaultConfig()
	viper.SetDefault("directions.base_url", def.BaseURL)
	viper.SetDefault("directions.profile", def.Profile)
	viper.SetDefault("directions.timeout", def.Timeout)
	viper.SetDefault("directions.rate_per_second", def.RatePerSecond)
	viper.SetDefault("directions.rate_burst", def.RateBurst)
	viper.SetDefault("directions.cache_size", def.CacheSize)
	viper.SetDefault("directions.clockwise_roundabout", def.Clockwise)

	return Config{
		BaseURL:       viper.GetString("directions.base_url"),
		Profile:       viper.GetString("directions.profile"),
		Timeout:       viper.GetDuration("directions.timeout"),
		RatePerSecond: viper.GetFloat64("directions.rate_per_second"),
		RateBurst:     viper.GetInt("directions.rate_burst"),
		CacheSize:     viper.GetInt("directions.cache_size"),
		Clockwise:     viper.GetBool("directions.clockwise_roundabout"),
	}
}
