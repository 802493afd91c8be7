package config

type Limits struct {
	MaxRetries               int             `yaml:"max_retries" validate:"required,min=1,max=10"`
	MaxConcurrentValidations int             `yaml:"max_concurrent_validations" validate:"required,min=1,max=32"`
	RateLimit                RateLimitConfig `yaml:"rate_limit" validate:"required"`
}

// RateLimitConfig throttles build tool launches across concurrent runs.
type RateLimitConfig struct {
	LaunchesPerMinute int `yaml:"launches_per_minute" validate:"required,min=1,max=600"`
	BurstSize         int `yaml:"burst_size" validate:"required,min=1,max=32"`
}

func DefaultLimits() Limits {
	return Limits{
		MaxRetries:               3,
		MaxConcurrentValidations: 2,
		RateLimit: RateLimitConfig{
			LaunchesPerMinute: 30,
			BurstSize:         4,
		},
	}
}
