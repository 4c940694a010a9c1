package internal

import "time"

type Config struct {
	BadgerFilepath    string `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath     string `env:"BLUGE_FILEPATH,required=true"`
	LogLevel          string `env:"LOG_LEVEL,required=true"`
	Host              string `env:"HOST,default=localhost"`
	Port              int    `env:"PORT,default=8080"`
	DebugPort         int    `env:"DEBUG_PORT,default=8081"`
	EnableDebugServer bool   `env:"ENABLE_DEBUG_SERVER,default=false"`

	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`

	MaxContentLength int           `env:"MAX_CONTENT_LENGTH,default=500"`
	RateLimit        int           `env:"RATE_LIMIT,default=10"`
	RateWindow       time.Duration `env:"RATE_WINDOW,default=60s"`

	SweepInterval  time.Duration `env:"SWEEP_INTERVAL,default=5m"`
	MetricInterval time.Duration `env:"METRIC_INTERVAL,default=30s"`
}
