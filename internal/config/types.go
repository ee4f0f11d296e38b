package config

import "time"

// settings for the terminal client
type Config struct {
	APIBaseURL  string
	AuthPolicy  string
	HTTPTimeout time.Duration
	RateLimit   float64
	SessionDB   string
	Ephemeral   bool
	LogFile     string
	MetricsAddr string
	Environment string
}

// settings for the in-memory development backend
type ServerConfig struct {
	Port              string
	JWTSecret         string
	SessionSecret     string
	AccessTokenTTL    time.Duration
	GoogleClientID    string
	GoogleSecret      string
	CORSOrigins       []string
	SeedAdminEmail    string
	SeedAdminPassword string
	Environment       string
}

const (
	PolicyRedirect = "redirect"
	PolicyRefresh  = "refresh"
)
