package config

import "os"

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort string
	DBPath     string
	// AppEnv controls environment-dependent behaviour such as the Secure
	// flag on the session cookie ("production" enables it).
	AppEnv string
}

// Load builds Config from environment with sensible defaults. The JWT secret
// is read directly by the auth package (JWT_SECRET).
func Load() *Config {
	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8008"),
		DBPath:     getEnv("DB_PATH", "task-tracker.db"),
		AppEnv:     getEnv("APP_ENV", "development"),
	}
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
