package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	ClusterAPIBaseURL string // Required: base URL of the cluster controller API

	SessionSecret string        // Required in prod: HMAC secret for session tokens (generated if empty)
	SessionTTL    time.Duration // Optional: session lifetime (default: 12h)
	SecureCookies bool          // Optional: mark session cookies Secure (default: false)

	LDAPURL            string        // Optional: directory server URL; empty disables directory auth
	LDAPUserDNTemplate string        // Optional: DN template, e.g. "uid=%s,ou=users,dc=example,dc=com"
	LDAPTimeout        time.Duration // Optional: directory dial/bind timeout (default: 5s)

	AdminUsername string // Optional: bootstrap admin username (default: admin)
	AdminPassword string // Optional: bootstrap admin password (generated and logged once if empty)

	DatabaseFile        string        // Optional: path to SQLite database file (default: ./berth.db)
	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	return Config{
		ClusterAPIBaseURL: os.Getenv("BERTH_CLUSTER_API_URL"),

		SessionSecret: os.Getenv("BERTH_SESSION_SECRET"),
		SessionTTL:    getEnvDurationOrDefault("BERTH_SESSION_TTL", 12*time.Hour),
		SecureCookies: os.Getenv("BERTH_SECURE_COOKIES") == "true",

		LDAPURL:            os.Getenv("BERTH_LDAP_URL"),
		LDAPUserDNTemplate: os.Getenv("BERTH_LDAP_USER_DN_TEMPLATE"),
		LDAPTimeout:        getEnvDurationOrDefault("BERTH_LDAP_TIMEOUT", 5*time.Second),

		AdminUsername: getEnvOrDefault("BERTH_ADMIN_USERNAME", "admin"),
		AdminPassword: os.Getenv("BERTH_ADMIN_PASSWORD"),

		DatabaseFile:        getEnvOrDefault("BERTH_DATABASE_FILE", "berth.db"),
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	return defaultValue
}
