package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. Database credentials and the secret key are
// required; everything else falls back to development defaults.
type Config struct {
	Env            string        // application environment (e.g. "dev", "prod")
	Port           string        // HTTP port to listen on
	SiteName       string        // site title injected into rendered pages
	DBUser         string        // database username
	DBPass         string        // database password (optional)
	DBHost         string        // database host address
	DBPort         string        // database port number
	DBName         string        // database name
	DBMaxOpen      int           // connection pool: max open connections
	DBMaxIdle      int           // connection pool: max idle connections
	DBMaxLifetime  time.Duration // connection pool: per-connection lifetime cap
	SecretKey      string        // secret used to sign password-reset tokens
	BcryptCost     int           // bcrypt cost for password hashing
	SessionTTL     time.Duration // idle lifetime of a server-side session
	UploadRoot     string        // directory under which all attachments live
	MaxUploadBytes int64         // request body cap for upload endpoints
	AMQPURL        string        // broker URL for course activity events (optional)
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present so local development does not need
// exported variables. Missing required values abort startup.
func Load() Config {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			log.Fatalf("config: loading .env: %v", err)
		}
	}
	return Config{
		Env:            envStr("APP_ENV", "dev"),
		Port:           envStr("APP_PORT", "8080"),
		SiteName:       envStr("SITE_NAME", "IpêLMS"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		DBMaxOpen:      envInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdle:      envInt("DB_MAX_IDLE_CONNS", 25),
		DBMaxLifetime:  envDur("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		SecretKey:      must("SECRET_KEY"),
		BcryptCost:     envInt("BCRYPT_COST", 12),
		SessionTTL:     envDur("SESSION_TTL", 24*time.Hour),
		UploadRoot:     envStr("UPLOAD_ROOT", "uploads"),
		MaxUploadBytes: int64(envInt("MAX_UPLOAD_BYTES", 10<<20)),
		AMQPURL:        os.Getenv("RABBITMQ_URL"),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
