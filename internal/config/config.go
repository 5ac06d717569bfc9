package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time parses the sweep interval duration
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations
// and costs, and booleans for policy switches.
type Config struct {
	Env                   string        // application environment (e.g. "dev", "prod")
	Port                  string        // HTTP port to listen on
	DBUser                string        // database username
	DBPass                string        // database password (optional)
	DBHost                string        // database host address
	DBPort                string        // database port number
	DBName                string        // database name
	JWTSecret             string        // secret used to sign JWTs
	AccessTTLMin          int           // access token time-to-live in minutes
	RefreshTTLDays        int           // refresh token time-to-live in days
	BcryptCost            int           // bcrypt cost for password hashing
	AllowLateCancellation bool          // permit cancelling a stay already underway
	SweepInterval         time.Duration // how often the expiry sweep runs
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Policy knobs are
// optional and fall back to safe defaults.
func Load() Config {
	return Config{
		Env:                   must("APP_ENV"),                             // environment (dev/test/prod)
		Port:                  must("APP_PORT"),                            // port to bind the HTTP server
		DBUser:                must("DB_USER"),                             // database user
		DBPass:                os.Getenv("DB_PASS"),                        // database password (empty allowed)
		DBHost:                must("DB_HOST"),                             // database host
		DBPort:                must("DB_PORT"),                             // database port
		DBName:                must("DB_NAME"),                             // database name
		JWTSecret:             must("JWT_SECRET"),                          // secret used for signing JWTs
		AccessTTLMin:          mustInt("ACCESS_TOKEN_TTL_MIN"),             // TTL for access tokens in minutes
		RefreshTTLDays:        mustInt("REFRESH_TOKEN_TTL_DAYS"),           // TTL for refresh tokens in days
		BcryptCost:            mustInt("BCRYPT_COST"),                      // bcrypt cost factor
		AllowLateCancellation: boolDefault("ALLOW_LATE_CANCELLATION", false), // late-cancellation policy switch
		SweepInterval:         durDefault("SWEEP_INTERVAL", time.Minute),   // expiry sweep cadence
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// boolDefault reads an optional boolean variable, accepting "true"/"1".
func boolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v == "true" || v == "1"
}

// durDefault reads an optional duration variable (e.g. "30s", "2m").
func durDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid duration for %s: %q", key, v)
	}
	return d
}
