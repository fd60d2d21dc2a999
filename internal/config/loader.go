package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the slot
// planner service.
type Config struct {
	HTTPPort          int
	SQLiteDSN         string
	AdminPasswordHash string
	SessionTTL        time.Duration
	EventFile         string
	LoginRatePerMin   int
	LoginRateBurst    int
}

// Load parses configuration values from the current process environment.
//
// The loader applies sensible defaults for optional fields while validating
// required values and collecting every missing or malformed entry into a
// single error.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:        8080,
		SQLiteDSN:       "file:slotplanner.db?_foreign_keys=on",
		SessionTTL:      12 * time.Hour,
		EventFile:       "event.yaml",
		LoginRatePerMin: 10,
		LoginRateBurst:  5,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("SLOTPLANNER_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "SLOTPLANNER_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("SLOTPLANNER_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if hash := strings.TrimSpace(os.Getenv("SLOTPLANNER_ADMIN_PASSWORD_HASH")); hash == "" {
		missing = append(missing, "SLOTPLANNER_ADMIN_PASSWORD_HASH")
	} else {
		cfg.AdminPasswordHash = hash
	}

	if ttlValue := strings.TrimSpace(os.Getenv("SLOTPLANNER_SESSION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "SLOTPLANNER_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if eventFile := strings.TrimSpace(os.Getenv("SLOTPLANNER_EVENT_FILE")); eventFile != "" {
		cfg.EventFile = eventFile
	}

	if rateValue := strings.TrimSpace(os.Getenv("SLOTPLANNER_LOGIN_RATE_PER_MIN")); rateValue != "" {
		perMin, err := strconv.Atoi(rateValue)
		if err != nil || perMin <= 0 {
			invalid = append(invalid, "SLOTPLANNER_LOGIN_RATE_PER_MIN")
		} else {
			cfg.LoginRatePerMin = perMin
		}
	}

	if burstValue := strings.TrimSpace(os.Getenv("SLOTPLANNER_LOGIN_RATE_BURST")); burstValue != "" {
		burst, err := strconv.Atoi(burstValue)
		if err != nil || burst <= 0 {
			invalid = append(invalid, "SLOTPLANNER_LOGIN_RATE_BURST")
		} else {
			cfg.LoginRateBurst = burst
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
