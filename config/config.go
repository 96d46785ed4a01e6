package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Server struct {
	HTTPAddr            string
	PostgresURL         string
	RedisAddr           string
	ReservationTTL      time.Duration
	ExpirySweepInterval time.Duration
	SeedDemoData        bool
}

type Client struct {
	APIURL        string
	StatePath     string
	PollInterval  time.Duration
	HTTPTimeout   time.Duration
	CreateRetries int
}

// LoadServer reads the booking service settings from the environment. An
// empty PostgresURL selects the in-memory store and an empty RedisAddr the
// in-process pub/sub.
func LoadServer() (Server, error) {
	loadDotEnv()

	ttl, err := getEnvAsDuration("RESERVATION_TTL", 10*time.Minute)
	if err != nil {
		return Server{}, err
	}
	sweep, err := getEnvAsDuration("EXPIRY_SWEEP_INTERVAL", 5*time.Second)
	if err != nil {
		return Server{}, err
	}
	seed, err := getEnvAsBool("SEED_DEMO_DATA", true)
	if err != nil {
		return Server{}, err
	}

	return Server{
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		PostgresURL:         getEnv("POSTGRES_URL", ""),
		RedisAddr:           getEnv("REDIS_ADDR", ""),
		ReservationTTL:      ttl,
		ExpirySweepInterval: sweep,
		SeedDemoData:        seed,
	}, nil
}

func LoadClient() (Client, error) {
	loadDotEnv()

	poll, err := getEnvAsDuration("BOOKING_POLL_INTERVAL", 10*time.Second)
	if err != nil {
		return Client{}, err
	}
	timeout, err := getEnvAsDuration("BOOKING_HTTP_TIMEOUT", 30*time.Second)
	if err != nil {
		return Client{}, err
	}
	retries, err := getEnvAsInt("BOOKING_CREATE_RETRIES", 3)
	if err != nil {
		return Client{}, err
	}

	return Client{
		APIURL:        getEnv("BOOKING_API_URL", "http://localhost:8080/api"),
		StatePath:     getEnv("BOOKING_STATE_PATH", defaultStatePath()),
		PollInterval:  poll,
		HTTPTimeout:   timeout,
		CreateRetries: retries,
	}, nil
}

func loadDotEnv() {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".concerts.db"
	}
	return filepath.Join(home, ".concerts.db")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return i, nil
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("parsing %s: %w", key, err)
	}
	return b, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}
