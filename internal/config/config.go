package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// PlaceholderPassword is the local-development default for the app user.
// Real environments set MONGO_APP_PASSWORD or MONGO_APP_PASSWORD_FILE.
const PlaceholderPassword = "mongodb_password"

type Config struct {
	MongoURI       string
	MongoDB        string
	ConnectTimeout time.Duration

	AppUser         string
	AppPassword     string
	AppPasswordFile string
	AppRole         string

	LibrariesSource     string
	DocumentsSource     string
	LibrariesCollection string
	DocumentsCollection string

	Idempotent bool
	UpsertKey  string

	Schedule string
	Port     string
	LogLevel string
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// Load reads the environment and resolves the password file.
func Load() (Config, error) {
	cfg, err := LoadEnv()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.ResolvePassword(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadEnv reads the environment without touching the password file, so a
// caller can still override AppPasswordFile before ResolvePassword.
func LoadEnv() (Config, error) {
	cfg := Config{
		MongoURI:            getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:             getenv("MONGO_DB", "vector-db"),
		AppUser:             getenv("MONGO_APP_USER", "mongodb_user"),
		AppPassword:         getenv("MONGO_APP_PASSWORD", PlaceholderPassword),
		AppPasswordFile:     getenv("MONGO_APP_PASSWORD_FILE", ""),
		AppRole:             getenv("MONGO_APP_ROLE", "readWrite"),
		LibrariesSource:     getenv("FIXTURE_LIBRARIES", "/sample_libraries.json"),
		DocumentsSource:     getenv("FIXTURE_DOCUMENTS", "/sample_documents.json"),
		LibrariesCollection: getenv("COLLECTION_LIBRARIES", "libraries"),
		DocumentsCollection: getenv("COLLECTION_DOCUMENTS", "documents"),
		UpsertKey:           getenv("MONGO_INIT_UPSERT_KEY", "id"),
		Schedule:            getenv("MONGO_INIT_SCHEDULE", "@every 1h"),
		Port:                getenv("PORT", "8080"),
		LogLevel:            getenv("LOG_LEVEL", "info"),
	}

	idem, err := strconv.ParseBool(getenv("MONGO_INIT_IDEMPOTENT", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("MONGO_INIT_IDEMPOTENT: %w", err)
	}
	cfg.Idempotent = idem

	cfg.ConnectTimeout, err = time.ParseDuration(getenv("MONGO_INIT_CONNECT_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("MONGO_INIT_CONNECT_TIMEOUT: %w", err)
	}
	return cfg, nil
}

// ResolvePassword replaces AppPassword with the contents of AppPasswordFile
// when one is set. Trailing newlines from mounted secrets are dropped.
func (c *Config) ResolvePassword() error {
	if c.AppPasswordFile == "" {
		return nil
	}
	b, err := os.ReadFile(c.AppPasswordFile)
	if err != nil {
		return fmt.Errorf("read password file: %w", err)
	}
	pwd := strings.TrimRight(string(b), "\r\n")
	if pwd == "" {
		return fmt.Errorf("password file %s is empty", c.AppPasswordFile)
	}
	c.AppPassword = pwd
	return nil
}

func (c Config) UsesPlaceholderPassword() bool {
	return c.AppPassword == PlaceholderPassword
}
