package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Draft storage backends
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendDynamoDB = "dynamodb"
	BackendMongo    = "mongo"
)

// Config represents the application configuration
type Config struct {
	Environment string         `json:"environment"`
	Server      ServerConfig   `json:"server"`
	Logging     LoggingConfig  `json:"logging"`
	Draft       DraftConfig    `json:"draft"`
	Redis       RedisConfig    `json:"redis"`
	Database    DatabaseConfig `json:"database"`
	DynamoDB    DynamoDBConfig `json:"dynamodb"`
	Mongo       MongoConfig    `json:"mongo"`
	Intake      IntakeConfig   `json:"intake"`
	Archive     ArchiveConfig  `json:"archive"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	AllowedOrigin   string        `json:"allowed_origin"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level"`
}

// DraftConfig selects where the in-progress draft is kept
type DraftConfig struct {
	Backend        string        `json:"backend"`
	Key            string        `json:"key"`
	DebounceWindow time.Duration `json:"debounce_window"`
	WriteTimeout   time.Duration `json:"write_timeout"`
}

// RedisConfig
type RedisConfig struct {
	URL string        `json:"url"`
	TTL time.Duration `json:"ttl"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

// DynamoDBConfig
type DynamoDBConfig struct {
	Region    string `json:"region"`
	Endpoint  string `json:"endpoint"`
	Table     string `json:"table"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
}

// MongoConfig
type MongoConfig struct {
	URI        string `json:"uri"`
	Database   string `json:"database"`
	Collection string `json:"collection"`
}

// IntakeConfig points at the land registry intake endpoint
type IntakeConfig struct {
	Endpoint          string        `json:"endpoint"`
	Timeout           time.Duration `json:"timeout"`
	ProgressInterval  time.Duration `json:"progress_interval"`
	ProgressStep      int           `json:"progress_step"`
	ProgressCap       int           `json:"progress_cap"`
	ConfirmationDelay time.Duration `json:"confirmation_delay"`
}

// ArchiveConfig schedules periodic beacon schedule exports of the draft.
// An empty Schedule disables archiving.
type ArchiveConfig struct {
	Schedule string   `json:"schedule"`
	Dir      string   `json:"dir"`
	Formats  []string `json:"formats"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			AllowedOrigin:   "*",
		},
		Logging: LoggingConfig{Level: "info"},
		Draft: DraftConfig{
			Backend:        BackendMemory,
			Key:            "land_form_data",
			DebounceWindow: time.Second,
			WriteTimeout:   5 * time.Second,
		},
		Redis: RedisConfig{
			URL: "redis://localhost:6379/0",
			TTL: 30 * 24 * time.Hour,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    os.Getenv("USER"),
			DBName:  "parcel_portal",
			SSLMode: "disable",
		},
		DynamoDB: DynamoDBConfig{
			Region: "us-east-1",
			Table:  "parcel_drafts",
		},
		Mongo: MongoConfig{
			URI:        "mongodb://localhost:27017",
			Database:   "parcel_portal",
			Collection: "drafts",
		},
		Intake: IntakeConfig{
			Endpoint:          "http://localhost:5000/api/land/upload",
			Timeout:           30 * time.Second,
			ProgressInterval:  200 * time.Millisecond,
			ProgressStep:      10,
			ProgressCap:       90,
			ConfirmationDelay: 2 * time.Second,
		},
		Archive: ArchiveConfig{
			Dir:     "archive",
			Formats: []string{"csv", "pdf"},
		},
	}
}

// LoadConfig loads configuration from file and environment variables. A
// .env file in the working directory is read first when present.
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	config := Default()

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := overrideWithEnv(config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the settings that would otherwise fail at first use
func (c *Config) Validate() error {
	switch c.Draft.Backend {
	case BackendMemory, BackendRedis, BackendPostgres, BackendDynamoDB, BackendMongo:
	default:
		return fmt.Errorf("unknown draft backend %q", c.Draft.Backend)
	}
	if strings.TrimSpace(c.Draft.Key) == "" {
		return fmt.Errorf("draft key must not be empty")
	}
	if c.Intake.Endpoint == "" {
		return fmt.Errorf("intake endpoint must not be empty")
	}
	if c.Intake.ProgressCap <= 0 || c.Intake.ProgressCap >= 100 {
		return fmt.Errorf("intake progress cap must be between 1 and 99, got %d", c.Intake.ProgressCap)
	}
	if c.Archive.Schedule != "" && c.Archive.Dir == "" {
		return fmt.Errorf("archive dir must be set when a schedule is configured")
	}
	return nil
}

func overrideWithEnv(config *Config) error {
	strs := map[string]*string{
		"APP_ENV":               &config.Environment,
		"SERVER_HOST":           &config.Server.Host,
		"CORS_ALLOWED_ORIGIN":   &config.Server.AllowedOrigin,
		"LOG_LEVEL":             &config.Logging.Level,
		"DRAFT_BACKEND":         &config.Draft.Backend,
		"DRAFT_KEY":             &config.Draft.Key,
		"REDIS_URL":             &config.Redis.URL,
		"DATABASE_HOST":         &config.Database.Host,
		"DATABASE_USER":         &config.Database.User,
		"DATABASE_PASSWORD":     &config.Database.Password,
		"DATABASE_DBNAME":       &config.Database.DBName,
		"DATABASE_SSLMODE":      &config.Database.SSLMode,
		"AWS_REGION":            &config.DynamoDB.Region,
		"DYNAMODB_ENDPOINT":     &config.DynamoDB.Endpoint,
		"DYNAMODB_TABLE":        &config.DynamoDB.Table,
		"AWS_ACCESS_KEY_ID":     &config.DynamoDB.AccessKey,
		"AWS_SECRET_ACCESS_KEY": &config.DynamoDB.SecretKey,
		"MONGO_URI":             &config.Mongo.URI,
		"MONGO_DATABASE":        &config.Mongo.Database,
		"MONGO_COLLECTION":      &config.Mongo.Collection,
		"INTAKE_ENDPOINT":       &config.Intake.Endpoint,
		"ARCHIVE_SCHEDULE":      &config.Archive.Schedule,
		"ARCHIVE_DIR":           &config.Archive.Dir,
	}
	for name, dst := range strs {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"SERVER_PORT":          &config.Server.Port,
		"DATABASE_PORT":        &config.Database.Port,
		"INTAKE_PROGRESS_STEP": &config.Intake.ProgressStep,
		"INTAKE_PROGRESS_CAP":  &config.Intake.ProgressCap,
	}
	for name, dst := range ints {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", name, err)
			}
			*dst = n
		}
	}

	if v := os.Getenv("ARCHIVE_FORMATS"); v != "" {
		config.Archive.Formats = strings.Split(v, ",")
	}

	durations := map[string]*time.Duration{
		"DRAFT_DEBOUNCE_WINDOW":     &config.Draft.DebounceWindow,
		"DRAFT_WRITE_TIMEOUT":       &config.Draft.WriteTimeout,
		"REDIS_TTL":                 &config.Redis.TTL,
		"INTAKE_TIMEOUT":            &config.Intake.Timeout,
		"INTAKE_PROGRESS_INTERVAL":  &config.Intake.ProgressInterval,
		"INTAKE_CONFIRMATION_DELAY": &config.Intake.ConfirmationDelay,
		"SERVER_SHUTDOWN_TIMEOUT":   &config.Server.ShutdownTimeout,
	}
	for name, dst := range durations {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", name, err)
			}
			*dst = d
		}
	}

	return nil
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
