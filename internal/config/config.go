package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	BotToken    string
	BotDebug    bool
	PollTimeout time.Duration

	StorageDriver string // postgres or memory
	DBHost        string
	DBPort        int
	DBUser        string
	DBPassword    string
	DBName        string
	DBSSLMode     string

	LogLevel string

	AllowedUsers []int64
	PrimaryOwner int64

	Timezone string

	Reminder ReminderConfig
	Redis    RedisConfig
	Gemini   GeminiConfig

	SessionTTL time.Duration

	IncomeCategories  []CategoryConfig
	ExpenseCategories []CategoryConfig
}

type ReminderConfig struct {
	Interval  time.Duration
	Offsets   []int
	Recipient string // primary or owner
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

type CategoryConfig struct {
	Name          string   `mapstructure:"name"`
	Subcategories []string `mapstructure:"subcategories"`
}

const (
	RecipientPrimary = "primary"
	RecipientOwner   = "owner"

	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

var envBindings = map[string]string{
	"bot.token":          "TELEGRAM_BOT_TOKEN",
	"bot.debug":          "BOT_DEBUG",
	"bot.poll_timeout":   "BOT_POLL_TIMEOUT",
	"db.driver":          "STORAGE_DRIVER",
	"db.host":            "DB_HOST",
	"db.port":            "DB_PORT",
	"db.user":            "DB_USER",
	"db.password":        "DB_PASSWORD",
	"db.name":            "DB_NAME",
	"db.sslmode":         "DB_SSLMODE",
	"log.level":          "LOG_LEVEL",
	"access.allowed":     "ALLOWED_USERS",
	"access.primary":     "PRIMARY_OWNER",
	"timezone":           "TIMEZONE",
	"reminder.interval":  "REMINDER_INTERVAL",
	"reminder.offsets":   "REMINDER_OFFSETS",
	"reminder.recipient": "REMINDER_RECIPIENT",
	"redis.addr":         "REDIS_ADDR",
	"redis.password":     "REDIS_PASSWORD",
	"redis.db":           "REDIS_DB",
	"gemini.api_key":     "GEMINI_API_KEY",
	"gemini.model":       "GEMINI_MODEL",
	"gemini.timeout":     "GEMINI_TIMEOUT",
	"session.ttl":        "SESSION_TTL",
}

// LoadConfig reads an optional config.yaml and lets the environment
// override every key.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/budget-bot")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("error binding %s: %w", env, err)
		}
	}

	allowed, err := parseIDs(v.GetStringSlice("access.allowed"))
	if err != nil {
		return nil, fmt.Errorf("invalid ALLOWED_USERS: %w", err)
	}
	offsets, err := parseInts(v.GetStringSlice("reminder.offsets"))
	if err != nil {
		return nil, fmt.Errorf("invalid REMINDER_OFFSETS: %w", err)
	}

	cfg := &Config{
		BotToken:      v.GetString("bot.token"),
		BotDebug:      v.GetBool("bot.debug"),
		PollTimeout:   v.GetDuration("bot.poll_timeout"),
		StorageDriver: v.GetString("db.driver"),
		DBHost:        v.GetString("db.host"),
		DBPort:        v.GetInt("db.port"),
		DBUser:        v.GetString("db.user"),
		DBPassword:    v.GetString("db.password"),
		DBName:        v.GetString("db.name"),
		DBSSLMode:     v.GetString("db.sslmode"),
		LogLevel:      v.GetString("log.level"),
		AllowedUsers:  allowed,
		PrimaryOwner:  v.GetInt64("access.primary"),
		Timezone:      v.GetString("timezone"),
		Reminder: ReminderConfig{
			Interval:  v.GetDuration("reminder.interval"),
			Offsets:   offsets,
			Recipient: v.GetString("reminder.recipient"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Gemini: GeminiConfig{
			APIKey:  v.GetString("gemini.api_key"),
			Model:   v.GetString("gemini.model"),
			Timeout: v.GetDuration("gemini.timeout"),
		},
		SessionTTL: v.GetDuration("session.ttl"),
	}

	if err := v.UnmarshalKey("taxonomy.income", &cfg.IncomeCategories); err != nil {
		return nil, fmt.Errorf("invalid income taxonomy: %w", err)
	}
	if err := v.UnmarshalKey("taxonomy.expense", &cfg.ExpenseCategories); err != nil {
		return nil, fmt.Errorf("invalid expense taxonomy: %w", err)
	}

	applyDefaults(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.PollTimeout == 0 {
		cfg.PollTimeout = 10 * time.Second
	}
	if cfg.StorageDriver == "" {
		cfg.StorageDriver = DriverPostgres
	}
	if cfg.DBHost == "" {
		cfg.DBHost = "localhost"
	}
	if cfg.DBPort == 0 {
		cfg.DBPort = 5432
	}
	if cfg.DBUser == "" {
		cfg.DBUser = "postgres"
	}
	if cfg.DBName == "" {
		cfg.DBName = "budget"
	}
	if cfg.DBSSLMode == "" {
		cfg.DBSSLMode = "disable"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if cfg.Reminder.Interval == 0 {
		cfg.Reminder.Interval = time.Hour
	}
	if len(cfg.Reminder.Offsets) == 0 {
		cfg.Reminder.Offsets = []int{3, 1, 0}
	}
	if cfg.Reminder.Recipient == "" {
		cfg.Reminder.Recipient = RecipientPrimary
	}
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = "gemini-2.5-flash"
	}
	if cfg.Gemini.Timeout == 0 {
		cfg.Gemini.Timeout = 30 * time.Second
	}
	if cfg.PrimaryOwner == 0 && len(cfg.AllowedUsers) > 0 {
		cfg.PrimaryOwner = cfg.AllowedUsers[0]
	}
}

func (c *Config) validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if len(c.AllowedUsers) == 0 {
		return fmt.Errorf("ALLOWED_USERS must list at least one user id")
	}
	if !c.IsAllowed(c.PrimaryOwner) {
		return fmt.Errorf("PRIMARY_OWNER %d is not in ALLOWED_USERS", c.PrimaryOwner)
	}
	if c.StorageDriver != DriverPostgres && c.StorageDriver != DriverMemory {
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
	if c.Reminder.Recipient != RecipientPrimary && c.Reminder.Recipient != RecipientOwner {
		return fmt.Errorf("unknown reminder recipient %q", c.Reminder.Recipient)
	}
	if c.Reminder.Interval < time.Minute {
		return fmt.Errorf("reminder interval %s is shorter than a minute", c.Reminder.Interval)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}

func (c *Config) IsAllowed(id int64) bool {
	for _, allowed := range c.AllowedUsers {
		if allowed == id {
			return true
		}
	}
	return false
}

// Location returns the configured timezone; validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// PostgresDSN is a postgres:// URL understood by pgx, lib/pq and migrate.
// An empty password is left out rather than written as an empty value.
func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.User(c.DBUser),
		Host:     net.JoinHostPort(c.DBHost, strconv.Itoa(c.DBPort)),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": []string{c.DBSSLMode}}.Encode(),
	}
	if c.DBPassword != "" {
		u.User = url.UserPassword(c.DBUser, c.DBPassword)
	}
	return u.String()
}

// splitList flattens "1,2" and ["1", "2"] style values alike.
func splitList(raw []string) []string {
	var out []string
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseIDs(raw []string) ([]int64, error) {
	var ids []int64
	for _, part := range splitList(raw) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseInts(raw []string) ([]int, error) {
	var out []int
	for _, part := range splitList(raw) {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
