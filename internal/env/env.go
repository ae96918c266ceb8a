package env

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	AppEnv           = "APP_ENV"
	LogLevel         = "LOG_LEVEL"
	AppURL           = "APP_URL"
	AWSRegion        = "AWS_REGION"
	AWSID            = "AWS_ID"
	AWSSecret        = "AWS_SECRET"
	AWSToken         = "AWS_TOKEN"
	DynamoDBEndpoint = "DYNAMODB_ENDPOINT"
	TablePrefix      = "TABLE_PREFIX"
	UserSecretKey    = "USER_SECRET"
	AdminSecretKey   = "ADMIN_SECRET"
	AccessTokenTTL   = "ACCESS_TOKEN_TTL"
	AuthRedisURL     = "AUTH_REDIS_URL"
	AuthRedisPass    = "AUTH_REDIS_PASS"
	UsageRedisURL    = "USAGE_REDIS_URL"
	UsageRedisPass   = "USAGE_REDIS_PASS"
	GeminiAPIKey     = "GEMINI_API_KEY"
	LLMModel         = "LLM_MODEL"
	LLMBaseURL       = "LLM_BASE_URL"
	LLMTimeout       = "LLM_TIMEOUT"
	SMTPHost         = "SMTP_HOST"
	SMTPPort         = "SMTP_PORT"
	SMTPUser         = "SMTP_USER"
	SMTPPassword     = "SMTP_PASSWORD"
	SMTPFrom         = "SMTP_FROM"
	SMTPFromName     = "SMTP_FROM_NAME"
	AdminAccessKey   = "ADMIN_ACCESS_KEY"
	AdminTOTPSecret  = "ADMIN_TOTP_SECRET"
	CORSOrigins      = "CORS_ORIGINS"
	ChatRateLimit    = "CHAT_RATE_LIMIT"
	QueueSize        = "QUEUE_SIZE"
	QueueWorkers     = "QUEUE_WORKERS"
)

// Config is the typed view over the process environment shared by every binary.
type Config struct {
	Environment string
	LogLevel    string
	AppURL      string

	AWS struct {
		Region   string
		ID       string
		Secret   string
		Token    string
		Endpoint string
	}
	TablePrefix string

	JWT struct {
		UserSecret     string
		AdminSecret    string
		AccessTokenTTL time.Duration
	}

	AuthRedis  RedisConfig
	UsageRedis RedisConfig

	LLM struct {
		APIKey  string
		Model   string
		BaseURL string
		Timeout time.Duration
	}

	SMTP struct {
		Host     string
		Port     int
		User     string
		Password string
		From     string
		FromName string
	}

	Admin struct {
		AccessKey  string
		TOTPSecret string
	}

	CORSOrigins   []string
	ChatRateLimit int
	QueueSize     int
	QueueWorkers  int
}

type RedisConfig struct {
	Addr     string
	Password string
}

// Load reads an optional .env file and builds the Config.
func Load() *Config {
	// .env is optional; deployed environments inject variables directly.
	_ = godotenv.Load()

	cfg := &Config{
		Environment: GetOrDefault(AppEnv, "development"),
		LogLevel:    GetOrDefault(LogLevel, "info"),
		AppURL:      strings.TrimRight(GetOrDefault(AppURL, "http://localhost:3000"), "/"),
		TablePrefix: Get(TablePrefix),
		CORSOrigins: GetList(CORSOrigins, []string{"http://localhost:3000"}),

		ChatRateLimit: GetInt(ChatRateLimit, 60),
		QueueSize:     GetInt(QueueSize, 10),
		QueueWorkers:  GetInt(QueueWorkers, 10),
	}

	cfg.AWS.Region = Get(AWSRegion)
	cfg.AWS.ID = Get(AWSID)
	cfg.AWS.Secret = Get(AWSSecret)
	cfg.AWS.Token = Get(AWSToken)
	cfg.AWS.Endpoint = Get(DynamoDBEndpoint)

	cfg.JWT.UserSecret = Get(UserSecretKey)
	cfg.JWT.AdminSecret = Get(AdminSecretKey)
	cfg.JWT.AccessTokenTTL = GetDuration(AccessTokenTTL, 7*24*time.Hour)

	cfg.AuthRedis = RedisConfig{Addr: Get(AuthRedisURL), Password: Get(AuthRedisPass)}
	cfg.UsageRedis = RedisConfig{Addr: Get(UsageRedisURL), Password: Get(UsageRedisPass)}

	cfg.LLM.APIKey = Get(GeminiAPIKey)
	cfg.LLM.Model = GetOrDefault(LLMModel, "gemini-1.5-pro-latest")
	cfg.LLM.BaseURL = Get(LLMBaseURL)
	cfg.LLM.Timeout = GetDuration(LLMTimeout, 60*time.Second)

	cfg.SMTP.Host = Get(SMTPHost)
	cfg.SMTP.Port = GetInt(SMTPPort, 587)
	cfg.SMTP.User = Get(SMTPUser)
	cfg.SMTP.Password = Get(SMTPPassword)
	cfg.SMTP.From = Get(SMTPFrom)
	cfg.SMTP.FromName = GetOrDefault(SMTPFromName, "ChatForge AI")

	cfg.Admin.AccessKey = Get(AdminAccessKey)
	cfg.Admin.TOTPSecret = Get(AdminTOTPSecret)

	return cfg
}

// Require fails when any of the given keys is unset in the process environment.
func Require(keys ...string) error {
	var missing []string
	for _, key := range keys {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("env: required environment variables not set: %s", strings.Join(missing, ", "))
	}
	return nil
}

func Get(key string) string {
	return os.Getenv(key)
}

func GetOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func GetInt(key string, defaultVal int) int {
	if val, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return val
	}
	return defaultVal
}

func GetDuration(key string, defaultVal time.Duration) time.Duration {
	if val, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return val
	}
	return defaultVal
}

// GetList splits a comma separated variable, dropping empty entries.
func GetList(key string, defaultVal []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}

func MustGet(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic("env: required environment variable not set: " + key)
	}
	return val
}
