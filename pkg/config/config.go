package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix is empty because every variable already carries the
	// COMBINE_ namespace in its envconfig tag.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "COMBINE_DB_DSN"
	EnvDBHost = "COMBINE_DB_HOST"
	EnvDBUser = "COMBINE_DB_USER"
	EnvDBName = "COMBINE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Gemini        GeminiConfig
	Weather       WeatherConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Media         MediaConfig
	PubSub        PubSubConfig
	Sendgrid      SendgridConfig
	Outbox        OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"COMBINE_APP_ENV" required:"true"`
	Port         string `envconfig:"COMBINE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"COMBINE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"COMBINE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"COMBINE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"COMBINE_DB_DSN"`
	Driver string `envconfig:"COMBINE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"COMBINE_DB_HOST"`
	LegacyPort     int    `envconfig:"COMBINE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"COMBINE_DB_USER"`
	LegacyPassword string `envconfig:"COMBINE_DB_PASSWORD"`
	LegacyName     string `envconfig:"COMBINE_DB_NAME"`
	LegacySSLMode  string `envconfig:"COMBINE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"COMBINE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"COMBINE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"COMBINE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"COMBINE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"COMBINE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"COMBINE_REDIS_ADDR"`
	Password     string        `envconfig:"COMBINE_REDIS_PASSWORD"`
	DB           int           `envconfig:"COMBINE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"COMBINE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"COMBINE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"COMBINE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COMBINE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COMBINE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"COMBINE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"COMBINE_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"COMBINE_JWT_EXPIRATION_MINUTES" default:"720"`
	RefreshTokenTTLMinutes int    `envconfig:"COMBINE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"COMBINE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"COMBINE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"COMBINE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"COMBINE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"COMBINE_ARGON_KEY_LEN" default:"32"`

	MinLength     int           `envconfig:"COMBINE_PASSWORD_MIN_LENGTH" default:"6"`
	ResetTokenTTL time.Duration `envconfig:"COMBINE_PASSWORD_RESET_TTL" default:"1h"`
}

type AuthRateLimitConfig struct {
	LoginWindow      time.Duration `envconfig:"COMBINE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit  int           `envconfig:"COMBINE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit     int           `envconfig:"COMBINE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	SignupWindow     time.Duration `envconfig:"COMBINE_AUTH_RATE_LIMIT_SIGNUP_WINDOW" default:"5m"`
	SignupEmailLimit int           `envconfig:"COMBINE_AUTH_RATE_LIMIT_SIGNUP_EMAIL_LIMIT" default:"3"`
	SignupIPLimit    int           `envconfig:"COMBINE_AUTH_RATE_LIMIT_SIGNUP_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite            bool `envconfig:"COMBINE_USE_SQLITE" default:"false"`
	AutoMigrate          bool `envconfig:"COMBINE_AUTO_MIGRATE" default:"false"`
	RequireVerifiedEmail bool `envconfig:"COMBINE_REQUIRE_VERIFIED_EMAIL" default:"false"`
}

type GeminiConfig struct {
	APIKey         string        `envconfig:"COMBINE_GEMINI_API_KEY"`
	Model          string        `envconfig:"COMBINE_GEMINI_MODEL" default:"gemini-2.5-flash"`
	VisionModel    string        `envconfig:"COMBINE_GEMINI_VISION_MODEL" default:"gemini-2.5-flash"`
	RequestTimeout time.Duration `envconfig:"COMBINE_GEMINI_TIMEOUT" default:"30s"`
	MaxRetries     int           `envconfig:"COMBINE_GEMINI_MAX_RETRIES" default:"1"`
}

// Validate reports whether the Gemini integration is usable. The API binary
// refuses to start without a key; background binaries that never call Gemini
// skip this check.
func (g GeminiConfig) Validate() error {
	if g.APIKey == "" {
		return fmt.Errorf("COMBINE_GEMINI_API_KEY is required")
	}
	return nil
}

type WeatherConfig struct {
	APIKey         string        `envconfig:"COMBINE_OPENWEATHER_API_KEY"`
	BaseURL        string        `envconfig:"COMBINE_OPENWEATHER_BASE_URL" default:"https://api.openweathermap.org/data/2.5/weather"`
	RequestTimeout time.Duration `envconfig:"COMBINE_OPENWEATHER_TIMEOUT" default:"10s"`
	MaxRetries     int           `envconfig:"COMBINE_OPENWEATHER_MAX_RETRIES" default:"2"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"COMBINE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"COMBINE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"COMBINE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"COMBINE_GCS_BUCKET_NAME"`
	DownloadURLExpiry time.Duration `envconfig:"COMBINE_GCS_DOWNLOAD_URL_EXPIRY" default:"24h"`
}

type MediaConfig struct {
	MaxUploadMB    int `envconfig:"COMBINE_MAX_UPLOAD_MB" default:"10"`
	ImageMaxWidth  int `envconfig:"COMBINE_MEDIA_IMAGE_MAX_WIDTH" default:"1920"`
	ImageMaxHeight int `envconfig:"COMBINE_MEDIA_IMAGE_MAX_HEIGHT" default:"1080"`
}

type PubSubConfig struct {
	DomainTopic               string `envconfig:"COMBINE_PUBSUB_DOMAIN_TOPIC" default:"combine-domain-events"`
	MediaDeletionTopic        string `envconfig:"COMBINE_PUBSUB_MEDIA_DELETION_TOPIC" default:"combine-media-deletion"`
	MediaDeletionSubscription string `envconfig:"COMBINE_PUBSUB_MEDIA_DELETION_SUBSCRIPTION"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"COMBINE_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"COMBINE_SENDGRID_FROM_EMAIL" default:"no-reply@combinewear.app"`
	FromName    string `envconfig:"COMBINE_SENDGRID_FROM_NAME" default:"Combine"`
	AppBaseURL  string `envconfig:"COMBINE_APP_BASE_URL" default:"https://app.combinewear.app"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"COMBINE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"COMBINE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"COMBINE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	IdempotencyTTL time.Duration `envconfig:"COMBINE_OUTBOX_IDEMPOTENCY_TTL" default:"72h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
