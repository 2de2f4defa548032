package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	JWT        JWTConfig
	OIDC       OIDCConfig
	Gateway    GatewayConfig
	RateLimit  RateLimitConfig
	Nutrition  NutritionConfig
	Backend    BackendConfig
	Storage    StorageConfig
	Cloudinary CloudinaryConfig
	R2         R2Config
	Media      MediaConfig
	Capability CapabilityConfig
	Queue      QueueConfig
}

type ServerConfig struct {
	Port      string
	Env       string
	LogLevel  string
	LogFormat string
	ApiDomain string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type OIDCConfig struct {
	Issuer   string
	ClientID string
}

type GatewayConfig struct {
	Enabled bool
}

type RateLimitConfig struct {
	SuggestPerMin int
	UploadPerHour int
}

// NutritionConfig points at the USDA FoodData Central search API.
type NutritionConfig struct {
	APIKey     string
	BaseURL    string
	PageSize   int
	DebounceMs int
	MinQuery   int
	Timeout    int // seconds
}

// BackendConfig points at the recipe backend that issues upload signatures
// and accepts finished recipes.
type BackendConfig struct {
	BaseURL string
	Timeout int // seconds
}

type StorageConfig struct {
	Provider string // "cloudinary" or "r2"
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	BaseURL   string
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
	PresignExpiry   int // minutes
}

type MediaConfig struct {
	FFmpegPath     string
	FFprobePath    string
	CacheDir       string
	TempDir        string
	FrameRateHz    float64
	TileWidth      float64
	WindowWidth    float64
	CenterFraction float64
}

// CapabilityConfig configures the camera and editor SDK bridges.
type CapabilityConfig struct {
	License       string
	UserID        string
	CameraCommand string
	EditorCommand string
}

type QueueConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	// .env is optional; system env wins over it
	_ = godotenv.Load()

	readSecret("REDIS_PASSWORD")
	readSecret("JWT_SECRET")
	readSecret("NUTRITION_API_KEY")
	readSecret("CLOUDINARY_API_KEY")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")
	readSecret("CAPABILITY_LICENSE")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("server.log_format", "LOG_FORMAT")
	_ = viper.BindEnv("server.api_domain", "API_DOMAIN")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = viper.BindEnv("oidc.issuer", "OIDC_ISSUER")
	_ = viper.BindEnv("oidc.client_id", "OIDC_CLIENT_ID")
	_ = viper.BindEnv("gateway.enabled", "GATEWAY_ENABLED")
	_ = viper.BindEnv("nutrition.api_key", "NUTRITION_API_KEY")
	_ = viper.BindEnv("nutrition.base_url", "NUTRITION_BASE_URL")
	_ = viper.BindEnv("backend.base_url", "BACKEND_BASE_URL")
	_ = viper.BindEnv("storage.provider", "STORAGE_PROVIDER")
	_ = viper.BindEnv("cloudinary.cloud_name", "CLOUDINARY_CLOUD_NAME")
	_ = viper.BindEnv("cloudinary.api_key", "CLOUDINARY_API_KEY")
	_ = viper.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = viper.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = viper.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = viper.BindEnv("r2.public_url", "R2_PUBLIC_URL")
	_ = viper.BindEnv("media.ffmpeg_path", "FFMPEG_PATH")
	_ = viper.BindEnv("media.ffprobe_path", "FFPROBE_PATH")
	_ = viper.BindEnv("media.cache_dir", "MEDIA_CACHE_DIR")
	_ = viper.BindEnv("media.temp_dir", "MEDIA_TEMP_DIR")
	_ = viper.BindEnv("capability.license", "CAPABILITY_LICENSE")
	_ = viper.BindEnv("capability.user_id", "CAPABILITY_USER_ID")
	_ = viper.BindEnv("capability.camera_command", "CAMERA_COMMAND")
	_ = viper.BindEnv("capability.editor_command", "EDITOR_COMMAND")
	_ = viper.BindEnv("queue.enabled", "QUEUE_ENABLED")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("server.log_format", "json")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("gateway.enabled", false)
	viper.SetDefault("ratelimit.suggest_per_min", 120)
	viper.SetDefault("ratelimit.upload_per_hour", 20)

	viper.SetDefault("nutrition.base_url", "https://api.nal.usda.gov/fdc/v1")
	viper.SetDefault("nutrition.page_size", 10)
	viper.SetDefault("nutrition.debounce_ms", 400)
	viper.SetDefault("nutrition.min_query", 3)
	viper.SetDefault("nutrition.timeout", 15)

	viper.SetDefault("backend.timeout", 60)
	viper.SetDefault("storage.provider", "cloudinary")
	viper.SetDefault("cloudinary.base_url", "https://api.cloudinary.com/v1_1")
	viper.SetDefault("r2.presign_expiry", 15)

	viper.SetDefault("media.ffmpeg_path", "ffmpeg")
	viper.SetDefault("media.ffprobe_path", "ffprobe")
	viper.SetDefault("media.cache_dir", os.TempDir())
	viper.SetDefault("media.temp_dir", os.TempDir())
	viper.SetDefault("media.frame_rate_hz", 1.0)
	viper.SetDefault("media.tile_width", 40.0)
	viper.SetDefault("media.window_width", 40.0)
	viper.SetDefault("media.center_fraction", 0.5)

	viper.SetDefault("queue.enabled", false)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:      viper.GetString("server.port"),
			Env:       viper.GetString("server.env"),
			LogLevel:  viper.GetString("server.log_level"),
			LogFormat: viper.GetString("server.log_format"),
			ApiDomain: viper.GetString("server.api_domain"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		OIDC: OIDCConfig{
			Issuer:   viper.GetString("oidc.issuer"),
			ClientID: viper.GetString("oidc.client_id"),
		},
		Gateway: GatewayConfig{
			Enabled: viper.GetBool("gateway.enabled"),
		},
		RateLimit: RateLimitConfig{
			SuggestPerMin: viper.GetInt("ratelimit.suggest_per_min"),
			UploadPerHour: viper.GetInt("ratelimit.upload_per_hour"),
		},
		Nutrition: NutritionConfig{
			APIKey:     viper.GetString("nutrition.api_key"),
			BaseURL:    viper.GetString("nutrition.base_url"),
			PageSize:   viper.GetInt("nutrition.page_size"),
			DebounceMs: viper.GetInt("nutrition.debounce_ms"),
			MinQuery:   viper.GetInt("nutrition.min_query"),
			Timeout:    viper.GetInt("nutrition.timeout"),
		},
		Backend: BackendConfig{
			BaseURL: viper.GetString("backend.base_url"),
			Timeout: viper.GetInt("backend.timeout"),
		},
		Storage: StorageConfig{
			Provider: strings.ToLower(viper.GetString("storage.provider")),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: viper.GetString("cloudinary.cloud_name"),
			APIKey:    viper.GetString("cloudinary.api_key"),
			BaseURL:   viper.GetString("cloudinary.base_url"),
		},
		R2: R2Config{
			AccountID:       viper.GetString("r2.account_id"),
			AccessKeyID:     viper.GetString("r2.access_key_id"),
			SecretAccessKey: viper.GetString("r2.secret_access_key"),
			BucketName:      viper.GetString("r2.bucket_name"),
			PublicURL:       viper.GetString("r2.public_url"),
			PresignExpiry:   viper.GetInt("r2.presign_expiry"),
		},
		Media: MediaConfig{
			FFmpegPath:     viper.GetString("media.ffmpeg_path"),
			FFprobePath:    viper.GetString("media.ffprobe_path"),
			CacheDir:       viper.GetString("media.cache_dir"),
			TempDir:        viper.GetString("media.temp_dir"),
			FrameRateHz:    viper.GetFloat64("media.frame_rate_hz"),
			TileWidth:      viper.GetFloat64("media.tile_width"),
			WindowWidth:    viper.GetFloat64("media.window_width"),
			CenterFraction: viper.GetFloat64("media.center_fraction"),
		},
		Capability: CapabilityConfig{
			License:       viper.GetString("capability.license"),
			UserID:        viper.GetString("capability.user_id"),
			CameraCommand: viper.GetString("capability.camera_command"),
			EditorCommand: viper.GetString("capability.editor_command"),
		},
		Queue: QueueConfig{
			Enabled: viper.GetBool("queue.enabled"),
		},
	}

	return cfg, nil
}
