package config

import (
	"os"
	"strings"
	"time"

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
	RateLimit  RateLimitConfig
	ElevenLabs ElevenLabsConfig
	OpenAI     OpenAIConfig
	Hedra      HedraConfig
	Groq       GroqConfig
	Gemini     GeminiConfig
	R2         R2Config
	Output     OutputConfig
}

type ServerConfig struct {
	Port      string
	Env       string
	LogLevel  string
	ApiDomain string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	CampaignsPerHour int
	ScriptsPerMin    int
}

type ElevenLabsConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type HedraConfig struct {
	APIKey              string
	BaseURL             string
	ModelID             string
	RequestTimeout      int // seconds, asset/generation calls
	InitialPollInterval int // seconds
	MaxPollInterval     int // seconds
	PollBackoffFactor   float64
	MaxPollTime         int // seconds
}

type GroqConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// GeminiConfig covers multi-speaker podcast TTS. APIKey is the server
// fallback; clients may also bring their own key per request.
type GeminiConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

type OutputConfig struct {
	AudioDir  string
	ImagesDir string
	VideosDir string
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("ELEVENLABS_API_KEY")
	readSecret("OPENAI_API_KEY")
	readSecret("HEDRA_API_KEY")
	readSecret("GROQ_API_KEY")
	readSecret("GEMINI_API_KEY")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

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
	_ = viper.BindEnv("server.api_domain", "API_DOMAIN")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("ratelimit.campaigns_per_hour", "RATE_LIMIT_CAMPAIGNS_PER_HOUR")
	_ = viper.BindEnv("ratelimit.scripts_per_min", "RATE_LIMIT_SCRIPTS_PER_MIN")
	_ = viper.BindEnv("elevenlabs.api_key", "ELEVENLABS_API_KEY")
	_ = viper.BindEnv("elevenlabs.base_url", "ELEVENLABS_BASE_URL")
	_ = viper.BindEnv("elevenlabs.model", "ELEVENLABS_MODEL")
	_ = viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
	_ = viper.BindEnv("openai.base_url", "OPENAI_BASE_URL")
	_ = viper.BindEnv("openai.model", "OPENAI_IMAGE_MODEL")
	_ = viper.BindEnv("hedra.api_key", "HEDRA_API_KEY")
	_ = viper.BindEnv("hedra.base_url", "HEDRA_BASE_URL")
	_ = viper.BindEnv("hedra.model_id", "HEDRA_MODEL_ID")
	_ = viper.BindEnv("hedra.request_timeout", "HEDRA_REQUEST_TIMEOUT")
	_ = viper.BindEnv("hedra.initial_poll_interval", "HEDRA_INITIAL_POLL_INTERVAL")
	_ = viper.BindEnv("hedra.max_poll_interval", "HEDRA_MAX_POLL_INTERVAL")
	_ = viper.BindEnv("hedra.poll_backoff_factor", "HEDRA_POLL_BACKOFF_FACTOR")
	_ = viper.BindEnv("hedra.max_poll_time", "HEDRA_MAX_POLL_TIME")
	_ = viper.BindEnv("groq.api_key", "GROQ_API_KEY")
	_ = viper.BindEnv("groq.base_url", "GROQ_BASE_URL")
	_ = viper.BindEnv("groq.model", "GROQ_MODEL")
	_ = viper.BindEnv("gemini.api_key", "GEMINI_API_KEY")
	_ = viper.BindEnv("gemini.base_url", "GEMINI_BASE_URL")
	_ = viper.BindEnv("gemini.model", "GEMINI_TTS_MODEL")
	_ = viper.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = viper.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = viper.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = viper.BindEnv("r2.public_url", "R2_PUBLIC_URL")
	_ = viper.BindEnv("output.audio_dir", "OUTPUT_AUDIO_DIR")
	_ = viper.BindEnv("output.images_dir", "OUTPUT_IMAGES_DIR")
	_ = viper.BindEnv("output.videos_dir", "OUTPUT_VIDEOS_DIR")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("ratelimit.campaigns_per_hour", 10)
	viper.SetDefault("ratelimit.scripts_per_min", 30)

	// ElevenLabs defaults
	viper.SetDefault("elevenlabs.base_url", "https://api.elevenlabs.io")
	viper.SetDefault("elevenlabs.model", "eleven_multilingual_v2")

	// OpenAI defaults
	viper.SetDefault("openai.base_url", "https://api.openai.com")
	viper.SetDefault("openai.model", "gpt-image-1")

	// Hedra defaults
	viper.SetDefault("hedra.base_url", "https://api.hedra.com/web-app/public")
	viper.SetDefault("hedra.model_id", "d1dd37a3-e39a-4854-a298-6510289f9cf2")
	viper.SetDefault("hedra.request_timeout", 120)
	viper.SetDefault("hedra.initial_poll_interval", 15)
	viper.SetDefault("hedra.max_poll_interval", 60)
	viper.SetDefault("hedra.poll_backoff_factor", 1.2)
	viper.SetDefault("hedra.max_poll_time", 1200)

	// Groq defaults
	viper.SetDefault("groq.base_url", "https://api.groq.com/openai/v1")
	viper.SetDefault("groq.model", "llama-3.3-70b-versatile")

	// Gemini defaults
	viper.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com")
	viper.SetDefault("gemini.model", "gemini-2.5-pro-preview-tts")

	// Output defaults
	viper.SetDefault("output.audio_dir", "output/audio")
	viper.SetDefault("output.images_dir", "output/images")
	viper.SetDefault("output.videos_dir", "output/videos")

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:      viper.GetString("server.port"),
			Env:       viper.GetString("server.env"),
			LogLevel:  viper.GetString("server.log_level"),
			ApiDomain: viper.GetString("server.api_domain"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		RateLimit: RateLimitConfig{
			CampaignsPerHour: viper.GetInt("ratelimit.campaigns_per_hour"),
			ScriptsPerMin:    viper.GetInt("ratelimit.scripts_per_min"),
		},
		ElevenLabs: ElevenLabsConfig{
			APIKey:  viper.GetString("elevenlabs.api_key"),
			BaseURL: viper.GetString("elevenlabs.base_url"),
			Model:   viper.GetString("elevenlabs.model"),
		},
		OpenAI: OpenAIConfig{
			APIKey:  viper.GetString("openai.api_key"),
			BaseURL: viper.GetString("openai.base_url"),
			Model:   viper.GetString("openai.model"),
		},
		Hedra: HedraConfig{
			APIKey:              viper.GetString("hedra.api_key"),
			BaseURL:             viper.GetString("hedra.base_url"),
			ModelID:             viper.GetString("hedra.model_id"),
			RequestTimeout:      viper.GetInt("hedra.request_timeout"),
			InitialPollInterval: viper.GetInt("hedra.initial_poll_interval"),
			MaxPollInterval:     viper.GetInt("hedra.max_poll_interval"),
			PollBackoffFactor:   viper.GetFloat64("hedra.poll_backoff_factor"),
			MaxPollTime:         viper.GetInt("hedra.max_poll_time"),
		},
		Groq: GroqConfig{
			APIKey:  viper.GetString("groq.api_key"),
			BaseURL: viper.GetString("groq.base_url"),
			Model:   viper.GetString("groq.model"),
		},
		Gemini: GeminiConfig{
			APIKey:  viper.GetString("gemini.api_key"),
			BaseURL: viper.GetString("gemini.base_url"),
			Model:   viper.GetString("gemini.model"),
		},
		R2: R2Config{
			AccountID:       viper.GetString("r2.account_id"),
			AccessKeyID:     viper.GetString("r2.access_key_id"),
			SecretAccessKey: viper.GetString("r2.secret_access_key"),
			BucketName:      viper.GetString("r2.bucket_name"),
			PublicURL:       viper.GetString("r2.public_url"),
		},
		Output: OutputConfig{
			AudioDir:  viper.GetString("output.audio_dir"),
			ImagesDir: viper.GetString("output.images_dir"),
			VideosDir: viper.GetString("output.videos_dir"),
		},
	}

	return cfg, nil
}

// PollerTimings converts the Hedra polling settings to durations.
func (c HedraConfig) PollerTimings() (initial, max, budget time.Duration, factor float64) {
	return time.Duration(c.InitialPollInterval) * time.Second,
		time.Duration(c.MaxPollInterval) * time.Second,
		time.Duration(c.MaxPollTime) * time.Second,
		c.PollBackoffFactor
}
