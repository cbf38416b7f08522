package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// 크레딧 CAS 충돌 정책
const (
	ConflictPolicyFail  = "fail"
	ConflictPolicyRetry = "retry"
)

// Config 구조체 - 모든 환경변수를 담음
type Config struct {
	// Server
	Port           string
	Env            string
	AllowedOrigins []string

	// Redis (비회원 생성 제한)
	RedisHost           string
	RedisPort           string
	RedisUsername       string
	RedisPassword       string
	RedisUseTLS         bool
	GuestMaxGenerations int

	// Supabase
	SupabaseURL           string
	SupabaseServiceKey    string
	SupabaseStorageBucket string

	// Gemini API
	GeminiAPIKey      string
	GeminiPromptModel string
	GeminiVisionModel string

	// Replicate (이미지 생성 / 페이스스왑 Job API)
	ReplicateAPIToken        string
	ReplicateBaseURL         string
	ReplicateGenerationModel string
	ReplicateFaceSwapVersion string
	ReplicateRPS             float64

	// Poller / FaceSwap
	PollMaxAttempts    int
	PollInterval       time.Duration
	FaceSwapMaxRetries int
	FaceSwapRetryWait  time.Duration

	// Credit
	GenerationCost        int
	LegacyGenerationCost  int
	CreditConflictPolicy  string
	CreditConflictRetries int

	// Reference data (locations / poses JSON)
	ReferenceDataDir string

	// Sentry
	SentryDSN string
}

// LoadConfig - 환경변수 로드
func LoadConfig() (*Config, error) {
	// .env 파일 로드 (있으면)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env file not found, using environment variables")
	}

	cfg := &Config{
		// Server
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "local"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),

		// Redis
		RedisHost:           getEnv("REDIS_HOST", ""),
		RedisPort:           getEnv("REDIS_PORT", "6379"),
		RedisUsername:       getEnv("REDIS_USERNAME", ""),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisUseTLS:         getBool("REDIS_USE_TLS", true),
		GuestMaxGenerations: getInt("GUEST_MAX_GENERATIONS", 2),

		// Supabase
		SupabaseURL:           strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
		SupabaseServiceKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBucket: getEnv("SUPABASE_STORAGE_BUCKET", "generations"),

		// Gemini API
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiPromptModel: getEnv("GEMINI_PROMPT_MODEL", "gemini-2.5-flash"),
		GeminiVisionModel: getEnv("GEMINI_VISION_MODEL", "gemini-2.5-flash"),

		// Replicate
		ReplicateAPIToken:        getEnv("REPLICATE_API_TOKEN", ""),
		ReplicateBaseURL:         strings.TrimRight(getEnv("REPLICATE_BASE_URL", "https://api.replicate.com/v1"), "/"),
		ReplicateGenerationModel: getEnv("REPLICATE_GENERATION_MODEL", "black-forest-labs/flux-kontext-pro"),
		ReplicateFaceSwapVersion: getEnv("REPLICATE_FACESWAP_VERSION", "cdingram/face-swap"),
		ReplicateRPS:             getFloat("REPLICATE_RPS", 5),

		// Poller / FaceSwap
		PollMaxAttempts:    getInt("POLL_MAX_ATTEMPTS", 60),
		PollInterval:       getDuration("POLL_INTERVAL", 2*time.Second),
		FaceSwapMaxRetries: getInt("FACESWAP_MAX_RETRIES", 3),
		FaceSwapRetryWait:  getDuration("FACESWAP_RETRY_WAIT", 3*time.Second),

		// Credit
		GenerationCost:        getInt("GENERATION_COST", 20),
		LegacyGenerationCost:  getInt("LEGACY_GENERATION_COST", 10),
		CreditConflictPolicy:  strings.ToLower(getEnv("CREDIT_CONFLICT_POLICY", ConflictPolicyFail)),
		CreditConflictRetries: getInt("CREDIT_CONFLICT_RETRIES", 3),

		ReferenceDataDir: getEnv("REFERENCE_DATA_DIR", "./data"),

		SentryDSN: getEnv("SENTRY_DSN", ""),
	}

	// 필수 환경변수 검증
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log.Println("✅ Configuration loaded successfully")
	log.Printf("   Supabase: %s (bucket: %s)", cfg.SupabaseURL, cfg.SupabaseStorageBucket)
	log.Printf("   Gemini: prompt=%s, vision=%s", cfg.GeminiPromptModel, cfg.GeminiVisionModel)
	log.Printf("   Replicate: %s (%.1f rps)", cfg.ReplicateGenerationModel, cfg.ReplicateRPS)
	log.Printf("   Credit: %d per generation (legacy %d), conflict policy: %s", cfg.GenerationCost, cfg.LegacyGenerationCost, cfg.CreditConflictPolicy)
	if cfg.RedisHost != "" {
		log.Printf("   Redis: %s (TLS: %v)", cfg.GetRedisAddr(), cfg.RedisUseTLS)
	}

	return cfg, nil
}

// validate - 필수 환경변수 검증
func (c *Config) validate() error {
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabaseServiceKey == "" {
		return fmt.Errorf("SUPABASE_SERVICE_KEY is required")
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.ReplicateAPIToken == "" {
		return fmt.Errorf("REPLICATE_API_TOKEN is required")
	}
	if c.CreditConflictPolicy != ConflictPolicyFail && c.CreditConflictPolicy != ConflictPolicyRetry {
		return fmt.Errorf("CREDIT_CONFLICT_POLICY must be %q or %q, got %q", ConflictPolicyFail, ConflictPolicyRetry, c.CreditConflictPolicy)
	}
	if c.GenerationCost <= 0 || c.LegacyGenerationCost <= 0 {
		return fmt.Errorf("generation cost must be positive")
	}
	if c.PollMaxAttempts <= 0 {
		return fmt.Errorf("POLL_MAX_ATTEMPTS must be positive")
	}
	return nil
}

// GetRedisAddr - Redis 주소 반환
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// PublicObjectURL - Storage 객체의 public URL
func (c *Config) PublicObjectURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.SupabaseURL, c.SupabaseStorageBucket, strings.TrimLeft(path, "/"))
}

// getEnv - 환경변수 가져오기 (기본값 지원)
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return parsed
		}
		log.Printf("⚠️  Invalid %s=%q, using default %d", key, v, defaultValue)
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return parsed
		}
		log.Printf("⚠️  Invalid %s=%q, using default %.2f", key, v, defaultValue)
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getDuration - "2s", "1500ms" 형식 또는 밀리초 정수
func getDuration(key string, defaultValue time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	log.Printf("⚠️  Invalid %s=%q, using default %s", key, v, defaultValue)
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
