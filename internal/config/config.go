package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Storage   StorageConfig
	Embedding EmbeddingConfig
	Qdrant    QdrantConfig
	Scoring   ScoringConfig
	Worker    WorkerConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type StorageConfig struct {
	UploadPath  string
	MaxFileSize int64
}

type EmbeddingConfig struct {
	APIKey       string
	ModelName    string
	Dimension    int
	CacheBackend string // "disk" or "redis"
	CacheDir     string
	RedisAddr    string
	Timeout      time.Duration
}

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
}

// ScoringConfig holds the four sub-score weights. They do not have to sum
// to 1; the matcher normalizes by the weight sum.
type ScoringConfig struct {
	SemanticWeight   float64
	SkillWeight      float64
	ExperienceWeight float64
	EducationWeight  float64
}

type WorkerConfig struct {
	Concurrency    int
	PollInterval   time.Duration
	ExtractTimeout time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using default values.")
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "3000"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "hiresight"),
		},
		Storage: StorageConfig{
			UploadPath:  getEnv("UPLOAD_PATH", "./uploads"),
			MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", 10485760),
		},
		Embedding: EmbeddingConfig{
			APIKey:       getEnv("GEMINI_API_KEY", ""),
			ModelName:    getEnv("EMBEDDING_MODEL", "text-embedding-004"),
			Dimension:    getEnvAsInt("EMBEDDING_DIMENSION", 384),
			CacheBackend: getEnv("EMBEDDING_CACHE_BACKEND", "disk"),
			CacheDir:     getEnv("EMBEDDING_CACHE_DIR", "./embeddings_cache"),
			RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
			Timeout:      getEnvAsDuration("EMBEDDING_TIMEOUT", "30s"),
		},
		Qdrant: QdrantConfig{
			URL:        getEnv("QDRANT_URL", "http://localhost:6333"),
			APIKey:     getEnv("QDRANT_API_KEY", ""),
			Collection: getEnv("QDRANT_COLLECTION", "resume_passages"),
		},
		Scoring: ScoringConfig{
			SemanticWeight:   getEnvAsFloat("W_SEMANTIC", 0.40),
			SkillWeight:      getEnvAsFloat("W_SKILL", 0.30),
			ExperienceWeight: getEnvAsFloat("W_EXPERIENCE", 0.20),
			EducationWeight:  getEnvAsFloat("W_EDUCATION", 0.10),
		},
		Worker: WorkerConfig{
			Concurrency:    getEnvAsInt("WORKER_CONCURRENCY", 3),
			PollInterval:   getEnvAsDuration("WORKER_POLL_INTERVAL", "10s"),
			ExtractTimeout: getEnvAsDuration("EXTRACT_TIMEOUT", "20s"),
		},
	}
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
