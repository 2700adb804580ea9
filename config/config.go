package config

import (
	"github.com/caarlos0/env/v10"
)

// Config is the full application configuration, loaded from the
// environment (a .env file is read first when present).
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	MongoURI string `env:"MONGO_URI,required"`
	MongoDB  string `env:"MONGO_DB" envDefault:"interviewprep"`

	// Optional: without a Redis address the app runs with caching disabled.
	RedisAddr string `env:"REDIS_ADDR"`

	// LLMProvider selects the completion backend: gemini|ollama.
	LLMProvider string `env:"LLM_PROVIDER" envDefault:"gemini"`

	GeminiAPIURL string `env:"GEMINI_API_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`

	OllamaAPIURL string `env:"OLLAMA_API_URL" envDefault:"http://localhost:11434"`
	OllamaModel  string `env:"OLLAMA_MODEL" envDefault:"qwen2.5:7b"`

	// SupabaseJWTSecret enables bearer auth on /api when set.
	SupabaseJWTSecret string `env:"SUPABASE_JWT_SECRET"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
