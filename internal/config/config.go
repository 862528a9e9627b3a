package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	SynthesizerTemplate = "template"
	SynthesizerLLM      = "llm"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Client    ClientConfig    `mapstructure:"client"`
	Ask       AskConfig       `mapstructure:"ask"`
	Wikipedia WikipediaConfig `mapstructure:"wikipedia"`
	Synthesis SynthesisConfig `mapstructure:"synthesis"`
	LLM       LLMConfig       `mapstructure:"llm"`
	AWS       AWSConfig       `mapstructure:"aws"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Speech    SpeechConfig    `mapstructure:"speech"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port" validate:"min=1,max=65535"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type ClientConfig struct {
	APIURL string `mapstructure:"api_url" validate:"required,url"`
}

type AskConfig struct {
	MaxQuestionLength int `mapstructure:"max_question_length" validate:"min=1"`
}

type WikipediaConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type SynthesisConfig struct {
	Kind  string        `mapstructure:"kind" validate:"oneof=template llm"`
	Delay time.Duration `mapstructure:"delay" validate:"gte=0"`
}

type LLMConfig struct {
	BaseURL    string `mapstructure:"base_url" validate:"required,url"`
	Model      string `mapstructure:"model" validate:"required"`
	APIKey     string `mapstructure:"api_key"`
	MaxRetries uint   `mapstructure:"max_retries" validate:"max=10"`
}

type AWSConfig struct {
	ParamPrefix string `mapstructure:"param_prefix"`
}

type CacheConfig struct {
	Table     string        `mapstructure:"table"`
	RedisAddr string        `mapstructure:"redis_addr"`
	TTL       time.Duration `mapstructure:"ttl" validate:"gt=0"`
}

type SpeechConfig struct {
	Locale string `mapstructure:"locale" validate:"required"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

// envBindings maps config keys to the environment variables that set them.
var envBindings = map[string]string{
	"server.port":                 "PORT",
	"server.cors.allowed_origins": "CORS_ALLOWED_ORIGINS",
	"client.api_url":              "ELI5_API_URL",
	"ask.max_question_length":     "MAX_QUESTION_LENGTH",
	"wikipedia.base_url":          "WIKIPEDIA_BASE_URL",
	"wikipedia.timeout":           "WIKIPEDIA_TIMEOUT",
	"synthesis.kind":              "SYNTHESIZER",
	"synthesis.delay":             "SYNTH_DELAY",
	"llm.base_url":                "LLM_BASE_URL",
	"llm.model":                   "LLM_MODEL",
	"llm.api_key":                 "LLM_API_KEY",
	"llm.max_retries":             "LLM_MAX_RETRIES",
	"aws.param_prefix":            "PARAM_PREFIX",
	"cache.table":                 "SUMMARY_CACHE_TABLE",
	"cache.redis_addr":            "REDIS_ADDR",
	"cache.ttl":                   "SUMMARY_CACHE_TTL",
	"speech.locale":               "SPEECH_LOCALE",
	"log.level":                   "LOG_LEVEL",
}

type Loader struct {
	viper      *viper.Viper
	validator  *validator.Validate
	translator ut.Translator
}

// NewLoader reads the optional YAML file at configFile; environment
// variables always win over file values.
func NewLoader(configFile string) (*Loader, error) {
	validate, trans, err := newValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create new validator: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	return &Loader{
		viper:      v,
		validator:  validate,
		translator: trans,
	}, nil
}

func (loader *Loader) Load() (*Config, error) {
	v := loader.viper

	v.SetDefault("server.port", 8000)
	v.SetDefault("server.cors.allowed_origins", []string{
		"http://localhost:8080",
		"http://localhost:8081",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:8081",
	})
	v.SetDefault("client.api_url", "http://127.0.0.1:8000")
	v.SetDefault("ask.max_question_length", 300)
	v.SetDefault("wikipedia.base_url", "https://en.wikipedia.org/api/rest_v1/page/summary")
	v.SetDefault("wikipedia.timeout", "10s")
	v.SetDefault("synthesis.kind", SynthesizerTemplate)
	v.SetDefault("synthesis.delay", "2s")
	v.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.model", "llama-3.3-70b-versatile")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("aws.param_prefix", "")
	v.SetDefault("cache.table", "")
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("speech.locale", "en-US")
	v.SetDefault("log.level", "info")

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s environment variable: %w", env, err)
		}
	}

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("configuration file found but could not be read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}
	cfg.Synthesis.Kind = strings.ToLower(strings.TrimSpace(cfg.Synthesis.Kind))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Server.CORS.AllowedOrigins = splitOrigins(cfg.Server.CORS.AllowedOrigins)

	if err := loader.validator.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		var errorMsgs []string
		for _, e := range validationErrors {
			errorMsgs = append(errorMsgs, e.Translate(loader.translator))
		}
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errorMsgs, ", "))
	}

	return &cfg, nil
}

// Load is NewLoader followed by Load.
func Load(configFile string) (*Config, error) {
	loader, err := NewLoader(configFile)
	if err != nil {
		return nil, err
	}
	return loader.Load()
}

// splitOrigins flattens comma-separated entries and drops blanks.
func splitOrigins(in []string) []string {
	var out []string
	for _, entry := range in {
		for _, o := range strings.Split(entry, ",") {
			if o = strings.TrimSpace(o); o != "" {
				out = append(out, o)
			}
		}
	}
	return out
}
