package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3/log"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type serverConfig struct {
	Port        int    `koanf:"port" validate:"required"`
	Mode        string `koanf:"mode" validate:"required"`
	Concurrency int    `koanf:"concurrency"`
	BodyLimit   int    `koanf:"body_limit"`
	AppName     string `koanf:"app_name"`
}

type logLevel string

const (
	Debug logLevel = "debug"
	Info  logLevel = "info"
	Warn  logLevel = "warn"
	Error logLevel = "error"
	Fatal logLevel = "fatal"
	Panic logLevel = "panic"
)

type Module string

const (
	ModuleMilvus     Module = "milvus"
	ModuleIngest     Module = "ingest"
	ModuleDatabase   Module = "database"
	ModuleOpenAI     Module = "openai"
	ModuleS3         Module = "s3"
	ModuleServer     Module = "server"
	ModuleSetting    Module = "setting"
	ModuleUpload     Module = "upload"
	ModuleChat       Module = "chat"
	ModuleCollection Module = "collection"
	ModuleProcess    Module = "process"
)

type databaseConfig struct {
	Host         string   `koanf:"host" validate:"required"`
	Port         int      `koanf:"port" validate:"required"`
	User         string   `koanf:"user" validate:"required"`
	Password     string   `koanf:"password"`
	Name         string   `koanf:"name" validate:"required"`
	Replicas     []string `koanf:"replicas"`
	MaxIdleConns int      `koanf:"max_idle_conns"`
	MaxOpenConns int      `koanf:"max_open_conns"`
	MaxLifetime  int      `koanf:"max_lifetime"`
}

type openaiConfig struct {
	Key            string  `koanf:"key"`
	BaseURL        string  `koanf:"base_url"`
	Model          string  `koanf:"model" validate:"required"`
	EmbeddingModel string  `koanf:"embedding_model" validate:"required"`
	SystemPrompt   string  `koanf:"system_prompt"`
	Temperature    float32 `koanf:"temperature"`
	RequestTimeout int     `koanf:"request_timeout" validate:"required"`
}

type corsConfig struct {
	AllowOrigins []string `koanf:"allow_origins"`
	AllowMethods []string `koanf:"allow_methods"`
	AllowHeaders []string `koanf:"allow_headers"`
}

type milvusConfig struct {
	Address         string          `koanf:"address" validate:"required"`
	Collection      string          `koanf:"collection" validate:"required"`
	MetricType      string          `koanf:"metric_type" validate:"required"`
	ScoreThreshold  float32         `koanf:"score_threshold"`
	TopK            int             `koanf:"top_k" validate:"required"`
	IndexHNSWConfig indexHNSWConfig `koanf:"index_hnsw_config"`
}

type indexHNSWConfig struct {
	M              int `koanf:"m" validate:"required"`
	EfConstruction int `koanf:"ef_construction" validate:"required"`
	Ef             int `koanf:"ef" validate:"required"`
}

type s3Config struct {
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Region    string `koanf:"region"`
	UseSSL    bool   `koanf:"use_ssl"`
	Bucket    string `koanf:"bucket"`
}

// processingConfig points at the document-processing service that turns raw
// files into text elements. When Endpoint is empty the local PDF fallback is
// used instead.
type processingConfig struct {
	Endpoint     string `koanf:"endpoint"`
	Timeout      int    `koanf:"timeout"`
	ChunkChars   int    `koanf:"chunk_chars"`
	ChunkOverlap int    `koanf:"chunk_overlap"`
}

type config struct {
	Server     serverConfig     `koanf:"server"`
	Database   databaseConfig   `koanf:"database"`
	OpenAI     openaiConfig     `koanf:"openai"`
	LogLevel   logLevel         `koanf:"log_level"`
	Dns        string           `koanf:"dns"`
	S3         s3Config         `koanf:"s3"`
	Cors       corsConfig       `koanf:"cors"`
	Milvus     milvusConfig     `koanf:"milvus"`
	Processing processingConfig `koanf:"processing"`
}

func buildMySQLDSN(cfg databaseConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Name,
	)
}

var defaultConfig = config{
	Server: serverConfig{
		Port:        8000,
		Mode:        "release",
		Concurrency: 256,
		BodyLimit:   64 << 20,
		AppName:     "ai-doc-assistant",
	},
	Database: databaseConfig{
		Host:         "127.0.0.1",
		Port:         3306,
		User:         "root",
		Password:     "",
		Name:         "docassistant",
		MaxIdleConns: 4,
		MaxOpenConns: 16,
		MaxLifetime:  30,
	},
	OpenAI: openaiConfig{
		Key:            "",
		BaseURL:        "https://openrouter.ai/api/v1",
		Model:          "meta-llama/llama-3.1-8b-instruct",
		EmbeddingModel: "text-embedding-3-small",
		Temperature:    0.1,
		RequestTimeout: 30,
	},
	LogLevel: Info,
	S3: s3Config{
		Endpoint:  "http://localhost:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Region:    "us-east-1",
		UseSSL:    false,
		Bucket:    "uploads",
	},
	Milvus: milvusConfig{
		Address:        "localhost:19530",
		Collection:     "uploaded_documents",
		MetricType:     "COSINE",
		ScoreThreshold: 0.1,
		TopK:           10,
		IndexHNSWConfig: indexHNSWConfig{
			M:              16,
			EfConstruction: 200,
			Ef:             64,
		},
	},
	Processing: processingConfig{
		Endpoint:     "",
		Timeout:      60,
		ChunkChars:   500,
		ChunkOverlap: 64,
	},
}

var (
	Cfg  = defaultConfig
	once sync.Once
)

// Init loads configuration from the given yaml file, applies APP_ env
// overrides and validates the result. Only the first call loads; later calls
// are no-ops.
func Init(path string) error {
	var initErr error
	once.Do(func() {
		k := koanf.New(".")

		validate := validator.New()
		// defaults
		Cfg = defaultConfig

		// file
		if e := k.Load(file.Provider(path), yaml.Parser()); e != nil && !os.IsNotExist(e) {
			initErr = e
			return
		}

		// env APP_SERVER_PORT
		if e := k.Load(env.Provider("APP_", ".", func(s string) string {
			return strings.ToLower(strings.TrimPrefix(s, "APP_"))
		}), nil); e != nil {
			initErr = e
			return
		}

		// bind
		if e := k.Unmarshal("", &Cfg); e != nil {
			log.Errorf("failed to unmarshal config: %v", e)
			initErr = e
			return
		}

		if Cfg.Dns == "" {
			Cfg.Dns = buildMySQLDSN(Cfg.Database)
		}

		// validate config
		if err := validate.Struct(Cfg); err != nil {
			if errs, ok := err.(validator.ValidationErrors); ok {
				var sb strings.Builder
				sb.WriteString(fmt.Sprintf("%v Config validation failed:\n", ModuleSetting))

				for _, e := range errs {
					sb.WriteString(
						fmt.Sprintf("  - %s: failed '%s' (value: %v)\n", e.Field(), e.Tag(), e.Value()),
					)
				}

				log.Error(sb.String())
			} else {
				log.Errorf("config validation failed: %v", err)
			}
		}
	})
	return initErr
}

func init() {
	_ = Init("config.yaml")
}
