package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log     Log     `yaml:"log"`
	Server  Server  `yaml:"server"`
	Store   Store   `yaml:"store"`
	DB      DB      `yaml:"db"`
	OpenAI  OpenAI  `yaml:"openai"`
	Persona Persona `yaml:"persona" validate:"required"`
	Engine  Engine  `yaml:"engine"`
	Venues  Venues  `yaml:"venues"`
}

type OpenAI struct {
	Readiness ModelConfig `yaml:"readiness" validate:"required"`
	Reply     ModelConfig `yaml:"reply" validate:"required"`
	// Optional second pass that rewrites generated text into a more casual tone
	Refine *ModelConfig `yaml:"refine"`
}

type ModelConfig struct {
	// OpenAI base url
	BaseURL string `yaml:"base_url" example:"https://openrouter.ai/api/v1" validate:"required"`
	// OpenAI token
	Token string `yaml:"token" example:"sk-proj-abc123456789DEF789ghi012JKL345mno678PQR901stu234VWX" validate:"required"`
	// OpenAI model
	Model string `yaml:"model" example:"gpt-4o-mini" validate:"required"`
}

type Server struct {
	// Address the generation API listens on
	Listen string `yaml:"listen" example:":8080"`
}

type Store struct {
	// Persistence driver
	Driver string `yaml:"driver" example:"file" validate:"omitempty,oneof=file postgres"`
	// Path of the conversation log, used by the file driver
	Path string `yaml:"path" example:"data/conversations.jsonl"`
}

type DB struct {
	// Postgres username
	User string `yaml:"user" example:"postgres"`
	// Postgres password
	Pass string `yaml:"pass"`
	// Postgres host
	Host string `yaml:"host" example:"localhost:5432"`
	// Postgres database name
	Database string `yaml:"database" example:"wingman"`
}

// Persona is our own dating profile, rendered into every generation prompt.
type Persona struct {
	Name       string            `yaml:"name" example:"Tim" validate:"required"`
	Age        int               `yaml:"age" example:"29"`
	Bio        string            `yaml:"bio" example:"Tech enthusiast who loves coding and outdoor adventures"`
	LookingFor string            `yaml:"looking_for" example:"Someone to share adventures with"`
	Location   string            `yaml:"location" example:"Kuala Lumpur"`
	Interests  []string          `yaml:"interests"`
	Essentials []string          `yaml:"essentials"`
	Lifestyle  map[string]string `yaml:"lifestyle"`
}

type Engine struct {
	// Readiness is classified only once the message history is longer than this
	ReadinessMinMessages int `yaml:"readiness_min_messages" example:"2"`
	// Upper bound for a single generation or classification call, in seconds
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds" example:"30"`
	// Generated replies longer than this are rejected
	MaxMessageLength int `yaml:"max_message_length" example:"500"`
}

type Venues struct {
	// Venue type suggested by default when the conversation turns to meeting up
	DefaultType string `yaml:"default_type" example:"cafe"`
	// MCP servers exposing place lookup tools
	Servers []MCPServer `yaml:"servers" validate:"dive"`
}

type MCPServer struct {
	Name    string   `yaml:"name" example:"places" validate:"required"`
	Command string   `yaml:"command" example:"docker" validate:"required"`
	Args    []string `yaml:"args"`
}

type Log struct {
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

func Load() (*Config, error) {
	var result Config

	data, err := os.ReadFile("config.yaml")
	if err != nil {
		return nil, oops.Errorf("failed to read config file: %w", err)
	}

	if err = yaml.Unmarshal(data, &result); err != nil {
		return nil, oops.Errorf("failed to parse YAML config: %w", err)
	}

	result.applyDefaults()

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "file"
	}
	if c.Store.Path == "" {
		c.Store.Path = "data/conversations.jsonl"
	}
	if c.DB.User == "" {
		c.DB.User = "postgres"
	}
	if c.DB.Pass == "" {
		c.DB.Pass = "postgres"
	}
	if c.DB.Host == "" {
		c.DB.Host = "localhost:5432"
	}
	if c.DB.Database == "" {
		c.DB.Database = "wingman"
	}
	if c.Engine.ReadinessMinMessages == 0 {
		c.Engine.ReadinessMinMessages = 2
	}
	if c.Engine.RequestTimeoutSeconds == 0 {
		c.Engine.RequestTimeoutSeconds = 30
	}
	if c.Engine.MaxMessageLength == 0 {
		c.Engine.MaxMessageLength = 500
	}
	if c.Venues.DefaultType == "" {
		c.Venues.DefaultType = "cafe"
	}
}
