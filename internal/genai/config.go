package genai

import "time"

// Config contains text and image generation settings.
type Config struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	ImageModel  string        `mapstructure:"image_model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`

	// PromptsDir overrides the embedded prompt templates when set.
	PromptsDir string `mapstructure:"prompts_dir"`

	Images ImagesConfig `mapstructure:"images"`
}

// ImagesConfig controls generated-image attachments.
type ImagesConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Dir        string `mapstructure:"dir"`
	ThumbWidth int    `mapstructure:"thumb_width"`
}
