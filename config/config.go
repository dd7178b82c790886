package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Script  ScriptConfig  `yaml:"script"`
	Audio   AudioConfig   `yaml:"audio"`
	Video   VideoConfig   `yaml:"video"`
	Sources SourcesConfig `yaml:"sources"`
	Upload  UploadConfig  `yaml:"upload"`
	Web     WebConfig     `yaml:"web"`
	Paths   PathsConfig   `yaml:"paths"`

	// Credentials are read from the environment once at load time and
	// threaded through every adapter constructor, never from globals.
	Keys Credentials `yaml:"-"`
}

type ScriptConfig struct {
	BaseURL           string  `yaml:"base_url"`
	Model             string  `yaml:"model"`
	Temperature       float64 `yaml:"temperature"`
	TargetDurationSec int     `yaml:"target_duration_sec"`
}

type AudioConfig struct {
	Engine     string `yaml:"engine"` // elevenlabs | command
	VoiceID    string `yaml:"voice_id"`
	ModelID    string `yaml:"model_id"`
	TTSCommand string `yaml:"tts_command"`
}

type VideoConfig struct {
	Source          string  `yaml:"source"` // pixabay | pexels | storyblocks | luma
	OutputWidth     int     `yaml:"output_width"`
	OutputHeight    int     `yaml:"output_height"`
	FPS             int     `yaml:"fps"`
	ToleranceSec    float64 `yaml:"tolerance_sec"`
	VideoCodec      string  `yaml:"video_codec"`
	AudioCodec      string  `yaml:"audio_codec"`
	RetainOutputSec float64 `yaml:"retain_output_sec"`
}

type SourcesConfig struct {
	PerPage             int     `yaml:"per_page"`
	LumaAspectRatio     string  `yaml:"luma_aspect_ratio"`
	LumaPollIntervalSec float64 `yaml:"luma_poll_interval_sec"`
	LumaMaxRetries      int     `yaml:"luma_max_retries"`
	LumaExtend          bool    `yaml:"luma_extend"`
}

type UploadConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Visibility      string `yaml:"visibility"`
	CategoryID      string `yaml:"category_id"`
	DefaultLanguage string `yaml:"default_language"`
}

type WebConfig struct {
	Addr string `yaml:"addr"`
}

type PathsConfig struct {
	Scratch string `yaml:"scratch"`
	Output  string `yaml:"output"`
	Logs    string `yaml:"logs"`
}

// Credentials holds every API key the pipeline can use
type Credentials struct {
	OpenAI             string
	ElevenLabs         string
	Pexels             string
	Pixabay            string
	StoryblocksPublic  string
	StoryblocksPrivate string
	Luma               string
	YouTubeClientID    string
	YouTubeSecret      string
	YouTubeRefresh     string
}

// Load reads config.yaml, applies defaults and pulls credentials from the environment
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	cfg.Keys = Credentials{
		OpenAI:             os.Getenv("OPENAI_API_KEY"),
		ElevenLabs:         os.Getenv("ELEVENLABS_API_KEY"),
		Pexels:             os.Getenv("PEXELS_API_KEY"),
		Pixabay:            os.Getenv("PIXABAY_API_KEY"),
		StoryblocksPublic:  os.Getenv("STORYBLOCKS_PUBLIC_KEY"),
		StoryblocksPrivate: os.Getenv("STORYBLOCKS_PRIVATE_KEY"),
		Luma:               os.Getenv("LUMAAI_API_KEY"),
		YouTubeClientID:    os.Getenv("YOUTUBE_CLIENT_ID"),
		YouTubeSecret:      os.Getenv("YOUTUBE_CLIENT_SECRET"),
		YouTubeRefresh:     os.Getenv("YOUTUBE_REFRESH_TOKEN"),
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Script.BaseURL == "" {
		c.Script.BaseURL = "https://api.openai.com/v1"
	}
	if c.Script.Model == "" {
		c.Script.Model = "gpt-4o"
	}
	if c.Script.TargetDurationSec == 0 {
		c.Script.TargetDurationSec = 20
	}
	if c.Video.OutputWidth == 0 {
		c.Video.OutputWidth = 1080
	}
	if c.Video.OutputHeight == 0 {
		c.Video.OutputHeight = 1920
	}
	if c.Video.FPS == 0 {
		c.Video.FPS = 30
	}
	if c.Video.ToleranceSec == 0 {
		c.Video.ToleranceSec = 0.1
	}
	if c.Video.VideoCodec == "" {
		c.Video.VideoCodec = "libx264"
	}
	if c.Video.AudioCodec == "" {
		c.Video.AudioCodec = "aac"
	}
	if c.Sources.PerPage == 0 {
		c.Sources.PerPage = 10
	}
	if c.Sources.LumaAspectRatio == "" {
		c.Sources.LumaAspectRatio = "9:16"
	}
	if c.Sources.LumaPollIntervalSec == 0 {
		c.Sources.LumaPollIntervalSec = 3
	}
	if c.Sources.LumaMaxRetries == 0 {
		c.Sources.LumaMaxRetries = 3
	}
	if c.Upload.Visibility == "" {
		c.Upload.Visibility = "private"
	}
	if c.Upload.CategoryID == "" {
		c.Upload.CategoryID = "22"
	}
	if c.Web.Addr == "" {
		c.Web.Addr = ":5000"
	}
	if c.Paths.Scratch == "" {
		c.Paths.Scratch = "temp"
	}
	if c.Paths.Output == "" {
		c.Paths.Output = "output"
	}
	if c.Paths.Logs == "" {
		c.Paths.Logs = "logs"
	}
}
