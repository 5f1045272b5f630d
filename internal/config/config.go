package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	Server struct {
		Port string `yaml:"port"`
		Mode string `yaml:"mode"` // gin mode: "release", "debug" or "test"
	} `yaml:"server"`

	Model struct {
		VectorizerPath string `yaml:"vectorizer_path"`
		ClassifierPath string `yaml:"classifier_path"`
		TopN           int    `yaml:"top_n"`
	} `yaml:"model"`

	Database struct {
		Path string `yaml:"path"` // SQLite file
	} `yaml:"database"`

	History struct {
		Limit             int `yaml:"limit"`
		SessionMaxEntries int `yaml:"session_max_entries"`
	} `yaml:"history"`

	Session struct {
		Secret     string `yaml:"secret"`
		CookieName string `yaml:"cookie_name"`
		TTLHours   int    `yaml:"ttl_hours"`
	} `yaml:"session"`

	Training struct {
		CorpusPath    string  `yaml:"corpus_path"`
		TextColumn    string  `yaml:"text_column"`
		LabelColumn   string  `yaml:"label_column"`
		PositiveLabel string  `yaml:"positive_label"`
		MaxFeatures   int     `yaml:"max_features"`
		TestSize      float64 `yaml:"test_size"`
		Seed          int64   `yaml:"seed"`
		C             float64 `yaml:"c"`
		MaxIter       int     `yaml:"max_iter"`
		Tolerance     float64 `yaml:"tolerance"`
		Workers       int     `yaml:"workers"`
		OutputDir     string  `yaml:"output_dir"`
	} `yaml:"training"`

	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
}

// LoadConfig loads configuration from YAML file
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyDefaults()

	config.Session.Secret = os.ExpandEnv(config.Session.Secret)
	config.Database.Path = os.ExpandEnv(config.Database.Path)

	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8501"
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}

	if c.Model.VectorizerPath == "" {
		c.Model.VectorizerPath = "./models/vectorizer.json"
	}
	if c.Model.ClassifierPath == "" {
		c.Model.ClassifierPath = "./models/classifier.json"
	}
	if c.Model.TopN == 0 {
		c.Model.TopN = 10
	}

	if c.Database.Path == "" {
		c.Database.Path = "./data/reviews.db"
	}

	if c.History.Limit == 0 {
		c.History.Limit = 30
	}
	if c.History.SessionMaxEntries == 0 {
		c.History.SessionMaxEntries = 200
	}

	if c.Session.CookieName == "" {
		c.Session.CookieName = "cinesense_session"
	}
	if c.Session.TTLHours == 0 {
		c.Session.TTLHours = 24
	}

	if c.Training.CorpusPath == "" {
		c.Training.CorpusPath = "./data/imdb.csv"
	}
	if c.Training.TextColumn == "" {
		c.Training.TextColumn = "review"
	}
	if c.Training.LabelColumn == "" {
		c.Training.LabelColumn = "sentiment"
	}
	if c.Training.PositiveLabel == "" {
		c.Training.PositiveLabel = "positive"
	}
	if c.Training.MaxFeatures == 0 {
		c.Training.MaxFeatures = 10000
	}
	if c.Training.TestSize == 0 {
		c.Training.TestSize = 0.2
	}
	if c.Training.Seed == 0 {
		c.Training.Seed = 42
	}
	if c.Training.C == 0 {
		c.Training.C = 1
	}
	if c.Training.MaxIter == 0 {
		c.Training.MaxIter = 1000
	}
	if c.Training.Tolerance == 0 {
		c.Training.Tolerance = 1e-4
	}
	if c.Training.Workers == 0 {
		c.Training.Workers = 4
	}
	if c.Training.OutputDir == "" {
		c.Training.OutputDir = "./models"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
