package internal

import (
	"fmt"

	"github.com/fabricahq/fabrica/internal/ai"
	"github.com/fabricahq/fabrica/internal/api"
	"github.com/fabricahq/fabrica/internal/http/imagen"
	"github.com/fabricahq/fabrica/internal/http/veo"
	"github.com/fabricahq/fabrica/internal/pill"
	"github.com/fabricahq/fabrica/internal/scrape"
	"github.com/fabricahq/fabrica/internal/script"
	"github.com/fabricahq/fabrica/internal/storage"
	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

// FabricaConfig is the struct used to contain the various user config
// supplied by file or environment. Every nested section can be overridden
// via environment variables, which is how the containerised deployment
// configures the pipeline.
type FabricaConfig struct {
	AppName     string `yaml:"app_name" env:"APP_NAME" env-default:"fabrica"`
	Environment string `yaml:"environment" env:"APP_ENV" env-default:"production"`
	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	AI      ai.Config      `yaml:"ai"`
	Storage storage.Config `yaml:"storage"`
	Scrape  scrape.Config  `yaml:"scrape"`
	Script  script.Config  `yaml:"script"`
	Pill    pill.Config    `yaml:"pill"`
	Veo     veo.Config     `yaml:"veo"`
	Imagen  imagen.Config  `yaml:"imagen"`
	Rest    api.RestConfig `yaml:"api"`
}

// LoadFromFile loads a YAML configuration file into this FabricaConfig,
// applying environment variable overrides afterwards.
func (config *FabricaConfig) LoadFromFile(configPath string) error {
	if err := cleanenv.ReadConfig(configPath, config); err != nil {
		return fmt.Errorf("failed to load configuration from '%s' - %v", configPath, err.Error())
	}

	return config.validate()
}

// LoadFromEnv populates this FabricaConfig purely from environment
// variables and defaults, for deployments that ship no config file.
func (config *FabricaConfig) LoadFromEnv() error {
	if err := cleanenv.ReadEnv(config); err != nil {
		return fmt.Errorf("failed to load configuration from environment - %v", err.Error())
	}

	return config.validate()
}

func (config *FabricaConfig) validate() error {
	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf("configuration is invalid - %v", err.Error())
	}

	return nil
}
