// Package config defines the configuration structures for boom-bust and
// loads them from YAML, a .env file, and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/iwvelando/boom-bust/internal/director"
	"github.com/iwvelando/boom-bust/internal/economy"
	"github.com/iwvelando/boom-bust/pkg/constants"
)

// Configuration holds all configuration for boom-bust.
type Configuration struct {
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging,omitempty"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output,omitempty"`
	Economy  EconomyConfig  `mapstructure:"economy" yaml:"economy,omitempty"`
	Director DirectorConfig `mapstructure:"director" yaml:"director,omitempty"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level,omitempty" validate:"omitempty,oneof=debug info warn warning error"`
	Format     string `mapstructure:"format" yaml:"format,omitempty" validate:"omitempty,oneof=json console"`
	OutputFile string `mapstructure:"outputFile" yaml:"outputFile,omitempty"`
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format,omitempty" validate:"omitempty,oneof=pretty csv"`
}

// EconomyConfig overrides the ledger tunables.
type EconomyConfig struct {
	StartingCash        float64 `mapstructure:"startingCash" yaml:"startingCash,omitempty" validate:"gte=0"`
	StartingCirculating float64 `mapstructure:"startingCirculating" yaml:"startingCirculating,omitempty" validate:"gte=0"`
	CrateValue          float64 `mapstructure:"crateValue" yaml:"crateValue,omitempty" validate:"gt=0"`
	RecallThreshold     float64 `mapstructure:"recallThreshold" yaml:"recallThreshold,omitempty" validate:"gt=0"`
	DefaultLoanRate     float64 `mapstructure:"defaultLoanRate" yaml:"defaultLoanRate,omitempty" validate:"gt=0,lte=1"`
	StimulusThreshold   float64 `mapstructure:"stimulusThreshold" yaml:"stimulusThreshold,omitempty" validate:"gt=0"`
}

// DirectorConfig tunes campaign pacing.
type DirectorConfig struct {
	HintDelay       time.Duration `mapstructure:"hintDelay" yaml:"hintDelay,omitempty" validate:"gte=0"`
	TimeScale       float64       `mapstructure:"timeScale" yaml:"timeScale,omitempty" validate:"gt=0,lte=100"`
	AutoCloseScenes bool          `mapstructure:"autoCloseScenes" yaml:"autoCloseScenes,omitempty"`
}

// ServerConfig holds HTTP host options.
type ServerConfig struct {
	Address           string  `mapstructure:"address" yaml:"address,omitempty" validate:"required"`
	MaxBodySize       string  `mapstructure:"maxBodySize" yaml:"maxBodySize,omitempty"`
	CommandsPerSecond float64 `mapstructure:"commandsPerSecond" yaml:"commandsPerSecond,omitempty" validate:"gt=0"`
	Burst             int     `mapstructure:"burst" yaml:"burst,omitempty" validate:"gte=1"`
}

// Default returns the configuration used when no file is present.
func Default() *Configuration {
	return &Configuration{
		Output: OutputConfig{Format: constants.OutputFormatPretty},
		Economy: EconomyConfig{
			StartingCash:        constants.StartingCash,
			StartingCirculating: constants.StartingCirculatingMoney,
			CrateValue:          constants.CrateValue,
			RecallThreshold:     constants.RecallThreshold,
			DefaultLoanRate:     constants.DefaultLoanRate,
			StimulusThreshold:   constants.StimulusThreshold,
		},
		Director: DirectorConfig{
			HintDelay: time.Duration(constants.DefaultHintDelayMs) * time.Millisecond,
			TimeScale: constants.DefaultTimeScale,
		},
		Server: ServerConfig{
			Address:           constants.DefaultServerAddress,
			MaxBodySize:       "64K",
			CommandsPerSecond: constants.DefaultCommandsPerSecond,
			Burst:             constants.DefaultCommandBurst,
		},
	}
}

// LoadConfiguration loads the YAML configuration at configPath, layered over
// the defaults and under BOOMBUST_* environment overrides. A missing file
// is not an error.
func LoadConfiguration(configPath string) (*Configuration, error) {
	// .env is optional.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := configuration.Validate(); err != nil {
		return nil, err
	}
	return &configuration, nil
}

func setDefaults(v *viper.Viper, d *Configuration) {
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.outputFile", d.Logging.OutputFile)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("economy.startingCash", d.Economy.StartingCash)
	v.SetDefault("economy.startingCirculating", d.Economy.StartingCirculating)
	v.SetDefault("economy.crateValue", d.Economy.CrateValue)
	v.SetDefault("economy.recallThreshold", d.Economy.RecallThreshold)
	v.SetDefault("economy.defaultLoanRate", d.Economy.DefaultLoanRate)
	v.SetDefault("economy.stimulusThreshold", d.Economy.StimulusThreshold)
	v.SetDefault("director.hintDelay", d.Director.HintDelay)
	v.SetDefault("director.timeScale", d.Director.TimeScale)
	v.SetDefault("director.autoCloseScenes", d.Director.AutoCloseScenes)
	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("server.maxBodySize", d.Server.MaxBodySize)
	v.SetDefault("server.commandsPerSecond", d.Server.CommandsPerSecond)
	v.SetDefault("server.burst", d.Server.Burst)
}

// Validate checks the decoded configuration against its validation tags.
func (c *Configuration) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			messages := make([]string, 0, len(verrs))
			for _, e := range verrs {
				messages = append(messages, fmt.Sprintf("field '%s' failed validation: %s (value: '%v')", e.Namespace(), e.Tag(), e.Value()))
			}
			return fmt.Errorf("invalid configuration:\n  %s", strings.Join(messages, "\n  "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// EconomySettings converts the economy section into ledger settings.
func (c *Configuration) EconomySettings() economy.Settings {
	s := economy.DefaultSettings()
	s.StartingCash = c.Economy.StartingCash
	s.StartingCirculating = c.Economy.StartingCirculating
	s.CrateValue = c.Economy.CrateValue
	s.RecallThreshold = c.Economy.RecallThreshold
	s.DefaultLoanRate = c.Economy.DefaultLoanRate
	s.StimulusThreshold = c.Economy.StimulusThreshold
	return s
}

// DirectorOptions converts the director section into director options.
func (c *Configuration) DirectorOptions() director.Options {
	return director.Options{HintDelay: c.Director.HintDelay}
}
