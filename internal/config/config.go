package config

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type AppConfig struct {
	OutputDir string `mapstructure:"OUTPUT_DIR" validate:"min=1"`

	StacEndpoint   string `mapstructure:"STAC_ENDPOINT" validate:"url"`
	StacCollection string `mapstructure:"STAC_COLLECTION" validate:"min=1"`
	SearchLimit    int    `mapstructure:"SEARCH_LIMIT" validate:"min=1"`
	MinDatetime    string `mapstructure:"MIN_DATETIME" validate:"min=1"`

	UserAgent      string        `mapstructure:"USER_AGENT" validate:"min=1"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT" validate:"nonzero_duration"`
	HTTPRetries    int           `mapstructure:"HTTP_RETRIES" validate:"min=1"`

	DownloadMaxAttempts int           `mapstructure:"DOWNLOAD_MAX_ATTEMPTS" validate:"min=1"`
	DownloadBackoffUnit time.Duration `mapstructure:"DOWNLOAD_BACKOFF_UNIT" validate:"nonzero_duration"`
	DownloadChunkSize   int           `mapstructure:"DOWNLOAD_CHUNK_SIZE" validate:"min=1"`

	ProgressStoreMode string `mapstructure:"PROGRESS_STORE_MODE" validate:"oneof=json bbolt"`

	GDALThreads string `mapstructure:"GDAL_THREADS" validate:"min=1"`
}

func (c *AppConfig) Validate() error {
	v := validator.New()

	_ = v.RegisterValidation("nonzero_duration", func(fl validator.FieldLevel) bool {
		if d, ok := fl.Field().Interface().(time.Duration); ok {
			return d > 0
		} else {
			return false
		}
	})
	if err := v.Struct(c); err != nil {
		return err
	}
	return nil
}

// LoadAppConfig reads defaults, an optional config file and the
// environment, in that order of precedence. A missing config file is
// fine; this tool usually runs on env vars alone.
func LoadAppConfig(name, ext string, paths ...string) (*AppConfig, error) {
	for _, path := range paths {
		viper.AddConfigPath(path)
	}
	viper.SetConfigName(name)
	viper.SetConfigType(ext)
	viper.AutomaticEnv()

	viper.SetDefault("OUTPUT_DIR", "./output2")

	viper.SetDefault("STAC_ENDPOINT", "https://planetarycomputer.microsoft.com/api/stac/v1/search")
	viper.SetDefault("STAC_COLLECTION", "naip")
	viper.SetDefault("SEARCH_LIMIT", 100)
	viper.SetDefault("MIN_DATETIME", "2018-01-01")

	viper.SetDefault("USER_AGENT", "naip-basemap/1.0 (+https://github.com/rzagha1/NAIP-Basemap-Download)")
	viper.SetDefault("REQUEST_TIMEOUT", 300*time.Second)
	viper.SetDefault("HTTP_RETRIES", 3)

	viper.SetDefault("DOWNLOAD_MAX_ATTEMPTS", 3)
	viper.SetDefault("DOWNLOAD_BACKOFF_UNIT", 5*time.Second)
	viper.SetDefault("DOWNLOAD_CHUNK_SIZE", 1024)

	viper.SetDefault("PROGRESS_STORE_MODE", "json")

	viper.SetDefault("GDAL_THREADS", "ALL_CPUS")

	if err := viper.ReadInConfig(); err != nil {
		notFound := viper.ConfigFileNotFoundError{}
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}
	cfg := &AppConfig{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
