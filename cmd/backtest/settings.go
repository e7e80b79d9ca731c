package main

import (
	"strings"

	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/rxtech-lab/argo-backtest/pkg/marketdata/provider"
	"github.com/spf13/viper"
)

const envPrefix = "ARGO_BACKTEST"

// Settings are the process level options of the CLI. They come from an
// optional settings file and ARGO_BACKTEST_ environment variables, e.g.
// ARGO_BACKTEST_POLYGON_API_KEY.
type Settings struct {
	LogLevel string `mapstructure:"log_level"`
	// CacheDir enables the on-disk bar cache for remote providers.
	CacheDir string                 `mapstructure:"cache_dir"`
	Workers  int                    `mapstructure:"workers"`
	Polygon  provider.PolygonConfig `mapstructure:"polygon"`
	Binance  provider.BinanceConfig `mapstructure:"binance"`
}

// LoadSettings reads the settings file at path, if any, under the environment.
func LoadSettings(path string) (Settings, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// defaults register the keys so that Unmarshal sees their env values
	v.SetDefault("log_level", "warn")
	v.SetDefault("cache_dir", "")
	v.SetDefault("workers", 0)
	v.SetDefault("polygon.api_key", "")
	v.SetDefault("binance.api_key", "")
	v.SetDefault("binance.secret_key", "")

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return Settings{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read settings %s", path)
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return Settings{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to decode settings", err)
	}

	return settings, nil
}

func (s Settings) providerConfig() provider.Config {
	return provider.Config{
		Polygon: s.Polygon,
		Binance: s.Binance,
	}
}
