package provider

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/rxtech-lab/argo-backtest/pkg/utils"
)

var validate = validator.New()

// PolygonConfig contains configuration for Polygon.io aggregates.
type PolygonConfig struct {
	APIKey string `json:"apiKey" yaml:"api_key" mapstructure:"api_key" jsonschema:"title=API Key,description=Polygon.io API key for authentication,required" validate:"required"`
}

// BinanceConfig contains configuration for Binance klines. Public market
// data needs no keys.
type BinanceConfig struct {
	APIKey    string `json:"apiKey" yaml:"api_key" mapstructure:"api_key" jsonschema:"title=API Key,description=Optional Binance API key"`
	SecretKey string `json:"secretKey" yaml:"secret_key" mapstructure:"secret_key" jsonschema:"title=Secret Key,description=Optional Binance secret key" validate:"required_with=APIKey"`
}

// Config holds the settings of every provider.
type Config struct {
	Polygon PolygonConfig `json:"polygon" yaml:"polygon" mapstructure:"polygon"`
	Binance BinanceConfig `json:"binance" yaml:"binance" mapstructure:"binance"`
}

func (c PolygonConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid polygon config", err)
	}

	return nil
}

func (c BinanceConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid binance config", err)
	}

	return nil
}

// ParseConfig parses a JSON configuration string for the given provider.
func ParseConfig(providerType ProviderType, jsonConfig string) (Config, error) {
	var config Config

	switch providerType {
	case ProviderPolygon:
		if err := json.Unmarshal([]byte(jsonConfig), &config.Polygon); err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse JSON config", err)
		}

		return config, config.Polygon.Validate()
	case ProviderBinance:
		if err := json.Unmarshal([]byte(jsonConfig), &config.Binance); err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse JSON config", err)
		}

		return config, config.Binance.Validate()
	default:
		return Config{}, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported market data provider: %s", providerType)
	}
}

// GetConfigSchema returns the JSON schema of the configuration of a provider.
func GetConfigSchema(providerType ProviderType) (string, error) {
	var target any

	switch providerType {
	case ProviderPolygon:
		target = PolygonConfig{}
	case ProviderBinance:
		target = BinanceConfig{}
	default:
		return "", errors.Newf(errors.ErrCodeInvalidProvider, "unsupported market data provider: %s", providerType)
	}

	schema, err := utils.InlineSchema(target)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to marshal schema", err)
	}

	return schema, nil
}
