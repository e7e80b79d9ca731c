package engine

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"gopkg.in/yaml.v3"
)

const maxCommissionRate = 0.1

var configValidator = validator.New()

type BacktestEngineV1Config struct {
	Symbols  []string       `yaml:"symbols" json:"symbols" jsonschema:"title=Symbols,description=Symbols to replay,minItems=1" validate:"required,min=1,dive,required"`
	Interval types.Interval `yaml:"interval" json:"interval" jsonschema:"title=Interval,description=Bar width of the historical series,default=1d"`
	// StartTime and EndTime bound the replay. Bars with start <= open time <= end are replayed.
	StartTime      optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional start time for the backtest period"`
	EndTime        optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional end time for the backtest period"`
	InitialCapital float64                    `yaml:"initial_capital" json:"initial_capital" jsonschema:"title=Initial Capital,description=Starting capital for the backtest in USD,minimum=0,default=100000"`
	CommissionRate float64                    `yaml:"commission_rate" json:"commission_rate" jsonschema:"title=Commission Rate,description=Fraction of notional charged per fill by the rate broker,minimum=0,maximum=0.1,default=0.001"`
	Broker         commission_fee.Broker      `yaml:"broker" json:"broker" jsonschema:"title=Broker,description=The broker to use for commission calculations"`
	// MaxPositionSize is the largest order notional as a fraction of total equity.
	MaxPositionSize  float64 `yaml:"max_position_size" json:"max_position_size" jsonschema:"title=Max Position Size,description=Largest order notional as a fraction of equity,exclusiveMinimum=0,maximum=1,default=1" validate:"gt=0,lte=1"`
	AllowShort       bool    `yaml:"allow_short" json:"allow_short" jsonschema:"title=Allow Short,description=Open a short position on a SELL signal while flat"`
	AllowPyramiding  bool    `yaml:"allow_pyramiding" json:"allow_pyramiding" jsonschema:"title=Allow Pyramiding,description=Add to an open position on a same-direction signal"`
	DecimalPrecision int     `yaml:"decimal_precision" json:"decimal_precision" jsonschema:"title=Decimal Precision,description=Number of decimal places order quantities are rounded down to,minimum=0,maximum=8,default=4" validate:"gte=0,lte=8"`
	VarConfidence    float64 `yaml:"var_confidence" json:"var_confidence" jsonschema:"title=VaR Confidence,description=Confidence level of the value at risk,exclusiveMinimum=0,exclusiveMaximum=1,default=0.95" validate:"gt=0,lt=1"`
	// BenchmarkSymbol defaults to the first symbol.
	BenchmarkSymbol string `yaml:"benchmark_symbol" json:"benchmark_symbol" jsonschema:"title=Benchmark Symbol,description=Symbol used for buy and hold return and alpha/beta"`
	ResultsFolder   string `yaml:"results_folder" json:"results_folder" jsonschema:"title=Results Folder,description=Optional folder the run archive is written to"`
}

// UnmarshalYAML implements custom unmarshaling for BacktestEngineV1Config.
// Fields missing from the document keep their current values.
func (c *BacktestEngineV1Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type Config struct {
		Symbols          []string              `yaml:"symbols"`
		Interval         types.Interval        `yaml:"interval"`
		StartTime        *time.Time            `yaml:"start_time"`
		EndTime          *time.Time            `yaml:"end_time"`
		InitialCapital   float64               `yaml:"initial_capital"`
		CommissionRate   float64               `yaml:"commission_rate"`
		Broker           commission_fee.Broker `yaml:"broker"`
		MaxPositionSize  float64               `yaml:"max_position_size"`
		AllowShort       bool                  `yaml:"allow_short"`
		AllowPyramiding  bool                  `yaml:"allow_pyramiding"`
		DecimalPrecision int                   `yaml:"decimal_precision"`
		VarConfidence    float64               `yaml:"var_confidence"`
		BenchmarkSymbol  string                `yaml:"benchmark_symbol"`
		ResultsFolder    string                `yaml:"results_folder"`
	}

	config := Config{
		Symbols:          c.Symbols,
		Interval:         c.Interval,
		InitialCapital:   c.InitialCapital,
		CommissionRate:   c.CommissionRate,
		Broker:           c.Broker,
		MaxPositionSize:  c.MaxPositionSize,
		AllowShort:       c.AllowShort,
		AllowPyramiding:  c.AllowPyramiding,
		DecimalPrecision: c.DecimalPrecision,
		VarConfidence:    c.VarConfidence,
		BenchmarkSymbol:  c.BenchmarkSymbol,
		ResultsFolder:    c.ResultsFolder,
	}

	if err := unmarshal(&config); err != nil {
		return err
	}

	c.Symbols = config.Symbols
	c.Interval = config.Interval
	c.InitialCapital = config.InitialCapital
	c.CommissionRate = config.CommissionRate
	c.Broker = config.Broker
	c.MaxPositionSize = config.MaxPositionSize
	c.AllowShort = config.AllowShort
	c.AllowPyramiding = config.AllowPyramiding
	c.DecimalPrecision = config.DecimalPrecision
	c.VarConfidence = config.VarConfidence
	c.BenchmarkSymbol = config.BenchmarkSymbol
	c.ResultsFolder = config.ResultsFolder

	if config.StartTime != nil {
		c.StartTime = optional.Some(*config.StartTime)
	}

	if config.EndTime != nil {
		c.EndTime = optional.Some(*config.EndTime)
	}

	return nil
}

// LoadConfig parses a YAML document on top of DefaultConfig and validates it.
func LoadConfig(content string) (BacktestEngineV1Config, error) {
	config := DefaultConfig()

	if err := yaml.Unmarshal([]byte(content), &config); err != nil {
		return BacktestEngineV1Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	if err := config.Validate(); err != nil {
		return BacktestEngineV1Config{}, err
	}

	return config, nil
}

// Validate returns a configuration error for the first violated rule.
func (c BacktestEngineV1Config) Validate() error {
	if len(c.Symbols) == 0 {
		return errors.New(errors.ErrCodeNoSymbols, "at least one symbol is required")
	}

	if c.StartTime.IsSome() && c.EndTime.IsSome() && !c.StartTime.Unwrap().Before(c.EndTime.Unwrap()) {
		return errors.Newf(errors.ErrCodeInvalidDateRange, "start time %s must be before end time %s",
			c.StartTime.Unwrap().Format(time.RFC3339), c.EndTime.Unwrap().Format(time.RFC3339))
	}

	if c.InitialCapital <= 0 {
		return errors.Newf(errors.ErrCodeInvalidCapital, "initial capital must be positive, got %.2f", c.InitialCapital)
	}

	if c.CommissionRate < 0 || c.CommissionRate > maxCommissionRate {
		return errors.Newf(errors.ErrCodeInvalidCommission, "commission rate must be in [0, %.1f], got %f", maxCommissionRate, c.CommissionRate)
	}

	if !c.Interval.IsValid() {
		return errors.Newf(errors.ErrCodeInvalidInterval, "unsupported interval %q", c.Interval)
	}

	if !c.Broker.IsValid() {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "unsupported broker %q", c.Broker)
	}

	if err := configValidator.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	return nil
}

// Benchmark returns the benchmark symbol, defaulting to the first symbol.
func (c BacktestEngineV1Config) Benchmark() string {
	if c.BenchmarkSymbol != "" {
		return c.BenchmarkSymbol
	}

	if len(c.Symbols) == 0 {
		return ""
	}

	return c.Symbols[0]
}

// GenerateSchema generates a JSON schema for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}

			if strings.Contains(t.String(), "commission_fee.Broker") {
				return &jsonschema.Schema{
					Type: "string",
					Enum: commission_fee.AllBrokers,
				}
			}

			if t.String() == "types.Interval" {
				return &jsonschema.Schema{
					Type: "string",
					Enum: types.AllIntervals,
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)

	schema.Title = "backtest-engine-v1-config"
	schema.Description = "Configuration schema for BacktestEngineV1"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

// DefaultConfig returns a BacktestEngineV1Config with default values and no symbols.
func DefaultConfig() BacktestEngineV1Config {
	return BacktestEngineV1Config{
		Symbols:          nil,
		Interval:         types.Interval1d,
		StartTime:        optional.None[time.Time](),
		EndTime:          optional.None[time.Time](),
		InitialCapital:   100000,
		CommissionRate:   0.001,
		Broker:           commission_fee.BrokerRate,
		MaxPositionSize:  1.0,
		AllowShort:       false,
		AllowPyramiding:  false,
		DecimalPrecision: 4,
		VarConfidence:    0.95,
		BenchmarkSymbol:  "",
		ResultsFolder:    "",
	}
}

// TestConfig returns a valid single-symbol config for tests.
func TestConfig(symbol string, startTime time.Time, endTime time.Time) BacktestEngineV1Config {
	config := DefaultConfig()
	config.Symbols = []string{symbol}
	config.StartTime = optional.Some(startTime)
	config.EndTime = optional.Some(endTime)

	return config
}
