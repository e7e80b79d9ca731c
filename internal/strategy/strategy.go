// Package strategy holds the signal generators the engine can run. Every
// strategy is a pure function of the MarketData view it is handed, so one
// instance can be reused across runs without leaking state.
package strategy

import (
	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/rxtech-lab/argo-backtest/pkg/utils"
	"gopkg.in/yaml.v3"
)

// Strategy turns the bars seen so far into at most one signal.
type Strategy interface {
	// Name identifies the strategy in results.
	Name() string
	// GenerateSignal is called once per bar per symbol. data.Bars must not be modified.
	GenerateSignal(data types.MarketData) (optional.Option[types.Signal], error)
}

// Kind tags the strategy variants New can build.
type Kind string

const (
	KindMovingAverageCrossover Kind = "sma_crossover"
	KindRSIReversion           Kind = "rsi_reversion"
	KindBuyAndHold             Kind = "buy_and_hold"
	KindNull                   Kind = "null"
)

var AllKinds = []Kind{KindMovingAverageCrossover, KindRSIReversion, KindBuyAndHold, KindNull}

// Params is the loosely typed parameter set coming from config files, CLI
// flags and sweep grids.
type Params map[string]any

var validate = validator.New()

// New builds the strategy variant for kind, applying params over its defaults.
func New(kind Kind, params Params) (Strategy, error) {
	switch kind {
	case KindMovingAverageCrossover:
		p := DefaultMovingAverageParams()
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}

		return NewMovingAverageCrossover(p)
	case KindRSIReversion:
		p := DefaultRSIParams()
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}

		return NewRSIReversion(p)
	case KindBuyAndHold:
		p := BuyAndHoldParams{}
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}

		return NewBuyAndHold(p), nil
	case KindNull:
		return NewNull(), nil
	default:
		return nil, errors.Newf(errors.ErrCodeUnsupportedStrategy, "unsupported strategy %q", kind)
	}
}

// ParamsSchema returns the JSON schema of the parameters of kind.
func ParamsSchema(kind Kind) (string, error) {
	switch kind {
	case KindMovingAverageCrossover:
		return toJSONSchema(DefaultMovingAverageParams())
	case KindRSIReversion:
		return toJSONSchema(DefaultRSIParams())
	case KindBuyAndHold:
		return toJSONSchema(BuyAndHoldParams{})
	case KindNull:
		return toJSONSchema(struct{}{})
	default:
		return "", errors.Newf(errors.ErrCodeUnsupportedStrategy, "unsupported strategy %q", kind)
	}
}

// decodeParams round-trips params through YAML into target so that tags and
// defaults on the params struct apply.
func decodeParams(params Params, target any) error {
	if len(params) > 0 {
		raw, err := yaml.Marshal(map[string]any(params))
		if err != nil {
			return errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to encode strategy params", err)
		}

		if err := yaml.Unmarshal(raw, target); err != nil {
			return errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to decode strategy params", err)
		}
	}

	if err := validate.Struct(target); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid strategy params", err)
	}

	return nil
}

func toJSONSchema[T any](t T) (string, error) {
	schema, err := utils.InlineSchema(t)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to generate params schema", err)
	}

	return schema, nil
}

// protectiveLevels returns stop-loss and take-profit prices around price for
// a position opened on side. A zero percentage disables the level.
func protectiveLevels(side types.PurchaseType, price, stopLossPct, takeProfitPct float64) (optional.Option[float64], optional.Option[float64]) {
	stop, take := optional.None[float64](), optional.None[float64]()

	if stopLossPct > 0 {
		stop = optional.Some(price * (1 - side.Sign()*stopLossPct))
	}

	if takeProfitPct > 0 {
		take = optional.Some(price * (1 + side.Sign()*takeProfitPct))
	}

	return stop, take
}
