package strategy

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Null never trades.
type Null struct{}

func NewNull() *Null {
	return &Null{}
}

func (s *Null) Name() string {
	return "Null"
}

func (s *Null) GenerateSignal(_ types.MarketData) (optional.Option[types.Signal], error) {
	return optional.None[types.Signal](), nil
}
