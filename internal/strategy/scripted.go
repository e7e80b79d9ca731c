package strategy

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// ScriptedSignal is a signal emitted when a symbol reaches bar Index (0-based).
type ScriptedSignal struct {
	Symbol string
	Index  int
	Signal types.Signal
}

// Scripted replays a fixed list of signals. It is used for reproducible
// scenarios and for replaying decisions recorded elsewhere.
type Scripted struct {
	name    string
	signals map[string]map[int]types.Signal
}

func NewScripted(name string, script []ScriptedSignal) *Scripted {
	signals := make(map[string]map[int]types.Signal)

	for _, s := range script {
		if signals[s.Symbol] == nil {
			signals[s.Symbol] = make(map[int]types.Signal)
		}

		signal := s.Signal
		if signal.Symbol == "" {
			signal.Symbol = s.Symbol
		}

		signals[s.Symbol][s.Index] = signal
	}

	return &Scripted{name: name, signals: signals}
}

func (s *Scripted) Name() string {
	return s.name
}

func (s *Scripted) GenerateSignal(data types.MarketData) (optional.Option[types.Signal], error) {
	bySymbol, ok := s.signals[data.Symbol]
	if !ok {
		return optional.None[types.Signal](), nil
	}

	signal, ok := bySymbol[len(data.Bars)-1]
	if !ok {
		return optional.None[types.Signal](), nil
	}

	if signal.Time.IsZero() {
		signal.Time = data.Current().OpenTime
	}

	return optional.Some(signal), nil
}
