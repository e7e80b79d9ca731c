// Package commission_fee holds the fee models a simulated fill is charged with.
package commission_fee

// CommissionFee prices one fill.
type CommissionFee interface {
	// Calculate returns the commission in quote currency for filling quantity units at price.
	// Non-positive quantities cost nothing.
	Calculate(quantity float64, price float64) float64
}

type Broker string

const (
	// BrokerRate charges a fixed fraction of the traded notional.
	BrokerRate              Broker = "rate"
	BrokerInteractiveBroker Broker = "interactive_broker"
	BrokerZero              Broker = "zero_commission"
)

// AllBrokers is the schema enum of Broker.
var AllBrokers = []any{
	BrokerRate,
	BrokerInteractiveBroker,
	BrokerZero,
}

func (b Broker) IsValid() bool {
	switch b {
	case BrokerRate, BrokerInteractiveBroker, BrokerZero:
		return true
	default:
		return false
	}
}

// GetCommissionFeeHandler returns the fee model for broker. rate is only
// used by BrokerRate; an empty broker means BrokerRate.
func GetCommissionFeeHandler(broker Broker, rate float64) CommissionFee {
	switch broker {
	case BrokerInteractiveBroker:
		return NewInteractiveBrokerCommissionFee()
	case BrokerZero:
		return ZeroCommissionFee{}
	default:
		return NewRateCommissionFee(rate)
	}
}

// ZeroCommissionFee never charges.
type ZeroCommissionFee struct{}

func (ZeroCommissionFee) Calculate(_ float64, _ float64) float64 {
	return 0
}
