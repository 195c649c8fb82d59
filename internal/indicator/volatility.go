package indicator

import "github.com/markcheno/go-talib"

// Volatility indicators: BBANDS, ATR.

// BBANDS produces upper/middle/lower Bollinger bands around an SMA.
type BBANDS struct{}

func (BBANDS) Kind() string         { return "BBANDS" }
func (BBANDS) Channels() ChannelSet { return CloseOnly }
func (BBANDS) Defaults() map[string]float64 {
	return map[string]float64{"period": 20, "stddev": 2}
}

func (BBANDS) Compute(in Inputs, params map[string]float64) (map[string][]float64, error) {
	period, err := intParam(params, "period")
	if err != nil {
		return nil, err
	}
	stddev, err := floatParam(params, "stddev")
	if err != nil {
		return nil, err
	}
	lookback := period - 1
	n := len(in.Close)
	if lookback >= n {
		return map[string][]float64{
			"upper": nanSeries(n), "middle": nanSeries(n), "lower": nanSeries(n),
		}, nil
	}
	upper, middle, lower := talib.BBands(in.Close, period, stddev, stddev, talib.SMA)
	return map[string][]float64{
		"upper":  markWarmup(upper, lookback),
		"middle": markWarmup(middle, lookback),
		"lower":  markWarmup(lower, lookback),
	}, nil
}

// ATR is the average true range; warm-up is period bars.
type ATR struct{}

func (ATR) Kind() string                 { return "ATR" }
func (ATR) Channels() ChannelSet         { return HighLowClose }
func (ATR) Defaults() map[string]float64 { return map[string]float64{"period": 14} }

func (ATR) Compute(in Inputs, params map[string]float64) (map[string][]float64, error) {
	period, err := intParam(params, "period")
	if err != nil {
		return nil, err
	}
	lookback := period
	if lookback >= len(in.Close) {
		return map[string][]float64{"values": nanSeries(len(in.Close))}, nil
	}
	out := markWarmup(talib.Atr(in.High, in.Low, in.Close, period), lookback)
	return map[string][]float64{"values": out}, nil
}
