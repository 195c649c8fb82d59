package indicator

import "github.com/markcheno/go-talib"

// Trend-following indicators: SMA, EMA, MACD, ADX.

// SMA is the simple moving average over the close series.
type SMA struct{}

func (SMA) Kind() string                 { return "SMA" }
func (SMA) Channels() ChannelSet         { return CloseOnly }
func (SMA) Defaults() map[string]float64 { return map[string]float64{"period": 20} }

func (SMA) Compute(in Inputs, params map[string]float64) (map[string][]float64, error) {
	period, err := intParam(params, "period")
	if err != nil {
		return nil, err
	}
	lookback := period - 1
	if lookback >= len(in.Close) {
		return map[string][]float64{"values": nanSeries(len(in.Close))}, nil
	}
	out := markWarmup(talib.Sma(in.Close, period), lookback)
	return map[string][]float64{"values": out}, nil
}

// EMA is the exponential moving average, seeded with an SMA of the first
// period values, multiplier 2/(period+1).
type EMA struct{}

func (EMA) Kind() string                 { return "EMA" }
func (EMA) Channels() ChannelSet         { return CloseOnly }
func (EMA) Defaults() map[string]float64 { return map[string]float64{"period": 20} }

func (EMA) Compute(in Inputs, params map[string]float64) (map[string][]float64, error) {
	period, err := intParam(params, "period")
	if err != nil {
		return nil, err
	}
	lookback := period - 1
	if lookback >= len(in.Close) {
		return map[string][]float64{"values": nanSeries(len(in.Close))}, nil
	}
	out := markWarmup(talib.Ema(in.Close, period), lookback)
	return map[string][]float64{"values": out}, nil
}

// MACD produces the macd line, its signal line, and the histogram. All three
// outputs share the same warm-up: (slow-1) + (signal-1) bars.
type MACD struct{}

func (MACD) Kind() string         { return "MACD" }
func (MACD) Channels() ChannelSet { return CloseOnly }
func (MACD) Defaults() map[string]float64 {
	return map[string]float64{"fast": 12, "slow": 26, "signal": 9}
}

func (MACD) Compute(in Inputs, params map[string]float64) (map[string][]float64, error) {
	fast, err := intParam(params, "fast")
	if err != nil {
		return nil, err
	}
	slow, err := intParam(params, "slow")
	if err != nil {
		return nil, err
	}
	signal, err := intParam(params, "signal")
	if err != nil {
		return nil, err
	}
	lookback := (slow - 1) + (signal - 1)
	n := len(in.Close)
	if lookback >= n {
		return map[string][]float64{
			"macd": nanSeries(n), "signal": nanSeries(n), "histogram": nanSeries(n),
		}, nil
	}
	macd, signalLine, histogram := talib.Macd(in.Close, fast, slow, signal)
	return map[string][]float64{
		"macd":      markWarmup(macd, lookback),
		"signal":    markWarmup(signalLine, lookback),
		"histogram": markWarmup(histogram, lookback),
	}, nil
}

// ADX is the average directional movement index; warm-up is 2*period-1 bars.
type ADX struct{}

func (ADX) Kind() string                 { return "ADX" }
func (ADX) Channels() ChannelSet         { return HighLowClose }
func (ADX) Defaults() map[string]float64 { return map[string]float64{"period": 14} }

func (ADX) Compute(in Inputs, params map[string]float64) (map[string][]float64, error) {
	period, err := intParam(params, "period")
	if err != nil {
		return nil, err
	}
	lookback := 2*period - 1
	if lookback >= len(in.Close) {
		return map[string][]float64{"values": nanSeries(len(in.Close))}, nil
	}
	out := markWarmup(talib.Adx(in.High, in.Low, in.Close, period), lookback)
	return map[string][]float64{"values": out}, nil
}
