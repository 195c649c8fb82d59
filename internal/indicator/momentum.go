package indicator

import "github.com/markcheno/go-talib"

// Momentum indicators: RSI, STOCH, CCI.

// RSI is the relative strength index (Wilder smoothing); warm-up is period
// bars.
type RSI struct{}

func (RSI) Kind() string                 { return "RSI" }
func (RSI) Channels() ChannelSet         { return CloseOnly }
func (RSI) Defaults() map[string]float64 { return map[string]float64{"period": 14} }

func (RSI) Compute(in Inputs, params map[string]float64) (map[string][]float64, error) {
	period, err := intParam(params, "period")
	if err != nil {
		return nil, err
	}
	lookback := period
	if lookback >= len(in.Close) {
		return map[string][]float64{"values": nanSeries(len(in.Close))}, nil
	}
	out := markWarmup(talib.Rsi(in.Close, period), lookback)
	return map[string][]float64{"values": out}, nil
}

// STOCH is the slow stochastic oscillator (%K smoothed over 3 bars, %D over
// d_period bars).
type STOCH struct{}

func (STOCH) Kind() string         { return "STOCH" }
func (STOCH) Channels() ChannelSet { return HighLowClose }
func (STOCH) Defaults() map[string]float64 {
	return map[string]float64{"k_period": 14, "d_period": 3}
}

func (STOCH) Compute(in Inputs, params map[string]float64) (map[string][]float64, error) {
	kPeriod, err := intParam(params, "k_period")
	if err != nil {
		return nil, err
	}
	dPeriod, err := intParam(params, "d_period")
	if err != nil {
		return nil, err
	}
	const slowKPeriod = 3
	lookback := (kPeriod - 1) + (slowKPeriod - 1) + (dPeriod - 1)
	n := len(in.Close)
	if lookback >= n {
		return map[string][]float64{"k": nanSeries(n), "d": nanSeries(n)}, nil
	}
	slowK, slowD := talib.Stoch(in.High, in.Low, in.Close, kPeriod, slowKPeriod, talib.SMA, dPeriod, talib.SMA)
	return map[string][]float64{
		"k": markWarmup(slowK, lookback),
		"d": markWarmup(slowD, lookback),
	}, nil
}

// CCI is the commodity channel index over the typical price.
type CCI struct{}

func (CCI) Kind() string                 { return "CCI" }
func (CCI) Channels() ChannelSet         { return HighLowClose }
func (CCI) Defaults() map[string]float64 { return map[string]float64{"period": 14} }

func (CCI) Compute(in Inputs, params map[string]float64) (map[string][]float64, error) {
	period, err := intParam(params, "period")
	if err != nil {
		return nil, err
	}
	lookback := period - 1
	if lookback >= len(in.Close) {
		return map[string][]float64{"values": nanSeries(len(in.Close))}, nil
	}
	out := markWarmup(talib.Cci(in.High, in.Low, in.Close, period), lookback)
	return map[string][]float64{"values": out}, nil
}
