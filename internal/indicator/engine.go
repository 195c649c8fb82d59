package indicator

import (
	"fmt"
	"strings"
)

// Engine routes indicator requests to registered implementations. The
// registry is built once at startup and read-only afterwards, so an Engine
// is safe for concurrent use.
type Engine struct {
	registry map[string]Indicator
}

// NewEngine builds an engine with the full built-in indicator set.
func NewEngine() *Engine {
	registry := make(map[string]Indicator)
	for _, ind := range []Indicator{
		SMA{}, EMA{}, MACD{}, ADX{},
		RSI{}, STOCH{}, CCI{},
		BBANDS{}, ATR{},
		OBV{},
	} {
		registry[ind.Kind()] = ind
	}
	return &Engine{registry: registry}
}

// Functions returns the registered function names, unordered.
func (e *Engine) Functions() []string {
	names := make([]string, 0, len(e.registry))
	for name := range e.registry {
		names = append(names, name)
	}
	return names
}

// Compute runs one indicator identified by key over the inputs. The function
// name comes from cfg.Function, falling back to the key itself; matching is
// case-insensitive. Default parameters are overlaid with cfg.Params.
//
// Channels the indicator does not require are ignored even when supplied;
// channels it does require must be present and aligned with Close.
func (e *Engine) Compute(key string, cfg Config, in Inputs) (Result, error) {
	fn := cfg.Function
	if fn == "" {
		fn = key
	}
	ind, ok := e.registry[strings.ToUpper(fn)]
	if !ok {
		return nil, &ConfigError{Key: key, Reason: fmt.Sprintf("unknown indicator %q", fn)}
	}

	if err := validateChannels(key, ind.Channels(), in); err != nil {
		return nil, err
	}

	params := make(map[string]float64, len(ind.Defaults())+len(cfg.Params))
	for name, v := range ind.Defaults() {
		params[name] = v
	}
	for name, v := range cfg.Params {
		params[name] = v
	}

	raw, err := ind.Compute(in, params)
	if err != nil {
		return nil, &ComputeError{Key: key, Err: err}
	}

	result := make(Result, len(raw))
	for name, series := range raw {
		result[name] = sanitize(series)
	}
	return result, nil
}

// ComputeMany runs every configured indicator over the same inputs and
// isolates failures per key: one bad indicator never aborts the rest. The
// batch as a whole succeeded iff the returned error map is empty.
func (e *Engine) ComputeMany(in Inputs, specs map[string]Config) (map[string]Result, map[string]error) {
	results := make(map[string]Result, len(specs))
	errs := make(map[string]error)

	for key, cfg := range specs {
		result, err := e.Compute(key, cfg, in)
		if err != nil {
			errs[key] = err
			continue
		}
		results[key] = result
	}
	return results, errs
}

func validateChannels(key string, required ChannelSet, in Inputs) error {
	n := len(in.Close)
	if n == 0 {
		return &ConfigError{Key: key, Reason: "empty close series"}
	}

	switch required {
	case HighLowClose:
		if len(in.High) == 0 {
			return &ConfigError{Key: key, Reason: "missing required channel: high"}
		}
		if len(in.Low) == 0 {
			return &ConfigError{Key: key, Reason: "missing required channel: low"}
		}
		if len(in.High) != n || len(in.Low) != n {
			return &ConfigError{Key: key, Reason: fmt.Sprintf(
				"misaligned channels: high=%d low=%d close=%d", len(in.High), len(in.Low), n)}
		}
	case CloseVolume:
		if len(in.Volume) == 0 {
			return &ConfigError{Key: key, Reason: "missing required channel: volume"}
		}
		if len(in.Volume) != n {
			return &ConfigError{Key: key, Reason: fmt.Sprintf(
				"misaligned channels: volume=%d close=%d", len(in.Volume), n)}
		}
	}
	return nil
}

// DefaultSpecs is the configured indicator universe computed over stored
// bars. Keys are presentation names; functions and parameters follow the
// product defaults.
func DefaultSpecs() map[string]Config {
	return map[string]Config{
		"EMA9":     {Function: "EMA", Params: map[string]float64{"period": 9}},
		"SMA20":    {Function: "SMA", Params: map[string]float64{"period": 20}},
		"RSI14":    {Function: "RSI", Params: map[string]float64{"period": 14}},
		"MACD":     {Function: "MACD", Params: map[string]float64{"fast": 12, "slow": 26, "signal": 9}},
		"BBANDS20": {Function: "BBANDS", Params: map[string]float64{"period": 20, "stddev": 2}},
		"ATR14":    {Function: "ATR", Params: map[string]float64{"period": 14}},
		"OBV":      {Function: "OBV"},
	}
}
