package llm

import (
	"maps"

	"github.com/spf13/cast"
)

// Recognized option keys.
const (
	OptTemperature = "temperature"
	OptMaxTokens   = "max_tokens"
	OptVerbose     = "verbose"
)

// Default option values applied by NormalizeOptions.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 4096
)

// Options is a loosely typed option set. Values may arrive as strings from
// flags or environment and are coerced on read.
type Options map[string]any

// DefaultOptions returns the backend defaults.
func DefaultOptions() Options {
	return Options{
		OptTemperature: DefaultTemperature,
		OptMaxTokens:   DefaultMaxTokens,
	}
}

// Clone returns a shallow copy. A nil receiver yields an empty map.
func (o Options) Clone() Options {
	out := make(Options, len(o))
	maps.Copy(out, o)
	return out
}

// Merge returns a new set with override taking precedence over o.
func (o Options) Merge(override Options) Options {
	out := o.Clone()
	maps.Copy(out, override)
	return out
}

// WithDefaults returns a copy of o with missing or nil keys taken from defaults.
func (o Options) WithDefaults(defaults Options) Options {
	out := o.Clone()
	for k, v := range defaults {
		if cur, ok := out[k]; !ok || cur == nil {
			out[k] = v
		}
	}
	return out
}

// Has reports whether key is set to a non-nil value.
func (o Options) Has(key string) bool {
	v, ok := o[key]
	return ok && v != nil
}

// Float returns key as float64, or def when unset or not coercible.
func (o Options) Float(key string, def float64) float64 {
	if !o.Has(key) {
		return def
	}
	f, err := cast.ToFloat64E(o[key])
	if err != nil {
		return def
	}
	return f
}

// FloatE returns key as float64 and reports coercion failures.
func (o Options) FloatE(key string) (float64, bool, error) {
	if !o.Has(key) {
		return 0, false, nil
	}
	f, err := cast.ToFloat64E(o[key])
	return f, true, err
}

// Int returns key as int, or def when unset or not coercible.
func (o Options) Int(key string, def int) int {
	if !o.Has(key) {
		return def
	}
	i, err := cast.ToIntE(o[key])
	if err != nil {
		return def
	}
	return i
}

// Bool returns key as bool; unset or invalid values are false.
func (o Options) Bool(key string) bool {
	return cast.ToBool(o[key])
}

// Temperature returns the temperature option with the package default.
func (o Options) Temperature() float64 {
	return o.Float(OptTemperature, DefaultTemperature)
}

// MaxTokens returns the max_tokens option with the package default.
func (o Options) MaxTokens() int {
	return o.Int(OptMaxTokens, DefaultMaxTokens)
}
