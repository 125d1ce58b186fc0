package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptions_WithDefaults(t *testing.T) {
	in := Options{OptTemperature: 0.1}
	out := in.WithDefaults(DefaultOptions())

	assert.Equal(t, 0.1, out.Temperature())
	assert.Equal(t, DefaultMaxTokens, out.MaxTokens())
	assert.NotContains(t, in, OptMaxTokens, "caller map must not be mutated")
}

func TestOptions_MergeOverrideWins(t *testing.T) {
	instance := Options{OptTemperature: 0.3, OptMaxTokens: 100}
	call := Options{OptTemperature: 1.2}

	merged := instance.Merge(call)
	assert.Equal(t, 1.2, merged.Temperature())
	assert.Equal(t, 100, merged.MaxTokens())
	assert.Equal(t, 0.3, instance.Temperature())
}

func TestOptions_Coercion(t *testing.T) {
	o := Options{OptTemperature: "1.5", OptMaxTokens: "256", OptVerbose: "true"}

	assert.Equal(t, 1.5, o.Temperature())
	assert.Equal(t, 256, o.MaxTokens())
	assert.True(t, o.Bool(OptVerbose))

	bad := Options{OptTemperature: "warm"}
	assert.Equal(t, DefaultTemperature, bad.Temperature())
	_, set, err := bad.FloatE(OptTemperature)
	assert.True(t, set)
	assert.Error(t, err)
}

func TestOptions_NilIsEmpty(t *testing.T) {
	var o Options
	assert.False(t, o.Has(OptTemperature))
	assert.Equal(t, DefaultTemperature, o.Temperature())
	assert.NotNil(t, o.Clone())
}

func TestBase_ResolveOptions(t *testing.T) {
	caps := Capabilities{Name: "x", DefaultModel: "x-1", Models: []string{"x-1"}}
	b := NewBase(caps, Config{Options: Options{OptTemperature: 0.2}})

	assert.Equal(t, "x-1", b.Model())
	got := b.ResolveOptions(Options{OptMaxTokens: 64})
	assert.Equal(t, 0.2, got.Temperature())
	assert.Equal(t, 64, got.MaxTokens())
}

func TestBase_Explicit(t *testing.T) {
	caps := Capabilities{Name: "x", DefaultModel: "x-1"}
	b := NewBase(caps, Config{Options: Options{OptTemperature: 0.2}})

	assert.True(t, b.Explicit(nil, OptTemperature), "instance option")
	assert.True(t, b.Explicit(Options{OptMaxTokens: 10}, OptMaxTokens), "call option")
	assert.False(t, b.Explicit(nil, OptMaxTokens), "defaults do not count")
	assert.False(t, b.Explicit(Options{OptMaxTokens: nil}, OptMaxTokens))
}
