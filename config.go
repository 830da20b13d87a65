// Copyright (c) 2025 The Lucien Authors
// SPDX-License-Identifier: MIT

package lucien

import "go.uber.org/zap"

// SubdivisionPreset names one of the three fixed policy presets §4.3
// defines: min-entities-for-split / target-capacity (MaxEntitiesPerNode),
// fillFactorThreshold, largeEntityFractionThreshold, plus the two
// defaults §4.3 gives a single value for regardless of preset:
// overload-factor (rule 4) and spanning-threshold (rule 6).
type SubdivisionPreset struct {
	MaxEntitiesPerNode  int
	FillFactorThreshold float64
	LargeEntityFraction float64
	OverloadMultiplier  float64
	SpanningThreshold   float64
}

// defaultOverloadMultiplier and defaultSpanningThreshold are §4.3's
// rule-4 and rule-6 constants; they do not vary across presets.
const (
	defaultOverloadMultiplier = 2.5
	defaultSpanningThreshold  = 0.5
)

// Balanced is the general-purpose subdivision preset (§4.3).
var Balanced = SubdivisionPreset{
	MaxEntitiesPerNode:  4,
	FillFactorThreshold: 0.75,
	LargeEntityFraction: 0.5,
	OverloadMultiplier:  defaultOverloadMultiplier,
	SpanningThreshold:   defaultSpanningThreshold,
}

// DensePointClouds favors deeper trees for point-like data (§4.3).
var DensePointClouds = SubdivisionPreset{
	MaxEntitiesPerNode:  8,
	FillFactorThreshold: 0.9,
	LargeEntityFraction: 0.1,
	OverloadMultiplier:  defaultOverloadMultiplier,
	SpanningThreshold:   defaultSpanningThreshold,
}

// LargeEntities favors shallower trees when entities tend to span many
// cells (§4.3).
var LargeEntities = SubdivisionPreset{
	MaxEntitiesPerNode:  2,
	FillFactorThreshold: 0.5,
	LargeEntityFraction: 0.7,
	OverloadMultiplier:  defaultOverloadMultiplier,
	SpanningThreshold:   defaultSpanningThreshold,
}

// Config configures an Index. The zero value is not ready to use;
// construct via DefaultConfig or one of the named preset constructors,
// then apply Options.
type Config struct {
	Preset        SubdivisionPreset
	MaxLevel      uint8
	KNNCacheSize  int
	Logger        *zap.Logger
}

// Option configures a Config, the functional-options idiom used
// throughout the ambient stack this module was grounded against.
type Option func(*Config)

// WithMaxLevel overrides the deepest level the index will subdivide to.
func WithMaxLevel(level uint8) Option {
	return func(c *Config) { c.MaxLevel = level }
}

// WithKNNCacheSize sets the LRU capacity of the k-NN result cache (§4.6).
func WithKNNCacheSize(n int) Option {
	return func(c *Config) { c.KNNCacheSize = n }
}

// WithLogger injects a zap logger; the default is a no-op logger, so
// passing nil here is a no-op, not a crash.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithPreset overrides the subdivision preset in effect.
func WithPreset(p SubdivisionPreset) Option {
	return func(c *Config) { c.Preset = p }
}

func newConfig(preset SubdivisionPreset, opts ...Option) Config {
	c := Config{
		Preset:       preset,
		MaxLevel:     21,
		KNNCacheSize: 1024,
		Logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// DefaultConfig returns the Balanced preset with library defaults.
func DefaultConfig(opts ...Option) Config { return newConfig(Balanced, opts...) }

// BalancedConfig is an explicit alias of DefaultConfig.
func BalancedConfig(opts ...Option) Config { return newConfig(Balanced, opts...) }

// DensePointCloudsConfig configures an Index for dense point-cloud data.
func DensePointCloudsConfig(opts ...Option) Config { return newConfig(DensePointClouds, opts...) }

// LargeEntitiesConfig configures an Index for large, widely spanning
// entities.
func LargeEntitiesConfig(opts ...Option) Config { return newConfig(LargeEntities, opts...) }
