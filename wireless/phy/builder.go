package phy

import (
	"fmt"
	"log"

	"github.com/sarchlab/wlansim/sim/hooking"
	"github.com/sarchlab/wlansim/sim/timing"
	"github.com/sarchlab/wlansim/wireless"
)

// Builder can build radios.
type Builder struct {
	engine   timing.EventScheduler
	config   Config
	position wireless.Vector
	channel  *Channel
}

// MakeBuilder creates a builder with the default configuration.
func MakeBuilder() Builder {
	return Builder{
		config: DefaultConfig(),
	}
}

// WithEngine sets the engine that drives the radio.
func (b Builder) WithEngine(engine timing.EventScheduler) Builder {
	b.engine = engine
	return b
}

// WithConfig sets the radio parameters.
func (b Builder) WithConfig(config Config) Builder {
	b.config = config
	return b
}

// WithPosition sets where the radio is.
func (b Builder) WithPosition(v wireless.Vector) Builder {
	b.position = v
	return b
}

// WithChannel attaches the radio to a channel when it is built.
func (b Builder) WithChannel(c *Channel) Builder {
	b.channel = c
	return b
}

// Build creates a radio for the given device.
func (b Builder) Build(id wireless.NodeID) *Phy {
	b.parametersMustBeValid()

	p := &Phy{
		HookableBase: *hooking.NewHookableBase(),
		id:           id,
		name:         fmt.Sprintf("%s.Phy", id),
		engine:       b.engine,
		config:       b.config,
		position:     b.position,
	}

	if b.channel != nil {
		b.channel.Attach(p)
	}

	return p
}

func (b Builder) parametersMustBeValid() {
	if b.engine == nil {
		log.Panic("engine of a radio is not set")
	}

	if err := b.config.Validate(); err != nil {
		log.Panic(err)
	}
}
