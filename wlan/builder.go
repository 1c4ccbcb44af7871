package wlan

import (
	"log"

	"github.com/sarchlab/wlansim/flowstats"
	"github.com/sarchlab/wlansim/sim/id"
	"github.com/sarchlab/wlansim/sim/timing"
	"github.com/sarchlab/wlansim/wireless"
	"github.com/sarchlab/wlansim/wireless/mac"
	"github.com/sarchlab/wlansim/wireless/phy"
	"github.com/sarchlab/wlansim/wireless/propagation"
)

// Builder can build networks.
type Builder struct {
	lossModel propagation.LossModel
	delay     propagation.DelayModel
	phyConfig phy.Config
	macConfig mac.Config
	seed      uint64
	logger    *log.Logger
}

// MakeBuilder creates a builder for networks that use log-distance loss and
// speed-of-light delay.
func MakeBuilder() Builder {
	return Builder{
		lossModel: propagation.NewLogDistanceModel(),
		delay:     propagation.NewConstantSpeedDelay(),
		phyConfig: phy.DefaultConfig(),
		macConfig: mac.DefaultConfig(),
		seed:      mac.DefaultSeed,
	}
}

// WithLossModel sets how signals fade between devices.
func (b Builder) WithLossModel(m propagation.LossModel) Builder {
	b.lossModel = m
	return b
}

// WithDelayModel sets how long signals take to travel.
func (b Builder) WithDelayModel(m propagation.DelayModel) Builder {
	b.delay = m
	return b
}

// WithPhyConfig sets the radio parameters of every device.
func (b Builder) WithPhyConfig(c phy.Config) Builder {
	b.phyConfig = c
	return b
}

// WithMacConfig sets the MAC parameters of every device.
func (b Builder) WithMacConfig(c mac.Config) Builder {
	b.macConfig = c
	return b
}

// WithSeed sets the seed of the random backoff of the devices. Networks
// built with the same seed and traffic produce the same statistics.
func (b Builder) WithSeed(seed uint64) Builder {
	b.seed = seed
	return b
}

// WithLogger makes the network print its events and radio activity.
func (b Builder) WithLogger(l *log.Logger) Builder {
	b.logger = l
	return b
}

// Build creates an empty network.
func (b Builder) Build() *Network {
	b.parametersMustBeValid()

	engine := timing.NewSerialEngine()

	n := &Network{
		engine:    engine,
		channel:   phy.NewChannel(engine, b.lossModel, b.delay),
		phyConfig: b.phyConfig,
		macConfig: b.macConfig,
		seed:      b.seed,
		frameIDs:  &id.Counter{},
		collector: flowstats.NewCollector(),
		airtime:   flowstats.NewAirtimeTracer(),
		windows:   make(map[wireless.FlowKey]window),
	}

	n.AcceptHook(n.collector)
	n.AcceptHook(n.airtime)

	if b.logger != nil {
		engine.AcceptHook(timing.NewEventLogger(b.logger))
		n.AcceptHook(NewTraceLogger(b.logger))
	}

	return n
}

func (b Builder) parametersMustBeValid() {
	if b.lossModel == nil {
		log.Panic("loss model of a network is not set")
	}

	if b.seed == 0 || b.seed > mac.MaxSeed {
		log.Panicf("seed of a network must be in [1, %d], got %d",
			mac.MaxSeed, b.seed)
	}

	if err := b.phyConfig.Validate(); err != nil {
		log.Panic(err)
	}

	if err := b.macConfig.Validate(); err != nil {
		log.Panic(err)
	}
}
