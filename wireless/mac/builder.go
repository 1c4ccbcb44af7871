package mac

import (
	"fmt"
	"log"

	"github.com/iti/rngstream"

	"github.com/sarchlab/wlansim/sim/hooking"
	"github.com/sarchlab/wlansim/sim/id"
	"github.com/sarchlab/wlansim/sim/queueing"
	"github.com/sarchlab/wlansim/sim/timing"
	"github.com/sarchlab/wlansim/wireless"
	"github.com/sarchlab/wlansim/wireless/phy"
)

// Builder can build MACs.
type Builder struct {
	engine   timing.EventScheduler
	radio    Radio
	config   Config
	rng      RandomSource
	frameIDs *id.Counter
	receiver Receiver
	seed     uint64
}

// DefaultSeed seeds the backoff streams when no seed is given.
const DefaultSeed uint64 = 12345

// MaxSeed is the largest seed that a backoff stream accepts.
const MaxSeed uint64 = 4294944442

// MakeBuilder creates a builder with the default configuration.
func MakeBuilder() Builder {
	return Builder{
		config: DefaultConfig(),
		seed:   DefaultSeed,
	}
}

// WithEngine sets the engine that drives the MAC.
func (b Builder) WithEngine(engine timing.EventScheduler) Builder {
	b.engine = engine
	return b
}

// WithRadio sets the radio below the MAC. If the radio accepts a
// phy.Listener, the MAC registers itself.
func (b Builder) WithRadio(r Radio) Builder {
	b.radio = r
	return b
}

// WithConfig sets the MAC parameters.
func (b Builder) WithConfig(config Config) Builder {
	b.config = config
	return b
}

// WithRandomSource sets where backoff slots are drawn from. By default, each
// MAC gets its own stream.
func (b Builder) WithRandomSource(rng RandomSource) Builder {
	b.rng = rng
	return b
}

// WithSeed sets the seed of the default backoff stream. MACs built with the
// same seed and node ID draw the same slots.
func (b Builder) WithSeed(seed uint64) Builder {
	b.seed = seed
	return b
}

// WithFrameIDs shares a frame ID counter between MACs.
func (b Builder) WithFrameIDs(c *id.Counter) Builder {
	b.frameIDs = c
	return b
}

// WithReceiver sets where delivered frames go.
func (b Builder) WithReceiver(r Receiver) Builder {
	b.receiver = r
	return b
}

type listenerSetter interface {
	SetListener(l phy.Listener)
}

// Build creates a MAC for the given device.
func (b Builder) Build(nodeID wireless.NodeID) *Mac {
	b.parametersMustBeValid()

	name := fmt.Sprintf("%s.Mac", nodeID)

	m := &Mac{
		HookableBase: *hooking.NewHookableBase(),
		id:           nodeID,
		name:         name,
		engine:       b.engine,
		radio:        b.radio,
		config:       b.config,
		rng:          b.rng,
		frameIDs:     b.frameIDs,
		receiver:     b.receiver,
		cw:           b.config.CwMin,
		lastSeq:      make(map[wireless.NodeID]uint64),
	}

	if m.rng == nil {
		m.rng = NewRandomStream(b.seed, nodeID)
	}

	if m.frameIDs == nil {
		m.frameIDs = &id.Counter{}
	}

	m.queue = queueing.MakeBufferBuilder().
		WithTimeTeller(b.engine).
		WithCapacity(b.config.QueueCapacity).
		Build(name + ".Queue")

	if s, ok := b.radio.(listenerSetter); ok {
		s.SetListener(m)
	}

	return m
}

func (b Builder) parametersMustBeValid() {
	if b.engine == nil {
		log.Panic("engine of a mac is not set")
	}

	if b.radio == nil {
		log.Panic("radio of a mac is not set")
	}

	if b.rng == nil && (b.seed == 0 || b.seed > MaxSeed) {
		log.Panicf("seed of a mac must be in [1, %d], got %d", MaxSeed, b.seed)
	}

	if err := b.config.Validate(); err != nil {
		log.Panic(err)
	}
}

// NewRandomStream creates the backoff stream of a device. The stream only
// depends on the seed and the node ID; every node gets its own substream.
func NewRandomStream(seed uint64, nodeID wireless.NodeID) *rngstream.RngStream {
	s := rngstream.New(fmt.Sprintf("%s.Backoff", nodeID))
	if !s.SetSeed([]uint64{seed, seed, seed, seed, seed, seed}) {
		log.Panicf("invalid seed %d", seed)
	}

	for i := 0; i < int(nodeID); i++ {
		s.ResetNextSubstream()
	}

	return s
}
