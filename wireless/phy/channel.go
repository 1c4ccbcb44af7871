package phy

import (
	"github.com/sarchlab/wlansim/sim/timing"
	"github.com/sarchlab/wlansim/wireless"
	"github.com/sarchlab/wlansim/wireless/propagation"
)

// Channel is the medium that connects radios.
type Channel struct {
	engine    timing.EventScheduler
	lossModel propagation.LossModel
	delay     propagation.DelayModel
	phys      []*Phy

	nextArrivalID uint64
}

// NewChannel creates a channel that uses the given loss and delay models.
func NewChannel(
	engine timing.EventScheduler,
	lossModel propagation.LossModel,
	delay propagation.DelayModel,
) *Channel {
	if delay == nil {
		delay = propagation.ZeroDelay{}
	}

	return &Channel{
		engine:    engine,
		lossModel: lossModel,
		delay:     delay,
	}
}

// Attach connects a radio to the channel.
func (c *Channel) Attach(p *Phy) {
	p.channel = c
	c.phys = append(c.phys, p)
}

// Phys returns the attached radios in attach order.
func (c *Channel) Phys() []*Phy {
	return c.phys
}

// LossModel returns the loss model of the channel.
func (c *Channel) LossModel() propagation.LossModel {
	return c.lossModel
}

// RxPowerDbm returns the power that dst receives when src transmits.
func (c *Channel) RxPowerDbm(src, dst *Phy) float64 {
	return src.config.TxPowerDbm -
		c.lossModel.Loss(src.endpoint(), dst.endpoint())
}

func (c *Channel) transmit(
	src *Phy,
	frame *wireless.Frame,
	duration float64,
) error {
	now := c.engine.Now()

	for _, dst := range c.phys {
		if dst == src {
			continue
		}

		powerDbm := c.RxPowerDbm(src, dst)
		delay := c.delay.Delay(src.endpoint(), dst.endpoint())

		c.nextArrivalID++
		a := &arrival{
			id:       c.nextArrivalID,
			frame:    frame,
			powerDbm: powerDbm,
			powerMw:  wireless.DbmToMw(powerDbm),
		}

		start := arrivalStartEvent{
			EventBase: timing.MakeEventBase(now+delay, dst),
			arrival:   a,
		}
		if _, err := c.engine.Schedule(start); err != nil {
			return err
		}

		end := arrivalEndEvent{
			EventBase: timing.MakeEventBase(now+delay+duration, dst),
			arrival:   a,
		}
		if _, err := c.engine.Schedule(end); err != nil {
			return err
		}
	}

	return nil
}
