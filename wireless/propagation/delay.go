package propagation

// A DelayModel returns how long, in seconds, a signal takes to travel from
// a to b.
type DelayModel interface {
	Delay(a, b Endpoint) float64
}

// SpeedOfLight in meters per second.
const SpeedOfLight = 299792458.0

// ConstantSpeedDelay assumes the signal travels at a fixed speed.
type ConstantSpeedDelay struct {
	Speed float64
}

// NewConstantSpeedDelay returns a delay model at the speed of light.
func NewConstantSpeedDelay() ConstantSpeedDelay {
	return ConstantSpeedDelay{Speed: SpeedOfLight}
}

// Delay returns distance over speed.
func (m ConstantSpeedDelay) Delay(a, b Endpoint) float64 {
	return a.Position.DistanceTo(b.Position) / m.Speed
}

// ZeroDelay delivers signals instantly.
type ZeroDelay struct{}

// Delay always returns 0.
func (ZeroDelay) Delay(a, b Endpoint) float64 {
	return 0
}
