package telemetry

import (
	"math"
	"time"
)

// Thresholds are the per-channel change thresholds. A channel with no
// entry gates on any change at all.
type Thresholds map[Channel]float64

// GateOptions configures the change-detection gate.
type GateOptions struct {
	// Thresholds is the minimum absolute change per channel that
	// counts as a reportable difference.
	Thresholds Thresholds
	// GasRatioDelta is the alternative relative trigger for the gas
	// channel: a shift of this fraction of the calibrated span counts
	// as changed even when the absolute ppm delta is small. A fixed
	// ppm threshold is too coarse near the low end of the log range
	// and too sensitive near the high end.
	GasRatioDelta float64
	// MinPostInterval is the shortest allowed gap between sends.
	MinPostInterval time.Duration
	// HeartbeatInterval forces a send after this much silence so the
	// cloud side can tell the device is alive.
	HeartbeatInterval time.Duration
}

func DefaultGateOptions() GateOptions {
	return GateOptions{
		Thresholds: Thresholds{
			ChannelTemperature: 0.5,
			ChannelHumidity:    2.0,
			ChannelGas:         25.0,
			ChannelBattery:     5.0,
			ChannelProximity:   5.0,
			ChannelWeight:      10.0,
		},
		GasRatioDelta:     0.05,
		MinPostInterval:   15 * time.Second,
		HeartbeatInterval: 5 * time.Minute,
	}
}

type baseline struct {
	value  float64
	ratio  float64
	sentAt time.Time
	set    bool
}

// Gate holds the last successfully transmitted value per channel and
// decides when the current cycle's readings warrant a network send. It
// is the sole owner of the send baselines.
type Gate struct {
	opts      GateOptions
	clock     Clock
	baselines map[Channel]*baseline

	lastSend    time.Time
	lastSendSet bool
}

// Decision is the outcome of one gate evaluation. Changed records which
// channels triggered, so that only their baselines advance on a
// confirmed send.
type Decision struct {
	Send      bool
	Heartbeat bool
	Changed   map[Channel]bool
}

func NewGate(opts GateOptions, clock Clock) *Gate {
	if clock == nil {
		clock = SystemClock()
	}
	return &Gate{
		opts:      opts,
		clock:     clock,
		baselines: map[Channel]*baseline{},
	}
}

// Evaluate computes the send decision for this cycle's readings without
// mutating any baselines.
func (g *Gate) Evaluate(readings []Reading) Decision {
	d := Decision{Changed: map[Channel]bool{}}
	for _, r := range readings {
		if g.changed(r) {
			d.Changed[r.Channel] = true
		}
	}

	now := g.clock.Now()
	sinceSend := time.Duration(math.MaxInt64)
	if g.lastSendSet {
		sinceSend = now.Sub(g.lastSend)
	}

	anyChanged := len(d.Changed) > 0
	if anyChanged && sinceSend >= g.opts.MinPostInterval {
		d.Send = true
	} else if sinceSend >= g.opts.HeartbeatInterval {
		d.Send = true
		d.Heartbeat = true
		log.Debug("Heartbeat interval reached, forcing a send.")
	}
	return d
}

func (g *Gate) changed(r Reading) bool {
	b, ok := g.baselines[r.Channel]
	if !ok || !b.set {
		// First valid reading always counts as changed.
		return true
	}
	if r.Channel == ChannelMotion {
		return r.Value != b.value
	}
	threshold := g.opts.Thresholds[r.Channel]
	if threshold <= 0 {
		if r.Value != b.value {
			return true
		}
	} else if math.Abs(r.Value-b.value) >= threshold {
		return true
	}
	if r.Channel == ChannelGas && r.HasRatio {
		return math.Abs(r.Ratio-b.ratio) >= g.opts.GasRatioDelta
	}
	return false
}

// Confirm records a successful transmission. Baselines advance only for
// the channels whose change flag triggered this cycle; a value that was
// merely included in the payload keeps its old baseline so the next
// delta is still measured against what actually triggered a send.
func (g *Gate) Confirm(d Decision, readings []Reading) {
	now := g.clock.Now()
	for _, r := range readings {
		if !d.Changed[r.Channel] {
			continue
		}
		b, ok := g.baselines[r.Channel]
		if !ok {
			b = &baseline{}
			g.baselines[r.Channel] = b
		}
		b.value = r.Value
		b.ratio = r.Ratio
		b.sentAt = now
		b.set = true
	}
	g.lastSend = now
	g.lastSendSet = true
}

// LastSent returns the baseline value for a channel, if one has been
// confirmed.
func (g *Gate) LastSent(ch Channel) (float64, bool) {
	b, ok := g.baselines[ch]
	if !ok || !b.set {
		return 0, false
	}
	return b.value, true
}
