package calibration

import (
	"time"
)

// State is the calibration state machine position.
type State int

const (
	// LearningMin is the initial phase, sampling the quiescent
	// background level of the sensor.
	LearningMin State = iota
	// LearningMax tracks the highest sustained reading while the
	// operator drives the sensor towards its maximum.
	LearningMax
	// Locked means the raw range is fixed for the rest of the process
	// lifetime.
	Locked
)

func (s State) String() string {
	switch s {
	case LearningMin:
		return "learning-min"
	case LearningMax:
		return "learning-max"
	case Locked:
		return "locked"
	default:
		return "unknown"
	}
}

// RawSource reads raw samples from the gas sensor channel.
type RawSource interface {
	ReadRaw() (float64, error)
	ReadBlockAverage(n int, delay time.Duration) (float64, error)
}

// EngineOptions holds the tunables of the learning phases.
type EngineOptions struct {
	// MinSamples is how many block-averaged samples are collected to
	// establish the quiescent minimum.
	MinSamples int
	// BlockSize is how many consecutive raw reads are averaged into one
	// minimum sample.
	BlockSize int
	// BlockDelay is the pause between the raw reads of a block.
	BlockDelay time.Duration
	// StableCycles is how many consecutive non-increasing polls are
	// required before the tracked maximum is considered stable.
	StableCycles int
}

func DefaultEngineOptions() EngineOptions {
	return EngineOptions{
		MinSamples:   10,
		BlockSize:    12,
		BlockDelay:   50 * time.Millisecond,
		StableCycles: 25,
	}
}

// Engine drives the gas sensor through calibration and owns the raw
// range once locked. It is the only writer of the persisted record.
type Engine struct {
	store  *Store
	source RawSource
	opts   EngineOptions

	state         State
	rawMin        float64
	trackedMax    float64
	haveMax       bool
	stableCount   int
	usedPersisted bool
	saved         bool

	minSum   float64
	minCount int

	mapper *Mapper
}

// Snapshot is a read-only view of the engine state for operator display.
type Snapshot struct {
	State         State
	RawMin        float64
	RawMax        float64
	StableCount   int
	UsedPersisted bool
}

func NewEngine(store *Store, source RawSource, opts EngineOptions) *Engine {
	return &Engine{
		store:  store,
		source: source,
		opts:   opts,
		state:  LearningMin,
	}
}

// Boot checks for a valid persisted record. With one present, and no
// operator override, the engine locks immediately and skips learning.
func (e *Engine) Boot(forceRecalibrate bool) {
	if forceRecalibrate {
		log.Info("Recalibration requested, ignoring any persisted calibration.")
		return
	}
	rec, ok := e.store.Load()
	if !ok {
		log.Info("No valid persisted calibration, starting fresh calibration.")
		return
	}
	e.rawMin = rec.RawMin
	e.trackedMax = rec.RawMax
	e.haveMax = true
	e.usedPersisted = true
	e.saved = true
	e.lock()
	log.Infof("Using persisted calibration, range %.1f to %.1f", rec.RawMin, rec.RawMax)
}

// Tick advances the learning state machine by one poll. It does nothing
// once locked.
func (e *Engine) Tick() error {
	switch e.state {
	case LearningMin:
		return e.tickLearningMin()
	case LearningMax:
		return e.tickLearningMax()
	}
	return nil
}

func (e *Engine) tickLearningMin() error {
	sample, err := e.source.ReadBlockAverage(e.opts.BlockSize, e.opts.BlockDelay)
	if err != nil {
		return err
	}
	e.minSum += sample
	e.minCount++
	log.Debugf("Calibration min sample %d/%d: %.1f", e.minCount, e.opts.MinSamples, sample)
	if e.minCount >= e.opts.MinSamples {
		e.rawMin = e.minSum / float64(e.minCount)
		e.state = LearningMax
		log.Infof("Baseline established at %.1f. Raise the gas input to its maximum and hold it there.", e.rawMin)
	}
	return nil
}

func (e *Engine) tickLearningMax() error {
	sample, err := e.source.ReadRaw()
	if err != nil {
		return err
	}
	if !e.haveMax || sample > e.trackedMax {
		e.trackedMax = sample
		e.haveMax = true
		e.stableCount = 0
		log.Debugf("New tracked maximum %.1f", sample)
		return nil
	}
	e.stableCount++
	if e.stableCount < e.opts.StableCycles {
		return nil
	}
	if e.trackedMax-e.rawMin < MinSpan {
		log.Warnf("Calibration span %.1f is below the minimum of %.0f. Raise the gas input further.",
			e.trackedMax-e.rawMin, MinSpan)
		e.stableCount = 0
		return nil
	}
	e.lock()
	log.Infof("Calibration locked, range %.1f to %.1f", e.rawMin, e.trackedMax)
	if err := e.store.Save(e.rawMin, e.trackedMax); err != nil {
		// Calibration stays valid in memory for this session.
		log.Errorf("Failed to persist calibration: %v", err)
	} else {
		e.saved = true
	}
	return nil
}

func (e *Engine) lock() {
	e.state = Locked
	e.mapper = NewMapper(e.rawMin, e.trackedMax)
}

// Locked reports whether the raw range is fixed.
func (e *Engine) Locked() bool {
	return e.state == Locked
}

func (e *Engine) State() State {
	return e.state
}

// Estimate maps a raw sample to a smoothed ppm estimate. It returns
// false until the engine has locked.
func (e *Engine) Estimate(raw float64) (float64, bool) {
	if e.state != Locked {
		return 0, false
	}
	return e.mapper.Update(raw), true
}

// Ratio returns a raw sample's position within the locked range. It
// returns false until the engine has locked.
func (e *Engine) Ratio(raw float64) (float64, bool) {
	if e.state != Locked {
		return 0, false
	}
	return e.mapper.Ratio(raw), true
}

func (e *Engine) Snapshot() Snapshot {
	snap := Snapshot{
		State:         e.state,
		RawMin:        e.rawMin,
		StableCount:   e.stableCount,
		UsedPersisted: e.usedPersisted,
	}
	if e.haveMax {
		snap.RawMax = e.trackedMax
	}
	return snap
}
