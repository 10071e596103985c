package flowgen

import (
	"math"
	"time"
)

// StressPhase represents the current intensity phase for a stress symbol.
type StressPhase int

const (
	PhaseCalm   StressPhase = 0
	PhaseActive StressPhase = 1
	PhaseBurst  StressPhase = 2
)

func (p StressPhase) String() string {
	switch p {
	case PhaseCalm:
		return "calm"
	case PhaseActive:
		return "active"
	case PhaseBurst:
		return "burst"
	default:
		return "unknown"
	}
}

// StressConfig holds the timing parameters for each phase.
type StressConfig struct {
	CalmMinMs   int
	CalmMaxMs   int
	ActiveMinMs int
	ActiveMaxMs int
	BurstMinMs  int
	BurstMaxMs  int
}

// DefaultStressConfig returns the default stress timing parameters.
func DefaultStressConfig() StressConfig {
	return StressConfig{
		CalmMinMs:   10,
		CalmMaxMs:   50,
		ActiveMinMs: 2,
		ActiveMaxMs: 10,
		BurstMinMs:  1,
		BurstMaxMs:  2,
	}
}

// StressController manages variable-rate request pacing for stress symbols.
// It uses a sine-wave + random walk pattern for smooth phase transitions.
type StressController struct {
	rng    *RNG
	config StressConfig

	phase         StressPhase
	phaseStart    time.Time
	phaseDuration time.Duration
	intensity     float64 // 0.0 (calm) to 1.0 (max burst)

	t          float64 // time parameter for sine wave
	tStep      float64 // increment per call
	randomWalk float64 // additive random component
}

// NewStressController creates a new stress controller.
func NewStressController(rng *RNG, cfg StressConfig) *StressController {
	sc := &StressController{
		rng:        rng,
		config:     cfg,
		phase:      PhaseCalm,
		phaseStart: time.Now(),
		tStep:      0.01,
	}
	sc.phaseDuration = sc.randomDuration(30, 120) // calm lasts 30-120s
	return sc
}

// Tick advances the controller and returns the current pause between
// request batches and the number of requests to send in this batch.
func (sc *StressController) Tick() (interval time.Duration, numRequests int) {
	sc.t += sc.tStep
	sineComponent := (math.Sin(sc.t) + 1) / 2 // [0, 1]

	// Random walk with mean reversion
	sc.randomWalk += sc.rng.Gaussian() * 0.02
	sc.randomWalk *= 0.98

	sc.intensity = sineComponent + sc.randomWalk
	if sc.intensity < 0 {
		sc.intensity = 0
	}
	if sc.intensity > 1 {
		sc.intensity = 1
	}

	// Rare short burst of maximum throughput
	if sc.rng.Float64() < 0.001 {
		sc.intensity = 1.0
	}

	now := time.Now()
	if now.Sub(sc.phaseStart) >= sc.phaseDuration {
		sc.phaseStart = now
		sc.updatePhase()
	}

	switch sc.phase {
	case PhaseCalm:
		interval = sc.scaledInterval(sc.config.CalmMinMs, sc.config.CalmMaxMs)
		numRequests = 1 + int(sc.intensity*1) // 1-2
	case PhaseActive:
		interval = sc.scaledInterval(sc.config.ActiveMinMs, sc.config.ActiveMaxMs)
		numRequests = 3 + int(sc.intensity*2) // 3-5
	case PhaseBurst:
		interval = sc.scaledInterval(sc.config.BurstMinMs, sc.config.BurstMaxMs)
		numRequests = 5 + int(sc.intensity*5) // 5-10
	}

	if interval < time.Millisecond {
		interval = time.Millisecond
	}
	return interval, numRequests
}

func (sc *StressController) scaledInterval(minMs, maxMs int) time.Duration {
	ms := float64(maxMs) - (float64(maxMs)-float64(minMs))*sc.intensity
	return time.Duration(ms) * time.Millisecond
}

// Phase returns the current stress phase.
func (sc *StressController) Phase() StressPhase {
	return sc.phase
}

// Intensity returns the current intensity level [0, 1].
func (sc *StressController) Intensity() float64 {
	return sc.intensity
}

func (sc *StressController) updatePhase() {
	if sc.intensity < 0.3 {
		sc.phase = PhaseCalm
		sc.phaseDuration = sc.randomDuration(30, 120)
	} else if sc.intensity < 0.7 {
		sc.phase = PhaseActive
		sc.phaseDuration = sc.randomDuration(10, 60)
	} else {
		sc.phase = PhaseBurst
		sc.phaseDuration = sc.randomDuration(5, 30)
	}
}

func (sc *StressController) randomDuration(minSec, maxSec int) time.Duration {
	secs := sc.rng.IntRange(minSec, maxSec)
	return time.Duration(secs) * time.Second
}
