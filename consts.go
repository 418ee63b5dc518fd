package roulette

import (
	"math"
	"time"
)

const (
	// FullCircle is one complete wheel turn in radians
	FullCircle = 2 * math.Pi

	// PointerAngle is the fixed pointer position ("12 o'clock") in canvas orientation
	PointerAngle = -math.Pi / 2

	// TotalProbability is the value every resolved distribution sums to
	TotalProbability = 100.0

	// RoundingTolerance is the window in which the last auto item absorbs rounding drift
	RoundingTolerance = 0.001

	// ProbabilityEpsilon guards fixed-total comparisons against float noise
	ProbabilityEpsilon = 1e-9

	// LabelMinAngle is the narrowest sector that still gets a label (8 degrees)
	LabelMinAngle = 8.0 / 360.0 * FullCircle
)

const (
	// DefaultMinSpinDuration is the shortest primary spin animation
	DefaultMinSpinDuration = 7 * time.Second

	// DefaultSpinDurationJitter is the random extra added on top of the minimum duration
	DefaultSpinDurationJitter = 1 * time.Second

	// DefaultFakeProbability is the chance a spin is a fake when the feature is on
	DefaultFakeProbability = 0.33

	// DefaultFakeExtraDuration extends the spinning stage of a fake session
	DefaultFakeExtraDuration = 1 * time.Second

	// DefaultFakeMaxSteps is the largest number of sectors a fake spin overshoots
	DefaultFakeMaxSteps = 3

	// DefaultRewindDuration is the length of the correcting animation after a fake overshoot
	DefaultRewindDuration = 800 * time.Millisecond

	// DefaultMinExtraRotations / DefaultMaxExtraRotations bound the decorative full turns
	DefaultMinExtraRotations = 10
	DefaultMaxExtraRotations = 12

	// DefaultHeartbeatThreshold is the remaining progress below which the heartbeat fades in
	DefaultHeartbeatThreshold = 0.35

	// DefaultSpinFadeThreshold is the remaining progress below which the spin loop fades out
	DefaultSpinFadeThreshold = 0.2

	// DefaultFrameInterval is roughly one display refresh at 60Hz
	DefaultFrameInterval = 16 * time.Millisecond

	// DefaultWinSoundVariants is how many win jingles the finalizer picks from
	DefaultWinSoundVariants = 5

	// MaxFrameInterval bounds the configurable frame interval
	MaxFrameInterval = 250 * time.Millisecond

	// MaxExtraRotations bounds the configurable decorative turns
	MaxExtraRotations = 100
)

const (
	// DefaultChaseDuration is the fast phase of the chase-light screen
	DefaultChaseDuration = 3500 * time.Millisecond

	// DefaultChaseStopWindow is the easing window of the chase-light stopping phase
	DefaultChaseStopWindow = 2 * time.Second

	// DefaultStrobeToggles is how many times the winning light blinks
	DefaultStrobeToggles = 8

	// DefaultStrobeInterval is the delay between strobe toggles
	DefaultStrobeInterval = 100 * time.Millisecond
)

const (
	// DefaultCircuitBreakerName is the default name for Circuit Breaker
	DefaultCircuitBreakerName = "roulette-result-sink"

	// DefaultCircuitBreakerMaxRequests is the default max requests
	DefaultCircuitBreakerMaxRequests = 3

	// DefaultCircuitBreakerInterval is the default interval
	DefaultCircuitBreakerInterval = 60 * time.Second

	// DefaultCircuitBreakerTimeout is the default timeout
	DefaultCircuitBreakerTimeout = 30 * time.Second

	// DefaultCircuitBreakerFailureRatio is the default failure ratio
	DefaultCircuitBreakerFailureRatio = 0.6

	// DefaultCircuitBreakerMinRequests is the default min requests
	DefaultCircuitBreakerMinRequests = 3

	// DefaultCircuitBreakerOnStateChange is the default on state change
	DefaultCircuitBreakerOnStateChange = true
)

const (
	DefaultRedisAddr         = "localhost:6379"
	DefaultRedisPassword     = ""
	DefaultRedisDB           = 0
	DefaultRedisPoolSize     = 10
	DefaultRedisMinIdleConns = 2
	DefaultRedisMaxRetries   = 3
	DefaultRedisDialTimeout  = 5 * time.Second
	DefaultRedisReadTimeout  = 3 * time.Second
	DefaultRedisWriteTimeout = 3 * time.Second
	DefaultRedisPoolTimeout  = 4 * time.Second

	// DocumentKey is the redis key holding the whole profile document
	DocumentKey = "roulette:document"

	// ResultListKey is the redis list receiving winner records, newest first
	ResultListKey = "roulette:results"

	// DefaultResultHistory is how many records the redis result list keeps
	DefaultResultHistory = 100

	// DefaultRetryAttempts is the default number of retry attempts
	DefaultRetryAttempts = 3

	// DefaultRetryInterval is the default interval between retry attempts
	DefaultRetryInterval = 100 * time.Millisecond

	// MaxRetryDelay caps exponential backoff
	MaxRetryDelay = 5 * time.Second

	// MaxDocumentSize is the largest serialized document accepted (1MB)
	MaxDocumentSize = 1 * 1024 * 1024
)

const (
	DefaultDocumentFile = "data.json"
	DefaultResultFile   = "result.txt"
	DefaultNATSSubject  = "roulette.results"
	DefaultSinkTimeout  = 3 * time.Second
)

// Palette is the automatic sector colour cycle, indexed by item position
var Palette = []string{
	"#FFC367",
	"#88CECD",
	"#FF967C",
	"#75CAB2",
	"#FEC8D8",
	"#A0E7E5",
	"#668A93",
	"#FFD263",
	"#79D3BC",
	"#FFCBC2",
	"#B2D8B8",
	"#FFBE98",
	"#C7B9FF",
}
