package metrics

import (
	"sync/atomic"
	"time"
)

// ID identifies a counter or histogram slot.
type ID uint16

const (
	LoginSuccess ID = iota
	LoginFailure
	LoginBusy
	Logout
	LogoutBackendFailure
	SessionRestored
	SessionRestoreFailure
	RegistrationSuccess
	RegistrationDuplicate
	RegistrationFailure
	ProfileUpdateSuccess
	ProfileUpdateFailure
	OnboardingStepAdvanced
	OnboardingStepRejected
	OnboardingCompleted
	OnboardingFailed
	FinancialFetchSuccess
	FinancialFetchFailure
	FinancialCacheHit
	FinancialRefreshSuccess
	FinancialRefreshFailure
	idCount
)

// Count is the number of defined metric IDs.
const Count = int(idCount)

// Op names one backend call. Each Op owns a latency histogram.
type Op uint8

const (
	OpAuthenticate Op = iota
	OpLogout
	OpRegister
	OpCurrentUser
	OpUpdateUser
	OpFinancialData
	OpRefreshFinancialData
	opCount
)

var opNames = [opCount]string{
	OpAuthenticate:         "authenticate",
	OpLogout:               "logout",
	OpRegister:             "register",
	OpCurrentUser:          "current_user",
	OpUpdateUser:           "update_user",
	OpFinancialData:        "financial_data",
	OpRefreshFinancialData: "refresh_financial_data",
}

func (o Op) String() string {
	if o >= opCount {
		return "unknown"
	}
	return opNames[o]
}

// Ops lists every backend call in declaration order.
func Ops() []Op {
	out := make([]Op, 0, opCount)
	for o := Op(0); o < opCount; o++ {
		out = append(out, o)
	}
	return out
}

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type histogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Config toggles recording.
type Config struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// Metrics holds every counter and per-call latency histogram of one client.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [idCount]paddedCounter
	latency       [opCount]histogram
}

// Snapshot is a point-in-time copy of all metric values. BackendLatency holds
// non-cumulative bucket counts per backend call and is empty unless latency
// histograms are enabled.
type Snapshot struct {
	Counters       map[ID]uint64
	BackendLatency map[Op][]uint64
}

// New returns a Metrics recording according to cfg.
func New(cfg Config) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to the counter id.
func (m *Metrics) Inc(id ID) {
	if m == nil || !m.enabled || id >= idCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records the duration of one backend call.
func (m *Metrics) Observe(op Op, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || op >= opCount {
		return
	}
	atomic.AddUint64(&m.latency[op].buckets[bucketIndex(d)], 1)
}

func (m *Metrics) Value(id ID) uint64 {
	if m == nil || id >= idCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every value. Counters and histograms are read one by one,
// so a snapshot taken under load is not a single instant.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil || !m.enabled {
		return Snapshot{
			Counters:       map[ID]uint64{},
			BackendLatency: map[Op][]uint64{},
		}
	}

	s := Snapshot{
		Counters:       make(map[ID]uint64, int(idCount)),
		BackendLatency: make(map[Op][]uint64, int(opCount)),
	}
	for id := ID(0); id < idCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	if m.enableLatency {
		for op := Op(0); op < opCount; op++ {
			buckets := make([]uint64, histBucketCount)
			for i := 0; i < histBucketCount; i++ {
				buckets[i] = atomic.LoadUint64(&m.latency[op].buckets[i])
			}
			s.BackendLatency[op] = buckets
		}
	}
	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 100:
		return 0
	case ms <= 250:
		return 1
	case ms <= 500:
		return 2
	case ms <= 1000:
		return 3
	case ms <= 1500:
		return 4
	case ms <= 2000:
		return 5
	case ms <= 5000:
		return 6
	default:
		return 7
	}
}
