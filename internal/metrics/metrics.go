package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/mzurek/go-can-dispatch/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus counters
var (
	RxFramesPushed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rx_frames_pushed_total",
		Help: "Total frames the driver pushed into RX engine buffers.",
	})
	RxFramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rx_frames_dropped_total",
		Help: "Total inbound frames dropped because an RX buffer was full.",
	})
	RxFramesDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rx_frames_dispatched_total",
		Help: "Total frames matched to a registration entry and parsed.",
	})
	RxFramesUnregistered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rx_frames_unregistered_total",
		Help: "Total frames that matched no registration entry.",
	})
	RxTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rx_slot_timeouts_total",
		Help: "Total reception timeout events raised across RX slots.",
	})
	TxFramesQueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tx_frames_queued_total",
		Help: "Total frames accepted into TX engine buffers.",
	})
	TxFramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tx_frames_dropped_total",
		Help: "Total outbound frames dropped because a TX buffer was full.",
	})
	TxPeriodicGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tx_periodic_generated_total",
		Help: "Total periodic table entries regenerated into TX buffers.",
	})
	TxFramesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tx_frames_sent_total",
		Help: "Total frames drained from TX buffers to the send callback.",
	})
	SerialRxFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "serial_rx_frames_total",
		Help: "Total CAN frames decoded from the serial link.",
	})
	SerialTxFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "serial_tx_frames_total",
		Help: "Total CAN frames written to the serial link.",
	})
	SocketCANRxFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "socketcan_rx_frames_total",
		Help: "Total CAN frames read from the SocketCAN interface.",
	})
	SocketCANTxFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "socketcan_tx_frames_total",
		Help: "Total CAN frames written to the SocketCAN interface.",
	})
	MalformedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "malformed_frames_total",
		Help: "Total rejected malformed frames (bad length, checksum, truncation).",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})
	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality)
const (
	ErrSerialRead     = "serial_read"
	ErrSerialWrite    = "serial_write"
	ErrSerialOverflow = "serial_tx_overflow"
	ErrSocketCANRead  = "socketcan_read"
	ErrSocketCANWrite = "socketcan_write"
	ErrSocketCANOver  = "socketcan_tx_overflow"
)

// StartHTTP serves Prometheus metrics at /metrics plus a /ready probe.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// Local mirrored counters for easy logging (avoid Prometheus scraping in-process)
var (
	localRxPush     uint64
	localRxDrop     uint64
	localRxDispatch uint64
	localRxUnreg    uint64
	localRxTimeout  uint64
	localTxQueue    uint64
	localTxDrop     uint64
	localTxGen      uint64
	localTxSend     uint64
	localSerialRx   uint64
	localSerialTx   uint64
	localSCANRx     uint64
	localSCANTx     uint64
	localMalformed  uint64
	localErrors     uint64
)

// Snapshot is a cheap copy of local counters.
type Snapshot struct {
	RxPushed       uint64
	RxDropped      uint64
	RxDispatched   uint64
	RxUnregistered uint64
	RxTimeouts     uint64
	TxQueued       uint64
	TxDropped      uint64
	TxGenerated    uint64
	TxSent         uint64
	SerialRx       uint64
	SerialTx       uint64
	SocketCANRx    uint64
	SocketCANTx    uint64
	Malformed      uint64
	Errors         uint64 // sum across error labels
}

func Snap() Snapshot {
	return Snapshot{
		RxPushed:       atomic.LoadUint64(&localRxPush),
		RxDropped:      atomic.LoadUint64(&localRxDrop),
		RxDispatched:   atomic.LoadUint64(&localRxDispatch),
		RxUnregistered: atomic.LoadUint64(&localRxUnreg),
		RxTimeouts:     atomic.LoadUint64(&localRxTimeout),
		TxQueued:       atomic.LoadUint64(&localTxQueue),
		TxDropped:      atomic.LoadUint64(&localTxDrop),
		TxGenerated:    atomic.LoadUint64(&localTxGen),
		TxSent:         atomic.LoadUint64(&localTxSend),
		SerialRx:       atomic.LoadUint64(&localSerialRx),
		SerialTx:       atomic.LoadUint64(&localSerialTx),
		SocketCANRx:    atomic.LoadUint64(&localSCANRx),
		SocketCANTx:    atomic.LoadUint64(&localSCANTx),
		Malformed:      atomic.LoadUint64(&localMalformed),
		Errors:         atomic.LoadUint64(&localErrors),
	}
}

// Wrapper helpers to keep call sites simple.
func IncRxPush() {
	RxFramesPushed.Inc()
	atomic.AddUint64(&localRxPush, 1)
}

func IncRxDrop() {
	RxFramesDropped.Inc()
	atomic.AddUint64(&localRxDrop, 1)
}

func IncRxDispatch() {
	RxFramesDispatched.Inc()
	atomic.AddUint64(&localRxDispatch, 1)
}

func IncRxUnregistered() {
	RxFramesUnregistered.Inc()
	atomic.AddUint64(&localRxUnreg, 1)
}

func IncRxTimeout() {
	RxTimeouts.Inc()
	atomic.AddUint64(&localRxTimeout, 1)
}

func IncTxQueue() {
	TxFramesQueued.Inc()
	atomic.AddUint64(&localTxQueue, 1)
}

func IncTxDrop() {
	TxFramesDropped.Inc()
	atomic.AddUint64(&localTxDrop, 1)
}

func IncTxGenerate() {
	TxPeriodicGenerated.Inc()
	atomic.AddUint64(&localTxGen, 1)
}

func IncTxSend() {
	TxFramesSent.Inc()
	atomic.AddUint64(&localTxSend, 1)
}

func IncSerialRx() {
	SerialRxFrames.Inc()
	atomic.AddUint64(&localSerialRx, 1)
}

func IncSerialTx() {
	SerialTxFrames.Inc()
	atomic.AddUint64(&localSerialTx, 1)
}

// IncSocketCANRx increments SocketCAN receive counters.
func IncSocketCANRx() {
	SocketCANRxFrames.Inc()
	atomic.AddUint64(&localSCANRx, 1)
}

// IncSocketCANTx increments SocketCAN transmit counters.
func IncSocketCANTx() {
	SocketCANTxFrames.Inc()
	atomic.AddUint64(&localSCANTx, 1)
}

func IncMalformed() {
	MalformedFrames.Inc()
	atomic.AddUint64(&localMalformed, 1)
}

func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

// InitBuildInfo sets the build info gauge (should be called once at startup).
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	// Pre-register error label series so the first error avoids registration latency.
	for _, lbl := range []string{
		ErrSerialRead, ErrSerialWrite, ErrSerialOverflow,
		ErrSocketCANRead, ErrSocketCANWrite, ErrSocketCANOver,
	} {
		Errors.WithLabelValues(lbl).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil { // if not set yet, treat as ready so metrics endpoint doesn't flap
		return true
	}
	return fn()
}
