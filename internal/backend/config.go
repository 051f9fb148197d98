package backend

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"worker/pkg/types"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultModelServerURL  = "http://127.0.0.1:5001"
	defaultUpstreamTimeout = 5 * time.Minute
	defaultConnectTimeout  = 5 * time.Second
)

// Recorder receives one record per completed client request. Implementations
// must not block.
type Recorder interface {
	RecordRequest(types.RequestRecord)
}

// Config encapsulates all tunables for Backend construction.
type Config struct {
	// ModelServerURL is the model server base URL, e.g. http://127.0.0.1:5001.
	ModelServerURL string
	// ModelLog is the path of the model server's log file.
	ModelLog string
	// AllowParallelRequests selects PolicyUnrestricted; false serializes requests.
	AllowParallelRequests bool
	// LogRules classify model log lines; nil uses DefaultLogRules.
	LogRules LogRules
	// UpstreamTimeout bounds each model server call (0 uses the default, <0 disables).
	UpstreamTimeout time.Duration
	ConnectTimeout  time.Duration
	LogPollInterval time.Duration
	LogOpenTimeout  time.Duration
	// LatencySamples is the reservoir size used for percentiles.
	LatencySamples int

	Publisher EventPublisher
	Recorder  Recorder
	Logger    *zerolog.Logger
	// HTTPClient overrides the keep-alive client built from the timeouts.
	HTTPClient *http.Client
}

// NewWithConfig constructs a Backend from Config.
func NewWithConfig(cfg Config) *Backend {
	b := &Backend{
		baseURL:   strings.TrimRight(cfg.ModelServerURL, "/"),
		readiness: NewReadiness(),
		metrics:   NewMetricsState(cfg.LatencySamples),
		recorder:  cfg.Recorder,
		publisher: cfg.Publisher,
		startTime: time.Now(),
	}
	if b.baseURL == "" {
		b.baseURL = defaultModelServerURL
	}
	if cfg.Logger != nil {
		b.log = cfg.Logger.With().Str("component", "backend").Logger()
	} else {
		b.log = zerolog.Nop()
	}
	if b.publisher == nil {
		b.publisher = noopPublisher{}
	}
	switch {
	case cfg.UpstreamTimeout == 0:
		b.upstreamTimeout = defaultUpstreamTimeout
	case cfg.UpstreamTimeout > 0:
		b.upstreamTimeout = cfg.UpstreamTimeout
	}
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}
	if cfg.HTTPClient != nil {
		b.client = cfg.HTTPClient
	} else {
		b.client = newSessionClient(connectTimeout)
	}
	policy := PolicyUnrestricted
	if !cfg.AllowParallelRequests {
		policy = PolicySerialized
	}
	b.gate = NewAdmissionGate(policy, b.readiness)
	b.monitor = NewLogMonitor(LogMonitorConfig{
		Path:         cfg.ModelLog,
		Rules:        cfg.LogRules,
		PollInterval: cfg.LogPollInterval,
		OpenTimeout:  cfg.LogOpenTimeout,
		Publisher:    b.publisher,
		Logger:       b.log,
	}, b.readiness)
	return b
}
