// Package metrics exports engine counters to Prometheus.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "ledgerlock"

// Recorder implements security.Recorder on Prometheus counters.
type Recorder struct {
	generated     prometheus.Counter
	reseeds       prometheus.Counter
	verifications *prometheus.CounterVec
	cipherOps     *prometheus.CounterVec
}

// New registers the engine counters on reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &Recorder{
		generated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "drbg",
			Name:      "generated_bytes_total",
			Help:      "Bytes produced by the deterministic random bit generator.",
		}),
		reseeds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "drbg",
			Name:      "reseeds_total",
			Help:      "DRBG reseed operations.",
		}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "password_verifications_total",
			Help:      "Password hash verifications by result.",
		}, []string{"result"}),
		cipherOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cipher_operations_total",
			Help:      "Cipher chain operations by kind.",
		}, []string{"op"}),
	}
	for _, c := range []prometheus.Collector{r.generated, r.reseeds, r.verifications, r.cipherOps} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Recorder) Generated(n int) {
	r.generated.Add(float64(n))
}

func (r *Recorder) Reseeded() {
	r.reseeds.Inc()
}

func (r *Recorder) Verification(result string) {
	r.verifications.WithLabelValues(result).Inc()
}

func (r *Recorder) CipherOp(op string) {
	r.cipherOps.WithLabelValues(op).Inc()
}
