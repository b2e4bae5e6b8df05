// Package metrics exposes prometheus counters for the wallet kit.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "walletkit"

// WalletMetrics counts user-operation and sponsorship outcomes.
type WalletMetrics struct {
	numUserOpsSent     *prometheus.CounterVec
	numSponsorships    *prometheus.CounterVec
	numWalletsDerived  prometheus.Counter
	numSessionKeyCheck *prometheus.CounterVec
}

// New registers the wallet counters with reg.
func New(reg prometheus.Registerer) *WalletMetrics {
	return &WalletMetrics{
		numUserOpsSent: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "num_userops_sent_total",
				Help:      "User operations submitted to the bundler, by outcome (accepted, rejected, transport_error)",
			}, []string{"outcome"}),

		numSponsorships: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "num_sponsorships_total",
				Help:      "Gas sponsorship resolutions, by provider name or 'self_paid' when every provider failed",
			}, []string{"provider"}),

		numWalletsDerived: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "num_wallets_derived_total",
				Help:      "Counterfactual wallet addresses derived (cache misses only)",
			}),

		numSessionKeyCheck: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "num_session_key_checks_total",
				Help:      "Session key validations, by result (valid, expired, bad_signature)",
			}, []string{"result"}),
	}
}

func (m *WalletMetrics) IncUserOpSent(outcome string) {
	m.numUserOpsSent.WithLabelValues(outcome).Inc()
}

func (m *WalletMetrics) IncSponsorship(provider string) {
	m.numSponsorships.WithLabelValues(provider).Inc()
}

func (m *WalletMetrics) IncWalletDerived() {
	m.numWalletsDerived.Inc()
}

func (m *WalletMetrics) IncSessionKeyCheck(result string) {
	m.numSessionKeyCheck.WithLabelValues(result).Inc()
}
