// Package metrics exposes the Prometheus counters and gauges this
// module's components report through, grounded on
// vms/platformvm/metrics/metrics.go's interface-plus-struct shape
// (register everything once at construction, expose narrow setter
// methods rather than the raw collectors).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var _ Metrics = (*metrics)(nil)

// Metrics is the narrow surface vault, staking, and nativeproxy report
// through; none of them hold a *prometheus.Registerer directly.
type Metrics interface {
	// SetBondedCollateral reports the total bonded collateral held by
	// the vault, summed across every user.
	SetBondedCollateral(amount uint64)
	// SetOpenLiens reports how many liens are currently open across all
	// destinations.
	SetOpenLiens(count int)
	// IncTxOpened marks that the vault opened a two-phase tx.
	IncTxOpened()
	// IncTxCommitted marks that a vault tx resolved via commit.
	IncTxCommitted()
	// IncTxRolledBack marks that a vault tx resolved via rollback.
	IncTxRolledBack()

	// SetExternalStake reports the total stake external-staking is
	// tracking for one validator.
	SetExternalStake(validator string, amount uint64)
	// IncRewardsDistributed marks a reward distribution and its amount.
	IncRewardsDistributed(amount uint64)
	// IncSlashEvents marks a slashing event applied against a validator.
	IncSlashEvents(validator string)

	// SetLocalDelegated reports the total amount a nativeproxy has
	// bonded locally for one validator.
	SetLocalDelegated(validator string, amount uint64)

	// AddCallbackLatency records how long a destination took to handle
	// one synchronous callback invocation.
	AddCallbackLatency(d time.Duration)
}

type metrics struct {
	bondedCollateral prometheus.Gauge
	openLiens        prometheus.Gauge

	txOpened     prometheus.Counter
	txCommitted  prometheus.Counter
	txRolledBack prometheus.Counter
	callbackMs   prometheus.Gauge

	externalStake      *prometheus.GaugeVec
	rewardsDistributed prometheus.Counter
	rewardsAmount      prometheus.Counter
	slashEvents        *prometheus.CounterVec

	localDelegated *prometheus.GaugeVec
}

// New builds and registers every collector under namespace, in the
// teacher's "build struct, register everything, return accumulated
// error" style.
func New(namespace string, registerer prometheus.Registerer) (Metrics, error) {
	m := &metrics{
		bondedCollateral: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bonded_collateral",
			Help:      "Total bonded collateral held by the vault",
		}),
		openLiens: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_liens",
			Help:      "Number of liens currently open across all destinations",
		}),
		txOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_opened_total",
			Help:      "Total number of two-phase txs opened",
		}),
		txCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_committed_total",
			Help:      "Total number of two-phase txs committed",
		}),
		txRolledBack: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_rolled_back_total",
			Help:      "Total number of two-phase txs rolled back",
		}),
		callbackMs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "callback_latency_ms_last",
			Help:      "Duration (in ms) of the most recent synchronous callback invocation",
		}),
		externalStake: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "external_stake",
				Help:      "Total external stake tracked per validator",
			},
			[]string{"validator"},
		),
		rewardsDistributed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rewards_distributed_total",
			Help:      "Total number of reward distributions applied",
		}),
		rewardsAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rewards_distributed_amount_total",
			Help:      "Total amount of rewards distributed",
		}),
		slashEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "slash_events_total",
				Help:      "Total number of slashing events applied per validator",
			},
			[]string{"validator"},
		),
		localDelegated: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "local_delegated",
				Help:      "Total amount delegated locally per validator",
			},
			[]string{"validator"},
		),
	}

	// Collect every registration error, reporting only the first one:
	// utils/wrappers.Errs does the same accumulate-and-report-first
	// trick, inlined here since that helper package isn't part of this
	// module's dependency surface.
	collectors := []prometheus.Collector{
		m.bondedCollateral,
		m.openLiens,
		m.txOpened,
		m.txCommitted,
		m.txRolledBack,
		m.callbackMs,
		m.externalStake,
		m.rewardsDistributed,
		m.rewardsAmount,
		m.slashEvents,
		m.localDelegated,
	}
	var firstErr error
	for _, c := range collectors {
		if err := registerer.Register(c); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return m, firstErr
}

func (m *metrics) SetBondedCollateral(amount uint64) { m.bondedCollateral.Set(float64(amount)) }
func (m *metrics) SetOpenLiens(count int)            { m.openLiens.Set(float64(count)) }
func (m *metrics) IncTxOpened()                      { m.txOpened.Inc() }
func (m *metrics) IncTxCommitted()                   { m.txCommitted.Inc() }
func (m *metrics) IncTxRolledBack()                  { m.txRolledBack.Inc() }

func (m *metrics) SetExternalStake(validator string, amount uint64) {
	m.externalStake.WithLabelValues(validator).Set(float64(amount))
}

func (m *metrics) IncRewardsDistributed(amount uint64) {
	m.rewardsDistributed.Inc()
	m.rewardsAmount.Add(float64(amount))
}

func (m *metrics) IncSlashEvents(validator string) {
	m.slashEvents.WithLabelValues(validator).Inc()
}

func (m *metrics) SetLocalDelegated(validator string, amount uint64) {
	m.localDelegated.WithLabelValues(validator).Set(float64(amount))
}

func (m *metrics) AddCallbackLatency(d time.Duration) {
	m.callbackMs.Set(float64(d.Milliseconds()))
}

var _ Metrics = noop{}

// noop discards every report, mirroring zap.NewNop(): vault, staking,
// and nativeproxy can all take a Metrics unconditionally instead of
// nil-checking it at every call site.
type noop struct{}

// Noop returns a Metrics that discards every report.
func Noop() Metrics { return noop{} }

func (noop) SetBondedCollateral(uint64)       {}
func (noop) SetOpenLiens(int)                 {}
func (noop) IncTxOpened()                     {}
func (noop) IncTxCommitted()                  {}
func (noop) IncTxRolledBack()                 {}
func (noop) SetExternalStake(string, uint64)  {}
func (noop) IncRewardsDistributed(uint64)     {}
func (noop) IncSlashEvents(string)            {}
func (noop) SetLocalDelegated(string, uint64) {}
func (noop) AddCallbackLatency(time.Duration) {}
