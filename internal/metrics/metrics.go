// Package metrics provides application-level metrics collection.
// This is a lightweight metrics foundation using atomic counters.
package metrics

import (
	"sync/atomic"
	"time"
)

// Provider names used when recording upstream calls.
const (
	ProviderRPC       = "rpc"
	ProviderEtherscan = "etherscan"
	ProviderCoinGecko = "coingecko"
)

// Metrics holds application metrics using atomic counters for thread safety.
type Metrics struct {
	// Upstream call metrics
	rpcCallsTotal   atomic.Int64
	rpcErrorsTotal  atomic.Int64
	rpcLatencyNanos atomic.Int64

	// Per-provider calls
	nodeCalls      atomic.Int64
	etherscanCalls atomic.Int64
	coingeckoCalls atomic.Int64

	// Tracking runs
	runsCompleted atomic.Int64
	runsFailed    atomic.Int64

	// Block cache
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
}

// Global is the global metrics instance.
//
//nolint:gochecknoglobals // Intentional global for metrics access
var Global = &Metrics{}

// RecordRPCCall records an upstream call with its duration and success status.
func (m *Metrics) RecordRPCCall(provider string, duration time.Duration, err error) {
	m.rpcCallsTotal.Add(1)
	m.rpcLatencyNanos.Add(duration.Nanoseconds())

	if err != nil {
		m.rpcErrorsTotal.Add(1)
	}

	switch provider {
	case ProviderRPC:
		m.nodeCalls.Add(1)
	case ProviderEtherscan:
		m.etherscanCalls.Add(1)
	case ProviderCoinGecko:
		m.coingeckoCalls.Add(1)
	}
}

// RecordRun records the outcome of a tracking run.
func (m *Metrics) RecordRun(completed bool) {
	if completed {
		m.runsCompleted.Add(1)
		return
	}
	m.runsFailed.Add(1)
}

// RecordCacheHit records a cache hit.
func (m *Metrics) RecordCacheHit() {
	m.cacheHits.Add(1)
}

// RecordCacheMiss records a cache miss.
func (m *Metrics) RecordCacheMiss() {
	m.cacheMisses.Add(1)
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	RPCCallsTotal   int64 `json:"rpc_calls_total"`
	RPCErrorsTotal  int64 `json:"rpc_errors_total"`
	RPCLatencyNanos int64 `json:"rpc_latency_nanos"`
	NodeCalls       int64 `json:"node_calls"`
	EtherscanCalls  int64 `json:"etherscan_calls"`
	CoinGeckoCalls  int64 `json:"coingecko_calls"`
	RunsCompleted   int64 `json:"runs_completed"`
	RunsFailed      int64 `json:"runs_failed"`
	CacheHits       int64 `json:"cache_hits"`
	CacheMisses     int64 `json:"cache_misses"`
}

// Snapshot returns a point-in-time copy of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		RPCCallsTotal:   m.rpcCallsTotal.Load(),
		RPCErrorsTotal:  m.rpcErrorsTotal.Load(),
		RPCLatencyNanos: m.rpcLatencyNanos.Load(),
		NodeCalls:       m.nodeCalls.Load(),
		EtherscanCalls:  m.etherscanCalls.Load(),
		CoinGeckoCalls:  m.coingeckoCalls.Load(),
		RunsCompleted:   m.runsCompleted.Load(),
		RunsFailed:      m.runsFailed.Load(),
		CacheHits:       m.cacheHits.Load(),
		CacheMisses:     m.cacheMisses.Load(),
	}
}

// RPCCallsTotal returns the total number of upstream calls made.
func (m *Metrics) RPCCallsTotal() int64 {
	return m.rpcCallsTotal.Load()
}

// RPCErrorsTotal returns the total number of upstream errors.
func (m *Metrics) RPCErrorsTotal() int64 {
	return m.rpcErrorsTotal.Load()
}

// RPCLatencyAvgMs returns the average upstream latency in milliseconds.
// Returns 0 if no calls have been made.
func (m *Metrics) RPCLatencyAvgMs() float64 {
	calls := m.rpcCallsTotal.Load()
	if calls == 0 {
		return 0
	}
	nanos := m.rpcLatencyNanos.Load()
	return float64(nanos) / float64(calls) / 1e6
}

// CacheHitRate returns the cache hit rate as a percentage (0-100).
// Returns 0 if no cache operations have occurred.
func (m *Metrics) CacheHitRate() float64 {
	hits := m.cacheHits.Load()
	misses := m.cacheMisses.Load()
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// Reset resets all metrics to zero.
func (m *Metrics) Reset() {
	m.rpcCallsTotal.Store(0)
	m.rpcErrorsTotal.Store(0)
	m.rpcLatencyNanos.Store(0)
	m.nodeCalls.Store(0)
	m.etherscanCalls.Store(0)
	m.coingeckoCalls.Store(0)
	m.runsCompleted.Store(0)
	m.runsFailed.Store(0)
	m.cacheHits.Store(0)
	m.cacheMisses.Store(0)
}
