// Package metrics keeps in-process counters for RPC traffic and will operations.
package metrics

import (
	"sync/atomic"
	"time"
)

// Operation names accepted by RecordOp.
const (
	OpScan    = "scan"
	OpMint    = "mint"
	OpCheckIn = "checkin"
	OpConnect = "connect"
)

type opCounter struct {
	total  atomic.Int64
	errors atomic.Int64
}

func (c *opCounter) record(err error) {
	c.total.Add(1)
	if err != nil {
		c.errors.Add(1)
	}
}

// Metrics holds application metrics using atomic counters for thread safety.
type Metrics struct {
	rpcCallsTotal   atomic.Int64
	rpcErrorsTotal  atomic.Int64
	rpcLatencyNanos atomic.Int64
	rpcRateWaits    atomic.Int64

	tokenProbes atomic.Int64
	willsFound  atomic.Int64

	scans    opCounter
	mints    opCounter
	checkIns opCounter
	connects opCounter
}

// Global is the process-wide metrics instance.
//
//nolint:gochecknoglobals // Intentional global for metrics access
var Global = &Metrics{}

// RecordRPCCall records a JSON-RPC round trip.
func (m *Metrics) RecordRPCCall(duration time.Duration, err error) {
	m.rpcCallsTotal.Add(1)
	m.rpcLatencyNanos.Add(duration.Nanoseconds())
	if err != nil {
		m.rpcErrorsTotal.Add(1)
	}
}

// RecordRateWait records a request that had to wait for the rate limiter.
func (m *Metrics) RecordRateWait() {
	m.rpcRateWaits.Add(1)
}

// RecordProbe records one token id looked up during a scan.
func (m *Metrics) RecordProbe(owned bool) {
	m.tokenProbes.Add(1)
	if owned {
		m.willsFound.Add(1)
	}
}

// RecordOp records a completed user-level operation.
func (m *Metrics) RecordOp(op string, err error) {
	switch op {
	case OpScan:
		m.scans.record(err)
	case OpMint:
		m.mints.record(err)
	case OpCheckIn:
		m.checkIns.record(err)
	case OpConnect:
		m.connects.record(err)
	}
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	RPCCallsTotal   int64 `json:"rpc_calls_total"`
	RPCErrorsTotal  int64 `json:"rpc_errors_total"`
	RPCLatencyNanos int64 `json:"rpc_latency_nanos"`
	RPCRateWaits    int64 `json:"rpc_rate_waits"`
	TokenProbes     int64 `json:"token_probes"`
	WillsFound      int64 `json:"wills_found"`
	Scans           int64 `json:"scans"`
	ScanErrors      int64 `json:"scan_errors"`
	Mints           int64 `json:"mints"`
	MintErrors      int64 `json:"mint_errors"`
	CheckIns        int64 `json:"check_ins"`
	CheckInErrors   int64 `json:"check_in_errors"`
	Connects        int64 `json:"connects"`
	ConnectErrors   int64 `json:"connect_errors"`
}

// Snapshot returns a point-in-time copy of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		RPCCallsTotal:   m.rpcCallsTotal.Load(),
		RPCErrorsTotal:  m.rpcErrorsTotal.Load(),
		RPCLatencyNanos: m.rpcLatencyNanos.Load(),
		RPCRateWaits:    m.rpcRateWaits.Load(),
		TokenProbes:     m.tokenProbes.Load(),
		WillsFound:      m.willsFound.Load(),
		Scans:           m.scans.total.Load(),
		ScanErrors:      m.scans.errors.Load(),
		Mints:           m.mints.total.Load(),
		MintErrors:      m.mints.errors.Load(),
		CheckIns:        m.checkIns.total.Load(),
		CheckInErrors:   m.checkIns.errors.Load(),
		Connects:        m.connects.total.Load(),
		ConnectErrors:   m.connects.errors.Load(),
	}
}

// RPCLatencyAvgMs returns the average RPC latency in milliseconds,
// or 0 when no calls have been made.
func (m *Metrics) RPCLatencyAvgMs() float64 {
	calls := m.rpcCallsTotal.Load()
	if calls == 0 {
		return 0
	}
	return float64(m.rpcLatencyNanos.Load()) / float64(calls) / 1e6
}

// Reset resets all metrics to zero.
func (m *Metrics) Reset() {
	m.rpcCallsTotal.Store(0)
	m.rpcErrorsTotal.Store(0)
	m.rpcLatencyNanos.Store(0)
	m.rpcRateWaits.Store(0)
	m.tokenProbes.Store(0)
	m.willsFound.Store(0)
	for _, c := range []*opCounter{&m.scans, &m.mints, &m.checkIns, &m.connects} {
		c.total.Store(0)
		c.errors.Store(0)
	}
}
