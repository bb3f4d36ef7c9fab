package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	tmerr "github.com/mrz1836/testament/pkg/errors"
)

func TestMetrics_RecordRPCCall(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	m.RecordRPCCall(100*time.Millisecond, nil)
	m.RecordRPCCall(50*time.Millisecond, tmerr.ErrNetworkError)

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.RPCCallsTotal)
	assert.Equal(t, int64(1), snap.RPCErrorsTotal)
	assert.InDelta(t, 75.0, m.RPCLatencyAvgMs(), 0.001)
}

func TestMetrics_RPCLatencyAvgMs_NoCalls(t *testing.T) {
	t.Parallel()
	m := &Metrics{}
	assert.Zero(t, m.RPCLatencyAvgMs())
}

func TestMetrics_RecordProbe(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	m.RecordProbe(true)
	m.RecordProbe(false)
	m.RecordProbe(false)

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.TokenProbes)
	assert.Equal(t, int64(1), snap.WillsFound)
}

func TestMetrics_RecordOp(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	m.RecordOp(OpScan, nil)
	m.RecordOp(OpMint, tmerr.ErrMintFailed)
	m.RecordOp(OpMint, nil)
	m.RecordOp(OpCheckIn, tmerr.ErrCheckInFailed)
	m.RecordOp(OpConnect, nil)
	m.RecordOp("unknown", nil)

	snap := m.Snapshot()
	assert.Equal(t, int64(1), snap.Scans)
	assert.Equal(t, int64(0), snap.ScanErrors)
	assert.Equal(t, int64(2), snap.Mints)
	assert.Equal(t, int64(1), snap.MintErrors)
	assert.Equal(t, int64(1), snap.CheckIns)
	assert.Equal(t, int64(1), snap.CheckInErrors)
	assert.Equal(t, int64(1), snap.Connects)
}

func TestMetrics_Reset(t *testing.T) {
	t.Parallel()
	m := &Metrics{}
	m.RecordRPCCall(time.Millisecond, nil)
	m.RecordRateWait()
	m.RecordProbe(true)
	m.RecordOp(OpMint, nil)

	m.Reset()
	assert.Equal(t, Snapshot{}, m.Snapshot())
}

func TestMetrics_Concurrent(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordRPCCall(time.Millisecond, nil)
			m.RecordProbe(false)
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	assert.Equal(t, int64(50), snap.RPCCallsTotal)
	assert.Equal(t, int64(50), snap.TokenProbes)
}
