package metrics_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stelzch/binary-tree-summation/metrics"
	"github.com/stelzch/binary-tree-summation/simsubstrate"
	"github.com/stelzch/binary-tree-summation/simulator"
	"github.com/stelzch/binary-tree-summation/substrate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSendAccumulatesCounts(t *testing.T) {
	c := metrics.NewCollector(0)
	c.RecordSend(3)
	c.RecordSend(5)

	snap := c.Snapshot()
	assert.Equal(t, int64(2), snap.MessagesSent)
	assert.Equal(t, int64(8), snap.SummandsSent)
	assert.InDelta(t, 4.0, snap.AverageSummandsPerMessage(), 1e-9)
}

func TestSnapshotAverageIsZeroWithoutMessages(t *testing.T) {
	c := metrics.NewCollector(1)
	assert.Equal(t, 0.0, c.Snapshot().AverageSummandsPerMessage())
}

func TestHandlerServesPrometheusExposition(t *testing.T) {
	c := metrics.NewCollector(2)
	c.RecordSend(4)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "reprosum_messages_sent_total")
	assert.Contains(t, body, "reprosum_summands_sent_total")
	assert.Contains(t, body, `rank="2"`)
}

func TestWrapRecordsSendDoublesTraffic(t *testing.T) {
	loop := simulator.NewEventLoop()
	nodes := []*simulator.Node{simulator.NewNode(), simulator.NewNode()}
	network := simulator.NewOrderedNetwork(1.0, 0.1)

	collectors := make([]*metrics.Collector, 2)
	simsubstrate.SpawnSubstrates(loop, network, nodes, func(s *simsubstrate.Sub) {
		c := metrics.NewCollector(s.Rank())
		collectors[s.Rank()] = c
		wrapped := metrics.Wrap(s, c)
		if s.Rank() == 0 {
			wrapped.SendDoubles(1, substrate.TagTransfer, []float64{1, 2, 3})
		} else {
			s.RecvDoubles(0, substrate.TagTransfer)
		}
	})
	require.NoError(t, loop.Run())

	snap := collectors[0].Snapshot()
	assert.Equal(t, int64(1), snap.MessagesSent)
	assert.Equal(t, int64(3), snap.SummandsSent)
	assert.Equal(t, int64(0), collectors[1].Snapshot().MessagesSent)
}
