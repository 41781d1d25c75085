package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordMutation(t *testing.T) {
	applied := testutil.ToFloat64(StoreMutationsTotal.WithLabelValues("test_op"))
	ignored := testutil.ToFloat64(StoreNoopsTotal.WithLabelValues("test_op"))

	RecordMutation("test_op", true)
	RecordMutation("test_op", false)
	RecordMutation("test_op", false)

	assert.Equal(t, applied+1, testutil.ToFloat64(StoreMutationsTotal.WithLabelValues("test_op")))
	assert.Equal(t, ignored+2, testutil.ToFloat64(StoreNoopsTotal.WithLabelValues("test_op")))
}

func TestRecordTokens(t *testing.T) {
	in := testutil.ToFloat64(LLMTokensTotal.WithLabelValues("test-model", "in"))
	out := testutil.ToFloat64(LLMTokensTotal.WithLabelValues("test-model", "out"))

	RecordTokens("test-model", 12, 30)

	assert.Equal(t, in+12, testutil.ToFloat64(LLMTokensTotal.WithLabelValues("test-model", "in")))
	assert.Equal(t, out+30, testutil.ToFloat64(LLMTokensTotal.WithLabelValues("test-model", "out")))
}

func TestTrackSSE(t *testing.T) {
	before := testutil.ToFloat64(SSEConnectionsActive)

	done := TrackSSE()
	assert.Equal(t, before+1, testutil.ToFloat64(SSEConnectionsActive))
	done()
	assert.Equal(t, before, testutil.ToFloat64(SSEConnectionsActive))
}

func TestSeriesNames(t *testing.T) {
	RepliesDroppedTotal.Add(0)
	n, err := testutil.GatherAndCount(prometheus.DefaultGatherer, "chatstore_replies_dropped_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}
