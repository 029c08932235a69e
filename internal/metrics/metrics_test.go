package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestSwap_RegistersOnce(t *testing.T) {
	require.Same(t, Swap(), Swap())
}

func TestSwap_Counters(t *testing.T) {
	m := Swap()

	before := testutil.ToFloat64(m.derivations.WithLabelValues("input", Stale))
	m.Derivation("input", Stale)
	m.Derivation("input", Stale)
	require.Equal(t, before+2, testutil.ToFloat64(m.derivations.WithLabelValues("input", Stale)))

	before = testutil.ToFloat64(m.submissions.WithLabelValues("wrap", Success))
	m.Submission("wrap", Success)
	require.Equal(t, before+1, testutil.ToFloat64(m.submissions.WithLabelValues("wrap", Success)))

	m.ObserveLedger("approve", 20*time.Millisecond)
	require.Positive(t, testutil.CollectAndCount(m.ledger))
}

func TestNilMetrics_NoPanic(t *testing.T) {
	var m *SwapMetrics
	m.Derivation("input", Applied)
	m.ReserveFetch(Failed)
	m.Submission("exact-in", Failed)
	m.ObserveLedger("approve", time.Second)
	m.SessionOpened()
	m.SessionClosed()
}
