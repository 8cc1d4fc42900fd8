package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestObserveAction(t *testing.T) {
	before := testutil.ToFloat64(StoreActions.WithLabelValues("loadMutations", "error"))
	ObserveAction("loadMutations", errors.New("boom"))
	after := testutil.ToFloat64(StoreActions.WithLabelValues("loadMutations", "error"))
	require.Equal(t, before+1, after)
}

func TestObserveRequestTransportFailure(t *testing.T) {
	ObserveRequest("GET", "/lists", 0, 10*time.Millisecond)
	require.GreaterOrEqual(t, testutil.CollectAndCount(RequestDuration), 1)
}

func TestCachedMutationsPerStore(t *testing.T) {
	CachedMutations.WithLabelValues("left").Set(3)
	CachedMutations.WithLabelValues("right").Set(5)
	require.Equal(t, 3.0, testutil.ToFloat64(CachedMutations.WithLabelValues("left")))
	require.Equal(t, 5.0, testutil.ToFloat64(CachedMutations.WithLabelValues("right")))
}
