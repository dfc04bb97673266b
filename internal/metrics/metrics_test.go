package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(OracleLookupsTotal.WithLabelValues("match"))
	OracleLookupsTotal.WithLabelValues("match").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(OracleLookupsTotal.WithLabelValues("match")))
}

func TestResult(t *testing.T) {
	assert.Equal(t, "success", Result(true))
	assert.Equal(t, "failure", Result(false))
}
