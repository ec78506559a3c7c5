package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestModerationActionsLabels(t *testing.T) {
	before := testutil.ToFloat64(ModerationActions.WithLabelValues("Ban", OutcomeSuccess))

	ModerationActions.WithLabelValues("Ban", OutcomeSuccess).Inc()

	assert.Equal(t, before+1, testutil.ToFloat64(ModerationActions.WithLabelValues("Ban", OutcomeSuccess)))
}

func TestCommandsTotal(t *testing.T) {
	CommandsTotal.WithLabelValues("mod.kick").Add(2)
	assert.Equal(t, float64(2), testutil.ToFloat64(CommandsTotal.WithLabelValues("mod.kick")))
}
