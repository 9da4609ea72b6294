package metrics

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWritePrometheus(t *testing.T) {
	TurnTotal.WithLabelValues("ok").Inc()
	SentimentTotal.WithLabelValues("immediate", "negative").Inc()
	ClassifierFailures.Inc()

	var buf bytes.Buffer
	require.NoError(t, WritePrometheus(&buf))
	out := buf.String()
	assert.Contains(t, out, `support_chat_turn_total{status="ok"}`)
	assert.Contains(t, out, `support_chat_sentiment_total{label="negative",scope="immediate"}`)
	assert.Contains(t, out, "support_chat_classifier_failures_total")
}
