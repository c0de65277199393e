package notify

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskflow/internal/model"
)

func TestFeedDropsOldestWhenFull(t *testing.T) {
	f := NewFeed(2)
	Info(f, "one")
	Info(f, "two")
	Info(f, "three")

	assert.Equal(t, "two", (<-f.C()).Message)
	assert.Equal(t, "three", (<-f.C()).Message)
}

func TestErrorCarriesRetry(t *testing.T) {
	var r Recorder
	Error(&r, "Failed to add task", true)

	n, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, model.NotifyError, n.Kind)
	assert.True(t, n.Retry)
	assert.False(t, n.CreatedAt.IsZero())
}

func TestMultiAndLogger(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)

	var r Recorder
	n := Multi(&r, NewLogger(log))
	Warning(n, "You are offline. Writes are disabled.")

	assert.Equal(t, []string{"You are offline. Writes are disabled."}, r.Messages())
	assert.Contains(t, buf.String(), "level=warning")
	assert.Contains(t, buf.String(), "Writes are disabled")
}
