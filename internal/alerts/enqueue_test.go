package alerts

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderEventTaskPayload(t *testing.T) {
	task := orderEventTask(TaskOrderConfirmed, "order-1", "client-1", "free-1",
		"free@example.com", 50000, "Logo design", "You have a new order", "body text")

	assert.Equal(t, TaskOrderConfirmed, task.Type())

	var p OrderEventPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	assert.Equal(t, "order-1", p.OrderID)
	assert.Equal(t, "Logo design", p.Title)
	assert.Equal(t, int64(50000), p.Amount)
	assert.Equal(t, "free@example.com", p.Envelope.To)
	assert.Equal(t, "You have a new order", p.Envelope.Subject)
}

func TestMessagePreview(t *testing.T) {
	assert.Equal(t, "short", messagePreview("short", 120))

	long := strings.Repeat("a", 130)
	got := messagePreview(long, 120)
	assert.Equal(t, strings.Repeat("a", 120)+"…", got)

	// Multi-byte text must never be cut mid-rune.
	hindi := strings.Repeat("न", 130)
	got = messagePreview(hindi, 120)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 121, utf8.RuneCountInString(got))
	assert.Equal(t, strings.Repeat("न", 120)+"…", got)

	exact := strings.Repeat("ब", 120)
	assert.Equal(t, exact, messagePreview(exact, 120))
}
