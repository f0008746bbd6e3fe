package live

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub() *Hub {
	return NewHub(map[string]string{"vehicles.crossings": TypeCount}, zerolog.Nop())
}

func TestPublishWrapsMessageByType(t *testing.T) {
	h := newTestHub()
	c := h.Register()

	require.NoError(t, h.Publish("vehicles.crossings", map[string]int{"total": 2}))

	raw := <-c.Messages()
	var msg struct {
		Type string         `json:"type"`
		Data map[string]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, TypeCount, msg.Type)
	assert.Equal(t, 2, msg.Data["total"])
}

func TestUnknownSubjectUsedAsType(t *testing.T) {
	h := newTestHub()
	c := h.Register()

	require.NoError(t, h.Publish("other", nil))
	assert.JSONEq(t, `{"type":"other","data":null}`, string(<-c.Messages()))
}

func TestSlowClientDropsInsteadOfBlocking(t *testing.T) {
	h := newTestHub()
	c := h.Register()

	for i := 0; i < clientBuffer+10; i++ {
		require.NoError(t, h.Publish("vehicles.crossings", i))
	}
	assert.Len(t, c.Messages(), clientBuffer)
}

func TestUnregisterClosesQueue(t *testing.T) {
	h := newTestHub()
	c := h.Register()
	other := h.Register()
	assert.Equal(t, 2, h.Clients())

	h.Unregister(c)
	h.Unregister(c)
	assert.Equal(t, 1, h.Clients())

	_, open := <-c.Messages()
	assert.False(t, open)

	require.NoError(t, h.Publish("vehicles.crossings", 1))
	assert.Len(t, other.Messages(), 1)

	h.Close()
	assert.Zero(t, h.Clients())
}
