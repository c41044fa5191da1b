package sse_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/filing-tracker-go/internal/pkg/sse"
)

func TestHub_PublishToTopic(t *testing.T) {
	hub := sse.NewHub(4)

	ch, unsubscribe := hub.Subscribe("op-1")
	defer unsubscribe()
	other, unsubscribeOther := hub.Subscribe("op-2")
	defer unsubscribeOther()

	hub.Publish("op-1", sse.Event{Event: "progress", Data: 1})

	require.Len(t, ch, 1)
	got := <-ch
	assert.Equal(t, "op-1", got.Topic)
	assert.Equal(t, "progress", got.Event)
	assert.Empty(t, other)
}

func TestHub_FullChannelDrops(t *testing.T) {
	hub := sse.NewHub(1)
	ch, unsubscribe := hub.Subscribe("op")
	defer unsubscribe()

	hub.Publish("op", sse.Event{Event: "first"})
	hub.Publish("op", sse.Event{Event: "second"})

	require.Len(t, ch, 1)
	assert.Equal(t, "first", (<-ch).Event)
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := sse.NewHub(0)
	ch, unsubscribe := hub.Subscribe("op")
	assert.Equal(t, 1, hub.SubscriberCount("op"))
	assert.Equal(t, 1, hub.TotalSubscribers())

	unsubscribe()
	unsubscribe()

	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, hub.SubscriberCount("op"))
	assert.Zero(t, hub.TotalSubscribers())

	assert.NotPanics(t, func() { hub.Publish("op", sse.Event{Event: "late"}) })
}
