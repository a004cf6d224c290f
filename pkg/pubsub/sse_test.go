package pubsub

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub Subscription) Event {
	t.Helper()
	select {
	case event := <-sub.Events():
		return event
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for event")
		return Event{}
	}
}

func assertNoEvent(t *testing.T, sub Subscription) {
	t.Helper()
	select {
	case event := <-sub.Events():
		t.Errorf("Received unexpected event version %d", event.Version)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStatusReplayAll(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	pub.ConfigureTopic(TopicPipelineStatus, TopicConfig{BufferSize: 3, ReplayAll: true})

	states := []string{"loading", "pruning", "topology", "loads", "sizing"}
	for i, state := range states {
		require.NoError(t, pub.Publish(TopicPipelineStatus, state, PipelineStatus{State: state, Step: i + 1, Total: len(states)}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	sub, err := pub.Subscribe(ctx, TopicPipelineStatus)
	require.NoError(t, err)
	defer sub.Close()

	// Only the last three are buffered
	for _, want := range []int{3, 4, 5} {
		event := receive(t, sub)
		assert.Equal(t, want, event.Version)

		var status PipelineStatus
		require.NoError(t, json.Unmarshal(event.Data, &status))
		assert.Equal(t, states[want-1], status.State)
		assert.Equal(t, want, status.Step)
	}
	assertNoEvent(t, sub)
}

func TestSummaryReplayLastOnly(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	pub.ConfigureTopic(TopicBuildSummary, TopicConfig{BufferSize: 5, ReplayAll: false})
	for i := 1; i <= 3; i++ {
		require.NoError(t, pub.Publish(TopicBuildSummary, "complete", map[string]int{"build": i}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	sub, err := pub.Subscribe(ctx, TopicBuildSummary)
	require.NoError(t, err)
	defer sub.Close()

	assert.Equal(t, 3, receive(t, sub).Version)
	assertNoEvent(t, sub)
}

func TestNoBuffer(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	for i := 1; i <= 3; i++ {
		require.NoError(t, pub.Publish(TopicRunSummary, "complete", i))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	sub, err := pub.Subscribe(ctx, TopicRunSummary)
	require.NoError(t, err)
	defer sub.Close()

	assertNoEvent(t, sub)

	require.NoError(t, pub.Publish(TopicRunSummary, "complete", 4))
	assert.Equal(t, 4, receive(t, sub).Version)
}

func TestContextCancelUnsubscribes(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	_, err := pub.Subscribe(ctx, TopicPipelineStatus)
	require.NoError(t, err)
	assert.Equal(t, 1, pub.Subscribers(TopicPipelineStatus))

	cancel()
	assert.Eventually(t, func() bool { return pub.Subscribers(TopicPipelineStatus) == 0 },
		time.Second, 10*time.Millisecond)
}

func TestSlowSubscriberDropsEvents(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	sub, err := pub.Subscribe(context.Background(), TopicPipelineStatus)
	require.NoError(t, err)
	defer sub.Close()

	for i := 0; i < 105; i++ {
		require.NoError(t, pub.Publish(TopicPipelineStatus, "loading", PipelineStatus{}))
	}
	assert.Equal(t, 5, pub.Dropped())
}

func TestPublishAfterClose(t *testing.T) {
	pub := NewSSEPublisher()
	require.NoError(t, pub.Close())

	assert.Error(t, pub.Publish(TopicPipelineStatus, "loading", nil))
	_, err := pub.Subscribe(context.Background(), TopicPipelineStatus)
	assert.Error(t, err)
}

func TestWriteSSE(t *testing.T) {
	var buf bytes.Buffer
	event := Event{Topic: TopicPipelineStatus, Type: "done", Data: json.RawMessage(`{"state":"done"}`), Version: 7}

	require.NoError(t, WriteSSE(&buf, event))

	out := buf.String()
	assert.Contains(t, out, "id: 7\nevent: done\ndata: {")
	assert.Contains(t, out, `"data":{"state":"done"}`)
	assert.True(t, bytes.HasSuffix(buf.Bytes(), []byte("\n\n")))
}
