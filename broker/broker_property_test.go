package broker

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/hiveworks/dispatch/types"
)

// Property: for any interleaving of publishes across topics from a single
// producer, every subscriber of a topic observes that topic's messages in
// publish order, with nothing lost once Stop has drained the queue.
func TestBroker_PerTopicOrderingProperty(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		topicCount := rapid.IntRange(1, 4).Draw(t, "topic_count")
		msgCount := rapid.IntRange(0, 50).Draw(t, "msg_count")

		b := New(WithCapacity(msgCount + 1))
		b.Start()

		recorders := make(map[string]*recorder, topicCount)
		for i := 0; i < topicCount; i++ {
			topic := fmt.Sprintf("topic-%d", i)
			recorders[topic] = &recorder{}
			b.Subscribe(topic, recorders[topic].handler())
		}

		want := make(map[string][]string, topicCount)
		for i := 0; i < msgCount; i++ {
			topic := fmt.Sprintf("topic-%d", rapid.IntRange(0, topicCount-1).Draw(t, "topic"))
			msgType := fmt.Sprintf("%s/seq-%d", topic, len(want[topic]))
			want[topic] = append(want[topic], msgType)
			require.NoError(t, b.Publish(topic, types.NewMessage(msgType, nil)))
		}

		b.Stop()

		for topic, rec := range recorders {
			require.Equal(t, want[topic], rec.messageTypes(), "topic %s out of order", topic)
		}
	})
}

// Property: subscribe/unsubscribe churn never corrupts delivery for the
// subscribers that remain registered.
func TestBroker_UnsubscribeChurnProperty(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		rounds := rapid.IntRange(1, 20).Draw(t, "rounds")

		b := New(WithCapacity(rounds + 1))
		b.Start()

		keeper := &recorder{}
		b.Subscribe("t", keeper.handler())

		for i := 0; i < rounds; i++ {
			churn := &recorder{}
			sub := b.Subscribe("t", churn.handler())
			b.Unsubscribe(sub)
			require.NoError(t, b.Publish("t", types.NewMessage(fmt.Sprintf("m-%d", i), nil)))
		}

		b.Stop()

		require.Len(t, keeper.messageTypes(), rounds)
	})
}
