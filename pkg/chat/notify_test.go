package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/parliament-chat/pkg/conversation"
)

func TestPublishingListener_PublishesEnvelopes(t *testing.T) {
	ps := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	defer func() { _ = ps.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	msgs, err := ps.Subscribe(ctx, StateTopic)
	require.NoError(t, err)

	fb := newFakeBackend()
	fb.seed(seededConversation("a"))
	session := NewSession(WithListener(NewPublishingListener(ctx, ps, StateTopic)))
	store := NewStore(session, fb)

	_, err = store.Load(ctx, conversation.SomeID("a"))
	require.NoError(t, err)

	var got []ChangeEnvelope
	for len(got) < 2 {
		select {
		case m := <-msgs:
			env, err := DecodeEnvelope(m.Payload)
			require.NoError(t, err)
			got = append(got, env)
			m.Ack()
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for change")
		}
	}
	require.Equal(t, "load-started", got[0].Event)
	require.Equal(t, "conversation-loaded", got[1].Event)
	require.Equal(t, "a", got[1].ConversationID)
	require.Equal(t, "idle", got[1].Phase)
	require.Greater(t, got[1].Version, got[0].Version)
}

// heldPublisher blocks every Publish until release is closed.
type heldPublisher struct {
	release   chan struct{}
	published chan string
}

func (p *heldPublisher) Publish(topic string, msgs ...*message.Message) error {
	<-p.release
	for _, m := range msgs {
		p.published <- string(m.Payload)
	}
	return nil
}

func (p *heldPublisher) Close() error { return nil }

func TestPublishingListener_DispatchDoesNotWaitForTransport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub := &heldPublisher{release: make(chan struct{}), published: make(chan string, 8)}
	session := NewSession(WithListener(NewPublishingListener(ctx, pub, StateTopic)))

	done := make(chan struct{})
	go func() {
		session.Dispatch(SummariesLoaded{Summaries: []conversation.Summary{{ConversationID: "a"}}})
		session.Dispatch(ConversationCleared{})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch blocked on a slow publisher")
	}

	close(pub.release)
	var events []string
	for len(events) < 2 {
		select {
		case p := <-pub.published:
			env, err := DecodeEnvelope([]byte(p))
			require.NoError(t, err)
			events = append(events, env.Event)
		case <-time.After(2 * time.Second):
			t.Fatal("queued changes were not published")
		}
	}
	require.Equal(t, []string{"summaries-loaded", "conversation-cleared"}, events)
}

type memResume struct {
	mu        sync.Mutex
	active    []conversation.ID
	summaries [][]conversation.Summary
}

func (m *memResume) SaveActive(_ context.Context, id conversation.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = append(m.active, id)
	return nil
}

func (m *memResume) SaveSummaries(_ context.Context, s []conversation.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries = append(m.summaries, s)
	return nil
}

func TestResumeListener_RecordsActiveChanges(t *testing.T) {
	rs := &memResume{}
	fb := newFakeBackend()
	fb.seed(seededConversation("a"))
	session := NewSession(WithListener(NewResumeListener(rs)))
	store := NewStore(session, fb)

	// nothing selected yet: the stored id must survive
	_, err := store.RefreshSummaries(context.Background())
	require.NoError(t, err)
	require.Empty(t, rs.active)
	require.Len(t, rs.summaries, 1)

	_, err = store.Load(context.Background(), conversation.SomeID("a"))
	require.NoError(t, err)
	_, err = store.Load(context.Background(), conversation.NoID())
	require.NoError(t, err)

	require.Equal(t, []conversation.ID{conversation.SomeID("a"), conversation.NoID()}, rs.active)
}

func TestResumeListener_IgnoresOlderVersions(t *testing.T) {
	rs := &memResume{}
	l := NewResumeListener(rs)

	l(Change{Event: ConversationLoaded{}, State: State{Version: 5, ActiveID: conversation.SomeID("new")}})
	l(Change{Event: ConversationLoaded{}, State: State{Version: 3, ActiveID: conversation.SomeID("old")}})

	require.Equal(t, []conversation.ID{conversation.SomeID("new")}, rs.active)
}
