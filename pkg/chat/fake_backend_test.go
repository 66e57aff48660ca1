package chat

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-go-golems/parliament-chat/pkg/backend"
	"github.com/go-go-golems/parliament-chat/pkg/conversation"
)

// fakeBackend is an in-memory Backend. Queries may be held back through gate
// to interleave them with other operations.
type fakeBackend struct {
	mu        sync.Mutex
	queries   []backend.QueryRequest
	listCalls int
	getCalls  []string

	convs     map[string]*conversation.Conversation
	summaries []conversation.Summary
	nextID    int

	gate    chan struct{}
	started chan backend.QueryRequest
	// holdGet delays GetConversation(holdGet) until getGate is closed.
	holdGet    string
	getGate    chan struct{}
	getStarted chan string
	queryErr   error
	listErr    error
	getErr     error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{convs: map[string]*conversation.Conversation{}}
}

func (f *fakeBackend) seed(c *conversation.Conversation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.convs[c.ConversationID] = c
	f.summaries = append(f.summaries, conversation.Summary{ConversationID: c.ConversationID, CreatedAt: c.CreatedAt})
}

func (f *fakeBackend) Query(ctx context.Context, req backend.QueryRequest) (*backend.QueryResponse, error) {
	f.mu.Lock()
	f.queries = append(f.queries, req)
	gate, started := f.gate, f.started
	f.mu.Unlock()

	if started != nil {
		started <- req
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var id string
	if req.ConversationID != nil {
		id = *req.ConversationID
	} else {
		f.nextID++
		id = fmt.Sprintf("new-%d", f.nextID)
		f.convs[id] = &conversation.Conversation{ConversationID: id, CreatedAt: "2025-01-01T10:00:00.000000Z"}
		f.summaries = append([]conversation.Summary{{ConversationID: id, FirstMessage: req.Question}}, f.summaries...)
	}
	answer := "answer to " + req.Question
	followUps := []conversation.FollowUpQuestion{{Text: "more about " + req.Question, Category: "related"}}
	prev := f.convs[id]
	if prev == nil {
		prev = &conversation.Conversation{ConversationID: id}
	}
	next := &conversation.Conversation{ConversationID: id, CreatedAt: prev.CreatedAt}
	next.Messages = append(append([]conversation.Message{}, prev.Messages...),
		conversation.Message{Type: conversation.MessageTypeUser, Content: req.Question},
		conversation.Message{Type: conversation.MessageTypeAssistant, Content: answer, FollowUpQuestions: followUps},
	)
	f.convs[id] = next
	return &backend.QueryResponse{ConversationID: id, Answer: answer, FollowUpQuestions: followUps}, nil
}

func (f *fakeBackend) ListConversations(_ context.Context) ([]conversation.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]conversation.Summary{}, f.summaries...), nil
}

func (f *fakeBackend) GetConversation(ctx context.Context, id string) (*conversation.Conversation, error) {
	f.mu.Lock()
	f.getCalls = append(f.getCalls, id)
	hold := id == f.holdGet && f.getGate != nil
	gate, started := f.getGate, f.getStarted
	f.mu.Unlock()

	if hold {
		if started != nil {
			started <- id
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	c, ok := f.convs[id]
	if !ok {
		return nil, &backend.StatusError{Method: "GET", Path: "/conversations/" + id, StatusCode: 404}
	}
	return c, nil
}

func (f *fakeBackend) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func (f *fakeBackend) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func (f *fakeBackend) getCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.getCalls)
}
