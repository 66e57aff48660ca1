package chatstore

import (
	"context"
	"sync"

	"github.com/go-go-golems/parliament-chat/pkg/conversation"
)

// InMemoryResumeStore keeps resume state for the lifetime of the process.
type InMemoryResumeStore struct {
	mu        sync.Mutex
	active    conversation.ID
	summaries []conversation.Summary
}

var _ ResumeStore = &InMemoryResumeStore{}

func NewInMemoryResumeStore() *InMemoryResumeStore {
	return &InMemoryResumeStore{active: conversation.NoID()}
}

func (s *InMemoryResumeStore) Close() error { return nil }

func (s *InMemoryResumeStore) SaveActive(_ context.Context, id conversation.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = id
	return nil
}

func (s *InMemoryResumeStore) ActiveConversation(_ context.Context) (conversation.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, nil
}

func (s *InMemoryResumeStore) SaveSummaries(_ context.Context, summaries []conversation.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = make([]conversation.Summary, 0, len(summaries))
	for _, sum := range summaries {
		if sum.ConversationID != "" {
			s.summaries = append(s.summaries, sum)
		}
	}
	return nil
}

func (s *InMemoryResumeStore) ListSummaries(_ context.Context) ([]conversation.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.summaries) == 0 {
		return nil, nil
	}
	return append([]conversation.Summary(nil), s.summaries...), nil
}
