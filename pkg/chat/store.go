package chat

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/parliament-chat/pkg/backend"
	"github.com/go-go-golems/parliament-chat/pkg/conversation"
)

// Backend is the part of the question-answering service the chat core uses.
// *backend.Client implements it.
type Backend interface {
	Query(ctx context.Context, req backend.QueryRequest) (*backend.QueryResponse, error)
	ListConversations(ctx context.Context) ([]conversation.Summary, error)
	GetConversation(ctx context.Context, id string) (*conversation.Conversation, error)
}

var _ Backend = (*backend.Client)(nil)

// ErrSuperseded is returned by Load when a later load (or a switch to a new
// conversation) took precedence before this one completed.
var ErrSuperseded = errors.New("load superseded by a newer selection")

const DefaultLoadTimeout = 15 * time.Second

// Store loads the conversation list and the active conversation into a
// Session. State is only replaced on success.
type Store struct {
	session     *Session
	backend     Backend
	loadTimeout time.Duration
}

type StoreOption func(*Store)

func WithLoadTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.loadTimeout = d
		}
	}
}

func NewStore(session *Session, b Backend, opts ...StoreOption) *Store {
	s := &Store{session: session, backend: b, loadTimeout: DefaultLoadTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RefreshSummaries fetches the conversation list. On failure the previous list
// stays in place.
func (s *Store) RefreshSummaries(ctx context.Context) ([]conversation.Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.loadTimeout)
	defer cancel()

	summaries, err := s.backend.ListConversations(ctx)
	if err != nil {
		s.session.Dispatch(SummariesFailed{Text: "Could not refresh the conversation list."})
		log.Warn().Err(err).Str("component", "store").Msg("failed to refresh conversation list")
		return nil, errors.Wrap(err, "list conversations")
	}
	s.session.Dispatch(SummariesLoaded{Summaries: summaries})
	return summaries, nil
}

// Load makes id the active conversation. NoID clears the active conversation
// without a network call.
func (s *Store) Load(ctx context.Context, id conversation.ID) (*conversation.Conversation, error) {
	return s.load(ctx, id, false)
}

func (s *Store) load(ctx context.Context, id conversation.ID, resume bool) (*conversation.Conversation, error) {
	raw, ok := id.Get()
	if !ok {
		s.session.Dispatch(ConversationCleared{})
		return nil, nil
	}

	seq := s.session.Dispatch(LoadStarted{Resume: resume}).LoadSeq
	ctx, cancel := context.WithTimeout(ctx, s.loadTimeout)
	defer cancel()

	conv, err := s.backend.GetConversation(ctx, raw)
	if err != nil {
		text := "Could not load the conversation."
		if errors.Is(err, backend.ErrNotFound) {
			text = "That conversation no longer exists."
		}
		s.session.Dispatch(LoadFailed{Seq: seq, Text: text})
		log.Warn().Err(err).Str("component", "store").Str("conv_id", raw).Msg("failed to load conversation")
		return nil, errors.Wrapf(err, "load conversation %s", raw)
	}

	if res := s.session.Dispatch(ConversationLoaded{Seq: seq, Conversation: conv}); !res.Applied {
		log.Debug().Str("component", "store").Str("conv_id", raw).Msg("discarding superseded load")
		return nil, ErrSuperseded
	}
	return conv, nil
}

// Hydrate seeds the store at startup: cached summaries are shown right away,
// then the live list and the resumed conversation are fetched concurrently.
// The resumed conversation is not shown if the user started an exchange or
// picked a conversation before it arrived. Both fetches run to completion;
// the first error is returned.
func (s *Store) Hydrate(ctx context.Context, resume conversation.ID, cached []conversation.Summary) error {
	if len(cached) > 0 {
		s.session.Dispatch(SummariesLoaded{Summaries: cached})
	}

	var eg errgroup.Group
	eg.Go(func() error {
		_, err := s.RefreshSummaries(ctx)
		return err
	})
	if !resume.IsNone() {
		eg.Go(func() error {
			_, err := s.load(ctx, resume, true)
			if errors.Is(err, ErrSuperseded) {
				return nil
			}
			return err
		})
	}
	return eg.Wait()
}
