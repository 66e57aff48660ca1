package chat

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/parliament-chat/pkg/backend"
	"github.com/go-go-golems/parliament-chat/pkg/conversation"
)

const (
	DefaultNumResults      = 4
	DefaultExchangeTimeout = 90 * time.Second
	MaxQuestionLength      = 1000

	FailureText = "Sorry, there was an error processing your request."
	TimeoutText = "Sorry, the answer took too long. Please try again."
)

var ErrExchangeTimeout = errors.New("exchange timed out")

// Controller runs question/answer exchanges against the Session it shares
// with a Store. At most one exchange is pending per conversation context;
// further submits are ignored until it resolves.
type Controller struct {
	session    *Session
	store      *Store
	backend    Backend
	numResults int
	timeout    time.Duration

	wg sync.WaitGroup
}

type ControllerOption func(*Controller)

func WithNumResults(n int) ControllerOption {
	return func(c *Controller) {
		if n > 0 {
			c.numResults = n
		}
	}
}

func WithExchangeTimeout(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func NewController(store *Store, opts ...ControllerOption) *Controller {
	c := &Controller{
		session:    store.session,
		store:      store,
		backend:    store.backend,
		numResults: DefaultNumResults,
		timeout:    DefaultExchangeTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit starts an exchange and returns immediately. It returns false, without
// touching any state, for blank or oversized input and while another exchange
// is in flight.
func (c *Controller) Submit(ctx context.Context, question string) bool {
	if strings.TrimSpace(question) == "" || utf8.RuneCountInString(question) > MaxQuestionLength {
		return false
	}
	res := c.session.Dispatch(Submitted{Question: question, At: c.session.Now()})
	if !res.Applied {
		return false
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.exchange(ctx, res.Ticket)
	}()
	return true
}

// Retry resubmits the question of the failed exchange still on display.
func (c *Controller) Retry(ctx context.Context) bool {
	q, ok := c.session.Snapshot().Buffer.FailedQuestion()
	if !ok {
		return false
	}
	return c.Submit(ctx, q)
}

// Wait blocks until every started exchange has resolved.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) exchange(ctx context.Context, t Ticket) {
	logger := log.With().Str("component", "controller").Uint64("exchange", t.Seq).Str("conv_id", t.Target.String()).Logger()
	isNew := t.Target.IsNone()

	exCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.backend.Query(exCtx, backend.QueryRequest{
		Question:       t.Question,
		NumResults:     c.numResults,
		ConversationID: t.Target.Ptr(),
	})
	if err != nil {
		c.fail(t, err, conversation.NoID())
		return
	}
	assigned := conversation.SomeID(resp.ConversationID)
	logger.Debug().Str("assigned_id", resp.ConversationID).Msg("query answered")

	if res := c.session.Dispatch(ResponseArrived{Ticket: t}); res.Stale {
		logger.Debug().Msg("conversation switched while answering, discarding response")
		if isNew {
			c.refreshSummaries(ctx)
		}
		return
	}

	conv, err := c.backend.GetConversation(exCtx, resp.ConversationID)
	if err != nil {
		c.fail(t, err, assigned)
		if isNew {
			c.refreshSummaries(ctx)
		}
		return
	}

	if res := c.session.Dispatch(ResponseReceived{Ticket: t, Conversation: conv}); !res.Applied {
		logger.Debug().Str("reason", res.Reason).Msg("discarding response")
	}
	if isNew {
		c.refreshSummaries(ctx)
	}
}

func (c *Controller) fail(t Ticket, err error, assigned conversation.ID) {
	text := FailureText
	if errors.Is(err, context.DeadlineExceeded) {
		err = errors.Wrap(ErrExchangeTimeout, err.Error())
		text = TimeoutText
	}
	log.Error().Err(err).Str("component", "controller").Uint64("exchange", t.Seq).Str("conv_id", t.Target.String()).Msg("exchange failed")
	c.session.Dispatch(ResponseFailed{Ticket: t, Text: text, Err: err, AssignedID: assigned, At: c.session.Now()})
}

func (c *Controller) refreshSummaries(ctx context.Context) {
	// the error is already logged and recorded as a notice by the store
	_, _ = c.store.RefreshSummaries(ctx)
}
