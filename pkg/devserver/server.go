// Package devserver is a local stand-in for the question-answering backend.
// It answers from a canned corpus and keeps conversations in memory, which is
// enough to drive the chat client end to end without the retrieval stack.
package devserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/parliament-chat/pkg/backend"
	"github.com/go-go-golems/parliament-chat/pkg/conversation"
)

const (
	DefaultAddr       = ":8000"
	defaultNumResults = 4
	shutdownTimeout   = 10 * time.Second
)

type Server struct {
	echo   *echo.Echo
	repo   *repository
	corpus *Corpus
	delay  time.Duration
}

type Option func(*Server)

func WithCorpus(c *Corpus) Option {
	return func(s *Server) {
		if c != nil {
			s.corpus = c
		}
	}
}

// WithDelay makes every /query wait d before answering.
func WithDelay(d time.Duration) Option {
	return func(s *Server) { s.delay = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.repo.now = now
		}
	}
}

func New(opts ...Option) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger())

	s := &Server{
		echo:   e,
		repo:   newRepository(time.Now),
		corpus: DefaultCorpus(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})
	s.echo.POST("/query", s.query)
	s.echo.GET("/conversations", s.listConversations)
	s.echo.GET("/conversations/:id", s.getConversation)
}

// ServeHTTP makes the server usable with httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		log.Info().Str("component", "devserver").Str("addr", addr).Msg("serving stand-in backend")
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "start server")
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}

func detail(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"detail": msg})
}

func (s *Server) query(c echo.Context) error {
	var req backend.QueryRequest
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusUnprocessableEntity, "malformed request body")
	}
	if strings.TrimSpace(req.Question) == "" {
		return detail(c, http.StatusBadRequest, "question must not be empty")
	}
	if req.NumResults <= 0 {
		req.NumResults = defaultNumResults
	}

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-c.Request().Context().Done():
			return c.Request().Context().Err()
		}
	}

	entry := s.corpus.Match(req.Question)
	if entry == nil {
		return detail(c, http.StatusNotFound, "No relevant video segments found for this question")
	}
	refs := entry.References
	if len(refs) > req.NumResults {
		refs = refs[:req.NumResults]
	}

	user := conversation.Message{Type: conversation.MessageTypeUser, Content: req.Question}
	assistant := conversation.Message{
		Type:              conversation.MessageTypeAssistant,
		Content:           strings.TrimSpace(entry.Answer),
		References:        refs,
		FollowUpQuestions: entry.FollowUpQuestions,
	}
	var id string
	if req.ConversationID != nil {
		id = *req.ConversationID
	}
	id, ok := s.repo.appendExchange(id, user, assistant)
	if !ok {
		return detail(c, http.StatusNotFound, notFoundDetail)
	}

	return c.JSON(http.StatusOK, backend.QueryResponse{
		ConversationID:    id,
		Answer:            assistant.Content,
		References:        refs,
		FollowUpQuestions: entry.FollowUpQuestions,
	})
}

func (s *Server) listConversations(c echo.Context) error {
	return c.JSON(http.StatusOK, s.repo.list())
}

func (s *Server) getConversation(c echo.Context) error {
	conv, ok := s.repo.get(c.Param("id"))
	if !ok {
		return detail(c, http.StatusNotFound, notFoundDetail)
	}
	return c.JSON(http.StatusOK, conv)
}

func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			log.Debug().
				Str("component", "devserver").
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Int("status", c.Response().Status).
				Str("request_id", c.Request().Header.Get("X-Request-ID")).
				Dur("took", time.Since(start)).
				Msg("request")
			return err
		}
	}
}
