package chat

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/parliament-chat/pkg/conversation"
)

// ResumeStore keeps what the client needs to pick up where it left off.
type ResumeStore interface {
	SaveActive(ctx context.Context, id conversation.ID) error
	SaveSummaries(ctx context.Context, summaries []conversation.Summary) error
}

const resumeWriteTimeout = 2 * time.Second

// NewResumeListener records the active conversation id and the latest
// conversation list. Writes are best-effort and older versions never
// overwrite newer ones.
func NewResumeListener(store ResumeStore) Listener {
	var (
		mu          sync.Mutex
		lastVersion uint64
		lastActive  = conversation.NoID()
	)
	return func(ch Change) {
		mu.Lock()
		defer mu.Unlock()
		if ch.State.Version <= lastVersion {
			return
		}
		lastVersion = ch.State.Version

		ctx, cancel := context.WithTimeout(context.Background(), resumeWriteTimeout)
		defer cancel()

		// starting without a conversation must not forget the one to resume
		if !lastActive.Equal(ch.State.ActiveID) {
			if err := store.SaveActive(ctx, ch.State.ActiveID); err != nil {
				log.Warn().Err(err).Str("component", "resume").Msg("failed to record active conversation")
			} else {
				lastActive = ch.State.ActiveID
			}
		}
		if _, ok := ch.Event.(SummariesLoaded); ok {
			if err := store.SaveSummaries(ctx, ch.State.Summaries); err != nil {
				log.Warn().Err(err).Str("component", "resume").Msg("failed to cache conversation list")
			}
		}
	}
}
