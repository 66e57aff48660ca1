package devserver

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/go-go-golems/parliament-chat/pkg/conversation"
)

const notFoundDetail = "Conversation not found"

// repository is the in-memory conversation store behind the dev server.
// Conversations are copied in and out so handlers never share slices.
type repository struct {
	mu    sync.Mutex
	convs map[string]*conversation.Conversation
	now   func() time.Time
}

func newRepository(now func() time.Time) *repository {
	return &repository{convs: map[string]*conversation.Conversation{}, now: now}
}

// appendExchange records the question and its answer. An empty id creates a
// new conversation. It reports false for an unknown id.
func (r *repository) appendExchange(id string, user, assistant conversation.Message) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := conversation.FormatTimestamp(r.now())
	user.Timestamp = ts
	assistant.Timestamp = ts

	if id == "" {
		id = uuid.NewString()
		r.convs[id] = &conversation.Conversation{
			ConversationID: id,
			CreatedAt:      ts,
			UpdatedAt:      ts,
			Messages:       []conversation.Message{user, assistant},
		}
		return id, true
	}

	c, ok := r.convs[id]
	if !ok {
		return "", false
	}
	c.Messages = append(c.Messages, user, assistant)
	c.UpdatedAt = ts
	return id, true
}

func (r *repository) get(id string) (*conversation.Conversation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[id]
	if !ok {
		return nil, false
	}
	out := *c
	out.Messages = append([]conversation.Message(nil), c.Messages...)
	return &out, true
}

// summaryRow mirrors the list entries of the production backend, which ship
// the first message instead of a first_message field.
type summaryRow struct {
	ConversationID string                 `json:"conversation_id"`
	CreatedAt      string                 `json:"created_at"`
	UpdatedAt      string                 `json:"updated_at"`
	Messages       []conversation.Message `json:"messages"`
}

// list returns the most recently updated conversation first.
func (r *repository) list() []summaryRow {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := make([]summaryRow, 0, len(r.convs))
	for _, c := range r.convs {
		row := summaryRow{ConversationID: c.ConversationID, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
		if len(c.Messages) > 0 {
			row.Messages = []conversation.Message{c.Messages[0]}
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].UpdatedAt != rows[j].UpdatedAt {
			return rows[i].UpdatedAt > rows[j].UpdatedAt
		}
		return rows[i].ConversationID < rows[j].ConversationID
	})
	return rows
}
