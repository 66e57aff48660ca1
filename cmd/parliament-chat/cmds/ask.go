package cmds

import (
	"context"
	"fmt"
	"io"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/pkg/errors"

	"github.com/go-go-golems/parliament-chat/pkg/chat"
	"github.com/go-go-golems/parliament-chat/pkg/conversation"
)

type AskCommand struct {
	*cmds.CommandDescription
}

var _ cmds.WriterCommand = (*AskCommand)(nil)

type AskSettings struct {
	Question       string `glazed:"question"`
	ConversationID string `glazed:"conversation-id"`
}

func NewAskCommand() (*AskCommand, error) {
	backendSection, err := NewBackendSection()
	if err != nil {
		return nil, err
	}
	return &AskCommand{
		CommandDescription: cmds.NewCommandDescription(
			"ask",
			cmds.WithShort("Ask a single question and print the answer"),
			cmds.WithLong("Runs one exchange against the backend, optionally continuing an existing conversation, and prints the answer with its references and follow-up questions."),
			cmds.WithArguments(
				fields.New("question", fields.TypeString,
					fields.WithHelp("Question to ask"),
					fields.WithRequired(true)),
			),
			cmds.WithFlags(
				fields.New("conversation-id", fields.TypeString,
					fields.WithDefault(""),
					fields.WithHelp("Continue this conversation instead of starting a new one")),
			),
			cmds.WithSections(backendSection),
		),
	}, nil
}

func (c *AskCommand) RunIntoWriter(ctx context.Context, parsedLayers *values.Values, w io.Writer) error {
	s := &AskSettings{}
	if err := parsedLayers.DecodeSectionInto(values.DefaultSlug, s); err != nil {
		return errors.Wrap(err, "decode ask settings")
	}
	bs, err := decodeBackend(parsedLayers)
	if err != nil {
		return err
	}
	client, err := bs.Client()
	if err != nil {
		return err
	}

	session := chat.NewSession()
	store := chat.NewStore(session, client, bs.StoreOptions()...)
	ctrl := chat.NewController(store, bs.ControllerOptions()...)

	if s.ConversationID != "" {
		if _, err := store.Load(ctx, conversation.SomeID(s.ConversationID)); err != nil {
			return err
		}
	}
	if !ctrl.Submit(ctx, s.Question) {
		return errors.Errorf("question must be non-empty and at most %d characters", chat.MaxQuestionLength)
	}
	ctrl.Wait()

	st := session.Snapshot()
	if _, failed := st.Buffer.FailedQuestion(); failed {
		msgs := st.Buffer.Messages()
		return errors.New(msgs[len(msgs)-1].Content)
	}
	return printAnswer(w, chat.Project(st))
}

func printAnswer(w io.Writer, v chat.View) error {
	var answer *conversation.Message
	for i := len(v.Messages) - 1; i >= 0; i-- {
		if v.Messages[i].Type == conversation.MessageTypeAssistant {
			answer = &v.Messages[i]
			break
		}
	}
	if answer == nil {
		return errors.New("backend returned no answer")
	}

	_, _ = fmt.Fprintln(w, answer.Content)
	if len(answer.References) > 0 {
		_, _ = fmt.Fprintln(w, "\nReferences:")
		for _, r := range answer.References {
			title := r.VideoTitle
			if title == "" {
				title = r.VideoID()
			}
			_, _ = fmt.Fprintf(w, "  - %s @ %s (%s)\n", title, r.Timestamp, r.VideoURL)
		}
	}
	if v.SuggestionsRelated {
		_, _ = fmt.Fprintln(w, "\nFollow-up questions:")
		for _, q := range v.Suggestions {
			_, _ = fmt.Fprintf(w, "  - [%s] %s\n", q.ParsedCategory(), q.Text)
		}
	}
	if id, ok := v.ActiveID.Get(); ok {
		_, _ = fmt.Fprintf(w, "\nconversation: %s\n", id)
	}
	return nil
}
