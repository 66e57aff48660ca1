// Package chat reconciles the optimistic, locally displayed side of a
// question/answer exchange with the conversation history confirmed by the
// backend.
//
// All state lives in a single State value owned by a Session. It only changes
// through State.Apply, one Event at a time. Events that complete asynchronous
// work carry the ticket or load sequence they were started with and are
// dropped when their conversation is no longer the active one. An exchange
// left behind by a switch keeps running and reappears when the user returns
// to its conversation.
package chat

import (
	"time"

	"github.com/go-go-golems/parliament-chat/pkg/conversation"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSubmitting
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSubmitting:
		return "submitting"
	}
	return "unknown"
}

// Ticket identifies one exchange and the conversation it was sent for.
type Ticket struct {
	Seq      uint64
	Target   conversation.ID
	Question string
}

// parkedExchange is an exchange still in flight for a conversation the user
// switched away from.
type parkedExchange struct {
	ticket Ticket
	buffer Buffer
}

type State struct {
	// Version increases with every applied event.
	Version uint64

	Summaries []conversation.Summary
	// Active is the server-confirmed history of the active conversation. It
	// may be nil while ActiveID is set, when the id was assigned but the
	// history could not be fetched yet.
	Active   *conversation.Conversation
	ActiveID conversation.ID

	Buffer  Buffer
	Phase   Phase
	Pending *Ticket

	// Epoch changes whenever the active conversation context changes.
	Epoch       uint64
	exchangeSeq uint64
	LoadSeq     uint64

	// parked exchanges resume when their conversation becomes active again.
	parked []parkedExchange
	// resumeSeq is the load sequence of the startup resume load.
	resumeSeq uint64

	// Notice is the last non-blocking error worth showing to the user.
	Notice string
}

type Event interface {
	Name() string
}

// Submitted starts an exchange with Question.
type Submitted struct {
	Question string
	At       time.Time
}

// ResponseReceived installs the refreshed conversation of a finished exchange.
type ResponseReceived struct {
	Ticket       Ticket
	Conversation *conversation.Conversation
}

// ResponseFailed ends an exchange on the transport-failure path. AssignedID is
// set when the backend recorded the exchange but its history could not be
// loaded.
type ResponseFailed struct {
	Ticket     Ticket
	Text       string
	Err        error
	AssignedID conversation.ID
	At         time.Time
}

// ResponseArrived is dispatched when the backend answered, before the
// history is fetched. It reports Stale when the exchange no longer belongs to
// the active conversation.
type ResponseArrived struct {
	Ticket Ticket
}

// LoadStarted reserves a load sequence number. Resume marks the automatic
// load of the conversation remembered from the last run; it gives way to
// anything the user starts before it completes.
type LoadStarted struct {
	Resume bool
}

type ConversationLoaded struct {
	Seq          uint64
	Conversation *conversation.Conversation
}

type LoadFailed struct {
	Seq  uint64
	Text string
}

// ConversationCleared returns to the "no conversation selected" state.
type ConversationCleared struct{}

type SummariesLoaded struct {
	Summaries []conversation.Summary
}

type SummariesFailed struct {
	Text string
}

func (Submitted) Name() string           { return "submitted" }
func (ResponseReceived) Name() string    { return "response-received" }
func (ResponseFailed) Name() string      { return "response-failed" }
func (ResponseArrived) Name() string     { return "response-arrived" }
func (LoadStarted) Name() string         { return "load-started" }
func (ConversationLoaded) Name() string  { return "conversation-loaded" }
func (LoadFailed) Name() string          { return "load-failed" }
func (ConversationCleared) Name() string { return "conversation-cleared" }
func (SummariesLoaded) Name() string     { return "summaries-loaded" }
func (SummariesFailed) Name() string     { return "summaries-failed" }

// Result tells the dispatcher what Apply did with an event.
type Result struct {
	Applied bool
	// Reason explains why an event was not applied.
	Reason string
	// Ticket is set for an accepted Submitted event.
	Ticket Ticket
	// LoadSeq is set for LoadStarted.
	LoadSeq uint64
	// Stale is set when a finished exchange was not applied because its
	// conversation is no longer active.
	Stale bool
}

func skipped(reason string) Result { return Result{Reason: reason} }

// Apply is the pure transition function. s is a value; the returned State
// shares no mutable storage with it that Apply writes to.
func (s State) Apply(ev Event) (State, Result) {
	var res Result
	switch e := ev.(type) {
	case Submitted:
		if s.Phase != PhaseIdle {
			return s, skipped("exchange in flight")
		}
		if _, _, err := s.Buffer.Begin(e.Question, e.At); err != nil {
			return s, skipped(err.Error())
		}
		s.exchangeSeq++
		t := Ticket{Seq: s.exchangeSeq, Target: s.ActiveID, Question: e.Question}
		s.Phase = PhaseSubmitting
		s.Pending = &t
		res.Ticket = t

	case ResponseArrived:
		if s.isCurrent(e.Ticket) {
			return s, Result{}
		}
		return s.settleStale(e.Ticket)

	case ResponseReceived:
		if !s.isCurrent(e.Ticket) {
			return s.settleStale(e.Ticket)
		}
		s.Active = e.Conversation
		s.ActiveID = e.Conversation.ID()
		s.Buffer.ResolveSuccess()
		s.Phase = PhaseIdle
		s.Pending = nil
		s.Notice = ""

	case ResponseFailed:
		if !s.isCurrent(e.Ticket) {
			return s.settleStale(e.Ticket)
		}
		if s.ActiveID.IsNone() && !e.AssignedID.IsNone() {
			s.ActiveID = e.AssignedID
		}
		s.Buffer.ResolveFailure(e.Text, e.At)
		s.Phase = PhaseIdle
		s.Pending = nil

	case LoadStarted:
		s.LoadSeq++
		if e.Resume {
			s.resumeSeq = s.LoadSeq
		}
		res.LoadSeq = s.LoadSeq

	case ConversationLoaded:
		if e.Seq != s.LoadSeq {
			return s, skipped("superseded load")
		}
		if s.resumeOvertaken(e.Seq) {
			return s, skipped("resume overtaken by a new exchange")
		}
		id := e.Conversation.ID()
		if id.Equal(s.ActiveID) {
			s.stayInContext()
		} else {
			s.switchContext(id)
		}
		s.Active = e.Conversation
		s.ActiveID = id
		s.Notice = ""

	case LoadFailed:
		if e.Seq != s.LoadSeq {
			return s, skipped("superseded load")
		}
		if s.resumeOvertaken(e.Seq) {
			return s, skipped("resume overtaken by a new exchange")
		}
		s.Notice = e.Text

	case ConversationCleared:
		s.LoadSeq++
		if s.ActiveID.IsNone() {
			s.stayInContext()
		} else {
			s.switchContext(conversation.NoID())
		}
		s.Active = nil
		s.ActiveID = conversation.NoID()
		s.Notice = ""

	case SummariesLoaded:
		s.Summaries = e.Summaries

	case SummariesFailed:
		s.Notice = e.Text

	default:
		return s, skipped("unknown event")
	}
	s.Version++
	res.Applied = true
	return s, res
}

// stayInContext refreshes the active conversation in place. An exchange in
// flight keeps running; a failed one on display is dropped.
func (s *State) stayInContext() {
	if s.Phase == PhaseIdle {
		s.Buffer.Reset()
	}
}

// switchContext parks the exchange in flight for the conversation being left
// and resumes the one parked for to, if any.
func (s *State) switchContext(to conversation.ID) {
	s.Epoch++

	parked := make([]parkedExchange, 0, len(s.parked)+1)
	var resumed *parkedExchange
	for i := range s.parked {
		if resumed == nil && s.parked[i].ticket.Target.Equal(to) {
			p := s.parked[i]
			resumed = &p
			continue
		}
		parked = append(parked, s.parked[i])
	}
	if s.Phase == PhaseSubmitting && s.Pending != nil {
		parked = append(parked, parkedExchange{ticket: *s.Pending, buffer: s.Buffer})
	}
	s.parked = parked

	s.Buffer.Reset()
	s.Phase = PhaseIdle
	s.Pending = nil
	if resumed != nil {
		t := resumed.ticket
		s.Buffer = resumed.buffer
		s.Phase = PhaseSubmitting
		s.Pending = &t
	}
}

// settleStale forgets a parked exchange that finished while its conversation
// was not shown. Nothing visible changes.
func (s State) settleStale(t Ticket) (State, Result) {
	if len(s.parked) > 0 {
		parked := make([]parkedExchange, 0, len(s.parked))
		for _, p := range s.parked {
			if p.ticket.Seq != t.Seq {
				parked = append(parked, p)
			}
		}
		s.parked = parked
	}
	res := skipped("stale response")
	res.Stale = true
	return s, res
}

// resumeOvertaken reports whether the user acted before the resume load
// with sequence seq completed: any exchange, or any earlier load or clear.
func (s State) resumeOvertaken(seq uint64) bool {
	return seq == s.resumeSeq && (s.exchangeSeq > 0 || s.resumeSeq > 1)
}

func (s State) isCurrent(t Ticket) bool {
	return s.Phase == PhaseSubmitting &&
		s.Pending != nil &&
		s.Pending.Seq == t.Seq &&
		s.ActiveID.Equal(t.Target)
}
