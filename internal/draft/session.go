// Package draft owns the authoritative document and the pending-edit
// lifecycle. A single session goroutine holds all mutable state; assistant
// tool handlers and API handlers reach it only through bus events or the
// synchronous command methods.
package draft

import (
	"time"

	"github.com/google/uuid"

	"github.com/fenwick/draftpilot/internal/bus"
	"github.com/fenwick/draftpilot/internal/diff"
	"github.com/fenwick/draftpilot/internal/editop"
	"github.com/fenwick/draftpilot/internal/reveal"
)

// State is the pending-edit machine state.
type State int

const (
	Idle State = iota
	Previewing
)

func (s State) String() string {
	if s == Previewing {
		return "previewing"
	}
	return "idle"
}

// PendingEdit is one uncommitted proposed transformation. Source is the
// document value the target was computed from; at most one PendingEdit
// exists at any time.
type PendingEdit struct {
	ID     string    `json:"id"`
	Op     editop.Op `json:"-"`
	OpName string    `json:"operation"`
	Source string    `json:"source"`
	Target string    `json:"target"`
}

// Snapshot is a point-in-time view of session state.
type Snapshot struct {
	Document string       `json:"document"`
	State    State        `json:"-"`
	Pending  *PendingEdit `json:"pending,omitempty"`
}

// PreviewPayload announces a new or superseding preview on the bus.
type PreviewPayload struct {
	ID        string `json:"id"`
	Operation string `json:"operation"`
	Source    string `json:"source"`
	Target    string `json:"target"`
}

// FramePayload is one reveal frame on the bus. Rendered is a display string
// carrying the truncation marker when the alignment was bounded.
type FramePayload struct {
	ID       string     `json:"id"`
	Partial  string     `json:"partial"`
	Runs     []diff.Run `json:"runs"`
	Rendered string     `json:"rendered"`
	Done     bool       `json:"done"`
}

// ConfirmPayload reports a committed preview on the bus.
type ConfirmPayload struct {
	ID       string `json:"id"`
	Document string `json:"document"`
}

// DocumentPayload announces a committed document value on the bus.
type DocumentPayload struct {
	Document string `json:"document"`
	Origin   string `json:"origin"`
}

type cmdKind int

const (
	cmdEdit cmdKind = iota
	cmdConfirm
	cmdDiscard
	cmdSet
	cmdAppend
	cmdSnapshot
)

type command struct {
	kind  cmdKind
	op    editop.Op
	text  string
	reply chan result
}

type result struct {
	snap    Snapshot
	changed bool
}

// Session is the document view's state owner.
//
// Concurrency model: one loop goroutine owns document, pending edit, and the
// animator. Commands and bus events are serialized through the loop, so no
// mutexes are required and at most one animator ticks at any instant.
type Session struct {
	b    *bus.Bus
	sub  *bus.Subscription
	tick time.Duration

	cmdCh   chan command
	stopCh  chan struct{}
	stopped chan struct{}
}

// NewSession starts a session owning initial as the committed document.
// tick overrides the reveal interval; zero keeps the default.
func NewSession(b *bus.Bus, initial string, tick time.Duration) *Session {
	s := &Session{
		b: b,
		sub: b.Subscribe(
			bus.DraftUpdate, bus.DraftAppend, bus.EditApply,
			bus.EditConfirm, bus.EditDiscard,
		),
		tick:    tick,
		cmdCh:   make(chan command),
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.run(initial)
	return s
}

// Close stops the loop, cancels any active animator, and removes the bus
// subscription.
func (s *Session) Close() {
	select {
	case <-s.stopped:
		return
	default:
	}
	close(s.stopCh)
	<-s.stopped
	s.b.Unsubscribe(s.sub)
}

// RequestEdit computes the operation's target from the current document and
// starts (or supersedes) a preview. Unknown operations still preview; the
// diff simply shows no changes.
func (s *Session) RequestEdit(op editop.Op) Snapshot {
	r, _ := s.send(command{kind: cmdEdit, op: op})
	return r
}

// Confirm commits the pending target as the document. In Idle it is a no-op
// and reports false.
func (s *Session) Confirm() (Snapshot, bool) {
	return s.send(command{kind: cmdConfirm})
}

// Discard drops the pending edit, leaving the document at its pre-edit
// value. In Idle it is a no-op and reports false.
func (s *Session) Discard() (Snapshot, bool) {
	return s.send(command{kind: cmdDiscard})
}

// SetDocument replaces the document immediately, bypassing preview.
func (s *Session) SetDocument(text string) Snapshot {
	r, _ := s.send(command{kind: cmdSet, text: text})
	return r
}

// AppendDocument appends to the document immediately, bypassing preview.
func (s *Session) AppendDocument(text string) Snapshot {
	r, _ := s.send(command{kind: cmdAppend, text: text})
	return r
}

// Snapshot returns the current document and pending edit.
func (s *Session) Snapshot() Snapshot {
	r, _ := s.send(command{kind: cmdSnapshot})
	return r
}

func (s *Session) send(cmd command) (Snapshot, bool) {
	cmd.reply = make(chan result, 1)
	select {
	case s.cmdCh <- cmd:
	case <-s.stopped:
		return Snapshot{}, false
	}
	select {
	case r := <-cmd.reply:
		return r.snap, r.changed
	case <-s.stopped:
		return Snapshot{}, false
	}
}

// loopState is the state owned by the run goroutine.
type loopState struct {
	doc      string
	pending  *PendingEdit
	animator *reveal.Animator
	frames   <-chan reveal.Frame
}

func (s *Session) run(initial string) {
	defer close(s.stopped)

	st := &loopState{doc: initial}
	defer s.cancelAnimator(st)

	for {
		select {
		case <-s.stopCh:
			return

		case cmd := <-s.cmdCh:
			cmd.reply <- s.apply(st, cmd)

		case ev, ok := <-s.sub.C:
			if !ok {
				return
			}
			s.handleEvent(st, ev)

		case f, ok := <-st.frames:
			if !ok {
				// Animation finished; preview stays static awaiting
				// confirm or discard.
				st.frames = nil
				continue
			}
			s.publishFrame(st, f)
		}
	}
}

// handleEvent maps bus events onto commands. Malformed payloads no-op:
// tool handlers publish defensively and the view must never break on them.
func (s *Session) handleEvent(st *loopState, ev bus.Event) {
	switch ev.Name {
	case bus.DraftUpdate:
		if text, ok := textPayload(ev.Payload); ok {
			s.apply(st, command{kind: cmdSet, text: text})
		}
	case bus.DraftAppend:
		if text, ok := textPayload(ev.Payload); ok {
			s.apply(st, command{kind: cmdAppend, text: text})
		}
	case bus.EditApply:
		if name, ok := opPayload(ev.Payload); ok {
			s.apply(st, command{kind: cmdEdit, op: editop.Normalize(name)})
		}
	case bus.EditConfirm:
		s.apply(st, command{kind: cmdConfirm})
	case bus.EditDiscard:
		s.apply(st, command{kind: cmdDiscard})
	}
}

func (s *Session) apply(st *loopState, cmd command) result {
	switch cmd.kind {
	case cmdEdit:
		s.startPreview(st, cmd.op)
		return result{snap: s.snapshot(st), changed: true}

	case cmdConfirm:
		if st.pending == nil {
			return result{snap: s.snapshot(st)}
		}
		id := st.pending.ID
		st.doc = st.pending.Target
		s.clearPending(st)
		s.b.Publish(bus.EditConfirmed, ConfirmPayload{ID: id, Document: st.doc})
		s.b.Publish(bus.DraftUpdated, DocumentPayload{Document: st.doc, Origin: "confirm"})
		return result{snap: s.snapshot(st), changed: true}

	case cmdDiscard:
		if st.pending == nil {
			return result{snap: s.snapshot(st)}
		}
		id := st.pending.ID
		s.clearPending(st)
		s.b.Publish(bus.EditDiscarded, map[string]string{"id": id})
		return result{snap: s.snapshot(st), changed: true}

	case cmdSet:
		if cmd.text == st.doc && st.pending == nil {
			return result{snap: s.snapshot(st)}
		}
		s.clearPending(st)
		st.doc = cmd.text
		s.b.Publish(bus.DraftUpdated, DocumentPayload{Document: st.doc, Origin: "set"})
		return result{snap: s.snapshot(st), changed: true}

	case cmdAppend:
		s.clearPending(st)
		if st.doc == "" {
			st.doc = cmd.text
		} else {
			st.doc += "\n\n" + cmd.text
		}
		s.b.Publish(bus.DraftUpdated, DocumentPayload{Document: st.doc, Origin: "append"})
		return result{snap: s.snapshot(st), changed: true}

	default:
		return result{snap: s.snapshot(st)}
	}
}

// startPreview supersedes any in-flight preview: the target is recomputed
// against the current committed document, never the superseded target, so
// unconfirmed edits cannot compound.
func (s *Session) startPreview(st *loopState, op editop.Op) {
	s.cancelAnimator(st)

	pe := &PendingEdit{
		ID:     uuid.NewString(),
		Op:     op,
		OpName: op.String(),
		Source: st.doc,
		Target: editop.Apply(op, st.doc),
	}
	st.pending = pe
	st.animator = reveal.New(pe.Source, pe.Target, s.tick)
	st.frames = st.animator.Frames()

	s.b.Publish(bus.EditPreview, PreviewPayload{
		ID:        pe.ID,
		Operation: pe.OpName,
		Source:    pe.Source,
		Target:    pe.Target,
	})
}

func (s *Session) publishFrame(st *loopState, f reveal.Frame) {
	if st.pending == nil {
		return
	}
	rendered := diff.Pretty(st.pending.Source, f.Partial)
	if f.Truncated {
		rendered += diff.TruncationMarker
	}
	s.b.Publish(bus.EditFrame, FramePayload{
		ID:       st.pending.ID,
		Partial:  f.Partial,
		Runs:     f.Runs,
		Rendered: rendered,
		Done:     f.Done,
	})
}

// clearPending drops the pending edit and stops its animator.
func (s *Session) clearPending(st *loopState) {
	s.cancelAnimator(st)
	st.pending = nil
}

// cancelAnimator stops the active animator, waiting for its timer goroutine
// to exit so no two animators ever tick concurrently.
func (s *Session) cancelAnimator(st *loopState) {
	if st.animator != nil {
		st.animator.Stop()
		st.animator = nil
		st.frames = nil
	}
}

func (s *Session) snapshot(st *loopState) Snapshot {
	snap := Snapshot{Document: st.doc, State: Idle}
	if st.pending != nil {
		pe := *st.pending
		snap.Pending = &pe
		snap.State = Previewing
	}
	return snap
}

func textPayload(p any) (string, bool) {
	switch v := p.(type) {
	case string:
		return v, true
	case map[string]any:
		if s, ok := v["text"].(string); ok {
			return s, true
		}
	case DocumentPayload:
		return v.Document, true
	}
	return "", false
}

func opPayload(p any) (string, bool) {
	switch v := p.(type) {
	case string:
		return v, true
	case map[string]any:
		if s, ok := v["operation"].(string); ok {
			return s, true
		}
	}
	return "", false
}
