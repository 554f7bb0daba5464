package convo

import (
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/flowdeck/agentcore/internal/idgen"
	"github.com/flowdeck/agentcore/pkg/event"
)

// ErrArchived is returned by any mutation attempted on an archived session,
// per spec §4.1: "rejects further mutations other than summary reads."
var ErrArchived = fmt.Errorf("session: archived sessions accept only reads")

// ErrPartNotFound is returned by UpdatePart for an unknown part id.
var ErrPartNotFound = fmt.Errorf("session: part not found")

// now is overridable in tests; production code always uses time.Now.
var now = time.Now

// StateConfig configures a State.
type StateConfig struct {
	Bus *event.Bus // optional; nil disables publishing
}

// State is the in-memory Session State collaborator (spec §4.1): it holds
// every live Session this process owns and enforces CRUD invariants.
// Exactly one orchestrator task mutates a given session at a time (spec
// §5), but State itself is safe to call from several goroutines (e.g. a
// read from an HTTP handler racing a write from the streaming loop).
type State struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	bus      *event.Bus
}

// NewState creates an empty State.
func NewState(cfg StateConfig) *State {
	return &State{
		sessions: make(map[string]*Session),
		bus:      cfg.Bus,
	}
}

func (s *State) publish(eventType, sessionID string, before, after any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventType, sessionID, map[string]any{
		"before": before,
		"after":  after,
	})
}

var forkSuffix = regexp.MustCompile(`\(fork #(\d+)\)$`)

// Create starts a new Session, or forks one if parent is non-nil. A forked
// session inherits project/directory and gets a title
// `"{parent.title} (fork #N)"` for the smallest unused N within the
// parent's chain of existing forks (spec §4.1).
func (s *State) Create(project, directory string, parent *Session) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := now()
	sess := &Session{
		ID:        idgen.Session(),
		Project:   project,
		Directory: directory,
		Created:   ts,
		Updated:   ts,
		Status:    StatusActive,
	}

	if parent != nil {
		sess.ParentID = parent.ID
		sess.Project = parent.Project
		sess.Directory = parent.Directory
		sess.Title = s.nextForkTitle(parent)
	}

	s.sessions[sess.ID] = sess
	s.publish(event.TypeStateChange, sess.ID, nil, sess)
	return sess
}

// nextForkTitle finds the smallest positive N producing an unused
// "{base} (fork #N)" title among this parent's existing forks. Caller
// holds s.mu.
func (s *State) nextForkTitle(parent *Session) string {
	base := parent.Title
	if m := forkSuffix.FindStringSubmatch(base); m != nil {
		base = base[:len(base)-len(m[0])]
		base = regexp.MustCompile(`\s+$`).ReplaceAllString(base, "")
	}
	if base == "" {
		base = parent.ID
	}

	used := map[int]bool{}
	for _, sess := range s.sessions {
		if sess.ParentID != parent.ID {
			continue
		}
		if m := forkSuffix.FindStringSubmatch(sess.Title); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				used[n] = true
			}
		}
	}
	n := 1
	for used[n] {
		n++
	}
	return fmt.Sprintf("%s (fork #%d)", base, n)
}

// Get returns the session with the given id, or nil.
func (s *State) Get(sessionID string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[sessionID]
}

// Put registers a Session obtained from outside State (e.g. restored from
// the persistence boundary) so subsequent mutations flow through the same
// invariant checks.
func (s *State) Put(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
}

// List returns every live session, in no particular order.
func (s *State) List() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

// AppendMessage creates a Message owned by session with the given initial
// parts, assigns fresh part ids to any that are blank, stamps the
// session's updated time, and publishes a state-change.
func (s *State) AppendMessage(sess *Session, role Role, initialParts []Part) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.Status == StatusArchived {
		return nil, ErrArchived
	}

	for _, p := range initialParts {
		assignPartID(p)
	}

	msg := &Message{
		ID:      idgen.Message(),
		Role:    role,
		Parts:   initialParts,
		Created: now(),
	}
	sess.Messages = append(sess.Messages, msg)
	s.touch(sess)
	s.publish(event.TypeStateChange, sess.ID, nil, msg)
	return msg, nil
}

// AppendPart appends a new part to an already-open message, assigning it
// a fresh id if blank.
func (s *State) AppendPart(sess *Session, msg *Message, p Part) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.Status == StatusArchived {
		return ErrArchived
	}
	assignPartID(p)
	msg.AppendPart(p)
	s.touch(sess)
	s.publish(event.TypeStateChange, sess.ID, nil, p)
	return nil
}

func assignPartID(p Part) {
	if p.GetID() == "" {
		switch v := p.(type) {
		case *TextPart:
			v.ID = idgen.Part()
		case *ReasoningPart:
			v.ID = idgen.Part()
		case *ToolCallPart:
			v.ID = idgen.Part()
		case *ToolResultPart:
			v.ID = idgen.Part()
		case *StepStartPart:
			v.ID = idgen.Part()
		case *StepFinishPart:
			v.ID = idgen.Part()
		case *FilePart:
			v.ID = idgen.Part()
		case *ImagePart:
			v.ID = idgen.Part()
		case *SnapshotPart:
			v.ID = idgen.Part()
		case *PatchPart:
			v.ID = idgen.Part()
		case *AgentPart:
			v.ID = idgen.Part()
		case *SubtaskPart:
			v.ID = idgen.Part()
		case *RetryPart:
			v.ID = idgen.Part()
		case *CompactionPart:
			v.ID = idgen.Part()
		}
	}
}

// UpdatePart replaces the part with partID inside msg with newState,
// enforcing the ToolCall transition table from §4.3: Pending may move to
// Running or Error; Running may move to Completed or Error; Completed and
// Error are terminal.
func (s *State) UpdatePart(sess *Session, msg *Message, partID string, newState Part) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.Status == StatusArchived {
		return ErrArchived
	}

	for i, p := range msg.Parts {
		if p.GetID() != partID {
			continue
		}
		if oldTC, ok := p.(*ToolCallPart); ok {
			newTC, ok := newState.(*ToolCallPart)
			if !ok {
				return fmt.Errorf("session: cannot replace ToolCallPart %s with a different variant", partID)
			}
			if err := validateToolCallTransition(oldTC.Status, newTC.Status); err != nil {
				return err
			}
		}
		msg.Parts[i] = newState
		s.touch(sess)
		s.publish(event.TypeStateChange, sess.ID, p, newState)
		return nil
	}
	return ErrPartNotFound
}

func validateToolCallTransition(from, to ToolCallStatus) error {
	if from == to {
		return nil
	}
	switch from {
	case ToolCallPending:
		if to == ToolCallRunning || to == ToolCallError {
			return nil
		}
	case ToolCallRunning:
		if to == ToolCallCompleted || to == ToolCallError {
			return nil
		}
	case ToolCallCompleted, ToolCallError:
		return fmt.Errorf("session: tool call status %q is terminal, cannot move to %q", from, to)
	}
	return fmt.Errorf("session: invalid tool call transition %q -> %q", from, to)
}

// SetRevert installs anchor as the session's pending revert pointer.
func (s *State) SetRevert(sess *Session, anchor *RevertAnchor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.Status == StatusArchived {
		return ErrArchived
	}
	sess.Revert = anchor
	s.touch(sess)
	s.publish(event.TypeStateChange, sess.ID, nil, anchor)
	return nil
}

// ClearRevert drops the session's pending revert pointer.
func (s *State) ClearRevert(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.Status == StatusArchived {
		return ErrArchived
	}
	sess.Revert = nil
	s.touch(sess)
	return nil
}

// BeginCompacting marks the session Compacting and stamps the compacting
// timestamp (spec §4.6 step 1).
func (s *State) BeginCompacting(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.Status = StatusCompacting
	sess.Compacting = now()
	s.touch(sess)
	s.publish(event.TypeSessionCompacting, sess.ID, nil, sess)
}

// EndCompacting clears the compacting timestamp and returns the session to
// Active (spec §4.6 step 5).
func (s *State) EndCompacting(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.Status = StatusActive
	sess.Compacting = time.Time{}
	s.touch(sess)
}

// Archive sets status=Archived and stamps the archived timestamp. Further
// mutations are rejected; reads remain available.
func (s *State) Archive(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.Status = StatusArchived
	sess.Archived = now()
	s.touch(sess)
	s.publish(event.TypeStateChange, sess.ID, nil, sess)
}

// touch stamps Updated and recomputes the session-level usage sum.
// Caller holds s.mu.
func (s *State) touch(sess *Session) {
	ts := now()
	if ts.Before(sess.Updated) {
		ts = sess.Updated // P1: updated is non-decreasing
	}
	sess.Updated = ts

	var sum Usage
	for _, m := range sess.Messages {
		sum = sum.Add(m.Usage)
	}
	sess.Usage = sum
}

// CheckInvariants audits a session against spec §8's P1-P3 for tests and
// debugging: every committed ToolCall has exactly one matching ToolResult
// later in message order, and usage sums agree.
func CheckInvariants(sess *Session) error {
	if sess.Updated.Before(sess.Created) {
		return fmt.Errorf("session %s: updated %v before created %v", sess.ID, sess.Updated, sess.Created)
	}

	resultsSeen := map[string]int{}
	for mi := len(sess.Messages) - 1; mi >= 0; mi-- {
		for _, p := range sess.Messages[mi].Parts {
			if tr, ok := p.(*ToolResultPart); ok {
				resultsSeen[tr.CallID]++
			}
		}
	}

	for _, m := range sess.Messages {
		for _, p := range m.Parts {
			tc, ok := p.(*ToolCallPart)
			if !ok || tc.Status == ToolCallPending {
				continue
			}
			if resultsSeen[tc.CallID] != 1 {
				return fmt.Errorf("session %s: tool call %s has %d matching results, want 1", sess.ID, tc.CallID, resultsSeen[tc.CallID])
			}
		}
	}

	var sum Usage
	for _, m := range sess.Messages {
		sum = sum.Add(m.Usage)
	}
	if sum != sess.Usage {
		return fmt.Errorf("session %s: usage %+v does not equal sum of message usages %+v", sess.ID, sess.Usage, sum)
	}
	return nil
}
