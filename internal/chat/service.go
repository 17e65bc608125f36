// Package chat manages assistant conversations about the project portfolio.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/existflow/devpilot/internal/gemini"
	"github.com/existflow/devpilot/internal/insight"
	"github.com/existflow/devpilot/internal/localstate"
	"github.com/existflow/devpilot/internal/logger"
	"github.com/existflow/devpilot/internal/model"
	"github.com/google/uuid"
)

// DefaultTitle names sessions until their first exchange
const DefaultTitle = "New chat"

var (
	ErrSessionNotFound = errors.New("chat session not found")
	// ErrStaleReply is returned when the session a reply belongs to was
	// deleted, cleared or replaced while the request was in flight
	ErrStaleReply = errors.New("chat session changed while waiting for reply")
)

// Replies to notification requests
const (
	ScheduledReply = "Automatic notifications enabled. A portfolio analysis will be added to your notifications every morning. " +
		"You can still ask for one at any time by writing \"daily insight\"."
	GeneratedReply = "A new analysis of your projects has been added to your notifications. " +
		"Write \"schedule automatic notifications\" to get one every morning."
	FailedReply = "The daily analysis could not be generated. Check that the Gemini API key is configured and try again."
)

// Generator is the remote model used for replies
type Generator interface {
	Configured() bool
	GenerateFor(ctx context.Context, operation, prompt string, gc gemini.GenerationConfig) (string, error)
}

// InsightRunner runs the insight pipeline on demand
type InsightRunner interface {
	Run(ctx context.Context, trigger insight.Trigger) (*insight.Result, error)
}

// DailySwitch turns the daily schedule on or off
type DailySwitch interface {
	Enable(on bool) error
}

// Service holds chat sessions, newest first
type Service struct {
	mu       sync.Mutex
	state    localstate.Store
	gen      Generator
	insights InsightRunner
	daily    DailySwitch
	sessions []model.ChatSession
	current  string
	epoch    uint64
	now      func() time.Time
}

// NewService loads persisted sessions. Corrupt state starts empty.
func NewService(state localstate.Store, gen Generator, insights InsightRunner, daily DailySwitch) *Service {
	s := &Service{
		state:    state,
		gen:      gen,
		insights: insights,
		daily:    daily,
		now:      time.Now,
	}
	localstate.LoadJSON(state, localstate.KeyChatSessions, &s.sessions)
	if s.sessions == nil {
		s.sessions = []model.ChatSession{}
	}
	s.current = localstate.String(state, localstate.KeyCurrentSession, "")
	if s.indexLocked(s.current) < 0 {
		s.current = ""
	}
	return s
}

// SetClock replaces the time source
func (s *Service) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// NewSession creates a session, makes it current and returns it
func (s *Service) NewSession(title, projectID string) (model.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newSessionLocked(title, projectID)
}

func (s *Service) newSessionLocked(title, projectID string) (model.ChatSession, error) {
	if title == "" {
		title = DefaultTitle
	}
	now := s.now()
	sess := model.ChatSession{
		ID:        uuid.New().String(),
		Title:     title,
		Messages:  []model.ChatMessage{},
		CreatedAt: now,
		UpdatedAt: now,
		ProjectID: projectID,
	}
	s.current = sess.ID
	err := s.commitLocked(func(sessions []model.ChatSession) ([]model.ChatSession, error) {
		return append([]model.ChatSession{sess}, sessions...), nil
	})
	return sess, err
}

// Sessions returns a copy of all sessions, newest first
func (s *Service) Sessions() []model.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ChatSession, len(s.sessions))
	for i, sess := range s.sessions {
		out[i] = cloneSession(sess)
	}
	return out
}

// Session returns one session by id or unique id prefix
func (s *Service) Session(ref string) (model.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.resolveLocked(ref)
	if err != nil {
		return model.ChatSession{}, err
	}
	return cloneSession(s.sessions[i]), nil
}

// Current returns the current session
func (s *Service) Current() (model.ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(s.current)
	if i < 0 {
		return model.ChatSession{}, false
	}
	return cloneSession(s.sessions[i]), true
}

// SetCurrent selects the session messages are sent to
func (s *Service) SetCurrent(ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.resolveLocked(ref)
	if err != nil {
		return err
	}
	id := s.sessions[i].ID
	prev := s.current
	s.current = id
	err = s.commitLocked(func(sessions []model.ChatSession) ([]model.ChatSession, error) {
		if indexOf(sessions, id) < 0 {
			return nil, ErrSessionNotFound
		}
		return sessions, nil
	})
	if errors.Is(err, ErrSessionNotFound) {
		s.current = prev
	}
	return err
}

// DeleteSession removes a session
func (s *Service) DeleteSession(ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.resolveLocked(ref)
	if err != nil {
		return err
	}
	id := s.sessions[i].ID
	if id == s.current {
		s.current = ""
	}
	s.epoch++
	return s.commitLocked(func(sessions []model.ChatSession) ([]model.ChatSession, error) {
		if j := indexOf(sessions, id); j >= 0 {
			sessions = append(sessions[:j], sessions[j+1:]...)
		}
		return sessions, nil
	})
}

// ClearCurrent empties the messages of the current session
func (s *Service) ClearCurrent() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.current
	if s.indexLocked(id) < 0 {
		return nil
	}
	now := s.now()
	s.epoch++
	return s.commitLocked(func(sessions []model.ChatSession) ([]model.ChatSession, error) {
		if j := indexOf(sessions, id); j >= 0 {
			sessions[j].Messages = []model.ChatMessage{}
			sessions[j].UpdatedAt = now
		}
		return sessions, nil
	})
}

// Export returns every session as indented JSON
func (s *Service) Export() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.MarshalIndent(s.sessions, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Import replaces every session with the exported JSON in data.
// Invalid input leaves the current sessions untouched.
func (s *Service) Import(data string) error {
	var sessions []model.ChatSession
	if err := json.Unmarshal([]byte(data), &sessions); err != nil {
		return fmt.Errorf("invalid chat export: %w", err)
	}
	for i := range sessions {
		if sessions[i].ID == "" {
			sessions[i].ID = uuid.New().String()
		}
		if sessions[i].Messages == nil {
			sessions[i].Messages = []model.ChatMessage{}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	return s.commitLocked(func([]model.ChatSession) ([]model.ChatSession, error) {
		return sessions, nil
	})
}

// Send posts message to the current session, creating one if needed, and
// returns the assistant's reply. Requests for the daily analysis are
// handled directly and are not recorded in the session. On failure
// nothing is recorded.
func (s *Service) Send(ctx context.Context, message string, projects []model.Project, projectContext string) (string, error) {
	if !s.gen.Configured() {
		return "", &gemini.ConfigurationError{Reason: "no API key configured"}
	}

	s.mu.Lock()
	i := s.indexLocked(s.current)
	if i < 0 {
		if _, err := s.newSessionLocked("", projectContext); err != nil {
			logger.Warn("Failed to save new chat session", logger.Err(err))
		}
		i = s.indexLocked(s.current)
		if i < 0 {
			s.mu.Unlock()
			return "", ErrSessionNotFound
		}
	}

	if IsNotificationRequest(message) {
		s.mu.Unlock()
		return s.handleNotificationRequest(ctx, message), nil
	}

	sess := s.sessions[i]
	userMsg := model.ChatMessage{
		ID:             uuid.New().String(),
		Role:           model.RoleUser,
		Content:        message,
		Timestamp:      s.now(),
		ProjectContext: projectContext,
	}
	history := append(cloneSession(sess).Messages, userMsg)
	sessionID := sess.ID
	epoch := s.epoch
	prompt := buildContextPrompt(message, projects, projectContext, history)
	s.mu.Unlock()

	reply, genErr := s.gen.GenerateFor(ctx, "chat", prompt, gemini.CreativeGeneration)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch || s.indexLocked(sessionID) < 0 {
		logger.Debug("Discarding stale chat reply", logger.F("session", sessionID))
		return "", ErrStaleReply
	}
	if genErr != nil {
		return "", genErr
	}

	now := s.now()
	assistantMsg := model.ChatMessage{
		ID:        uuid.New().String(),
		Role:      model.RoleAssistant,
		Content:   reply,
		Timestamp: now,
	}
	err := s.commitLocked(func(sessions []model.ChatSession) ([]model.ChatSession, error) {
		j := indexOf(sessions, sessionID)
		if j < 0 {
			return nil, ErrStaleReply
		}
		sess := &sessions[j]
		sess.Messages = append(sess.Messages, userMsg, assistantMsg)
		sess.UpdatedAt = now
		if len(sess.Messages) == 2 {
			sess.Title = sessionTitle(message)
		}
		return sessions, nil
	})
	if errors.Is(err, ErrStaleReply) {
		logger.Debug("Discarding reply for session deleted elsewhere", logger.F("session", sessionID))
		return "", err
	}
	if err != nil {
		return reply, err
	}
	return reply, nil
}

func (s *Service) handleNotificationRequest(ctx context.Context, message string) string {
	if isScheduleRequest(message) {
		if err := s.daily.Enable(true); err != nil {
			logger.Error("Failed to enable daily insights", logger.Err(err))
			return FailedReply
		}
		return ScheduledReply
	}
	if _, err := s.insights.Run(ctx, insight.TriggerChat); err != nil {
		logger.Error("Chat-triggered insight run failed", logger.Err(err))
		return FailedReply
	}
	return GeneratedReply
}

func (s *Service) indexLocked(id string) int {
	return indexOf(s.sessions, id)
}

func indexOf(sessions []model.ChatSession, id string) int {
	if id == "" {
		return -1
	}
	for i := range sessions {
		if sessions[i].ID == id {
			return i
		}
	}
	return -1
}

// resolveLocked matches an exact id first, then a unique prefix
func (s *Service) resolveLocked(ref string) (int, error) {
	if i := s.indexLocked(ref); i >= 0 {
		return i, nil
	}
	found := -1
	for i := range s.sessions {
		if ref != "" && len(s.sessions[i].ID) >= len(ref) && s.sessions[i].ID[:len(ref)] == ref {
			if found >= 0 {
				return -1, fmt.Errorf("session reference %q is ambiguous", ref)
			}
			found = i
		}
	}
	if found < 0 {
		return -1, ErrSessionNotFound
	}
	return found, nil
}

// commitLocked applies fn to the sessions as currently persisted, so
// exchanges saved by other processes are kept, and adopts the result.
// When local state cannot be read fn is applied to the cached sessions.
func (s *Service) commitLocked(fn func(sessions []model.ChatSession) ([]model.ChatSession, error)) error {
	applied := false
	var opErr error
	err := localstate.UpdateJSON(s.state, localstate.KeyChatSessions, func(sessions *[]model.ChatSession) error {
		if *sessions == nil {
			*sessions = []model.ChatSession{}
		}
		next, err := fn(*sessions)
		if err != nil {
			opErr = err
			return err
		}
		*sessions = next
		s.sessions = next
		applied = true
		return nil
	})
	if opErr != nil {
		return opErr
	}
	if !applied {
		cached := make([]model.ChatSession, len(s.sessions))
		for i, sess := range s.sessions {
			cached[i] = cloneSession(sess)
		}
		next, fnErr := fn(cached)
		if fnErr != nil {
			return fnErr
		}
		s.sessions = next
	}
	if s.indexLocked(s.current) < 0 {
		s.current = ""
	}
	if err != nil {
		return fmt.Errorf("failed to save chat sessions: %w", err)
	}
	if err := s.state.Set(localstate.KeyCurrentSession, s.current); err != nil {
		return fmt.Errorf("failed to save current session: %w", err)
	}
	return nil
}

func cloneSession(sess model.ChatSession) model.ChatSession {
	msgs := make([]model.ChatMessage, len(sess.Messages))
	copy(msgs, sess.Messages)
	sess.Messages = msgs
	return sess
}
