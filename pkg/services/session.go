package services

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/graphscout-inc/graphscout-engine/pkg/llm"
	"github.com/graphscout-inc/graphscout-engine/pkg/models"
)

// Session is one conversation against one graph backend: the transcript,
// the active query language, and the single retained result slot.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time

	mu       sync.Mutex
	language models.QueryLanguage
	history  []llm.Message
	result   *models.QueryResult
}

// NewSession creates an empty session targeting the given query language.
func NewSession(language models.QueryLanguage) *Session {
	return &Session{
		ID:        uuid.New(),
		CreatedAt: time.Now(),
		language:  language,
	}
}

// Language returns the active query language.
func (s *Session) Language() models.QueryLanguage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

// SetLanguage switches the generation target. The transcript and the
// retained result survive the switch.
func (s *Session) SetLanguage(language models.QueryLanguage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.language = language
}

// AppendTurn adds one message to the transcript.
func (s *Session) AppendTurn(msg llm.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, msg)
}

// History returns a copy of the last limit messages; limit <= 0 returns
// the whole transcript. When the cut lands between an assistant tool call
// and its results, the window advances past the orphaned tool messages so
// a replayed transcript never opens mid-exchange.
func (s *Session) History(limit int) []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := 0
	if limit > 0 && len(s.history) > limit {
		start = len(s.history) - limit
	}
	for start < len(s.history) && s.history[start].Role == llm.RoleTool {
		start++
	}

	out := make([]llm.Message, len(s.history)-start)
	copy(out, s.history[start:])
	return out
}

// TurnCount returns the transcript length.
func (s *Session) TurnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// ClearHistory drops the transcript. The result slot is not touched.
func (s *Session) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

// RetainResult stores a result in the single slot, discarding whatever
// was there. Readers see the old result or the new one, never a mix.
func (s *Session) RetainResult(result *models.QueryResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = result
}

// Result returns the retained result, or nil when the slot is empty.
func (s *Session) Result() *models.QueryResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// ClearResult empties the slot.
func (s *Session) ClearResult() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = nil
}
