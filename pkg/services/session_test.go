package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphscout-inc/graphscout-engine/pkg/llm"
	"github.com/graphscout-inc/graphscout-engine/pkg/models"
)

func TestSession_NewSession_HasIdentity(t *testing.T) {
	session := NewSession(models.LanguageCypher)

	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", session.ID.String())
	assert.False(t, session.CreatedAt.IsZero())
	assert.Equal(t, models.LanguageCypher, session.Language())
}

func TestSession_SetLanguage_KeepsTranscriptAndResult(t *testing.T) {
	session := NewSession(models.LanguageGremlin)
	session.AppendTurn(llm.Message{Role: llm.RoleUser, Content: "how many airports?"})
	session.RetainResult(&models.QueryResult{Rows: []map[string]any{{"n": int64(1)}}, RowCount: 1})

	session.SetLanguage(models.LanguageSPARQL)

	assert.Equal(t, models.LanguageSPARQL, session.Language())
	assert.Equal(t, 1, session.TurnCount())
	require.NotNil(t, session.Result())
	assert.Equal(t, 1, session.Result().RowCount)
}

func TestSession_History_ReturnsLastTurns(t *testing.T) {
	session := NewSession(models.LanguageCypher)
	for i := 0; i < 30; i++ {
		session.AppendTurn(llm.Message{Role: llm.RoleUser, Content: fmt.Sprintf("message %d", i)})
	}

	window := session.History(20)

	require.Len(t, window, 20)
	assert.Equal(t, "message 10", window[0].Content)
	assert.Equal(t, "message 29", window[19].Content)
}

func TestSession_History_SkipsOrphanedToolResults(t *testing.T) {
	session := NewSession(models.LanguageCypher)
	session.AppendTurn(llm.Message{Role: llm.RoleUser, Content: "question"})
	session.AppendTurn(llm.Message{
		Role:      llm.RoleAssistant,
		ToolCalls: []llm.ToolCall{{ID: "call_1"}},
	})
	session.AppendTurn(llm.Message{Role: llm.RoleTool, Content: `{"ok":true}`, ToolCallID: "call_1"})
	session.AppendTurn(llm.Message{Role: llm.RoleTool, Content: `{"ok":true}`, ToolCallID: "call_2"})
	session.AppendTurn(llm.Message{Role: llm.RoleAssistant, Content: "answer"})

	// A window that would open on the tool results advances past them.
	window := session.History(3)

	require.Len(t, window, 1)
	assert.Equal(t, llm.RoleAssistant, window[0].Role)
	assert.Equal(t, "answer", window[0].Content)
}

func TestSession_History_ZeroLimitReturnsEverything(t *testing.T) {
	session := NewSession(models.LanguageCypher)
	session.AppendTurn(llm.Message{Role: llm.RoleUser, Content: "a"})
	session.AppendTurn(llm.Message{Role: llm.RoleAssistant, Content: "b"})

	assert.Len(t, session.History(0), 2)
}

func TestSession_History_ReturnsCopy(t *testing.T) {
	session := NewSession(models.LanguageCypher)
	session.AppendTurn(llm.Message{Role: llm.RoleUser, Content: "original"})

	window := session.History(0)
	window[0].Content = "mutated"

	assert.Equal(t, "original", session.History(0)[0].Content)
}

func TestSession_RetainResult_DiscardsPrevious(t *testing.T) {
	session := NewSession(models.LanguageGremlin)

	first := &models.QueryResult{Query: "g.V().count()", RowCount: 1}
	second := &models.QueryResult{Query: "g.E().count()", RowCount: 1}

	session.RetainResult(first)
	session.RetainResult(second)

	require.NotNil(t, session.Result())
	assert.Equal(t, "g.E().count()", session.Result().Query)
}

func TestSession_ClearHistory_KeepsResultSlot(t *testing.T) {
	session := NewSession(models.LanguageCypher)
	session.AppendTurn(llm.Message{Role: llm.RoleUser, Content: "question"})
	session.RetainResult(&models.QueryResult{RowCount: 3})

	session.ClearHistory()

	assert.Equal(t, 0, session.TurnCount())
	require.NotNil(t, session.Result())
	assert.Equal(t, 3, session.Result().RowCount)
}

func TestSession_ClearResult_EmptiesSlot(t *testing.T) {
	session := NewSession(models.LanguageCypher)
	session.RetainResult(&models.QueryResult{RowCount: 3})

	session.ClearResult()

	assert.Nil(t, session.Result())
}
