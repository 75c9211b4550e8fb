package rag

import (
	"strings"

	"docuchat-backend/internal/llm"
	"docuchat-backend/internal/models"
)

// MaxPromptHistory is how many earlier messages are sent to the model.
const MaxPromptHistory = 5

const systemPrompt = `You are a helpful AI assistant specialized in analyzing documents and providing accurate information.
If you find relevant information in the context, use it to answer the question.
If you don't find relevant information, say so clearly and provide a general response.
Always be clear, concise, and accurate.`

// BuildPrompt assembles the model input for one chat turn: a system message
// carrying the retrieved context, the last MaxPromptHistory messages of
// history, then the question.
func BuildPrompt(question string, chunks []models.ScoredChunk, history []models.Message) []llm.Message {
	system := systemPrompt
	if len(chunks) > 0 {
		pieces := make([]string, 0, len(chunks))
		for _, c := range chunks {
			pieces = append(pieces, c.Content)
		}
		system += "\n\nContext:\n" + strings.Join(pieces, "\n---\n")
	}

	if len(history) > MaxPromptHistory {
		history = history[len(history)-MaxPromptHistory:]
	}

	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: system})
	for _, m := range history {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: question})
	return msgs
}
