package database

import (
	"fmt"
	"log"
	"time"

	"github.com/TobiSchelling/joseph/internal/llm"
)

// ContextConversation is the conversation key for a dashboard module.
func ContextConversation(contextID string) string {
	return "ctx:" + contextID
}

// ReportConversation is the conversation key for a report's follow-up chat.
func ReportConversation(reportID string) string {
	return "report:" + reportID
}

// AppendMessage adds a message to the end of a conversation.
func (db *DB) AppendMessage(conversation string, m llm.Message) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := db.conn.NamedExec(
		`INSERT INTO chat_messages (id, conversation, role, content, context, created_at)
		 VALUES (:id, :conversation, :role, :content, :context, :created_at)`,
		messageRow{
			ID:           m.ID,
			Conversation: conversation,
			Role:         string(m.Role),
			Content:      m.Content,
			Context:      m.Context,
			CreatedAt:    ts.UTC().Format(timeLayout),
		},
	)
	if err != nil {
		return fmt.Errorf("appending message: %w", err)
	}
	return nil
}

// GetMessages returns a conversation in insertion order.
func (db *DB) GetMessages(conversation string) ([]llm.Message, error) {
	var rows []messageRow
	err := db.conn.Select(&rows,
		`SELECT id, conversation, role, content, context, created_at
		 FROM chat_messages WHERE conversation = ? ORDER BY rowid`,
		conversation,
	)
	if err != nil {
		return nil, err
	}

	msgs := make([]llm.Message, 0, len(rows))
	for _, row := range rows {
		ts, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
		if err != nil {
			log.Printf("Message %s has an invalid timestamp %q: %v", row.ID, row.CreatedAt, err)
		}
		msgs = append(msgs, llm.Message{
			ID:        row.ID,
			Role:      llm.Role(row.Role),
			Content:   row.Content,
			Timestamp: ts,
			Context:   row.Context,
		})
	}
	return msgs, nil
}

// ClearMessages deletes every message in a conversation and returns how
// many were removed.
func (db *DB) ClearMessages(conversation string) (int64, error) {
	res, err := db.conn.Exec("DELETE FROM chat_messages WHERE conversation = ?", conversation)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
