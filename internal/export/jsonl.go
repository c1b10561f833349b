package export

import (
	"chat-workspace/internal/repository/db"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// JSONLExporter exports sessions in JSONL format (one message per line)
type JSONLExporter struct{}

type jsonlLine struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Export exports a session to JSONL format
func (e *JSONLExporter) Export(session *db.Session, w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, msg := range visibleMessages(session.Messages) {
		line := jsonlLine{ID: msg.ID, Role: msg.Role, Content: msg.Content, Timestamp: msg.Timestamp}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
	}
	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}

func (e *JSONLExporter) ContentType() string {
	return "application/x-ndjson"
}
