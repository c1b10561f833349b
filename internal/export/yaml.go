package export

import (
	"chat-workspace/internal/repository/db"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// YAMLExporter exports sessions in YAML format
type YAMLExporter struct{}

type yamlSession struct {
	ID        string        `yaml:"id"`
	Title     string        `yaml:"title"`
	CreatedAt time.Time     `yaml:"created_at"`
	UpdatedAt time.Time     `yaml:"updated_at"`
	Messages  []yamlMessage `yaml:"messages"`
	Files     []yamlFile    `yaml:"files,omitempty"`
}

type yamlMessage struct {
	Role      string    `yaml:"role"`
	Content   string    `yaml:"content"`
	Timestamp time.Time `yaml:"timestamp"`
}

type yamlFile struct {
	Name     string `yaml:"name"`
	Language string `yaml:"language"`
	Content  string `yaml:"content"`
}

// Export exports a session to YAML format
func (e *YAMLExporter) Export(session *db.Session, w io.Writer) error {
	doc := yamlSession{
		ID:        session.ID,
		Title:     session.Title,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	}
	for _, m := range visibleMessages(session.Messages) {
		doc.Messages = append(doc.Messages, yamlMessage{Role: m.Role, Content: m.Content, Timestamp: m.Timestamp})
	}
	for _, f := range session.Files {
		doc.Files = append(doc.Files, yamlFile{Name: f.Name, Language: f.Language, Content: f.Content})
	}

	enc := yaml.NewEncoder(w)
	defer func() { _ = enc.Close() }()
	return enc.Encode(doc)
}

// Extension returns the file extension for this format
func (e *YAMLExporter) Extension() string {
	return "yaml"
}

func (e *YAMLExporter) ContentType() string {
	return "application/yaml"
}
