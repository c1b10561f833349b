package workspace

import (
	"chat-workspace/internal/repository/db"
	"errors"
	"time"
)

// ErrFileNotFound is returned when a named file is not in the workspace
var ErrFileNotFound = errors.New("file not found")

// Workspace is a flat namespace of named text artifacts owned by one session.
// Names are unique; writing an existing name overwrites it.
// Workspace is not safe for concurrent use; the session store guards it.
type Workspace struct {
	files []db.FileArtifact
	index map[string]int
	now   func() time.Time
}

// New creates an empty workspace
func New() *Workspace {
	return &Workspace{
		index: make(map[string]int),
		now:   time.Now,
	}
}

// Restore rebuilds a workspace from persisted artifacts.
// Later duplicates of a name win.
func Restore(files []db.FileArtifact) *Workspace {
	w := New()
	for _, f := range files {
		if i, ok := w.index[f.Name]; ok {
			w.files[i] = f
			continue
		}
		w.index[f.Name] = len(w.files)
		w.files = append(w.files, f)
	}
	return w
}

// CreateOrUpdate upserts a file by name. Language is inferred from the
// extension when empty. Reports whether the file was newly created.
func (w *Workspace) CreateOrUpdate(name, content, language string) (db.FileArtifact, bool) {
	if language == "" {
		language = LanguageFor(name)
	}
	artifact := db.FileArtifact{
		Name:         name,
		Content:      content,
		Language:     language,
		LastModified: w.now(),
	}

	if i, ok := w.index[name]; ok {
		w.files[i] = artifact
		return artifact, false
	}
	w.index[name] = len(w.files)
	w.files = append(w.files, artifact)
	return artifact, true
}

// Get returns the named file
func (w *Workspace) Get(name string) (db.FileArtifact, error) {
	i, ok := w.index[name]
	if !ok {
		return db.FileArtifact{}, ErrFileNotFound
	}
	return w.files[i], nil
}

// Delete removes the named file
func (w *Workspace) Delete(name string) error {
	i, ok := w.index[name]
	if !ok {
		return ErrFileNotFound
	}
	w.files = append(w.files[:i], w.files[i+1:]...)
	delete(w.index, name)
	for j := i; j < len(w.files); j++ {
		w.index[w.files[j].Name] = j
	}
	return nil
}

// List returns a copy of all files in order of first creation
func (w *Workspace) List() []db.FileArtifact {
	out := make([]db.FileArtifact, len(w.files))
	copy(out, w.files)
	return out
}

// Len returns the number of files
func (w *Workspace) Len() int {
	return len(w.files)
}
