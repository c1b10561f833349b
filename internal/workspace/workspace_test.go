package workspace

import (
	"chat-workspace/internal/repository/db"
	"errors"
	"testing"
)

func TestCreateOrUpdate_SameNameOverwrites(t *testing.T) {
	w := New()

	_, created := w.CreateOrUpdate("app.js", "A", "")
	if !created {
		t.Error("first write should report created")
	}
	_, created = w.CreateOrUpdate("app.js", "B", "")
	if created {
		t.Error("second write should report update")
	}

	files := w.List()
	if len(files) != 1 {
		t.Fatalf("List() returned %d files, want 1", len(files))
	}
	if files[0].Content != "B" {
		t.Errorf("Content = %q, want B", files[0].Content)
	}
	if files[0].Language != "javascript" {
		t.Errorf("Language = %q, want javascript", files[0].Language)
	}
}

func TestCreateOrUpdate_ExplicitLanguage(t *testing.T) {
	w := New()
	f, _ := w.CreateOrUpdate("notes", "x", "markdown")
	if f.Language != "markdown" {
		t.Errorf("Language = %q, want markdown", f.Language)
	}
}

func TestDelete(t *testing.T) {
	w := New()
	w.CreateOrUpdate("a.txt", "1", "")
	w.CreateOrUpdate("b.txt", "2", "")
	w.CreateOrUpdate("c.txt", "3", "")

	if err := w.Delete("b.txt"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := w.Delete("b.txt"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("second Delete() error = %v, want ErrFileNotFound", err)
	}

	files := w.List()
	if len(files) != 2 || files[0].Name != "a.txt" || files[1].Name != "c.txt" {
		t.Fatalf("List() = %+v, want [a.txt c.txt]", files)
	}

	// index stays consistent after removal
	w.CreateOrUpdate("c.txt", "updated", "")
	got, err := w.Get("c.txt")
	if err != nil || got.Content != "updated" {
		t.Errorf("Get(c.txt) = %+v, %v", got, err)
	}
	if w.Len() != 2 {
		t.Errorf("Len() = %d, want 2", w.Len())
	}
}

func TestRestore(t *testing.T) {
	w := Restore([]db.FileArtifact{
		{Name: "a.go", Content: "old", Language: "go"},
		{Name: "b.go", Content: "b", Language: "go"},
		{Name: "a.go", Content: "new", Language: "go"},
	})

	if w.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", w.Len())
	}
	a, _ := w.Get("a.go")
	if a.Content != "new" {
		t.Errorf("a.go content = %q, want new", a.Content)
	}
}

func TestLanguageFor(t *testing.T) {
	tests := map[string]string{
		"index.html":     "html",
		"src/main.go":    "go",
		"App.TSX":        "typescript",
		"Dockerfile":     "dockerfile",
		"README":         DefaultLanguage,
		"archive.tar.gz": DefaultLanguage,
		"config.yml":     "yaml",
	}
	for name, want := range tests {
		if got := LanguageFor(name); got != want {
			t.Errorf("LanguageFor(%q) = %q, want %q", name, got, want)
		}
	}
}
