package gitadapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(dir, name, content string) error {
	return os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644)
}

func TestRunCommandRejectsNonGit(t *testing.T) {
	a := New(t.TempDir(), 0, nil)
	if _, err := a.RunCommand(context.Background(), []string{"rm", "-rf", "/"}); err != ErrNotGit {
		t.Fatalf("expected ErrNotGit, got %v", err)
	}
}

func TestRunCommandRejectsEmptyArgv(t *testing.T) {
	a := New(t.TempDir(), 0, nil)
	if _, err := a.RunCommand(context.Background(), nil); err != ErrNotGit {
		t.Fatalf("expected ErrNotGit for empty argv, got %v", err)
	}
}

func TestGitAddAndCommitInARealRepo(t *testing.T) {
	dir := t.TempDir()
	a := New(dir, 0, nil)
	ctx := context.Background()

	if _, err := a.RunCommand(ctx, []string{"git", "init"}); err != nil {
		t.Fatalf("git init: %v", err)
	}
	if _, err := a.RunCommand(ctx, []string{"git", "config", "user.email", "test@example.com"}); err != nil {
		t.Fatalf("git config email: %v", err)
	}
	if _, err := a.RunCommand(ctx, []string{"git", "config", "user.name", "Test"}); err != nil {
		t.Fatalf("git config name: %v", err)
	}

	if err := writeFile(dir, "a.txt", "hello"); err != nil {
		t.Fatalf("writeFile: %v", err)
	}
	if _, err := a.GitAdd(ctx, []string{"a.txt"}); err != nil {
		t.Fatalf("GitAdd: %v", err)
	}
	if _, err := a.GitCommit(ctx, "initial commit"); err != nil {
		t.Fatalf("GitCommit: %v", err)
	}

	dirty, err := a.HasUncommittedChanges(ctx)
	if err != nil {
		t.Fatalf("HasUncommittedChanges: %v", err)
	}
	if dirty {
		t.Fatalf("expected clean tree after commit")
	}

	if err := writeFile(dir, "b.txt", "world"); err != nil {
		t.Fatalf("writeFile: %v", err)
	}
	dirty, err = a.HasUncommittedChanges(ctx)
	if err != nil {
		t.Fatalf("HasUncommittedChanges: %v", err)
	}
	if !dirty {
		t.Fatalf("expected dirty tree after untracked file added")
	}
}
