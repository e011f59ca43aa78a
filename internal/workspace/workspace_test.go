package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManager_CreateAndCleanup(t *testing.T) {
	tempBase := t.TempDir()
	mgr := NewManager(tempBase)

	if err := mgr.Create(); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	wsPath := mgr.GetPath()
	if wsPath == "" {
		t.Fatal("GetPath() returned empty string")
	}

	if !strings.HasPrefix(filepath.Base(wsPath), "blogbuild-") {
		t.Errorf("Expected blogbuild- prefixed directory, got: %s", wsPath)
	}

	if _, err := os.Stat(wsPath); os.IsNotExist(err) {
		t.Errorf("Workspace directory does not exist: %s", wsPath)
	}

	if err := mgr.Cleanup(); err != nil {
		t.Fatalf("Cleanup() failed: %v", err)
	}

	if _, err := os.Stat(wsPath); !os.IsNotExist(err) {
		t.Errorf("Workspace directory still exists after cleanup: %s", wsPath)
	}

	if mgr.GetPath() != "" {
		t.Errorf("GetPath() after cleanup = %q, want empty", mgr.GetPath())
	}
}

func TestManager_UniquePaths(t *testing.T) {
	tempBase := t.TempDir()
	a, b := NewManager(tempBase), NewManager(tempBase)
	if err := a.Create(); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if err := b.Create(); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if a.GetPath() == b.GetPath() {
		t.Errorf("two workspaces share a path: %s", a.GetPath())
	}
}

func TestManager_CreatesMissingBaseDir(t *testing.T) {
	base := filepath.Join(t.TempDir(), ".cache", "nbconvert")
	mgr := NewManager(base)
	if err := mgr.Create(); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if filepath.Dir(mgr.GetPath()) != base {
		t.Errorf("workspace %s not under %s", mgr.GetPath(), base)
	}
}

func TestManager_WriteFile(t *testing.T) {
	mgr := NewManager(t.TempDir())

	if _, err := mgr.WriteFile("x.ipynb", []byte("{}")); err == nil {
		t.Fatal("WriteFile before Create should fail")
	}

	if err := mgr.Create(); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	defer func() { _ = mgr.Cleanup() }()

	path, err := mgr.WriteFile("x.ipynb", []byte("{}"))
	if err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	if string(data) != "{}" {
		t.Errorf("content = %q, want {}", data)
	}

	if _, err := mgr.WriteFile("../escape", []byte("x")); err == nil {
		t.Error("WriteFile with non-local name should fail")
	}
}

func TestManager_CleanupWithoutCreate(t *testing.T) {
	if err := NewManager("").Cleanup(); err != nil {
		t.Errorf("Cleanup() on uncreated workspace = %v, want nil", err)
	}
}
