package file

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestReadList_Basic(t *testing.T) {
	t.Parallel()

	content := `
# stopwords
the
   # indented comment
and

   vote
`
	path := writeFile(t, t.TempDir(), "list.txt", content)

	got, err := ReadList(path)
	if err != nil {
		t.Fatalf("ReadList error: %v", err)
	}
	want := []string{"the", "and", "vote"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ReadList(%q) = %#v, want %#v", path, got, want)
	}
}

func TestReadList_Missing(t *testing.T) {
	t.Parallel()

	_, err := ReadList(filepath.Join(t.TempDir(), "nope.txt"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("ReadList(missing) err = %v; want os.ErrNotExist", err)
	}
}

/*
TestListDir_SortedAndFiltered verifies that ListDir returns only regular files
matching the pattern, sorted by name, and skips subdirectories.
*/
func TestListDir_SortedAndFiltered(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "b.csv", "x")
	writeFile(t, dir, "a.csv", "x")
	writeFile(t, dir, "notes.txt", "x")
	if err := os.Mkdir(filepath.Join(dir, "sub.csv"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := ListDir(dir, "")
	if err != nil {
		t.Fatalf("ListDir error: %v", err)
	}
	var names []string
	for _, l := range got {
		names = append(names, filepath.Base(l.Name()))
	}
	if want := []string{"a.csv", "b.csv"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("ListDir names = %v; want %v", names, want)
	}

	got, err = ListDir(dir, "*.txt")
	if err != nil || len(got) != 1 {
		t.Fatalf("ListDir(*.txt) = %v, %v; want one file", got, err)
	}
}

func TestListDir_MissingDir(t *testing.T) {
	t.Parallel()

	_, err := ListDir(filepath.Join(t.TempDir(), "missing"), "")
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("ListDir(missing) err = %v; want os.ErrNotExist", err)
	}
}

func TestListDir_BadPattern(t *testing.T) {
	t.Parallel()

	if _, err := ListDir(t.TempDir(), "["); err == nil {
		t.Fatal("ListDir with malformed pattern: want error")
	}
}

func TestLocal_Open(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "a.csv", "hello")
	rc, err := NewLocal(path).Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "hello" {
		t.Fatalf("read %q; want hello", b)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewLocal(path).Open(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Open(canceled) err = %v; want context.Canceled", err)
	}
}
