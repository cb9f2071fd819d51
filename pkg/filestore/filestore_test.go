package filestore_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/faciam-dev/gadmin/pkg/filestore"
)

func TestLocalSaveCollision(t *testing.T) {
	root := t.TempDir()
	fs := filestore.NewLocal(root)
	fs.Now = func() time.Time { return time.Unix(1700000000, 0) }
	ctx := context.Background()

	first, err := fs.Save(ctx, "posts", "cv.pdf", strings.NewReader("one"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if first != "cv.pdf" {
		t.Fatalf("first name = %q", first)
	}
	second, err := fs.Save(ctx, "posts", "cv.pdf", strings.NewReader("two"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if second != "1700000000_cv.pdf" {
		t.Fatalf("second name = %q", second)
	}
	b, err := os.ReadFile(filepath.Join(root, "posts", "cv.pdf"))
	if err != nil || string(b) != "one" {
		t.Fatalf("original overwritten: %q %v", b, err)
	}

	rc, err := fs.Open(ctx, "posts", second)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	got, _ := io.ReadAll(rc)
	rc.Close()
	if string(got) != "two" {
		t.Fatalf("content = %q", got)
	}
}

func TestLocalRejectsTraversal(t *testing.T) {
	fs := filestore.NewLocal(t.TempDir())
	name, err := fs.Save(context.Background(), "posts", "../../etc/passwd", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if name != "passwd" {
		t.Fatalf("name = %q", name)
	}
	if _, err := fs.Save(context.Background(), "posts", "..", strings.NewReader("x")); !errors.Is(err, filestore.ErrBadName) {
		t.Fatalf("want ErrBadName, got %v", err)
	}
}

func TestLocalDeleteMissing(t *testing.T) {
	fs := filestore.NewLocal(t.TempDir())
	if err := fs.Delete(context.Background(), "posts", "nope.txt"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
}

type flakyStore struct {
	filestore.Store
	fail    bool
	deleted []string
}

func (f *flakyStore) Delete(_ context.Context, entity, name string) error {
	if f.fail {
		return errors.New("boom")
	}
	f.deleted = append(f.deleted, entity+"/"+name)
	return nil
}

func TestReaperRetries(t *testing.T) {
	st := &flakyStore{fail: true}
	r := filestore.NewReaper(st, zaptest.NewLogger(t).Sugar())
	ctx := context.Background()

	r.Remove(ctx, "posts", "a.png", "", "b.png")
	if r.Pending() != 2 {
		t.Fatalf("pending = %d", r.Pending())
	}
	if n := r.Flush(ctx); n != 2 {
		t.Fatalf("flush left %d", n)
	}
	st.fail = false
	if n := r.Flush(ctx); n != 0 {
		t.Fatalf("flush left %d", n)
	}
	if len(st.deleted) != 2 || st.deleted[0] != "posts/a.png" {
		t.Fatalf("deleted = %v", st.deleted)
	}
}
