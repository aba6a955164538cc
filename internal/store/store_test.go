package store

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const testID = "6ba7b811-9dad-31d1-80b4-00c04fd430c8"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return New(filepath.Join(dir, "jobs"), filepath.Join(dir, "download.log"))
}

func TestNewCreatesDir(t *testing.T) {
	s := newTestStore(t)
	info, err := os.Stat(s.Dir())
	if err != nil {
		t.Fatalf("work dir not created: %v", err)
	}
	if !info.IsDir() {
		t.Fatalf("work dir is not a directory")
	}
}

func TestPath(t *testing.T) {
	s := New(t.TempDir(), "")
	tests := []struct {
		kind Kind
		want string
	}{
		{KindURL, testID + ".url"},
		{KindPID, testID + ".pid"},
		{KindStat, testID + ".stat"},
	}
	for _, tt := range tests {
		got := s.Path(testID, tt.kind)
		if filepath.Base(got) != tt.want {
			t.Errorf("Path(%s) = %s, want base %s", tt.kind, got, tt.want)
		}
		if filepath.Dir(got) != s.Dir() {
			t.Errorf("Path(%s) not under work dir: %s", tt.kind, got)
		}
	}
}

func TestWriteTruncateAndAppend(t *testing.T) {
	s := newTestStore(t)
	if err := s.Write(testID, KindURL, "http://example.com/a", false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Write(testID, KindURL, "http://example.com/b", false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := s.Read(testID, KindURL)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "http://example.com/b\n" {
		t.Errorf("truncating write left %q", data)
	}

	if err := s.Write(testID, KindStat, "one", true); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Write(testID, KindStat, "two", true); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, _ = s.Read(testID, KindStat)
	if string(data) != "one\ntwo\n" {
		t.Errorf("appending write left %q", data)
	}
}

func TestWritePermissions(t *testing.T) {
	s := newTestStore(t)
	path := s.Path(testID, KindPID)
	if err := os.WriteFile(path, []byte("1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := s.Write(testID, KindPID, "42", false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Touch(testID, KindStat); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	for _, kind := range []Kind{KindPID, KindStat} {
		info, err := os.Stat(s.Path(testID, kind))
		if err != nil {
			t.Fatal(err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("%s mode = %o, want 600", kind, perm)
		}
	}
}

func TestReadMissing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Read(testID, KindURL); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read missing: got %v, want ErrNotFound", err)
	}
	if _, err := s.Open(testID, KindStat); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open missing: got %v, want ErrNotFound", err)
	}
	if _, err := s.ReadURL(testID); !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadURL missing: got %v, want ErrNotFound", err)
	}
	if s.Exists(testID, KindURL) {
		t.Errorf("Exists reported a missing artifact")
	}
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)
	if err := s.Write(testID, KindStat, "line", false); err != nil {
		t.Fatal(err)
	}
	rc, err := s.Open(testID, KindStat)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "line\n" {
		t.Errorf("Open read %q", data)
	}
}

func TestReadURLTrims(t *testing.T) {
	s := newTestStore(t)
	if err := s.Write(testID, KindURL, "  http://example.com/x  ", false); err != nil {
		t.Fatal(err)
	}
	got, err := s.ReadURL(testID)
	if err != nil {
		t.Fatal(err)
	}
	if got != "http://example.com/x" {
		t.Errorf("ReadURL = %q", got)
	}
}

func TestReadPID(t *testing.T) {
	tests := []struct {
		name    string
		content string
		write   bool
		want    int
	}{
		{"absent", "", false, -1},
		{"valid", "12345\n", true, 12345},
		{"padded", "  77 \n", true, 77},
		{"garbage", "abc\n", true, -1},
		{"empty", "", true, -1},
		{"zero", "0\n", true, -1},
		{"negative", "-5\n", true, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			if tt.write {
				if err := os.WriteFile(s.Path(testID, KindPID), []byte(tt.content), 0600); err != nil {
					t.Fatal(err)
				}
			}
			if got := s.ReadPID(testID); got != tt.want {
				t.Errorf("ReadPID = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestList(t *testing.T) {
	s := newTestStore(t)
	ids := []string{
		"c0000000-0000-3000-8000-000000000000",
		"a0000000-0000-3000-8000-000000000000",
		"b0000000-0000-3000-8000-000000000000",
	}
	for _, id := range ids {
		if err := s.Touch(id, KindStat); err != nil {
			t.Fatal(err)
		}
	}
	// Only status logs define a job.
	if err := s.Write("d0000000-0000-3000-8000-000000000000", KindURL, "http://x", false); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(s.Dir(), "dir.stat"), 0700); err != nil {
		t.Fatal(err)
	}

	got, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{ids[1], ids[2], ids[0]}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("List = %v, want %v", got, want)
	}
}

func TestListMissingDir(t *testing.T) {
	s := &Store{dir: filepath.Join(t.TempDir(), "nope")}
	if _, err := s.List(); err == nil {
		t.Errorf("List on missing dir should fail")
	}
}

func TestRemove(t *testing.T) {
	s := newTestStore(t)
	for _, kind := range kinds {
		if err := s.Write(testID, kind, "x", false); err != nil {
			t.Fatal(err)
		}
	}
	s.Remove(testID)
	for _, kind := range kinds {
		if s.Exists(testID, kind) {
			t.Errorf("%s still exists after Remove", kind)
		}
	}
	// Removing again is harmless.
	s.Remove(testID)
	if err := s.Delete(testID, KindPID); err != nil {
		t.Errorf("Delete of missing artifact: %v", err)
	}
}

func TestAppendAudit(t *testing.T) {
	s := newTestStore(t)
	for _, u := range []string{"http://a", "http://b"} {
		if err := s.AppendAudit(u); err != nil {
			t.Fatalf("AppendAudit: %v", err)
		}
	}
	data, err := os.ReadFile(s.auditLog)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if !reflect.DeepEqual(lines, []string{"http://a", "http://b"}) {
		t.Errorf("audit log = %q", data)
	}

	noAudit := New(t.TempDir(), "")
	if err := noAudit.AppendAudit("http://c"); err != nil {
		t.Errorf("AppendAudit without log path: %v", err)
	}
}
