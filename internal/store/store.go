// Package store keeps the per-job artifacts of fetchd on disk. Each job id
// owns up to three files in the working directory: <id>.url (the source
// URL), <id>.pid (the agent's process id) and <id>.stat (the agent's log).
// Store is the only writer of these files.
package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Kind names one of the three artifacts kept per job.
type Kind string

const (
	KindURL  Kind = "url"
	KindPID  Kind = "pid"
	KindStat Kind = "stat"
)

// Artifacts may embed credentials taken from URLs.
const fileMode = 0600

var ErrNotFound = errors.New("artifact not found")

var kinds = []Kind{KindURL, KindPID, KindStat}

type Store struct {
	dir      string
	auditLog string
}

// New returns a Store rooted at dir. The directory is created if missing;
// a failure here is only logged since every later write reports it anyway.
func New(dir, auditLog string) *Store {
	if err := os.MkdirAll(dir, 0700); err != nil {
		log.Warn().Str("op", "store/new").Err(err).Msgf("could not create work dir %s", dir)
	}
	return &Store{dir: dir, auditLog: auditLog}
}

func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file path of the artifact of the given kind.
func (s *Store) Path(id string, kind Kind) string {
	return filepath.Join(s.dir, id+"."+string(kind))
}

// Write stores data followed by a newline, truncating the artifact unless
// appending.
func (s *Store) Write(id string, kind Kind, data string, appendData bool) error {
	return writeLine(s.Path(id, kind), data, appendData)
}

// Touch creates the artifact empty (or truncates it) with owner-only
// permissions.
func (s *Store) Touch(id string, kind Kind) error {
	path := s.Path(id, kind)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fileMode)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := f.Chmod(fileMode); err != nil {
		f.Close()
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	return f.Close()
}

// Read returns the raw artifact bytes or ErrNotFound.
func (s *Store) Read(id string, kind Kind) ([]byte, error) {
	path := s.Path(id, kind)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// Open returns the artifact for reading or ErrNotFound. The caller closes it.
func (s *Store) Open(id string, kind Kind) (io.ReadCloser, error) {
	path := s.Path(id, kind)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

func (s *Store) Exists(id string, kind Kind) bool {
	info, err := os.Stat(s.Path(id, kind))
	return err == nil && info.Mode().IsRegular()
}

// ReadURL returns the trimmed source URL of a job.
func (s *Store) ReadURL(id string) (string, error) {
	data, err := s.Read(id, KindURL)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// ReadPID returns the recorded process id, or -1 when it is absent or not a
// number.
func (s *Store) ReadPID(id string) int {
	data, err := s.Read(id, KindPID)
	if err != nil {
		return -1
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return -1
	}
	return pid
}

// List returns the ids of all jobs that have a status log, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read work dir %s: %w", s.dir, err)
	}
	suffix := "." + string(KindStat)
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, suffix) {
			continue
		}
		if id := strings.TrimSuffix(name, suffix); id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes one artifact. A missing file is not an error.
func (s *Store) Delete(id string, kind Kind) error {
	path := s.Path(id, kind)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// Remove deletes all artifacts of a job. Each deletion is attempted even if
// an earlier one fails; failures are logged, never returned.
func (s *Store) Remove(id string) {
	for _, kind := range kinds {
		if err := s.Delete(id, kind); err != nil {
			log.Warn().Str("op", "store/remove").Str("job", id).Err(err).Msg("artifact not removed")
		}
	}
}

// AppendAudit records a line in the process-wide audit log.
func (s *Store) AppendAudit(line string) error {
	if s.auditLog == "" {
		return nil
	}
	return writeLine(s.auditLog, line, true)
}

func writeLine(path, data string, appendData bool) error {
	flags := os.O_CREATE | os.O_WRONLY
	if appendData {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, fileMode)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	// OpenFile only applies the mode on creation.
	if err := f.Chmod(fileMode); err != nil {
		f.Close()
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if _, err := io.WriteString(f, data+"\n"); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
