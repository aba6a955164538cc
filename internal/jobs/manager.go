// Package jobs is the job controller. It composes the record store, the
// process probe, the log parser and the agent launcher; it is the only
// package that starts agents or touches more than one artifact per call.
//
// The Manager holds no job state of its own. Every answer is recomputed from
// the work directory and the process table.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/fetchd/internal/agent"
	"github.com/tanq16/fetchd/internal/parser"
	"github.com/tanq16/fetchd/internal/store"
	"github.com/tanq16/fetchd/internal/utils"
)

// Prober checks and signals agent processes.
type Prober interface {
	IsRunning(pid int) bool
	Terminate(pid int) bool
}

// Launcher starts the agent and returns its background pid.
type Launcher interface {
	Launch(ctx context.Context, inv agent.Invocation) (int, error)
}

type Manager struct {
	store       *store.Store
	probe       Prober
	agent       Launcher
	parser      *parser.Parser
	downloadDir string
	locks       keyedMutex
}

// Summary is one row of the job list.
type Summary struct {
	ID       string          `json:"id"`
	State    State           `json:"state"`
	PID      int             `json:"pid"`
	Snapshot parser.Snapshot `json:"snapshot"`
}

func NewManager(st *store.Store, probe Prober, launcher Launcher, downloadDir string) *Manager {
	return &Manager{
		store:       st,
		probe:       probe,
		agent:       launcher,
		parser:      parser.New(),
		downloadDir: filepath.Clean(downloadDir),
	}
}

func (m *Manager) DownloadDir() string {
	return m.downloadDir
}

// StatusLog returns the path of the job's status log.
func (m *Manager) StatusLog(id string) string {
	return m.store.Path(id, store.KindStat)
}

// AddJob records rawURL and starts the agent for it, saving into subdir of
// the download directory. Adding the same URL again reuses its id and
// restarts the agent over the same artifacts, unless its agent is still
// running, in which case nothing is touched and ErrAlreadyRunning is returned
// with the id.
func (m *Manager) AddJob(ctx context.Context, rawURL, subdir string) (string, error) {
	target := strings.TrimSpace(rawURL)
	if err := validateURL(target); err != nil {
		return "", err
	}
	id := utils.JobID(target)
	unlock := m.locks.Lock(id)
	defer unlock()

	if pid := m.store.ReadPID(id); m.probe.IsRunning(pid) {
		log.Debug().Str("op", "jobs/add").Str("job", id).Int("pid", pid).Msg("agent already running")
		return id, ErrAlreadyRunning
	}
	return id, m.launch(ctx, id, target, m.destination(subdir))
}

// PauseJob sends SIGTERM to a running agent. It reports whether the job was
// running and the signal was accepted, not whether the agent has exited.
func (m *Manager) PauseJob(id string) bool {
	if !m.known(id) {
		return false
	}
	unlock := m.locks.Lock(id)
	defer unlock()

	pid := m.store.ReadPID(id)
	if !m.probe.IsRunning(pid) {
		return false
	}
	ok := m.probe.Terminate(pid)
	log.Info().Str("op", "jobs/pause").Str("job", id).Int("pid", pid).Bool("signalled", ok).Msg("pause requested")
	return ok
}

// ResumeJob restarts the agent for a job that is not running and not
// finished. The agent continues the partial file on its own.
func (m *Manager) ResumeJob(ctx context.Context, id string) (bool, error) {
	if !utils.ValidJobID(id) {
		return false, nil
	}
	unlock := m.locks.Lock(id)
	defer unlock()

	if m.probe.IsRunning(m.store.ReadPID(id)) {
		return false, nil
	}
	snap := m.snapshot(id)
	if snap.Done && fileExists(snap.SaveFile) {
		return false, nil
	}

	target, err := m.store.ReadURL(id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return false, err
	}
	if target == "" {
		target = snap.URL
	}
	if target == "" {
		return false, nil
	}

	dest := m.downloadDir
	if snap.SaveFile != "" && m.within(snap.SaveFile) {
		dest = filepath.Dir(snap.SaveFile)
	}
	if err := m.launch(ctx, id, target, dest); err != nil {
		return false, err
	}
	return true, nil
}

// RemoveJob deletes every artifact of the job. It always succeeds.
func (m *Manager) RemoveJob(id string) bool {
	if !utils.ValidJobID(id) {
		return true
	}
	unlock := m.locks.Lock(id)
	defer unlock()

	m.store.Remove(id)
	log.Info().Str("op", "jobs/remove").Str("job", id).Msg("job removed")
	return true
}

// RemoveDownloadedFile deletes the job's save file unless the agent is still
// running. The job's artifacts are left alone.
func (m *Manager) RemoveDownloadedFile(id string) (bool, error) {
	if !utils.ValidJobID(id) {
		return true, nil
	}
	unlock := m.locks.Lock(id)
	defer unlock()

	if m.probe.IsRunning(m.store.ReadPID(id)) {
		return false, nil
	}
	saveFile := m.snapshot(id).SaveFile
	if saveFile == "" || !fileExists(saveFile) {
		return true, nil
	}
	if !m.within(saveFile) {
		return false, fmt.Errorf("%w: %s", ErrOutsideDownloadDir, saveFile)
	}
	if err := os.Remove(saveFile); err != nil {
		return false, fmt.Errorf("remove %s: %w", saveFile, err)
	}
	log.Info().Str("op", "jobs/remove-file").Str("job", id).Str("file", saveFile).Msg("downloaded file removed")
	return true, nil
}

// ListJobs returns the ids of all jobs that have a status log.
func (m *Manager) ListJobs() ([]string, error) {
	return m.store.List()
}

// Details parses the job's status log.
func (m *Manager) Details(id string) (parser.Snapshot, error) {
	if !m.known(id) {
		return parser.Empty(), ErrJobNotFound
	}
	snap, err := m.parser.ParseFile(m.StatusLog(id))
	if errors.Is(err, os.ErrNotExist) {
		return parser.Empty(), ErrJobNotFound
	}
	return snap, err
}

// State derives the lifecycle state of a job. A finished log wins over a
// live pid since the agent exits right after writing it.
func (m *Manager) State(id string) State {
	if !m.known(id) {
		return StateUnknown
	}
	return m.state(m.store.ReadPID(id), m.snapshot(id))
}

// Summaries returns id, state and snapshot for every job.
func (m *Manager) Summaries() ([]Summary, error) {
	return m.SummariesMemo(nil)
}

// SummariesMemo is Summaries reading status logs through memo, which the
// caller owns. A nil memo parses every log.
func (m *Manager) SummariesMemo(memo *parser.Memo) ([]Summary, error) {
	ids, err := m.store.List()
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(ids))
	for _, id := range ids {
		if !utils.ValidJobID(id) {
			continue
		}
		pid := m.store.ReadPID(id)
		var snap parser.Snapshot
		if memo != nil {
			snap, _ = memo.Snapshot(m.StatusLog(id))
		} else {
			snap = m.snapshot(id)
		}
		out = append(out, Summary{ID: id, State: m.state(pid, snap), PID: pid, Snapshot: snap})
	}
	return out, nil
}

func (m *Manager) state(pid int, snap parser.Snapshot) State {
	switch {
	case snap.Done:
		return StateDone
	case m.probe.IsRunning(pid):
		return StateRunning
	default:
		return StatePaused
	}
}

func (m *Manager) launch(ctx context.Context, id, target, dest string) error {
	if err := m.store.Write(id, store.KindURL, target, false); err != nil {
		return err
	}
	if err := m.store.AppendAudit(target); err != nil {
		return err
	}
	// Created before the agent writes to it so it is never world-readable.
	if err := m.store.Touch(id, store.KindStat); err != nil {
		return err
	}

	pid, err := m.agent.Launch(ctx, agent.Invocation{
		URL:       target,
		InputFile: m.store.Path(id, store.KindURL),
		DestDir:   dest,
		LogFile:   m.StatusLog(id),
	})
	if err != nil {
		if delErr := m.store.Delete(id, store.KindPID); delErr != nil {
			log.Warn().Str("op", "jobs/launch").Str("job", id).Err(delErr).Msg("stale pid record left behind")
		}
		m.dropEmptyLog(id)
		log.Error().Str("op", "jobs/launch").Str("job", id).Str("url", utils.RedactURL(target)).Err(err).Msg("agent launch failed")
		return err
	}
	if err := m.store.Write(id, store.KindPID, strconv.Itoa(pid), false); err != nil {
		return err
	}
	log.Info().Str("op", "jobs/launch").Str("job", id).Int("pid", pid).Str("dest", dest).Msg("agent started")
	return nil
}

// dropEmptyLog removes a status log the agent never wrote to, so a failed
// launch does not show up as a job.
func (m *Manager) dropEmptyLog(id string) {
	info, err := os.Stat(m.StatusLog(id))
	if err == nil && info.Size() == 0 {
		m.store.Delete(id, store.KindStat)
	}
}

func (m *Manager) snapshot(id string) parser.Snapshot {
	snap, err := m.parser.ParseFile(m.StatusLog(id))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("op", "jobs/snapshot").Str("job", id).Err(err).Msg("status log unreadable")
	}
	return snap
}

func (m *Manager) known(id string) bool {
	return utils.ValidJobID(id) && m.store.Exists(id, store.KindStat)
}

func (m *Manager) destination(subdir string) string {
	if subdir == "" {
		return m.downloadDir
	}
	// Rooting before Clean keeps ".." from leaving the download dir.
	return filepath.Join(m.downloadDir, filepath.Clean(string(filepath.Separator)+subdir))
}

func (m *Manager) within(path string) bool {
	rel, err := filepath.Rel(m.downloadDir, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %s", ErrInvalidURL, utils.RedactURL(raw))
	}
	return nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
