// Package archive moves a run's working files into the historical store
// before and after each pipeline run, and enforces the retention policy.
package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/mohammad-safakhou/newsgrade/config"
)

// ManifestName is written last into every archive folder. A folder without
// it is treated as an incomplete move and never touched by cleanup.
const ManifestName = "manifest.json"

// State tracks where the archiver sits in the run lifecycle.
type State string

const (
	StateIdle          State = "idle"
	StatePreArchiving  State = "pre_archiving"
	StateRunning       State = "running"
	StatePostArchiving State = "post_archiving"
)

// ManifestFile records one archived file with its integrity checksum.
type ManifestFile struct {
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// Manifest describes one completed archive folder.
type Manifest struct {
	RunID      string         `json:"run_id"`
	Stage      string         `json:"stage"` // "pre" or "post"
	ArchivedAt time.Time      `json:"archived_at"`
	Files      []ManifestFile `json:"files"`
}

// Archiver owns the working directory hand-off around each run. Transitions
// are strict: Idle → PreArchiving → Running → PostArchiving → Idle; calling
// a stage out of order is a bug in the orchestrator and fails loudly.
type Archiver struct {
	mu            sync.Mutex
	state         State
	workDir       string
	historicalDir string
	retention     time.Duration
	logger        *log.Logger
	now           func() time.Time
}

// New builds an archiver over the configured directories.
func New(workDir string, cfg config.ArchiveConfig, logger *log.Logger) *Archiver {
	if logger == nil {
		logger = log.New(log.Writer(), "[ARCHIVE] ", log.LstdFlags)
	}
	retention := cfg.Retention
	if retention == 0 {
		retention = 30 * 24 * time.Hour
	}
	return &Archiver{
		state:         StateIdle,
		workDir:       workDir,
		historicalDir: cfg.HistoricalDir,
		retention:     retention,
		logger:        logger,
		now:           time.Now,
	}
}

// State reports the current lifecycle state.
func (a *Archiver) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Begin clears the working directory of leftovers from a previous run
// (pre-archive) and marks the run as started.
func (a *Archiver) Begin(runID string) error {
	if err := a.transition(StateIdle, StatePreArchiving); err != nil {
		return err
	}
	if err := a.sweep(runID, "pre"); err != nil {
		a.setState(StateIdle)
		return err
	}
	a.setState(StateRunning)
	return nil
}

// Finish moves the completed run's files into the historical store
// (post-archive) and returns the archiver to idle.
func (a *Archiver) Finish(runID string) error {
	if err := a.transition(StateRunning, StatePostArchiving); err != nil {
		return err
	}
	err := a.sweep(runID, "post")
	a.setState(StateIdle)
	return err
}

func (a *Archiver) transition(from, to State) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != from {
		return fmt.Errorf("archive: cannot enter %s from %s", to, a.state)
	}
	a.state = to
	return nil
}

func (a *Archiver) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// sweep moves every regular file in the working directory into a fresh
// archive folder and writes the manifest last, so a crash mid-move leaves a
// folder cleanup will skip rather than a half-trusted archive.
func (a *Archiver) sweep(runID, stage string) error {
	entries, err := os.ReadDir(a.workDir)
	if os.IsNotExist(err) {
		return os.MkdirAll(a.workDir, 0o755)
	}
	if err != nil {
		return fmt.Errorf("archive: read workdir: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	stamp := a.now().UTC().Format("20060102T150405")
	dest := filepath.Join(a.historicalDir, fmt.Sprintf("%s_%s_%s", stamp, stage, runID))
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("archive: create %s: %w", dest, err)
	}

	manifest := Manifest{RunID: runID, Stage: stage, ArchivedAt: a.now().UTC()}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		src := filepath.Join(a.workDir, entry.Name())
		sum, size, err := checksum(src)
		if err != nil {
			return fmt.Errorf("archive: checksum %s: %w", src, err)
		}
		if err := os.Rename(src, filepath.Join(dest, entry.Name())); err != nil {
			return fmt.Errorf("archive: move %s: %w", src, err)
		}
		manifest.Files = append(manifest.Files, ManifestFile{Name: entry.Name(), Size: size, SHA256: sum})
	}
	if len(manifest.Files) == 0 {
		return os.Remove(dest)
	}

	payload, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dest, ManifestName), payload, 0o644); err != nil {
		return fmt.Errorf("archive: write manifest: %w", err)
	}
	a.logger.Printf("%s-archived %d files for run %s into %s", stage, len(manifest.Files), runID, dest)
	return nil
}

// CleanupExpired deletes archive folders whose manifest is older than the
// retention period. Folders without a manifest are skipped: they are either
// incomplete moves or not ours to delete.
func (a *Archiver) CleanupExpired() (int, error) {
	entries, err := os.ReadDir(a.historicalDir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("archive: read historical dir: %w", err)
	}

	cutoff := a.now().UTC().Add(-a.retention)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(a.historicalDir, entry.Name())
		manifest, err := readManifest(filepath.Join(dir, ManifestName))
		if err != nil {
			a.logger.Printf("skipping %s: %v", dir, err)
			continue
		}
		if !manifest.ArchivedAt.Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			return removed, fmt.Errorf("archive: remove %s: %w", dir, err)
		}
		removed++
	}
	if removed > 0 {
		a.logger.Printf("retention cleanup removed %d archive folders", removed)
	}
	return removed, nil
}

// ListArchives returns the manifests under the historical directory, newest
// first by archive time. Manifest-less folders are ignored.
func (a *Archiver) ListArchives() ([]Manifest, error) {
	entries, err := os.ReadDir(a.historicalDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []Manifest
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		m, err := readManifest(filepath.Join(a.historicalDir, entry.Name(), ManifestName))
		if err != nil {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ArchivedAt.After(out[j].ArchivedAt) })
	return out, nil
}

func readManifest(path string) (Manifest, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("no manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(payload, &m); err != nil {
		return Manifest{}, fmt.Errorf("bad manifest: %w", err)
	}
	return m, nil
}

func checksum(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()
	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), size, nil
}
