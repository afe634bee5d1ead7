package archive

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mohammad-safakhou/newsgrade/config"
)

func testArchiver(t *testing.T) *Archiver {
	t.Helper()
	workDir := t.TempDir()
	cfg := config.ArchiveConfig{
		HistoricalDir: t.TempDir(),
		Retention:     30 * 24 * time.Hour,
	}
	return New(workDir, cfg, log.New(io.Discard, "", 0))
}

func writeWorkFile(t *testing.T, a *Archiver, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(a.workDir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLifecycleTransitions(t *testing.T) {
	a := testArchiver(t)
	if a.State() != StateIdle {
		t.Fatalf("initial state %s, want idle", a.State())
	}

	if err := a.Begin("run-1"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if a.State() != StateRunning {
		t.Fatalf("state after begin %s, want running", a.State())
	}

	// A second run cannot start while one is in flight.
	if err := a.Begin("run-2"); err == nil {
		t.Fatal("want error starting a run while running")
	}

	if err := a.Finish("run-1"); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if a.State() != StateIdle {
		t.Fatalf("state after finish %s, want idle", a.State())
	}

	// Finishing twice is also a protocol violation.
	if err := a.Finish("run-1"); err == nil {
		t.Fatal("want error finishing an idle archiver")
	}
}

func TestSweepWritesManifestWithChecksums(t *testing.T) {
	a := testArchiver(t)
	writeWorkFile(t, a, "results.json", `{"ok": true}`)
	writeWorkFile(t, a, "report.txt", "summary")

	if err := a.Begin("run-7"); err != nil {
		t.Fatalf("begin: %v", err)
	}

	// The pre-archive swept both leftovers out of the work dir.
	entries, err := os.ReadDir(a.workDir)
	if err != nil {
		t.Fatalf("read workdir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("workdir not empty after pre-archive: %d entries", len(entries))
	}

	archives, err := a.ListArchives()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(archives) != 1 {
		t.Fatalf("got %d archives, want 1", len(archives))
	}
	m := archives[0]
	if m.RunID != "run-7" || m.Stage != "pre" {
		t.Fatalf("manifest %+v, want run-7 pre", m)
	}
	if len(m.Files) != 2 {
		t.Fatalf("got %d manifest files, want 2", len(m.Files))
	}
	for _, f := range m.Files {
		if len(f.SHA256) != 64 {
			t.Fatalf("file %s has bad checksum %q", f.Name, f.SHA256)
		}
		if f.Size == 0 {
			t.Fatalf("file %s has zero size", f.Name)
		}
	}
}

func TestEmptyWorkDirArchivesNothing(t *testing.T) {
	a := testArchiver(t)
	if err := a.Begin("run-1"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := a.Finish("run-1"); err != nil {
		t.Fatalf("finish: %v", err)
	}
	archives, err := a.ListArchives()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(archives) != 0 {
		t.Fatalf("got %d archives from empty workdir, want 0", len(archives))
	}
}

func writeArchiveFolder(t *testing.T, a *Archiver, name string, archivedAt time.Time, withManifest bool) string {
	t.Helper()
	dir := filepath.Join(a.historicalDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "results.json"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if withManifest {
		payload, _ := json.Marshal(Manifest{RunID: name, Stage: "post", ArchivedAt: archivedAt})
		if err := os.WriteFile(filepath.Join(dir, ManifestName), payload, 0o644); err != nil {
			t.Fatalf("write manifest: %v", err)
		}
	}
	return dir
}

func TestCleanupRespectsRetentionBoundary(t *testing.T) {
	a := testArchiver(t)
	now := time.Now().UTC()
	a.now = func() time.Time { return now }

	expired := writeArchiveFolder(t, a, "expired", now.Add(-31*24*time.Hour), true)
	retained := writeArchiveFolder(t, a, "retained", now.Add(-29*24*time.Hour), true)

	removed, err := a.CleanupExpired()
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed %d folders, want 1", removed)
	}
	if _, err := os.Stat(expired); !os.IsNotExist(err) {
		t.Fatalf("31-day-old archive still present: %v", err)
	}
	if _, err := os.Stat(retained); err != nil {
		t.Fatalf("29-day-old archive was deleted: %v", err)
	}
}

func TestCleanupSkipsManifestlessFolders(t *testing.T) {
	a := testArchiver(t)
	now := time.Now().UTC()
	a.now = func() time.Time { return now }

	orphan := writeArchiveFolder(t, a, "orphan", now.Add(-90*24*time.Hour), false)

	removed, err := a.CleanupExpired()
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 0 {
		t.Fatalf("removed %d folders, want 0", removed)
	}
	if _, err := os.Stat(orphan); err != nil {
		t.Fatalf("manifest-less folder was touched: %v", err)
	}
}
