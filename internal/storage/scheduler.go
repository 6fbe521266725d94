package storage

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// BackupScheduler snapshots the whole database directory on a CRON schedule.
// It is optional and off unless a schedule is configured; the store itself
// stays strictly single-threaded when no scheduler runs.
type BackupScheduler struct {
	store *Store
	cron  *cron.Cron
	spec  string
}

// NewBackupScheduler creates a scheduler for the given CRON expression
// (standard five-field syntax). The expression is validated eagerly so a bad
// config fails at startup, not at the first tick.
func NewBackupScheduler(s *Store, spec string) (*BackupScheduler, error) {
	loc, _ := time.LoadLocation("UTC")
	c := cron.New(cron.WithLocation(loc))
	b := &BackupScheduler{store: s, cron: c, spec: spec}
	if _, err := c.AddFunc(spec, func() {
		if _, err := s.Snapshot(); err != nil {
			log.Printf("backup failed: %v", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid backup schedule %q: %w", spec, err)
	}
	return b, nil
}

// Start begins periodic snapshots.
func (b *BackupScheduler) Start() {
	b.cron.Start()
	log.Printf("backup scheduler started (%s)", b.spec)
}

// Stop halts the scheduler and waits for a running snapshot to finish.
func (b *BackupScheduler) Stop() {
	ctx := b.cron.Stop()
	<-ctx.Done()
	log.Println("backup scheduler stopped")
}

// Snapshot copies db_meta.json and every table file into a fresh
// backups/<timestamp>-<id> directory and returns that directory's path.
// It needs no scheduler; the CRON wiring is just one caller.
func (s *Store) Snapshot() (string, error) {
	id := uuid.NewString()[:8]
	dir := filepath.Join(s.BackupDir(),
		time.Now().UTC().Format("20060102T150405")+"-"+id)
	if err := os.MkdirAll(filepath.Join(dir, dataDirname), 0o755); err != nil {
		return "", fmt.Errorf("%w: create %s: %v", ErrStorage, dir, err)
	}
	if err := copyIfExists(s.MetaPath(), filepath.Join(dir, metaFilename)); err != nil {
		return "", err
	}
	entries, err := os.ReadDir(s.DataDir())
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", ErrStorage, s.DataDir(), err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		src := filepath.Join(s.DataDir(), e.Name())
		dst := filepath.Join(dir, dataDirname, e.Name())
		if err := copyIfExists(src, dst); err != nil {
			return "", err
		}
	}
	return dir, nil
}

func copyIfExists(src, dst string) error {
	b, err := os.ReadFile(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: read %s: %v", ErrStorage, src, err)
	}
	if err := os.WriteFile(dst, b, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrStorage, dst, err)
	}
	return nil
}
