// Package backup snapshots an installation's generated files into a gzip
// tarball and restores them onto the canonical paths of the snapshot's
// flavor.
package backup

import (
	"archive/tar"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/klauspost/compress/gzip"
	"github.com/opencontainers/go-digest"
	"github.com/projecteru2/core/log"

	"github.com/projecteru2/debridctl/config"
	"github.com/projecteru2/debridctl/engine"
	"github.com/projecteru2/debridctl/types"
	"github.com/projecteru2/debridctl/utils"
)

const (
	archivePrefix = "debrid-backup-"
	archiveSuffix = ".tar.gz"
	timeFormat    = "20060102-150405"
	manifestName  = "manifest.json"
)

var archiveNameRE = regexp.MustCompile(`^debrid-backup-(\d{8}-\d{6})(?:-(\d+))?\.tar\.gz$`)

// ErrInvalidArchive marks archives that cannot be restored safely.
var ErrInvalidArchive = errors.New("invalid backup archive")

// Keys returns the archive keys captured for flavor, in archive order.
func Keys(f types.Flavor) []string {
	if f == types.FlavorBundle {
		return []string{config.KeyCompose, config.KeyEnv, config.KeyBundleConfig}
	}
	return []string{
		config.KeyCompose,
		config.KeyEnv,
		config.KeyZurgConfig,
		config.KeyRcloneConfig,
		config.KeyRemountScript,
		config.KeyMountUnit,
	}
}

// Manager creates, lists and restores snapshots.
type Manager struct {
	Layout *config.Config
	Engine engine.Engine
	Runner utils.Runner
	// Now is overridable for tests.
	Now func() time.Time
}

// New returns a Manager for conf.
func New(conf *config.Config, eng engine.Engine, runner utils.Runner) *Manager {
	return &Manager{Layout: conf, Engine: eng, Runner: runner, Now: time.Now}
}

// manifest is the archive's manifest.json. It never holds file contents.
type manifest struct {
	ID        string              `json:"id"`
	Timestamp time.Time           `json:"timestamp"`
	Flavor    types.Flavor        `json:"flavor"`
	Entries   []types.BackupEntry `json:"entries"`
}

// Backup archives the on-disk artifacts of flavor. Missing files are
// skipped. Older snapshots beyond the retention count are removed.
func (m *Manager) Backup(ctx context.Context, flavor types.Flavor) (*types.BackupSnapshot, error) {
	logger := log.WithFunc("backup.Backup")
	if flavor != types.FlavorIndividual && flavor != types.FlavorBundle {
		return nil, types.ErrNoExistingInstallation
	}
	if err := utils.EnsureDirs(m.Layout.BackupsDir()); err != nil {
		return nil, err
	}

	now := m.Now().UTC().Truncate(time.Second)
	archive := m.nextArchivePath(now)
	snap := &types.BackupSnapshot{
		ID:          strings.TrimSuffix(filepath.Base(archive), archiveSuffix),
		Timestamp:   now,
		ArchivePath: archive,
		Flavor:      flavor,
	}

	type file struct {
		entry types.BackupEntry
		data  []byte
		mode  os.FileMode
	}
	var files []file
	for _, key := range Keys(flavor) {
		path := m.Layout.PathFor(flavor, key)
		fi, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			logger.Infof(ctx, "skip missing %s", path)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		data, err := os.ReadFile(path) //nolint:gosec
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		e := types.BackupEntry{Key: key, Path: path, Size: int64(len(data)), Digest: digest.FromBytes(data).String()}
		files = append(files, file{entry: e, data: data, mode: fi.Mode().Perm()})
		snap.Manifest = append(snap.Manifest, e)
	}
	if len(files) == 0 {
		return nil, &types.Error{
			Kind:   types.KindInconsistent,
			Op:     "backup",
			Err:    fmt.Errorf("no %s files found under %s", flavor, m.Layout.StackDir(flavor)),
			Remedy: "nothing to back up; run `debridctl install` first",
		}
	}

	man, err := json.MarshalIndent(manifest{ID: snap.ID, Timestamp: now, Flavor: flavor, Entries: snap.Manifest}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}

	err = writeArchive(archive, now, func(tw *tar.Writer) error {
		if err := writeEntry(tw, manifestName, man, 0o644, now); err != nil {
			return err
		}
		for _, f := range files {
			if err := writeEntry(tw, f.entry.Key, f.data, f.mode, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var total int64
	for _, e := range snap.Manifest {
		total += e.Size
	}
	logger.Infof(ctx, "snapshot %s: %d files, %s", archive, len(snap.Manifest), units.HumanSize(float64(total)))

	if err := m.prune(ctx); err != nil {
		logger.Warnf(ctx, "prune old snapshots: %v", err)
	}
	return snap, nil
}

func (m *Manager) nextArchivePath(t time.Time) string {
	base := filepath.Join(m.Layout.BackupsDir(), archivePrefix+t.Format(timeFormat))
	path := base + archiveSuffix
	for i := 1; utils.FileExists(path); i++ {
		path = base + "-" + strconv.Itoa(i) + archiveSuffix
	}
	return path
}

func writeArchive(path string, mtime time.Time, fill func(*tar.Writer) error) error {
	tmp := path + ".partial"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	defer os.Remove(tmp) //nolint:errcheck

	gz := gzip.NewWriter(f)
	gz.ModTime = mtime
	tw := tar.NewWriter(gz)
	err = fill(tw)
	if err == nil {
		err = tw.Close()
	}
	if err == nil {
		err = gz.Close()
	}
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write archive %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

func writeEntry(tw *tar.Writer, name string, data []byte, mode os.FileMode, mtime time.Time) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     int64(mode),
		Size:     int64(len(data)),
		ModTime:  mtime,
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write header %s: %w", name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// List returns snapshots in the backup dir, newest first. Archives whose
// manifest cannot be read are listed with flavor none.
func (m *Manager) List() ([]types.BackupSnapshot, error) {
	dir := m.Layout.BackupsDir()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	type ranked struct {
		snap types.BackupSnapshot
		seq  int
	}
	var found []ranked
	for _, e := range entries {
		match := archiveNameRE.FindStringSubmatch(e.Name())
		if e.IsDir() || match == nil {
			continue
		}
		ts, err := time.ParseInLocation(timeFormat, match[1], time.UTC)
		if err != nil {
			continue
		}
		seq, _ := strconv.Atoi(match[2])
		snap := types.BackupSnapshot{
			ID:          strings.TrimSuffix(e.Name(), archiveSuffix),
			Timestamp:   ts,
			ArchivePath: filepath.Join(dir, e.Name()),
			Flavor:      types.FlavorNone,
		}
		if man, err := readManifest(snap.ArchivePath); err == nil {
			snap.Flavor = man.Flavor
			snap.Manifest = man.Entries
		}
		found = append(found, ranked{snap: snap, seq: seq})
	}
	slices.SortFunc(found, func(a, b ranked) int {
		if c := b.snap.Timestamp.Compare(a.snap.Timestamp); c != 0 {
			return c
		}
		return b.seq - a.seq
	})
	out := make([]types.BackupSnapshot, 0, len(found))
	for _, f := range found {
		out = append(out, f.snap)
	}
	return out, nil
}

// prune keeps the newest BackupKeep snapshots.
func (m *Manager) prune(ctx context.Context) error {
	keep := m.Layout.BackupKeep
	if keep <= 0 {
		return nil
	}
	snaps, err := m.List()
	if err != nil || len(snaps) <= keep {
		return err
	}
	var errs []error
	for _, s := range snaps[keep:] {
		if err := os.Remove(s.ArchivePath); err != nil {
			errs = append(errs, err)
			continue
		}
		log.WithFunc("backup.prune").Infof(ctx, "removed old snapshot %s", s.ArchivePath)
	}
	return errors.Join(errs...)
}
