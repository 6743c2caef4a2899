package backup

import (
	"archive/tar"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/opencontainers/go-digest"
	"github.com/projecteru2/core/log"

	"github.com/projecteru2/debridctl/config"
	"github.com/projecteru2/debridctl/types"
	"github.com/projecteru2/debridctl/utils"
)

// maxEntrySize bounds a single archive member; generated files are tiny.
const maxEntrySize = 16 << 20

type member struct {
	data []byte
	mode os.FileMode
}

// readArchive loads every member of a snapshot into memory after checking
// that no name escapes the restore root.
func readArchive(archive string) (map[string]member, error) {
	f, err := os.Open(archive) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", archive, err)
	}
	defer f.Close() //nolint:errcheck

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArchive, archive, err)
	}
	defer gz.Close() //nolint:errcheck

	members := map[string]member{}
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArchive, archive, err)
		}
		if err := checkName(hdr.Name); err != nil {
			return nil, err
		}
		if hdr.Typeflag != tar.TypeReg {
			return nil, fmt.Errorf("%w: entry %q is not a regular file", ErrInvalidArchive, hdr.Name)
		}
		if hdr.Size > maxEntrySize {
			return nil, fmt.Errorf("%w: entry %q is too large", ErrInvalidArchive, hdr.Name)
		}
		data, err := io.ReadAll(io.LimitReader(tr, maxEntrySize))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", hdr.Name, err)
		}
		members[path.Clean(hdr.Name)] = member{data: data, mode: os.FileMode(hdr.Mode).Perm()} //nolint:gosec
	}
	return members, nil
}

// checkName rejects absolute names and any name that climbs out with "..".
func checkName(name string) error {
	if name == "" || path.IsAbs(name) || strings.HasPrefix(name, `\`) {
		return fmt.Errorf("%w: absolute entry %q", ErrInvalidArchive, name)
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return fmt.Errorf("%w: entry %q escapes the restore root", ErrInvalidArchive, name)
		}
	}
	return nil
}

func readManifest(archive string) (*manifest, error) {
	members, err := readArchive(archive)
	if err != nil {
		return nil, err
	}
	return parseManifest(members)
}

func parseManifest(members map[string]member) (*manifest, error) {
	raw, ok := members[manifestName]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidArchive, manifestName)
	}
	var man manifest
	if err := json.Unmarshal(raw.data, &man); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrInvalidArchive, manifestName, err)
	}
	return &man, nil
}

// SnapshotFlavor is bundle iff the archive carries the bundle marker file.
func SnapshotFlavor(keys []string) types.Flavor {
	if slices.Contains(keys, config.KeyBundleConfig) {
		return types.FlavorBundle
	}
	return types.FlavorIndividual
}

// Restore places a snapshot's files on the canonical paths of the
// snapshot's flavor. Services of the currently installed flavor are
// stopped first. Every digest is verified before anything is written.
// Redeploying is left to the caller.
func (m *Manager) Restore(ctx context.Context, snap types.BackupSnapshot, current types.InstallationRecord) (types.Flavor, []string, error) {
	logger := log.WithFunc("backup.Restore")

	members, err := readArchive(snap.ArchivePath)
	if err != nil {
		return types.FlavorNone, nil, restoreErr(err)
	}
	man, err := parseManifest(members)
	if err != nil {
		return types.FlavorNone, nil, restoreErr(err)
	}

	var keys []string
	for name := range members {
		if name != manifestName {
			keys = append(keys, name)
		}
	}
	slices.Sort(keys)
	flavor := SnapshotFlavor(keys)
	allowed := Keys(flavor)

	digests := map[string]string{}
	for _, e := range man.Entries {
		digests[e.Key] = e.Digest
	}
	var restore []string
	for _, key := range keys {
		if !slices.Contains(allowed, key) {
			logger.Warnf(ctx, "ignoring unexpected entry %s", key)
			continue
		}
		if err := verify(key, members[key].data, digests[key]); err != nil {
			return flavor, nil, restoreErr(err)
		}
		restore = append(restore, key)
	}
	if len(restore) == 0 {
		return flavor, nil, restoreErr(fmt.Errorf("%w: no restorable files", ErrInvalidArchive))
	}

	m.stopServices(ctx, current)

	var written []string
	for _, key := range restore {
		dst := m.Layout.PathFor(flavor, key)
		mb := members[key]
		mode := mb.mode
		if mode == 0 {
			mode = 0o600
		}
		if err := utils.AtomicWriteFile(dst, mb.data, mode); err != nil {
			return flavor, written, types.Fatal("restore "+key, err, "check permissions on "+dst)
		}
		written = append(written, dst)
	}
	logger.Infof(ctx, "restored %d files from %s as %s", len(written), snap.ID, flavor)
	return flavor, written, nil
}

func verify(key string, data []byte, want string) error {
	if want == "" {
		return fmt.Errorf("%w: %s not listed in manifest", ErrInvalidArchive, key)
	}
	d, err := digest.Parse(want)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidArchive, key, err)
	}
	v := d.Verifier()
	_, _ = v.Write(data)
	if !v.Verified() {
		return fmt.Errorf("%w: %s digest mismatch", ErrInvalidArchive, key)
	}
	return nil
}

func restoreErr(err error) error {
	return &types.Error{
		Kind:   types.KindInconsistent,
		Op:     "restore",
		Err:    err,
		Remedy: "choose another snapshot with `debridctl restore`",
	}
}

// stopServices brings down whatever is currently installed. Failures are
// logged; the restore proceeds since files are replaced either way.
func (m *Manager) stopServices(ctx context.Context, current types.InstallationRecord) {
	logger := log.WithFunc("backup.stopServices")
	if !current.Installed() {
		return
	}
	if current.Flavor == types.FlavorIndividual && m.Runner != nil {
		if _, err := m.Runner.Run(ctx, "systemctl", "stop", config.MountUnitName); err != nil {
			logger.Warnf(ctx, "stop %s: %v", config.MountUnitName, err)
		}
	}
	if m.Engine == nil {
		return
	}
	compose := m.Layout.ComposeFile(current.Flavor)
	if utils.FileExists(compose) {
		if err := m.Engine.ComposeDown(ctx, m.Layout.ProjectName, compose); err != nil {
			logger.Warnf(ctx, "compose down: %v", err)
		}
		return
	}
	for _, id := range current.PresentServices {
		name := types.MustLookup(id).ContainerName
		if running, err := m.Engine.Running(ctx, name); err == nil && !running {
			continue
		}
		if err := m.Engine.Stop(ctx, name); err != nil {
			logger.Warnf(ctx, "stop %s: %v", name, err)
		}
	}
}
