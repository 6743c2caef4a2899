package config

import (
	"path/filepath"

	"github.com/projecteru2/debridctl/types"
	"github.com/projecteru2/debridctl/utils"
)

const (
	// MountUnitName is the systemd unit that runs the rclone mount.
	MountUnitName = "zurg-rclone.service"
	// RcloneRemote is the remote name written to rclone.conf.
	RcloneRemote = "zurg"

	individualDirName = "stack"
	bundleDirName     = "dmb"
)

// Archive keys shared by the renderer and the backup manager. Keys are
// relative to the flavor's stack directory, except SystemPrefix entries.
const (
	KeyCompose       = "docker-compose.yml"
	KeyEnv           = ".env"
	KeyZurgConfig    = "zurg/config.yml"
	KeyRcloneConfig  = "rclone/rclone.conf"
	KeyRemountScript = "bin/remount.sh"
	KeyBundleConfig  = "config/dmb_config.json"
	KeyMountUnit     = SystemPrefix + MountUnitName

	SystemPrefix = "system/"
)

// EnsureDirs creates the static directories debridctl writes into.
func (c *Config) EnsureDirs() error {
	return utils.EnsureDirs(
		c.RootDir,
		c.BackupsDir(),
		c.RunDir,
	)
}

// StackDir is the directory holding a flavor's compose project.
func (c *Config) StackDir(f types.Flavor) string {
	if f == types.FlavorBundle {
		return filepath.Join(c.RootDir, bundleDirName)
	}
	return filepath.Join(c.RootDir, individualDirName)
}

// ComposeFile and EnvFile are per-flavor compose project files.
func (c *Config) ComposeFile(f types.Flavor) string { return c.PathFor(f, KeyCompose) }
func (c *Config) EnvFile(f types.Flavor) string     { return c.PathFor(f, KeyEnv) }

// Individual-flavor service configuration.

func (c *Config) ZurgConfig() string    { return c.PathFor(types.FlavorIndividual, KeyZurgConfig) }
func (c *Config) ZurgDataDir() string   { return filepath.Join(c.StackDir(types.FlavorIndividual), "zurg", "data") }
func (c *Config) RcloneConfig() string  { return c.PathFor(types.FlavorIndividual, KeyRcloneConfig) }
func (c *Config) RemountScript() string { return c.PathFor(types.FlavorIndividual, KeyRemountScript) }

// BundleConfig is the bundle marker file: its presence identifies the bundle flavor.
func (c *Config) BundleConfig() string { return c.PathFor(types.FlavorBundle, KeyBundleConfig) }

// UnitFile is the mount-service unit path.
func (c *Config) UnitFile() string { return filepath.Join(c.UnitDir, MountUnitName) }

// ServiceDataDir is the per-service persistent volume root.
func (c *Config) ServiceDataDir(f types.Flavor, id types.ServiceID) string {
	return filepath.Join(c.StackDir(f), "data", string(id))
}

// MountPoint is where the debrid library appears on the host.
func (c *Config) MountPoint(f types.Flavor) string {
	if f == types.FlavorBundle {
		return c.BundleMountDir
	}
	return c.MountDir
}

// BundleLibraryMount is where DMB's rclone lands its FUSE mount: the
// remote name under the propagated mount directory.
func (c *Config) BundleLibraryMount() string {
	return filepath.Join(c.BundleMountDir, RcloneRemote)
}

// PathFor maps an archive key to its canonical on-disk path for flavor f.
func (c *Config) PathFor(f types.Flavor, key string) string {
	if key == KeyMountUnit {
		return c.UnitFile()
	}
	return filepath.Join(c.StackDir(f), filepath.FromSlash(key))
}

// BackupsDir returns where snapshot archives live.
func (c *Config) BackupsDir() string {
	if c.BackupDir != "" {
		return c.BackupDir
	}
	return filepath.Join(c.RootDir, "backups")
}

// DiagnosticsDir receives health-check diagnostic bundles.
func (c *Config) DiagnosticsDir() string { return filepath.Join(c.RootDir, "diagnostics") }

// LockFile serializes mutating runs.
func (c *Config) LockFile() string { return filepath.Join(c.RunDir, "debridctl.lock") }
