package render

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/projecteru2/debridctl/config"
	"github.com/projecteru2/debridctl/types"
)

// ExcludePatterns are never surfaced through the mount.
var ExcludePatterns = []string{".Trash-*", "*.partial~", "._*"}

// RcloneConf renders rclone.conf with a single WebDAV remote pointing at zurg.
func RcloneConf() []byte {
	return fmt.Appendf(nil, "[%s]\ntype = webdav\nurl = http://localhost:%d/dav\nvendor = other\npacer_min_sleep = 0\n",
		config.RcloneRemote, zurgPort)
}

// MountArgs returns the rclone mount flags for the tier and tool version.
// The VFS refresh, fast fingerprint and min-free-space flags exist only in
// modern rclone releases.
func MountArgs(cfg *types.StackConfig, tuning Tuning, tier types.MountToolTier, layout *config.Config) []string {
	stack := layout.StackDir(types.FlavorIndividual)
	args := []string{
		"--config=" + layout.RcloneConfig(),
		"--cache-dir=" + filepath.Join(stack, "rclone", "cache"),
		"--allow-other",
		fmt.Sprintf("--uid=%d", cfg.PUID),
		fmt.Sprintf("--gid=%d", cfg.PGID),
		"--umask=002",
		"--dir-cache-time=" + tuning.DirCacheTime,
		"--vfs-cache-mode=full",
		"--vfs-cache-max-size=" + tuning.CacheMaxSize,
		"--vfs-cache-max-age=" + tuning.CacheMaxAge,
		"--vfs-read-chunk-size=" + tuning.ReadChunkSize,
		"--vfs-read-chunk-size-limit=" + tuning.ReadChunkSizeLimit,
		"--buffer-size=" + tuning.BufferSize,
		fmt.Sprintf("--transfers=%d", tuning.Transfers),
		fmt.Sprintf("--checkers=%d", tuning.Checkers),
	}
	if tier == types.MountToolModern {
		args = append(args,
			"--vfs-refresh",
			"--vfs-fast-fingerprint",
			"--vfs-cache-min-free-space="+tuning.CacheMinFreeSpace,
		)
	}
	for _, p := range ExcludePatterns {
		args = append(args, "--exclude="+p)
	}
	return append(args, "--log-level=INFO")
}

// UnmountCommand tries fusermount3, then fusermount, then a lazy umount.
func UnmountCommand(mount string) string {
	return fmt.Sprintf("fusermount3 -uz %[1]s || fusermount -uz %[1]s || umount -l %[1]s", mount)
}

// MountUnit renders the systemd service that keeps the rclone mount alive.
func MountUnit(cfg *types.StackConfig, tuning Tuning, tier types.MountToolTier, layout *config.Config) []byte {
	mount := layout.MountDir
	var b strings.Builder
	b.WriteString("[Unit]\n")
	fmt.Fprintf(&b, "Description=rclone mount of zurg WebDAV at %s\n", mount)
	b.WriteString("After=network-online.target docker.service\n")
	b.WriteString("Wants=network-online.target\n")
	b.WriteString("Requires=docker.service\n\n")

	b.WriteString("[Service]\n")
	b.WriteString("Type=notify\n")
	fmt.Fprintf(&b, "ExecStartPre=/bin/mkdir -p %s\n", mount)
	fmt.Fprintf(&b, "ExecStart=%s mount %s: %s", layout.RcloneBinary, config.RcloneRemote, mount)
	for _, a := range MountArgs(cfg, tuning, tier, layout) {
		fmt.Fprintf(&b, " \\\n  %s", a)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "ExecStop=/bin/sh -c '%s'\n", UnmountCommand(mount))
	b.WriteString("Restart=on-failure\n")
	b.WriteString("RestartSec=10\n\n")

	b.WriteString("[Install]\n")
	b.WriteString("WantedBy=multi-user.target\n")
	return []byte(b.String())
}

// RemountScript renders bin/remount.sh: stop the unit, lazily unmount,
// start the unit again.
func RemountScript(layout *config.Config) []byte {
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	b.WriteString("set -u\n")
	fmt.Fprintf(&b, "systemctl stop %s\n", config.MountUnitName)
	fmt.Fprintf(&b, "{ %s; } 2>/dev/null\n", UnmountCommand(layout.MountDir))
	fmt.Fprintf(&b, "exec systemctl start %s\n", config.MountUnitName)
	return []byte(b.String())
}
