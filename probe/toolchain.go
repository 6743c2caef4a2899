package probe

import (
	"context"
	"regexp"
	"strconv"

	"github.com/projecteru2/core/log"

	"github.com/projecteru2/debridctl/types"
)

// CommonTools are the binaries the common package set provides.
var CommonTools = []string{"curl", "tar", "gpg"}

// Mount tool versions at or above this carry the VFS refresh and
// fingerprint flags.
const (
	modernMajor = 1
	modernMinor = 64
)

var rcloneVersionRE = regexp.MustCompile(`rclone v?(\d+)\.(\d+)(?:\.(\d+))?`)

// ProbeToolchain reports which required tools are installed.
func (p *Prober) ProbeToolchain(ctx context.Context) types.ToolchainState {
	logger := log.WithFunc("probe.ProbeToolchain")
	var ts types.ToolchainState

	if p.Runner.LookPath("docker") != "" {
		ts.ContainerRuntimePresent = true
		if _, err := p.Runner.Run(ctx, "docker", "compose", "version"); err == nil {
			ts.ComposePresent = true
		}
	}

	if p.Runner.LookPath("rclone") != "" {
		ts.MountToolPresent = true
		if out, err := p.Runner.Run(ctx, "rclone", "version"); err == nil {
			ts.MountToolVersion, ts.MountToolVersionTier = ParseRcloneVersion(string(out))
		} else {
			logger.Warnf(ctx, "rclone version: %v", err)
			ts.MountToolVersionTier = types.MountToolLegacy
		}
	}

	switch {
	case p.Runner.LookPath("fusermount3") != "":
		ts.FuseVersion = 3
	case p.Runner.LookPath("fusermount") != "":
		ts.FuseVersion = 2
	}

	ts.CommonPackagesPresent = true
	for _, tool := range CommonTools {
		if p.Runner.LookPath(tool) == "" {
			ts.CommonPackagesPresent = false
			break
		}
	}

	logger.Infof(ctx, "toolchain docker=%t compose=%t rclone=%t (%s %s) fuse=%d common=%t",
		ts.ContainerRuntimePresent, ts.ComposePresent, ts.MountToolPresent,
		ts.MountToolVersion, ts.MountToolVersionTier, ts.FuseVersion, ts.CommonPackagesPresent)
	return ts
}

// ParseRcloneVersion extracts the version from `rclone version` output and
// classifies it. Unparseable output is treated as legacy.
func ParseRcloneVersion(out string) (string, types.MountToolTier) {
	m := rcloneVersionRE.FindStringSubmatch(out)
	if m == nil {
		return "", types.MountToolLegacy
	}
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	version := "v" + m[1] + "." + m[2]
	if m[3] != "" {
		version += "." + m[3]
	}
	if major > modernMajor || (major == modernMajor && minor >= modernMinor) {
		return version, types.MountToolModern
	}
	return version, types.MountToolLegacy
}
