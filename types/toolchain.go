package types

// MountToolTier separates rclone releases that understand the newer VFS flags
// from those that do not.
type MountToolTier string

const (
	MountToolLegacy MountToolTier = "legacy"
	MountToolModern MountToolTier = "modern"
)

// ToolchainState is what is currently installed on the host. The executor
// updates it as it installs missing tools; the renderer reads the mount tier.
type ToolchainState struct {
	ContainerRuntimePresent bool          `json:"container_runtime_present"`
	ComposePresent          bool          `json:"compose_present"`
	MountToolPresent        bool          `json:"mount_tool_present"`
	MountToolVersion        string        `json:"mount_tool_version,omitempty"`
	MountToolVersionTier    MountToolTier `json:"mount_tool_version_tier"`
	FuseVersion             int           `json:"fuse_version"` // 0 when no fusermount binary is found
	CommonPackagesPresent   bool          `json:"common_packages_present"`
}
