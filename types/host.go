package types

// Arch is the CPU architecture of the host, in Go/OCI naming.
type Arch string

const (
	ArchAMD64 Arch = "amd64"
	ArchARM64 Arch = "arm64"
)

// PackageManager identifies the OS package manager used to install tooling.
type PackageManager string

const (
	PackageManagerApt    PackageManager = "apt"
	PackageManagerDnf    PackageManager = "dnf"
	PackageManagerYum    PackageManager = "yum"
	PackageManagerPacman PackageManager = "pacman"
	PackageManagerZypper PackageManager = "zypper"
)

// OSFamily groups distributions that share a package manager and package names.
type OSFamily string

const (
	OSFamilyDebian  OSFamily = "debian"
	OSFamilyRHEL    OSFamily = "rhel"
	OSFamilyArch    OSFamily = "arch"
	OSFamilySUSE    OSFamily = "suse"
	OSFamilyUnknown OSFamily = "unknown"
)

// ConstrainedMemoryMB is the memory threshold under which a virtualized host
// is rendered with the constrained resource tier.
const ConstrainedMemoryMB = 2048

// HostProfile describes the machine being provisioned. Produced once per run
// by the prober and never modified afterward.
type HostProfile struct {
	OSFamily       OSFamily       `json:"os_family"`
	OSID           string         `json:"os_id"`
	OSVersion      string         `json:"os_version,omitempty"`
	Architecture   Arch           `json:"architecture"`
	IsVirtualized  bool           `json:"is_virtualized"`
	Virtualization string         `json:"virtualization,omitempty"` // e.g. "kvm", "lxc"; informational only
	TotalMemoryMB  int64          `json:"total_memory_mb"`
	CPUCores       int            `json:"cpu_cores"`
	PackageManager PackageManager `json:"package_manager"`
	PrimaryAddress string         `json:"primary_address"`
}

// ResourceTier picks the concurrency preset for this host.
func (h HostProfile) ResourceTier() ResourceTier {
	if h.IsVirtualized && h.TotalMemoryMB < ConstrainedMemoryMB {
		return ResourceTierConstrained
	}
	return ResourceTierNormal
}
