// Package probe inspects the host: OS release, architecture,
// virtualization, memory, CPU, primary address and installed tooling.
// Probing is read-only and never fails; missing indicators fall back to
// conservative defaults.
package probe

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/docker/go-units"
	"github.com/joho/godotenv"
	"github.com/projecteru2/core/log"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"github.com/projecteru2/debridctl/types"
	"github.com/projecteru2/debridctl/utils"
)

const (
	// FallbackAddress is used when no outbound route can be resolved.
	FallbackAddress = "127.0.0.1"

	// routeProbeTarget is never contacted; it only selects the default route.
	routeProbeTarget = "1.1.1.1"
)

// Prober gathers a HostProfile. Root is prefixed to every file read so
// tests can point it at a fixture tree. The function fields default to
// live kernel queries.
type Prober struct {
	Root   string
	Runner utils.Runner

	Machine  func() string
	MemoryMB func() int64
	CPUs     func() int
	Address  func() string
}

// New returns a Prober for the live host.
func New(runner utils.Runner) *Prober {
	return &Prober{Root: "/", Runner: runner}
}

// Probe collects the host profile.
func (p *Prober) Probe(ctx context.Context) types.HostProfile {
	logger := log.WithFunc("probe.Probe")

	rel := p.osRelease()
	h := types.HostProfile{
		OSID:         rel["ID"],
		OSVersion:    rel["VERSION_ID"],
		OSFamily:     osFamily(rel["ID"], rel["ID_LIKE"]),
		Architecture: normalizeArch(p.machine()),
		CPUCores:     p.cpus(),
	}
	h.PackageManager = p.packageManager(h.OSFamily, h.OSVersion)
	h.Virtualization = p.virtualization()
	h.IsVirtualized = h.Virtualization != ""
	h.TotalMemoryMB = p.memoryMB()
	h.PrimaryAddress = p.address()

	logger.Infof(ctx, "host %s %s (%s) arch=%s pkg=%s virt=%q mem=%s cpus=%d addr=%s",
		h.OSID, h.OSVersion, h.OSFamily, h.Architecture, h.PackageManager, h.Virtualization,
		units.BytesSize(float64(h.TotalMemoryMB)*units.MiB), h.CPUCores, h.PrimaryAddress)
	return h
}

func (p *Prober) path(rel string) string {
	root := p.Root
	if root == "" {
		root = "/"
	}
	return filepath.Join(root, rel)
}

func (p *Prober) readFile(rel string) string {
	b, err := os.ReadFile(p.path(rel)) //nolint:gosec // fixed host paths
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

func (p *Prober) exists(rel string) bool {
	_, err := os.Stat(p.path(rel))
	return err == nil
}

// osRelease parses /etc/os-release, which uses shell-style KEY="value" lines.
func (p *Prober) osRelease() map[string]string {
	for _, rel := range []string{"etc/os-release", "usr/lib/os-release"} {
		raw := p.readFile(rel)
		if raw == "" {
			continue
		}
		if env, err := godotenv.Unmarshal(raw); err == nil {
			return env
		}
	}
	return map[string]string{}
}

func osFamily(id, idLike string) types.OSFamily {
	for _, tok := range append([]string{id}, strings.Fields(idLike)...) {
		switch strings.ToLower(tok) {
		case "debian", "ubuntu", "raspbian", "linuxmint", "pop":
			return types.OSFamilyDebian
		case "rhel", "fedora", "centos", "rocky", "almalinux", "ol", "amzn":
			return types.OSFamilyRHEL
		case "arch", "manjaro", "endeavouros":
			return types.OSFamilyArch
		case "suse", "opensuse", "opensuse-leap", "opensuse-tumbleweed", "sles":
			return types.OSFamilySUSE
		}
	}
	return types.OSFamilyUnknown
}

func (p *Prober) packageManager(family types.OSFamily, version string) types.PackageManager {
	switch family {
	case types.OSFamilyRHEL:
		// EL7 ships yum only.
		if major, _, _ := strings.Cut(version, "."); major == "7" {
			return types.PackageManagerYum
		}
		if p.Runner != nil && p.Runner.LookPath("dnf") == "" && p.Runner.LookPath("yum") != "" {
			return types.PackageManagerYum
		}
		return types.PackageManagerDnf
	case types.OSFamilyArch:
		return types.PackageManagerPacman
	case types.OSFamilySUSE:
		return types.PackageManagerZypper
	default:
		return types.PackageManagerApt
	}
}

func normalizeArch(machine string) types.Arch {
	switch machine {
	case "aarch64", "arm64", "armv8l":
		return types.ArchARM64
	default:
		return types.ArchAMD64
	}
}

func (p *Prober) machine() string {
	if p.Machine != nil {
		return p.Machine()
	}
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return runtime.GOARCH
	}
	return unix.ByteSliceToString(u.Machine[:])
}

func (p *Prober) cpus() int {
	if p.CPUs != nil {
		return p.CPUs()
	}
	return runtime.NumCPU()
}

var dmiVendors = map[string]string{
	"qemu":                  "qemu",
	"kvm":                   "kvm",
	"vmware":                "vmware",
	"virtualbox":            "virtualbox",
	"innotek":               "virtualbox",
	"xen":                   "xen",
	"microsoft corporation": "hyperv",
	"amazon ec2":            "amazon",
	"google":                "gce",
	"digitalocean":          "digitalocean",
	"parallels":             "parallels",
	"bochs":                 "bochs",
	"hetzner":               "hetzner",
	"openstack":             "openstack",
}

// virtualization returns the detected hypervisor or container name, or ""
// on bare metal.
func (p *Prober) virtualization() string {
	if p.exists(".dockerenv") {
		return "docker"
	}
	if c := p.readFile("run/systemd/container"); c != "" {
		return c
	}
	for _, f := range []string{"sys/class/dmi/id/sys_vendor", "sys/class/dmi/id/product_name"} {
		v := strings.ToLower(p.readFile(f))
		if v == "" {
			continue
		}
		for marker, name := range dmiVendors {
			if strings.Contains(v, marker) {
				return name
			}
		}
	}
	if cpuHasHypervisorFlag(p.readFile("proc/cpuinfo")) {
		return "hypervisor"
	}
	return ""
}

func cpuHasHypervisorFlag(cpuinfo string) bool {
	sc := bufio.NewScanner(strings.NewReader(cpuinfo))
	for sc.Scan() {
		key, val, ok := strings.Cut(sc.Text(), ":")
		if !ok || strings.TrimSpace(key) != "flags" {
			continue
		}
		for _, f := range strings.Fields(val) {
			if f == "hypervisor" {
				return true
			}
		}
		return false
	}
	return false
}

func (p *Prober) memoryMB() int64 {
	if p.MemoryMB != nil {
		return p.MemoryMB()
	}
	var si unix.Sysinfo_t
	if err := unix.Sysinfo(&si); err == nil && si.Totalram > 0 {
		return int64(si.Totalram) * int64(si.Unit) / units.MiB //nolint:unconvert,gosec
	}
	return parseMemTotal(p.readFile("proc/meminfo"))
}

// parseMemTotal extracts MemTotal from /proc/meminfo in megabytes.
func parseMemTotal(meminfo string) int64 {
	sc := bufio.NewScanner(bytes.NewBufferString(meminfo))
	for sc.Scan() {
		key, val, ok := strings.Cut(sc.Text(), ":")
		if !ok || key != "MemTotal" {
			continue
		}
		n, err := units.RAMInBytes(strings.TrimSpace(val))
		if err != nil {
			return 0
		}
		return n / units.MiB
	}
	return 0
}

func (p *Prober) address() string {
	if p.Address != nil {
		if a := p.Address(); a != "" {
			return a
		}
		return FallbackAddress
	}
	routes, err := netlink.RouteGet(net.ParseIP(routeProbeTarget))
	if err != nil {
		return FallbackAddress
	}
	for _, r := range routes {
		if r.Src != nil && !r.Src.IsLoopback() {
			return r.Src.String()
		}
	}
	return FallbackAddress
}
