package probe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projecteru2/debridctl/types"
	"github.com/projecteru2/debridctl/utils"
)

func writeFixture(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func fixedProber(root string) *Prober {
	return &Prober{
		Root:     root,
		Runner:   &utils.MockRunner{},
		Machine:  func() string { return "x86_64" },
		MemoryMB: func() int64 { return 8192 },
		CPUs:     func() int { return 4 },
		Address:  func() string { return "192.168.1.20" },
	}
}

func TestProbe_DebianVM(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, map[string]string{
		"etc/os-release":                "ID=ubuntu\nID_LIKE=debian\nVERSION_ID=\"24.04\"\nPRETTY_NAME=\"Ubuntu 24.04 LTS\"\n",
		"sys/class/dmi/id/sys_vendor":   "QEMU\n",
		"sys/class/dmi/id/product_name": "Standard PC (Q35 + ICH9, 2009)\n",
	})
	p := fixedProber(root)
	p.MemoryMB = func() int64 { return 1024 }

	h := p.Probe(context.Background())
	assert.Equal(t, "ubuntu", h.OSID)
	assert.Equal(t, "24.04", h.OSVersion)
	assert.Equal(t, types.OSFamilyDebian, h.OSFamily)
	assert.Equal(t, types.PackageManagerApt, h.PackageManager)
	assert.Equal(t, types.ArchAMD64, h.Architecture)
	assert.True(t, h.IsVirtualized)
	assert.Equal(t, "qemu", h.Virtualization)
	assert.Equal(t, int64(1024), h.TotalMemoryMB)
	assert.Equal(t, 4, h.CPUCores)
	assert.Equal(t, "192.168.1.20", h.PrimaryAddress)
	assert.Equal(t, types.ResourceTierConstrained, h.ResourceTier())
}

func TestProbe_EmptyRootFallsBack(t *testing.T) {
	p := fixedProber(t.TempDir())
	p.Machine = func() string { return "riscv64" }
	p.Address = func() string { return "" }

	h := p.Probe(context.Background())
	assert.Equal(t, types.ArchAMD64, h.Architecture)
	assert.Equal(t, types.PackageManagerApt, h.PackageManager)
	assert.Equal(t, types.OSFamilyUnknown, h.OSFamily)
	assert.False(t, h.IsVirtualized)
	assert.Equal(t, FallbackAddress, h.PrimaryAddress)
	assert.Equal(t, types.ResourceTierNormal, h.ResourceTier())
}

func TestProbe_PackageManagers(t *testing.T) {
	tests := []struct {
		osRelease string
		want      types.PackageManager
	}{
		{"ID=fedora\nVERSION_ID=40\n", types.PackageManagerDnf},
		{"ID=centos\nID_LIKE=\"rhel fedora\"\nVERSION_ID=\"7\"\n", types.PackageManagerYum},
		{"ID=rocky\nID_LIKE=\"rhel centos fedora\"\nVERSION_ID=\"9.3\"\n", types.PackageManagerDnf},
		{"ID=arch\n", types.PackageManagerPacman},
		{"ID=\"opensuse-leap\"\nID_LIKE=\"suse opensuse\"\n", types.PackageManagerZypper},
		{"ID=raspbian\nID_LIKE=debian\n", types.PackageManagerApt},
	}
	for _, tt := range tests {
		root := t.TempDir()
		writeFixture(t, root, map[string]string{"etc/os-release": tt.osRelease})
		h := fixedProber(root).Probe(context.Background())
		assert.Equal(t, tt.want, h.PackageManager, tt.osRelease)
	}
}

func TestProbe_ARM(t *testing.T) {
	p := fixedProber(t.TempDir())
	p.Machine = func() string { return "aarch64" }
	assert.Equal(t, types.ArchARM64, p.Probe(context.Background()).Architecture)
}

func TestVirtualization(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  string
	}{
		{"docker", map[string]string{".dockerenv": ""}, "docker"},
		{"lxc", map[string]string{"run/systemd/container": "lxc\n"}, "lxc"},
		{"hyperv", map[string]string{"sys/class/dmi/id/sys_vendor": "Microsoft Corporation"}, "hyperv"},
		{"cpu flag", map[string]string{"proc/cpuinfo": "processor\t: 0\nflags\t\t: fpu vme hypervisor lahf_lm\n"}, "hypervisor"},
		{"bare metal", map[string]string{
			"sys/class/dmi/id/sys_vendor": "Dell Inc.",
			"proc/cpuinfo":                "flags\t\t: fpu vme sse2\n",
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeFixture(t, root, tt.files)
			assert.Equal(t, tt.want, fixedProber(root).virtualization())
		})
	}
}

func TestParseMemTotal(t *testing.T) {
	meminfo := "MemTotal:        2048000 kB\nMemFree:          100000 kB\n"
	assert.Equal(t, int64(2000), parseMemTotal(meminfo))
	assert.Zero(t, parseMemTotal(""))
}

func TestParseRcloneVersion(t *testing.T) {
	tests := []struct {
		out     string
		version string
		tier    types.MountToolTier
	}{
		{"rclone v1.66.0\n- os/version: debian 12\n", "v1.66.0", types.MountToolModern},
		{"rclone v1.64.0\n", "v1.64.0", types.MountToolModern},
		{"rclone v1.53.3-DEV\n", "v1.53.3", types.MountToolLegacy},
		{"rclone v2.0\n", "v2.0", types.MountToolModern},
		{"garbage", "", types.MountToolLegacy},
	}
	for _, tt := range tests {
		v, tier := ParseRcloneVersion(tt.out)
		assert.Equal(t, tt.version, v, tt.out)
		assert.Equal(t, tt.tier, tier, tt.out)
	}
}

func TestProbeToolchain(t *testing.T) {
	r := &utils.MockRunner{
		Paths: map[string]string{
			"docker":      "/usr/bin/docker",
			"rclone":      "/usr/bin/rclone",
			"fusermount3": "/usr/bin/fusermount3",
			"curl":        "/usr/bin/curl",
			"tar":         "/usr/bin/tar",
			"gpg":         "/usr/bin/gpg",
		},
		RunFunc: func(_ context.Context, name string, _ ...string) ([]byte, error) {
			if name == "rclone" {
				return []byte("rclone v1.68.1\n"), nil
			}
			return nil, nil
		},
	}
	ts := (&Prober{Runner: r}).ProbeToolchain(context.Background())
	assert.True(t, ts.ContainerRuntimePresent)
	assert.True(t, ts.ComposePresent)
	assert.True(t, ts.MountToolPresent)
	assert.Equal(t, "v1.68.1", ts.MountToolVersion)
	assert.Equal(t, types.MountToolModern, ts.MountToolVersionTier)
	assert.Equal(t, 3, ts.FuseVersion)
	assert.True(t, ts.CommonPackagesPresent)
}

func TestProbeToolchain_Missing(t *testing.T) {
	r := &utils.MockRunner{
		Paths: map[string]string{"docker": "/usr/bin/docker", "fusermount": "/bin/fusermount"},
		RunFunc: func(context.Context, string, ...string) ([]byte, error) {
			return nil, errors.New("unknown command: compose")
		},
	}
	ts := (&Prober{Runner: r}).ProbeToolchain(context.Background())
	assert.True(t, ts.ContainerRuntimePresent)
	assert.False(t, ts.ComposePresent)
	assert.False(t, ts.MountToolPresent)
	assert.Equal(t, 2, ts.FuseVersion)
	assert.False(t, ts.CommonPackagesPresent)
}
