package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projecteru2/debridctl/config"
	"github.com/projecteru2/debridctl/types"
)

const testToken = "RDTOKEN-0123456789abcdef"

func testLayout(t *testing.T) *config.Config {
	t.Helper()
	conf := config.DefaultConfig()
	conf.RootDir = t.TempDir()
	conf.UnitDir = t.TempDir()
	return conf
}

func testStack() types.StackConfig {
	return types.StackConfig{
		Credential:     testToken,
		ServerAddress:  "192.168.1.20",
		Timezone:       "UTC",
		PUID:           1000,
		PGID:           1000,
		Flavor:         types.FlavorIndividual,
		MediaServer:    types.MediaServerPlex,
		RequestManager: types.RequestManagerOverseerr,
		Optional:       []types.Component{types.ComponentAutoUpdater, types.ComponentIndexer},
		AutoUpdate: types.AutoUpdatePolicy{
			Schedule:   "0 0 4 * * *",
			PerService: map[types.ServiceID]bool{types.ServicePlex: true},
		},
	}
}

var (
	normalHost      = types.HostProfile{Architecture: types.ArchAMD64, TotalMemoryMB: 8192, CPUCores: 4}
	constrainedHost = types.HostProfile{Architecture: types.ArchAMD64, IsVirtualized: true, TotalMemoryMB: 1024, CPUCores: 1}
	modernTools     = types.ToolchainState{MountToolPresent: true, MountToolVersionTier: types.MountToolModern}
	legacyTools     = types.ToolchainState{MountToolPresent: true, MountToolVersionTier: types.MountToolLegacy}
)

func artifact(t *testing.T, arts []types.RenderedArtifact, key string) types.RenderedArtifact {
	t.Helper()
	for _, a := range arts {
		if a.Key == key {
			return a
		}
	}
	require.Failf(t, "artifact missing", "key %s", key)
	return types.RenderedArtifact{}
}

func keys(arts []types.RenderedArtifact) []string {
	var out []string
	for _, a := range arts {
		out = append(out, a.Key)
	}
	return out
}

func TestRender_Idempotent(t *testing.T) {
	layout := testLayout(t)
	a, err := Render(testStack(), normalHost, modernTools, layout)
	require.NoError(t, err)

	// Same selection in a different order must render identically.
	cfg := testStack()
	cfg.Optional = []types.Component{types.ComponentIndexer, types.ComponentAutoUpdater, types.ComponentIndexer}
	b, err := Render(cfg, normalHost, modernTools, layout)
	require.NoError(t, err)

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Key, b[i].Key)
		assert.Equal(t, a[i].Path, b[i].Path)
		assert.True(t, bytes.Equal(a[i].Content, b[i].Content), "artifact %s differs", a[i].Key)
	}
}

func TestRender_Order(t *testing.T) {
	arts, err := Render(testStack(), normalHost, modernTools, testLayout(t))
	require.NoError(t, err)
	assert.Equal(t, []string{
		config.KeyZurgConfig,
		config.KeyEnv,
		config.KeyCompose,
		config.KeyRcloneConfig,
		config.KeyMountUnit,
		config.KeyRemountScript,
	}, keys(arts))
}

func TestRender_ResourceTierLaw(t *testing.T) {
	tests := []struct {
		name    string
		host    types.HostProfile
		workers string
		buffer  string
	}{
		{"bare metal small", types.HostProfile{TotalMemoryMB: 1024}, "concurrent_workers: 64", "--buffer-size=64M"},
		{"vm large", types.HostProfile{IsVirtualized: true, TotalMemoryMB: 4096}, "concurrent_workers: 64", "--buffer-size=64M"},
		{"vm at threshold", types.HostProfile{IsVirtualized: true, TotalMemoryMB: 2048}, "concurrent_workers: 64", "--buffer-size=64M"},
		{"vm small", types.HostProfile{IsVirtualized: true, TotalMemoryMB: 2047}, "concurrent_workers: 16", "--buffer-size=16M"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arts, err := Render(testStack(), tt.host, modernTools, testLayout(t))
			require.NoError(t, err)
			assert.Contains(t, string(artifact(t, arts, config.KeyZurgConfig).Content), tt.workers)
			assert.Contains(t, string(artifact(t, arts, config.KeyMountUnit).Content), tt.buffer)
		})
	}
}

// A 1 GiB virtualized host gets the constrained worker count.
func TestRender_ConstrainedVM(t *testing.T) {
	arts, err := Render(testStack(), constrainedHost, legacyTools, testLayout(t))
	require.NoError(t, err)

	zc, err := ParseZurg(artifact(t, arts, config.KeyZurgConfig).Content)
	require.NoError(t, err)
	assert.Equal(t, 16, zc.ConcurrentWorkers)

	unit := string(artifact(t, arts, config.KeyMountUnit).Content)
	for _, want := range []string{"--transfers=4", "--checkers=8", "--vfs-cache-max-size=2G", "--vfs-cache-max-age=6h", "--vfs-read-chunk-size=32M", "--vfs-read-chunk-size-limit=256M"} {
		assert.Contains(t, unit, want)
	}
}

func TestRender_MountOptionRule(t *testing.T) {
	modernFlags := []string{"--vfs-refresh", "--vfs-fast-fingerprint", "--vfs-cache-min-free-space"}

	arts, err := Render(testStack(), normalHost, modernTools, testLayout(t))
	require.NoError(t, err)
	unit := string(artifact(t, arts, config.KeyMountUnit).Content)
	for _, f := range modernFlags {
		assert.Contains(t, unit, f)
	}

	arts, err = Render(testStack(), normalHost, legacyTools, testLayout(t))
	require.NoError(t, err)
	unit = string(artifact(t, arts, config.KeyMountUnit).Content)
	for _, f := range modernFlags {
		assert.NotContains(t, unit, f)
	}
}

func TestRender_InclusionLaw(t *testing.T) {
	cfg := testStack()
	arts, err := Render(cfg, normalHost, modernTools, testLayout(t))
	require.NoError(t, err)
	cf, err := ParseCompose(artifact(t, arts, config.KeyCompose).Content)
	require.NoError(t, err)

	cfg.Normalize()
	want := map[string]bool{}
	for _, id := range cfg.Services() {
		want[string(id)] = true
	}
	got := map[string]bool{}
	for name := range cf.Services {
		got[name] = true
	}
	assert.Equal(t, want, got)
	assert.Equal(t, map[string]bool{
		"zurg": true, "cli_debrid": true, "plex": true, "overseerr": true, "jackett": true, "watchtower": true,
	}, got)
}

func TestRender_MediaNoneOmitsBlockAndPort(t *testing.T) {
	cfg := testStack()
	cfg.MediaServer = types.MediaServerNone
	arts, err := Render(cfg, normalHost, modernTools, testLayout(t))
	require.NoError(t, err)

	compose := artifact(t, arts, config.KeyCompose).Content
	cf, err := ParseCompose(compose)
	require.NoError(t, err)
	for _, id := range []string{"plex", "jellyfin", "emby"} {
		assert.NotContains(t, cf.Services, id)
	}
	assert.NotContains(t, string(compose), "32400")
	assert.NotContains(t, string(compose), "8096")
}

func TestRender_WatchtowerLabels(t *testing.T) {
	arts, err := Render(testStack(), normalHost, modernTools, testLayout(t))
	require.NoError(t, err)
	cf, err := ParseCompose(artifact(t, arts, config.KeyCompose).Content)
	require.NoError(t, err)

	for name, svc := range cf.Services {
		want := "false"
		if name == "plex" {
			want = "true"
		}
		assert.Equal(t, want, svc.Labels[WatchtowerLabel], name)
	}
	wt := cf.Services["watchtower"]
	assert.Equal(t, "true", wt.Environment["WATCHTOWER_LABEL_ENABLE"])
	assert.Equal(t, "0 0 4 * * *", wt.Environment[EnvUpdateSchedule])
	assert.NotContains(t, wt.Environment, EnvNotifyURL)
}

func TestRender_CredentialOnlyInServiceConfig(t *testing.T) {
	for _, flavor := range []types.Flavor{types.FlavorIndividual, types.FlavorBundle} {
		cfg := testStack()
		cfg.Flavor = flavor
		arts, err := Render(cfg, normalHost, modernTools, testLayout(t))
		require.NoError(t, err)

		for _, a := range arts {
			holds := strings.Contains(string(a.Content), testToken)
			if a.Key == config.KeyZurgConfig || a.Key == config.KeyBundleConfig {
				assert.True(t, holds, "%s should carry the credential", a.Key)
				assert.True(t, a.Secret)
				assert.Equal(t, modeSecret, a.Mode)
				assert.NotContains(t, string(Redact(a.Content, cfg.Credential)), testToken)
				continue
			}
			assert.False(t, holds, "%s leaks the credential", a.Key)
			assert.False(t, a.Secret)
		}
	}
}

func TestRender_BundleFlavor(t *testing.T) {
	cfg := testStack()
	cfg.Flavor = types.FlavorBundle
	layout := testLayout(t)
	arts, err := Render(cfg, normalHost, modernTools, layout)
	require.NoError(t, err)

	assert.Equal(t, []string{config.KeyBundleConfig, config.KeyEnv, config.KeyCompose}, keys(arts))
	assert.Equal(t, layout.BundleConfig(), arts[0].Path)

	cf, err := ParseCompose(artifact(t, arts, config.KeyCompose).Content)
	require.NoError(t, err)
	assert.Contains(t, cf.Services, "dmb")
	assert.NotContains(t, cf.Services, "zurg")
	assert.NotContains(t, cf.Services, "cli_debrid")
	assert.Equal(t, types.BundleContainerName, cf.Services["dmb"].ContainerName)

	dc, err := ParseDMB(arts[0].Content)
	require.NoError(t, err)
	assert.Equal(t, testToken, dc.APIKey())
	assert.Equal(t, layout.BundleMountDir, dc.Rclone.Instances[dmbInstance].MountDir)
}

func TestRender_ZurgLibraryDirectories(t *testing.T) {
	arts, err := Render(testStack(), normalHost, modernTools, testLayout(t))
	require.NoError(t, err)
	zc, err := ParseZurg(artifact(t, arts, config.KeyZurgConfig).Content)
	require.NoError(t, err)

	require.Len(t, zc.Directories, 3)
	assert.Equal(t, 10, zc.Directories["anime"].GroupOrder)
	assert.Equal(t, 20, zc.Directories["shows"].GroupOrder)
	assert.Equal(t, 30, zc.Directories["movies"].GroupOrder)
	assert.Equal(t, true, zc.Directories["shows"].Filters[0]["has_episodes"])
	assert.Equal(t, "/.*/", zc.Directories["movies"].Filters[0]["regex"])
	assert.Equal(t, testToken, zc.Token)
}

func TestRender_MountUnit(t *testing.T) {
	layout := testLayout(t)
	arts, err := Render(testStack(), normalHost, modernTools, layout)
	require.NoError(t, err)

	unit := artifact(t, arts, config.KeyMountUnit)
	assert.Equal(t, layout.UnitFile(), unit.Path)
	assert.Equal(t, types.ArtifactUnitFile, unit.Kind)
	body := string(unit.Content)
	for _, want := range []string{
		"After=network-online.target",
		"Wants=network-online.target",
		"Requires=docker.service",
		"ExecStart=/usr/bin/rclone mount zurg: /mnt/zurg",
		"ExecStop=/bin/sh -c 'fusermount3 -uz /mnt/zurg || fusermount -uz /mnt/zurg || umount -l /mnt/zurg'",
		"--exclude=.Trash-*",
		"--exclude=*.partial~",
		"--exclude=._*",
	} {
		assert.Contains(t, body, want)
	}

	script := artifact(t, arts, config.KeyRemountScript)
	assert.Equal(t, modeExec, script.Mode)
	assert.Contains(t, string(script.Content), "systemctl stop zurg-rclone.service")
	assert.Contains(t, string(script.Content), "systemctl start zurg-rclone.service")
}

func TestRender_Env(t *testing.T) {
	arts, err := Render(testStack(), normalHost, modernTools, testLayout(t))
	require.NoError(t, err)
	env := string(artifact(t, arts, config.KeyEnv).Content)
	assert.Contains(t, env, "COMPOSE_PROJECT_NAME=\"debrid\"")
	assert.Contains(t, env, "PUID=1000")
	assert.Contains(t, env, "TZ=\"UTC\"")
}

func TestRender_InvalidInputNeverRenders(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.StackConfig)
		field  string
	}{
		{"empty credential", func(c *types.StackConfig) { c.Credential = "" }, "Credential"},
		{"bad address", func(c *types.StackConfig) { c.ServerAddress = "not an address!" }, "ServerAddress"},
		{"bad timezone", func(c *types.StackConfig) { c.Timezone = "Mars/Olympus" }, "Timezone"},
		{"negative puid", func(c *types.StackConfig) { c.PUID = -1 }, "PUID"},
		{"no flavor", func(c *types.StackConfig) { c.Flavor = types.FlavorNone }, "Flavor"},
		{"bad cron", func(c *types.StackConfig) { c.AutoUpdate.Schedule = "whenever" }, "Schedule"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testStack()
			tt.mutate(&cfg)
			arts, err := Render(cfg, normalHost, modernTools, testLayout(t))
			require.Error(t, err)
			assert.Nil(t, arts)
			assert.Contains(t, err.Error(), tt.field)
			assert.NotContains(t, err.Error(), testToken)

			var te *types.Error
			require.ErrorAs(t, err, &te)
			assert.Equal(t, types.KindInput, te.Kind)
		})
	}
}

func TestFieldValidators(t *testing.T) {
	assert.NoError(t, ValidateAddress("192.168.1.5"))
	assert.NoError(t, ValidateAddress("media-box"))
	assert.Error(t, ValidateAddress(""))
	assert.Error(t, ValidateAddress("http://x"))

	assert.NoError(t, ValidateTimezone("UTC"))
	assert.Error(t, ValidateTimezone("Nowhere/Land"))

	assert.NoError(t, ValidateSchedule("0 0 4 * * *"))
	assert.Error(t, ValidateSchedule("tomorrow"))

	assert.NoError(t, ValidateURL(""))
	assert.NoError(t, ValidateURL("https://hooks.example.com/abc"))
	assert.Error(t, ValidateURL("not a url"))
}
