package reconcile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projecteru2/debridctl/config"
	"github.com/projecteru2/debridctl/engine"
	"github.com/projecteru2/debridctl/render"
	"github.com/projecteru2/debridctl/types"
)

func testLayout(t *testing.T) *config.Config {
	t.Helper()
	conf := config.DefaultConfig()
	conf.RootDir = t.TempDir()
	conf.UnitDir = t.TempDir()
	return conf
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
}

func TestScan(t *testing.T) {
	tests := []struct {
		name       string
		files      func(*config.Config) []string
		containers map[string]bool
		want       types.Flavor
		ambiguous  bool
	}{
		{"empty host", nil, nil, types.FlavorNone, false},
		{"individual by config", func(c *config.Config) []string { return []string{c.ZurgConfig()} }, nil, types.FlavorIndividual, false},
		{"individual by compose", func(c *config.Config) []string { return []string{c.ComposeFile(types.FlavorIndividual)} }, nil, types.FlavorIndividual, false},
		{"individual by container", nil, map[string]bool{"cli_debrid": true}, types.FlavorIndividual, false},
		{"bundle by marker", func(c *config.Config) []string { return []string{c.BundleConfig()} }, nil, types.FlavorBundle, false},
		{"bundle by container", nil, map[string]bool{"DMB": false}, types.FlavorBundle, false},
		{"unrelated containers", nil, map[string]bool{"nginx": true}, types.FlavorNone, false},
		{"bundle with shared services", nil, map[string]bool{"DMB": true, "plex": true, "overseerr": true}, types.FlavorBundle, false},
		{"shared services alone", nil, map[string]bool{"plex": true}, types.FlavorNone, false},
		{"both present", func(c *config.Config) []string { return []string{c.BundleConfig()} }, map[string]bool{"zurg": true}, types.FlavorBundle, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout := testLayout(t)
			if tt.files != nil {
				for _, p := range tt.files(layout) {
					touch(t, p)
				}
			}
			rec := Scan(context.Background(), layout, &engine.Fake{Containers: tt.containers})
			assert.Equal(t, tt.want, rec.Flavor)
			assert.Equal(t, tt.ambiguous, rec.Ambiguous)
			if tt.ambiguous {
				assert.NotEmpty(t, rec.Warnings)
			}
		})
	}
}

func TestScan_SharedServicesAreNotFlavorEvidence(t *testing.T) {
	layout := testLayout(t)
	touch(t, layout.BundleConfig())
	eng := &engine.Fake{Containers: map[string]bool{"DMB": true, "plex": true, "watchtower": false}}

	rec := Scan(context.Background(), layout, eng)
	assert.Equal(t, types.FlavorBundle, rec.Flavor)
	assert.False(t, rec.Ambiguous)
	assert.Empty(t, rec.Warnings)
	assert.Equal(t, []types.ServiceID{types.ServiceDMB, types.ServicePlex, types.ServiceWatchtower}, rec.PresentServices)
}

func TestScan_NilEngine(t *testing.T) {
	layout := testLayout(t)
	touch(t, layout.ZurgConfig())
	rec := Scan(context.Background(), layout, nil)
	assert.Equal(t, types.FlavorIndividual, rec.Flavor)
	assert.Equal(t, layout.ZurgConfig(), rec.ConfigPaths[types.ServiceZurg])
}

func TestReconcile(t *testing.T) {
	none := types.InstallationRecord{Flavor: types.FlavorNone}
	installed := types.InstallationRecord{Flavor: types.FlavorIndividual}

	for _, kind := range []ActionKind{ActionUpdate, ActionRepair} {
		_, err := Reconcile(none, kind, "")
		require.ErrorIs(t, err, types.ErrNoExistingInstallation)
		assert.NotEmpty(t, types.RemedyOf(err))

		act, err := Reconcile(installed, kind, "")
		require.NoError(t, err)
		assert.Equal(t, types.FlavorIndividual, act.Flavor)
	}

	act, err := Reconcile(installed, ActionFreshInstall, types.FlavorBundle)
	require.NoError(t, err)
	assert.Equal(t, types.FlavorBundle, act.Flavor)

	_, err = Reconcile(none, ActionFreshInstall, types.FlavorNone)
	require.Error(t, err)

	_, err = Reconcile(none, ActionBackup, "")
	require.NoError(t, err)
}

func writeArtifacts(t *testing.T, arts []types.RenderedArtifact) {
	t.Helper()
	for _, a := range arts {
		require.NoError(t, os.MkdirAll(filepath.Dir(a.Path), 0o755))
		require.NoError(t, os.WriteFile(a.Path, a.Content, a.Mode))
	}
}

func TestImport_RoundTrip(t *testing.T) {
	for _, flavor := range []types.Flavor{types.FlavorIndividual, types.FlavorBundle} {
		t.Run(string(flavor), func(t *testing.T) {
			layout := testLayout(t)
			want := types.StackConfig{
				Credential:     "RDTOKEN-roundtrip-123",
				ServerAddress:  "10.0.0.5",
				Timezone:       "UTC",
				PUID:           1001,
				PGID:           1002,
				Flavor:         flavor,
				MediaServer:    types.MediaServerJellyfin,
				RequestManager: types.RequestManagerJellyseerr,
				Optional:       []types.Component{types.ComponentAutoUpdater, types.ComponentCaptchaBypass},
				AutoUpdate: types.AutoUpdatePolicy{
					Schedule:      "0 30 3 * * *",
					NotifyWebhook: "https://hooks.example.com/x",
					PerService:    map[types.ServiceID]bool{types.ServiceJellyfin: true},
				},
			}
			arts, err := render.Render(want, types.HostProfile{TotalMemoryMB: 4096}, types.ToolchainState{}, layout)
			require.NoError(t, err)
			writeArtifacts(t, arts)

			rec := Scan(context.Background(), layout, nil)
			require.Equal(t, flavor, rec.Flavor)

			got, err := Import(rec, layout)
			require.NoError(t, err)
			assert.Equal(t, want.Credential.Reveal(), got.Credential.Reveal())
			assert.Empty(t, got.ServerAddress)
			assert.Equal(t, want.Timezone, got.Timezone)
			assert.Equal(t, want.PUID, got.PUID)
			assert.Equal(t, want.PGID, got.PGID)
			assert.Equal(t, want.MediaServer, got.MediaServer)
			assert.Equal(t, want.RequestManager, got.RequestManager)
			assert.Equal(t, []types.Component{types.ComponentAutoUpdater, types.ComponentCaptchaBypass}, got.Optional)
			assert.Equal(t, want.AutoUpdate.Schedule, got.AutoUpdate.Schedule)
			assert.Equal(t, want.AutoUpdate.NotifyWebhook, got.AutoUpdate.NotifyWebhook)
			assert.True(t, got.AutoUpdate.Enabled(types.ServiceJellyfin))
			assert.False(t, got.AutoUpdate.Enabled(types.ServiceJellyseerr))

			// The imported config renders the same files again.
			got.ServerAddress = want.ServerAddress
			again, err := render.Render(got, types.HostProfile{TotalMemoryMB: 4096}, types.ToolchainState{}, layout)
			require.NoError(t, err)
			require.Len(t, again, len(arts))
			for i := range arts {
				assert.Equal(t, string(arts[i].Content), string(again[i].Content), arts[i].Key)
			}
		})
	}
}

func TestImport_MissingCredential(t *testing.T) {
	layout := testLayout(t)
	touch(t, layout.ComposeFile(types.FlavorIndividual))
	require.NoError(t, os.WriteFile(layout.ComposeFile(types.FlavorIndividual), []byte("name: debrid\nservices: {}\n"), 0o600))

	_, err := Import(types.InstallationRecord{Flavor: types.FlavorIndividual}, layout)
	require.Error(t, err)
	var te *types.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, types.KindInconsistent, te.Kind)
	assert.NotEmpty(t, te.Remedy)
}

func TestImport_NothingInstalled(t *testing.T) {
	_, err := Import(types.InstallationRecord{Flavor: types.FlavorNone}, testLayout(t))
	require.ErrorIs(t, err, types.ErrNoExistingInstallation)
}
