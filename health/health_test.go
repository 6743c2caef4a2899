package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projecteru2/debridctl/config"
	"github.com/projecteru2/debridctl/engine"
	"github.com/projecteru2/debridctl/types"
	"github.com/projecteru2/debridctl/utils"
)

const testSecret = "RDTOKEN-health-0001"

func newVerifier(t *testing.T, eng engine.Engine, r utils.Runner, mounted func(string) (bool, error)) *Verifier {
	t.Helper()
	return &Verifier{
		Engine:   eng,
		Runner:   r,
		HTTP:     &http.Client{Timeout: time.Second},
		Attempts: 2,
		Interval: time.Millisecond,
		DiagDir:  t.TempDir(),
		Secret:   testSecret,
		Mounted:  mounted,
	}
}

func always(ok bool) func(string) (bool, error) {
	return func(string) (bool, error) { return ok, nil }
}

func TestEndpointsFor(t *testing.T) {
	layout := config.DefaultConfig()
	cfg := &types.StackConfig{Flavor: types.FlavorIndividual, ServerAddress: "10.0.0.2"}
	ep := EndpointsFor(cfg, layout)
	assert.Equal(t, "http://10.0.0.2:9999/dav/", ep.URL)
	assert.Equal(t, "/mnt/zurg", ep.MountPoint)
	assert.Equal(t, "zurg", ep.CoreContainer)
	assert.Equal(t, config.MountUnitName, ep.MountUnit)

	cfg = &types.StackConfig{Flavor: types.FlavorBundle}
	ep = EndpointsFor(cfg, layout)
	assert.Equal(t, "http://127.0.0.1:8000/", ep.URL)
	assert.Equal(t, "DMB", ep.CoreContainer)
	assert.Equal(t, "/mnt/debrid/zurg", ep.MountPoint, "DMB mounts the remote under mount_dir/mount_name")
	assert.Empty(t, ep.MountUnit)
}

func TestVerify_Healthy(t *testing.T) {
	// WebDAV roots commonly answer 401 without credentials; that still counts.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	eng := &engine.Fake{}
	r := &utils.MockRunner{}

	rep := newVerifier(t, eng, r, always(true)).Verify(context.Background(), Endpoints{
		URL: srv.URL, MountPoint: "/mnt/zurg", CoreContainer: "zurg", MountUnit: config.MountUnitName,
	})
	assert.True(t, rep.Healthy)
	assert.False(t, rep.Recovered)
	assert.Nil(t, rep.Diagnostics)
	assert.Empty(t, eng.Restarts)
	assert.Empty(t, r.Calls)
}

func TestVerify_RecoversAfterRestart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	defer srv.Close()

	var restarted atomic.Bool
	r := &utils.MockRunner{RunFunc: func(_ context.Context, name string, args ...string) ([]byte, error) {
		if name == "systemctl" && args[0] == "restart" {
			restarted.Store(true)
		}
		return nil, nil
	}}
	eng := &engine.Fake{}
	mounted := func(string) (bool, error) { return restarted.Load(), nil }

	rep := newVerifier(t, eng, r, mounted).Verify(context.Background(), Endpoints{
		URL: srv.URL, MountPoint: "/mnt/zurg", CoreContainer: "zurg", MountUnit: config.MountUnitName,
	})
	assert.True(t, rep.Healthy)
	assert.True(t, rep.Recovered)
	assert.Equal(t, []string{"zurg"}, eng.Restarts)
	assert.Equal(t, []string{"systemctl restart " + config.MountUnitName}, r.Calls)
}

// An unreachable endpoint yields a failure report with a persisted,
// non-empty diagnostic bundle.
func TestVerify_UnreachableWritesDiagnostics(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	eng := &engine.Fake{LogText: "zurg: token " + testSecret + " rejected\n"}
	r := &utils.MockRunner{RunFunc: func(_ context.Context, name string, _ ...string) ([]byte, error) {
		return []byte(name + " output"), nil
	}}
	v := newVerifier(t, eng, r, always(false))

	rep := v.Verify(context.Background(), Endpoints{
		URL: url, MountPoint: "/mnt/zurg", CoreContainer: "zurg", MountUnit: config.MountUnitName,
	})
	assert.False(t, rep.Healthy)
	assert.False(t, rep.EndpointOK)
	assert.False(t, rep.MountOK)
	assert.Len(t, rep.Failures, 2)
	assert.Contains(t, rep.Failures[0], "unreachable")
	assert.Equal(t, []string{"zurg"}, eng.Restarts, "exactly one recovery attempt")

	require.NotNil(t, rep.Diagnostics)
	d := rep.Diagnostics
	assert.NotEmpty(t, d.ID)
	for _, name := range []string{"container-logs", "unit-status", "unit-journal", "fuse-mounts", "endpoint-response"} {
		assert.NotEmpty(t, d.Section(name), name)
	}
	assert.NotContains(t, d.Section("container-logs"), testSecret)
	assert.Contains(t, d.Section("endpoint-response"), "error:")

	data, err := os.ReadFile(d.Path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.NotContains(t, string(data), testSecret)
}

func TestVerify_ServerErrorIsUnhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	rep := newVerifier(t, &engine.Fake{}, &utils.MockRunner{}, always(true)).Verify(context.Background(), Endpoints{
		URL: srv.URL, MountPoint: "/mnt/debrid", CoreContainer: "DMB",
	})
	assert.False(t, rep.Healthy)
	assert.True(t, rep.MountOK)
	require.NotNil(t, rep.Diagnostics)
	assert.Contains(t, rep.Diagnostics.Section("endpoint-response"), "upstream down")
	require.Len(t, rep.Failures, 1)
	assert.Contains(t, rep.Failures[0], "server error")
	assert.Empty(t, rep.Diagnostics.Section("unit-status"))
}
