// Package health checks that a deployed stack answers and that the media
// library is mounted, attempting one recovery before giving up.
package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/moby/sys/mountinfo"
	"github.com/projecteru2/core/log"

	"github.com/projecteru2/debridctl/config"
	"github.com/projecteru2/debridctl/engine"
	"github.com/projecteru2/debridctl/probe"
	"github.com/projecteru2/debridctl/types"
	"github.com/projecteru2/debridctl/utils"
)

const (
	zurgPort   = 9999
	dmbAPIPort = 8000
)

// Endpoints is what Verify checks for one installation.
type Endpoints struct {
	URL           string
	MountPoint    string
	CoreContainer string
	// MountUnit is empty when the mount lives inside a container.
	MountUnit string
}

// EndpointsFor derives the checks for cfg's flavor.
func EndpointsFor(cfg *types.StackConfig, layout *config.Config) Endpoints {
	addr := cfg.ServerAddress
	if addr == "" {
		addr = probe.FallbackAddress
	}
	if cfg.Flavor == types.FlavorBundle {
		return Endpoints{
			URL:           fmt.Sprintf("http://%s:%d/", addr, dmbAPIPort),
			MountPoint:    layout.BundleLibraryMount(),
			CoreContainer: types.BundleContainerName,
		}
	}
	return Endpoints{
		URL:           fmt.Sprintf("http://%s:%d/dav/", addr, zurgPort),
		MountPoint:    layout.MountDir,
		CoreContainer: types.MustLookup(types.ServiceZurg).ContainerName,
		MountUnit:     config.MountUnitName,
	}
}

// Report is the outcome of Verify.
type Report struct {
	Healthy     bool
	EndpointOK  bool
	MountOK     bool
	Recovered   bool
	Failures    []string
	Diagnostics *Diagnostics
}

// Verifier polls endpoints. Mounted defaults to mountinfo.Mounted.
type Verifier struct {
	Engine   engine.Engine
	Runner   utils.Runner
	HTTP     *http.Client
	Attempts int
	Interval time.Duration
	DiagDir  string
	// Secret is scrubbed from every diagnostic section.
	Secret  types.Secret
	Mounted func(path string) (bool, error)
}

// New returns a Verifier configured from conf.
func New(conf *config.Config, eng engine.Engine, runner utils.Runner, secret types.Secret) *Verifier {
	return &Verifier{
		Engine:   eng,
		Runner:   runner,
		HTTP:     utils.NewHTTPClient(),
		Attempts: conf.HealthAttempts,
		Interval: conf.HealthInterval(),
		DiagDir:  conf.DiagnosticsDir(),
		Secret:   secret,
	}
}

type probeState struct {
	endpointOK  bool
	mountOK     bool
	body        []byte
	endpointErr error
	mountErr    error
}

func (v *Verifier) check(ctx context.Context, ep Endpoints) probeState {
	var st probeState
	st.body, st.endpointErr = utils.CheckReachable(ctx, v.HTTP, ep.URL)
	st.endpointOK = st.endpointErr == nil

	if ep.MountPoint == "" {
		st.mountOK = true
		return st
	}
	mounted := v.Mounted
	if mounted == nil {
		mounted = mountinfo.Mounted
	}
	ok, err := mounted(ep.MountPoint)
	st.mountOK, st.mountErr = ok && err == nil, err
	return st
}

func (v *Verifier) poll(ctx context.Context, ep Endpoints) probeState {
	var last probeState
	utils.PollN(ctx, v.Attempts, v.Interval, func() bool {
		last = v.check(ctx, ep)
		return last.endpointOK && last.mountOK
	})
	return last
}

// Verify polls ep. On failure it restarts the core container and the mount
// unit once and polls again. If that also fails a diagnostic bundle is
// written and attached to the report. Verify never returns an error: a
// failed check is reported, not fatal.
func (v *Verifier) Verify(ctx context.Context, ep Endpoints) *Report {
	logger := log.WithFunc("health.Verify")
	logger.Infof(ctx, "checking %s and mount %s", ep.URL, ep.MountPoint)

	st := v.poll(ctx, ep)
	if !(st.endpointOK && st.mountOK) {
		logger.Warnf(ctx, "stack not healthy (endpoint=%t mount=%t), attempting recovery", st.endpointOK, st.mountOK)
		v.recover(ctx, ep)
		st = v.poll(ctx, ep)
		if st.endpointOK && st.mountOK {
			logger.Infof(ctx, "recovered after restart")
			return &Report{Healthy: true, EndpointOK: true, MountOK: true, Recovered: true}
		}
	} else {
		logger.Infof(ctx, "stack healthy")
		return &Report{Healthy: true, EndpointOK: true, MountOK: true}
	}

	rep := &Report{EndpointOK: st.endpointOK, MountOK: st.mountOK}
	if !st.endpointOK {
		state := "unreachable"
		if utils.IsServerError(st.endpointErr) {
			state = "server error"
		}
		rep.Failures = append(rep.Failures, fmt.Sprintf("endpoint %s %s: %v", ep.URL, state, st.endpointErr))
	}
	if !st.mountOK {
		reason := "not mounted"
		if st.mountErr != nil {
			reason = st.mountErr.Error()
		}
		rep.Failures = append(rep.Failures, fmt.Sprintf("mount %s: %s", ep.MountPoint, reason))
	}
	diag, err := v.collect(ctx, ep, st, rep.Failures)
	if err != nil {
		logger.Errorf(ctx, err, "write diagnostics")
	}
	rep.Diagnostics = diag
	return rep
}

func (v *Verifier) recover(ctx context.Context, ep Endpoints) {
	logger := log.WithFunc("health.recover")
	if err := v.Engine.Restart(ctx, ep.CoreContainer); err != nil {
		logger.Warnf(ctx, "restart %s: %v", ep.CoreContainer, err)
	}
	if ep.MountUnit == "" {
		return
	}
	if _, err := v.Runner.Run(ctx, "systemctl", "restart", ep.MountUnit); err != nil {
		logger.Warnf(ctx, "restart %s: %v", ep.MountUnit, err)
	}
}
