package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/projecteru2/debridctl/probe"
	"github.com/projecteru2/debridctl/prompt"
	"github.com/projecteru2/debridctl/reconcile"
	"github.com/projecteru2/debridctl/render"
	"github.com/projecteru2/debridctl/types"
)

const (
	fallbackAddress = probe.FallbackAddress
	minTokenLen     = 8
)

var errTokenTooShort = errors.New("token looks too short")

// collect gathers a complete StackConfig for flavor.
func (w *Workflow) collect(ctx context.Context, flavor types.Flavor) (types.StackConfig, error) {
	cfg := types.StackConfig{
		Flavor:         flavor,
		PUID:           w.Conf.PUID,
		PGID:           w.Conf.PGID,
		MediaServer:    types.MediaServerNone,
		RequestManager: types.RequestManagerNone,
	}
	var err error
	if cfg.Credential, err = w.credential(ctx); err != nil {
		return cfg, err
	}
	if cfg.ServerAddress, err = w.address(ctx); err != nil {
		return cfg, err
	}
	if cfg.Timezone, err = w.timezone(ctx); err != nil {
		return cfg, err
	}
	if err := w.selectServices(ctx, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (w *Workflow) credential(ctx context.Context) (types.Secret, error) {
	if !w.Credential.Empty() {
		return w.Credential, nil
	}
	token, err := w.Prompter.Secret(ctx, "Debrid API token", func(s string) error {
		if len(strings.TrimSpace(s)) < minTokenLen {
			return errTokenTooShort
		}
		return nil
	})
	if errors.Is(err, prompt.ErrNoAnswer) {
		return "", &types.Error{
			Kind:   types.KindInput,
			Op:     "read API token",
			Err:    err,
			Remedy: "set DEBRID_API_TOKEN or run interactively",
		}
	}
	if err != nil {
		return "", err
	}
	return types.Secret(strings.TrimSpace(token)), nil
}

// address falls back to the loopback address rather than failing.
func (w *Workflow) address(ctx context.Context) (string, error) {
	def := w.host.PrimaryAddress
	if render.ValidateAddress(def) != nil {
		def = fallbackAddress
	}
	addr, err := w.Prompter.Input(ctx, "Server address", def, render.ValidateAddress)
	if aborted(ctx, err) {
		return "", err
	}
	if err != nil {
		w.warn(ctx, "server address %q rejected, using %s", addr, fallbackAddress)
		return fallbackAddress, nil
	}
	return addr, nil
}

func (w *Workflow) timezone(ctx context.Context) (string, error) {
	def := localTimezone("/")
	tz, err := w.Prompter.Input(ctx, "Timezone", def, render.ValidateTimezone)
	if aborted(ctx, err) {
		return "", err
	}
	if err != nil {
		w.warn(ctx, "timezone %q rejected, using %s", tz, reconcile.DefaultTimezone)
		return reconcile.DefaultTimezone, nil
	}
	return tz, nil
}

// selectServices asks for the media server, request manager, optional
// components and the auto-update policy.
func (w *Workflow) selectServices(ctx context.Context, cfg *types.StackConfig) error {
	media, err := w.Prompter.Select(ctx, "Media server", []prompt.Option{
		{Label: "Plex", Value: string(types.MediaServerPlex)},
		{Label: "Jellyfin", Value: string(types.MediaServerJellyfin)},
		{Label: "Emby", Value: string(types.MediaServerEmby)},
		{Label: "None", Value: string(types.MediaServerNone)},
	}, orDefault(string(cfg.MediaServer), string(types.MediaServerNone)))
	if err != nil {
		return err
	}
	cfg.MediaServer = types.MediaServer(media)

	req, err := w.Prompter.Select(ctx, "Request manager", []prompt.Option{
		{Label: "Overseerr", Value: string(types.RequestManagerOverseerr)},
		{Label: "Jellyseerr", Value: string(types.RequestManagerJellyseerr)},
		{Label: "None", Value: string(types.RequestManagerNone)},
	}, orDefault(string(cfg.RequestManager), string(types.RequestManagerNone)))
	if err != nil {
		return err
	}
	cfg.RequestManager = types.RequestManager(req)

	var options []prompt.Option
	for _, c := range types.AllComponents() {
		options = append(options, prompt.Option{Label: componentLabels[c], Value: string(c)})
	}
	var defs []string
	for _, c := range cfg.Optional {
		defs = append(defs, string(c))
	}
	picked, err := w.Prompter.MultiSelect(ctx, "Optional components", options, defs)
	if err != nil {
		return err
	}
	cfg.Optional = nil
	for _, p := range picked {
		cfg.Optional = append(cfg.Optional, types.Component(strings.TrimSpace(p)))
	}
	cfg.Normalize()

	if !cfg.Has(types.ComponentAutoUpdater) {
		cfg.AutoUpdate = types.AutoUpdatePolicy{}
		return nil
	}
	return w.autoUpdate(ctx, cfg)
}

func (w *Workflow) autoUpdate(ctx context.Context, cfg *types.StackConfig) error {
	policy := cfg.AutoUpdate
	sched, err := w.Prompter.Input(ctx, "Auto-update schedule (cron, seconds first)",
		orDefault(policy.Schedule, render.DefaultUpdateSchedule), render.ValidateSchedule)
	if aborted(ctx, err) {
		return err
	}
	if err != nil {
		w.warn(ctx, "schedule %q rejected, using %s", sched, render.DefaultUpdateSchedule)
		sched = render.DefaultUpdateSchedule
	}
	policy.Schedule = sched

	hook, err := w.Prompter.Input(ctx, "Update notification URL (optional)", policy.NotifyWebhook, render.ValidateURL)
	if aborted(ctx, err) {
		return err
	}
	if err != nil {
		w.warn(ctx, "notification URL rejected, notifications disabled")
		hook = ""
	}
	policy.NotifyWebhook = hook

	var options []prompt.Option
	var defs []string
	for _, id := range cfg.Services() {
		if id == types.ServiceWatchtower {
			continue
		}
		options = append(options, prompt.Option{Label: string(id), Value: string(id)})
		if policy.Enabled(id) {
			defs = append(defs, string(id))
		}
	}
	picked, err := w.Prompter.MultiSelect(ctx, "Services to keep updated automatically", options, defs)
	if err != nil {
		return err
	}
	policy.PerService = map[types.ServiceID]bool{}
	for _, p := range picked {
		id := types.ServiceID(strings.TrimSpace(p))
		if cfg.Selected(id) {
			policy.PerService[id] = true
		}
	}
	cfg.AutoUpdate = policy
	return nil
}

var componentLabels = map[types.Component]string{
	types.ComponentIndexer:       "Indexer (Jackett)",
	types.ComponentCaptchaBypass: "Captcha bypass (FlareSolverr)",
	types.ComponentManagementUI:  "Container management UI (Portainer)",
	types.ComponentAutoUpdater:   "Automatic image updates (Watchtower)",
}

func aborted(ctx context.Context, err error) bool {
	return err != nil && (ctx.Err() != nil || errors.Is(err, types.ErrAborted))
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// localTimezone reads the host zone from TZ, /etc/timezone or the
// /etc/localtime link, in that order.
func localTimezone(root string) string {
	if tz := os.Getenv("TZ"); tz != "" && render.ValidateTimezone(tz) == nil {
		return tz
	}
	if b, err := os.ReadFile(filepath.Join(root, "etc", "timezone")); err == nil {
		if tz := strings.TrimSpace(string(b)); render.ValidateTimezone(tz) == nil {
			return tz
		}
	}
	if target, err := os.Readlink(filepath.Join(root, "etc", "localtime")); err == nil {
		if i := strings.Index(target, "zoneinfo/"); i >= 0 {
			if tz := target[i+len("zoneinfo/"):]; render.ValidateTimezone(tz) == nil {
				return tz
			}
		}
	}
	return reconcile.DefaultTimezone
}

