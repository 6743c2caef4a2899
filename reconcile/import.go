package reconcile

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/projecteru2/debridctl/config"
	"github.com/projecteru2/debridctl/render"
	"github.com/projecteru2/debridctl/types"
)

// DefaultTimezone is used when an installation's .env is missing.
const DefaultTimezone = "UTC"

// Import rebuilds a StackConfig from the artifacts of an existing
// installation so that update and repair re-render what the user chose
// before. ServerAddress is not persisted and is left for the caller.
func Import(rec types.InstallationRecord, layout *config.Config) (types.StackConfig, error) {
	cfg := types.StackConfig{
		Flavor:         rec.Flavor,
		MediaServer:    types.MediaServerNone,
		RequestManager: types.RequestManagerNone,
		Timezone:       DefaultTimezone,
		PUID:           layout.PUID,
		PGID:           layout.PGID,
		AutoUpdate:     types.AutoUpdatePolicy{PerService: map[types.ServiceID]bool{}},
	}
	if !rec.Installed() {
		return cfg, types.ErrNoExistingInstallation
	}

	if err := importCompose(&cfg, layout.ComposeFile(rec.Flavor)); err != nil {
		return cfg, err
	}
	if err := importCredential(&cfg, layout); err != nil {
		return cfg, err
	}
	if err := importEnv(&cfg, layout.EnvFile(rec.Flavor)); err != nil {
		return cfg, err
	}
	cfg.Normalize()
	return cfg, nil
}

func importCompose(cfg *types.StackConfig, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return missing("compose manifest", path, err)
	}
	cf, err := render.ParseCompose(data)
	if err != nil {
		return &types.Error{Kind: types.KindInconsistent, Op: "import", Err: err, Remedy: "restore a backup or run a fresh install"}
	}
	for name, svc := range cf.Services {
		id := types.ServiceID(name)
		if _, ok := types.Lookup(id); !ok {
			continue
		}
		cfg.AutoUpdate.PerService[id] = svc.Labels[render.WatchtowerLabel] == "true"
		switch id {
		case types.ServicePlex, types.ServiceJellyfin, types.ServiceEmby:
			cfg.MediaServer = types.MediaServer(id)
		case types.ServiceOverseerr, types.ServiceJellyseerr:
			cfg.RequestManager = types.RequestManager(id)
		}
		if comp, ok := types.ComponentForService(id); ok && !slices.Contains(cfg.Optional, comp) {
			cfg.Optional = append(cfg.Optional, comp)
		}
		if id == types.ServiceWatchtower {
			if s := svc.Environment[render.EnvUpdateSchedule]; s != "" {
				cfg.AutoUpdate.Schedule = s
			}
			cfg.AutoUpdate.NotifyWebhook = svc.Environment[render.EnvNotifyURL]
		}
	}
	return nil
}

func importCredential(cfg *types.StackConfig, layout *config.Config) error {
	if cfg.Flavor == types.FlavorBundle {
		path := layout.BundleConfig()
		data, err := os.ReadFile(path) //nolint:gosec
		if err != nil {
			return missing("bundle config", path, err)
		}
		dc, err := render.ParseDMB(data)
		if err != nil {
			return &types.Error{Kind: types.KindInconsistent, Op: "import", Err: err, Remedy: "restore a backup or run a fresh install"}
		}
		cfg.Credential = types.Secret(dc.APIKey())
	} else {
		path := layout.ZurgConfig()
		data, err := os.ReadFile(path) //nolint:gosec
		if err != nil {
			return missing("zurg config", path, err)
		}
		zc, err := render.ParseZurg(data)
		if err != nil {
			return &types.Error{Kind: types.KindInconsistent, Op: "import", Err: err, Remedy: "restore a backup or run a fresh install"}
		}
		cfg.Credential = types.Secret(zc.Token)
	}
	if cfg.Credential.Empty() {
		return &types.Error{
			Kind:   types.KindInconsistent,
			Op:     "import",
			Err:    errors.New("no debrid credential in existing configuration"),
			Remedy: "run `debridctl install` to enter the API token again",
		}
	}
	return nil
}

func importEnv(cfg *types.StackConfig, path string) error {
	env, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if tz := env["TZ"]; tz != "" {
		cfg.Timezone = tz
	}
	if v, err := strconv.Atoi(env["PUID"]); err == nil {
		cfg.PUID = v
	}
	if v, err := strconv.Atoi(env["PGID"]); err == nil {
		cfg.PGID = v
	}
	return nil
}

func missing(what, path string, err error) error {
	return &types.Error{
		Kind:   types.KindInconsistent,
		Op:     "import",
		Err:    fmt.Errorf("read %s %s: %w", what, path, err),
		Remedy: "restore a backup with `debridctl restore` or run `debridctl install`",
	}
}
