package workflow

import (
	"context"

	"github.com/projecteru2/debridctl/reconcile"
	"github.com/projecteru2/debridctl/render"
	"github.com/projecteru2/debridctl/types"
)

// Preview renders what an install (or, with a stack present, an update)
// would write, without touching the host. Artifact contents still carry
// the credential; callers redact before display.
func (w *Workflow) Preview(ctx context.Context) ([]types.RenderedArtifact, error) {
	var arts []types.RenderedArtifact
	_, err := w.run(ctx, reconcile.ActionFreshInstall, func(ctx context.Context) error {
		if err := w.discover(ctx); err != nil {
			return err
		}
		var cfg types.StackConfig
		if w.record.Installed() && (w.Flavor == "" || w.Flavor == w.record.Flavor) {
			imported, err := reconcile.Import(w.record, w.Conf)
			if err != nil {
				return err
			}
			cfg = imported
			cfg.ServerAddress = w.host.PrimaryAddress
			if render.ValidateAddress(cfg.ServerAddress) != nil {
				cfg.ServerAddress = fallbackAddress
			}
		} else {
			flavor := w.Flavor
			if flavor == "" {
				flavor = types.FlavorIndividual
			}
			collected, err := w.collect(ctx, flavor)
			if err != nil {
				return err
			}
			cfg = collected
		}
		if err := w.enter(PhaseRendering); err != nil {
			return err
		}
		var err error
		arts, err = render.Render(cfg, w.host, w.tools, w.Conf)
		return err
	})
	return arts, err
}
