// Package render turns a validated StackConfig into the files that make up
// an installation. Rendering is pure: identical inputs produce
// byte-identical artifacts, and nothing here touches the filesystem.
package render

import (
	"bytes"
	"os"
	"slices"

	"github.com/projecteru2/debridctl/config"
	"github.com/projecteru2/debridctl/types"
)

const (
	modeSecret os.FileMode = 0o600
	modeFile   os.FileMode = 0o644
	modeExec   os.FileMode = 0o755
)

// Render produces the artifact list for cfg in apply order: service
// configs, .env, compose manifest, rclone config, mount unit, helper script.
func Render(cfg types.StackConfig, host types.HostProfile, tc types.ToolchainState, layout *config.Config) ([]types.RenderedArtifact, error) {
	cfg.Optional = slices.Clone(cfg.Optional)
	cfg.Normalize()
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	tuning := TuningFor(host.ResourceTier())
	flavor := cfg.Flavor

	var out []types.RenderedArtifact
	add := func(kind types.ArtifactKind, key string, content []byte, mode os.FileMode, secret bool) {
		out = append(out, types.RenderedArtifact{
			Kind:    kind,
			Key:     key,
			Path:    layout.PathFor(flavor, key),
			Content: content,
			Mode:    mode,
			Secret:  secret,
		})
	}

	if flavor == types.FlavorBundle {
		data, err := DMB(&cfg, tuning, layout)
		if err != nil {
			return nil, err
		}
		add(types.ArtifactServiceConfig, config.KeyBundleConfig, data, modeSecret, true)
	} else {
		data, err := Zurg(&cfg, tuning)
		if err != nil {
			return nil, err
		}
		add(types.ArtifactServiceConfig, config.KeyZurgConfig, data, modeSecret, true)
	}

	env, err := Env(&cfg, layout)
	if err != nil {
		return nil, err
	}
	add(types.ArtifactServiceConfig, config.KeyEnv, env, modeFile, false)

	compose, err := Compose(&cfg, layout)
	if err != nil {
		return nil, err
	}
	add(types.ArtifactComposeManifest, config.KeyCompose, compose, modeFile, false)

	if flavor == types.FlavorIndividual {
		add(types.ArtifactServiceConfig, config.KeyRcloneConfig, RcloneConf(), modeFile, false)
		add(types.ArtifactUnitFile, config.KeyMountUnit, MountUnit(&cfg, tuning, tc.MountToolVersionTier, layout), modeFile, false)
		add(types.ArtifactHelperScript, config.KeyRemountScript, RemountScript(layout), modeExec, false)
	}
	return out, nil
}

// Redact replaces the credential inside content so artifacts can be shown
// on a terminal.
func Redact(content []byte, cred types.Secret) []byte {
	if cred.Empty() {
		return content
	}
	return bytes.ReplaceAll(content, []byte(cred.Reveal()), []byte(cred.String()))
}

// Images lists the image reference of every selected service.
func Images(cfg *types.StackConfig) []string {
	var refs []string
	for _, id := range cfg.Services() {
		refs = append(refs, types.MustLookup(id).Image)
	}
	return refs
}
