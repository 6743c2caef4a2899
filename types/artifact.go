package types

import "os"

// ArtifactKind classifies rendered files.
type ArtifactKind string

const (
	ArtifactServiceConfig   ArtifactKind = "service_config"
	ArtifactComposeManifest ArtifactKind = "compose_manifest"
	ArtifactUnitFile        ArtifactKind = "unit_file"
	ArtifactHelperScript    ArtifactKind = "helper_script"
)

// RenderedArtifact is one file produced by the renderer. The executor writes
// it verbatim; nothing else modifies it.
type RenderedArtifact struct {
	Kind ArtifactKind `json:"kind"`
	// Key is the flavor-relative name used inside backup archives,
	// e.g. "zurg/config.yml" or "system/zurg-rclone.service".
	Key     string      `json:"key"`
	Path    string      `json:"path"`
	Content []byte      `json:"-"`
	Mode    os.FileMode `json:"mode"`
	// Secret marks artifacts that embed the credential.
	Secret bool `json:"secret,omitempty"`
}
