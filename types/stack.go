package types

import (
	"fmt"
	"slices"
)

// Flavor is the installation topology on a host. Exactly one is active.
type Flavor string

const (
	FlavorNone       Flavor = "none"
	FlavorIndividual Flavor = "individual"
	FlavorBundle     Flavor = "bundle"
)

// ResourceTier names a preset of concurrency and cache values.
type ResourceTier string

const (
	ResourceTierNormal      ResourceTier = "normal"
	ResourceTierConstrained ResourceTier = "constrained"
)

// MediaServer is the user's choice of media server.
type MediaServer string

const (
	MediaServerNone     MediaServer = "none"
	MediaServerPlex     MediaServer = "plex"
	MediaServerJellyfin MediaServer = "jellyfin"
	MediaServerEmby     MediaServer = "emby"
)

// RequestManager is the user's choice of request front end.
type RequestManager string

const (
	RequestManagerNone       RequestManager = "none"
	RequestManagerOverseerr  RequestManager = "overseerr"
	RequestManagerJellyseerr RequestManager = "jellyseerr"
)

// Component is an optional add-on service.
type Component string

const (
	ComponentIndexer       Component = "indexer"
	ComponentCaptchaBypass Component = "captcha_bypass"
	ComponentManagementUI  Component = "management_ui"
	ComponentAutoUpdater   Component = "auto_updater"
)

var componentServices = map[Component]ServiceID{
	ComponentIndexer:       ServiceJackett,
	ComponentCaptchaBypass: ServiceFlareSolverr,
	ComponentManagementUI:  ServicePortainer,
	ComponentAutoUpdater:   ServiceWatchtower,
}

// AllComponents lists optional components in menu order.
func AllComponents() []Component {
	return []Component{ComponentIndexer, ComponentCaptchaBypass, ComponentManagementUI, ComponentAutoUpdater}
}

// ServiceFor returns the container that implements c.
func (c Component) ServiceFor() ServiceID { return componentServices[c] }

// ComponentForService is the reverse of ServiceFor.
func ComponentForService(id ServiceID) (Component, bool) {
	for c, s := range componentServices {
		if s == id {
			return c, true
		}
	}
	return "", false
}

// Secret holds the debrid API token. Its text forms are redacted so that it
// cannot leak through logs or manifests; use Reveal where the value is needed.
type Secret string

const redacted = "[redacted]"

func (s Secret) String() string               { return redacted }
func (s Secret) GoString() string             { return redacted }
func (s Secret) MarshalText() ([]byte, error) { return []byte(redacted), nil }
func (s Secret) Reveal() string               { return string(s) }
func (s Secret) Empty() bool                  { return s == "" }
func (s Secret) Format(f fmt.State, _ rune)   { _, _ = f.Write([]byte(redacted)) }

// AutoUpdatePolicy drives the watchtower service and per-service labels.
type AutoUpdatePolicy struct {
	// Schedule is a 6-field cron expression (seconds first), as watchtower expects.
	Schedule      string             `json:"schedule" validate:"omitempty,cron"`
	NotifyWebhook string             `json:"notify_webhook,omitempty" validate:"omitempty,url"`
	PerService    map[ServiceID]bool `json:"per_service,omitempty"`
}

// Enabled reports the auto-update marker for id, defaulting to false.
func (p AutoUpdatePolicy) Enabled(id ServiceID) bool {
	return p.PerService[id]
}

// StackConfig is the fully collected configuration for one run. It is never
// persisted directly; only rendered artifacts are.
type StackConfig struct {
	Credential     Secret           `json:"-" validate:"required,min=8"`
	ServerAddress  string           `json:"server_address" validate:"required,ip|hostname"`
	Timezone       string           `json:"timezone" validate:"required,timezone"`
	PUID           int              `json:"puid" validate:"gte=0"`
	PGID           int              `json:"pgid" validate:"gte=0"`
	Flavor         Flavor           `json:"flavor" validate:"oneof=individual bundle"`
	MediaServer    MediaServer      `json:"media_server" validate:"oneof=none plex jellyfin emby"`
	RequestManager RequestManager   `json:"request_manager" validate:"oneof=none overseerr jellyseerr"`
	Optional       []Component      `json:"optional,omitempty" validate:"dive,oneof=indexer captcha_bypass management_ui auto_updater"`
	AutoUpdate     AutoUpdatePolicy `json:"auto_update"`
}

// Has reports whether optional component c was selected.
func (c *StackConfig) Has(comp Component) bool {
	return slices.Contains(c.Optional, comp)
}

// Normalize sorts and deduplicates the optional component set so that
// equal selections render identically.
func (c *StackConfig) Normalize() {
	slices.Sort(c.Optional)
	c.Optional = slices.Compact(c.Optional)
}

// Services returns the selected services for the configured flavor, core
// services first, then the rest in catalog order.
func (c *StackConfig) Services() []ServiceID {
	var out []ServiceID
	if c.Flavor == FlavorBundle {
		out = append(out, ServiceDMB)
	} else {
		out = append(out, ServiceZurg, ServiceCliDebrid)
	}
	var extra []ServiceID
	if c.MediaServer != MediaServerNone && c.MediaServer != "" {
		extra = append(extra, ServiceID(c.MediaServer))
	}
	if c.RequestManager != RequestManagerNone && c.RequestManager != "" {
		extra = append(extra, ServiceID(c.RequestManager))
	}
	for _, comp := range c.Optional {
		if id, ok := componentServices[comp]; ok {
			extra = append(extra, id)
		}
	}
	slices.Sort(extra)
	return append(out, slices.Compact(extra)...)
}

// Selected reports whether id is part of this stack.
func (c *StackConfig) Selected(id ServiceID) bool {
	return slices.Contains(c.Services(), id)
}
