package types

// ServiceID names one container in the stack.
type ServiceID string

const (
	ServiceZurg         ServiceID = "zurg"
	ServiceCliDebrid    ServiceID = "cli_debrid"
	ServicePlex         ServiceID = "plex"
	ServiceJellyfin     ServiceID = "jellyfin"
	ServiceEmby         ServiceID = "emby"
	ServiceOverseerr    ServiceID = "overseerr"
	ServiceJellyseerr   ServiceID = "jellyseerr"
	ServiceJackett      ServiceID = "jackett"
	ServiceFlareSolverr ServiceID = "flaresolverr"
	ServicePortainer    ServiceID = "portainer"
	ServiceWatchtower   ServiceID = "watchtower"
	ServiceDMB          ServiceID = "dmb"
)

// Service is the static catalog entry for one container.
type Service struct {
	ID            ServiceID
	Image         string
	ContainerName string
	Ports         []int
	// Core services are deployed for their flavor regardless of user selection.
	Core bool
}

// BundleContainerName is the well-known container that marks the all-in-one flavor.
const BundleContainerName = "DMB"

var catalog = map[ServiceID]Service{
	ServiceZurg:         {ID: ServiceZurg, Image: "ghcr.io/debridmediamanager/zurg-testing:latest", ContainerName: "zurg", Ports: []int{9999}, Core: true},
	ServiceCliDebrid:    {ID: ServiceCliDebrid, Image: "godver3/cli_debrid:main", ContainerName: "cli_debrid", Ports: []int{5000}, Core: true},
	ServicePlex:         {ID: ServicePlex, Image: "plexinc/pms-docker:latest", ContainerName: "plex", Ports: []int{32400}},
	ServiceJellyfin:     {ID: ServiceJellyfin, Image: "jellyfin/jellyfin:latest", ContainerName: "jellyfin", Ports: []int{8096}},
	ServiceEmby:         {ID: ServiceEmby, Image: "emby/embyserver:latest", ContainerName: "emby", Ports: []int{8096}},
	ServiceOverseerr:    {ID: ServiceOverseerr, Image: "sctx/overseerr:latest", ContainerName: "overseerr", Ports: []int{5055}},
	ServiceJellyseerr:   {ID: ServiceJellyseerr, Image: "fallenbagel/jellyseerr:latest", ContainerName: "jellyseerr", Ports: []int{5055}},
	ServiceJackett:      {ID: ServiceJackett, Image: "lscr.io/linuxserver/jackett:latest", ContainerName: "jackett", Ports: []int{9117}},
	ServiceFlareSolverr: {ID: ServiceFlareSolverr, Image: "ghcr.io/flaresolverr/flaresolverr:latest", ContainerName: "flaresolverr", Ports: []int{8191}},
	ServicePortainer:    {ID: ServicePortainer, Image: "portainer/portainer-ce:latest", ContainerName: "portainer", Ports: []int{9443}},
	ServiceWatchtower:   {ID: ServiceWatchtower, Image: "containrrr/watchtower:latest", ContainerName: "watchtower"},
	ServiceDMB:          {ID: ServiceDMB, Image: "iampuid0/dmb:latest", ContainerName: BundleContainerName, Ports: []int{3005, 8000}, Core: true},
}

// Lookup returns the catalog entry for id.
func Lookup(id ServiceID) (Service, bool) {
	s, ok := catalog[id]
	return s, ok
}

// MustLookup is Lookup for ids known at compile time.
func MustLookup(id ServiceID) Service {
	s, ok := catalog[id]
	if !ok {
		panic("unknown service " + string(id))
	}
	return s
}

// IsIndividualMarker reports whether id only ever runs in the individual
// flavor. Optional services are deployed by both flavors and prove nothing.
func IsIndividualMarker(id ServiceID) bool {
	s, ok := catalog[id]
	return ok && s.Core && id != ServiceDMB
}

// ServiceByContainerName maps a runtime container name back to its service.
func ServiceByContainerName(name string) (ServiceID, bool) {
	for id, s := range catalog {
		if s.ContainerName == name {
			return id, true
		}
	}
	return "", false
}
