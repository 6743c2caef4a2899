package types

import "slices"

// InstallationRecord is what a filesystem and container scan found on the host.
type InstallationRecord struct {
	Flavor          Flavor               `json:"flavor"`
	PresentServices []ServiceID          `json:"present_services,omitempty"`
	ConfigPaths     map[ServiceID]string `json:"config_paths,omitempty"`
	// Ambiguous is set when both bundle and individual artifacts were found.
	Ambiguous bool     `json:"ambiguous,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// Has reports whether id was found running or configured.
func (r *InstallationRecord) Has(id ServiceID) bool {
	return slices.Contains(r.PresentServices, id)
}

// Installed reports whether any flavor was detected.
func (r *InstallationRecord) Installed() bool {
	return r.Flavor == FlavorIndividual || r.Flavor == FlavorBundle
}
