package render

import (
	"bytes"
	"fmt"
	"maps"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/projecteru2/debridctl/config"
	"github.com/projecteru2/debridctl/types"
)

const (
	// WatchtowerLabel opts a container in to watchtower updates.
	WatchtowerLabel = "com.centurylinklabs.watchtower.enable"
	// DefaultUpdateSchedule is watchtower's 6-field cron: daily at 04:00.
	DefaultUpdateSchedule = "0 0 4 * * *"

	EnvUpdateSchedule = "WATCHTOWER_SCHEDULE"
	EnvNotifyURL      = "WATCHTOWER_NOTIFICATION_URL"

	dockerSocket = "/var/run/docker.sock:/var/run/docker.sock"
)

// ComposeFile is the subset of the compose schema debridctl writes and
// reads back when importing an installation.
type ComposeFile struct {
	Name     string                    `yaml:"name"`
	Services map[string]ComposeService `yaml:"services"`
}

// ComposeService is one service block.
type ComposeService struct {
	Image         string            `yaml:"image"`
	ContainerName string            `yaml:"container_name"`
	Restart       string            `yaml:"restart"`
	Ports         []string          `yaml:"ports,omitempty"`
	Environment   map[string]string `yaml:"environment,omitempty"`
	Volumes       []string          `yaml:"volumes,omitempty"`
	Devices       []string          `yaml:"devices,omitempty"`
	CapAdd        []string          `yaml:"cap_add,omitempty"`
	SecurityOpt   []string          `yaml:"security_opt,omitempty"`
	DependsOn     []string          `yaml:"depends_on,omitempty"`
	Labels        map[string]string `yaml:"labels"`
}

// ParseCompose decodes a compose manifest written by Compose.
func ParseCompose(data []byte) (*ComposeFile, error) {
	var cf ComposeFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("decode compose manifest: %w", err)
	}
	return &cf, nil
}

// Compose renders the compose manifest. Only selected services get a block.
// Environment values that vary per host are interpolated from .env.
func Compose(cfg *types.StackConfig, layout *config.Config) ([]byte, error) {
	mount := layout.MountPoint(cfg.Flavor)
	cf := ComposeFile{
		Name:     layout.ProjectName,
		Services: map[string]ComposeService{},
	}
	for _, id := range cfg.Services() {
		svc := types.MustLookup(id)
		block := ComposeService{
			Image:         svc.Image,
			ContainerName: svc.ContainerName,
			Restart:       "unless-stopped",
			Ports:         portMappings(svc.Ports),
			Environment:   map[string]string{"TZ": "${TZ}"},
			Labels:        map[string]string{WatchtowerLabel: strconv.FormatBool(cfg.AutoUpdate.Enabled(id))},
		}
		decorate(&block, id, cfg, mount)
		cf.Services[string(id)] = block
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2) //nolint:mnd
	if err := enc.Encode(cf); err != nil {
		return nil, fmt.Errorf("encode compose manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode compose manifest: %w", err)
	}
	return buf.Bytes(), nil
}

func portMappings(ports []int) []string {
	var out []string
	for _, p := range ports {
		out = append(out, fmt.Sprintf("%d:%d", p, p))
	}
	return out
}

// decorate fills the service-specific parts of a block.
func decorate(b *ComposeService, id types.ServiceID, cfg *types.StackConfig, mount string) {
	library := mount + ":" + mount + ":rslave"
	ids := map[string]string{"PUID": "${PUID}", "PGID": "${PGID}"}

	switch id {
	case types.ServiceZurg:
		b.Volumes = []string{"./zurg/config.yml:/app/config.yml", "./zurg/data:/app/data"}
	case types.ServiceCliDebrid:
		b.Volumes = []string{"./data/cli_debrid:/user", library}
		b.DependsOn = []string{string(types.ServiceZurg)}
	case types.ServiceDMB:
		maps.Copy(b.Environment, ids)
		b.Volumes = []string{
			"./config:/config",
			"./log:/log",
			"./data:/data",
			mount + ":" + mount + ":rshared",
		}
		b.Devices = []string{"/dev/fuse:/dev/fuse:rwm"}
		b.CapAdd = []string{"SYS_ADMIN"}
		b.SecurityOpt = []string{"apparmor:unconfined", "no-new-privileges"}
	case types.ServicePlex:
		b.Environment["PLEX_UID"] = "${PUID}"
		b.Environment["PLEX_GID"] = "${PGID}"
		b.Volumes = []string{"./data/plex:/config", library}
	case types.ServiceJellyfin, types.ServiceEmby:
		maps.Copy(b.Environment, ids)
		b.Volumes = []string{"./data/" + string(id) + ":/config", library}
	case types.ServiceOverseerr, types.ServiceJellyseerr:
		b.Volumes = []string{"./data/" + string(id) + ":/app/config"}
	case types.ServiceJackett:
		maps.Copy(b.Environment, ids)
		b.Volumes = []string{"./data/jackett:/config"}
	case types.ServiceFlareSolverr:
		b.Environment["LOG_LEVEL"] = "info"
	case types.ServicePortainer:
		b.Volumes = []string{dockerSocket, "./data/portainer:/data"}
	case types.ServiceWatchtower:
		schedule := cfg.AutoUpdate.Schedule
		if schedule == "" {
			schedule = DefaultUpdateSchedule
		}
		b.Environment["WATCHTOWER_LABEL_ENABLE"] = "true"
		b.Environment["WATCHTOWER_CLEANUP"] = "true"
		b.Environment[EnvUpdateSchedule] = schedule
		if cfg.AutoUpdate.NotifyWebhook != "" {
			b.Environment[EnvNotifyURL] = cfg.AutoUpdate.NotifyWebhook
		}
		b.Volumes = []string{dockerSocket}
	}
}
