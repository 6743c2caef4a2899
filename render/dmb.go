package render

import (
	"encoding/json"
	"fmt"

	"github.com/projecteru2/debridctl/config"
	"github.com/projecteru2/debridctl/types"
)

const (
	dmbAPIPort      = 8000
	dmbFrontendPort = 3005
	dmbInstance     = "RealDebrid"
)

// DMBConfig is the subset of dmb_config.json that debridctl manages.
type DMBConfig struct {
	PUID      int          `json:"puid"`
	PGID      int          `json:"pgid"`
	TZ        string       `json:"tz"`
	DMB       DMBCore      `json:"dmb"`
	Zurg      DMBInstances `json:"zurg"`
	Rclone    DMBInstances `json:"rclone"`
	CliDebrid DMBToggle    `json:"cli_debrid"`
}

type DMBCore struct {
	LogLevel   string     `json:"log_level"`
	APIService DMBService `json:"api_service"`
	Frontend   DMBService `json:"frontend"`
}

type DMBService struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host,omitempty"`
	Port    int    `json:"port"`
}

type DMBToggle struct {
	Enabled bool `json:"enabled"`
}

type DMBInstances struct {
	Instances map[string]DMBInstance `json:"instances"`
}

// DMBInstance covers both zurg and rclone instance blocks; unused fields
// are omitted.
type DMBInstance struct {
	Enabled           bool   `json:"enabled"`
	APIKey            string `json:"api_key,omitempty"`
	ConcurrentWorkers int    `json:"concurrent_workers,omitempty"`
	MountDir          string `json:"mount_dir,omitempty"`
	MountName         string `json:"mount_name,omitempty"`
	CacheMaxSize      string `json:"vfs_cache_max_size,omitempty"`
	CacheMaxAge       string `json:"vfs_cache_max_age,omitempty"`
	BufferSize        string `json:"buffer_size,omitempty"`
	Transfers         int    `json:"transfers,omitempty"`
}

// DMB renders the bundle's dmb_config.json. Its presence on disk marks the
// bundle flavor, and it is the bundle's only credential-bearing artifact.
func DMB(cfg *types.StackConfig, tuning Tuning, layout *config.Config) ([]byte, error) {
	dc := DMBConfig{
		PUID: cfg.PUID,
		PGID: cfg.PGID,
		TZ:   cfg.Timezone,
		DMB: DMBCore{
			LogLevel:   "INFO",
			APIService: DMBService{Enabled: true, Host: "0.0.0.0", Port: dmbAPIPort},
			Frontend:   DMBService{Enabled: true, Port: dmbFrontendPort},
		},
		Zurg: DMBInstances{Instances: map[string]DMBInstance{
			dmbInstance: {Enabled: true, APIKey: cfg.Credential.Reveal(), ConcurrentWorkers: tuning.ZurgWorkers},
		}},
		Rclone: DMBInstances{Instances: map[string]DMBInstance{
			dmbInstance: {
				Enabled:      true,
				MountDir:     layout.BundleMountDir,
				MountName:    config.RcloneRemote,
				CacheMaxSize: tuning.CacheMaxSize,
				CacheMaxAge:  tuning.CacheMaxAge,
				BufferSize:   tuning.BufferSize,
				Transfers:    tuning.Transfers,
			},
		}},
		CliDebrid: DMBToggle{Enabled: true},
	}
	data, err := json.MarshalIndent(dc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode dmb config: %w", err)
	}
	return append(data, '\n'), nil
}

// ParseDMB decodes a dmb_config.json.
func ParseDMB(data []byte) (*DMBConfig, error) {
	var dc DMBConfig
	if err := json.Unmarshal(data, &dc); err != nil {
		return nil, fmt.Errorf("decode dmb config: %w", err)
	}
	return &dc, nil
}

// APIKey returns the zurg instance key, or "" if none is configured.
func (c *DMBConfig) APIKey() string {
	return c.Zurg.Instances[dmbInstance].APIKey
}
