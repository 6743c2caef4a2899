package render

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/projecteru2/debridctl/types"
)

const (
	zurgPort         = 9999
	zurgLibraryGroup = "media"

	// Anime releases carry an 8-hex-digit CRC tag such as [1A2B3C4D].
	animeHashTag = `/\b[a-fA-F0-9]{8}\b/`
)

// ZurgConfig is zurg's config.yml.
type ZurgConfig struct {
	Version                   string                   `yaml:"zurg"`
	Token                     string                   `yaml:"token"`
	Host                      string                   `yaml:"host"`
	Port                      int                      `yaml:"port"`
	ConcurrentWorkers         int                      `yaml:"concurrent_workers"`
	CheckForChangesEverySecs  int                      `yaml:"check_for_changes_every_secs"`
	RepairEveryMins           int                      `yaml:"repair_every_mins"`
	EnableRepair              bool                     `yaml:"enable_repair"`
	AutoDeleteRarTorrents     bool                     `yaml:"auto_delete_rar_torrents"`
	RetainFolderNameExtension bool                     `yaml:"retain_folder_name_extension"`
	RetainRDTorrentName       bool                     `yaml:"retain_rd_torrent_name"`
	ServeFromRclone           bool                     `yaml:"serve_from_rclone"`
	Directories               map[string]ZurgDirectory `yaml:"directories"`
}

// ZurgDirectory is one library folder and its matching rules.
type ZurgDirectory struct {
	GroupOrder             int              `yaml:"group_order"`
	Group                  string           `yaml:"group"`
	OnlyShowTheBiggestFile bool             `yaml:"only_show_the_biggest_file,omitempty"`
	Filters                []map[string]any `yaml:"filters"`
}

// LibraryDirectories is the organization ruleset. Zurg evaluates
// directories of a group in ascending group_order, so anything unmatched by
// anime or shows falls through to movies.
func LibraryDirectories() map[string]ZurgDirectory {
	return map[string]ZurgDirectory{
		"anime": {
			GroupOrder: 10,
			Group:      zurgLibraryGroup,
			Filters:    []map[string]any{{"regex": animeHashTag}},
		},
		"shows": {
			GroupOrder: 20,
			Group:      zurgLibraryGroup,
			Filters:    []map[string]any{{"has_episodes": true}},
		},
		"movies": {
			GroupOrder:             30,
			Group:                  zurgLibraryGroup,
			OnlyShowTheBiggestFile: true,
			Filters:                []map[string]any{{"regex": "/.*/"}},
		},
	}
}

// Zurg renders config.yml. This is one of the two artifacts allowed to
// carry the credential.
func Zurg(cfg *types.StackConfig, tuning Tuning) ([]byte, error) {
	zc := ZurgConfig{
		Version:                   "v1",
		Token:                     cfg.Credential.Reveal(),
		Host:                      "[::]",
		Port:                      zurgPort,
		ConcurrentWorkers:         tuning.ZurgWorkers,
		CheckForChangesEverySecs:  10, //nolint:mnd
		RepairEveryMins:           60, //nolint:mnd
		EnableRepair:              true,
		AutoDeleteRarTorrents:     true,
		RetainFolderNameExtension: true,
		RetainRDTorrentName:       true,
		ServeFromRclone:           true,
		Directories:               LibraryDirectories(),
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2) //nolint:mnd
	if err := enc.Encode(zc); err != nil {
		return nil, fmt.Errorf("encode zurg config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode zurg config: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseZurg decodes a zurg config.yml.
func ParseZurg(data []byte) (*ZurgConfig, error) {
	var zc ZurgConfig
	if err := yaml.Unmarshal(data, &zc); err != nil {
		return nil, fmt.Errorf("decode zurg config: %w", err)
	}
	return &zc, nil
}
