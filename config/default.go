package config

import (
	coretypes "github.com/projecteru2/core/types"
)

// DefaultConfig returns a Config populated with production defaults.
func DefaultConfig() *Config {
	return &Config{
		RootDir:               "/opt/debrid",
		RunDir:                "/run/debridctl",
		BackupKeep:            10, //nolint:mnd
		UnitDir:               "/etc/systemd/system",
		MountDir:              "/mnt/zurg",
		BundleMountDir:        "/mnt/debrid",
		ProjectName:           "debrid",
		RcloneBinary:          "/usr/bin/rclone",
		PUID:                  1000, //nolint:mnd
		PGID:                  1000, //nolint:mnd
		PullRetries:           3,    //nolint:mnd
		PullExtendedRetries:   6,    //nolint:mnd
		PullBackoffSeconds:    10,   //nolint:mnd
		HealthAttempts:        12,   //nolint:mnd
		HealthIntervalSeconds: 5,    //nolint:mnd
		Log: &coretypes.ServerLogConfig{
			Level: "info",
		},
	}
}
