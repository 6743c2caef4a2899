package config

import (
	"time"

	coretypes "github.com/projecteru2/core/types"
)

// Config holds global debridctl configuration.
type Config struct {
	// RootDir is the base directory for generated stack files and backups.
	// Env: DEBRID_ROOT_DIR. Default: /opt/debrid.
	RootDir string `json:"root_dir" mapstructure:"root_dir"`
	// RunDir holds the run lock. Contents are ephemeral.
	// Env: DEBRID_RUN_DIR. Default: /run/debridctl.
	RunDir string `json:"run_dir" mapstructure:"run_dir"`
	// BackupDir overrides where snapshot archives are kept.
	// Default: {RootDir}/backups.
	BackupDir string `json:"backup_dir" mapstructure:"backup_dir"`
	// BackupKeep is how many snapshots are retained. Default: 10.
	BackupKeep int `json:"backup_keep" mapstructure:"backup_keep"`
	// UnitDir is the systemd unit directory. Default: /etc/systemd/system.
	UnitDir string `json:"unit_dir" mapstructure:"unit_dir"`
	// MountDir is the rclone mount point for the individual flavor.
	// Default: /mnt/zurg.
	MountDir string `json:"mount_dir" mapstructure:"mount_dir"`
	// BundleMountDir is where the bundle container propagates its mount.
	// Default: /mnt/debrid.
	BundleMountDir string `json:"bundle_mount_dir" mapstructure:"bundle_mount_dir"`
	// ProjectName is the compose project name. Default: "debrid".
	ProjectName string `json:"project_name" mapstructure:"project_name"`
	// RcloneBinary is the absolute path of the rclone executable used by the
	// mount unit. Default: /usr/bin/rclone.
	RcloneBinary string `json:"rclone_binary" mapstructure:"rclone_binary"`
	// PUID and PGID are passed to containers that drop privileges. Default: 1000.
	PUID int `json:"puid" mapstructure:"puid"`
	PGID int `json:"pgid" mapstructure:"pgid"`
	// PullRetries bounds image pull attempts before the user is asked. Default: 3.
	PullRetries int `json:"pull_retries" mapstructure:"pull_retries"`
	// PullExtendedRetries is the budget used after the user picks "retry". Default: 6.
	PullExtendedRetries int `json:"pull_extended_retries" mapstructure:"pull_extended_retries"`
	// PullBackoffSeconds is the fixed delay between pull attempts. Default: 10.
	PullBackoffSeconds int `json:"pull_backoff_seconds" mapstructure:"pull_backoff_seconds"`
	// HealthAttempts and HealthIntervalSeconds bound each health poll pass.
	// Defaults: 12 attempts, 5 seconds apart.
	HealthAttempts        int `json:"health_attempts" mapstructure:"health_attempts"`
	HealthIntervalSeconds int `json:"health_interval_seconds" mapstructure:"health_interval_seconds"`
	// AssumeYes accepts every default without prompting.
	AssumeYes bool `json:"assume_yes" mapstructure:"assume_yes"`
	// Log configuration, uses eru core's ServerLogConfig.
	Log *coretypes.ServerLogConfig `json:"log" mapstructure:"log"`
}

// PullBackoff returns the fixed delay between image pull attempts.
func (c *Config) PullBackoff() time.Duration {
	return time.Duration(c.PullBackoffSeconds) * time.Second
}

// HealthInterval returns the sleep between health poll attempts.
func (c *Config) HealthInterval() time.Duration {
	return time.Duration(c.HealthIntervalSeconds) * time.Second
}
