package types

import "time"

// BackupEntry is one file inside a snapshot archive.
type BackupEntry struct {
	Key    string `json:"key"`
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	Digest string `json:"digest"`
}

// BackupSnapshot describes a written archive. Immutable once created.
type BackupSnapshot struct {
	ID          string        `json:"id"`
	Timestamp   time.Time     `json:"timestamp"`
	ArchivePath string        `json:"archive_path"`
	Flavor      Flavor        `json:"flavor"`
	Manifest    []BackupEntry `json:"manifest"`
}
