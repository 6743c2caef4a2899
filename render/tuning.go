package render

import "github.com/projecteru2/debridctl/types"

// Tuning is the set of concurrency and cache values chosen by resource tier.
type Tuning struct {
	ZurgWorkers        int
	Transfers          int
	Checkers           int
	BufferSize         string
	ReadChunkSize      string
	ReadChunkSizeLimit string
	CacheMaxSize       string
	CacheMaxAge        string
	DirCacheTime       string
	CacheMinFreeSpace  string
}

var tunings = map[types.ResourceTier]Tuning{
	types.ResourceTierNormal: {
		ZurgWorkers:        64,
		Transfers:          8,
		Checkers:           16,
		BufferSize:         "64M",
		ReadChunkSize:      "64M",
		ReadChunkSizeLimit: "1G",
		CacheMaxSize:       "20G",
		CacheMaxAge:        "24h",
		DirCacheTime:       "10s",
		CacheMinFreeSpace:  "1G",
	},
	types.ResourceTierConstrained: {
		ZurgWorkers:        16,
		Transfers:          4,
		Checkers:           8,
		BufferSize:         "16M",
		ReadChunkSize:      "32M",
		ReadChunkSizeLimit: "256M",
		CacheMaxSize:       "2G",
		CacheMaxAge:        "6h",
		DirCacheTime:       "10s",
		CacheMinFreeSpace:  "512M",
	},
}

// TuningFor returns the preset for tier. Unknown tiers get the normal preset.
func TuningFor(tier types.ResourceTier) Tuning {
	if t, ok := tunings[tier]; ok {
		return t
	}
	return tunings[types.ResourceTierNormal]
}
