package workflow

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/projecteru2/debridctl/health"
	"github.com/projecteru2/debridctl/provision"
	"github.com/projecteru2/debridctl/reconcile"
	"github.com/projecteru2/debridctl/types"
)

// Summary is what a run did, printed at the end.
type Summary struct {
	Action    reconcile.ActionKind
	Flavor    types.Flavor
	Phase     Phase
	Cancelled bool

	Written  []string
	Pulled   []string
	Skipped  []string
	Warnings []string
	URLs     []string

	Health   *health.Report
	Snapshot *types.BackupSnapshot
}

// Status is the one-line outcome.
func (s *Summary) Status() string {
	switch {
	case s.Cancelled:
		return "cancelled"
	case s.Phase == PhaseAborted:
		return "aborted"
	case len(s.Warnings) > 0 || (s.Health != nil && !s.Health.Healthy):
		return "completed with warnings"
	default:
		return "completed"
	}
}

func (s *Summary) absorb(res *provision.Result) {
	if res == nil {
		return
	}
	s.Written = append(s.Written, res.Written...)
	s.Pulled = append(s.Pulled, res.Pulled...)
	s.Skipped = append(s.Skipped, res.Skipped...)
	s.Warnings = append(s.Warnings, res.Warnings...)
}

// Print writes the summary as an aligned table.
func (s *Summary) Print(out io.Writer) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0) //nolint:mnd
	_, _ = fmt.Fprintf(w, "ACTION\t%s\n", s.Action)
	if s.Flavor != "" {
		_, _ = fmt.Fprintf(w, "FLAVOR\t%s\n", s.Flavor)
	}
	_, _ = fmt.Fprintf(w, "STATUS\t%s\n", s.Status())
	if len(s.Written) > 0 {
		_, _ = fmt.Fprintf(w, "FILES\t%d written\n", len(s.Written))
	}
	if len(s.Pulled) > 0 || len(s.Skipped) > 0 {
		_, _ = fmt.Fprintf(w, "IMAGES\t%d pulled, %d skipped\n", len(s.Pulled), len(s.Skipped))
	}
	if s.Health != nil {
		state := "healthy"
		switch {
		case !s.Health.Healthy:
			state = "unhealthy"
		case s.Health.Recovered:
			state = "healthy after restart"
		}
		_, _ = fmt.Fprintf(w, "HEALTH\t%s\n", state)
		if d := s.Health.Diagnostics; d != nil {
			_, _ = fmt.Fprintf(w, "DIAGNOSTICS\t%s\n", d.Path)
		}
	}
	if s.Snapshot != nil {
		_, _ = fmt.Fprintf(w, "SNAPSHOT\t%s\n", s.Snapshot.ArchivePath)
	}
	for _, u := range s.URLs {
		_, _ = fmt.Fprintf(w, "URL\t%s\n", u)
	}
	for _, warn := range s.Warnings {
		_, _ = fmt.Fprintf(w, "WARNING\t%s\n", warn)
	}
	_ = w.Flush()
}

// serviceURLs lists the web UIs of cfg's services.
func serviceURLs(cfg *types.StackConfig) []string {
	addr := orDefault(cfg.ServerAddress, fallbackAddress)
	var out []string
	for _, id := range cfg.Services() {
		svc, ok := types.Lookup(id)
		if !ok || len(svc.Ports) == 0 {
			continue
		}
		scheme := "http"
		if id == types.ServicePortainer {
			scheme = "https"
		}
		ports := make([]string, 0, len(svc.Ports))
		for _, p := range svc.Ports {
			ports = append(ports, fmt.Sprintf("%s://%s:%d", scheme, addr, p))
		}
		out = append(out, fmt.Sprintf("%s %s", id, strings.Join(ports, " ")))
	}
	return out
}
