package health

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/moby/sys/mountinfo"

	"github.com/projecteru2/debridctl/render"
	"github.com/projecteru2/debridctl/utils"
)

const (
	logTail     = 200
	journalTail = "100"
)

// Section is one named chunk of diagnostic output.
type Section struct {
	Name string `json:"name"`
	Body string `json:"body"`
}

// Diagnostics is a persisted bundle describing a failed health check.
type Diagnostics struct {
	ID       string    `json:"id"`
	Time     time.Time `json:"time"`
	Path     string    `json:"path"`
	Failures []string  `json:"failures"`
	Sections []Section `json:"sections"`
}

// Section returns the body of the named section, or "".
func (d *Diagnostics) Section(name string) string {
	for _, s := range d.Sections {
		if s.Name == name {
			return s.Body
		}
	}
	return ""
}

func (v *Verifier) collect(ctx context.Context, ep Endpoints, st probeState, failures []string) (*Diagnostics, error) {
	now := time.Now()
	d := &Diagnostics{ID: utils.ShortID(), Time: now, Failures: failures}
	add := func(name, body string) {
		if body == "" {
			body = "(empty)"
		}
		d.Sections = append(d.Sections, Section{Name: name, Body: string(render.Redact([]byte(body), v.Secret))})
	}

	logs, err := v.Engine.Logs(ctx, ep.CoreContainer, logTail)
	if err != nil {
		logs = fmt.Sprintf("%s\nerror: %v", logs, err)
	}
	add("container-logs", logs)

	if ep.MountUnit != "" {
		out, err := v.Runner.Run(ctx, "systemctl", "status", ep.MountUnit, "--no-pager")
		add("unit-status", withErr(out, err))
		out, err = v.Runner.Run(ctx, "journalctl", "-u", ep.MountUnit, "-n", journalTail, "--no-pager")
		add("unit-journal", withErr(out, err))
	}

	add("fuse-mounts", fuseMounts())

	resp := fmt.Sprintf("GET %s\n", ep.URL)
	if st.endpointErr != nil {
		resp += fmt.Sprintf("error: %v\n", st.endpointErr)
	}
	add("endpoint-response", resp+string(st.body))

	d.Path = filepath.Join(v.DiagDir, fmt.Sprintf("health-%s-%s.json", now.Format("20060102-150405"), d.ID))
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return d, fmt.Errorf("encode diagnostics: %w", err)
	}
	if err := utils.AtomicWriteFile(d.Path, data, 0o600); err != nil {
		return d, err
	}
	return d, nil
}

func withErr(out []byte, err error) string {
	if err != nil {
		return fmt.Sprintf("%s\nerror: %v", out, err)
	}
	return string(out)
}

func fuseMounts() string {
	mounts, err := mountinfo.GetMounts(func(info *mountinfo.Info) (skip, stop bool) {
		return !strings.HasPrefix(info.FSType, "fuse"), false
	})
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	var b strings.Builder
	for _, m := range mounts {
		fmt.Fprintf(&b, "%s on %s type %s (%s)\n", m.Source, m.Mountpoint, m.FSType, m.Options)
	}
	if b.Len() == 0 {
		return "no fuse mounts"
	}
	return b.String()
}
