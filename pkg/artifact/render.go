// Package artifact renders and publishes the metadata files that
// unprovisioned targets fetch at first boot.
package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/zjpeterson/ztprov/pkg/inventory"
)

// SharedName is the well-known filename of the batch-wide artifact.
const SharedName = "controller.json"

// DeviceName returns the per-target artifact filename for a serial.
func DeviceName(serial string) string {
	return fmt.Sprintf("device_%s.json", serial)
}

// SharedConfig is the immutable batch-wide configuration baked into the
// shared artifact.
type SharedConfig struct {
	ControllerURL string
	HostConfigKey string
	JobTemplateID int
	Username      string
	SSHKey        string
	ChunkWidth    int
}

// Shared is the controller.json payload common to all targets in a batch.
type Shared struct {
	Controller    string   `json:"controller"`
	HostConfigKey string   `json:"host_config_key"`
	JobTemplateID int      `json:"job_template_id"`
	Username      string   `json:"username"`
	SSHKeyLines   []string `json:"ssh_key_lines"`
	Serials       []string `json:"serials"`
}

// Device is the per-target payload holding management addressing.
type Device struct {
	Interface string `json:"interface"`
	Address   string `json:"address"`
	Netmask   string `json:"netmask"`
	Gateway   string `json:"gateway"`
}

// Set is one fully rendered artifact batch. The serial list in the
// shared payload and the device file keys are built from the same
// target slice, so neither side can have orphans.
type Set struct {
	Shared  []byte
	Devices map[string][]byte
}

// Chunk splits s into lines of at most width characters. The device
// command line that eventually consumes the credential has a hard
// per-line length limit.
func Chunk(s string, width int) []string {
	if width <= 0 {
		width = 80
	}
	var lines []string
	for len(s) > width {
		lines = append(lines, s[:width])
		s = s[width:]
	}
	if len(s) > 0 {
		lines = append(lines, s)
	}
	return lines
}

// Reassemble reverses Chunk.
func Reassemble(lines []string) string {
	return strings.Join(lines, "")
}

// RenderShared produces the shared artifact bytes. Output is
// byte-identical for identical input: serials are sorted and encoding
// uses fixed indentation.
func RenderShared(targets []inventory.Target, cfg SharedConfig) ([]byte, error) {
	serials := make([]string, 0, len(targets))
	for _, t := range targets {
		serials = append(serials, t.Serial)
	}
	sort.Strings(serials)
	payload := Shared{
		Controller:    cfg.ControllerURL,
		HostConfigKey: cfg.HostConfigKey,
		JobTemplateID: cfg.JobTemplateID,
		Username:      cfg.Username,
		SSHKeyLines:   Chunk(strings.TrimSpace(cfg.SSHKey), cfg.ChunkWidth),
		Serials:       serials,
	}
	return marshal(payload)
}

// RenderTarget produces one per-target artifact.
func RenderTarget(t inventory.Target) ([]byte, error) {
	payload := Device{
		Interface: t.Interface,
		Address:   t.Address.String(),
		Netmask:   t.Netmask,
		Gateway:   t.Gateway.String(),
	}
	return marshal(payload)
}

// Render builds the full artifact set for one batch.
func Render(targets []inventory.Target, cfg SharedConfig) (*Set, error) {
	shared, err := RenderShared(targets, cfg)
	if err != nil {
		return nil, err
	}
	devices := make(map[string][]byte, len(targets))
	for _, t := range targets {
		data, err := RenderTarget(t)
		if err != nil {
			return nil, err
		}
		devices[t.Serial] = data
	}
	return &Set{Shared: shared, Devices: devices}, nil
}

func marshal(v interface{}) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("render artifact: %w", err)
	}
	return buf.Bytes(), nil
}
