package agent

import (
	"fmt"
	"os"
	"strings"
)

// IdentitySource yields the local hardware identifiers of the running
// target in a fixed, deterministic order. For a stacked chassis the
// order is stack member order.
type IdentitySource interface {
	Serials() ([]string, error)
}

// StaticIdentity is a fixed list of serials, used when the caller
// already knows the hardware identity.
type StaticIdentity []string

// Serials returns the static list.
func (s StaticIdentity) Serials() ([]string, error) {
	return []string(s), nil
}

// FileIdentity reads serials from a file, one per line. Blank lines
// and '#' comments are skipped.
type FileIdentity struct {
	Path string
}

// Serials reads and parses the identity file.
func (f FileIdentity) Serials() ([]string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read identity file: %w", err)
	}
	var serials []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		serials = append(serials, line)
	}
	return serials, nil
}
