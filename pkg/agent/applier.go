package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrConfigRejected indicates the device rejected part of the minimum
// local configuration.
var ErrConfigRejected = errors.New("configuration rejected")

// Plan is the minimum local configuration applied before calling back:
// management addressing, a default route, a privileged local account
// with its SSH key, and local auth on remote administrative access.
type Plan struct {
	Interface   string
	Address     string
	Netmask     string
	Gateway     string
	VRF         string
	Username    string
	SSHKeyLines []string
}

// Applier applies a configuration plan to the local device.
type Applier interface {
	Apply(ctx context.Context, plan Plan) error
}

// ScriptApplier renders the plan as an IOS-style command script on Out,
// to be fed to the device configuration command line by the bootstrap
// wrapper. It assumes nothing about the execution environment beyond a
// writable stream.
type ScriptApplier struct {
	Out io.Writer
}

// Apply writes the command script for the plan.
func (s ScriptApplier) Apply(ctx context.Context, plan Plan) error {
	var b strings.Builder
	b.WriteString("configure terminal\n")
	fmt.Fprintf(&b, "interface %s\n", plan.Interface)
	fmt.Fprintf(&b, "ip address %s %s\n", plan.Address, plan.Netmask)
	b.WriteString("no shutdown\n")
	b.WriteString("exit\n")
	if plan.VRF != "" {
		fmt.Fprintf(&b, "ip route vrf %s 0.0.0.0 0.0.0.0 %s\n", plan.VRF, plan.Gateway)
	} else {
		fmt.Fprintf(&b, "ip route 0.0.0.0 0.0.0.0 %s\n", plan.Gateway)
	}
	fmt.Fprintf(&b, "username %s privilege 15\n", plan.Username)
	b.WriteString("ip ssh pubkey-chain\n")
	fmt.Fprintf(&b, "username %s\n", plan.Username)
	b.WriteString("key-string\n")
	for _, line := range plan.SSHKeyLines {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("exit\n")
	b.WriteString("exit\n")
	b.WriteString("line vty 0 15\n")
	b.WriteString("login local\n")
	b.WriteString("transport input ssh\n")
	b.WriteString("end\n")
	b.WriteString("write memory\n")
	if _, err := io.WriteString(s.Out, b.String()); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigRejected, err)
	}
	return nil
}
