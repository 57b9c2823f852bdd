// Package ipcalc derives device management addressing from CIDR notation.
package ipcalc

import (
	"errors"
	"fmt"
	"net/netip"
)

// ErrInvalidCIDR indicates the input is not a usable IPv4 CIDR block.
var ErrInvalidCIDR = errors.New("invalid cidr")

// Network holds the addressing derived from one CIDR-notated host address.
type Network struct {
	Address netip.Addr
	Netmask string
	Gateway netip.Addr
}

// Derive splits an IPv4 host address in CIDR form into host address,
// dotted-decimal netmask and gateway. The gateway convention is the
// second-to-last address of the block, one below broadcast.
func Derive(cidr string) (Network, error) {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return Network{}, fmt.Errorf("%w: %q: %v", ErrInvalidCIDR, cidr, err)
	}
	if !prefix.Addr().Is4() {
		return Network{}, fmt.Errorf("%w: %q: not IPv4", ErrInvalidCIDR, cidr)
	}
	if prefix.Bits() > 30 {
		return Network{}, fmt.Errorf("%w: %q: prefix longer than /30 leaves no gateway", ErrInvalidCIDR, cidr)
	}
	mask := maskBytes(prefix.Bits())
	network := prefix.Masked().Addr().As4()
	var broadcast [4]byte
	for i := range network {
		broadcast[i] = network[i] | ^mask[i]
	}
	return Network{
		Address: prefix.Addr(),
		Netmask: fmt.Sprintf("%d.%d.%d.%d", mask[0], mask[1], mask[2], mask[3]),
		Gateway: netip.AddrFrom4(broadcast).Prev(),
	}, nil
}

func maskBytes(bits int) [4]byte {
	var mask [4]byte
	for i := 0; i < bits; i++ {
		mask[i/8] |= 1 << (7 - i%8)
	}
	return mask
}
