package inventory

import "net/netip"

// Lifecycle status values as reported by the CMDB.
const (
	StatusPlanned        = "planned"
	StatusActive         = "active"
	StatusDecommissioned = "decommissioned"
)

// Target describes one provisionable device or instance, normalized
// down to the fields the artifact renderer needs.
type Target struct {
	Serial    string
	Name      string
	Status    string
	Interface string
	Address   netip.Addr
	Netmask   string
	Gateway   netip.Addr
}

// Record is the raw device shape returned by the CMDB API.
type Record struct {
	ID         int         `json:"id"`
	Name       string      `json:"name"`
	Serial     string      `json:"serial"`
	Status     Status      `json:"status"`
	Platform   Named       `json:"platform"`
	Interfaces []Interface `json:"interfaces"`
}

// Status is the CMDB's value/label pair for lifecycle state.
type Status struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Named is an embedded CMDB object referenced by slug.
type Named struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Interface is a device interface with its assigned addresses.
type Interface struct {
	Name        string      `json:"name"`
	MgmtOnly    bool        `json:"mgmt_only"`
	IPAddresses []IPAddress `json:"ip_addresses"`
}

// IPAddress holds one assigned address in CIDR notation.
type IPAddress struct {
	Address string `json:"address"`
}
