package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/zjpeterson/ztprov/pkg/ipcalc"
	"github.com/zjpeterson/ztprov/pkg/logging"
)

// Errors surfaced while normalizing a raw CMDB record.
var (
	ErrNoManagementInterface = errors.New("no management-only interface")
	ErrNoAddress             = errors.New("management interface has no address")
)

// Normalize flattens a raw CMDB record into a Target.
//
// Selection policy when the CMDB reports more than one candidate:
// interfaces flagged mgmt-only are ordered lexicographically by name,
// their addresses lexicographically by value, and the first of each
// wins. The tie is logged as a warning since the CMDB's own ordering
// is not guaranteed stable.
func Normalize(rec Record, log *logging.Logger) (Target, error) {
	var mgmt []Interface
	for _, ifc := range rec.Interfaces {
		if ifc.MgmtOnly {
			mgmt = append(mgmt, ifc)
		}
	}
	if len(mgmt) == 0 {
		return Target{}, fmt.Errorf("%w: device %s", ErrNoManagementInterface, rec.Name)
	}
	sort.Slice(mgmt, func(i, j int) bool { return mgmt[i].Name < mgmt[j].Name })
	if len(mgmt) > 1 {
		log.Warnf("device %s has %d management interfaces, taking %s", rec.Name, len(mgmt), mgmt[0].Name)
	}
	chosen := mgmt[0]
	if len(chosen.IPAddresses) == 0 {
		return Target{}, fmt.Errorf("%w: device %s interface %s", ErrNoAddress, rec.Name, chosen.Name)
	}
	addrs := make([]string, 0, len(chosen.IPAddresses))
	for _, a := range chosen.IPAddresses {
		addrs = append(addrs, a.Address)
	}
	sort.Strings(addrs)
	if len(addrs) > 1 {
		log.Warnf("device %s interface %s has %d addresses, taking %s", rec.Name, chosen.Name, len(addrs), addrs[0])
	}
	network, err := ipcalc.Derive(addrs[0])
	if err != nil {
		return Target{}, fmt.Errorf("device %s interface %s: %w", rec.Name, chosen.Name, err)
	}
	return Target{
		Serial:    rec.Serial,
		Name:      rec.Name,
		Status:    rec.Status.Value,
		Interface: chosen.Name,
		Address:   network.Address,
		Netmask:   network.Netmask,
		Gateway:   network.Gateway,
	}, nil
}

// Builder pulls pending devices from the CMDB and normalizes them.
type Builder struct {
	client *Client
	filter Filter
	log    *logging.Logger
}

// NewBuilder constructs a snapshot builder.
func NewBuilder(client *Client, filter Filter, log *logging.Logger) *Builder {
	return &Builder{client: client, filter: filter, log: log}
}

// Snapshot fetches and normalizes the current provisioning batch. Any
// record that fails to normalize aborts the whole batch so a partial
// artifact set is never published.
func (b *Builder) Snapshot(ctx context.Context) ([]Target, error) {
	records, err := b.client.Fetch(ctx, b.filter)
	if err != nil {
		return nil, err
	}
	b.log.Debugf("cmdb returned %d records", len(records))
	targets := make([]Target, 0, len(records))
	for _, rec := range records {
		target, err := Normalize(rec, b.log)
		if err != nil {
			return nil, err
		}
		targets = append(targets, target)
	}
	return targets, nil
}
