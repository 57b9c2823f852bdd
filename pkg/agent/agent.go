// Package agent implements the first-boot bootstrap sequence: fetch
// the published artifact set, self-identify, apply minimum local
// configuration and call back to the control plane for a full run.
//
// The agent runs once per boot. Nothing is retried: on failure the
// boot cycle is abandoned and a reboot or operator intervention
// restarts the whole sequence.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/zjpeterson/ztprov/pkg/artifact"
	"github.com/zjpeterson/ztprov/pkg/logging"
)

// Errors surfaced by an agent run.
var (
	ErrArtifactFetch    = errors.New("artifact fetch failed")
	ErrNoMatchingTarget = errors.New("no matching target")
)

// Agent drives one bootstrap run on a target.
type Agent struct {
	ArtifactBaseURL    string
	Identity           IdentitySource
	Applier            Applier
	VRF                string
	StopOnFirstMatch   bool
	InsecureSkipVerify bool
	HTTPClient         *http.Client
	Log                *logging.Logger
}

// Result reports what one run accomplished.
type Result struct {
	Matched []string
	Job     JobRef
}

// Run executes the bootstrap state machine to completion.
//
// ErrNoMatchingTarget means this target is not in the current
// provisioning batch, an expected outcome when the inventory snapshot
// lags behind hardware arrival. Callers should treat it as a clean
// exit, not a failure.
func (a *Agent) Run(ctx context.Context) (Result, error) {
	client := a.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	var shared artifact.Shared
	if err := a.fetchJSON(ctx, client, artifact.SharedName, &shared); err != nil {
		return Result{}, err
	}
	valid := make(map[string]bool, len(shared.Serials))
	for _, s := range shared.Serials {
		valid[s] = true
	}

	candidates, err := a.Identity.Serials()
	if err != nil {
		return Result{}, fmt.Errorf("identify: %w", err)
	}
	a.Log.Debugf("local candidates: %v", candidates)

	var matched []string
	for _, serial := range candidates {
		if !valid[serial] {
			continue
		}
		matched = append(matched, serial)
		if a.StopOnFirstMatch {
			break
		}
	}
	if len(matched) == 0 {
		a.Log.Infof("none of %d local serials are in the current batch, nothing to do", len(candidates))
		return Result{}, ErrNoMatchingTarget
	}

	for _, serial := range matched {
		a.Log.Infof("matched serial %s, applying configuration", serial)
		var device artifact.Device
		if err := a.fetchJSON(ctx, client, artifact.DeviceName(serial), &device); err != nil {
			return Result{Matched: matched}, err
		}
		plan := Plan{
			Interface:   device.Interface,
			Address:     device.Address,
			Netmask:     device.Netmask,
			Gateway:     device.Gateway,
			VRF:         a.VRF,
			Username:    shared.Username,
			SSHKeyLines: shared.SSHKeyLines,
		}
		if err := a.Applier.Apply(ctx, plan); err != nil {
			return Result{Matched: matched}, err
		}
	}

	caller := NewCaller(shared.Controller, shared.JobTemplateID, a.InsecureSkipVerify)
	if a.HTTPClient != nil && !a.InsecureSkipVerify {
		caller.HTTPClient = a.HTTPClient
	}
	job, err := caller.Call(ctx, shared.HostConfigKey)
	if err != nil {
		return Result{Matched: matched}, err
	}
	a.Log.Infof("callback accepted, job at %s (node %s)", job.Location, job.Node)
	return Result{Matched: matched, Job: job}, nil
}

func (a *Agent) fetchJSON(ctx context.Context, client *http.Client, name string, v interface{}) error {
	url := fmt.Sprintf("%s/%s", a.ArtifactBaseURL, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArtifactFetch, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrArtifactFetch, name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: %s", ErrArtifactFetch, name, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %s: malformed: %v", ErrArtifactFetch, name, err)
	}
	return nil
}
