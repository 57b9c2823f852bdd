// Command ztprov drives the zero-touch provisioning workflow: it
// renders boot artifacts from the CMDB, runs the on-target bootstrap
// agent, and can serve a stand-in callback gateway for lab setups.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zjpeterson/ztprov/pkg/agent"
	"github.com/zjpeterson/ztprov/pkg/artifact"
	"github.com/zjpeterson/ztprov/pkg/config"
	"github.com/zjpeterson/ztprov/pkg/gateway"
	"github.com/zjpeterson/ztprov/pkg/inventory"
	"github.com/zjpeterson/ztprov/pkg/logging"
	"github.com/zjpeterson/ztprov/pkg/scheduler"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "ztprov",
	Short:         "Zero-touch provisioning toolkit",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "ztprov.yaml", "path to config file")
	rootCmd.AddCommand(renderCmd, listCmd, agentCmd, gatewayCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup() (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Logging.Path, logging.ParseLevel(cfg.Logging.Level))
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Pull planned targets from the CMDB and publish boot artifacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()
		batch, err := newBatch(cfg, logger)
		if err != nil {
			return err
		}
		if cfg.Scheduler.Enabled {
			scheduler.New(cfg.Scheduler, batch, logger).Start(ctx)
			return nil
		}
		return batch.Run(ctx)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List targets currently awaiting provisioning",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()
		builder := newBuilder(cfg, logger)
		targets, err := builder.Snapshot(ctx)
		if err != nil {
			return err
		}
		for _, t := range targets {
			fmt.Printf("%s\t%s\t%s %s via %s on %s\n", t.Serial, t.Name, t.Address, t.Netmask, t.Gateway, t.Interface)
		}
		fmt.Printf("%d targets awaiting provisioning\n", len(targets))
		return nil
	},
}

var (
	agentSerials      []string
	agentIdentityFile string
	agentOutput       string
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the first-boot bootstrap sequence on this target",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		var identity agent.IdentitySource
		switch {
		case len(agentSerials) > 0:
			identity = agent.StaticIdentity(agentSerials)
		case agentIdentityFile != "":
			identity = agent.FileIdentity{Path: agentIdentityFile}
		case cfg.Agent.IdentityFile != "":
			identity = agent.FileIdentity{Path: cfg.Agent.IdentityFile}
		case len(cfg.Agent.Serials) > 0:
			identity = agent.StaticIdentity(cfg.Agent.Serials)
		default:
			return fmt.Errorf("no identity source: set --serial, --identity-file or agent config")
		}

		out := os.Stdout
		if agentOutput != "" {
			f, err := os.Create(agentOutput)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}

		a := &agent.Agent{
			ArtifactBaseURL:    cfg.Agent.ArtifactBaseURL,
			Identity:           identity,
			Applier:            agent.ScriptApplier{Out: out},
			VRF:                cfg.Agent.MgmtVRF,
			StopOnFirstMatch:   cfg.Agent.StopOnFirstMatchPolicy(),
			InsecureSkipVerify: cfg.Controller.InsecureSkipVerify,
			HTTPClient:         &http.Client{Timeout: cfg.AgentTimeout()},
			Log:                logger,
		}
		_, err = a.Run(ctx)
		if errors.Is(err, agent.ErrNoMatchingTarget) {
			// Expected when this target is not in the current batch.
			return nil
		}
		return err
	},
}

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Serve a stand-in provisioning callback endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		key := cfg.Gateway.HostConfigKey
		if key == "" {
			key = cfg.Controller.HostConfigKey
		}
		if key == "" {
			return fmt.Errorf("gateway requires a host config key")
		}
		srv := &gateway.Server{
			HostConfigKey: key,
			NodeName:      cfg.Gateway.NodeName,
			Launcher:      &gateway.MemoryLauncher{},
			Log:           logger,
		}
		logger.Infof("callback gateway listening on %s", cfg.Gateway.Listen)
		return http.ListenAndServe(cfg.Gateway.Listen, srv.Handler())
	},
}

func init() {
	agentCmd.Flags().StringSliceVar(&agentSerials, "serial", nil, "local serial number, repeatable, stack member order")
	agentCmd.Flags().StringVar(&agentIdentityFile, "identity-file", "", "file with one local serial per line")
	agentCmd.Flags().StringVar(&agentOutput, "output", "", "write the configuration script here instead of stdout")
}

// batch is one snapshot-render-publish pass.
type batch struct {
	builder *inventory.Builder
	shared  artifact.SharedConfig
	dest    string
	log     *logging.Logger
}

func newBuilder(cfg *config.Config, logger *logging.Logger) *inventory.Builder {
	client := inventory.NewClient(cfg.CMDB)
	filter := inventory.Filter{Status: cfg.CMDB.Status, Platform: cfg.CMDB.Platform}
	return inventory.NewBuilder(client, filter, logger)
}

func newBatch(cfg *config.Config, logger *logging.Logger) (*batch, error) {
	sshKey := cfg.Render.SSHKey
	if sshKey == "" && cfg.Render.SSHKeyFile != "" {
		data, err := os.ReadFile(cfg.Render.SSHKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read ssh key: %w", err)
		}
		sshKey = string(data)
	}
	return &batch{
		builder: newBuilder(cfg, logger),
		shared: artifact.SharedConfig{
			ControllerURL: cfg.Controller.BaseURL,
			HostConfigKey: cfg.Controller.HostConfigKey,
			JobTemplateID: cfg.Controller.JobTemplateID,
			Username:      cfg.Render.Username,
			SSHKey:        sshKey,
			ChunkWidth:    cfg.Render.ChunkWidth,
		},
		dest: cfg.Render.Destination,
		log:  logger,
	}, nil
}

// Run performs the batch. Any error aborts before publish so a partial
// artifact set never replaces a good one.
func (b *batch) Run(ctx context.Context) error {
	targets, err := b.builder.Snapshot(ctx)
	if err != nil {
		return err
	}
	set, err := artifact.Render(targets, b.shared)
	if err != nil {
		return err
	}
	if err := artifact.Publish(set, b.dest); err != nil {
		return err
	}
	b.log.Infof("published %d per-target artifacts to %s", len(set.Devices), b.dest)
	return nil
}
