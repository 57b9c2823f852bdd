package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the ztprov configuration file.
type Config struct {
	CMDB       CMDBConfig       `yaml:"cmdb"`
	Controller ControllerConfig `yaml:"controller"`
	Render     RenderConfig     `yaml:"render"`
	Agent      AgentConfig      `yaml:"agent"`
	Gateway    GatewayConfig    `yaml:"gateway"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// CMDBConfig stores CMDB API endpoint and credentials.
type CMDBConfig struct {
	BaseURL  string `yaml:"base_url"`
	Token    string `yaml:"token"`
	Platform string `yaml:"platform"`
	Status   string `yaml:"status"`
}

// ControllerConfig describes the configuration control plane targets call back to.
type ControllerConfig struct {
	BaseURL            string `yaml:"base_url"`
	HostConfigKey      string `yaml:"host_config_key"`
	JobTemplateID      int    `yaml:"job_template_id"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// RenderConfig controls artifact rendering and publication.
type RenderConfig struct {
	Destination string `yaml:"destination"`
	SSHKeyFile  string `yaml:"ssh_key_file"`
	SSHKey      string `yaml:"ssh_key"`
	ChunkWidth  int    `yaml:"chunk_width"`
	Username    string `yaml:"username"`
}

// AgentConfig controls the on-target bootstrap agent.
type AgentConfig struct {
	ArtifactBaseURL  string   `yaml:"artifact_base_url"`
	IdentityFile     string   `yaml:"identity_file"`
	Serials          []string `yaml:"serials"`
	StopOnFirstMatch *bool    `yaml:"stop_on_first_match"`
	MgmtVRF          string   `yaml:"mgmt_vrf"`
	TimeoutSeconds   int      `yaml:"timeout_seconds"`
}

// GatewayConfig configures the callback gateway stub.
type GatewayConfig struct {
	Listen        string `yaml:"listen"`
	HostConfigKey string `yaml:"host_config_key"`
	NodeName      string `yaml:"node_name"`
}

// SchedulerConfig configures the background render scheduler.
type SchedulerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Tick    string `yaml:"tick"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

// Load reads YAML configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.CMDB.Status == "" {
		c.CMDB.Status = "planned"
	}
	if c.Render.ChunkWidth == 0 {
		c.Render.ChunkWidth = 80
	}
	if c.Render.Username == "" {
		c.Render.Username = "admin"
	}
	if c.Agent.TimeoutSeconds == 0 {
		c.Agent.TimeoutSeconds = 30
	}
	if c.Gateway.Listen == "" {
		c.Gateway.Listen = ":8052"
	}
}

// AgentTimeout returns the agent HTTP timeout as a duration.
func (c *Config) AgentTimeout() time.Duration {
	return time.Duration(c.Agent.TimeoutSeconds) * time.Second
}

// StopOnFirstMatchPolicy reports the match policy, defaulting to true when unset.
func (a AgentConfig) StopOnFirstMatchPolicy() bool {
	if a.StopOnFirstMatch == nil {
		return true
	}
	return *a.StopOnFirstMatch
}
