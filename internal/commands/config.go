package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var showConfigCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runShowConfig,
}

var initConfigCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	RunE:  runInitConfig,
}

var initConfigPath string

func init() {
	initConfigCmd.Flags().StringVarP(&initConfigPath, "output", "o", "config.yaml", "file to write")

	configCmd.AddCommand(showConfigCmd)
	configCmd.AddCommand(initConfigCmd)
}

func runShowConfig(cmd *cobra.Command, args []string) error {
	shown := *cfg
	if shown.Security.JWTSecret != "" {
		shown.Security.JWTSecret = "********"
	}

	data, err := yaml.Marshal(&shown)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

const defaultConfig = `# FireEdge Configuration

server:
  host: 0.0.0.0
  port: 2616
  read_timeout: 30s
  write_timeout: 30s
  shutdown_timeout: 10s
  debug: false

opennebula:
  rpc: http://localhost:2633/RPC2
  zeromq: tcp://localhost:2101
  zeromq_port: 2101
  timeout: 30s
  default_zone: "0"
  zone_cache_size: 32
  zone_cache_ttl: 5m
  oneflow: http://localhost:2474
  # zones:
  #   - id: "100"
  #     name: edge
  #     rpc: http://edge:2633/RPC2
  #     zeromq: tcp://edge:2101

hooks:
  enabled: true
  send_buffer: 256

logging:
  level: info
  format: json
  output: stdout

security:
  rate_limit: 100
  jwt_secret: change-me
  jwt_expiration: 3h
  jwt_max_expiration: 720h
  allowed_origins:
    - "*"
`

func runInitConfig(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(initConfigPath); err == nil {
		return fmt.Errorf("%s already exists", initConfigPath)
	}

	if err := os.WriteFile(initConfigPath, []byte(defaultConfig), 0o600); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %s\n", initConfigPath)
	return nil
}
