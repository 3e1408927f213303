package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/hookspec/packages/core/config"
	"github.com/spf13/cobra"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new hookspec project",
	Long: `Initialize a new hookspec project in the current directory.

This creates:
  - hookspec.yaml          - Configuration file with environments
  - suites/example.yaml    - Example suite using hooks and templates

Examples:
  hookspec init
  hookspec init --force`,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
}

const exampleSuite = `config:
  name: example
  base_url: ${env.BASE_URL}
  variables:
    run_id: ${short_uid(6)}
  setup_hooks:
    - ${suite_setup()}
  teardown_hooks:
    - ${suite_teardown()}

cases:
  - config:
      name: health check
      tags: [smoke]
    steps:
      - name: get health
        request:
          method: GET
          path: /health
        teardown_hooks:
          - ${teardown_hook_validate_status($response)}
        validate:
          - eq: [status_code, 200]

  - config:
      name: signed resource
      tags: [crud]
      fail_fast: true
    steps:
      - name: create resource
        setup_hooks:
          - ${setup_hook_sign_request($request)}
        request:
          method: POST
          path: /resources
          headers:
            X-Request-Id: ${uid()}
          body:
            name: resource-${run_id}
        extract:
          resource_id: $.id
        validate:
          - eq: [status_code, 201]
          - exists: [$.id]
      - name: get resource
        request:
          method: GET
          path: /resources/${resource_id}
        validate:
          - eq: [status_code, 200]
          - eq: [$.name, resource-${run_id}]
`

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	configFile := filepath.Join(cwd, "hookspec.yaml")
	exampleFile := filepath.Join(cwd, "suites", "example.yaml")

	if !forceInit {
		for _, f := range []string{configFile, exampleFile} {
			if _, err := os.Stat(f); err == nil {
				return fmt.Errorf("file already exists: %s (use --force to overwrite)", f)
			}
		}
	}

	cfg := config.DefaultConfig()
	cfg.DefaultEnvironment = "dev"
	cfg.Headers = map[string]string{
		"User-Agent": "hookspec/" + version,
	}
	cfg.Environments = map[string]map[string]any{
		"dev": {
			"BASE_URL":   "http://localhost:3000",
			"APP_SECRET": "dev-secret",
		},
		"staging": {
			"BASE_URL": "https://staging.api.example.com",
		},
	}

	if err := cfg.SaveConfig(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	if err := os.MkdirAll(filepath.Dir(exampleFile), 0755); err != nil {
		return fmt.Errorf("failed to create suites directory: %w", err)
	}
	if err := os.WriteFile(exampleFile, []byte(exampleSuite), 0644); err != nil {
		return fmt.Errorf("failed to create example suite: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", exampleFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\nhookspec project initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'hookspec run suites/' to execute the example suite.\n")

	return nil
}
