package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/panbanda/codeforge/pkg/config"
	"github.com/urfave/cli/v2"
)

func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Initialize a new codeforge configuration file",
		Description: `Creates a codeforge.toml configuration file in the current directory
with the default settings. Use --file to choose another location.

Examples:
  codeforge init                               # Creates codeforge.toml
  codeforge init --file .codeforge/codeforge.toml
  codeforge init --force                       # Overwrite existing config file`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "file",
				Value: "codeforge.toml",
				Usage: "Config file to create",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite existing config file",
			},
		},
		Action: runInitCmd,
	}
}

func runInitCmd(c *cli.Context) error {
	outputPath := c.String("file")

	if _, err := os.Stat(outputPath); err == nil && !c.Bool("force") {
		return fmt.Errorf("config file %q already exists (use --force to overwrite)", outputPath)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", dir, err)
		}
	}

	content, err := generateDefaultConfig()
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	say(c, color.FgGreen, "Created %s", outputPath)
	fmt.Fprintln(c.App.ErrWriter, "Edit this file to customize analysis settings.")
	return nil
}

func generateDefaultConfig() (string, error) {
	content, err := config.DefaultConfig().TOML()
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	buf.WriteString("# codeforge configuration\n")
	buf.WriteString("# Environment overrides: CODEFORGE_<SECTION>__<KEY>, e.g. CODEFORGE_GATES__MAX_CYCLOMATIC=15\n\n")
	buf.Write(content)
	return buf.String(), nil
}

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Subcommands: []*cli.Command{
			{
				Name:  "validate",
				Usage: "Validate a configuration file",
				Description: `Validates a codeforge configuration file for syntax errors, schema
violations and inconsistent values.

Examples:
  codeforge config validate                      # Validates default config locations
  codeforge -c codeforge.toml config validate    # Validates specific file`,
				Action: runConfigValidateCmd,
			},
			{
				Name:  "show",
				Usage: "Show the effective configuration",
				Description: `Shows the merged configuration from defaults, config file and
CODEFORGE_ environment overrides.`,
				Action: runConfigShowCmd,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON Schema config files are validated against",
				Action: runConfigSchemaCmd,
			},
		},
	}
}

func loadConfig(c *cli.Context) (*config.LoadResult, error) {
	var opts []config.LoadOption
	if path := c.String("config"); path != "" {
		opts = append(opts, config.WithPath(path))
	}
	return config.LoadConfig(opts...)
}

func runConfigValidateCmd(c *cli.Context) error {
	result, err := loadConfig(c)
	if err != nil {
		say(c, color.FgRed, "Configuration validation failed:")
		fmt.Fprintf(c.App.ErrWriter, "  - %s\n", err)
		return cli.Exit("", 1)
	}

	if result.Source != "" {
		say(c, color.FgGreen, "Configuration valid: %s", result.Source)
	} else {
		say(c, color.FgYellow, "No config file found. Default configuration is valid.")
	}
	return nil
}

func runConfigShowCmd(c *cli.Context) error {
	result, err := loadConfig(c)
	if err != nil {
		return err
	}

	w := c.App.Writer
	if result.Source != "" {
		fmt.Fprintf(w, "# Configuration from: %s\n\n", result.Source)
	} else {
		fmt.Fprintln(w, "# Default configuration (no config file found)")
	}

	content, err := result.Config.TOML()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = w.Write(content)
	return err
}

func runConfigSchemaCmd(c *cli.Context) error {
	_, err := c.App.Writer.Write(config.Schema())
	return err
}
