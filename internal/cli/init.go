package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/sqlbridge/internal/paths"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configuration and the database file",
		Long: "Create the configuration directory with a default config.yaml if missing,\n" +
			"then open the database once through the bridge so the file exists.",
		Args: cobra.NoArgs,
		RunE: runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer func() { _ = e.log.Sync() }()

	if err := os.MkdirAll(e.configDir, 0o755); err != nil {
		return sysError(fmt.Errorf("create config directory: %w", err))
	}

	configPath := filepath.Join(e.configDir, configFileExt)
	// Only a database named by flag is recorded in a new config.yaml.
	var recorded string
	if flags.dbPath != "" {
		recorded = e.dbPath
	}
	created, err := writeConfigIfMissing(configPath, recorded)
	if err != nil {
		return sysError(fmt.Errorf("write config: %w", err))
	}

	if !paths.IsSpecialName(e.dbPath) {
		if err := os.MkdirAll(filepath.Dir(e.dbPath), 0o755); err != nil {
			return sysError(fmt.Errorf("create database directory: %w", err))
		}
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, e)
	if err != nil {
		return err
	}
	if err := s.close(ctx); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if created {
		fmt.Fprintf(out, "Wrote %s\n", configPath)
	}
	fmt.Fprintf(out, "Database ready: %s\n", e.dbPath)
	return nil
}
