package main

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rsclarke/dxrelay/internal/auth"
	"github.com/rsclarke/dxrelay/internal/config"
	"github.com/rsclarke/dxrelay/internal/db"
	"github.com/spf13/cobra"
)

var apikeyFlags struct {
	dbPath string
	label  string
}

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage API keys in the local database",
}

var apikeyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new API key",
	Args:  cobra.NoArgs,
	RunE:  runAPIKeyCreate,
}

var apikeyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List API keys",
	Args:  cobra.NoArgs,
	RunE:  runAPIKeyList,
}

var apikeyRevokeCmd = &cobra.Command{
	Use:   "revoke <prefix>",
	Short: "Revoke an API key by its prefix",
	Args:  cobra.ExactArgs(1),
	RunE:  runAPIKeyRevoke,
}

func init() {
	rootCmd.AddCommand(apikeyCmd)
	apikeyCmd.AddCommand(apikeyCreateCmd, apikeyListCmd, apikeyRevokeCmd)

	apikeyCmd.PersistentFlags().StringVar(&apikeyFlags.dbPath, "db", "", "database path (overrides db.path)")
	apikeyCreateCmd.Flags().StringVar(&apikeyFlags.label, "label", "", "optional label for the key")
}

func openKeyDB(cmd *cobra.Command) (*sql.DB, error) {
	path := apikeyFlags.dbPath
	if !cmd.Flags().Changed("db") {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		path = cfg.DB.Path
	}
	return db.Open(path)
}

func runAPIKeyCreate(cmd *cobra.Command, args []string) error {
	database, err := openKeyDB(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	key, err := auth.Generate()
	if err != nil {
		return fmt.Errorf("generate API key: %w", err)
	}
	if _, err := db.CreateAPIKey(database, key.Prefix, key.Hash, apikeyFlags.label); err != nil {
		return fmt.Errorf("create API key: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), key.Display)
	return nil
}

func runAPIKeyList(cmd *cobra.Command, args []string) error {
	database, err := openKeyDB(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	keys, err := db.ListAPIKeys(database)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Println("No API keys found.")
		return nil
	}

	fmt.Printf("%-12s  %-12s  %-19s  %s\n", "PREFIX", "LABEL", "CREATED", "STATUS")
	for _, k := range keys {
		label := "-"
		if k.Label != nil {
			label = *k.Label
		}
		status := "active"
		if k.RevokedAt != nil {
			status = "revoked"
		}
		created := time.Unix(k.CreatedAt, 0).UTC().Format("2006-01-02 15:04:05")
		fmt.Printf("%-12s  %-12s  %-19s  %s\n", k.Prefix, label, created, status)
	}
	return nil
}

func runAPIKeyRevoke(cmd *cobra.Command, args []string) error {
	database, err := openKeyDB(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	ok, err := db.RevokeAPIKey(database, args[0])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no active API key with prefix %q", args[0])
	}
	fmt.Printf("Revoked %s\n", args[0])
	return nil
}
