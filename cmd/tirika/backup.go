package main

import (
	"github.com/spf13/cobra"

	"github.com/ahiokk/tirika-import/internal/cli"
)

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Создать резервную копию базы",
		RunE:  runBackup,
	}
	cmd.Flags().String("dir", "", "папка для копии (по умолчанию import_backups рядом с базой)")
	return cmd
}

func runBackup(cmd *cobra.Command, _ []string) error {
	settings := loadSettings()

	store, err := openStore(settings)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	dir, _ := cmd.Flags().GetString("dir")
	path, err := store.CreateBackup(dir)
	if err != nil {
		return err
	}
	cmd.Println(cli.FormatSuccess("Backup создан: " + path))
	return nil
}
