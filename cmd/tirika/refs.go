package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ahiokk/tirika-import/internal/cli"
	"github.com/ahiokk/tirika-import/internal/model"
	"github.com/ahiokk/tirika-import/internal/storage"
)

func refsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refs",
		Short: "Справочники базы Tirika",
	}
	cmd.AddCommand(
		refsListCmd("suppliers", "Список поставщиков", "Поставщики",
			func(ctx context.Context, s *storage.Store) ([]model.Reference, error) { return s.ListSuppliers(ctx) }),
		refsListCmd("users", "Список пользователей", "Пользователи",
			func(ctx context.Context, s *storage.Store) ([]model.Reference, error) { return s.ListUsers(ctx) }),
		refsListCmd("shops", "Список складов", "Склады",
			func(ctx context.Context, s *storage.Store) ([]model.Reference, error) { return s.ListShops(ctx) }),
	)
	return cmd
}

func refsListCmd(use, short, title string, list func(context.Context, *storage.Store) ([]model.Reference, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings := loadSettings()
			store, err := openStore(settings)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			refs, err := list(cmd.Context(), store)
			if err != nil {
				return err
			}
			cmd.Println(cli.RenderReferences(title, refs))
			return nil
		},
	}
}
