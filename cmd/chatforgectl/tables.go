package main

import (
	"fmt"

	"chatforge-backend/internal/database"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/spf13/cobra"
)

func tablesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Manage the DynamoDB tables",
	}
	cmd.AddCommand(tablesCreateCmd())
	cmd.AddCommand(tablesListCmd())
	return cmd
}

func tablesCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create every table and index that does not exist yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, db, err := openDatabase(ctx)
			if err != nil {
				return err
			}

			for _, spec := range database.Schema() {
				name := db.Table(spec.Name)
				created, err := db.Client.CreateTable(ctx, name, spec)
				if err != nil {
					return fmt.Errorf("create %s: %w", name, err)
				}
				if created {
					fmt.Printf("  %-28s created\n", name)
				} else {
					fmt.Printf("  %-28s exists\n", name)
				}
			}
			return nil
		},
	}
}

func tablesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tables with their status and approximate item count",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, db, err := openDatabase(ctx)
			if err != nil {
				return err
			}

			names, err := db.Client.ListTables(ctx)
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Println("(no tables)")
				return nil
			}
			for _, name := range names {
				desc, err := db.Client.DescribeTable(ctx, name)
				if err != nil {
					return fmt.Errorf("describe %s: %w", name, err)
				}
				fmt.Printf("  %-28s %-10s %d items\n", name, desc.TableStatus, aws.ToInt64(desc.ItemCount))
			}
			return nil
		},
	}
}
