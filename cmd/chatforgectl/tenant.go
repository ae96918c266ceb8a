package main

import (
	"fmt"
	"time"

	"chatforge-backend/internal/model"
	adminsvc "chatforge-backend/internal/service/admin"
	"chatforge-backend/internal/service/gate"

	"github.com/spf13/cobra"
)

func usageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "usage [tenantId]",
		Short: "Show a tenant's plan and message usage for the current cycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, db, err := openDatabase(ctx)
			if err != nil {
				return err
			}

			tenant, err := adminsvc.NewDynamoRepository(db).GetTenant(ctx, args[0])
			if err != nil {
				return fmt.Errorf("load tenant %s: %w", args[0], err)
			}
			printTenant(tenant)
			return nil
		},
	}
}

func planCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Change tenant plans",
	}

	set := &cobra.Command{
		Use:   "set [tenantId] [Free|Pro|Enterprise]",
		Short: "Move a tenant to a plan",
		Long: `Move a tenant to a plan. Free and Pro always use their catalogue
limits; --messages and --chatbots only apply to Enterprise.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			messages, _ := cmd.Flags().GetInt("messages")
			chatbots, _ := cmd.Flags().GetInt("chatbots")

			plan, err := model.ParsePlan(args[1], model.Limits{Messages: messages, Chatbots: chatbots})
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			_, db, err := openDatabase(ctx)
			if err != nil {
				return err
			}

			tenant, err := adminsvc.NewDynamoRepository(db).SetPlan(ctx, args[0], plan)
			if err != nil {
				return fmt.Errorf("set plan for %s: %w", args[0], err)
			}
			printTenant(tenant)
			return nil
		},
	}
	set.Flags().Int("messages", 0, "Monthly message limit (Enterprise only)")
	set.Flags().Int("chatbots", 0, "Chatbot limit (Enterprise only)")

	cmd.AddCommand(set)
	return cmd
}

func banCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ban [tenantId]",
		Short: "Ban a tenant, or lift the ban with --lift",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lift, _ := cmd.Flags().GetBool("lift")

			ctx := cmd.Context()
			_, db, err := openDatabase(ctx)
			if err != nil {
				return err
			}

			tenant, err := adminsvc.NewDynamoRepository(db).SetBanned(ctx, args[0], !lift)
			if err != nil {
				return fmt.Errorf("update %s: %w", args[0], err)
			}
			printTenant(tenant)
			return nil
		},
	}
	cmd.Flags().Bool("lift", false, "Remove an existing ban")
	return cmd
}

func printTenant(tenant model.TenantItem) {
	limits := tenant.CurrentPlan().Limits()

	fmt.Printf("Tenant:    %s\n", tenant.TenantID)
	fmt.Printf("Email:     %s\n", tenant.Email)
	fmt.Printf("Plan:      %s\n", tenant.CurrentPlan())
	fmt.Printf("Banned:    %t\n", tenant.Banned)
	fmt.Printf("Messages:  %d / %d\n", tenant.MessagesSent, limits.Messages)
	fmt.Printf("Chatbots:  limit %d\n", limits.Chatbots)
	if start := gate.CycleStart(tenant); !start.IsZero() {
		fmt.Printf("Cycle:     %s to %s\n", start.Format(time.DateOnly), gate.CycleEnd(tenant).Format(time.DateOnly))
	}
}
