package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newEntitlementCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "entitlement",
		Aliases: []string{"ent"},
		Short:   "Entitlement commands",
	}

	cmd.AddCommand(newEntitlementShowCmd())
	cmd.AddCommand(newEntitlementTrialCmd())

	return cmd
}

func newEntitlementShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "show",
		Aliases: []string{"check"},
		Short:   "Show the current access decision",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			ent, err := apiClient.GetEntitlement(ctx)
			if err != nil {
				return fmt.Errorf("failed to get entitlement: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(ent)
			}

			fmt.Printf("Access:    %s\n", formatAllowed(ent.Allowed))
			fmt.Printf("Reason:    %s\n", ent.Reason)
			fmt.Printf("Evaluated: %s\n", ent.EvaluatedAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}
}

func newEntitlementTrialCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trial",
		Short: "Show the trial countdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			status, err := apiClient.GetTrialStatus(ctx)
			if err != nil {
				return fmt.Errorf("failed to get trial status: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(status)
			}

			fmt.Printf("Status:         %s\n", status.Status)
			fmt.Printf("Days remaining: %d\n", status.DaysRemaining)
			if status.EndsAt != nil {
				fmt.Printf("Ends at:        %s\n", status.EndsAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func newImpersonateCmd() *cobra.Command {
	var clear bool

	cmd := &cobra.Command{
		Use:   "impersonate [account-id]",
		Short: "Mint an impersonation grant (admin only)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if clear {
				viper.Set("auth.grant", "")
				if err := writeConfig(); err != nil {
					return err
				}
				fmt.Println("Impersonation grant cleared")
				return nil
			}

			if len(args) != 1 {
				return fmt.Errorf("account id required")
			}
			accountID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid account id: %s", args[0])
			}

			ctx := context.Background()
			grant, err := apiClient.Impersonate(ctx, accountID)
			if err != nil {
				return fmt.Errorf("impersonation failed: %w", err)
			}

			viper.Set("auth.grant", grant.Grant)
			if err := writeConfig(); err != nil {
				return fmt.Errorf("failed to save grant: %w", err)
			}

			fmt.Printf("Impersonating account %d until %s\n",
				grant.AccountID, grant.ExpiresAt.Format("15:04:05"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&clear, "clear", false, "drop the stored grant")

	return cmd
}
