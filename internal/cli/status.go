package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show account summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			format := getOutputFormat()
			if format != "table" {
				summary := map[string]interface{}{}
				if ent, err := apiClient.GetEntitlement(ctx); err == nil {
					summary["entitlement"] = ent
				}
				if trial, err := apiClient.GetTrialStatus(ctx); err == nil {
					summary["trial"] = trial
				}
				return printOutput(summary)
			}

			fmt.Println("VenuePulse Account")
			fmt.Println(strings.Repeat("=", 40))

			if user, err := apiClient.GetCurrentUser(ctx); err != nil {
				fmt.Printf("  User:        (error: %v)\n", err)
			} else {
				fmt.Printf("  User:        %s (%s)\n", user.Email, user.Role)
			}

			if ent, err := apiClient.GetEntitlement(ctx); err != nil {
				fmt.Printf("  Access:      (error: %v)\n", err)
			} else {
				fmt.Printf("  Access:      %s (%s)\n", formatAllowed(ent.Allowed), ent.Reason)
			}

			if trial, err := apiClient.GetTrialStatus(ctx); err == nil && trial.Status == "active" {
				fmt.Printf("  Trial:       %d days remaining\n", trial.DaysRemaining)
			}

			return nil
		},
	}
}
