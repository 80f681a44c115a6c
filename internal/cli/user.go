package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"freelance-tracker/internal/models"
)

func UserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(userCreateCmd(), userListCmd())
	return cmd
}

func userCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create [email]",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			role, _ := cmd.Flags().GetString("role")
			role = strings.ToUpper(role)
			if role != models.RoleFreelancer && role != models.RoleClient {
				return fmt.Errorf("--role must be %q or %q", models.RoleFreelancer, models.RoleClient)
			}

			u, err := envFrom(cmd).Store.CreateUser(cmd.Context(), args[0], name, role)
			if err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s Created user %s\n", ok(), u.ID)
			fmt.Fprintf(out, "  Email: %s\n", u.Email)
			fmt.Fprintf(out, "  Role: %s\n", u.Role)
			return nil
		},
	}
	cmd.Flags().String("name", "", "Display name")
	cmd.Flags().String("role", models.RoleFreelancer, "FREELANCER or CLIENT")
	return cmd
}

func userListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := envFrom(cmd).Store.ListUsers(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list users: %w", err)
			}
			if len(users) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No users found.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEMAIL\tNAME\tROLE")
			fmt.Fprintln(w, "--\t-----\t----\t----")
			for _, u := range users {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.Email, u.Name, u.Role)
			}
			return w.Flush()
		},
	}
}
