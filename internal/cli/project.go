package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func ok() string { return color.New(color.FgGreen).Sprint("✓") }

func parseID(raw, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q", what, raw)
	}
	return id, nil
}

func ProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Inspect and delete projects",
	}
	cmd.AddCommand(projectListCmd(), projectDeleteCmd())
	return cmd
}

func projectListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a freelancer's projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rawOwner, _ := cmd.Flags().GetString("owner")
			if rawOwner == "" {
				return fmt.Errorf("--owner flag is required")
			}
			ownerID, err := parseID(rawOwner, "owner")
			if err != nil {
				return err
			}

			projects, err := envFrom(cmd).Tracker.ListProjects(cmd.Context(), ownerID)
			if err != nil {
				return fmt.Errorf("failed to list projects: %w", err)
			}
			if len(projects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No projects found.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tCLIENT\tTOKEN")
			fmt.Fprintln(w, "--\t-----\t------\t-----")
			for _, p := range projects {
				token := color.New(color.FgGreen).Sprint("active")
				if !p.AccessToken.Valid {
					token = color.New(color.FgYellow).Sprint("revoked")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Title, p.ClientName.String, token)
			}
			return w.Flush()
		},
	}
	cmd.Flags().String("owner", "", "Owner user id")
	return cmd
}

func projectDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [project-id]",
		Short: "Delete a project with its orders and files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			if err := envFrom(cmd).Tracker.DeleteProject(cmd.Context(), id); err != nil {
				return fmt.Errorf("failed to delete project: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted project %s\n", ok(), id)
			return nil
		},
	}
}
