package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFeedCommand(ctx *commandContext) *cobra.Command {
	feedCmd := &cobra.Command{
		Use:   "feed",
		Short: "Manage RSS sources",
	}

	var name string
	addCmd := &cobra.Command{
		Use:   "add <project> <url>",
		Short: "Subscribe a project to a feed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := loadProject(cmd, rt.Projects, args[0]); err != nil {
				return err
			}
			source, err := rt.Feeds.AddSource(cmd.Context(), args[0], name, args[1])
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return printJSON(cmd, source)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added feed %s for %s\n", source.ID, source.ProjectID)
			return nil
		},
	}
	addCmd.Flags().StringVar(&name, "name", "", "Display name for the feed")
	feedCmd.AddCommand(addCmd)

	var projectID string
	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List feed sources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := ctx.ensureRuntime(cmd.Context())
			if err != nil {
				return err
			}
			sources, err := rt.Feeds.ListSources(cmd.Context(), projectID, false)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return printJSON(cmd, sources)
			}
			rows := make([][]string, 0, len(sources))
			for _, s := range sources {
				fetched := "never"
				if !s.LastFetchedAt.IsZero() {
					fetched = s.LastFetchedAt.Local().Format("2006-01-02 15:04")
				}
				rows = append(rows, []string{s.ID, s.ProjectID, s.Name, clipCell(s.URL), yesNo(s.Active), fetched, clipCell(s.LastError)})
			}
			printTable(cmd, "No feeds configured", []string{"ID", "Project", "Name", "URL", "Active", "Fetched", "Error"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft})
			return nil
		},
	}
	listCmd.Flags().StringVarP(&projectID, "project", "p", "", "Filter by project id")
	feedCmd.AddCommand(listCmd)

	var limit int
	itemsCmd := &cobra.Command{
		Use:   "items <project>",
		Short: "Show recently fetched feed entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime(cmd.Context())
			if err != nil {
				return err
			}
			items, err := rt.Feeds.ListItems(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return printJSON(cmd, items)
			}
			rows := make([][]string, 0, len(items))
			for _, item := range items {
				published := ""
				if !item.PublishedAt.IsZero() {
					published = item.PublishedAt.Local().Format("2006-01-02")
				}
				rows = append(rows, []string{published, clipCell(item.Title), clipCell(item.Link)})
			}
			printTable(cmd, "No feed entries", []string{"Published", "Title", "Link"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft})
			return nil
		},
	}
	itemsCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries")
	feedCmd.AddCommand(itemsCmd)

	return feedCmd
}
