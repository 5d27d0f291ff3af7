package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/viadorer/orchestrator-sub001/internal/content"
	"github.com/viadorer/orchestrator-sub001/internal/services"
)

func newContentCommand(ctx *commandContext) *cobra.Command {
	contentCmd := &cobra.Command{
		Use:   "content",
		Short: "Review generated content",
	}
	contentCmd.AddCommand(newContentAddCommand(ctx))
	contentCmd.AddCommand(newContentListCommand(ctx))
	contentCmd.AddCommand(newContentShowCommand(ctx))
	contentCmd.AddCommand(newContentReviewCommand(ctx, "approve", content.StatusApproved))
	contentCmd.AddCommand(newContentReviewCommand(ctx, "reject", content.StatusRejected))
	return contentCmd
}

func newContentAddCommand(ctx *commandContext) *cobra.Command {
	var (
		input    content.NewItem
		hashtags []string
		approved bool
	)
	cmd := &cobra.Command{
		Use:   "add <project>",
		Short: "Add a hand-written post to the review queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime(cmd.Context())
			if err != nil {
				return err
			}
			project, err := loadProject(cmd, rt.Projects, args[0])
			if err != nil {
				return err
			}
			if strings.TrimSpace(input.Body) == "" {
				return fmt.Errorf("%w: --body is required", services.ErrValidation)
			}
			input.ProjectID = project.ID
			input.Hashtags = hashtags
			if input.Platform == "" {
				input.Platform = project.Config.PrimaryPlatform()
			}
			input.Status = content.StatusReview
			if approved {
				input.Status = content.StatusApproved
			}
			item, err := rt.Content.CreateItem(cmd.Context(), input)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return printJSON(cmd, item)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added content %s (%s, %s)\n", item.ID, item.Platform, item.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&input.Body, "body", "", "Post text")
	cmd.Flags().StringVar(&input.Platform, "platform", "", "Target platform (defaults to the project's first platform)")
	cmd.Flags().StringVar(&input.Topic, "topic", "", "Topic label")
	cmd.Flags().StringVar(&input.MediaURL, "media", "", "Media URL to attach")
	cmd.Flags().StringSliceVar(&hashtags, "hashtag", nil, "Hashtag (repeatable)")
	cmd.Flags().BoolVar(&approved, "approved", false, "Skip review; the next auto-publish sweep may post it")
	return cmd
}

func newContentListCommand(ctx *commandContext) *cobra.Command {
	var (
		projectID string
		status    string
		limit     int
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List content items, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := ctx.ensureRuntime(cmd.Context())
			if err != nil {
				return err
			}
			filter := content.ItemFilter{ProjectID: projectID, Limit: limit}
			if status != "" {
				parsed, ok := content.ParseStatus(status)
				if !ok {
					return fmt.Errorf("%w: unknown content status %q", services.ErrValidation, status)
				}
				filter.Status = parsed
			}
			items, err := rt.Content.ListItems(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return printJSON(cmd, items)
			}
			rows := make([][]string, 0, len(items))
			for _, item := range items {
				rows = append(rows, []string{
					item.ID,
					item.ProjectID,
					item.Platform,
					string(item.Status),
					fmt.Sprintf("%.1f", item.Score),
					clipCell(firstLine(item.Body)),
				})
			}
			printTable(cmd, "No content found", []string{"ID", "Project", "Platform", "Status", "Score", "Body"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft})
			return nil
		},
	}
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Filter by project id")
	cmd.Flags().StringVarP(&status, "status", "s", "", "Filter by status (review, approved, rejected, published, publish_failed)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of items")
	return cmd
}

func newContentShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one content item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime(cmd.Context())
			if err != nil {
				return err
			}
			item, err := rt.Content.GetItem(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if item == nil {
				return fmt.Errorf("%w: content item %s", services.ErrNotFound, args[0])
			}
			if ctx.jsonOutput() {
				return printJSON(cmd, item)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Content "+item.ID, colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("Status", contentStatusKind(item.Status), item.PublishError, colorize))
			for _, f := range [][2]string{
				{"Project", item.ProjectID},
				{"Platform", item.Platform},
				{"Topic", item.Topic},
				{"Score", fmt.Sprintf("%.1f", item.Score)},
				{"Hashtags", strings.Join(item.Hashtags, " ")},
				{"Media", item.MediaURL},
				{"Duplicate of", item.DuplicateOf},
				{"External id", item.ExternalID},
			} {
				if f[1] == "" {
					continue
				}
				fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, f[0]+":", f[1])
			}
			if item.Engagement != nil {
				e := item.Engagement
				fmt.Fprintf(out, "%s%-*s %d impressions, %d likes, %d comments, %d shares, %d clicks\n",
					statusIndent, statusLabelWidth, "Engagement:", e.Impressions, e.Likes, e.Comments, e.Shares, e.Clicks)
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, item.Body)
			return nil
		},
	}
}

func newContentReviewCommand(ctx *commandContext, use string, to content.Status) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: humanize(use) + " an item awaiting review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime(cmd.Context())
			if err != nil {
				return err
			}
			if err := rt.Content.SetStatus(cmd.Context(), args[0], content.StatusReview, to); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Content %s is now %s\n", args[0], to)
			return nil
		},
	}
}

func contentStatusKind(status content.Status) statusKind {
	switch status {
	case content.StatusPublished, content.StatusApproved:
		return statusOK
	case content.StatusPublishFailed:
		return statusError
	case content.StatusRejected:
		return statusWarn
	default:
		return statusInfo
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func newMediaCommand(ctx *commandContext) *cobra.Command {
	mediaCmd := &cobra.Command{
		Use:   "media",
		Short: "Manage media assets for vision tagging",
	}
	mediaCmd.AddCommand(&cobra.Command{
		Use:   "add <project> <url>",
		Short: "Register a media asset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := loadProject(cmd, rt.Projects, args[0]); err != nil {
				return err
			}
			asset, err := rt.Content.AddMedia(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return printJSON(cmd, asset)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added media %s; the next cycle tags it\n", asset.ID)
			return nil
		},
	})

	var limit int
	listCmd := &cobra.Command{
		Use:   "list <project>",
		Short: "List a project's media assets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime(cmd.Context())
			if err != nil {
				return err
			}
			assets, err := rt.Content.ListMedia(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return printJSON(cmd, assets)
			}
			rows := make([][]string, 0, len(assets))
			for _, a := range assets {
				state := "pending"
				switch {
				case a.ErrorMessage != "":
					state = "failed"
				case a.Processed:
					state = "tagged"
				}
				rows = append(rows, []string{a.ID, clipCell(a.URL), state, strings.Join(a.Tags, ", ")})
			}
			printTable(cmd, "No media assets", []string{"ID", "URL", "State", "Tags"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft})
			return nil
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of assets")
	mediaCmd.AddCommand(listCmd)
	return mediaCmd
}
