package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/colthorp/likes-cli-go/internal/api"
	"github.com/colthorp/likes-cli-go/internal/cache"
	"github.com/colthorp/likes-cli-go/internal/core"
	"github.com/colthorp/likes-cli-go/internal/mcpserver"
	"github.com/colthorp/likes-cli-go/internal/output"
)

const dateFlagHelp = "(YYYY-MM-DD, M/D, or d-7, w-2, m-3, y-1)"

func newActivitiesCmd(flags *globalFlags) *cobra.Command {
	var (
		start, end, period string
		limit              int
		allTypes           bool
	)
	cmd := &cobra.Command{
		Use:   "activities",
		Short: "查看活动记录 / View training activities",
		Args:  cobra.NoArgs,
		RunE: run(flags, true, func(cmd *cobra.Command, e *env, _ []string) error {
			s, en, err := core.ResolveRange(start, end, period, time.Now())
			if err != nil {
				return err
			}
			page, err := e.cache.FetchActivities(cmd.Context(), cache.Query{Start: s, End: en, NoCache: flags.noCache})
			if err != nil {
				return err
			}

			list := page.List
			if !allTypes {
				list = api.FilterRuns(list)
			}
			if limit > 0 && len(list) > limit {
				list = list[:limit]
			}
			page = &api.ActivityPage{Total: len(list), List: list}

			if flags.json {
				return output.PrintJSON(cmd.OutOrStdout(), page)
			}
			output.Activities(cmd.OutOrStdout(), page)
			return nil
		}),
	}
	cmd.Flags().StringVar(&start, "start", "", "Start date "+dateFlagHelp)
	cmd.Flags().StringVar(&end, "end", "", "End date "+dateFlagHelp)
	cmd.Flags().StringVar(&period, "period", "", "Named period: today, yesterday, this-week, last-week, this-month, last-month, this-quarter, last-quarter")
	cmd.Flags().IntVar(&limit, "limit", 10, "Max results")
	cmd.Flags().BoolVar(&allTypes, "all-types", false, "Include non-running activities (default: running only)")
	return cmd
}

func newPlansCmd(flags *globalFlags) *cobra.Command {
	var (
		start  string
		gameID int
	)
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "查看训练计划 / View training plans",
		Args:  cobra.NoArgs,
		RunE: run(flags, true, func(cmd *cobra.Command, e *env, _ []string) error {
			s, err := core.NormalizeDateSpec(start, time.Now())
			if err != nil {
				return err
			}
			q := cache.PlanQuery{Start: s, NoCache: flags.noCache}
			if cmd.Flags().Changed("game-id") {
				q.GameID = &gameID
			}
			page, err := e.cache.FetchPlans(cmd.Context(), q)
			if err != nil {
				return err
			}
			if flags.json {
				return output.PrintJSON(cmd.OutOrStdout(), page)
			}
			output.Plans(cmd.OutOrStdout(), page)
			return nil
		}),
	}
	cmd.Flags().StringVar(&start, "start", "", "Start date "+dateFlagHelp)
	cmd.Flags().IntVar(&gameID, "game-id", 0, "Filter by game/plan ID")
	return cmd
}

func newFeedbackCmd(flags *globalFlags) *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "查看训练反馈 / View training feedback (read-only)",
		Args:  cobra.NoArgs,
		RunE: run(flags, true, func(cmd *cobra.Command, e *env, _ []string) error {
			s, en, err := core.ResolveRange(start, end, "", time.Now())
			if err != nil {
				return err
			}
			page, err := e.cache.FetchFeedback(cmd.Context(), cache.Query{Start: s, End: en, NoCache: flags.noCache})
			if err != nil {
				return err
			}
			if flags.json {
				return output.PrintJSON(cmd.OutOrStdout(), page)
			}
			output.Feedback(cmd.OutOrStdout(), page)
			return nil
		}),
	}
	cmd.Flags().StringVar(&start, "start", "", "Start date "+dateFlagHelp)
	cmd.Flags().StringVar(&end, "end", "", "End date "+dateFlagHelp)
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func newPushCmd(flags *globalFlags) *cobra.Command {
	var (
		plan           api.PlanPush
		sports, gameID int
	)
	cmd := &cobra.Command{
		Use:   "push",
		Short: "推送训练计划 / Push a workout plan to calendar",
		Args:  cobra.NoArgs,
		RunE: run(flags, true, func(cmd *cobra.Command, e *env, _ []string) error {
			start, err := core.NormalizeDateSpec(plan.Start, time.Now())
			if err != nil {
				return err
			}
			p := plan
			p.Start = start
			if cmd.Flags().Changed("sports") {
				p.Sports = &sports
			}
			if cmd.Flags().Changed("game-id") {
				p.GameID = &gameID
			}

			result, err := e.api.PushPlans(cmd.Context(), []api.PlanPush{p})
			if err != nil {
				return err
			}
			if flags.json {
				return output.PrintJSON(cmd.OutOrStdout(), result)
			}
			output.PushResult(cmd.OutOrStdout(), result)
			return nil
		}),
	}
	cmd.Flags().StringVar(&plan.Title, "title", "", fmt.Sprintf("Plan title (max %d chars)", core.MaxPlanTitleLen))
	cmd.Flags().StringVar(&plan.Start, "start", "", "Date "+dateFlagHelp)
	cmd.Flags().StringVar(&plan.Name, "name", "", "Workout code")
	cmd.Flags().StringVar(&plan.Weight, "weight", "", "Intensity: q1=high q2=mid q3=low xuanxiu=recovery")
	cmd.Flags().StringVar(&plan.Type, "type", "", "Workout type: e, t, i, r, lsd, m, ft, com, etc.")
	cmd.Flags().IntVar(&sports, "sports", 0, "1=run 2=bike 3=strength 5=swim 254=other")
	cmd.Flags().StringVar(&plan.Description, "description", "", "Notes/description")
	cmd.Flags().IntVar(&gameID, "game-id", 0, "Game/plan ID")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newCacheCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage local cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		Args:  cobra.NoArgs,
		RunE: run(flags, false, func(cmd *cobra.Command, e *env, _ []string) error {
			stats, err := e.cache.Stats()
			if err != nil {
				return err
			}
			if flags.json {
				return output.PrintJSON(cmd.OutOrStdout(), stats)
			}
			output.CacheStats(cmd.OutOrStdout(), stats)
			return nil
		}),
	}

	var before string
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cache",
		Args:  cobra.NoArgs,
		RunE: run(flags, false, func(cmd *cobra.Command, e *env, _ []string) error {
			cutoff, err := core.NormalizeDateSpec(before, time.Now())
			if err != nil {
				return err
			}
			removed, err := e.cache.Clear(cutoff)
			if err != nil {
				return err
			}
			if cutoff != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cache records before %s\n", removed, cutoff)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared (%d records)\n", removed)
			}
			return nil
		}),
	}
	clearCmd.Flags().StringVar(&before, "before", "", "Only clear records before this date "+dateFlagHelp)

	cmd.AddCommand(statsCmd, clearCmd)
	return cmd
}

func newBackfillCmd(flags *globalFlags) *cobra.Command {
	var (
		endpoint string
		months   int
	)
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Backfill cache from API history",
		Args:  cobra.NoArgs,
		RunE: run(flags, true, func(cmd *cobra.Command, e *env, _ []string) error {
			kind, err := cache.ParseKind(endpoint)
			if err != nil {
				return err
			}
			if months < 0 {
				return fmt.Errorf("--months must be positive, got %d", months)
			}
			if months > 0 {
				e.progress("Backfilling %s (%d months)", kind, months)
			} else {
				e.progress("Backfilling %s (auto-stop after %d empty chunks)", kind, core.BackfillEmptyStop)
			}

			started := time.Now()
			report, err := e.cache.Backfill(cmd.Context(), kind, cache.BackfillOptions{
				Months: months,
				Progress: func(c cache.ChunkReport) {
					if !flags.quiet && !flags.json {
						output.BackfillChunk(cmd.ErrOrStderr(), c)
					}
				},
			})
			if err != nil {
				return err
			}
			if flags.json {
				return output.PrintJSON(cmd.OutOrStdout(), report)
			}
			output.BackfillReport(cmd.OutOrStdout(), report, time.Since(started))
			return nil
		}),
	}
	cmd.Flags().StringVar(&endpoint, "endpoint", string(cache.KindActivities), "Endpoint to backfill: activities, feedback, plans")
	cmd.Flags().IntVar(&months, "months", 0, "Months to backfill (default: auto-stop after empty chunks)")
	return cmd
}

func newMCPCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI integration",
		Args:  cobra.NoArgs,
		RunE: run(flags, true, func(cmd *cobra.Command, e *env, _ []string) error {
			e.logger.Info("starting MCP server on stdio")
			return mcpserver.New(e.cache, nil).ServeStdio()
		}),
	}
}
