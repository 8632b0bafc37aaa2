// Sparkctl is a command-line client for a sparkd server.
//
// Usage:
//
//	sparkctl --user alice quest today
//	sparkctl --user alice catalog --category boost
//	sparkctl --user alice redeem mood_boost
//	sparkctl --user alice history --status active
package main

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	sparkhttp "github.com/fyrsmithlabs/sparkd/internal/http"
	"github.com/fyrsmithlabs/sparkd/internal/quest"
	"github.com/fyrsmithlabs/sparkd/internal/redemption"
	"github.com/fyrsmithlabs/sparkd/internal/reflection"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "sparkctl: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	server string
	user   string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "sparkctl",
		Short:         "CLI for sparkd quests, reflections and rewards",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.server, "server", "http://localhost:8420", "sparkd server URL")
	root.PersistentFlags().StringVarP(&opts.user, "user", "u", os.Getenv("SPARKCTL_USER"), "user ID sent as "+sparkhttp.HeaderUserID)

	root.AddCommand(
		healthCmd(opts),
		catalogCmd(opts),
		pointsCmd(opts),
		redeemCmd(opts),
		historyCmd(opts),
		activeCmd(opts),
		questCmd(opts),
		reflectCmd(opts),
	)
	return root
}

func (o *options) client(needUser bool) (*client, error) {
	if needUser && o.user == "" {
		return nil, fmt.Errorf("--user is required (or set SPARKCTL_USER)")
	}
	return newClient(o.server, o.user), nil
}

func healthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check sparkd server health",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, _ := opts.client(false)
			var resp sparkhttp.HealthResponse
			if err := c.do(cmd.Context(), http.MethodGet, "/health", nil, nil, &resp); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			field(out, "Server", c.base)
			field(out, "Status", resp.Status)
			for name, status := range resp.Checks {
				field(out, "  "+name, status)
			}
			return nil
		},
	}
}

func catalogCmd(opts *options) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List rewards",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client(true)
			if err != nil {
				return err
			}
			q := url.Values{}
			if category != "" {
				q.Set("category", category)
			}
			var resp sparkhttp.RewardsResponse
			if err := c.do(cmd.Context(), http.MethodGet, "/api/v1/rewards", q, nil, &resp); err != nil {
				return err
			}
			renderRewards(cmd.OutOrStdout(), resp.Version, resp.Rewards)
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "filter by category")
	return cmd
}

func pointsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "points",
		Short: "Show spark points and quest counters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client(true)
			if err != nil {
				return err
			}
			var p redemption.Points
			if err := c.do(cmd.Context(), http.MethodGet, "/api/v1/rewards/points", nil, nil, &p); err != nil {
				return err
			}
			renderPoints(cmd.OutOrStdout(), &p)
			return nil
		},
	}
}

func redeemCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "redeem <reward-id>",
		Short: "Redeem a reward",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(true)
			if err != nil {
				return err
			}
			var receipt redemption.Receipt
			req := sparkhttp.RedeemRequest{RewardID: args[0]}
			if err := c.do(cmd.Context(), http.MethodPost, "/api/v1/rewards/redeem", nil, req, &receipt); err != nil {
				return err
			}
			renderReceipt(cmd.OutOrStdout(), &receipt)
			return nil
		},
	}
}

func historyCmd(opts *options) *cobra.Command {
	var (
		status string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past redemptions, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client(true)
			if err != nil {
				return err
			}
			q := url.Values{}
			if status != "" {
				q.Set("status", status)
			}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			var items []redemption.Redemption
			if err := c.do(cmd.Context(), http.MethodGet, "/api/v1/rewards/history", q, nil, &items); err != nil {
				return err
			}
			renderRedemptions(cmd.OutOrStdout(), items)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status (active, used, expired)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum entries (server default 20)")
	return cmd
}

func activeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "active",
		Short: "List unexpired active redemptions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client(true)
			if err != nil {
				return err
			}
			var items []redemption.Redemption
			if err := c.do(cmd.Context(), http.MethodGet, "/api/v1/rewards/active", nil, nil, &items); err != nil {
				return err
			}
			renderRedemptions(cmd.OutOrStdout(), items)
			return nil
		},
	}
}

func questCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quest",
		Short: "Daily quest commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "today",
		Short: "Show today's quest",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client(true)
			if err != nil {
				return err
			}
			var a quest.Assignment
			if err := c.do(cmd.Context(), http.MethodGet, "/api/v1/quests/today", nil, nil, &a); err != nil {
				return err
			}
			renderAssignment(cmd.OutOrStdout(), &a)
			return nil
		},
	}, &cobra.Command{
		Use:   "start <title>",
		Short: "Mark a quest as started today",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(true)
			if err != nil {
				return err
			}
			var r reflection.Reflection
			req := sparkhttp.StartQuestRequest{QuestTitle: args[0]}
			if err := c.do(cmd.Context(), http.MethodPost, "/api/v1/quests/start", nil, req, &r); err != nil {
				return err
			}
			field(cmd.OutOrStdout(), "Started", r.QuestTitle)
			return nil
		},
	}, &cobra.Command{
		Use:   "history",
		Short: "List quests you have engaged with",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client(true)
			if err != nil {
				return err
			}
			var entries []quest.HistoryEntry
			if err := c.do(cmd.Context(), http.MethodGet, "/api/v1/quests/history", nil, nil, &entries); err != nil {
				return err
			}
			renderHistory(cmd.OutOrStdout(), entries)
			return nil
		},
	})
	return cmd
}

func reflectCmd(opts *options) *cobra.Command {
	req := reflection.SubmitRequest{}
	cmd := &cobra.Command{
		Use:   "reflect <quest-title>",
		Short: "Submit a reflection for a quest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(true)
			if err != nil {
				return err
			}
			req.QuestTitle = args[0]
			var res reflection.SubmitResult
			if err := c.do(cmd.Context(), http.MethodPost, "/api/v1/reflections", nil, req, &res); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			field(out, "Points awarded", strconv.Itoa(res.PointsAwarded))
			field(out, "Quality", strconv.FormatFloat(res.QualityScore, 'f', 1, 64))
			field(out, "Balance", strconv.FormatInt(res.Balance, 10))
			return nil
		},
	}
	cmd.Flags().StringVar(&req.QuestType, "type", "daily", "quest type (daily or weekly)")
	cmd.Flags().StringVar(&req.Text, "text", "", "reflection text")
	cmd.Flags().StringVar(&req.ImageURL, "image", "", "image URL")
	cmd.Flags().StringVar(&req.AudioURL, "audio", "", "audio URL")
	return cmd
}
