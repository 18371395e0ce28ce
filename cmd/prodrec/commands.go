package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rushteam/prodrec/batch"
	"github.com/rushteam/prodrec/core"
	"github.com/rushteam/prodrec/dataset"
	"github.com/rushteam/prodrec/embedding"
	"github.com/rushteam/prodrec/eval"
	"github.com/rushteam/prodrec/logging"
	"github.com/rushteam/prodrec/pkg/conv"
	"github.com/rushteam/prodrec/profile"
	"github.com/rushteam/prodrec/recommend"
)

func newEmbedCmd() *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Generate embeddings for products or users",
	}
	cmd.PersistentFlags().StringVar(&from, "from", "", "store key to read raw records from (defaults to the configured key)")

	cmd.AddCommand(&cobra.Command{
		Use:   "products",
		Short: "Embed product descriptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				emb, err := a.embedder()
				if err != nil {
					return err
				}
				src := a.repo
				if from != "" {
					keys := a.repo.Keys
					keys.Products = from
					src = dataset.New(a.store, keys)
				}
				products, err := src.Products(ctx)
				if err != nil {
					return err
				}
				p := &embedding.Preparer{Embedder: emb, Logger: logging.With("embedding")}
				out, dropped := p.Products(ctx, products)
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := a.repo.SaveProducts(ctx, out); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "embedded %d products, dropped %d\n", len(out), len(dropped))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "users",
		Short: "Embed users' joined interests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				emb, err := a.embedder()
				if err != nil {
					return err
				}
				src := a.repo
				if from != "" {
					keys := a.repo.Keys
					keys.Users = from
					src = dataset.New(a.store, keys)
				}
				users, err := src.Users(ctx)
				if err != nil {
					return err
				}
				p := &embedding.Preparer{Embedder: emb, Logger: logging.With("embedding")}
				out, dropped := p.Users(ctx, users)
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := a.repo.SaveUsers(ctx, out); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "embedded %d users, dropped %d\n", len(out), len(dropped))
				return nil
			})
		},
	})
	return cmd
}

func newLogEventCmd() *cobra.Command {
	var (
		eventType string
		at        string
	)
	cmd := &cobra.Command{
		Use:   "log-event <user_id> <product_id>",
		Short: "Append a behavior event (view, click or buy)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev := core.BehaviorEvent{UserID: args[0], ProductID: args[1], EventType: core.EventType(eventType)}
			if at != "" {
				ts, err := conv.ParseTime(at)
				if err != nil {
					return err
				}
				ev.Timestamp = ts
			}
			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				if err := a.events.Append(ctx, ev); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "logged %s: user %s product %s\n", eventType, ev.UserID, ev.ProductID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&eventType, "type", string(core.EventView), "event type: view, click or buy")
	cmd.Flags().StringVar(&at, "at", "", "event timestamp (RFC3339), defaults to now")
	return cmd
}

func newUpdateProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update-profiles",
		Short: "Blend logged behavior into user embeddings, then clear the log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				u := &profile.Updater{
					Events: a.events,
					Repo:   a.repo,
					Blender: profile.Blender{
						BlendWeight: a.settings.Scoring.BlendWeight,
						Dimension:   a.settings.Embedding.Dimension,
					},
					Logger:  logging.With("profile"),
					Metrics: a.metrics,
				}
				report, err := u.Run(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "events %d, users updated %d, skipped %d\n",
					report.Events, report.Updated, len(report.Skipped))
				return nil
			})
		},
	}
}

func newBatchCmd() *cobra.Command {
	var (
		topN    int
		workers int
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Score every user and replace the recommendation snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				sc, err := a.scorer()
				if err != nil {
					return err
				}
				if topN <= 0 {
					topN = a.settings.Scoring.BatchTopN
				}
				if workers <= 0 {
					workers = a.settings.Scoring.Workers
				}
				job := &batch.Job{
					Repo: a.repo,
					Runner: &batch.Runner{
						Scorer:        sc,
						TopN:          topN,
						CategoryBoost: a.settings.Scoring.CategoryBoost,
						Workers:       workers,
						Logger:        logging.With("batch"),
						Metrics:       a.metrics,
					},
					Logger:  logging.With("batch"),
					Metrics: a.metrics,
				}
				report, err := job.Run(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d/%d users in %s\n",
					report.RunID, report.Succeeded, report.Users, report.Duration.Round(time.Millisecond))
				for _, f := range report.Failures {
					fmt.Fprintf(cmd.OutOrStdout(), "  skipped %s: %v\n", f.UserID, f.Err)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&topN, "top-n", 0, "recommendations per user (defaults to scoring.batch_top_n)")
	cmd.Flags().IntVar(&workers, "workers", 0, "users scored concurrently (defaults to scoring.workers)")
	return cmd
}

func newRecommendCmd() *cobra.Command {
	var live bool
	cmd := &cobra.Command{
		Use:   "recommend <user_id>",
		Short: "Show recommendations for a user (snapshot first, live scoring otherwise)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				svc, err := a.service(false)
				if err != nil {
					return err
				}
				var res recommend.Result
				if live {
					res, err = svc.Live(ctx, args[0])
				} else {
					res, err = svc.ForUser(ctx, args[0])
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Top %d for %s (user %s, %s):\n",
					len(res.Recommendations), res.Name, res.UserID, res.Source)
				printScored(cmd.OutOrStdout(), res.Recommendations)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&live, "live", false, "ignore the snapshot and score with current embeddings")
	return cmd
}

func newSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query...>",
		Short: "Semantic search over the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				svc, err := a.service(true)
				if err != nil {
					return err
				}
				recs, err := svc.Search(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				printScored(cmd.OutOrStdout(), recs)
				return nil
			})
		},
	}
}

func newBuyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "buy <user_id> <product_id>",
		Short: "Record a purchase",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				svc, err := a.service(false)
				if err != nil {
					return err
				}
				out, err := svc.Buy(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				printBuy(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
}

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <user_id>",
		Short: "Show a user's purchase history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				svc, err := a.service(false)
				if err != nil {
					return err
				}
				products, err := svc.History(ctx, args[0])
				if err != nil {
					return err
				}
				printHistory(cmd.OutOrStdout(), products)
				return nil
			})
		},
	}
}

func newEvaluateCmd() *cobra.Command {
	var k int
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate the snapshot against purchase history (precision@K, hit rate)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				snap, err := a.repo.Snapshot(ctx)
				if err != nil {
					return err
				}
				purchases, err := a.repo.Purchases(ctx)
				if err != nil {
					return err
				}
				if k <= 0 {
					k = a.settings.Scoring.EvalK
				}
				r := eval.Evaluate(snap, purchases, k)
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Total Users Evaluated: %d\n", r.Users)
				fmt.Fprintf(w, "Average Precision@%d: %.4f\n", r.K, r.AvgPrecision)
				fmt.Fprintf(w, "Hit Rate: %.4f\n", r.HitRate)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&k, "k", 0, "cutoff K (defaults to scoring.eval_k)")
	return cmd
}

func printScored(w io.Writer, recs []core.ScoredProduct) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "no recommendations")
		return
	}
	for i, r := range recs {
		fmt.Fprintf(w, "%d. %s (%s) [%s]\n", i+1, r.Name, r.Category, r.ID)
		if r.Description != "" {
			fmt.Fprintf(w, "   %s\n", r.Description)
		}
		fmt.Fprintf(w, "   $%.2f | score %.4f\n", r.Price, r.Score)
		if r.Explanation != "" {
			fmt.Fprintf(w, "   why: %s\n", r.Explanation)
		}
	}
}

func printBuy(w io.Writer, out recommend.BuyOutcome) {
	if out.AlreadyPurchased {
		fmt.Fprintf(w, "already purchased: %s\n", out.Product.Name)
		return
	}
	fmt.Fprintf(w, "purchased: %s\n", out.Product.Name)
}

func printHistory(w io.Writer, products []core.Product) {
	if len(products) == 0 {
		fmt.Fprintln(w, "no past purchases")
		return
	}
	for _, p := range products {
		fmt.Fprintf(w, "- %s ($%.2f) - %s\n", p.Name, p.Price, p.Category)
	}
}
