package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"nutritrack/internal/calculator"
	"nutritrack/internal/common/config"
	"nutritrack/internal/common/logger"
	"nutritrack/internal/common/observability"
	"nutritrack/internal/models"
	"nutritrack/internal/recommendation"
)

func newRecommendCmd(configPath *string) *cobra.Command {
	var (
		req         recommendation.Request
		criteria    models.FilterCriteria
		maxCalories float64
		minProtein  float64
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Run the recommendation pipeline once for a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			shutdownTracing, err := initTracing(cfg)
			if err != nil {
				return err
			}
			defer shutdownTracing(context.Background())

			app, err := newApplication(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer app.close()

			if cmd.Flags().Changed("max-calories") {
				criteria.MaxCalories = &maxCalories
			}
			if cmd.Flags().Changed("min-protein") {
				criteria.MinProtein = &minProtein
			}
			if !criteria.IsEmpty() {
				req.Criteria = &criteria
			}

			res, err := app.recommender.Recommend(ctx, req)
			if err != nil {
				return err
			}
			return printRecommendation(cmd, res, asJSON)
		},
	}

	f := cmd.Flags()
	f.Int64Var(&req.UserID, "user-id", 0, "user to recommend for")
	f.StringVar(&req.Prompt, "prompt", "", "free-form request passed to every stage")
	f.StringVar(&criteria.DiningHall, "dining-hall", "", "only items served at this dining hall")
	f.BoolVar(&criteria.IsVegetarian, "vegetarian", false, "only vegetarian items")
	f.BoolVar(&criteria.IsVegan, "vegan", false, "only vegan items")
	f.Float64Var(&maxCalories, "max-calories", 0, "only items at or below this many calories")
	f.Float64Var(&minProtein, "min-protein", 0, "only items with at least this much protein")
	f.StringVar(&criteria.NameContains, "name", "", "only items whose name contains this text")
	f.BoolVar(&asJSON, "json", false, "print the full run result as JSON")
	_ = cmd.MarkFlagRequired("user-id")

	return cmd
}

func printRecommendation(cmd *cobra.Command, res *recommendation.Result, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintf(out, "Run %s\n\n%s\n", res.RunID, res.Recommendation)
	if len(res.Items) > 0 {
		fmt.Fprintln(out, "\nBest fits for one meal:")
		for i, item := range res.Items {
			fmt.Fprintf(out, "%d. %s (%s) %.0f kcal, %.1f g protein, score %.2f\n",
				i+1, item.Item.Name, item.Item.DiningHall,
				item.Item.Nutrition.Calories, item.Item.Nutrition.Protein, item.Score)
		}
	}
	return nil
}

func newCalculateCmd() *cobra.Command {
	var req calculator.Request

	cmd := &cobra.Command{
		Use:   "calculate",
		Short: "Compute daily calories and macros without a height measurement",
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := calculator.Calculate(req)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	f := cmd.Flags()
	f.IntVar(&req.Age, "age", 0, "age in years")
	f.IntVar(&req.Weight, "weight", 0, "body weight")
	f.StringVar(&req.Goal, "goal", string(models.GoalMaintain), "bulk, cut or maintain")
	f.StringVar(&req.ActivityLevel, "activity-level", "", "sedentary, lightly active, moderately active or very active")
	f.StringVar(&req.Gender, "gender", "", "male or female")
	for _, name := range []string{"age", "weight", "activity-level", "gender"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func initTracing(cfg *config.Config) (func(context.Context) error, error) {
	serviceName := cfg.Tracing.ServiceName
	if serviceName == "" {
		serviceName = cfg.App.Name
	}
	return observability.InitTracing(cfg.Tracing.JaegerEndpoint, serviceName)
}
