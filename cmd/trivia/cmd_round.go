package main

import (
	"context"

	"github.com/spf13/cobra"

	app "github.com/hugs-network/trivia_layer/internal/app"
	"github.com/hugs-network/trivia_layer/services/trivia"
)

var (
	roundCategory string
	roundLevel    int
)

var roundCmd = &cobra.Command{
	Use:   "round",
	Short: "Post, grade or abandon trivia rounds",
}

var roundPostCmd = &cobra.Command{
	Use:   "post",
	Short: "Post a question to the configured platform",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) (interface{}, error) {
			return a.Rounds.PostRound(ctx, roundCategory, roundLevel)
		})
	},
}

var roundGradeCmd = &cobra.Command{
	Use:   "grade <round-id>",
	Short: "Grade a posted round and settle the winner",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) (interface{}, error) {
			return a.Rounds.GradeRound(ctx, args[0])
		})
	},
}

var roundAbandonCmd = &cobra.Command{
	Use:   "abandon <round-id>",
	Short: "Close a round without a winner",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) (interface{}, error) {
			return a.Rounds.AbandonRound(ctx, args[0])
		})
	},
}

var roundListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rounds awaiting a winner",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) (interface{}, error) {
			return a.Rounds.ActiveRounds(ctx)
		})
	},
}

func init() {
	roundPostCmd.Flags().StringVar(&roundCategory, "category", "", "question category (default from DEFAULT_CATEGORY)")
	roundPostCmd.Flags().IntVar(&roundLevel, "level", trivia.MinLevel, "difficulty level 1-5")

	roundCmd.AddCommand(roundPostCmd, roundGradeCmd, roundAbandonCmd, roundListCmd)
	rootCmd.AddCommand(roundCmd)
}
