package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	app "github.com/hugs-network/trivia_layer/internal/app"
	"github.com/hugs-network/trivia_layer/services/rewards"
)

var (
	rewardToken  string
	rewardReason string
	rewardSeed   string
	rewardMode   string
	historyLimit int
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Wallet helpers",
}

var walletCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Generate a wallet and fund it from the test faucet",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) (interface{}, error) {
			return a.Rewards.CreateWallet(ctx), nil
		})
	},
}

var trustlineCmd = &cobra.Command{
	Use:   "trustline <address> <seed>",
	Short: "Ensure the account trusts the reward token",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) (interface{}, error) {
			return a.Rewards.EnsureTrustLine(ctx, args[0], args[1], rewardToken, ""), nil
		})
	},
}

var rewardCmd = &cobra.Command{
	Use:   "reward",
	Short: "Pay and inspect rewards",
}

var rewardPayCmd = &cobra.Command{
	Use:   "pay <address> [amount]",
	Short: "Pay a reward",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := parseMode()
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.Application) (interface{}, error) {
			amount := a.Rewards.Config().DefaultReward
			if len(args) == 2 {
				v, err := strconv.ParseFloat(args[1], 64)
				if err != nil {
					return nil, fmt.Errorf("amount: %w", err)
				}
				amount = v
			}
			return a.Rewards.PayReward(ctx, rewards.RewardRequest{
				Address: args[0],
				Amount:  amount,
				Token:   rewardToken,
				Reason:  rewardReason,
				Seed:    rewardSeed,
				Mode:    mode,
			}), nil
		})
	},
}

var rewardBalanceCmd = &cobra.Command{
	Use:   "balance <address>",
	Short: "Show the reward token balance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := parseMode()
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.Application) (interface{}, error) {
			bal, err := a.Rewards.Balance(ctx, args[0], rewardToken, mode)
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{"address": args[0], "balance": bal}, nil
		})
	},
}

var rewardHistoryCmd = &cobra.Command{
	Use:   "history <address>",
	Short: "Show mock ledger entries for an address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := parseMode()
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.Application) (interface{}, error) {
			return a.Rewards.History(ctx, args[0], rewardToken, historyLimit, mode)
		})
	},
}

var payoutsCmd = &cobra.Command{
	Use:   "payouts",
	Short: "Inspect and retry winner payouts",
}

var payoutsRetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Retry pending and failed payouts once",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) (interface{}, error) {
			return a.Payouts.Retry(ctx)
		})
	},
}

func parseMode() (rewards.Mode, error) {
	if rewardMode == "" {
		return "", nil
	}
	return rewards.ParseMode(rewardMode)
}

func init() {
	trustlineCmd.Flags().StringVar(&rewardToken, "token", "", "token code (default TOKEN_CODE)")

	for _, c := range []*cobra.Command{rewardPayCmd, rewardBalanceCmd, rewardHistoryCmd} {
		c.Flags().StringVar(&rewardToken, "token", "", "token code (default TOKEN_CODE)")
		c.Flags().StringVar(&rewardMode, "mode", "", "MOCK or NETWORK (default REWARDS_MODE)")
	}
	rewardPayCmd.Flags().StringVar(&rewardReason, "reason", "", "memo stored with mock entries")
	rewardPayCmd.Flags().StringVar(&rewardSeed, "seed", "", "recipient seed, used to create a missing trust line")
	rewardHistoryCmd.Flags().IntVar(&historyLimit, "limit", 0, "maximum entries (default HISTORY_LIMIT)")

	walletCmd.AddCommand(walletCreateCmd)
	rewardCmd.AddCommand(rewardPayCmd, rewardBalanceCmd, rewardHistoryCmd)
	payoutsCmd.AddCommand(payoutsRetryCmd)
	rootCmd.AddCommand(walletCmd, trustlineCmd, rewardCmd, payoutsCmd)
}
