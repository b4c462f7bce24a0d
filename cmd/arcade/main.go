package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "arcade",
		Short:         "Mini-game arcade scoring server and player client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./arcade.yaml if present)")

	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(scoreCmd())
	root.AddCommand(recordCmd())
	root.AddCommand(ratingCmd())
	root.AddCommand(leaderboardCmd())
	root.AddCommand(profileCmd())

	return root
}

func serveCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "server port (default: from config)")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func scoreCmd() *cobra.Command {
	var (
		game  string
		value float64
		shots float64
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Normalize a raw result offline",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(cmd.OutOrStdout(), game, value, shots)
		},
	}

	cmd.Flags().StringVar(&game, "game", "", "game id (reaction-rush, memory-grid, spray-control, drop-royale)")
	cmd.Flags().Float64Var(&value, "value", 0, "raw result: ms, accuracy %, hits or streak")
	cmd.Flags().Float64Var(&shots, "shots", 0, "shots fired (spray-control)")
	cmd.MarkFlagRequired("game")
	cmd.MarkFlagRequired("value")
	return cmd
}

func recordCmd() *cobra.Command {
	var opts recordOptions

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a finished round locally and submit it to the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.valueSet = cmd.Flags().Changed("value")
			return runRecord(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.game, "game", "", "game id")
	cmd.Flags().Float64Var(&opts.value, "value", 0, "raw result: ms, accuracy %, hits or streak")
	cmd.Flags().Float64Var(&opts.shots, "shots", 0, "shots fired (spray-control)")
	cmd.Flags().StringVar(&opts.difficulty, "difficulty", "", "Easy, Medium or Hard (default: Medium)")
	cmd.Flags().StringVar(&opts.name, "name", "", "set your player name")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "only update local stats")
	cmd.Flags().IntSliceVar(&opts.pattern, "pattern", nil, "memory-grid: tile indexes that were shown")
	cmd.Flags().IntSliceVar(&opts.picked, "picked", nil, "memory-grid: tile indexes you selected")
	cmd.Flags().IntVar(&opts.grid, "grid", 16, "memory-grid: number of tiles")
	cmd.Flags().StringArrayVar(&opts.zones, "zone", nil, "drop-royale: offered zone as heat:loot:safety (repeatable)")
	cmd.Flags().IntVar(&opts.pick, "pick", -1, "drop-royale: index of the zone you dropped on; --value is the streak before it")
	cmd.MarkFlagRequired("game")
	return cmd
}

func ratingCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "rating",
		Short: "Show your arcade rating from local personal bests",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRating(cmd.OutOrStdout(), jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func leaderboardCmd() *cobra.Command {
	var (
		difficulty string
		watch      bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the global leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLeaderboard(cmd.Context(), cmd.OutOrStdout(), difficulty, watch, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&difficulty, "difficulty", "", "Easy, Medium, Hard or All")
	cmd.Flags().BoolVar(&watch, "watch", false, "keep polling and redraw")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func profileCmd() *cobra.Command {
	var (
		player     string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show a player profile (default: you)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfile(cmd.Context(), cmd.OutOrStdout(), player, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&player, "player", "", "player id")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}
