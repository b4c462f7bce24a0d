package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"arcade/internal/achievements"
	"arcade/internal/analytics"
	"arcade/internal/client"
	"arcade/internal/config"
	"arcade/internal/db"
	"arcade/internal/games"
	"arcade/internal/localstats"
	"arcade/internal/logging"
	"arcade/internal/rating"
	"arcade/internal/recorder"
	"arcade/internal/scoring"
	"arcade/internal/server"
	"arcade/internal/session"
)

const stateFile = "state.json"

func loadConfig() (config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("arcade.yaml"); err == nil {
			path = "arcade.yaml"
		}
	}
	return config.Load(path)
}

func localStorage(cfg config.Config) localstats.Storage {
	return localstats.NewFileStorage(filepath.Join(cfg.Home, stateFile))
}

func runServe(ctx context.Context, port string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if port != "" {
		cfg.Port = port
	}
	logger := logging.Setup("arcade", cfg.Env, cfg.LogFormat)
	return server.Run(ctx, cfg, logger)
}

func runMigrate() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logging.Setup("arcade", cfg.Env, cfg.LogFormat)

	ctx := context.Background()
	database, err := db.Connect(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()
	return database.Migrate(ctx)
}

func runScore(w io.Writer, game string, value, shots float64) error {
	res, err := scoring.Normalize(game, scoring.Metric{Value: value, Shots: shots})
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "GAME\t%s\n", res.GameID)
	fmt.Fprintf(tw, "RAW\t%s\n", formatRaw(res.RawValue, res.RawUnit))
	fmt.Fprintf(tw, "NORMALIZED\t%d\n", res.Normalized)
	fmt.Fprintf(tw, "SKILL\t%d\n", res.Skill)
	return tw.Flush()
}

type recordOptions struct {
	game       string
	value      float64
	valueSet   bool
	shots      float64
	difficulty string
	name       string
	offline    bool

	// memory-grid rounds scored from tile indexes
	pattern []int
	picked  []int
	grid    int

	// drop-royale: the zones offered this drop as heat:loot:safety, and the one picked
	zones []string
	pick  int
}

// roundValue works out the raw metric from the round flags, falling back to --value.
func roundValue(w io.Writer, opts recordOptions) (float64, error) {
	switch {
	case len(opts.pattern) > 0:
		if opts.game != string(games.MemoryGrid) {
			return 0, fmt.Errorf("--pattern only applies to %s", games.MemoryGrid)
		}
		r := scoring.EvaluateMemoryRound(opts.pattern, opts.picked, opts.grid)
		fmt.Fprintf(w, "memory round: %d correct, %d extra, %d missed\n", r.Correct, r.Extra, r.Missed)
		return float64(r.Accuracy), nil
	case len(opts.zones) > 0:
		if opts.game != string(games.DropRoyale) {
			return 0, fmt.Errorf("--zone only applies to %s", games.DropRoyale)
		}
		zones, err := parseZones(opts.zones)
		if err != nil {
			return 0, err
		}
		streak := scoring.NextStreak(int(opts.value), zones, opts.pick)
		if streak == 0 {
			fmt.Fprintf(w, "missed the best zone (%s), streak reset\n", zones[scoring.BestZone(zones)].ID)
		}
		return float64(streak), nil
	case !opts.valueSet:
		return 0, errors.New("--value is required")
	}
	return opts.value, nil
}

func parseZones(specs []string) ([]scoring.Zone, error) {
	zones := make([]scoring.Zone, 0, len(specs))
	for i, spec := range specs {
		parts := strings.Split(spec, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("zone %q: want heat:loot:safety", spec)
		}
		var vals [3]float64
		for j, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return nil, fmt.Errorf("zone %q: %w", spec, err)
			}
			vals[j] = v
		}
		zones = append(zones, scoring.Zone{ID: strconv.Itoa(i), Heat: vals[0], Loot: vals[1], Safety: vals[2]})
	}
	return zones, nil
}

func runRecord(ctx context.Context, w io.Writer, opts recordOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	value, err := roundValue(w, opts)
	if err != nil {
		return err
	}
	res, err := scoring.Normalize(opts.game, scoring.Metric{Value: value, Shots: opts.shots})
	if err != nil {
		return err
	}

	storage := localStorage(cfg)
	sess := session.Load(storage)
	if opts.name != "" {
		sess.SetName(opts.name)
	}
	if err := sess.Save(storage); err != nil {
		fmt.Fprintf(os.Stderr, "warning: local state not saved: %v\n", err)
	}

	stats := localstats.New(storage)
	improved := stats.RecordRun(res.GameID, res.RawValue)
	fresh := achievements.NewTracker(storage).OnRunRecorded(stats.Load())

	fmt.Fprintf(w, "%s: %s -> %d", res.GameID, formatRaw(res.RawValue, res.RawUnit), res.Normalized)
	if improved {
		fmt.Fprint(w, " (new personal best)")
	}
	fmt.Fprintln(w)
	for _, a := range fresh {
		fmt.Fprintf(w, "%s Achievement unlocked: %s (%s)\n", a.Icon, a.Title, a.Rarity)
	}
	if next, ok := games.NextInPlaylist(res.GameID); ok {
		fmt.Fprintf(w, "Next up: %s\n", gameName(next))
	}

	if opts.offline {
		return nil
	}
	if !sess.HasProfile() {
		fmt.Fprintln(w, "tip: pass --name to show a name on the leaderboard")
	}

	c, err := client.New(cfg.APIURL, 10*time.Second)
	if err != nil {
		return err
	}
	normalized := float64(res.Normalized)
	raw := res.RawValue
	req := recorder.Request{
		PlayerID:        sess.PlayerID,
		PlayerName:      sess.Name(),
		GameID:          string(res.GameID),
		NormalizedScore: &normalized,
		RawValue:        &raw,
		RawUnit:         string(res.RawUnit),
		Difficulty:      opts.difficulty,
	}
	if res.GameID == games.SprayControl {
		shots := opts.shots
		req.Shots = &shots
	}
	out, err := c.RecordRun(ctx, req)
	if err != nil {
		return fmt.Errorf("submit run: %w", err)
	}
	fmt.Fprintf(w, "submitted, stored score %d\n", out.NormalizedScore)
	return nil
}

func runRating(w io.Writer, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	stats := localstats.New(localStorage(cfg)).Load()
	r := rating.Compute(stats.Bests)

	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	return printRating(w, r, stats.Meta)
}

func printRating(w io.Writer, r rating.Rating, meta localstats.Meta) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GAME\tBEST\tSKILL\tPLAYS")
	for _, g := range games.All() {
		best := "-"
		if v := r.Bests.Get(g.ID); v != nil {
			best = formatRaw(*v, g.Unit)
		}
		skill := "-"
		for _, s := range r.Skills.Present() {
			if s.GameID == g.ID {
				skill = fmt.Sprint(s.Score)
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", g.Name, best, skill, meta.Plays(g.ID))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if r.Combined == nil {
		fmt.Fprintln(w, "\nArcade rating: play a game to get rated")
		return nil
	}
	fmt.Fprintf(w, "\nArcade rating: %d\n", *r.Combined)
	if r.Strongest != nil && r.Weakest != nil {
		fmt.Fprintf(w, "Strongest: %s  Weakest: %s\n", gameName(r.Strongest.GameID), gameName(r.Weakest.GameID))
	}
	return nil
}

func runLeaderboard(ctx context.Context, w io.Writer, difficulty string, watch, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c, err := client.New(cfg.APIURL, 10*time.Second)
	if err != nil {
		return err
	}
	filter := games.ParseDifficultyFilter(difficulty)

	show := func(entries []analytics.LeaderboardEntry) error {
		if jsonOutput {
			return json.NewEncoder(w).Encode(entries)
		}
		return printLeaderboard(w, entries)
	}

	if !watch {
		entries, err := c.Leaderboard(ctx, filter)
		if err != nil {
			return err
		}
		return show(entries)
	}

	fetch := func(ctx context.Context) ([]analytics.LeaderboardEntry, error) {
		return c.Leaderboard(ctx, filter)
	}
	poller := client.NewPoller(cfg.PollInterval, fetch, func(entries []analytics.LeaderboardEntry, err error) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "leaderboard: %v\n", err)
			return
		}
		if !jsonOutput {
			fmt.Fprintf(w, "\n%s\n", time.Now().Format(time.Kitchen))
		}
		show(entries)
	})
	poller.Run(ctx)
	return nil
}

func printLeaderboard(w io.Writer, entries []analytics.LeaderboardEntry) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no runs yet")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tPLAYER\tBEST\tGAME")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", e.Rank, e.Handle, e.BestScore, gameName(games.ID(e.GameID)))
	}
	return tw.Flush()
}

func runProfile(ctx context.Context, w io.Writer, playerID string, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if playerID == "" {
		playerID = session.Load(localStorage(cfg)).PlayerID
	}
	c, err := client.New(cfg.APIURL, 10*time.Second)
	if err != nil {
		return err
	}
	p, err := c.Profile(ctx, playerID)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}
	return printProfile(w, playerID, p)
}

func printProfile(w io.Writer, playerID string, p *analytics.Profile) error {
	if p.Player == nil {
		fmt.Fprintf(w, "%s has no runs yet\n", playerID)
		return nil
	}
	name := p.Player.ID
	if p.Player.Handle != nil {
		name = *p.Player.Handle
	}
	fmt.Fprintf(w, "[%s] %s\n", p.Player.Avatar.Initial, name)
	rated := "unrated"
	if p.ArcadeRating != nil {
		rated = fmt.Sprint(*p.ArcadeRating)
	}
	fmt.Fprintf(w, "Runs: %d  Arcade rating: %s\n\n", p.TotalGames, rated)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GAME\tBEST\tRUNS\tRATING\tLAST PLAYED")
	for _, g := range p.PerGame {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n", gameName(games.ID(g.GameID)), g.BestScore, g.Runs, g.Rating, g.LastPlayed.Local().Format(time.DateTime))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(p.Achievements) > 0 {
		titles := make([]string, 0, len(p.Achievements))
		for _, a := range p.Achievements {
			titles = append(titles, a.Icon+" "+a.Title)
		}
		fmt.Fprintf(w, "\nAchievements: %s\n", strings.Join(titles, ", "))
	}
	return nil
}

func gameName(id games.ID) string {
	if g, ok := games.Lookup(string(id)); ok {
		return g.Name
	}
	return string(id)
}

func formatRaw(v float64, unit games.Unit) string {
	switch unit {
	case games.UnitMs:
		return fmt.Sprintf("%.0fms", v)
	case games.UnitPct:
		return fmt.Sprintf("%.0f%%", v)
	default:
		return fmt.Sprintf("%.0f %s", v, unit)
	}
}
