package cli

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/umq7573/streaky-shooter/internal/nba"
)

func newRankingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rankings",
		Short: "Rank the league's heaviest-minutes players by streakiness",
		Long: "Select the top-N players by total minutes across the given seasons,\n" +
			"fetch every shot they took, and rank them by streakiness.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runRankings(cmd)
		},
	}

	cmd.Flags().String("seasons", "", "comma-separated seasons (e.g. '2022-23,2023-24')")
	cmd.Flags().Int("top-n", 50, "number of players to rank, by total minutes")
	cmd.Flags().Int("min-shots", 200, "minimum attempts for a player to qualify")
	cmd.Flags().String("metric", metricRun, "streakiness metric: run or momentum")
	cmd.Flags().String("shot-type", nba.ShotType3PT, "shot type filter: All, '3PT Field Goal' or '2PT Field Goal'")
	cmd.Flags().String("season-type", nba.SeasonTypeRegular, "season type: 'Regular Season' or 'Playoffs'")
	cmd.Flags().Float64("rho", 0.9, "persistence factor for the momentum metric")
	cmd.Flags().Float64("penalty", 0.1, "penalty scale for the momentum metric")
	cmd.Flags().String("output", "", "also write the rankings to a CSV file")
	_ = cmd.MarkFlagRequired("seasons")
	return cmd
}

func (a *app) runRankings(cmd *cobra.Command) error {
	ctx := cmd.Context()

	seasons := splitList(mustString(cmd, "seasons"))
	topN, _ := cmd.Flags().GetInt("top-n")
	minShots, _ := cmd.Flags().GetInt("min-shots")
	metric := mustString(cmd, "metric")
	shotType := mustString(cmd, "shot-type")
	seasonType := mustString(cmd, "season-type")
	rho, _ := cmd.Flags().GetFloat64("rho")
	penalty, _ := cmd.Flags().GetFloat64("penalty")
	output := mustString(cmd, "output")

	if metric != metricRun && metric != metricMomentum {
		return fmt.Errorf("unknown metric %q (want %s or %s)", metric, metricRun, metricMomentum)
	}
	if len(seasons) == 0 {
		return fmt.Errorf("at least one season is required")
	}
	if topN <= 0 {
		return fmt.Errorf("top-n must be positive")
	}

	pool, err := a.minutesLeaders(ctx, seasons, seasonType, topN)
	if err != nil {
		return err
	}

	var rows []scoreRow
	for n, leader := range pool {
		a.logger.Debug().
			Int("rank", n+1).Int("of", len(pool)).
			Str("player", leader.Player).
			Msg("scoring player")

		var flags []bool
		for _, season := range seasons {
			teamID := a.teamIDFor(ctx, leader.PlayerID, season)
			shots, err := a.shotChart(ctx, leader.PlayerID, teamID, season, seasonType, shotType)
			if err != nil {
				return fmt.Errorf("fetching shots for %s %s: %w", leader.Player, season, err)
			}
			flags = append(flags, nba.MadeFlags(shots)...)
		}
		if len(flags) < minShots {
			a.logger.Debug().Str("player", leader.Player).Int("shots", len(flags)).
				Int("min_shots", minShots).Msg("below attempt floor, skipping")
			continue
		}

		rows = append(rows, scoreRow{
			player:  leader.Player,
			minutes: leader.Value,
			shots:   len(flags),
			score:   scoreFlags(flags, metric, rho, penalty),
		})
	}
	if len(rows) == 0 {
		return fmt.Errorf("no players qualified (min-shots %d)", minShots)
	}

	sortByScore(rows, metric)

	headers := []string{"RANK", "PLAYER", "MIN", "SHOTS", scoreHeader(metric)}
	out := make([][]string, 0, len(rows))
	for n, r := range rows {
		out = append(out, []string{
			strconv.Itoa(n + 1),
			r.player,
			strconv.FormatFloat(r.minutes, 'f', 0, 64),
			strconv.Itoa(r.shots),
			formatScore(r.score),
		})
	}
	renderTable(cmd, headers, out)
	fmt.Fprintln(cmd.OutOrStdout(), scoreDirection(metric))

	if output != "" {
		if err := writeCSV(output, headers, out); err != nil {
			return fmt.Errorf("writing %s: %w", output, err)
		}
		a.logger.Info().Str("path", output).Int("rows", len(out)).Msg("rankings written")
	}
	return nil
}

// minutesLeaders aggregates total minutes across seasons and returns the
// top-N players by that total.
func (a *app) minutesLeaders(ctx context.Context, seasons []string, seasonType string, topN int) ([]nba.Leader, error) {
	totals := map[int]*nba.Leader{}
	for _, season := range seasons {
		leaders, err := a.leagueLeaders(ctx, season, seasonType, "MIN")
		if err != nil {
			return nil, fmt.Errorf("fetching league leaders for %s: %w", season, err)
		}
		for _, l := range leaders {
			if have, ok := totals[l.PlayerID]; ok {
				have.Value += l.Value
				continue
			}
			entry := l
			totals[l.PlayerID] = &entry
		}
	}

	pool := make([]nba.Leader, 0, len(totals))
	for _, l := range totals {
		pool = append(pool, *l)
	}
	sort.Slice(pool, func(i, j int) bool {
		if pool[i].Value != pool[j].Value {
			return pool[i].Value > pool[j].Value
		}
		return pool[i].PlayerID < pool[j].PlayerID
	})
	if len(pool) > topN {
		pool = pool[:topN]
	}
	return pool, nil
}

func writeCSV(path string, headers []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(headers); err != nil {
		f.Close()
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
