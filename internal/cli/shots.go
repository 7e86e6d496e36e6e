package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/umq7573/streaky-shooter/internal/nba"
	"github.com/umq7573/streaky-shooter/internal/streak"
)

// Streakiness metrics selectable on the command line.
const (
	metricRun      = "run"
	metricMomentum = "momentum"
)

func newShotsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shots",
		Short: "Compute shooting streakiness for named players",
		Long: "Fetch shot-by-shot data for the named players across the given seasons\n" +
			"and compute a streakiness score per player.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runShots(cmd)
		},
	}

	cmd.Flags().String("players", "", "comma-separated full names (e.g. 'Stephen Curry,Klay Thompson')")
	cmd.Flags().String("seasons", "", "comma-separated seasons (e.g. '2019-20,2020-21')")
	cmd.Flags().String("metric", metricRun, "streakiness metric: run or momentum")
	cmd.Flags().String("shot-type", nba.ShotTypeAll, "shot type filter: All, '3PT Field Goal' or '2PT Field Goal'")
	cmd.Flags().String("season-type", nba.SeasonTypeRegular, "season type: 'Regular Season' or 'Playoffs'")
	cmd.Flags().Float64("rho", 0.9, "persistence factor for the momentum metric")
	cmd.Flags().Float64("penalty", 0.1, "penalty scale for the momentum metric")
	_ = cmd.MarkFlagRequired("players")
	_ = cmd.MarkFlagRequired("seasons")
	return cmd
}

// scoreRow is one line of metric output.
type scoreRow struct {
	player  string
	minutes float64
	shots   int
	score   float64
}

func (a *app) runShots(cmd *cobra.Command) error {
	ctx := cmd.Context()

	names := splitList(mustString(cmd, "players"))
	seasons := splitList(mustString(cmd, "seasons"))
	metric := mustString(cmd, "metric")
	shotType := mustString(cmd, "shot-type")
	seasonType := mustString(cmd, "season-type")
	rho, _ := cmd.Flags().GetFloat64("rho")
	penalty, _ := cmd.Flags().GetFloat64("penalty")

	if metric != metricRun && metric != metricMomentum {
		return fmt.Errorf("unknown metric %q (want %s or %s)", metric, metricRun, metricMomentum)
	}
	if len(names) == 0 || len(seasons) == 0 {
		return fmt.Errorf("at least one player and one season are required")
	}

	index, err := a.allPlayers(ctx)
	if err != nil {
		return fmt.Errorf("loading player index: %w", err)
	}

	var rows []scoreRow
	for _, name := range names {
		player, err := nba.MatchPlayer(index, name)
		if err != nil {
			return err
		}

		var flags []bool
		for _, season := range seasons {
			teamID := a.teamIDFor(ctx, player.ID, season)
			shots, err := a.shotChart(ctx, player.ID, teamID, season, seasonType, shotType)
			if err != nil {
				return fmt.Errorf("fetching shots for %s %s: %w", player.Name, season, err)
			}
			flags = append(flags, nba.MadeFlags(shots)...)
		}
		if len(flags) == 0 {
			a.logger.Warn().Str("player", player.Name).Msg("no shots found, skipping")
			continue
		}

		rows = append(rows, scoreRow{
			player: player.Name,
			shots:  len(flags),
			score:  scoreFlags(flags, metric, rho, penalty),
		})
	}
	if len(rows) == 0 {
		return fmt.Errorf("no shot data found for any player")
	}

	sortByScore(rows, metric)

	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{r.player, strconv.Itoa(r.shots), formatScore(r.score)})
	}
	renderTable(cmd, []string{"PLAYER", "SHOTS", scoreHeader(metric)}, out)
	fmt.Fprintln(cmd.OutOrStdout(), scoreDirection(metric))
	return nil
}

// scoreFlags applies the selected metric to a make/miss sequence.
func scoreFlags(flags []bool, metric string, rho, penalty float64) float64 {
	if metric == metricMomentum {
		return streak.MomentumScore(flags, rho, penalty)
	}
	return streak.RunStreakiness(flags)
}

// sortByScore orders rows streakiest-first: the run index ascends (lower
// is streakier), momentum descends.
func sortByScore(rows []scoreRow, metric string) {
	sort.SliceStable(rows, func(a, b int) bool {
		if metric == metricMomentum {
			return rows[a].score > rows[b].score
		}
		return rows[a].score < rows[b].score
	})
}

func scoreHeader(metric string) string {
	if metric == metricMomentum {
		return "MOMENTUM"
	}
	return "S"
}

func scoreDirection(metric string) string {
	if metric == metricMomentum {
		return "Sorted by momentum score, higher = more streaky."
	}
	return "Sorted by streakiness index S, lower = more streaky."
}

func formatScore(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}

// splitList splits a comma-separated flag value, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func mustString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}
