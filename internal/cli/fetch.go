package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/umq7573/streaky-shooter/internal/cache"
	"github.com/umq7573/streaky-shooter/internal/nba"
)

// Cache namespaces. shot_charts holds shot-level records, league_leaders
// ranked lists, career_stats per-player summaries, player_index the
// league-wide name/id directory.
const (
	nsShotCharts    = "shot_charts"
	nsLeagueLeaders = "league_leaders"
	nsCareerStats   = "career_stats"
	nsPlayerIndex   = "player_index"
)

// fetchTyped routes a request through the cache and decodes the payload.
func fetchTyped[T any](a *app, ns string, params map[string]any, sctx cache.SeasonContext, fetch cache.FetchFunc) (T, error) {
	var out T
	data, _, err := a.manager.GetOrFetch(ns, params, sctx, fetch, a.opts)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decoding cached %s payload: %w", ns, err)
	}
	return out, nil
}

func (a *app) shotChart(ctx context.Context, playerID, teamID int, season, seasonType, shotType string) ([]nba.Shot, error) {
	return fetchTyped[[]nba.Shot](a, nsShotCharts, map[string]any{
		"player_id":   playerID,
		"season":      season,
		"season_type": seasonType,
		"shot_type":   shotType,
	}, nba.SeasonContext(season, time.Now()), func() (any, error) {
		return a.client.ShotChart(ctx, playerID, teamID, season, seasonType, shotType)
	})
}

func (a *app) leagueLeaders(ctx context.Context, season, seasonType, stat string) ([]nba.Leader, error) {
	return fetchTyped[[]nba.Leader](a, nsLeagueLeaders, map[string]any{
		"season":      season,
		"season_type": seasonType,
		"stat":        stat,
	}, nba.SeasonContext(season, time.Now()), func() (any, error) {
		return a.client.LeagueLeaders(ctx, season, seasonType, stat)
	})
}

func (a *app) careerStats(ctx context.Context, playerID int) ([]nba.CareerSeason, error) {
	return fetchTyped[[]nba.CareerSeason](a, nsCareerStats, map[string]any{
		"player_id": playerID,
	}, cache.ContextNone, func() (any, error) {
		return a.client.CareerStats(ctx, playerID)
	})
}

// allPlayers caches the league-wide player directory, keyed by the season
// in progress so the index refreshes across seasons.
func (a *app) allPlayers(ctx context.Context) ([]nba.Player, error) {
	return fetchTyped[[]nba.Player](a, nsPlayerIndex, map[string]any{
		"season": nba.CurrentSeason(time.Now()),
	}, cache.ContextNone, func() (any, error) {
		return a.client.AllPlayers(ctx)
	})
}

// teamIDFor resolves the player's team in a season through the cached
// career stats; 0 (all teams) when unknown, which the shot chart endpoint
// accepts.
func (a *app) teamIDFor(ctx context.Context, playerID int, season string) int {
	seasons, err := a.careerStats(ctx, playerID)
	if err != nil {
		a.logger.Warn().Err(err).Int("player_id", playerID).Str("season", season).
			Msg("could not resolve team id, querying all teams")
		return 0
	}
	return nba.TeamIDForSeason(seasons, season)
}
