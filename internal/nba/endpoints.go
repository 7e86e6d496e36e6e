package nba

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Shot is one field goal attempt, in chronological order fields.
type Shot struct {
	GameDate    string `json:"game_date"`
	GameID      string `json:"game_id"`
	GameEventID int    `json:"game_event_id"`
	ShotType    string `json:"shot_type"`
	Made        bool   `json:"made"`
}

// ShotChart fetches every field goal attempt for a player in a season,
// sorted chronologically (game date, game id, event id). teamID 0 means
// all teams. shotType filters to 2PT/3PT attempts; ShotTypeAll keeps both.
func (c *Client) ShotChart(ctx context.Context, playerID, teamID int, season, seasonType, shotType string) ([]Shot, error) {
	params := url.Values{}
	params.Set("TeamID", strconv.Itoa(teamID))
	params.Set("PlayerID", strconv.Itoa(playerID))
	params.Set("Season", season)
	params.Set("SeasonType", seasonType)
	// FGA rather than FGM so both made and missed shots come back.
	params.Set("ContextMeasure", "FGA")
	params.Set("LeagueID", "00")
	params.Set("LastNGames", "0")
	params.Set("Month", "0")
	params.Set("OpponentTeamID", "0")
	params.Set("Period", "0")
	for _, empty := range []string{
		"GameSegment", "DateFrom", "DateTo", "Location", "Outcome",
		"PlayerPosition", "RookieYear", "SeasonSegment", "VsConference", "VsDivision",
	} {
		params.Set(empty, "")
	}

	resp, err := c.get(ctx, "shotchartdetail", params)
	if err != nil {
		return nil, err
	}
	rs, err := firstResultSet(resp)
	if err != nil {
		return nil, err
	}

	dateCol := rs.column("GAME_DATE")
	gameCol := rs.column("GAME_ID")
	eventCol := rs.column("GAME_EVENT_ID")
	typeCol := rs.column("SHOT_TYPE")
	madeCol := rs.column("SHOT_MADE_FLAG")
	if dateCol < 0 || gameCol < 0 || eventCol < 0 || madeCol < 0 {
		return nil, fmt.Errorf("shotchartdetail response missing expected columns")
	}

	shots := make([]Shot, 0, len(rs.RowSet))
	for _, row := range rs.RowSet {
		shot := Shot{
			GameDate:    asString(row[dateCol]),
			GameID:      asString(row[gameCol]),
			GameEventID: asInt(row[eventCol]),
			Made:        asInt(row[madeCol]) == 1,
		}
		if typeCol >= 0 {
			shot.ShotType = asString(row[typeCol])
		}
		if shotType != ShotTypeAll && shot.ShotType != shotType {
			continue
		}
		shots = append(shots, shot)
	}

	sort.Slice(shots, func(a, b int) bool {
		if shots[a].GameDate != shots[b].GameDate {
			return shots[a].GameDate < shots[b].GameDate
		}
		if shots[a].GameID != shots[b].GameID {
			return shots[a].GameID < shots[b].GameID
		}
		return shots[a].GameEventID < shots[b].GameEventID
	})
	return shots, nil
}

// MadeFlags projects a shot list onto its make/miss sequence.
func MadeFlags(shots []Shot) []bool {
	flags := make([]bool, len(shots))
	for n, s := range shots {
		flags[n] = s.Made
	}
	return flags
}

// Leader is one row of a league-leaders table.
type Leader struct {
	PlayerID int     `json:"player_id"`
	Player   string  `json:"player"`
	Value    float64 `json:"value"`
}

// LeagueLeaders fetches the season's ranked player list for a stat
// category (e.g. "MIN"), totals per mode.
func (c *Client) LeagueLeaders(ctx context.Context, season, seasonType, stat string) ([]Leader, error) {
	params := url.Values{}
	params.Set("LeagueID", "00")
	params.Set("PerMode", "Totals")
	params.Set("Scope", "S")
	params.Set("Season", season)
	params.Set("SeasonType", seasonType)
	params.Set("StatCategory", stat)

	resp, err := c.get(ctx, "leagueleaders", params)
	if err != nil {
		return nil, err
	}
	rs, err := firstResultSet(resp)
	if err != nil {
		return nil, err
	}

	idCol := rs.column("PLAYER_ID")
	nameCol := rs.column("PLAYER")
	statCol := rs.column(stat)
	if idCol < 0 || nameCol < 0 || statCol < 0 {
		return nil, fmt.Errorf("leagueleaders response missing expected columns")
	}

	leaders := make([]Leader, 0, len(rs.RowSet))
	for _, row := range rs.RowSet {
		leaders = append(leaders, Leader{
			PlayerID: asInt(row[idCol]),
			Player:   asString(row[nameCol]),
			Value:    asFloat(row[statCol]),
		})
	}
	return leaders, nil
}

// CareerSeason is one season row of a player's career totals.
type CareerSeason struct {
	SeasonID string `json:"season_id"`
	TeamID   int    `json:"team_id"`
}

// CareerStats fetches a player's per-season career totals.
func (c *Client) CareerStats(ctx context.Context, playerID int) ([]CareerSeason, error) {
	params := url.Values{}
	params.Set("PlayerID", strconv.Itoa(playerID))
	params.Set("PerMode", "Totals")

	resp, err := c.get(ctx, "playercareerstats", params)
	if err != nil {
		return nil, err
	}
	rs, err := firstResultSet(resp)
	if err != nil {
		return nil, err
	}

	seasonCol := rs.column("SEASON_ID")
	teamCol := rs.column("TEAM_ID")
	if seasonCol < 0 || teamCol < 0 {
		return nil, fmt.Errorf("playercareerstats response missing expected columns")
	}

	seasons := make([]CareerSeason, 0, len(rs.RowSet))
	for _, row := range rs.RowSet {
		seasons = append(seasons, CareerSeason{
			SeasonID: asString(row[seasonCol]),
			TeamID:   asInt(row[teamCol]),
		})
	}
	return seasons, nil
}

// TeamIDForSeason returns the player's team id in the given season, or 0
// (all teams) when the season is absent.
func TeamIDForSeason(seasons []CareerSeason, season string) int {
	for _, s := range seasons {
		if s.SeasonID == season {
			return s.TeamID
		}
	}
	return 0
}

// Player is a resolved player identity.
type Player struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// AllPlayers fetches the all-time player index (every player, not just
// the current season's roster).
func (c *Client) AllPlayers(ctx context.Context) ([]Player, error) {
	params := url.Values{}
	params.Set("LeagueID", "00")
	params.Set("IsOnlyCurrentSeason", "0")
	params.Set("Season", CurrentSeason(c.now()))

	resp, err := c.get(ctx, "commonallplayers", params)
	if err != nil {
		return nil, err
	}
	rs, err := firstResultSet(resp)
	if err != nil {
		return nil, err
	}

	idCol := rs.column("PERSON_ID")
	nameCol := rs.column("DISPLAY_FIRST_LAST")
	if idCol < 0 || nameCol < 0 {
		return nil, fmt.Errorf("commonallplayers response missing expected columns")
	}

	players := make([]Player, 0, len(rs.RowSet))
	for _, row := range rs.RowSet {
		players = append(players, Player{ID: asInt(row[idCol]), Name: asString(row[nameCol])})
	}
	return players, nil
}

// MatchPlayer resolves a name against a player list. An exact
// case-insensitive match wins; otherwise the first substring match is
// used.
func MatchPlayer(players []Player, name string) (Player, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	var fallback *Player
	for _, candidate := range players {
		lower := strings.ToLower(candidate.Name)
		if lower == want {
			return candidate, nil
		}
		if fallback == nil && strings.Contains(lower, want) {
			p := candidate
			fallback = &p
		}
	}
	if fallback != nil {
		return *fallback, nil
	}
	return Player{}, fmt.Errorf("player %q not found", name)
}

// FindPlayer is AllPlayers followed by MatchPlayer, for callers that do
// not cache the index themselves.
func (c *Client) FindPlayer(ctx context.Context, name string) (Player, error) {
	players, err := c.AllPlayers(ctx)
	if err != nil {
		return Player{}, err
	}
	p, err := MatchPlayer(players, name)
	if err != nil {
		return Player{}, err
	}
	if !strings.EqualFold(p.Name, strings.TrimSpace(name)) {
		c.logger.Info().Str("requested", name).Str("matched", p.Name).
			Msg("no exact player match, using closest")
	}
	return p, nil
}
