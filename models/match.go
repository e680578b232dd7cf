package models

import (
	"fmt"
	"time"
)

// Round is the knockout stage a match belongs to. It doubles as the
// match_type of the simulation API.
type Round string

const (
	RoundQuarterFinal Round = "quarterFinal"
	RoundSemiFinal    Round = "semiFinal"
	RoundFinal        Round = "final"
)

func (r Round) Valid() bool {
	switch r {
	case RoundQuarterFinal, RoundSemiFinal, RoundFinal:
		return true
	}
	return false
}

// Title is the human readable round name used in history and e-mails.
func (r Round) Title() string {
	switch r {
	case RoundQuarterFinal:
		return "Quarter Final"
	case RoundSemiFinal:
		return "Semi Final"
	case RoundFinal:
		return "Final"
	}
	return string(r)
}

type GoalEvent struct {
	Minute int    `json:"minute"`
	TeamID string `json:"team_id"`
	Team   string `json:"team"`
	Scorer string `json:"scorer"`
}

type PenaltyKick struct {
	Round       int    `json:"round"`
	TeamID      string `json:"team_id"`
	Scored      bool   `json:"scored"`
	SuddenDeath bool   `json:"sudden_death"`
}

type PenaltyScore struct {
	Team1 int `json:"team1"`
	Team2 int `json:"team2"`
}

type MatchResult struct {
	MatchType       Round         `json:"match_type"`
	Seed            int64         `json:"seed"`
	Team1           TeamRef       `json:"team1"`
	Team2           TeamRef       `json:"team2"`
	Team1Goals      int           `json:"team1_goals"`
	Team2Goals      int           `json:"team2_goals"`
	GoalEvents      []GoalEvent   `json:"goal_events"`
	WinnerTeamID    string        `json:"winner_team_id"`
	WentToExtraTime bool          `json:"went_to_extra_time"`
	WentToPenalties bool          `json:"went_to_penalties"`
	PenaltyScore    *PenaltyScore `json:"penalty_score,omitempty"`
	PenaltyKicks    []PenaltyKick `json:"penalty_kicks,omitempty"`
}

// Winner returns the reference of the winning side, or nil while undecided.
func (r *MatchResult) Winner() *TeamRef {
	switch r.WinnerTeamID {
	case "":
		return nil
	case r.Team1.ID:
		return &r.Team1
	case r.Team2.ID:
		return &r.Team2
	}
	return nil
}

// Loser returns the reference of the beaten side, or nil while undecided.
func (r *MatchResult) Loser() *TeamRef {
	switch r.WinnerTeamID {
	case r.Team1.ID:
		return &r.Team2
	case r.Team2.ID:
		return &r.Team1
	}
	return nil
}

// Involves reports whether the result was played between teams a and b in any order.
func (r *MatchResult) Involves(a, b string) bool {
	return (r.Team1.ID == a && r.Team2.ID == b) || (r.Team1.ID == b && r.Team2.ID == a)
}

// GoalsFor returns the goals scored and conceded by teamID in this match.
func (r *MatchResult) GoalsFor(teamID string) (scored, conceded int) {
	if r.Team1.ID == teamID {
		return r.Team1Goals, r.Team2Goals
	}
	return r.Team2Goals, r.Team1Goals
}

// Score is the plain "A-B" score line.
func (r *MatchResult) Score() string {
	return fmt.Sprintf("%d-%d", r.Team1Goals, r.Team2Goals)
}

// ScoreDisplay decorates the score with extra time or shoot-out details.
func (r *MatchResult) ScoreDisplay() string {
	switch {
	case r.WentToPenalties && r.PenaltyScore != nil:
		return fmt.Sprintf("%s (%d-%d pens)", r.Score(), r.PenaltyScore.Team1, r.PenaltyScore.Team2)
	case r.WentToExtraTime:
		return r.Score() + " (AET)"
	}
	return r.Score()
}

// MatchRecord is one row of the append-only match history.
type MatchRecord struct {
	ID         int          `json:"id" db:"id"`
	Slot       string       `json:"slot" db:"slot"`
	Result     *MatchResult `json:"result" db:"-"`
	PlayByPlay bool         `json:"play_by_play" db:"play_by_play"`
	Commentary []string     `json:"commentary" db:"commentary"`
	PlayedAt   time.Time    `json:"played_at" db:"played_at"`
}

type GoalScorer struct {
	Name   string `json:"name"`
	Team   string `json:"team"`
	TeamID string `json:"team_id"`
	Goals  int    `json:"goals"`
}

type TeamAnalytics struct {
	TeamID        string `json:"team_id"`
	TeamName      string `json:"team_name"`
	MatchesPlayed int    `json:"matches_played"`
	Wins          int    `json:"wins"`
	Losses        int    `json:"losses"`
	Draws         int    `json:"draws"`
	GoalsScored   int    `json:"goals_scored"`
	GoalsConceded int    `json:"goals_conceded"`
}
