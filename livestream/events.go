package livestream

import (
	"encoding/json"

	"github.com/Dosada05/nations-league/commentary"
	"github.com/Dosada05/nations-league/models"
)

type EventType string

const (
	EventMatchStart    EventType = "match_start"
	EventTimeUpdate    EventType = "time_update"
	EventCommentary    EventType = "commentary"
	EventGoal          EventType = "goal"
	EventPenalty       EventType = "penalty"
	EventMatchComplete EventType = "match_complete"
	EventError         EventType = "error"
)

// Scoreline is a running team1/team2 tally, of goals or of spot kicks.
type Scoreline struct {
	Team1 int `json:"team1"`
	Team2 int `json:"team2"`
}

// Event is one message of a live stream. Which fields are set depends on
// Type; MarshalJSON writes only those.
type Event struct {
	Type   EventType
	Minute int

	Team1 models.TeamRef
	Team2 models.TeamRef

	Text           string
	CommentaryType commentary.Kind

	Goal  *models.GoalEvent
	Score Scoreline

	Kick      *models.PenaltyKick
	KickTeam  string
	Penalties Scoreline

	Result *models.MatchResult
	Slot   string

	Err string
}

type goalScorerJSON struct {
	Scorer string `json:"scorer"`
	Team   string `json:"team"`
	TeamID string `json:"team_id"`
	Minute int    `json:"minute"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EventMatchStart:
		return json.Marshal(struct {
			Type   EventType      `json:"type"`
			Team1  models.TeamRef `json:"team1"`
			Team2  models.TeamRef `json:"team2"`
			Minute int            `json:"minute"`
		}{e.Type, e.Team1, e.Team2, e.Minute})

	case EventTimeUpdate:
		return json.Marshal(struct {
			Type   EventType `json:"type"`
			Minute int       `json:"minute"`
		}{e.Type, e.Minute})

	case EventCommentary:
		return json.Marshal(struct {
			Type           EventType       `json:"type"`
			Minute         int             `json:"minute"`
			Text           string          `json:"text"`
			CommentaryType commentary.Kind `json:"commentary_type"`
		}{e.Type, e.Minute, e.Text, e.CommentaryType})

	case EventGoal:
		var g models.GoalEvent
		if e.Goal != nil {
			g = *e.Goal
		}
		return json.Marshal(struct {
			Type   EventType `json:"type"`
			Minute int       `json:"minute"`
			Team   string    `json:"team"`
			TeamID string    `json:"team_id"`
			Scorer string    `json:"scorer"`
			Score  Scoreline `json:"score"`
		}{e.Type, g.Minute, g.Team, g.TeamID, g.Scorer, e.Score})

	case EventPenalty:
		var k models.PenaltyKick
		if e.Kick != nil {
			k = *e.Kick
		}
		return json.Marshal(struct {
			Type        EventType `json:"type"`
			Team        string    `json:"team"`
			TeamID      string    `json:"team_id"`
			Scored      bool      `json:"scored"`
			SuddenDeath bool      `json:"sudden_death"`
			Penalties   Scoreline `json:"penalties"`
		}{e.Type, e.KickTeam, k.TeamID, k.Scored, k.SuddenDeath, e.Penalties})

	case EventMatchComplete:
		return json.Marshal(completePayload(e))

	case EventError:
		return json.Marshal(struct {
			Type  EventType `json:"type"`
			Error string    `json:"error"`
		}{e.Type, e.Err})
	}
	return json.Marshal(struct {
		Type EventType `json:"type"`
	}{e.Type})
}

type matchCompleteJSON struct {
	Type         EventType            `json:"type"`
	Team1        string               `json:"team1"`
	Team2        string               `json:"team2"`
	Team1ID      string               `json:"team1_id"`
	Team2ID      string               `json:"team2_id"`
	Team1Goals   int                  `json:"team1_goals"`
	Team2Goals   int                  `json:"team2_goals"`
	Score        string               `json:"score"`
	Winner       string               `json:"winner"`
	WinnerTeamID string               `json:"winner_team_id"`
	GoalScorers  []goalScorerJSON     `json:"goal_scorers"`
	Penalties    bool                 `json:"penalties"`
	PenaltyScore *models.PenaltyScore `json:"penalty_score,omitempty"`
	Slot         string               `json:"slot,omitempty"`
}

func completePayload(e Event) matchCompleteJSON {
	out := matchCompleteJSON{Type: e.Type, Slot: e.Slot, GoalScorers: []goalScorerJSON{}}
	r := e.Result
	if r == nil {
		return out
	}
	out.Team1, out.Team2 = r.Team1.Country, r.Team2.Country
	out.Team1ID, out.Team2ID = r.Team1.ID, r.Team2.ID
	out.Team1Goals, out.Team2Goals = r.Team1Goals, r.Team2Goals
	out.Score = r.Score()
	if w := r.Winner(); w != nil {
		out.Winner, out.WinnerTeamID = w.Country, w.ID
	}
	for _, g := range r.GoalEvents {
		out.GoalScorers = append(out.GoalScorers, goalScorerJSON{Scorer: g.Scorer, Team: g.Team, TeamID: g.TeamID, Minute: g.Minute})
	}
	out.Penalties = r.WentToPenalties
	out.PenaltyScore = r.PenaltyScore
	return out
}
