package services

import (
	"sort"

	"github.com/Dosada05/nations-league/models"
)

// GoalScorers ranks every scorer in records by goals, then by name.
func GoalScorers(records []*models.MatchRecord) []models.GoalScorer {
	type key struct{ teamID, name string }
	byScorer := make(map[key]*models.GoalScorer)

	for _, rec := range records {
		if rec.Result == nil {
			continue
		}
		for _, g := range rec.Result.GoalEvents {
			k := key{g.TeamID, g.Scorer}
			gs, ok := byScorer[k]
			if !ok {
				gs = &models.GoalScorer{Name: g.Scorer, Team: g.Team, TeamID: g.TeamID}
				byScorer[k] = gs
			}
			gs.Goals++
		}
	}

	scorers := make([]models.GoalScorer, 0, len(byScorer))
	for _, gs := range byScorer {
		scorers = append(scorers, *gs)
	}
	sort.Slice(scorers, func(i, j int) bool {
		if scorers[i].Goals != scorers[j].Goals {
			return scorers[i].Goals > scorers[j].Goals
		}
		if scorers[i].Name != scorers[j].Name {
			return scorers[i].Name < scorers[j].Name
		}
		return scorers[i].Team < scorers[j].Team
	})
	return scorers
}

// TeamAnalyticsFor totals the team's record over the history. A match level
// after extra time counts as a draw even though a shoot-out settled it.
func TeamAnalyticsFor(team *models.Team, records []*models.MatchRecord) models.TeamAnalytics {
	a := models.TeamAnalytics{TeamID: team.ID, TeamName: team.Country}
	for _, rec := range records {
		res := rec.Result
		if res == nil || (res.Team1.ID != team.ID && res.Team2.ID != team.ID) {
			continue
		}
		scored, conceded := res.GoalsFor(team.ID)
		a.MatchesPlayed++
		a.GoalsScored += scored
		a.GoalsConceded += conceded
		switch {
		case scored > conceded:
			a.Wins++
		case scored < conceded:
			a.Losses++
		default:
			a.Draws++
		}
	}
	return a
}
