package commentary

import (
	"context"
	"fmt"
	"strings"

	"github.com/Dosada05/nations-league/models"
)

// Template is the deterministic generator: the same moment always produces
// the same line.
type Template struct{}

func NewTemplate() *Template {
	return &Template{}
}

func (t *Template) Name() string {
	return "template"
}

var templates = map[Kind][]string{
	KindKickoff: {
		"And we're underway! {t1} get us started against {t2}.",
		"The referee blows the whistle and {t1} versus {t2} is on!",
	},
	KindRegular: {
		"{t1} probing down the left, but {t2} hold their shape.",
		"A spell of patient possession for {t2} in midfield.",
		"Corner kick! The delivery is cleared at the near post.",
		"Half-chance there, the shot flies just wide of the upright.",
		"The tempo drops as both sides catch their breath. {s1}-{s2}.",
	},
	KindHalftime: {
		"Half-time: {t1} {s1}-{s2} {t2}.",
		"The whistle goes for the break with the score at {s1}-{s2}.",
	},
	KindSecondHalf: {
		"The second half is underway, {t1} {s1}-{s2} {t2}.",
		"We go again! Forty-five minutes to settle it.",
	},
	KindFulltime: {
		"Full-time! {t1} {s1}-{s2} {t2}.",
		"That's it, the referee ends it at {s1}-{s2}.",
	},
	KindGoal: {
		"GOAL! {scorer} finds the net for {team}! {s1}-{s2}.",
		"{scorer} scores for {team} on {minute} minutes! {s1}-{s2}.",
		"What a finish from {scorer}! {team} celebrate, {s1}-{s2}.",
	},
	KindExtraTime: {
		"Level at {s1}-{s2}, so we head into extra time.",
		"Thirty more minutes to separate {t1} and {t2}.",
	},
	KindPenalties: {
		"Still {s1}-{s2} after 120 minutes. It goes to penalties!",
		"Nothing to separate them. A shoot-out will decide it.",
	},
}

func (t *Template) Line(_ context.Context, m Moment) (string, error) {
	variants, ok := templates[m.Kind]
	if !ok {
		return "", fmt.Errorf("no commentary template for %q", m.Kind)
	}
	pick := (m.Minute + m.Score1 + m.Score2 + len(m.Scorer)) % len(variants)
	return expand(variants[pick], m), nil
}

// Summary narrates a finished result as kickoff, goals, interval and final lines.
func (t *Template) Summary(ctx context.Context, r *models.MatchResult) ([]string, error) {
	if r == nil {
		return nil, fmt.Errorf("no result to summarize")
	}
	base := Moment{Team1: r.Team1.Country, Team2: r.Team2.Country}
	var lines []string
	add := func(m Moment) {
		line, _ := t.Line(ctx, m)
		lines = append(lines, fmt.Sprintf("%d' %s", m.Minute, line))
	}

	m := base
	m.Kind = KindKickoff
	add(m)

	halftimeDone, extraDone := false, false
	for _, g := range r.GoalEvents {
		if g.Minute > 45 && !halftimeDone {
			m.Kind, m.Minute = KindHalftime, 45
			add(m)
			halftimeDone = true
		}
		if g.Minute > 90 && !extraDone {
			m.Kind, m.Minute = KindExtraTime, 90
			add(m)
			extraDone = true
		}
		if g.TeamID == r.Team1.ID {
			m.Score1++
		} else {
			m.Score2++
		}
		m.Kind, m.Minute, m.Scorer, m.ScoringTeam = KindGoal, g.Minute, g.Scorer, g.Team
		add(m)
	}
	m.Scorer, m.ScoringTeam = "", ""
	if !halftimeDone {
		m.Kind, m.Minute = KindHalftime, 45
		add(m)
	}
	if r.WentToExtraTime && !extraDone {
		m.Kind, m.Minute = KindExtraTime, 90
		add(m)
	}
	if r.WentToPenalties {
		m.Kind, m.Minute = KindPenalties, 120
		add(m)
	}

	last := 90
	if r.WentToExtraTime {
		last = 120
	}
	m.Kind, m.Minute = KindFulltime, last
	add(m)

	if w := r.Winner(); w != nil {
		lines = append(lines, fmt.Sprintf("%s win %s.", w.Country, r.ScoreDisplay()))
	}
	return lines, nil
}

func expand(tpl string, m Moment) string {
	r := []string{
		"{t1}", m.Team1,
		"{t2}", m.Team2,
		"{s1}", fmt.Sprint(m.Score1),
		"{s2}", fmt.Sprint(m.Score2),
		"{scorer}", m.Scorer,
		"{team}", m.ScoringTeam,
		"{minute}", fmt.Sprint(m.Minute),
	}
	return strings.NewReplacer(r...).Replace(tpl)
}
