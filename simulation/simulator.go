package simulation

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/Dosada05/nations-league/models"
)

var (
	ErrTeamNotRegistered = errors.New("team is not registered")
	ErrSameTeam          = errors.New("a team cannot play itself")
	ErrInvalidConfig     = errors.New("invalid simulation config")
)

const (
	RegularMinutes   = 90
	ExtraTimeMinutes = 120
	ShootoutRounds   = 5
)

// pcgStream is the fixed second word of every PCG state so that a single
// int64 seed fully determines the source.
const pcgStream = 0x9e3779b97f4a7c15

type Config struct {
	// ExpectedGoals is the number of goals two equal sides score on average in 90 minutes.
	ExpectedGoals float64
	// ExtraTimeIntensity scales per-minute probabilities in minutes 91..120.
	ExtraTimeIntensity float64
	// PenaltyConversion is the probability of any single spot kick going in.
	PenaltyConversion float64
}

func DefaultConfig() Config {
	return Config{
		ExpectedGoals:      2.7,
		ExtraTimeIntensity: 0.6,
		PenaltyConversion:  0.75,
	}
}

func (c Config) Validate() error {
	if c.ExpectedGoals <= 0 || c.ExpectedGoals > RegularMinutes {
		return fmt.Errorf("%w: expected goals %.2f", ErrInvalidConfig, c.ExpectedGoals)
	}
	if c.ExtraTimeIntensity < 0 || c.ExtraTimeIntensity > 1 {
		return fmt.Errorf("%w: extra time intensity %.2f", ErrInvalidConfig, c.ExtraTimeIntensity)
	}
	if c.PenaltyConversion <= 0 || c.PenaltyConversion >= 1 {
		return fmt.Errorf("%w: penalty conversion %.2f", ErrInvalidConfig, c.PenaltyConversion)
	}
	return nil
}

// Simulator turns two rosters into a knockout result. It holds no mutable
// state and is safe for concurrent use.
type Simulator struct {
	cfg Config
}

func NewSimulator(cfg Config) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Simulator{cfg: cfg}, nil
}

func (s *Simulator) Config() Config {
	return s.cfg
}

// NewRand returns the generator every draw of a seeded simulation goes through.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), pcgStream))
}

// Simulate plays a full knockout match. The same teams, match type and seed
// always yield the same result.
func (s *Simulator) Simulate(team1, team2 *models.Team, matchType models.Round, seed int64) (*models.MatchResult, error) {
	for _, team := range []*models.Team{team1, team2} {
		if team == nil || team.ID == "" {
			return nil, ErrTeamNotRegistered
		}
		if err := models.ValidateRoster(team.Players); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrTeamNotRegistered, team.Country, err)
		}
	}
	if team1.ID == team2.ID {
		return nil, fmt.Errorf("%w: %s", ErrSameTeam, team1.Country)
	}
	if !matchType.Valid() {
		return nil, fmt.Errorf("%w: unknown match type %q", ErrInvalidConfig, matchType)
	}

	rng := NewRand(seed)
	m := &match{
		rng:     rng,
		team1:   team1,
		team2:   team2,
		scorers: [2][]string{outfieldNames(team1), outfieldNames(team2)},
		result: &models.MatchResult{
			MatchType:  matchType,
			Seed:       seed,
			Team1:      team1.Ref(),
			Team2:      team2.Ref(),
			GoalEvents: make([]models.GoalEvent, 0),
		},
	}

	p1, p2 := s.minuteProbabilities(Rating(team1), Rating(team2))
	for minute := 1; minute <= RegularMinutes; minute++ {
		m.playMinute(minute, p1, p2)
	}

	r := m.result
	if r.Team1Goals == r.Team2Goals {
		r.WentToExtraTime = true
		et1, et2 := p1*s.cfg.ExtraTimeIntensity, p2*s.cfg.ExtraTimeIntensity
		for minute := RegularMinutes + 1; minute <= ExtraTimeMinutes; minute++ {
			m.playMinute(minute, et1, et2)
		}
	}

	switch {
	case r.Team1Goals > r.Team2Goals:
		r.WinnerTeamID = team1.ID
	case r.Team2Goals > r.Team1Goals:
		r.WinnerTeamID = team2.ID
	default:
		m.shootout(s.cfg.PenaltyConversion)
	}
	return r, nil
}

// minuteProbabilities splits the expected goals by rating share.
func (s *Simulator) minuteProbabilities(r1, r2 float64) (float64, float64) {
	share1 := 0.5
	if r1+r2 > 0 {
		share1 = r1 / (r1 + r2)
	}
	perMinute := s.cfg.ExpectedGoals / RegularMinutes
	return perMinute * share1, perMinute * (1 - share1)
}

type match struct {
	rng          *rand.Rand
	team1, team2 *models.Team
	scorers      [2][]string
	result       *models.MatchResult
}

func (m *match) playMinute(minute int, p1, p2 float64) {
	if m.rng.Float64() < p1 {
		m.goal(minute, 0)
	}
	if m.rng.Float64() < p2 {
		m.goal(minute, 1)
	}
}

func (m *match) goal(minute, side int) {
	team := m.team1
	if side == 1 {
		team = m.team2
	}
	names := m.scorers[side]
	scorer := team.Country
	if len(names) > 0 {
		scorer = names[m.rng.IntN(len(names))]
	}

	m.result.GoalEvents = append(m.result.GoalEvents, models.GoalEvent{
		Minute: minute,
		TeamID: team.ID,
		Team:   team.Country,
		Scorer: scorer,
	})
	if side == 0 {
		m.result.Team1Goals++
	} else {
		m.result.Team2Goals++
	}
}

// shootout runs best-of-five penalties, stopping as soon as one side cannot
// be caught, then sudden death until a round ends with one side ahead.
func (m *match) shootout(conversion float64) {
	r := m.result
	r.WentToPenalties = true
	score := &models.PenaltyScore{}
	r.PenaltyScore = score

	kick := func(round, side int, suddenDeath bool) {
		scored := m.rng.Float64() < conversion
		teamID := m.team1.ID
		if side == 1 {
			teamID = m.team2.ID
		}
		if scored {
			if side == 0 {
				score.Team1++
			} else {
				score.Team2++
			}
		}
		r.PenaltyKicks = append(r.PenaltyKicks, models.PenaltyKick{
			Round:       round,
			TeamID:      teamID,
			Scored:      scored,
			SuddenDeath: suddenDeath,
		})
	}

	decided := false
	for round := 1; round <= ShootoutRounds && !decided; round++ {
		kick(round, 0, false)
		if uncatchable(score, round, round-1) {
			decided = true
			break
		}
		kick(round, 1, false)
		decided = uncatchable(score, round, round)
	}

	for round := ShootoutRounds + 1; !decided; round++ {
		kick(round, 0, true)
		kick(round, 1, true)
		decided = score.Team1 != score.Team2
	}

	if score.Team1 > score.Team2 {
		r.WinnerTeamID = m.team1.ID
	} else {
		r.WinnerTeamID = m.team2.ID
	}
}

// uncatchable reports whether either side leads by more than the other has
// kicks left within the regulation rounds.
func uncatchable(score *models.PenaltyScore, taken1, taken2 int) bool {
	left1 := ShootoutRounds - taken1
	left2 := ShootoutRounds - taken2
	return score.Team1 > score.Team2+left2 || score.Team2 > score.Team1+left1
}

func outfieldNames(team *models.Team) []string {
	names := make([]string, 0, len(team.Players))
	for _, p := range team.Players {
		if p.NaturalPosition != models.PositionGK {
			names = append(names, p.Name)
		}
	}
	if len(names) == 0 {
		for _, p := range team.Players {
			names = append(names, p.Name)
		}
	}
	return names
}
