package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Dosada05/nations-league/commentary"
	"github.com/Dosada05/nations-league/livestream"
	"github.com/Dosada05/nations-league/models"
	"github.com/Dosada05/nations-league/repositories"
	"github.com/Dosada05/nations-league/simulation"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTeam(id, country string, skill int) *models.Team {
	layout := []struct {
		pos   models.Position
		count int
	}{
		{models.PositionGK, 3},
		{models.PositionDF, 8},
		{models.PositionMD, 7},
		{models.PositionAT, 5},
	}
	players := make([]models.Player, 0, models.RosterSize)
	for _, l := range layout {
		for i := 0; i < l.count; i++ {
			players = append(players, models.Player{
				Name:            fmt.Sprintf("%s %s%d", country, l.pos, i+1),
				NaturalPosition: l.pos,
				Ratings:         map[models.Position]int{l.pos: skill},
			})
		}
	}
	players[len(players)-1].IsCaptain = true
	return &models.Team{ID: id, Country: country, Email: id + "@fa.example", Players: players}
}

func rosterInput() []PlayerInput {
	team := testTeam("x", "X", 50)
	in := make([]PlayerInput, len(team.Players))
	for i, p := range team.Players {
		in[i] = PlayerInput{Name: p.Name, NaturalPosition: p.NaturalPosition, IsCaptain: p.IsCaptain}
	}
	return in
}

type fakeTeamRepo struct {
	mu        sync.Mutex
	teams     map[string]*models.Team
	order     []string
	createErr error
}

func newFakeTeamRepo(teams ...*models.Team) *fakeTeamRepo {
	r := &fakeTeamRepo{teams: make(map[string]*models.Team)}
	for _, t := range teams {
		r.teams[t.ID] = t
		r.order = append(r.order, t.ID)
	}
	return r
}

func (r *fakeTeamRepo) Create(_ context.Context, _ repositories.SQLExecutor, team *models.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, t := range r.teams {
		if t.Country == team.Country {
			return repositories.ErrTeamCountryConflict
		}
	}
	team.RegisteredAt = time.Now()
	r.teams[team.ID] = team
	r.order = append(r.order, team.ID)
	return nil
}

func (r *fakeTeamRepo) GetByID(_ context.Context, id string) (*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	return t, nil
}

func (r *fakeTeamRepo) List(context.Context) ([]*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Team
	for _, id := range r.order {
		if t, ok := r.teams[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTeamRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.teams[id]; !ok {
		return repositories.ErrTeamNotFound
	}
	delete(r.teams, id)
	return nil
}

type fakeBracketRepo struct {
	mu    sync.Mutex
	b     *models.Bracket
	saves int
}

func newFakeBracketRepo() *fakeBracketRepo {
	return &fakeBracketRepo{b: models.NewBracket()}
}

func (r *fakeBracketRepo) Get(context.Context) (*models.Bracket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.b.Clone(), nil
}

func (r *fakeBracketRepo) Save(_ context.Context, _ repositories.SQLExecutor, b *models.Bracket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.b = b.Clone()
	r.saves++
	return nil
}

type fakeMatchRepo struct {
	mu        sync.Mutex
	records   []*models.MatchRecord
	createErr error
}

func (r *fakeMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, rec *models.MatchRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	rec.ID = len(r.records) + 1
	rec.PlayedAt = time.Now()
	r.records = append(r.records, rec)
	return nil
}

func (r *fakeMatchRepo) List(context.Context) ([]*models.MatchRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.MatchRecord, len(r.records))
	copy(out, r.records)
	return out, nil
}

// fakeTx restores the bracket when fn fails, like a rolled back transaction.
type fakeTx struct {
	brackets *fakeBracketRepo
}

func (tx *fakeTx) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	var snapshot *models.Bracket
	if tx.brackets != nil {
		snapshot, _ = tx.brackets.Get(ctx)
	}
	if err := fn(nil); err != nil {
		if snapshot != nil {
			_ = tx.brackets.Save(ctx, nil, snapshot)
		}
		return err
	}
	return nil
}

type recordingSink struct {
	mu       sync.Mutex
	brackets []*models.Bracket
	records  []*models.MatchRecord
	live     []livestream.Event
}

func (s *recordingSink) BracketUpdated(_ context.Context, b *models.Bracket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.brackets = append(s.brackets, b)
}

func (s *recordingSink) MatchRecorded(_ context.Context, rec *models.MatchRecord, _ *models.Bracket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
}

func (s *recordingSink) LiveEvent(_ context.Context, ev livestream.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = append(s.live, ev)
}

// env is a fully wired service stack over in-memory repositories.
type env struct {
	teams      *fakeTeamRepo
	bracket    *fakeBracketRepo
	matches    *fakeMatchRepo
	sink       *recordingSink
	tournament TournamentService
	match      MatchService
}

func eightTeams() []*models.Team {
	countries := []string{"Spain", "France", "Germany", "Italy", "Portugal", "England", "Netherlands", "Croatia"}
	teams := make([]*models.Team, len(countries))
	for i, c := range countries {
		teams[i] = testTeam(fmt.Sprintf("t%d", i+1), c, 40+5*i)
	}
	return teams
}

func newEnv(t *testing.T, teams ...*models.Team) *env {
	t.Helper()
	e := &env{
		teams:   newFakeTeamRepo(teams...),
		bracket: newFakeBracketRepo(),
		matches: &fakeMatchRepo{},
		sink:    &recordingSink{},
	}
	tx := &fakeTx{brackets: e.bracket}
	logger := discardLogger()

	e.tournament = NewTournamentService(e.teams, e.bracket, e.matches, tx, e.sink, logger)
	e.tournament.(*tournamentService).seed = func() int64 { return 11 }

	sim, err := simulation.NewSimulator(simulation.DefaultConfig())
	require.NoError(t, err)
	controller := livestream.NewController(sim, commentary.NewTemplate(), 0, logger)
	e.match = NewMatchService(e.teams, e.matches, e.tournament, controller, commentary.NewTemplate(), e.sink, logger)
	e.match.(*matchService).seed = func() int64 { return 5 }
	return e
}

func (e *env) start(t *testing.T) *models.Bracket {
	t.Helper()
	b, err := e.tournament.Start(context.Background(), StartTournamentInput{})
	require.NoError(t, err)
	return b
}

// fixtureAt returns the simulate input for the slot at ref.
func fixtureAt(b *models.Bracket, ref models.SlotRef) SimulateMatchInput {
	slot := b.Slot(ref)
	return SimulateMatchInput{Team1ID: slot.Team1.ID, Team2ID: slot.Team2.ID, MatchType: ref.Round}
}
