package brackets

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/Dosada05/nations-league/models"
)

var (
	ErrAlreadyStarted    = errors.New("tournament already started")
	ErrNotActive         = errors.New("tournament is not active")
	ErrTeamCount         = fmt.Errorf("bracket needs exactly %d teams", models.BracketTeams)
	ErrDuplicateTeam     = errors.New("team appears more than once")
	ErrInvalidSlot       = errors.New("invalid bracket slot")
	ErrSlotNotFound      = errors.New("no bracket slot for these teams")
	ErrSlotNotPlayable   = errors.New("bracket slot is not playable")
	ErrSlotAlreadyPlayed = errors.New("bracket slot already has a result")
	ErrTeamsMismatch     = errors.New("result teams do not match the slot")
	ErrInvalidWinner     = errors.New("result winner is not consistent with the match")
)

var now = func() time.Time { return time.Now().UTC() }

// Initialize pairs eight distinct teams at random into the quarter finals and
// activates the bracket.
func Initialize(b *models.Bracket, teams []models.TeamRef, rng *rand.Rand) error {
	if b.Status != models.BracketNotStarted {
		return ErrAlreadyStarted
	}
	if len(teams) != models.BracketTeams {
		return fmt.Errorf("%w: got %d", ErrTeamCount, len(teams))
	}
	seen := make(map[string]bool, len(teams))
	for _, t := range teams {
		if t.ID == "" || seen[t.ID] {
			return fmt.Errorf("%w: %q", ErrDuplicateTeam, t.Country)
		}
		seen[t.ID] = true
	}

	drawn := make([]models.TeamRef, len(teams))
	copy(drawn, teams)
	rng.Shuffle(len(drawn), func(i, j int) { drawn[i], drawn[j] = drawn[j], drawn[i] })

	fresh := models.NewBracket()
	for i := range fresh.QuarterFinals {
		t1, t2 := drawn[2*i], drawn[2*i+1]
		fresh.QuarterFinals[i].Team1 = &t1
		fresh.QuarterFinals[i].Team2 = &t2
	}
	started := now()
	fresh.Status = models.BracketActive
	fresh.StartedAt = &started

	*b = *fresh
	return nil
}

// ApplyResult records result in the slot at ref and advances the winner when
// the next slot's feeders are both decided. Every check runs before the
// bracket is touched, so a returned error leaves b unchanged.
func ApplyResult(b *models.Bracket, ref models.SlotRef, result *models.MatchResult) error {
	if b.Status != models.BracketActive {
		return ErrNotActive
	}
	slot, err := Slot(b, ref)
	if err != nil {
		return err
	}
	if slot.Terminal() {
		return fmt.Errorf("%w: %s", ErrSlotAlreadyPlayed, ref)
	}
	if !slot.Playable() {
		return fmt.Errorf("%w: %s", ErrSlotNotPlayable, ref)
	}
	if result == nil || !result.Involves(slot.Team1.ID, slot.Team2.ID) {
		return fmt.Errorf("%w: %s", ErrTeamsMismatch, ref)
	}
	if err := validateWinner(result); err != nil {
		return err
	}

	slot.Result = result

	next, ok := Next(ref)
	if !ok {
		done := now()
		b.Status = models.BracketCompleted
		b.CompletedAt = &done
		return nil
	}

	feeders := Feeders(next)
	first, second := b.Slot(feeders[0]), b.Slot(feeders[1])
	if first.Terminal() && second.Terminal() {
		w1, w2 := *first.Result.Winner(), *second.Result.Winner()
		target := b.Slot(next)
		target.Team1 = &w1
		target.Team2 = &w2
	}
	return nil
}

func validateWinner(r *models.MatchResult) error {
	if r.Winner() == nil {
		return fmt.Errorf("%w: winner %q", ErrInvalidWinner, r.WinnerTeamID)
	}
	scored, conceded := r.GoalsFor(r.WinnerTeamID)
	if r.WentToPenalties {
		if scored != conceded || r.PenaltyScore == nil {
			return fmt.Errorf("%w: shoot-out after a decided match", ErrInvalidWinner)
		}
		won, lost := r.PenaltyScore.Team1, r.PenaltyScore.Team2
		if r.WinnerTeamID == r.Team2.ID {
			won, lost = lost, won
		}
		if won <= lost {
			return fmt.Errorf("%w: shoot-out lost by the winner", ErrInvalidWinner)
		}
		return nil
	}
	if scored <= conceded {
		return fmt.Errorf("%w: %s did not outscore the opponent", ErrInvalidWinner, r.Winner().Country)
	}
	return nil
}

// Reset clears every slot and returns the bracket to not started.
func Reset(b *models.Bracket) {
	*b = *models.NewBracket()
}

// Slot returns the slot at ref, or ErrInvalidSlot.
func Slot(b *models.Bracket, ref models.SlotRef) (*models.BracketSlot, error) {
	s := b.Slot(ref)
	if s == nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSlot, ref)
	}
	return s, nil
}

// FindSlot locates the slot of the given round holding both teams, in either order.
func FindSlot(b *models.Bracket, round models.Round, teamA, teamB string) (models.SlotRef, error) {
	if teamA == teamB {
		return models.SlotRef{}, fmt.Errorf("%w: same team twice", ErrSlotNotFound)
	}
	for _, s := range b.Slots() {
		if s.Ref.Round == round && s.Holds(teamA) && s.Holds(teamB) {
			return s.Ref, nil
		}
	}
	return models.SlotRef{}, fmt.Errorf("%w: %s", ErrSlotNotFound, round.Title())
}

// Next returns the slot the winner of ref advances to; the final has none.
func Next(ref models.SlotRef) (models.SlotRef, bool) {
	switch ref.Round {
	case models.RoundQuarterFinal:
		return models.SemiFinal(ref.Index / 2), true
	case models.RoundSemiFinal:
		return models.SlotFinal, true
	}
	return models.SlotRef{}, false
}

// Feeders returns the two slots whose winners meet in ref.
func Feeders(ref models.SlotRef) [2]models.SlotRef {
	switch ref.Round {
	case models.RoundSemiFinal:
		return [2]models.SlotRef{models.QuarterFinal(2 * ref.Index), models.QuarterFinal(2*ref.Index + 1)}
	case models.RoundFinal:
		return [2]models.SlotRef{models.SemiFinal(0), models.SemiFinal(1)}
	}
	return [2]models.SlotRef{}
}

// PlayableSlots lists the slots that can take a result right now.
func PlayableSlots(b *models.Bracket) []models.SlotRef {
	var refs []models.SlotRef
	for _, s := range b.Slots() {
		if s.Playable() {
			refs = append(refs, s.Ref)
		}
	}
	return refs
}
