package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// RosterSize is the exact number of players a registered team carries.
const RosterSize = 23

type Position string

const (
	PositionGK Position = "GK"
	PositionDF Position = "DF"
	PositionMD Position = "MD"
	PositionAT Position = "AT"
)

// Positions lists every position in roster display order.
var Positions = []Position{PositionGK, PositionDF, PositionMD, PositionAT}

func (p Position) Valid() bool {
	switch p {
	case PositionGK, PositionDF, PositionMD, PositionAT:
		return true
	}
	return false
}

var (
	ErrRosterSize      = fmt.Errorf("team must have exactly %d players", RosterSize)
	ErrCaptainCount    = errors.New("team must have exactly one captain")
	ErrInvalidPosition = errors.New("player has an invalid natural position")
	ErrPlayerName      = errors.New("player name is required")
	ErrCountry         = errors.New("country is required")
)

type Player struct {
	Name            string           `json:"name"`
	NaturalPosition Position         `json:"naturalPosition"`
	IsCaptain       bool             `json:"isCaptain"`
	Ratings         map[Position]int `json:"ratings,omitempty"`
}

// Skill returns the player's rating at their natural position.
func (p Player) Skill() int {
	return p.Ratings[p.NaturalPosition]
}

type Team struct {
	ID             string    `json:"id" db:"id"`
	Country        string    `json:"country" db:"country"`
	Manager        string    `json:"manager" db:"manager"`
	Representative string    `json:"representative" db:"representative"`
	Email          string    `json:"email" db:"email"`
	Rating         float64   `json:"rating" db:"rating"`
	RegisteredAt   time.Time `json:"registered_at" db:"registered_at"`

	Players []Player `json:"players" db:"-"`
}

// Ref returns the read-only reference that bracket slots and results hold.
func (t *Team) Ref() TeamRef {
	return TeamRef{ID: t.ID, Country: t.Country}
}

// Captain returns the captain, or nil when the roster has none.
func (t *Team) Captain() *Player {
	for i := range t.Players {
		if t.Players[i].IsCaptain {
			return &t.Players[i]
		}
	}
	return nil
}

// ValidateRoster checks the roster invariants a registered team must hold.
func ValidateRoster(players []Player) error {
	if len(players) != RosterSize {
		return fmt.Errorf("%w: got %d", ErrRosterSize, len(players))
	}
	captains := 0
	for i, p := range players {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%w (player #%d)", ErrPlayerName, i+1)
		}
		if !p.NaturalPosition.Valid() {
			return fmt.Errorf("%w: %q (player %s)", ErrInvalidPosition, p.NaturalPosition, p.Name)
		}
		if p.IsCaptain {
			captains++
		}
	}
	if captains != 1 {
		return fmt.Errorf("%w: got %d", ErrCaptainCount, captains)
	}
	return nil
}

// NewTeam builds an unregistered team after validating its roster. ID, rating
// and registration time are assigned by the caller.
func NewTeam(country, manager, representative, email string, players []Player) (*Team, error) {
	if strings.TrimSpace(country) == "" {
		return nil, ErrCountry
	}
	if err := ValidateRoster(players); err != nil {
		return nil, err
	}
	return &Team{
		Country:        strings.TrimSpace(country),
		Manager:        strings.TrimSpace(manager),
		Representative: strings.TrimSpace(representative),
		Email:          strings.TrimSpace(email),
		Players:        players,
	}, nil
}

// TeamRef identifies a team inside brackets and match results.
type TeamRef struct {
	ID      string `json:"id"`
	Country string `json:"country"`
}

func (r *TeamRef) Is(id string) bool {
	return r != nil && r.ID == id
}
