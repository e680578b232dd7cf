package models

import (
	"fmt"
	"time"
)

type BracketStatus string

const (
	BracketNotStarted BracketStatus = "not_started"
	BracketActive     BracketStatus = "active"
	BracketCompleted  BracketStatus = "completed"
)

const (
	QuarterFinalCount = 4
	SemiFinalCount    = 2
	// BracketTeams is the number of teams a bracket is initialised with.
	BracketTeams = 2 * QuarterFinalCount
)

// SlotRef addresses one of the seven bracket slots.
type SlotRef struct {
	Round Round
	Index int
}

var (
	SlotFinal = SlotRef{Round: RoundFinal}
)

func QuarterFinal(i int) SlotRef { return SlotRef{Round: RoundQuarterFinal, Index: i} }
func SemiFinal(i int) SlotRef    { return SlotRef{Round: RoundSemiFinal, Index: i} }

// AllSlots lists the slots in playing order.
func AllSlots() []SlotRef {
	return []SlotRef{
		QuarterFinal(0), QuarterFinal(1), QuarterFinal(2), QuarterFinal(3),
		SemiFinal(0), SemiFinal(1),
		SlotFinal,
	}
}

func (s SlotRef) Valid() bool {
	switch s.Round {
	case RoundQuarterFinal:
		return s.Index >= 0 && s.Index < QuarterFinalCount
	case RoundSemiFinal:
		return s.Index >= 0 && s.Index < SemiFinalCount
	case RoundFinal:
		return s.Index == 0
	}
	return false
}

func (s SlotRef) String() string {
	switch s.Round {
	case RoundQuarterFinal:
		return fmt.Sprintf("qf%d", s.Index)
	case RoundSemiFinal:
		return fmt.Sprintf("sf%d", s.Index)
	case RoundFinal:
		return "final"
	}
	return fmt.Sprintf("%s%d", s.Round, s.Index)
}

// ParseSlotRef is the inverse of SlotRef.String.
func ParseSlotRef(s string) (SlotRef, error) {
	for _, ref := range AllSlots() {
		if ref.String() == s {
			return ref, nil
		}
	}
	return SlotRef{}, fmt.Errorf("unknown bracket slot %q", s)
}

func (s SlotRef) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *SlotRef) UnmarshalText(text []byte) error {
	ref, err := ParseSlotRef(string(text))
	if err != nil {
		return err
	}
	*s = ref
	return nil
}

type BracketSlot struct {
	Ref    SlotRef      `json:"slot"`
	Team1  *TeamRef     `json:"team1"`
	Team2  *TeamRef     `json:"team2"`
	Result *MatchResult `json:"result"`
}

// Playable reports whether both teams are known and no result is recorded yet.
func (s *BracketSlot) Playable() bool {
	return s.Team1 != nil && s.Team2 != nil && s.Result == nil
}

func (s *BracketSlot) Terminal() bool {
	return s.Result != nil
}

// Holds reports whether teamID is one of the slot's two teams.
func (s *BracketSlot) Holds(teamID string) bool {
	return s.Team1.Is(teamID) || s.Team2.Is(teamID)
}

type Bracket struct {
	Status        BracketStatus                  `json:"status"`
	QuarterFinals [QuarterFinalCount]BracketSlot `json:"quarter_finals"`
	SemiFinals    [SemiFinalCount]BracketSlot    `json:"semi_finals"`
	Final         BracketSlot                    `json:"final"`
	StartedAt     *time.Time                     `json:"started_at,omitempty"`
	CompletedAt   *time.Time                     `json:"completed_at,omitempty"`
}

// NewBracket returns an empty, not started bracket with every slot addressed.
func NewBracket() *Bracket {
	b := &Bracket{Status: BracketNotStarted}
	for i := range b.QuarterFinals {
		b.QuarterFinals[i].Ref = QuarterFinal(i)
	}
	for i := range b.SemiFinals {
		b.SemiFinals[i].Ref = SemiFinal(i)
	}
	b.Final.Ref = SlotFinal
	return b
}

// Slot returns a pointer to the addressed slot, or nil for an invalid ref.
func (b *Bracket) Slot(ref SlotRef) *BracketSlot {
	if !ref.Valid() {
		return nil
	}
	switch ref.Round {
	case RoundQuarterFinal:
		return &b.QuarterFinals[ref.Index]
	case RoundSemiFinal:
		return &b.SemiFinals[ref.Index]
	default:
		return &b.Final
	}
}

// Slots returns pointers to all seven slots in playing order.
func (b *Bracket) Slots() []*BracketSlot {
	refs := AllSlots()
	out := make([]*BracketSlot, 0, len(refs))
	for _, ref := range refs {
		out = append(out, b.Slot(ref))
	}
	return out
}

// Clone returns a copy whose slots can be mutated without touching b.
// Match results are shared: they are immutable once written.
func (b *Bracket) Clone() *Bracket {
	c := *b
	for _, s := range c.Slots() {
		if s.Team1 != nil {
			t := *s.Team1
			s.Team1 = &t
		}
		if s.Team2 != nil {
			t := *s.Team2
			s.Team2 = &t
		}
	}
	if b.StartedAt != nil {
		t := *b.StartedAt
		c.StartedAt = &t
	}
	if b.CompletedAt != nil {
		t := *b.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// Champion returns the final's winner once the bracket is completed.
func (b *Bracket) Champion() *TeamRef {
	if b.Status != BracketCompleted || b.Final.Result == nil {
		return nil
	}
	return b.Final.Result.Winner()
}
