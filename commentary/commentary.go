// Package commentary produces the text lines that accompany a match: one line
// per live moment, or a short play-by-play summary of a finished result.
package commentary

import (
	"context"
	"log/slog"

	"github.com/Dosada05/nations-league/models"
)

type Kind string

const (
	KindKickoff    Kind = "kickoff"
	KindRegular    Kind = "regular"
	KindHalftime   Kind = "halftime"
	KindSecondHalf Kind = "second_half"
	KindFulltime   Kind = "fulltime"
	KindGoal       Kind = "goal"
	KindExtraTime  Kind = "extra_time"
	KindPenalties  Kind = "penalties"
)

// Moment is everything a generator knows when asked for a single line.
type Moment struct {
	Kind        Kind
	Minute      int
	Team1       string
	Team2       string
	Score1      int
	Score2      int
	Scorer      string
	ScoringTeam string
}

type Generator interface {
	// Name identifies the backing source, e.g. "gemini" or "template".
	Name() string
	Line(ctx context.Context, m Moment) (string, error)
	Summary(ctx context.Context, result *models.MatchResult) ([]string, error)
}

// fallback serves lines from primary and falls back to the template whenever
// primary fails. It never returns an error.
type fallback struct {
	primary  Generator
	template *Template
	logger   *slog.Logger
}

// WithFallback wraps primary so that failures degrade to template commentary.
// A nil primary yields the template generator itself.
func WithFallback(primary Generator, logger *slog.Logger) Generator {
	if primary == nil {
		return NewTemplate()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &fallback{primary: primary, template: NewTemplate(), logger: logger}
}

func (f *fallback) Name() string {
	return f.primary.Name()
}

func (f *fallback) Line(ctx context.Context, m Moment) (string, error) {
	line, err := f.primary.Line(ctx, m)
	if err != nil || line == "" {
		f.logger.Warn("commentary line fell back to template", "source", f.primary.Name(), "kind", m.Kind, "minute", m.Minute, "error", err)
		return f.template.Line(ctx, m)
	}
	return line, nil
}

func (f *fallback) Summary(ctx context.Context, result *models.MatchResult) ([]string, error) {
	lines, err := f.primary.Summary(ctx, result)
	if err != nil || len(lines) == 0 {
		f.logger.Warn("commentary summary fell back to template", "source", f.primary.Name(), "error", err)
		return f.template.Summary(ctx, result)
	}
	return lines, nil
}
