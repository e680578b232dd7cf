package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/nations-league/brackets"
	"github.com/Dosada05/nations-league/livestream"
	"github.com/Dosada05/nations-league/models"
	"github.com/Dosada05/nations-league/repositories"
	"github.com/Dosada05/nations-league/storage"
)

// ResultSink receives state changes once they are committed. Implementations
// must not fail the caller: delivery problems are logged and dropped.
type ResultSink interface {
	BracketUpdated(ctx context.Context, b *models.Bracket)
	MatchRecorded(ctx context.Context, rec *models.MatchRecord, b *models.Bracket)
	LiveEvent(ctx context.Context, ev livestream.Event)
}

type NopSink struct{}

func (NopSink) BracketUpdated(context.Context, *models.Bracket)                        {}
func (NopSink) MatchRecorded(context.Context, *models.MatchRecord, *models.Bracket) {}
func (NopSink) LiveEvent(context.Context, livestream.Event)                          {}

type Broadcaster interface {
	BroadcastToRoom(roomID, msgType string, payload interface{})
}

type Mailer interface {
	SendEmail(to []string, subject string, body string) error
}

type MatchRecordedPayload struct {
	Match   *models.MatchRecord `json:"match"`
	Bracket *models.Bracket     `json:"bracket"`
}

// SinkOptions wires the optional outputs; nil members are skipped.
type SinkOptions struct {
	Hub      Broadcaster
	Mailer   Mailer
	Archive  storage.FileUploader
	TeamRepo repositories.TeamRepository
	Logger   *slog.Logger
}

type resultSinks struct {
	hub      Broadcaster
	mailer   Mailer
	archive  storage.FileUploader
	teamRepo repositories.TeamRepository
	logger   *slog.Logger
}

func NewResultSinks(opts SinkOptions) ResultSink {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &resultSinks{
		hub:      opts.Hub,
		mailer:   opts.Mailer,
		archive:  opts.Archive,
		teamRepo: opts.TeamRepo,
		logger:   logger,
	}
}

func (s *resultSinks) BracketUpdated(ctx context.Context, b *models.Bracket) {
	if s.hub != nil {
		s.hub.BroadcastToRoom(brackets.TournamentRoom, brackets.MessageBracketUpdated, b)
	}
}

func (s *resultSinks) LiveEvent(ctx context.Context, ev livestream.Event) {
	if s.hub != nil {
		s.hub.BroadcastToRoom(brackets.TournamentRoom, brackets.MessageLiveEvent, ev)
	}
}

// MatchRecorded notifies spectators, mails both team representatives and,
// once the final is in, archives the finished bracket. The outputs run
// concurrently and a failing one does not stop the others.
func (s *resultSinks) MatchRecorded(ctx context.Context, rec *models.MatchRecord, b *models.Bracket) {
	tasks := map[string]func(context.Context) error{}
	if s.hub != nil {
		tasks["hub"] = func(context.Context) error {
			s.hub.BroadcastToRoom(brackets.TournamentRoom, brackets.MessageMatchRecorded, MatchRecordedPayload{Match: rec, Bracket: b})
			s.hub.BroadcastToRoom(brackets.TournamentRoom, brackets.MessageBracketUpdated, b)
			return nil
		}
	}
	if s.mailer != nil && s.teamRepo != nil {
		tasks["email"] = func(ctx context.Context) error { return s.mailResult(ctx, rec) }
	}
	if s.archive != nil && b.Status == models.BracketCompleted {
		tasks["archive"] = func(ctx context.Context) error { return s.archiveBracket(ctx, b) }
	}

	var g errgroup.Group
	for name, task := range tasks {
		g.Go(func() error {
			if err := task(ctx); err != nil {
				s.logger.Warn("result sink failed", "sink", name, "slot", rec.Slot, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (s *resultSinks) mailResult(ctx context.Context, rec *models.MatchRecord) error {
	res := rec.Result
	var to []string
	for _, id := range []string{res.Team1.ID, res.Team2.ID} {
		team, err := s.teamRepo.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load team %s: %w", id, err)
		}
		if team.Email != "" {
			to = append(to, team.Email)
		}
	}
	if len(to) == 0 {
		return nil
	}

	subject, body, err := MatchResultEmail(rec)
	if err != nil {
		return err
	}
	return s.mailer.SendEmail(to, subject, body)
}

// ArchiveKey names the stored copy of a completed bracket.
func ArchiveKey(b *models.Bracket) string {
	at := time.Now().UTC()
	if b.CompletedAt != nil {
		at = b.CompletedAt.UTC()
	}
	return fmt.Sprintf("brackets/%s.json", at.Format("20060102T150405Z"))
}

func (s *resultSinks) archiveBracket(ctx context.Context, b *models.Bracket) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode bracket: %w", err)
	}
	res, err := s.archive.Upload(ctx, ArchiveKey(b), "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	s.logger.Info("bracket archived", "key", res.Key, "location", res.Location)
	return nil
}
