package commentary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/Dosada05/nations-league/models"
)

const (
	DefaultGeminiModel   = "gemini-1.5-flash"
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	maxLineLength = 200
)

var (
	ErrNoAPIKey      = errors.New("gemini api key is not configured")
	ErrEmptyResponse = errors.New("gemini returned no text")
)

type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// GeminiClient asks the Gemini generateContent endpoint for commentary.
type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

func NewGeminiClient(cfg GeminiConfig) (*GeminiClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGeminiBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &GeminiClient{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (c *GeminiClient) Name() string {
	return "gemini"
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *GeminiClient) Line(ctx context.Context, m Moment) (string, error) {
	text, err := c.generate(ctx, linePrompt(m))
	if err != nil {
		return "", err
	}
	line := SingleSentence(text)
	if line == "" {
		return "", ErrEmptyResponse
	}
	return line, nil
}

func (c *GeminiClient) Summary(ctx context.Context, r *models.MatchResult) ([]string, error) {
	if r == nil {
		return nil, errors.New("no result to summarize")
	}
	text, err := c.generate(ctx, summaryPrompt(r))
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, raw := range strings.Split(text, "\n") {
		if line := SingleSentence(strings.TrimLeft(raw, "-*•0123456789. ")); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil, ErrEmptyResponse
	}
	return lines, nil
}

func (c *GeminiClient) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(geminiRequest{Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}}})
	if err != nil {
		return "", fmt.Errorf("encode gemini request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call gemini: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read gemini response: %w", err)
	}

	var decoded geminiResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("decode gemini response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		if decoded.Error != nil && decoded.Error.Message != "" {
			msg = decoded.Error.Message
		}
		return "", fmt.Errorf("gemini status %d: %s", resp.StatusCode, msg)
	}

	var sb strings.Builder
	for _, cand := range decoded.Candidates {
		for _, p := range cand.Content.Parts {
			sb.WriteString(p.Text)
		}
		if sb.Len() > 0 {
			break
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}

func linePrompt(m Moment) string {
	var situation string
	switch m.Kind {
	case KindGoal:
		situation = fmt.Sprintf("%s just scored for %s in minute %d.", m.Scorer, m.ScoringTeam, m.Minute)
	case KindKickoff:
		situation = "The match is kicking off."
	case KindHalftime:
		situation = "The referee has blown for half-time."
	case KindSecondHalf:
		situation = "The second half is starting."
	case KindFulltime:
		situation = "The match has just ended."
	case KindExtraTime:
		situation = "The match is going to extra time."
	case KindPenalties:
		situation = "The match is going to a penalty shoot-out."
	default:
		situation = fmt.Sprintf("It is minute %d and play is ongoing.", m.Minute)
	}
	return fmt.Sprintf(
		"You are a football commentator. %s vs %s, score %d-%d. %s "+
			"Reply with exactly one short, exciting sentence of live commentary and nothing else.",
		m.Team1, m.Team2, m.Score1, m.Score2, situation)
}

func summaryPrompt(r *models.MatchResult) string {
	var goals []string
	for _, g := range r.GoalEvents {
		goals = append(goals, fmt.Sprintf("%s (%s, %d')", g.Scorer, g.Team, g.Minute))
	}
	scorers := "no goals"
	if len(goals) > 0 {
		scorers = strings.Join(goals, ", ")
	}
	return fmt.Sprintf(
		"You are a football commentator. Write play-by-play commentary for the %s between %s and %s "+
			"that ended %s. Goals: %s. Write 5 to 8 lines, one sentence per line, no numbering.",
		r.MatchType.Title(), r.Team1.Country, r.Team2.Country, r.ScoreDisplay(), scorers)
}

// SingleSentence trims model output down to one clean sentence.
func SingleSentence(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	text = strings.Trim(text, "\"'*` ")
	if text == "" {
		return ""
	}
	if i := strings.IndexFunc(text, func(r rune) bool { return r == '.' || r == '!' || r == '?' }); i >= 0 {
		end := i + 1
		for end < len(text) && (text[end] == '!' || text[end] == '?' || text[end] == '.') {
			end++
		}
		text = text[:end]
	}
	if len(text) > maxLineLength {
		cut := strings.LastIndexFunc(text[:maxLineLength], unicode.IsSpace)
		if cut <= 0 {
			cut = maxLineLength
		}
		text = strings.TrimSpace(text[:cut]) + "..."
	}
	return strings.Trim(text, "\"'*` ")
}
