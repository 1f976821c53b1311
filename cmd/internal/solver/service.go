package solver

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"aya/cmd/identity/ids"
)

// Messages shown in place of a solution.
const (
	msgVideoUnavailable = "⚠️ Video analysis is not available. Please upload an image of the problem instead."
	prefixError         = "Error: "
	prefixImageError    = "Error processing image: "
	prefixPDFError      = "Error processing PDF: "
)

// Problem is one submission.
type Problem struct {
	Kind     Kind
	Text     string
	Filename string
	Upload   []byte
}

// Solution is the answer to a Problem. When Failed is set, Text carries the error message.
type Solution struct {
	ID     string    `json:"id"`
	Kind   Kind      `json:"kind"`
	Text   string    `json:"text"`
	Model  string    `json:"model,omitempty"`
	Failed bool      `json:"failed"`
	At     time.Time `json:"at"`
}

// Observer receives one call per solve with the outcome ("success", "failed", "rejected").
type Observer interface {
	ObserveSolve(kind, result string)
}

type noopObserver struct{}

func (noopObserver) ObserveSolve(string, string) {}

// Service validates problems, builds prompts and calls the provider.
type Service struct {
	provider  Provider
	maxTokens int
	maxPixels int64
	timeout   time.Duration

	log *slog.Logger
	obs Observer
	now func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithObserver sets the metrics observer.
func WithObserver(obs Observer) Option {
	return func(s *Service) {
		if obs != nil {
			s.obs = obs
		}
	}
}

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs a Service calling p.
func NewService(p Provider, cfg Config, opts ...Option) (*Service, error) {
	if p == nil {
		return nil, errors.New("solver: nil provider")
	}
	s := &Service{
		provider:  p,
		maxTokens: cfg.MaxTokens,
		maxPixels: cfg.MaxImagePixels,
		timeout:   cfg.Timeout,
		log:       slog.Default(),
		obs:       noopObserver{},
		now:       func() time.Time { return time.Now().UTC() },
	}
	if s.maxTokens <= 0 {
		s.maxTokens = DefaultMaxTokens
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Validate checks that p carries what its kind needs.
func Validate(p Problem) error {
	switch p.Kind {
	case KindText:
		if strings.TrimSpace(p.Text) == "" {
			return ErrEmptyQuestion
		}
	case KindImage, KindPDF:
		if len(p.Upload) == 0 {
			return MissingUploadError{Kind: p.Kind}
		}
	case KindVideo:
	default:
		return ErrUnsupportedKind
	}
	return nil
}

// Solve answers p. It returns an error only when p is invalid; provider and
// decoding failures come back as a Solution with Failed set.
func (s *Service) Solve(ctx context.Context, p Problem) (Solution, error) {
	if err := Validate(p); err != nil {
		s.obs.ObserveSolve(string(p.Kind), "rejected")
		return Solution{}, err
	}

	now := s.now()
	id, err := ids.NewULID(now)
	if err != nil {
		return Solution{}, err
	}
	sol := Solution{ID: id, Kind: p.Kind, At: now}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	switch p.Kind {
	case KindText:
		s.solveText(ctx, p, &sol)
	case KindImage:
		s.solveImage(ctx, p, &sol)
	case KindPDF:
		s.solvePDF(ctx, p, &sol)
	case KindVideo:
		sol.Text, sol.Failed = msgVideoUnavailable, true
	}

	result := "success"
	if sol.Failed {
		result = "failed"
	}
	s.obs.ObserveSolve(string(p.Kind), result)
	s.log.Info("solver.solve", "id", sol.ID, "kind", p.Kind, "model", sol.Model, "failed", sol.Failed)
	return sol, nil
}

func (s *Service) solveText(ctx context.Context, p Problem, sol *Solution) {
	prompt, err := render(textPrompt, promptData{Question: p.Text})
	if err != nil {
		s.fail(sol, prefixError, err)
		return
	}
	s.complete(ctx, Request{Prompt: prompt}, prefixError, sol)
}

func (s *Service) solveImage(ctx context.Context, p Problem, sol *Solution) {
	img, err := NormalizeImage(p.Upload, s.maxPixels)
	if err != nil {
		s.fail(sol, prefixImageError, err)
		return
	}
	prompt, err := render(imagePrompt, promptData{})
	if err != nil {
		s.fail(sol, prefixImageError, err)
		return
	}
	s.complete(ctx, Request{Prompt: prompt, ImagePNG: img}, prefixImageError, sol)
}

func (s *Service) solvePDF(ctx context.Context, p Problem, sol *Solution) {
	doc, err := ExtractPDFText(p.Upload)
	if err != nil {
		s.fail(sol, prefixPDFError, err)
		return
	}
	prompt, err := render(pdfPrompt, promptData{Document: doc})
	if err != nil {
		s.fail(sol, prefixPDFError, err)
		return
	}
	s.complete(ctx, Request{Prompt: prompt}, prefixPDFError, sol)
}

func (s *Service) complete(ctx context.Context, req Request, prefix string, sol *Solution) {
	req.MaxTokens = s.maxTokens
	out, err := s.provider.Complete(ctx, req)
	if err != nil {
		s.fail(sol, prefix, err)
		return
	}
	sol.Text = out.Text
	sol.Model = out.Model
}

func (s *Service) fail(sol *Solution, prefix string, err error) {
	s.log.Warn("solver.solve.fail", "id", sol.ID, "kind", sol.Kind, "err", err)
	sol.Text = prefix + err.Error()
	sol.Failed = true
}
