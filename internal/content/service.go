// Package content generates marketing copy for a listing. Unlike address
// verification, a bad reply is an error: garbled copy must never be stored.
package content

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"venue_enrichment_backend/internal/listings/domain"
	"venue_enrichment_backend/platform/ai/llm"
	"venue_enrichment_backend/platform/apperr"
	"venue_enrichment_backend/platform/logger"
	"venue_enrichment_backend/platform/sanitize"
	"venue_enrichment_backend/platform/validator"
)

const (
	maxFeatures        = 8
	maxMetaRunes       = 160
	contentTemperature = float32(0.7)
)

// Existing is copy already stored on the listing, passed as context.
type Existing struct {
	Description string
	Features    []string
	Content     string
}

func (e Existing) empty() bool {
	return e.Description == "" && len(e.Features) == 0 && e.Content == ""
}

// Input describes the listing to write for.
type Input struct {
	Title    string
	Location string
	Address  string
	Postcode string
	Existing *Existing
}

// Result is generated copy.
type Result struct {
	Model           string
	Description     string
	Features        []string
	Content         string
	MetaDescription string
	Sleeps          string
}

// Facts converts the result for the listing merge rules.
func (r Result) Facts() domain.ContentFacts {
	return domain.ContentFacts{
		Description:     r.Description,
		Content:         r.Content,
		MetaDescription: r.MetaDescription,
		Features:        r.Features,
		Sleeps:          r.Sleeps,
	}
}

type reply struct {
	Description     string         `json:"description" validate:"required"`
	Features        []string       `json:"features" validate:"required,min=1"`
	Content         string         `json:"content" validate:"required"`
	MetaDescription string         `json:"meta_description" validate:"required"`
	Sleeps          llm.FlexString `json:"sleeps"`
}

// Service generates listing copy.
type Service struct {
	gen      llm.Generator
	resolver *llm.Resolver
	models   []string
	val      *validator.Validator
	log      *logger.Logger
}

// New creates a content service that tries models in order.
func New(gen llm.Generator, resolver *llm.Resolver, models []string, val *validator.Validator, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{gen: gen, resolver: resolver, models: models, val: val, log: log}
}

// Enrich generates copy for in. A malformed or incomplete reply is returned
// as an error wrapping *llm.ParseError.
func (s *Service) Enrich(ctx context.Context, in Input) (Result, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return Result{}, apperr.Validation("title is required for content generation")
	}

	temp := contentTemperature
	req := llm.Request{
		System:      systemPrompt(),
		Prompt:      buildPrompt(in),
		JSON:        true,
		Temperature: &temp,
	}

	var rep reply
	modelName, err := s.resolver.Run(ctx, s.models, func(ctx context.Context, model string) error {
		text, err := s.gen.Generate(ctx, model, req)
		if err != nil {
			return err
		}
		rep = reply{}
		if err := llm.DecodeJSON(text, &rep, s.val); err != nil {
			return err
		}
		rep.Description = sanitize.Line(rep.Description)
		rep.Content = sanitize.Text(rep.Content)
		rep.MetaDescription = sanitize.Line(rep.MetaDescription)
		rep.Features = normalizeFeatures(rep.Features)
		if len(rep.Features) == 0 {
			return &llm.ParseError{Reason: "schema mismatch: features: empty", Raw: text}
		}
		if rep.Description == "" || rep.Content == "" {
			return &llm.ParseError{Reason: "schema mismatch: copy empty after stripping markup", Raw: text}
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("generate content for %q: %w", in.Title, err)
	}

	res := Result{
		Model:           modelName,
		Description:     strings.TrimSpace(rep.Description),
		Features:        rep.Features,
		Content:         strings.TrimSpace(rep.Content),
		MetaDescription: truncateWords(strings.TrimSpace(rep.MetaDescription), maxMetaRunes),
		Sleeps:          strings.TrimSpace(rep.Sleeps.String()),
	}
	s.log.WithContext(ctx).Debug("content generated",
		"title", in.Title,
		"model", modelName,
		"features", len(res.Features),
		"words", len(strings.Fields(res.Content)),
	)
	return res, nil
}

func normalizeFeatures(in []string) []string {
	out := sanitize.Lines(in)
	if len(out) > maxFeatures {
		out = out[:maxFeatures]
	}
	return out
}

// truncateWords cuts s to at most max runes, preferring the last word boundary.
func truncateWords(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:max])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:-")
}
