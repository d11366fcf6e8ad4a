// Package validation confirms candidate relationships with independent searches.
package validation

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"research-graph/backend/internal/constants"
	"research-graph/backend/internal/knowledge"
	"research-graph/backend/internal/tools"
	apperrors "research-graph/backend/pkg/errors"
	"research-graph/backend/pkg/logger"
)

// Validator promotes candidate relationships that enough search results corroborate
type Validator struct {
	concurrency int
	logger      *zap.Logger
}

// NewValidator creates a validator running up to concurrency confirmation
// queries at once. Values below 2 validate strictly in sequence.
func NewValidator(concurrency int) *Validator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Validator{
		concurrency: concurrency,
		logger:      logger.Named("validation"),
	}
}

// Query builds the confirmation query for a relationship
func Query(source, target string) string {
	return fmt.Sprintf("%q and %q relationship", source, target)
}

// Accepted reports whether a confirmation response corroborates a relationship
func Accepted(searchResults string) bool {
	return tools.CountResults(searchResults) > constants.MinCorroboratingResults
}

// Validate returns the candidates whose confirmation query returned more than
// one result, in input order, as copies marked validated.
// A failed query drops only its own candidate.
func (v *Validator) Validate(ctx context.Context, candidates []knowledge.Relationship, search tools.SearchFunc) []knowledge.Relationship {
	v.logger.Info("Starting validation", zap.Int("candidates", len(candidates)))

	accepted := make([]bool, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency)

	for i, edge := range candidates {
		i, edge := i, edge
		g.Go(func() error {
			ok, err := v.confirm(gctx, edge, search)
			if err != nil {
				v.logger.Warn("Confirmation query failed",
					zap.String("source", edge.Source),
					zap.String("target", edge.Target),
					zap.Error(err),
				)
				return nil
			}
			accepted[i] = ok
			return nil
		})
	}
	_ = g.Wait()

	validated := []knowledge.Relationship{}
	for i, edge := range candidates {
		if !accepted[i] {
			continue
		}
		edge.Validated = true
		validated = append(validated, edge)
	}

	v.logger.Info("Validation complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("validated", len(validated)),
	)
	return validated
}

func (v *Validator) confirm(ctx context.Context, edge knowledge.Relationship, search tools.SearchFunc) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	query := Query(edge.Source, edge.Target)
	results, err := search(ctx, query)
	if err != nil {
		return false, apperrors.NewValidationQueryFailed(edge.Source, edge.Target, err)
	}

	ok := Accepted(results)
	v.logger.Debug("Relationship checked",
		zap.String("query", query),
		zap.Int("mentions", tools.CountResults(results)),
		zap.Bool("validated", ok),
	)
	return ok, nil
}
