// Package agent drives the autonomous research loop.
//
// Each cycle researches one topic, extracts concepts and candidate
// relationships, validates the candidates, merges the result into the
// knowledge graph, writes a report and picks the next topic.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"research-graph/backend/internal/constants"
	"research-graph/backend/internal/knowledge"
	"research-graph/backend/internal/metrics"
	"research-graph/backend/internal/report"
	"research-graph/backend/internal/research"
	"research-graph/backend/internal/synthesis"
	"research-graph/backend/internal/tools"
	"research-graph/backend/internal/topic"
	"research-graph/backend/internal/validation"
	apperrors "research-graph/backend/pkg/errors"
	"research-graph/backend/pkg/logger"
)

const tracerName = "research-graph/backend/internal/agent"

// Dependencies are the components a cycle runs through.
// Guard, Search, Fetch and Writer are required; the rest have defaults.
type Dependencies struct {
	Guard       *knowledge.Guard
	Search      tools.SearchFunc
	Fetch       tools.FetchFunc
	Collector   *research.Collector
	Synthesizer *synthesis.Synthesizer
	Validator   *validation.Validator
	Builder     *report.Builder
	Writer      *report.Writer
	Describer   Describer
	Notifiers   []Notifier
	Metrics     *metrics.Collector
	Tracer      trace.TracerProvider
}

// Options tune the loop timing
type Options struct {
	SeedTopic  string
	CycleDelay time.Duration
	RetryDelay time.Duration
	// MaxTopicRetries is how many failed cycles a topic gets before the
	// driver moves on. Zero retries forever.
	MaxTopicRetries int
}

// Orchestrator runs research cycles one at a time
type Orchestrator struct {
	deps      Dependencies
	opts      Options
	tracer    trace.Tracer
	status    statusTracker
	exhausted map[string]struct{}
	logger    *zap.Logger
}

// NewOrchestrator creates a cycle driver
func NewOrchestrator(deps Dependencies, opts Options) *Orchestrator {
	if deps.Collector == nil {
		deps.Collector = research.NewCollector()
	}
	if deps.Synthesizer == nil {
		deps.Synthesizer = synthesis.NewSynthesizer()
	}
	if deps.Validator == nil {
		deps.Validator = validation.NewValidator(1)
	}
	if deps.Builder == nil {
		deps.Builder = report.NewBuilder()
	}
	if deps.Describer == nil {
		deps.Describer = SummaryDescriber{}
	}
	if deps.Tracer == nil {
		deps.Tracer = otel.GetTracerProvider()
	}
	if opts.SeedTopic == "" {
		opts.SeedTopic = constants.DefaultTopic
	}

	o := &Orchestrator{
		deps:      deps,
		opts:      opts,
		tracer:    deps.Tracer.Tracer(tracerName),
		exhausted: make(map[string]struct{}),
		logger:    logger.Named("agent"),
	}
	o.status.update(func(s *Status) {
		s.State = StateIdle
		s.Topic = opts.SeedTopic
	})
	return o
}

// Status returns a snapshot of the driver
func (o *Orchestrator) Status() Status {
	return o.status.get()
}

// Run loops over research cycles until ctx is cancelled.
// Component failures never end the loop: a failed topic is retried after
// RetryDelay, and abandoned once it has used up MaxTopicRetries.
func (o *Orchestrator) Run(ctx context.Context) error {
	current := o.opts.SeedTopic
	retries := 0

	o.logger.Info("Research loop starting",
		zap.String("seed_topic", current),
		zap.Duration("cycle_delay", o.opts.CycleDelay),
		zap.Duration("retry_delay", o.opts.RetryDelay),
		zap.Int("max_topic_retries", o.opts.MaxTopicRetries),
	)
	defer o.setState(StateStopped)

	for {
		if err := ctx.Err(); err != nil {
			o.logger.Info("Research loop stopped", zap.Error(err))
			return err
		}

		outcome, err := o.RunCycle(ctx, current)
		if err == nil {
			retries = 0
			o.status.update(func(s *Status) { s.Retries = 0 })
			current = outcome.NextTopic
			if err := o.wait(ctx, o.opts.CycleDelay); err != nil {
				o.logger.Info("Research loop stopped", zap.Error(err))
				return err
			}
			continue
		}

		if ctx.Err() != nil {
			o.logger.Info("Research loop stopped", zap.Error(ctx.Err()))
			return ctx.Err()
		}

		retries++
		o.status.update(func(s *Status) { s.Retries = retries })

		if o.opts.MaxTopicRetries > 0 && retries >= o.opts.MaxTopicRetries {
			next := o.forceAdvance(ctx, current)
			o.logger.Warn("Giving up on topic",
				zap.String("topic", current),
				zap.Int("attempts", retries),
				zap.String("next_topic", next),
				zap.Error(err),
			)
			o.recordCycle(metrics.OutcomeForceAdvance)
			retries = 0
			current = next
		} else {
			o.logger.Warn("Research cycle failed, retrying topic",
				zap.String("topic", current),
				zap.Int("attempt", retries),
				zap.Bool("retryable", apperrors.IsRetryable(err)),
				zap.Error(err),
			)
			o.recordCycle(metrics.OutcomeRetried)
		}

		if err := o.wait(ctx, o.opts.RetryDelay); err != nil {
			o.logger.Info("Research loop stopped", zap.Error(err))
			return err
		}
	}
}

// forceAdvance excludes the failing topic from selection and picks another one
func (o *Orchestrator) forceAdvance(ctx context.Context, current string) string {
	o.exhausted[knowledge.NormalizeID(current)] = struct{}{}
	graph, _ := o.deps.Guard.View(ctx)
	return topic.SelectExcluding(graph, current, o.exhausted)
}

// RunCycle researches one topic and merges what it learned into the graph.
// It fails only when research yields no text or synthesis yields no
// concepts; every later stage logs its errors and carries on.
func (o *Orchestrator) RunCycle(ctx context.Context, current string) (*CycleOutcome, error) {
	started := time.Now()
	cycleID := uuid.NewString()
	log := o.logger.With(zap.String("cycle_id", cycleID), zap.String("topic", current))

	ctx, span := o.tracer.Start(ctx, "research.cycle", trace.WithAttributes(
		attribute.String("cycle.id", cycleID),
		attribute.String("cycle.topic", current),
	))
	defer span.End()

	o.status.update(func(s *Status) {
		s.Topic = current
		s.LastCycleID = cycleID
	})

	outcome, err := o.runCycle(ctx, log, cycleID, current)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.status.update(func(s *Status) { s.LastError = err.Error() })
		return nil, err
	}

	outcome.Duration = time.Since(started)
	outcome.CompletedAt = time.Now()
	span.SetAttributes(
		attribute.String("cycle.next_topic", outcome.NextTopic),
		attribute.Int("cycle.new_concepts", outcome.NewConcepts),
		attribute.Int("cycle.validated", outcome.Validated),
	)

	o.status.update(func(s *Status) {
		s.Cycles++
		s.LastError = ""
		s.LastCompletedAt = outcome.CompletedAt
		s.LastBuild = outcome.BuildName
	})
	o.recordCycle(metrics.OutcomeCompleted)

	log.Info("Research cycle complete",
		zap.String("next_topic", outcome.NextTopic),
		zap.Int("new_concepts", outcome.NewConcepts),
		zap.Int("validated", outcome.Validated),
		zap.Int("graph_nodes", outcome.GraphNodes),
		zap.Int("graph_edges", outcome.GraphEdges),
		zap.Duration("duration", outcome.Duration),
	)

	o.notify(ctx, log, outcome)
	return outcome, nil
}

func (o *Orchestrator) runCycle(ctx context.Context, log *zap.Logger, cycleID, current string) (*CycleOutcome, error) {
	snapshot, err := o.deps.Guard.View(ctx)
	if err != nil {
		log.Warn("Researching against an empty graph", zap.Error(err))
	}

	// Research
	stageCtx, done := o.enter(ctx, StateResearching)
	rawText, err := o.deps.Collector.Collect(stageCtx, current, o.deps.Search, o.deps.Fetch)
	done(err)
	if err != nil {
		return nil, fmt.Errorf("research %q: %w", current, err)
	}
	if rawText == "" {
		return nil, fmt.Errorf("research %q: %w", current, apperrors.ErrNoSources)
	}

	// Synthesis
	_, done = o.enter(ctx, StateSynthesizing)
	result := o.deps.Synthesizer.Synthesize(rawText, snapshot)
	if result.Empty() {
		done(apperrors.ErrNoConcepts)
		return nil, fmt.Errorf("synthesize %q: %w", current, apperrors.ErrNoConcepts)
	}
	done(nil)

	// Validation
	stageCtx, done = o.enter(ctx, StateValidating)
	validated := o.deps.Validator.Validate(stageCtx, result.NewEdges, o.deps.Search)
	done(nil)
	if o.deps.Metrics != nil {
		o.deps.Metrics.RelationshipsProposed.Add(float64(len(result.NewEdges)))
		o.deps.Metrics.RelationshipsValidated.Add(float64(len(validated)))
	}

	// Persistence
	stageCtx, done = o.enter(ctx, StatePersistingGraph)
	description := o.describe(stageCtx, log, current, result)
	var addedNodes, addedEdges int
	graph, err := o.deps.Guard.Update(stageCtx, func(g *knowledge.Graph) error {
		addedNodes = g.AddConcepts(result.NewNodes)
		addedEdges = g.AddRelationships(validated)
		id := knowledge.NormalizeID(current)
		if node, ok := g.Node(id); ok && node.Unexplored() {
			g.SetDescription(id, description)
		}
		return nil
	})
	done(err)
	persisted := err == nil
	if err != nil {
		// The in-memory graph still feeds the report and the next topic.
		log.Error("Knowledge graph not persisted", zap.Error(err))
	}
	if o.deps.Metrics != nil {
		o.deps.Metrics.ConceptsAdded.Add(float64(addedNodes))
		o.deps.Metrics.SetGraphSize(len(graph.Nodes), len(graph.Edges))
	}

	// Report
	_, done = o.enter(ctx, StateBuildingReport)
	buildName, buildDir := o.writeReport(log, result, graph, current)
	done(nil)

	// Next topic
	_, done = o.enter(ctx, StateSelectingTopic)
	next := topic.SelectExcluding(graph, current, o.exhausted)
	done(nil)
	o.setState(StateWaiting)

	return &CycleOutcome{
		CycleID:     cycleID,
		Topic:       current,
		NextTopic:   next,
		Summary:     result.Summary,
		Concepts:    result.AllConcepts,
		NewConcepts: addedNodes,
		Candidates:  len(result.NewEdges),
		Validated:   len(validated),
		AddedEdges:  addedEdges,
		GraphNodes:  len(graph.Nodes),
		GraphEdges:  len(graph.Edges),
		BuildName:   buildName,
		BuildDir:    buildDir,
		Persisted:   persisted,
	}, nil
}

// describe asks the configured describer, falling back to the summary excerpt
func (o *Orchestrator) describe(ctx context.Context, log *zap.Logger, current string, result *synthesis.Result) string {
	description, err := o.deps.Describer.Describe(ctx, current, result)
	if err == nil && description != "" {
		return description
	}
	if err != nil {
		log.Warn("Describer failed, using summary excerpt", zap.Error(err))
	}
	description, _ = SummaryDescriber{}.Describe(ctx, current, result)
	return description
}

func (o *Orchestrator) writeReport(log *zap.Logger, result *synthesis.Result, graph *knowledge.Graph, current string) (string, string) {
	build, err := o.deps.Builder.Build(result, graph, current)
	if err != nil {
		log.Error("Could not build report", zap.Error(err))
		return "", ""
	}
	if build == nil {
		log.Info("Nothing to report")
		return "", ""
	}

	dir, err := o.deps.Writer.Write(build)
	if err != nil {
		log.Error("Could not write report", zap.String("build", build.Name), zap.Error(err))
		return build.Name, ""
	}
	return build.Name, dir
}

func (o *Orchestrator) notify(ctx context.Context, log *zap.Logger, outcome *CycleOutcome) {
	for _, n := range o.deps.Notifiers {
		if err := n.Notify(ctx, outcome); err != nil {
			log.Warn("Notifier failed", zap.String("notifier", fmt.Sprintf("%T", n)), zap.Error(err))
		}
	}
}

// enter switches to state s and opens its span. The returned func closes
// the span and records the stage duration.
func (o *Orchestrator) enter(ctx context.Context, s State) (context.Context, func(error)) {
	o.setState(s)
	started := time.Now()
	ctx, span := o.tracer.Start(ctx, "research."+string(s))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if o.deps.Metrics != nil {
			o.deps.Metrics.ObserveStage(string(s), started)
		}
	}
}

func (o *Orchestrator) setState(s State) {
	o.status.update(func(st *Status) { st.State = s })
}

func (o *Orchestrator) recordCycle(outcome string) {
	if o.deps.Metrics != nil {
		o.deps.Metrics.RecordCycle(outcome)
	}
}

// wait sleeps for d or until ctx is done
func (o *Orchestrator) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	o.setState(StateWaiting)
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
