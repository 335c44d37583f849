package statemachine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"time"

	"github.com/amp-labs/statecrawler/pathfinder"
	"github.com/google/uuid"
)

// Crawler drives a system under test through its state graph. It keeps
// track of which states and transitions were verified and which ones are
// known to fail, and routes around the failures.
//
// A Crawler is not safe for concurrent use. Run one crawler per goroutine.
type Crawler struct {
	graph  *Graph
	system System
	name   string
	runID  string
	logger Logger

	current            State
	history            []string
	visitedStates      pathfinder.Set
	visitedTransitions pathfinder.EdgeSet
	errorStates        pathfinder.Set
	errorTransitions   pathfinder.EdgeSet
}

type crawlerOptions struct {
	name    string
	runID   string
	logger  Logger
	current string
	reset   Action
}

// Option configures a Crawler.
type Option func(*crawlerOptions)

// WithCrawlerName names the crawler in logs, metrics and spans.
func WithCrawlerName(name string) Option {
	return func(o *crawlerOptions) {
		o.name = name
	}
}

// WithRunID overrides the generated run id.
func WithRunID(id string) Option {
	return func(o *crawlerOptions) {
		o.runID = id
	}
}

// WithLogger sets the progress logger. The default is a DefaultLogger.
func WithLogger(l Logger) Option {
	return func(o *crawlerOptions) {
		o.logger = l
	}
}

// WithCurrentState presets the current state, for resuming from a state
// persisted by an earlier process. The name may be full or short.
func WithCurrentState(name string) Option {
	return func(o *crawlerOptions) {
		o.current = name
	}
}

// WithResetAction sets the action run when the crawler leaves the entry
// point for the initial state. Without one that edge only verifies the
// initial state.
func WithResetAction(action Action) Option {
	return func(o *crawlerOptions) {
		o.reset = action
	}
}

// NewCrawler builds the graph rooted at initial and returns a crawler bound
// to system, positioned at the entry point.
func NewCrawler(system System, initial State, opts ...Option) (*Crawler, error) {
	options := crawlerOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	graph, err := NewGraph(initial)
	if err != nil {
		return nil, err
	}

	if options.reset != nil {
		graph.setResetAction(options.reset)
	}

	if options.runID == "" {
		options.runID = uuid.NewString()
	}

	if options.logger == nil {
		options.logger = NewDefaultLogger()
	}

	if options.name == "" {
		options.name = ShortName(initial.FullName())
	}

	crawler := &Crawler{
		graph:  graph,
		system: system,
		name:   options.name,
		runID:  options.runID,
		logger: options.logger,
	}

	crawler.Reset()

	if options.current != "" {
		state, err := graph.Resolve(options.current)
		if err != nil {
			return nil, fmt.Errorf("cannot resume: %w", err)
		}

		crawler.current = state
	}

	return crawler, nil
}

// Reset clears the session: every visited and error set, the history, and
// the current state, which returns to the entry point.
func (c *Crawler) Reset() {
	c.current = EntryPoint
	c.history = nil
	c.visitedStates = make(pathfinder.Set)
	c.visitedTransitions = make(pathfinder.EdgeSet)
	c.errorStates = make(pathfinder.Set)
	c.errorTransitions = make(pathfinder.EdgeSet)

	errorStatesGauge.WithLabelValues(sanitizeCrawler(c.name), sanitizeRunID(c.runID)).Set(0)
}

// State returns the state the system is believed to be in.
func (c *Crawler) State() State {
	return c.current
}

// Graph returns the crawl graph.
func (c *Crawler) Graph() *Graph {
	return c.graph
}

// Name returns the crawler's name.
func (c *Crawler) Name() string {
	return c.name
}

// RunID returns the crawler's run id.
func (c *Crawler) RunID() string {
	return c.runID
}

// History returns the states committed since the last departure from the
// entry point.
func (c *Crawler) History() []string {
	return slices.Clone(c.history)
}

// ErrorStates returns the states known to be unreachable, sorted.
func (c *Crawler) ErrorStates() []string {
	return c.errorStates.Sorted()
}

// VisitedStates returns the states verified so far, sorted.
func (c *Crawler) VisitedStates() []string {
	return c.visitedStates.Sorted()
}

func (c *Crawler) withRun(ctx context.Context) context.Context {
	if _, ok := GetRunInfo(ctx); ok {
		return ctx
	}

	return WithRunInfo(ctx, RunInfo{Crawler: c.name, RunID: c.runID})
}

// MoveTo resolves name to a state and moves to it.
func (c *Crawler) MoveTo(ctx context.Context, name string) error {
	if name == EntryPointName {
		return c.Move(ctx, EntryPoint)
	}

	target, err := c.graph.Resolve(name)
	if err != nil {
		return err
	}

	return c.Move(ctx, target)
}

// Move drives the system to target along the cheapest route that avoids
// known failures. Moving to the entry point is a reset and runs nothing.
// A failed step aborts the move with a TransitionError and leaves the crawler
// at the entry point. An UnreachableStateError is returned when no route
// exists.
func (c *Crawler) Move(ctx context.Context, target State) (err error) {
	if isNilState(target) {
		return ErrStateRequired
	}

	ctx = c.withRun(ctx)
	name := target.FullName()

	ctx, span := startMoveSpan(ctx, c, name)

	defer func() {
		endSpan(span, err)
		movesTotal.WithLabelValues(sanitizeCrawler(c.name), moveOutcome(err)).Inc()
	}()

	if IsEntryPoint(target) {
		c.current = EntryPoint

		return nil
	}

	if _, ok := c.graph.State(name); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownState, name)
	}

	filtered := pathfinder.BuildFilteredGraph(c.graph.adjacency, EntryPointName, c.errorStates, c.errorTransitions)

	// A full run may have stepped into a state already known to fail. Routes
	// only start from states the filtered graph still holds.
	if _, live := filtered[c.current.FullName()]; !live {
		if err := c.step(ctx, c.current, EntryPoint); err != nil {
			return err
		}
	}

	from := c.current.FullName()

	path := pathfinder.FindShortestPath(filtered, from, name, c.graph.PathCost)
	if path == nil {
		return &UnreachableStateError{From: from, To: name}
	}

	c.logger.MoveStarted(ctx, from, name, path)

	for _, hop := range path[1:] {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("move to %s interrupted: %w", name, ctxErr)
		}

		next, _ := c.graph.State(hop)

		if err := c.step(ctx, c.current, next); err != nil {
			return err
		}
	}

	return nil
}

func moveOutcome(err error) string {
	var unreachable *UnreachableStateError

	switch {
	case err == nil:
		return outcomeSuccess
	case errors.As(err, &unreachable):
		return outcomeUnreachable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return outcomeCancelled
	default:
		return outcomeError
	}
}

// VerifyAllStates visits every state reachable from the initial state whose
// full name matches pattern (all states when pattern is empty). Failures of
// individual targets are logged and skipped. With full set, every declared
// transition not yet exercised is exercised as well; with a pattern, only
// transitions with an endpoint matching it are. The run always ends at
// the entry point, and returns a TransitionError listing the failed states
// if any state could not be verified.
func (c *Crawler) VerifyAllStates(ctx context.Context, pattern string, full bool) (err error) {
	var filter *regexp.Regexp

	if pattern != "" {
		filter, err = regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("%w %q: %w", ErrInvalidPattern, pattern, err)
		}
	}

	ctx = c.withRun(ctx)
	ctx, span := startVerifyAllSpan(ctx, c, pattern, full)
	start := time.Now()

	defer func() {
		endSpan(span, err)
		runDuration.WithLabelValues(sanitizeCrawler(c.name), outcomeOf(err)).Observe(time.Since(start).Seconds())
	}()

	for _, name := range c.graph.TraversalOrder() {
		if filter != nil && !filter.MatchString(name) {
			continue
		}

		if c.visitedStates.Contains(name) || c.errorStates.Contains(name) {
			continue
		}

		if err := c.visit(ctx, name, func(ctx context.Context) error {
			state, _ := c.graph.State(name)

			return c.Move(ctx, state)
		}); err != nil {
			return err
		}
	}

	if full {
		for _, edge := range c.graph.DeclaredEdges() {
			if filter != nil && !filter.MatchString(edge.From) && !filter.MatchString(edge.To) {
				continue
			}

			if c.visitedTransitions.Contains(edge) || c.errorTransitions.Contains(edge) {
				continue
			}

			if err := c.visit(ctx, edge.From+"->"+edge.To, func(ctx context.Context) error {
				return c.exercise(ctx, edge)
			}); err != nil {
				return err
			}
		}
	}

	if err := c.Move(ctx, EntryPoint); err != nil {
		return err
	}

	summary := c.summary(time.Since(start))
	c.logger.RunFinished(ctx, summary)

	if !summary.Passed() {
		return &TransitionError{
			From:   EntryPointName,
			Failed: summary.ErrorStates,
			Err:    ErrStatesUnreachable,
		}
	}

	return nil
}

// visit runs one traversal target, swallowing recoverable failures.
func (c *Crawler) visit(ctx context.Context, target string, run func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("verification interrupted before %s: %w", target, err)
	}

	err := run(ctx)
	if err == nil {
		return nil
	}

	if IsRecoverable(err) {
		c.logger.TargetSkipped(ctx, target, err)

		return nil
	}

	return err
}

// exercise moves to the source of edge and then steps across it.
func (c *Crawler) exercise(ctx context.Context, edge pathfinder.Edge) error {
	source, _ := c.graph.State(edge.From)
	target, _ := c.graph.State(edge.To)

	if err := c.Move(ctx, source); err != nil {
		return err
	}

	return c.step(ctx, c.current, target)
}

func (c *Crawler) summary(duration time.Duration) RunSummary {
	return RunSummary{
		Visited:          len(c.visitedStates),
		Transitions:      len(c.visitedTransitions),
		ErrorStates:      c.errorStates.Sorted(),
		ErrorTransitions: len(c.errorTransitions),
		Duration:         duration,
	}
}
