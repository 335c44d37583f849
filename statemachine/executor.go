package statemachine

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/amp-labs/statecrawler/pathfinder"
)

// step drives the system across the single edge from -> to. On success the
// crawler commits to the target. On failure the edge and every state it cuts
// off are recorded as failing, the crawler returns to the entry point and a
// TransitionError is returned.
func (c *Crawler) step(ctx context.Context, from, to State) (err error) {
	if to == nil {
		return ErrStateRequired
	}

	fromName := from.FullName()
	toName := to.FullName()

	if IsEntryPoint(to) {
		c.current = EntryPoint
		c.history = []string{EntryPointName}

		return nil
	}

	transition, ok := c.graph.Transition(fromName, toName)
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrTransitionNotFound, fromName, toName)
	}

	if IsEntryPoint(from) {
		c.history = []string{EntryPointName}
	}

	ctx, span := startStepSpan(ctx, c, fromName, toName)
	start := time.Now()

	defer func() {
		endSpan(span, err)

		outcome := outcomeOf(err)
		stepsTotal.WithLabelValues(sanitizeCrawler(c.name), sanitizeState(fromName), sanitizeState(toName), outcome).Inc()
		stepDuration.WithLabelValues(sanitizeCrawler(c.name), outcome).Observe(time.Since(start).Seconds())
	}()

	c.logger.StepStarted(ctx, fromName, toName)

	edge := pathfinder.Edge{From: fromName, To: toName}

	if actionErr := runAction(ctx, transition.Action, c.system); actionErr != nil {
		c.errorTransitions.Add(edge)
		c.recomputeErrorStates(toName)

		return c.fail(ctx, fromName, toName, start, fmt.Errorf("%w: %w", ErrActionFailed, actionErr))
	}

	ok, verifyErr := runVerify(ctx, to, c.system)
	if verifyErr != nil || !ok {
		c.errorTransitions.Add(edge)

		for _, name := range c.recomputeErrorStates(toName) {
			c.quarantine(name)
		}

		if verifyErr != nil {
			return c.fail(ctx, fromName, toName, start, fmt.Errorf("%w: %w", ErrVerificationFailed, verifyErr))
		}

		return c.fail(ctx, fromName, toName, start, ErrStateNotVerified)
	}

	c.current = to
	c.history = append(c.history, toName)
	c.visitedStates.Add(toName)
	c.visitedTransitions.Add(edge)

	c.logger.StepSucceeded(ctx, fromName, toName, time.Since(start))

	return nil
}

// fail resets the crawler to the entry point and builds the TransitionError
// for a failed step.
func (c *Crawler) fail(ctx context.Context, from, to string, start time.Time, cause error) error {
	trail := append(slices.Clone(c.history), to)

	c.current = EntryPoint

	c.logger.StepFailed(ctx, from, to, time.Since(start), cause)

	return WrapTransitionError(from, to, trail, cause)
}

// recomputeErrorStates recomputes the error states with next treated as
// failing and returns the states that were not failing before, sorted.
func (c *Crawler) recomputeErrorStates(next string) []string {
	before := c.errorStates.Clone()

	excluded := c.errorStates.Clone()
	excluded.Add(next)

	unreachable := pathfinder.FindAllUnreachableNodes(c.graph.adjacency, EntryPointName, excluded, c.errorTransitions)
	c.errorStates = c.errorStates.Union(unreachable)

	errorStatesGauge.WithLabelValues(sanitizeCrawler(c.name), sanitizeRunID(c.runID)).Set(float64(len(c.errorStates)))

	return c.errorStates.Difference(before).Sorted()
}

// quarantine marks every declared transition leaving state as failing.
func (c *Crawler) quarantine(state string) {
	for target := range c.graph.adjacency[state] {
		if target == EntryPointName {
			continue
		}

		c.errorTransitions.Add(pathfinder.Edge{From: state, To: target})
	}
}

func runAction(ctx context.Context, action Action, system System) (err error) {
	if action == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrActionPanicked, r)
		}
	}()

	return action(ctx, system)
}

func runVerify(ctx context.Context, state State, system System) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = fmt.Errorf("%w: %v", ErrActionPanicked, r)
		}
	}()

	return state.Verify(ctx, system)
}
