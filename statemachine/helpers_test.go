package statemachine

import (
	"context"
	"errors"
	"testing"

	"github.com/amp-labs/statecrawler/logger"
	"github.com/neilotoole/slogt"
)

var (
	errTestAction = errors.New("test action failed")
	errTestVerify = errors.New("test verify failed")
)

// fakeSystem records the actions run against it and serves observations
// for expression verifiers.
type fakeSystem struct {
	actions      []string
	observations map[string]map[string]any
}

func newFakeSystem() *fakeSystem {
	return &fakeSystem{observations: make(map[string]map[string]any)}
}

func (f *fakeSystem) Observe(_ context.Context, state string, metadata map[string]any) (map[string]any, error) {
	env := map[string]any{"metadata": metadata}
	for k, v := range f.observations[state] {
		env[k] = v
	}

	return env, nil
}

// record returns an action appending name to the fake system's log.
func record(name string) Action {
	return func(_ context.Context, system System) error {
		fs, ok := system.(*fakeSystem)
		if ok {
			fs.actions = append(fs.actions, name)
		}

		return nil
	}
}

func failing(name string) Action {
	return func(ctx context.Context, system System) error {
		_ = record(name)(ctx, system)

		return errTestAction
	}
}

func verifyError(context.Context, System) (bool, error) {
	return false, errTestVerify
}

func verifyFalse(context.Context, System) (bool, error) {
	return false, nil
}

// testContext returns a context whose logs go to t.
func testContext(t *testing.T) context.Context {
	t.Helper()

	return logger.WithLogger(context.Background(), slogt.New(t))
}

// chain declares test.S1 -> test.S2 -> test.S3, optionally with a direct
// test.S1 -> test.S3 shortcut, every transition at the default cost.
func chain(shortcut bool, verifyS2 Verifier) (s1, s2, s3 *DeclaredState) {
	s1 = Declare("test.S1", nil)
	s2 = Declare("test.S2", verifyS2)
	s3 = Declare("test.S3", nil)

	s1.To(s2, record("S1->S2"))
	s2.To(s3, record("S2->S3"))

	if shortcut {
		s1.To(s3, record("S1->S3"))
	}

	return s1, s2, s3
}

func newTestCrawler(t *testing.T, system System, initial State, opts ...Option) *Crawler {
	t.Helper()

	opts = append([]Option{WithCrawlerName("test"), WithRunID("run-" + t.Name())}, opts...)

	crawler, err := NewCrawler(system, initial, opts...)
	if err != nil {
		t.Fatalf("failed to create crawler: %v", err)
	}

	return crawler
}
