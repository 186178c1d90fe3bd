package types

import (
	"context"
	"errors"
	"os"
	"path"
	"testing"
)

// episodeCounter records how many traces it saw and their total reward
type episodeCounter struct {
	episodes int
	reward   float64
}

func (e *episodeCounter) Analyze(run, episode, timesteps int, name string, trace *Trace) {
	e.episodes++
	e.reward += trace.Reward()
}

func (e *episodeCounter) DataSet() DataSet { return e.episodes }

func (e *episodeCounter) Reset() {
	e.episodes = 0
	e.reward = 0
}

func TestComparisonRun(t *testing.T) {
	dir := t.TempDir()
	c := NewComparison(&ComparisonConfig{
		Runs:         1,
		Episodes:     4,
		Horizon:      10,
		RecordPath:   dir,
		RecordTraces: true,
	})

	comparatorCalls := 0
	c.AddAnalysis("episodes", func() Analyzer { return &episodeCounter{} }, func(run, episodes int, names []string, ds []DataSet) {
		comparatorCalls++
		if len(names) != 2 || len(ds) != 2 {
			t.Errorf("expected 2 experiments in the comparator, got %v %v", names, ds)
		}
		for i, d := range ds {
			if d.(int) != 4 {
				t.Errorf("expected 4 analyzed episodes for %s, got %v", names[i], d)
			}
		}
	})

	envA := &countEnv{target: 3}
	envB := &countEnv{target: 5}
	c.AddExperiment(NewExperiment("short", NewRandomPolicy(), envA))
	c.AddExperiment(NewExperiment("long", NewRandomPolicy(), envB))
	c.Run(context.Background())

	if comparatorCalls != 1 {
		t.Errorf("expected 1 comparator call, got %d", comparatorCalls)
	}
	if envA.resets != 4 || envB.resets != 4 {
		t.Errorf("expected 4 resets per environment, got %d and %d", envA.resets, envB.resets)
	}
	if _, err := os.Stat(path.Join(dir, "comparison_config.json")); err != nil {
		t.Errorf("comparison config was not recorded: %v", err)
	}
	if _, err := os.Stat(path.Join(dir, "traces", "short_0.jsonl")); err != nil {
		t.Errorf("traces were not recorded: %v", err)
	}
}

func TestComparisonParallel(t *testing.T) {
	c := NewComparison(&ComparisonConfig{
		Runs:        2,
		Episodes:    3,
		Horizon:     10,
		RecordPath:  t.TempDir(),
		Parallelism: 4,
	})
	c.AddAnalysis("episodes", func() Analyzer { return &episodeCounter{} }, NoopComparator())

	envs := make([]*countEnv, 3)
	for i := range envs {
		envs[i] = &countEnv{target: i + 2}
		c.AddExperiment(NewExperiment("exp"+string(rune('A'+i)), NewRandomPolicy(), envs[i]))
	}
	c.Run(context.Background())

	for i, env := range envs {
		if env.resets != 6 {
			t.Errorf("expected 6 resets for environment %d, got %d", i, env.resets)
		}
	}
}

func TestExperimentAbortsOnConsecutiveErrors(t *testing.T) {
	env := &countEnv{target: 3, stepErr: errors.New("prover gone")}
	c := NewComparison(&ComparisonConfig{
		Runs:                   1,
		Episodes:               100,
		Horizon:                10,
		RecordPath:             t.TempDir(),
		ConsecutiveErrorsAbort: 3,
	})
	counter := &episodeCounter{}
	c.AddAnalysis("episodes", func() Analyzer { return counter }, NoopComparator())
	c.AddExperiment(NewExperiment("failing", NewRandomPolicy(), env))
	c.Run(context.Background())

	if counter.episodes != 3 {
		t.Errorf("expected the experiment to abort after 3 episodes, got %d", counter.episodes)
	}
}

func TestCoverageAnalyzer(t *testing.T) {
	a := NewCoverageAnalyzer()
	trace := NewTrace()
	trace.Append(0, &countState{value: 0, target: 3}, &incAction{}, &countState{value: 1, target: 3}, 0)
	trace.Append(1, &countState{value: 1, target: 3}, &incAction{}, &countState{value: 2, target: 3}, 0)
	a.Analyze(0, 0, 0, "test", trace)

	trace = NewTrace()
	trace.Append(0, &countState{value: 0, target: 3}, &incAction{}, &countState{value: 1, target: 3}, 0)
	a.Analyze(0, 1, 2, "test", trace)

	got := a.DataSet().([]int)
	if len(got) != 2 || got[0] != 3 || got[1] != 3 {
		t.Errorf("expected cumulative coverage [3 3], got %v", got)
	}

	a.Reset()
	if len(a.DataSet().([]int)) != 0 {
		t.Error("reset should clear the dataset")
	}
}
