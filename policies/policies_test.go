package policies

import (
	"testing"

	"github.com/leanrl/lean-rl-search/types"
)

type testState struct {
	hash    string
	reward  float64
	actions []types.Action
}

func (s *testState) Hash() string { return s.hash }

func (s *testState) Actions() []types.Action { return s.actions }

func (s *testState) Reward() float64 { return s.reward }

type testAction struct {
	tactic string
}

func (a *testAction) Hash() string { return a.tactic }

func tacticPool(tactics ...string) []types.Action {
	actions := make([]types.Action, len(tactics))
	for i, tac := range tactics {
		actions[i] = &testAction{tactic: tac}
	}
	return actions
}

func TestSoftMaxNextAction(t *testing.T) {
	p := NewSoftMaxPolicy(0.3, 0.7, 0.5)
	actions := tacticPool("intros", "simp", "refl")
	state := &testState{hash: "s0", actions: actions}

	for i := 0; i < 20; i++ {
		action, ok := p.NextAction(0, state, actions)
		if !ok {
			t.Fatal("expected an action")
		}
		found := false
		for _, a := range actions {
			if a == action {
				found = true
			}
		}
		if !found {
			t.Fatalf("sampled an action outside the pool: %v", action)
		}
	}

	if _, ok := p.NextAction(0, state, nil); ok {
		t.Error("expected no action for an empty pool")
	}
}

func TestSoftMaxUpdate(t *testing.T) {
	p := NewSoftMaxPolicy(0.5, 0.9, 0.5)
	actions := tacticPool("solve")
	state := &testState{hash: "s0", actions: actions}
	next := &testState{hash: "no goals", reward: 1}

	p.Update(0, state, actions[0], next)
	// (1-0.5)*0 + 0.5*(1 + 0.9*0) = 0.5
	if got := p.qTable.Get("s0", "solve", 0); got != 0.5 {
		t.Errorf("expected q-value 0.5, got %f", got)
	}

	p.Reset()
	if p.qTable.HasState("s0") {
		t.Error("reset should clear the table")
	}
}

func TestEpsilonGreedyExploits(t *testing.T) {
	// epsilon 0 removes the randomness
	p := NewEpsilonGreedyPolicy(0.1, 0.99, 0)
	actions := tacticPool("intros", "simp", "refl")
	state := &testState{hash: "s0", actions: actions}

	p.qTable.Set("s0", "simp", 10)
	for i := 0; i < 5; i++ {
		action, ok := p.NextAction(0, state, actions)
		if !ok {
			t.Fatal("expected an action")
		}
		if action.Hash() != "simp" {
			t.Fatalf("expected the best action, got %s", action.Hash())
		}
	}
}

func TestEpsilonGreedyUpdateIteration(t *testing.T) {
	p := NewEpsilonGreedyPolicy(0.5, 0.9, 0)
	actions := tacticPool("solve")

	trace := types.NewTrace()
	s0 := &testState{hash: "s0", actions: actions}
	s1 := &testState{hash: "s1", actions: actions}
	done := &testState{hash: "no goals", reward: 1}
	trace.Append(0, s0, actions[0], s1, 0)
	trace.Append(1, s1, actions[0], done, 1)
	p.UpdateIteration(0, trace)

	// the rewarded last step raises the value of its state-action pair
	last := p.qTable.Get("s1", "solve", 1)
	if last <= 1 {
		t.Errorf("expected the rewarded step to raise the value above the default, got %f", last)
	}
	// the earlier step sees the discounted successor value
	first := p.qTable.Get("s0", "solve", 1)
	if first <= 1 {
		t.Errorf("expected the successor value to propagate, got %f", first)
	}
	if got := p.visits.Get("s1", "solve", 0); got != 1 {
		t.Errorf("expected 1 visit, got %f", got)
	}
}
