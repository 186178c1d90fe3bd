package types

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestTrace(t *testing.T) {
	trace := NewTrace()
	if _, _, _, _, ok := trace.Last(); ok {
		t.Error("empty trace should have no last step")
	}

	a := &incAction{}
	for i := 0; i < 3; i++ {
		reward := 0.0
		if i == 2 {
			reward = 1
		}
		trace.Append(i, &countState{value: i, target: 3}, a, &countState{value: i + 1, target: 3}, reward)
	}

	if trace.Len() != 3 {
		t.Fatalf("expected 3 steps, got %d", trace.Len())
	}
	if trace.Reward() != 1 {
		t.Errorf("expected total reward 1, got %f", trace.Reward())
	}
	state, _, next, reward, ok := trace.Get(1)
	if !ok || state.Hash() != "1" || next.Hash() != "2" || reward != 0 {
		t.Errorf("unexpected step 1: %v %v %f", state, next, reward)
	}
	if _, _, _, _, ok := trace.Get(3); ok {
		t.Error("out-of-range get should fail")
	}

	bs, err := json.Marshal(trace)
	if err != nil {
		t.Fatalf("failed to marshal trace: %v", err)
	}
	var steps []map[string]interface{}
	if err := json.Unmarshal(bs, &steps); err != nil {
		t.Fatalf("trace did not marshal to a step list: %v", err)
	}
	if len(steps) != 3 {
		t.Fatalf("expected 3 marshalled steps, got %d", len(steps))
	}
	if steps[2]["state"] != "2" || steps[2]["next_state"] != "3" || steps[2]["reward"] != 1.0 {
		t.Errorf("unexpected marshalled step: %v", steps[2])
	}
}

func TestEpisodeReport(t *testing.T) {
	report := NewEpisodeReport(4, "test")
	report.AddIntEntry(42, "queue_len", "test")
	report.AddTimeEntry(0, "step_time", "test")
	report.AddLog("unknown identifier", "tactic_error_step_0")

	if len(report.Timeline) != 2 {
		t.Fatalf("expected 2 timeline entries, got %d", len(report.Timeline))
	}
	if report.Timeline[0].Index != 0 || report.Timeline[1].Index != 1 {
		t.Error("entries must be indexed in order")
	}
	out := report.String()
	for _, want := range []string{"Episode: 4", "queue_len", "step_time", "tactic_error_step_0", "unknown identifier"} {
		if !strings.Contains(out, want) {
			t.Errorf("report output missing %q:\n%s", want, out)
		}
	}
}
