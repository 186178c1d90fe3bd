package prover

import (
	"fmt"
	"time"

	"github.com/leanrl/lean-rl-search/cache"
	"github.com/leanrl/lean-rl-search/leangym"
	"github.com/leanrl/lean-rl-search/types"
)

// TacticAction is one candidate tactic from the pool
type TacticAction struct {
	Tactic string
}

var _ types.Action = &TacticAction{}

func (t *TacticAction) Hash() string {
	return t.Tactic
}

// SearchState is what policies observe: the current goal plus the candidate
// tactics. A completed proof has no actions, which ends the episode.
type SearchState struct {
	Proof leangym.ProofState
	Done  bool

	reward  float64
	actions []types.Action
}

var _ types.RewardedState = &SearchState{}

func (s *SearchState) Hash() string {
	return s.Proof.Goal
}

func (s *SearchState) Actions() []types.Action {
	if s.Done {
		return nil
	}
	return s.actions
}

func (s *SearchState) Reward() float64 {
	return s.reward
}

// configuration of a proof-search environment
type SearchConfig struct {
	RootDir string   // lean-gym checkout
	Decl    string   // theorem to prove
	Tactics []string // candidate tactic pool

	BinaryPath string
	Timeout    time.Duration
	Cache      cache.TacticCache
}

// SearchEnvironment runs proof searches for one declaration over a lean-gym
// process, exposing the tactic pool as the action set of every state.
type SearchEnvironment struct {
	config *SearchConfig
	env    *leangym.Env
	cur    leangym.ProofState
}

var _ types.Environment = &SearchEnvironment{}

func NewSearchEnvironment(config *SearchConfig) (*SearchEnvironment, error) {
	env, err := leangym.NewEnv(&leangym.EnvConfig{
		RootDir:    config.RootDir,
		Decl:       config.Decl,
		BinaryPath: config.BinaryPath,
		Timeout:    config.Timeout,
		Cache:      config.Cache,
	})
	if err != nil {
		return nil, err
	}
	return &SearchEnvironment{
		config: config,
		env:    env,
	}, nil
}

func (s *SearchEnvironment) Reset(eCtx *types.EpisodeContext) (types.State, error) {
	state, err := s.env.Reset()
	if err != nil {
		return nil, err
	}
	s.cur = state
	return s.newState(state, false, 0), nil
}

func (s *SearchEnvironment) Step(a types.Action, sCtx *types.StepContext) (types.State, error) {
	tactic, ok := a.(*TacticAction)
	if !ok {
		return nil, fmt.Errorf("not a tactic action: %s", a.Hash())
	}

	result, err := s.env.Step(leangym.NewAction(s.cur.ID, tactic.Tactic))
	if err != nil {
		return nil, err
	}
	if result.Info != nil && result.Info.Error != "" {
		// a failed tactic leaves the search where it was
		if sCtx != nil && sCtx.Episode != nil {
			sCtx.Episode.Report.AddLog(result.Info.Error, fmt.Sprintf("tactic_error_step_%d", sCtx.Step))
		}
		return s.newState(s.cur, false, 0), nil
	}

	s.cur = result.State
	return s.newState(result.State, result.Done, result.Reward), nil
}

func (s *SearchEnvironment) newState(proof leangym.ProofState, done bool, reward float64) *SearchState {
	actions := make([]types.Action, len(s.config.Tactics))
	for i, t := range s.config.Tactics {
		actions[i] = &TacticAction{Tactic: t}
	}
	return &SearchState{
		Proof:   proof,
		Done:    done,
		reward:  reward,
		actions: actions,
	}
}

// Close terminates the underlying prover process
func (s *SearchEnvironment) Close() error {
	return s.env.Close()
}
