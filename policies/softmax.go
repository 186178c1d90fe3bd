package policies

import (
	"math"
	"time"

	"github.com/leanrl/lean-rl-search/types"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// SoftMaxPolicy samples tactics proportionally to the exponential of their
// Q-values, updated with one-step Q-learning on the episode rewards.
type SoftMaxPolicy struct {
	qTable      *QTable
	alpha       float64
	gamma       float64
	temperature float64
	rand        rand.Source
}

var _ types.Policy = &SoftMaxPolicy{}

func NewSoftMaxPolicy(alpha, gamma, temperature float64) *SoftMaxPolicy {
	return &SoftMaxPolicy{
		qTable:      NewQTable(),
		alpha:       alpha,
		gamma:       gamma,
		temperature: temperature,
		rand:        rand.NewSource(uint64(time.Now().UnixNano())),
	}
}

func (s *SoftMaxPolicy) Reset() {
	s.qTable = NewQTable()
}

func (s *SoftMaxPolicy) UpdateIteration(_ int, _ *types.Trace) {

}

func (s *SoftMaxPolicy) NextAction(step int, state types.State, actions []types.Action) (types.Action, bool) {
	if len(actions) == 0 {
		return nil, false
	}
	stateHash := state.Hash()

	sum := float64(0)
	weights := make([]float64, len(actions))
	vals := make([]float64, len(actions))

	for i, action := range actions {
		vals[i] = s.qTable.Get(stateHash, action.Hash(), 0) / s.temperature
	}
	for i, val := range vals {
		exp := math.Exp(val)
		vals[i] = exp
		sum += exp
	}
	for i, v := range vals {
		weights[i] = v / sum
	}
	i, ok := sampleuv.NewWeighted(weights, s.rand).Take()
	if !ok {
		return nil, false
	}
	return actions[i], true
}

func (s *SoftMaxPolicy) Update(step int, state types.State, action types.Action, nextState types.State) {
	reward := 0.0
	if r, ok := nextState.(types.RewardedState); ok {
		reward = r.Reward()
	}
	stateHash := state.Hash()
	actionHash := action.Hash()

	_, maxNext := s.qTable.Max(nextState.Hash(), 0)
	curVal := s.qTable.Get(stateHash, actionHash, 0)
	newVal := (1-s.alpha)*curVal + s.alpha*(reward+s.gamma*maxNext)
	s.qTable.Set(stateHash, actionHash, newVal)
}

func (s *SoftMaxPolicy) Record(path string) {
	s.qTable.Record(path)
}
