package policies

import (
	"time"

	"github.com/leanrl/lean-rl-search/types"
	"golang.org/x/exp/rand"
)

// EpsilonGreedyPolicy follows the best known tactic with probability
// 1-epsilon and explores otherwise. Q-values carry a 1/visits bonus so
// rarely tried tactics stay attractive, replayed backwards over the trace
// at the end of each episode.
type EpsilonGreedyPolicy struct {
	qTable   *QTable
	visits   *QTable
	alpha    float64
	discount float64
	epsilon  float64
	rand     *rand.Rand
}

var _ types.Policy = &EpsilonGreedyPolicy{}

func NewEpsilonGreedyPolicy(alpha, discount, epsilon float64) *EpsilonGreedyPolicy {
	return &EpsilonGreedyPolicy{
		qTable:   NewQTable(),
		visits:   NewQTable(),
		alpha:    alpha,
		discount: discount,
		epsilon:  epsilon,
		rand:     rand.New(rand.NewSource(uint64(time.Now().UnixNano()))),
	}
}

func (b *EpsilonGreedyPolicy) Reset() {
	b.qTable = NewQTable()
	b.visits = NewQTable()
}

func (b *EpsilonGreedyPolicy) NextAction(step int, state types.State, actions []types.Action) (types.Action, bool) {
	if len(actions) == 0 {
		return nil, false
	}
	if b.rand.Float64() < b.epsilon {
		i := b.rand.Intn(len(actions))
		return actions[i], true
	}

	actionsMap := make(map[string]types.Action)
	availableActions := make([]string, len(actions))
	for i, a := range actions {
		aHash := a.Hash()
		actionsMap[aHash] = a
		availableActions[i] = aHash
	}
	maxAction, _ := b.qTable.MaxAmong(state.Hash(), availableActions, 1)
	if maxAction == "" {
		return nil, false
	}
	return actionsMap[maxAction], true
}

func (b *EpsilonGreedyPolicy) Update(_ int, _ types.State, _ types.Action, _ types.State) {

}

func (b *EpsilonGreedyPolicy) UpdateIteration(iteration int, trace *types.Trace) {
	lastIndex := trace.Len() - 1

	for i := lastIndex; i > -1; i-- { // going backwards in the trace
		state, action, nextState, reward, ok := trace.Get(i)
		if !ok {
			continue
		}
		b.updateStep(state, action, nextState, reward, i == lastIndex)
	}
}

func (b *EpsilonGreedyPolicy) updateStep(state types.State, action types.Action, nextState types.State, reward float64, last bool) {
	stateHash := state.Hash()
	actionHash := action.Hash()

	t := b.visits.Get(stateHash, actionHash, 0) + 1
	b.visits.Set(stateHash, actionHash, t)

	nextStateVal := 0.0
	// the last step of the trace has no successor value
	if !last {
		_, nextStateVal = b.qTable.Max(nextState.Hash(), 1)
	}
	curVal := b.qTable.Get(stateHash, actionHash, 1)
	newVal := (1-b.alpha)*curVal + b.alpha*(reward+1/t+b.discount*nextStateVal)
	b.qTable.Set(stateHash, actionHash, newVal)
}

func (b *EpsilonGreedyPolicy) Record(path string) {
	b.qTable.Record(path)
}
