package types

// Environment drives one proof search per episode. Unlike an in-process
// simulation, a prover-backed environment can fail mid-episode, so both
// operations return errors.
type Environment interface {
	// Reset called at the start of each episode
	Reset(*EpisodeContext) (State, error)
	// Step applies one action, an error ends the episode
	Step(Action, *StepContext) (State, error)
}

// State of the search that RL policies observe
type State interface {
	// Indexed by the Hash
	// Should be deterministic
	Hash() string
	// Actions possible from the state
	// Empty for terminal states
	Actions() []Action
}

// An Action that the RL policy can take
type Action interface {
	// Index of the action
	// Should be deterministic
	Hash() string
}

// RewardedState exposes the scalar reward earned on entering the state
type RewardedState interface {
	State
	Reward() float64
}
