package types

import "time"

type AgentConfig struct {
	Horizon     int
	Policy      Policy
	Environment Environment
}

// RL Agent configured with the corresponding policy and environment
type Agent struct {
	config      *AgentConfig
	policy      Policy
	environment Environment
}

// Instantiates a new Agent
func NewAgent(config *AgentConfig) *Agent {
	return &Agent{
		config:      config,
		policy:      config.Policy,
		environment: config.Environment,
	}
}

func (a *Agent) Horizon() int {
	return a.config.Horizon
}

// RunEpisode runs a single episode up to the horizon, filling the trace and
// the outcome flags of the episode context.
func (a *Agent) RunEpisode(eCtx *EpisodeContext) {
	state, err := a.environment.Reset(eCtx)
	if err != nil {
		eCtx.SetError(err)
		return
	}
	actions := state.Actions()

	for i := 0; i < a.config.Horizon; i++ {
		if len(actions) == 0 {
			eCtx.Terminal = true
			break
		}
		select {
		case <-eCtx.Context.Done():
			eCtx.SetTimedOut()
			return
		default:
		}

		action, ok := a.policy.NextAction(i, state, actions)
		if !ok {
			break
		}

		sCtx := &StepContext{Episode: eCtx, Step: i}
		start := time.Now()
		nextState, err := a.environment.Step(action, sCtx)
		if err != nil {
			eCtx.SetError(err)
			return
		}
		eCtx.Report.AddTimeEntry(time.Since(start), "step_time", "agent.RunEpisode")

		reward := 0.0
		if r, ok := nextState.(RewardedState); ok {
			reward = r.Reward()
		}
		a.policy.Update(i, state, action, nextState)
		eCtx.Trace.Append(i, state, action, nextState, reward)
		eCtx.Timesteps = i + 1

		state = nextState
		actions = state.Actions()
	}

	if len(actions) == 0 {
		eCtx.Terminal = true
	} else if eCtx.Timesteps == a.config.Horizon {
		eCtx.HorizonEnd = true
	}
	a.policy.UpdateIteration(eCtx.Episode, eCtx.Trace)
}
