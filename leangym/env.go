package leangym

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/leanrl/lean-rl-search/cache"
)

// ProofState is one immutable snapshot of the proof search.
type ProofState struct {
	ID   string `json:"id"`
	Goal string `json:"goal"`
}

// Done reports whether the state discharges all goals.
func (p ProofState) Done() bool { return p.Goal == NoGoals }

// Action applies a tactic to a previously returned state. StateID must come
// from a prior Reset or Step on the same session, the process rejects
// unknown ids.
type Action struct {
	StateID string `json:"state_id"`
	Tactic  string `json:"tactic"`
}

func NewAction(stateID, tactic string) Action {
	return Action{StateID: stateID, Tactic: tactic}
}

// StepResult is the outcome of one tactic application. A failed tactic is a
// normal outcome of proof search: Done stays false, Reward stays zero and
// the prover's message is in Info.Error.
type StepResult struct {
	State  ProofState
	Reward float64
	Done   bool
	Info   *Reply
}

// configuration of one environment
type EnvConfig struct {
	RootDir    string // lean-gym checkout, used as working directory
	Decl       string // theorem to prove, may be set later through ResetTo
	BinaryPath string
	Args       []string
	Timeout    time.Duration
	BufferSize int
	Cache      cache.TacticCache
	// namespaces cache keys per process generation
	CacheNamespace string
}

func (c *EnvConfig) SetDefaults() {
	if c.Cache == nil {
		c.Cache = cache.NewMemoryCache()
	}
	if c.CacheNamespace == "" {
		c.CacheNamespace = fmt.Sprintf("%d", time.Now().UnixNano())
	}
}

type envPhase int

const (
	phaseUninitialized envPhase = iota
	phaseActive
	phaseTerminal
	// transport or protocol failure, only Reset recovers
	phaseBroken
)

// Env is the reset/step facade over one lean-gym process. It is the sole
// owner of the process: Close guarantees termination. All calls block until
// one reply line is read, a mutex serializes concurrent callers.
type Env struct {
	config   *EnvConfig
	channel  *Channel
	instance *Instance
	lock     sync.Mutex

	phase    envPhase
	decl     string
	searchID string
}

// NewEnv spawns the lean-gym process. Returns a LaunchError if rootPath is
// not a usable lean-gym checkout.
func NewEnv(config *EnvConfig) (*Env, error) {
	config.SetDefaults()
	channel := NewChannel(&ChannelConfig{
		WorkingDir: config.RootDir,
		BinaryPath: config.BinaryPath,
		Args:       config.Args,
		Timeout:    config.Timeout,
		BufferSize: config.BufferSize,
	})
	if err := channel.Start(); err != nil {
		return nil, err
	}
	return &Env{
		config:   config,
		channel:  channel,
		instance: NewInstance(channel, config.Cache, config.CacheNamespace),
		phase:    phaseUninitialized,
		decl:     config.Decl,
	}, nil
}

// Reset starts a proof search for the configured declaration. Always legal:
// it discards any previous episode, reuses the process when it is still
// healthy and spawns a fresh one otherwise.
func (e *Env) Reset() (ProofState, error) {
	e.lock.Lock()
	defer e.lock.Unlock()
	state, _, err := e.resetLocked(e.decl)
	return state, err
}

// ResetWithInfo additionally returns the raw init reply.
func (e *Env) ResetWithInfo() (ProofState, *Reply, error) {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.resetLocked(e.decl)
}

// ResetTo switches to a different declaration.
func (e *Env) ResetTo(decl string) (ProofState, error) {
	e.lock.Lock()
	defer e.lock.Unlock()
	state, _, err := e.resetLocked(decl)
	return state, err
}

func (e *Env) resetLocked(decl string) (ProofState, *Reply, error) {
	if decl == "" {
		return ProofState{}, nil, errors.New("declaration name is not provided")
	}

	if e.phase == phaseBroken || !e.channel.Running() {
		// a desynced or dead process cannot be reused
		e.channel.Stop()
		if err := e.channel.Start(); err != nil {
			return ProofState{}, nil, err
		}
	} else if e.searchID != "" {
		// best effort, the old search is garbage either way
		e.instance.ClearSearch(e.searchID)
	}
	e.searchID = ""
	e.phase = phaseUninitialized

	rep, err := e.instance.InitSearch(decl)
	if err != nil {
		e.phase = phaseBroken
		return ProofState{}, nil, err
	}
	if rep.Error != "" {
		return ProofState{}, rep, &DeclarationNotFoundError{Decl: decl, Msg: rep.Error}
	}

	e.decl = decl
	e.searchID = rep.SearchID
	e.phase = phaseActive
	return ProofState{ID: rep.TacticStateID, Goal: rep.TacticState}, rep, nil
}

// Step applies the action's tactic at the action's state.
func (e *Env) Step(a Action) (StepResult, error) {
	e.lock.Lock()
	defer e.lock.Unlock()

	switch e.phase {
	case phaseUninitialized, phaseTerminal:
		return StepResult{}, ErrInvalidState
	case phaseBroken:
		if e.channel.Running() {
			return StepResult{}, ErrInvalidState
		}
		return StepResult{}, e.channel.closedError()
	}

	rep, err := e.instance.RunTactic(e.decl, e.searchID, a.StateID, a.Tactic)
	if err != nil {
		e.phase = phaseBroken
		return StepResult{}, err
	}
	if rep.Error != "" {
		return StepResult{Info: rep}, nil
	}

	state := ProofState{ID: rep.TacticStateID, Goal: rep.TacticState}
	result := StepResult{State: state, Info: rep}
	if state.Done() {
		result.Reward = 1
		result.Done = true
		e.phase = phaseTerminal
	}
	return result, nil
}

// Decl returns the declaration of the current or upcoming episode.
func (e *Env) Decl() string {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.decl
}

// Close terminates the process. The environment can be revived with Reset.
func (e *Env) Close() error {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.phase = phaseUninitialized
	e.searchID = ""
	return e.channel.Stop()
}
