package types

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/leanrl/lean-rl-search/util"
)

type experimentRunConfig struct {
	CurrentRun int
	Episodes   int
	Horizon    int
	Analyzers  []Analyzer
	Timeout    time.Duration
	Context    context.Context

	// thresholds to abort the experiment
	ConsecutiveTimeoutsAbort int
	ConsecutiveErrorsAbort   int

	// record flags
	RecordTraces  bool
	RecordPolicy  bool
	RecordReports bool

	ReportSavePath string
}

// Experiment pairs a named policy with an environment and collects the
// traces of its episodes for analysis
type Experiment struct {
	Name        string
	policy      Policy
	environment Environment
}

// NewExperiment creates a new experiment instance
func NewExperiment(name string, policy Policy, environment Environment) *Experiment {
	return &Experiment{
		Name:        name,
		policy:      policy,
		environment: environment,
	}
}

func (e *Experiment) recordTrace(rConfig *experimentRunConfig, trace *Trace) {
	tracesFile := path.Join(rConfig.ReportSavePath, "traces", e.Name+"_"+strconv.Itoa(rConfig.CurrentRun)+".jsonl")
	bs, err := json.Marshal(trace)
	if err != nil {
		return
	}
	util.AppendToFile(tracesFile, string(bs))
}

// Run the experiment for the configured number of episodes, feeding every
// trace to the analyzers
func (e *Experiment) Run(rConfig *experimentRunConfig) {
	select {
	case <-rConfig.Context.Done():
		return
	default:
	}

	agent := NewAgent(&AgentConfig{
		Horizon:     rConfig.Horizon,
		Policy:      e.policy,
		Environment: e.environment,
	})

	totalTimeout := 0 // episodes ended with a timeout
	totalErrors := 0  // episodes ended with an error
	totalProofs := 0  // episodes that earned a reward
	consecutiveTimeouts := 0
	consecutiveErrors := 0
	timesteps := 0

	for episode := 0; episode < rConfig.Episodes; episode++ {
		select {
		case <-rConfig.Context.Done():
			return
		default:
		}

		eCtx := NewEpisodeContext(episode, e.Name, rConfig.Timeout)
		e.runEpisode(eCtx, agent)

		startingTimesteps := timesteps
		timesteps += eCtx.Timesteps

		if eCtx.TimedOut {
			totalTimeout += 1
			consecutiveTimeouts += 1
		} else {
			consecutiveTimeouts = 0
		}
		if eCtx.Err != nil {
			totalErrors += 1
			consecutiveErrors += 1
		} else {
			consecutiveErrors = 0
		}
		if eCtx.Trace.Reward() > 0 {
			totalProofs += 1
		}

		if rConfig.RecordTraces {
			e.recordTrace(rConfig, eCtx.Trace)
		}
		if rConfig.RecordReports && (eCtx.Err != nil || eCtx.TimedOut) {
			eCtx.RecordReport(rConfig.ReportSavePath)
		}

		// analyze the trace, even if the episode timed out or ended with an error
		for _, a := range rConfig.Analyzers {
			a.Analyze(rConfig.CurrentRun, episode, startingTimesteps, e.Name, eCtx.Trace)
		}

		fmt.Printf("\rExp:%s, Eps:%d/%d, Proved:%d, TOut:%d, Err:%d",
			e.Name, episode+1, rConfig.Episodes, totalProofs, totalTimeout, totalErrors)

		if consecutiveTimeouts >= rConfig.ConsecutiveTimeoutsAbort {
			fmt.Printf("\n Aborting experiment %s : %d consecutive timeouts\n", e.Name, consecutiveTimeouts)
			break
		}
		if consecutiveErrors >= rConfig.ConsecutiveErrorsAbort {
			fmt.Printf("\n Aborting experiment %s : %d consecutive errors\n", e.Name, consecutiveErrors)
			break
		}
	}

	if rConfig.RecordPolicy {
		e.policy.Record(path.Join(rConfig.ReportSavePath, "policies", e.Name+"_"+strconv.Itoa(rConfig.CurrentRun)))
	}

	fmt.Println("")
}

// run one episode in its own goroutine so a hung prover call cannot outlive
// the episode deadline unobserved
func (e *Experiment) runEpisode(eCtx *EpisodeContext, agent *Agent) {
	defer func() {
		if r := recover(); r != nil {
			eCtx.SetError(fmt.Errorf("%v", r))
		}
	}()
	defer eCtx.Cancel()

	done := make(chan struct{})
	go func() {
		start := time.Now()
		agent.RunEpisode(eCtx)
		eCtx.RunDuration = time.Since(start)
		close(done)
	}()

	select {
	case <-eCtx.Context.Done():
		if deadline, ok := eCtx.Context.Deadline(); ok && time.Now().After(deadline) {
			eCtx.SetTimedOut()
		}
		// the agent goroutine unblocks once the environment observes the
		// cancelled context or its own receive deadline
		<-done
	case <-done:
	}
}

// Reset clears the policy between runs
func (e *Experiment) Reset() {
	e.policy.Reset()
}

// Generic Dataset that contains information after processing the traces
type DataSet interface{}

// Analyzer compresses the information in the traces to a DataSet
type Analyzer interface {
	// Run, episode, total timesteps so far, experiment name, trace
	Analyze(int, int, int, string, *Trace)
	// Resulting dataset
	DataSet() DataSet
	// Reset the analyzer
	Reset()
}

// Comparator differentiates between datasets with associated names
// run, episodes, experiment names, datasets
type Comparator func(int, int, []string, []DataSet)

func NoopComparator() Comparator {
	return func(_, _ int, _ []string, _ []DataSet) {}
}

// ComparisonConfig contains the configuration for the comparison
type ComparisonConfig struct {
	Runs     int // number of runs
	Episodes int // number of episodes per run
	Horizon  int // number of steps per episode

	RecordPath string        // path to store the results
	Timeout    time.Duration // timeout for each episode

	// thresholds to abort the experiment
	ConsecutiveTimeoutsAbort int
	ConsecutiveErrorsAbort   int

	// record flags
	RecordTraces  bool
	RecordPolicy  bool
	RecordReports bool

	// number of experiments running concurrently, each owns its prover process
	Parallelism int
}

func (c *ComparisonConfig) SetDefaults() {
	if c.ConsecutiveErrorsAbort == 0 {
		c.ConsecutiveErrorsAbort = 10
	}
	if c.ConsecutiveTimeoutsAbort == 0 {
		c.ConsecutiveTimeoutsAbort = 10
	}
	if c.Parallelism == 0 {
		c.Parallelism = 1
	}
}

// Comparison contains the different experiments to compare. The traces
// obtained from the experiments are analyzed and the datasets compared.
type Comparison struct {
	Experiments []*Experiment
	analyzers   map[string]func() Analyzer
	comparators map[string]Comparator
	cConfig     *ComparisonConfig
}

// NewComparison creates a comparison instance
func NewComparison(config *ComparisonConfig) *Comparison {
	config.SetDefaults()

	os.MkdirAll(config.RecordPath, 0777)
	foldersToCreate := []string{}
	if config.RecordTraces {
		foldersToCreate = append(foldersToCreate, "traces")
	}
	if config.RecordPolicy {
		foldersToCreate = append(foldersToCreate, "policies")
	}
	if config.RecordReports {
		foldersToCreate = append(foldersToCreate, "epReports")
	}
	for _, s := range foldersToCreate {
		fldPath := path.Join(config.RecordPath, s)
		if _, err := os.Stat(fldPath); err != nil {
			os.MkdirAll(fldPath, 0777)
		}
	}

	return &Comparison{
		Experiments: make([]*Experiment, 0),
		analyzers:   make(map[string]func() Analyzer),
		comparators: make(map[string]Comparator),
		cConfig:     config,
	}
}

// AddAnalysis adds an analyzer constructor and a comparator to the
// comparison. Each experiment gets its own analyzer instance so experiments
// can run concurrently.
func (c *Comparison) AddAnalysis(name string, analyzer func() Analyzer, comparator Comparator) {
	c.analyzers[name] = analyzer
	c.comparators[name] = comparator
}

// Add experiments to compare
func (c *Comparison) AddExperiment(e *Experiment) {
	c.Experiments = append(c.Experiments, e)
}

// record the configuration of the comparison
func (c *Comparison) recordConfig() {
	cfg := c.cConfig
	out := map[string]interface{}{
		"runs":     cfg.Runs,
		"episodes": cfg.Episodes,
		"horizon":  cfg.Horizon,
	}
	if cfg.Timeout != 0 {
		out["timeout"] = cfg.Timeout.String()
	}
	experiments := make([]string, 0)
	for _, e := range c.Experiments {
		experiments = append(experiments, e.Name)
	}
	out["experiments"] = experiments

	bs, err := json.Marshal(out)
	if err != nil {
		return
	}
	util.WriteToFile(path.Join(cfg.RecordPath, "comparison_config.json"), string(bs))
}

// Run the comparison
func (c *Comparison) Run(ctx context.Context) {
	c.recordConfig()

	for run := 0; run < c.cConfig.Runs; run++ {
		fmt.Printf("Run %d\n", run+1)

		names := make([]string, len(c.Experiments))
		datasets := make(map[string][]DataSet)
		for name := range c.analyzers {
			datasets[name] = make([]DataSet, len(c.Experiments))
		}

		sem := make(chan struct{}, c.cConfig.Parallelism)
		wg := new(sync.WaitGroup)
		for i, e := range c.Experiments {
			select {
			case <-ctx.Done():
				wg.Wait()
				return
			default:
			}
			names[i] = e.Name

			analyzers := make(map[string]Analyzer)
			for name, newAnalyzer := range c.analyzers {
				analyzers[name] = newAnalyzer()
			}

			sem <- struct{}{}
			wg.Add(1)
			go func(i int, e *Experiment, analyzers map[string]Analyzer) {
				defer wg.Done()
				defer func() { <-sem }()

				e.Run(c.prepareRunConfig(ctx, run, analyzers))
				for name, a := range analyzers {
					datasets[name][i] = a.DataSet()
				}
				e.Reset()
			}(i, e, analyzers)
		}
		wg.Wait()

		for name, comp := range c.comparators {
			comp(run, c.cConfig.Episodes, names, datasets[name])
		}
	}
}

// prepare the run configuration for one experiment
func (c *Comparison) prepareRunConfig(ctx context.Context, run int, analyzers map[string]Analyzer) *experimentRunConfig {
	rCfg := &experimentRunConfig{
		CurrentRun:               run,
		Episodes:                 c.cConfig.Episodes,
		Horizon:                  c.cConfig.Horizon,
		Analyzers:                make([]Analyzer, 0),
		Timeout:                  c.cConfig.Timeout,
		Context:                  ctx,
		ConsecutiveTimeoutsAbort: c.cConfig.ConsecutiveTimeoutsAbort,
		ConsecutiveErrorsAbort:   c.cConfig.ConsecutiveErrorsAbort,
		RecordTraces:             c.cConfig.RecordTraces,
		RecordPolicy:             c.cConfig.RecordPolicy,
		RecordReports:            c.cConfig.RecordReports,
		ReportSavePath:           c.cConfig.RecordPath,
	}
	for _, a := range analyzers {
		rCfg.Analyzers = append(rCfg.Analyzers, a)
	}
	return rCfg
}
