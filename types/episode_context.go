package types

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/leanrl/lean-rl-search/util"
)

// EpisodeContext carries the timeout context of one episode and collects
// what happened in it.
type EpisodeContext struct {
	Context context.Context
	Cancel  context.CancelFunc

	Episode        int
	ExperimentName string

	Timesteps   int
	Err         error
	TimedOut    bool
	Terminal    bool // reached a terminal state before the horizon
	HorizonEnd  bool
	RunDuration time.Duration

	Trace  *Trace
	Report *EpisodeReport
}

func NewEpisodeContext(episode int, experimentName string, timeout time.Duration) *EpisodeContext {
	ctx := context.Background()
	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), timeout)
	}
	return &EpisodeContext{
		Context:        ctx,
		Cancel:         cancel,
		Episode:        episode,
		ExperimentName: experimentName,
		Trace:          NewTrace(),
		Report:         NewEpisodeReport(episode, experimentName),
	}
}

func (e *EpisodeContext) SetError(err error) {
	e.Err = err
}

func (e *EpisodeContext) SetTimedOut() {
	e.TimedOut = true
}

// RecordReport writes the report to the epReports folder under basePath
func (e *EpisodeContext) RecordReport(basePath string) {
	filePath := path.Join(basePath, "epReports", e.ExperimentName+"_ep"+strconv.Itoa(e.Episode)+".txt")
	util.WriteToFile(filePath, e.Report.String())
}

// StepContext identifies one step within an episode
type StepContext struct {
	Episode *EpisodeContext
	Step    int
}

// EPISODE REPORT

// Report of an episode, a timeline of typed entries plus free-form logs
type EpisodeReport struct {
	EpisodeNumber  int
	ExperimentName string

	lock      sync.Mutex
	startTime time.Time

	Timeline []*ReportEntry
	Logs     map[string]string
}

func NewEpisodeReport(episodeNumber int, experimentName string) *EpisodeReport {
	return &EpisodeReport{
		EpisodeNumber:  episodeNumber,
		ExperimentName: experimentName,
		startTime:      time.Now(),
		Timeline:       make([]*ReportEntry, 0),
		Logs:           make(map[string]string),
	}
}

// add a new entry of type int to the report
func (e *EpisodeReport) AddIntEntry(value int, entryType string, caller string) {
	e.addEntry(value, entryType, caller)
}

// add a new entry of type time.Duration to the report
func (e *EpisodeReport) AddTimeEntry(value time.Duration, entryType string, caller string) {
	e.addEntry(value, entryType, caller)
}

func (e *EpisodeReport) addEntry(value interface{}, entryType string, caller string) {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.Timeline = append(e.Timeline, &ReportEntry{
		Index:     len(e.Timeline),
		Timestamp: time.Since(e.startTime),
		EntryType: entryType,
		Caller:    caller,
		Value:     value,
	})
}

func (e *EpisodeReport) AddLog(value string, key string) {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.Logs[key] = value
}

// return a string representation of the report
func (e *EpisodeReport) String() string {
	e.lock.Lock()
	defer e.lock.Unlock()
	result := fmt.Sprintf("Experiment: %s, Episode: %d, Entries: %d\n", e.ExperimentName, e.EpisodeNumber, len(e.Timeline))
	for _, entry := range e.Timeline {
		result = fmt.Sprintf("%s%s\n", result, entry.String())
	}
	for key, value := range e.Logs {
		result = fmt.Sprintf("%s%s :\n%s\n", result, key, value)
	}
	return result
}

// Entry of the report
type ReportEntry struct {
	Index     int           // index of the entry, managed by the report
	Timestamp time.Duration // timestamp of the entry, managed by the report
	EntryType string        // entry type
	Caller    string        // the method adding the entry
	Value     interface{}   // entry value
}

// return a string representation of the entry
func (en *ReportEntry) String() string {
	switch v := en.Value.(type) {
	case time.Duration:
		return fmt.Sprintf("[ %6d | %6d ] %20s : %12s (%s)", en.Index, en.Timestamp.Milliseconds(), en.EntryType, v.String(), en.Caller)
	case int:
		return fmt.Sprintf("[ %6d | %6d ] %20s : %5d (%s)", en.Index, en.Timestamp.Milliseconds(), en.EntryType, v, en.Caller)
	default:
		return "wrong entry type"
	}
}
