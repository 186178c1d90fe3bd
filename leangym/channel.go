package leangym

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

// configuration of the channel to one lean-gym process
type ChannelConfig struct {
	WorkingDir string // lean-gym checkout, the process runs from here
	BinaryPath string
	Args       []string
	Timeout    time.Duration // deadline for a single reply line
	BufferSize int           // buffered reply lines before the reader blocks
}

func (c *ChannelConfig) SetDefaults() {
	if c.BinaryPath == "" {
		c.BinaryPath = "lean"
	}
	if len(c.Args) == 0 {
		c.Args = []string{"--run", "src/repl.lean"}
	}
	if c.Timeout == 0 {
		c.Timeout = 300 * time.Second
	}
	if c.BufferSize == 0 {
		c.BufferSize = 256
	}
}

// Channel is the line-oriented transport to one lean-gym process. It supports
// exactly one outstanding send/receive pair, callers serialize access.
type Channel struct {
	config *ChannelConfig

	process *exec.Cmd
	stdin   io.WriteCloser
	lines   chan string
	exited  chan struct{}

	lock       sync.Mutex // guards the exit fields against the reader goroutine
	exitCode   int
	exitStderr string
}

func NewChannel(config *ChannelConfig) *Channel {
	config.SetDefaults()
	return &Channel{config: config}
}

// Start spawns the process. Returns a LaunchError if the working directory or
// the executable is missing, an error if the channel is already running.
func (c *Channel) Start() error {
	if c.Running() {
		return errors.New("channel already started")
	}
	if _, err := os.Stat(c.config.WorkingDir); err != nil {
		return &LaunchError{Path: c.config.WorkingDir, Err: err}
	}

	cmd := exec.Command(c.config.BinaryPath, c.config.Args...)
	cmd.Dir = c.config.WorkingDir
	stderr := new(bytes.Buffer)
	cmd.Stderr = stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &LaunchError{Path: c.config.BinaryPath, Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &LaunchError{Path: c.config.BinaryPath, Err: err}
	}
	if err := cmd.Start(); err != nil {
		return &LaunchError{Path: c.config.BinaryPath, Err: err}
	}

	c.process = cmd
	c.stdin = stdin
	c.lines = make(chan string, c.config.BufferSize)
	c.exited = make(chan struct{})
	c.exitCode = 0
	c.exitStderr = ""

	go c.readLines(cmd, stdout, stderr, c.lines, c.exited)
	return nil
}

// readLines drains the process stdout into the line channel and records the
// exit status once the stream ends.
func (c *Channel) readLines(cmd *exec.Cmd, stdout io.Reader, stderr *bytes.Buffer, lines chan string, exited chan struct{}) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lines <- scanner.Text()
	}
	err := cmd.Wait()

	code := -1
	if cmd.ProcessState != nil {
		code = cmd.ProcessState.ExitCode()
	} else if err == nil {
		code = 0
	}
	c.lock.Lock()
	c.exitCode = code
	c.exitStderr = stderr.String()
	c.lock.Unlock()
	close(exited)
}

// Running reports whether the process is alive.
func (c *Channel) Running() bool {
	if c.process == nil {
		return false
	}
	select {
	case <-c.exited:
		return false
	default:
		return true
	}
}

// SendLine writes one newline-terminated command. The stdin pipe is
// unbuffered, the write reaches the process immediately.
func (c *Channel) SendLine(cmd string) error {
	if !c.Running() {
		return c.closedError()
	}
	if _, err := io.WriteString(c.stdin, cmd+"\n"); err != nil {
		select {
		case <-c.exited:
		case <-time.After(time.Second):
		}
		return c.closedError()
	}
	return nil
}

// ReceiveLine blocks until one reply line arrives, the process exits, or the
// configured deadline expires. On timeout the process is killed and the
// channel closed.
func (c *Channel) ReceiveLine() (string, error) {
	if c.process == nil {
		return "", c.closedError()
	}
	timer := time.NewTimer(c.config.Timeout)
	defer timer.Stop()

	select {
	case line := <-c.lines:
		return line, nil
	case <-c.exited:
		// lines emitted just before the exit may still be buffered
		select {
		case line := <-c.lines:
			return line, nil
		default:
		}
		return "", c.closedError()
	case <-timer.C:
		c.Stop()
		return "", &TimeoutError{After: c.config.Timeout}
	}
}

// Stop terminates the process if still running. Idempotent.
func (c *Channel) Stop() error {
	if c.process == nil {
		return nil
	}
	c.stdin.Close()
	c.process.Process.Kill()
	for {
		select {
		case <-c.exited:
			c.process = nil
			return nil
		case <-c.lines:
			// discard buffered output so the reader can finish
		}
	}
}

func (c *Channel) closedError() *ChannelClosedError {
	c.lock.Lock()
	defer c.lock.Unlock()
	return &ChannelClosedError{ExitCode: c.exitCode, Stderr: c.exitStderr}
}
