// Package childproc spawns an interpreter child, drives it through the
// JSONL control protocol defined in internal/protocol, and tracks its
// liveness and exit status.
package childproc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lunest-run/lunest/internal/protocol"
	"github.com/lunest-run/lunest/internal/workspace"
)

const (
	spawnRetryAttempts = 5
	spawnRetryDelay    = 100 * time.Millisecond
)

// Process is one spawned child and the control-channel plumbing around it.
type Process struct {
	cmd   *exec.Cmd
	state State

	in  *os.File
	out *protocol.LineReader

	outFile *os.File

	stdout, stderr bytes.Buffer
	drain          *errgroup.Group

	waitCh  chan struct{}
	exited  bool
	exitErr error
}

// Spawn launches interpreterCmd[0] with interpreterCmd[1:] and bootstrapPath
// as trailing arguments, working directory rootDir, and the two control
// files named by LUNEST_IN/LUNEST_OUT. A "resource busy" start failure (seen
// transiently right after a materialized interpreter binary is written) is
// retried a bounded number of times.
func Spawn(ctx context.Context, interpreterCmd []string, bootstrapPath, rootDir string, dirs *workspace.ChildDir) (*Process, error) {
	if len(interpreterCmd) == 0 {
		return nil, fmt.Errorf("childproc: interpreter command is empty")
	}

	args := append(append([]string{}, interpreterCmd[1:]...), bootstrapPath)

	var cmd *exec.Cmd
	var stdoutPipe, stderrPipe *os.File
	var err error

	for attempt := 0; attempt < spawnRetryAttempts; attempt++ {
		cmd = exec.CommandContext(ctx, interpreterCmd[0], args...)
		cmd.Dir = rootDir
		cmd.Env = append(os.Environ(),
			"LUNEST_IN="+dirs.InPath,
			"LUNEST_OUT="+dirs.OutPath,
		)

		var stdoutR, stderrR *os.File
		stdoutR, stdoutPipe, err = os.Pipe()
		if err != nil {
			return nil, fmt.Errorf("childproc: create stdout pipe: %w", err)
		}
		stderrR, stderrPipe, err = os.Pipe()
		if err != nil {
			return nil, fmt.Errorf("childproc: create stderr pipe: %w", err)
		}
		cmd.Stdout = stdoutPipe
		cmd.Stderr = stderrPipe

		err = cmd.Start()
		stdoutPipe.Close()
		stderrPipe.Close()

		if err == nil {
			p := &Process{cmd: cmd, state: StateFresh, waitCh: make(chan struct{})}
			p.startDraining(stdoutR, stderrR)
			go func() {
				_ = cmd.Wait()
				close(p.waitCh)
			}()
			if err := p.openControlFiles(dirs); err != nil {
				return nil, err
			}
			return p, nil
		}

		stdoutR.Close()
		stderrR.Close()

		if !isResourceBusy(err) || attempt == spawnRetryAttempts-1 {
			return nil, fmt.Errorf("childproc: spawn %s: %w", interpreterCmd[0], err)
		}
		slog.Debug("spawn hit a transient resource-busy error, retrying", "attempt", attempt, "err", err)
		time.Sleep(spawnRetryDelay)
	}

	return nil, fmt.Errorf("childproc: spawn %s: %w", interpreterCmd[0], err)
}

func isResourceBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "text file busy") || strings.Contains(msg, "resource busy")
}

func (p *Process) startDraining(stdoutR, stderrR *os.File) {
	g := &errgroup.Group{}
	g.Go(func() error {
		_, err := p.stdout.ReadFrom(stdoutR)
		stdoutR.Close()
		return err
	})
	g.Go(func() error {
		_, err := p.stderr.ReadFrom(stderrR)
		stderrR.Close()
		return err
	})
	p.drain = g
}

func (p *Process) openControlFiles(dirs *workspace.ChildDir) error {
	inFile, err := os.OpenFile(dirs.InPath, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("childproc: open %s for writing: %w", dirs.InPath, err)
	}
	p.in = inFile

	outFile, err := os.Open(dirs.OutPath)
	if err != nil {
		inFile.Close()
		return fmt.Errorf("childproc: open %s for reading: %w", dirs.OutPath, err)
	}
	p.outFile = outFile
	p.out = protocol.NewLineReader(outFile)
	return nil
}

// State returns the current host-side protocol state.
func (p *Process) State() State { return p.state }

// Send writes in to the child's input channel, validating the transition
// against the host-side state machine.
func (p *Process) Send(in protocol.Input) error {
	next, err := p.transition(in)
	if err != nil {
		return err
	}

	data, err := marshalLine(in)
	if err != nil {
		return err
	}
	if err := protocol.NewLineWriter(p.in).WriteLine(data); err != nil {
		return fmt.Errorf("childproc: write input: %w", err)
	}

	p.state = next
	return nil
}

func (p *Process) transition(in protocol.Input) (State, error) {
	switch {
	case in.Initialize != nil:
		if p.state != StateFresh {
			return 0, &StateError{Attempted: "Initialize", Current: p.state}
		}
		return StateInitialized, nil
	case in.Execute != nil:
		if p.state != StateInitialized {
			return 0, &StateError{Attempted: "Execute", Current: p.state}
		}
		return StateInitialized, nil
	case in.Run != nil:
		if p.state != StateInitialized {
			return 0, &StateError{Attempted: "Run", Current: p.state}
		}
		if in.Run.Mode == protocol.ModeList {
			return StateListing, nil
		}
		return StateRunning, nil
	case in.Finish != nil:
		return StateFinished, nil
	default:
		return 0, fmt.Errorf("childproc: empty Input")
	}
}

// ReturnToInitialized is called by the Driver once the List phase has
// observed AllInputsRead, completing the Listing -> Initialized transition
// spec §4.4 describes. It moves a Running process back the same way.
func (p *Process) ReturnToInitialized() {
	if p.state == StateListing || p.state == StateRunning {
		p.state = StateInitialized
	}
}

// Next blocks until one Output line is available, the child exits, or ctx
// is cancelled. It returns (nil, nil) when the child has exited cleanly and
// no further output remains.
func (p *Process) Next(ctx context.Context) (*protocol.Output, error) {
	exitSeen := false
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		result, line, err := p.out.ReadLine()
		if err != nil {
			return nil, fmt.Errorf("childproc: read output: %w", err)
		}

		if result == protocol.LineOk {
			var out protocol.Output
			if jsonErr := json.Unmarshal([]byte(line), &out); jsonErr != nil {
				p.kill()
				return nil, &ProtocolError{Message: jsonErr.Error(), Line: line}
			}
			return &out, nil
		}

		running, runErr := p.isRunning()
		if runErr != nil {
			return nil, runErr
		}
		if !running {
			// Lines written between the read above and the exit check are
			// still in the file: read once more before reporting the end.
			if !exitSeen {
				exitSeen = true
				continue
			}
			return nil, nil
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// isRunning consults the OS for child exit. On first observation of exit it
// waits for the stdout/stderr drain and records the exit outcome; the
// captured output is logged only when the exit is abnormal. A clean exit
// (status 0) reports (false, nil); any other code or signal termination
// becomes an *ExitError, returned on that call and on every later one.
func (p *Process) isRunning() (bool, error) {
	if p.exited {
		if p.exitErr != nil {
			return false, p.exitErr
		}
		return false, nil
	}

	select {
	case <-p.waitCh:
		p.exited = true
		_ = p.drain.Wait()

		state := p.cmd.ProcessState
		if state == nil {
			return false, nil
		}

		if state.Success() {
			slog.Debug("child process exited cleanly")
			return false, nil
		}

		p.logCapturedOutput()

		if state.ExitCode() == -1 {
			p.exitErr = &ExitError{Signal: state.String()}
		} else {
			p.exitErr = &ExitError{Code: state.ExitCode()}
		}
		return false, p.exitErr
	default:
		return true, nil
	}
}

func (p *Process) logCapturedOutput() {
	if p.stdout.Len() > 0 {
		slog.Warn("child stdout", "output", p.stdout.String())
	}
	if p.stderr.Len() > 0 {
		slog.Warn("child stderr", "output", p.stderr.String())
	}
}

// Close kills the child if it is still running, closes the control files,
// and removes no files (the owning TempWorkspace does that). It is always
// safe to call, including after a clean exit.
func (p *Process) Close() {
	p.kill()
	if p.in != nil {
		p.in.Close()
	}
	if p.outFile != nil {
		p.outFile.Close()
	}
}

func (p *Process) kill() {
	if p.cmd.Process == nil || p.exited {
		return
	}
	_ = p.cmd.Process.Kill()
}

func marshalLine(in protocol.Input) (string, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("childproc: marshal input: %w", err)
	}
	return string(data), nil
}
