package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	outputTailBytes = 4096
	// waitDelay bounds how long Run waits for output pipes after the process is killed.
	waitDelay = 5 * time.Second
)

// Command describes an external process invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Env entries are appended to the current process environment.
	Env []string
}

// String renders the command line with credentials in URI arguments redacted.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for _, arg := range c.Args {
		parts = append(parts, redactArg(arg))
	}
	return strings.Join(parts, " ")
}

// Result captures the outcome of a finished process.
type Result struct {
	ExitCode int
	Duration time.Duration
	Stdout   string
	Stderr   string
}

// Executor runs external commands. Implementations must honour ctx cancellation.
type Executor interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// CommandError reports a process that could not start or exited with a non-zero status.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("backup: %s exited with status %d", e.Command, e.ExitCode)
	if e.ExitCode < 0 {
		msg = fmt.Sprintf("backup: %s failed", e.Command)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// ProcessExecutor runs commands with os/exec, streaming their output to the logger.
type ProcessExecutor struct {
	log *zap.Logger
}

// NewProcessExecutor returns an executor logging through log.
func NewProcessExecutor(log *zap.Logger) *ProcessExecutor {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProcessExecutor{log: log}
}

// Run starts cmd, waits for it and returns a *CommandError when it fails.
func (p *ProcessExecutor) Run(ctx context.Context, cmd Command) (Result, error) {
	if strings.TrimSpace(cmd.Name) == "" {
		return Result{ExitCode: -1}, errors.New("backup: command name is required")
	}

	proc := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	proc.Dir = cmd.Dir
	proc.WaitDelay = waitDelay
	if len(cmd.Env) > 0 {
		proc.Env = append(os.Environ(), cmd.Env...)
	}

	display := cmd.String()
	stdout := newLineWriter(p.log.With(zap.String("command", cmd.Name), zap.String("stream", "stdout")))
	stderr := newLineWriter(p.log.With(zap.String("command", cmd.Name), zap.String("stream", "stderr")))
	proc.Stdout = stdout
	proc.Stderr = stderr

	p.log.Debug("running command", zap.String("command", display), zap.String("dir", cmd.Dir))

	start := time.Now()
	err := proc.Run()
	stdout.flush()
	stderr.flush()

	result := Result{
		ExitCode: 0,
		Duration: time.Since(start),
		Stdout:   stdout.tail(),
		Stderr:   stderr.tail(),
	}

	if err == nil {
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
	} else {
		result.ExitCode = -1
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	return result, &CommandError{
		Command:  cmd.Name,
		ExitCode: result.ExitCode,
		Stderr:   result.Stderr,
		Err:      err,
	}
}

// lineWriter logs each complete line at debug level and retains a bounded tail.
type lineWriter struct {
	mu      sync.Mutex
	log     *zap.Logger
	pending bytes.Buffer
	last    []byte
}

func newLineWriter(log *zap.Logger) *lineWriter {
	return &lineWriter{log: log}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.keep(p)
	w.pending.Write(p)
	for {
		line, err := w.pending.ReadString('\n')
		if err != nil {
			// incomplete line, put it back
			w.pending.Reset()
			w.pending.WriteString(line)
			break
		}
		w.emit(line)
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending.Len() > 0 {
		w.emit(w.pending.String())
		w.pending.Reset()
	}
}

func (w *lineWriter) emit(line string) {
	line = strings.TrimRight(line, "\r\n")
	if line != "" {
		w.log.Debug(line)
	}
}

func (w *lineWriter) keep(p []byte) {
	w.last = append(w.last, p...)
	if over := len(w.last) - outputTailBytes; over > 0 {
		w.last = append([]byte(nil), w.last[over:]...)
	}
}

func (w *lineWriter) tail() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return string(w.last)
}

func redactArg(arg string) string {
	key, value, found := strings.Cut(arg, "=")
	if !found || !strings.Contains(value, "://") {
		return arg
	}
	scheme, rest, _ := strings.Cut(value, "://")
	at := strings.LastIndex(rest, "@")
	if at < 0 {
		return arg
	}
	return key + "=" + scheme + "://***@" + rest[at+1:]
}
