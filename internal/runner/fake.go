package runner

import (
	"context"
	"strings"
	"sync"
)

// Reply is a scripted response of a Fake.
type Reply struct {
	Stdout   string
	Stderr   string
	ExitCode int
	// Err replaces the default error derived from ExitCode
	Err error
	// Do runs before the reply is returned, e.g. to create files the real
	// tool would have produced.
	Do func(cmd Command)
}

type rule struct {
	match string
	reply Reply
}

// Fake is a Runner that records every command and answers from rules
// registered with On. Commands that match no rule succeed with empty output.
type Fake struct {
	mu    sync.Mutex
	rules []rule
	calls []Command
}

// On registers a reply for commands whose joined command line contains match.
// Rules are consulted in registration order.
func (f *Fake) On(match string, reply Reply) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule{match: match, reply: reply})
	return f
}

// Run implements Runner.
func (f *Fake) Run(ctx context.Context, cmd Command) (Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	var reply Reply
	line := cmd.String()
	for _, r := range f.rules {
		if strings.Contains(line, r.match) {
			reply = r.reply
			break
		}
	}
	f.mu.Unlock()

	if reply.Do != nil {
		reply.Do(cmd)
	}
	if cmd.Stdout != nil && reply.Stdout != "" {
		_, _ = cmd.Stdout.Write([]byte(reply.Stdout))
	}
	if cmd.Stderr != nil && reply.Stderr != "" {
		_, _ = cmd.Stderr.Write([]byte(reply.Stderr))
	}

	res := Result{
		Stdout:   []byte(reply.Stdout),
		Stderr:   []byte(reply.Stderr),
		ExitCode: reply.ExitCode,
	}
	if reply.Err != nil {
		return res, reply.Err
	}
	if reply.ExitCode != 0 {
		return res, &ExitError{Code: reply.ExitCode, Stderr: reply.Stderr}
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

// Calls returns a copy of every recorded command.
func (f *Fake) Calls() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Command(nil), f.calls...)
}

// CallsMatching returns the recorded commands whose command line contains match.
func (f *Fake) CallsMatching(match string) []Command {
	var out []Command
	for _, c := range f.Calls() {
		if strings.Contains(c.String(), match) {
			out = append(out, c)
		}
	}
	return out
}
