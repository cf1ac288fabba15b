package session

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/corvid/transcriptkeeper/internal/pathcodec"
)

// Descriptor describes how to start the external assistant for a
// session, independent of which executor runs it (inherit-stdio for the
// CLI, PTY-attach for the Bridge Server).
type Descriptor struct {
	Command         string
	Args            []string
	Cwd             string
	ResumeSessionID string
	SkipPermissions bool
	Prompt          string
}

// LaunchOptions controls BuildDescriptor. Its DryRun field is not read
// there; Launch takes dry-run mode as its own argument.
type LaunchOptions struct {
	Command         string
	SkipPermissions bool
	Prompt          string
	DryRun          bool
}

// BuildDescriptor resolves a session's launch descriptor: the command to
// run, in the session's working directory, with a resume argument for its
// id.
func (f *Facade) BuildDescriptor(ctx context.Context, sessionID string, opts LaunchOptions) (Descriptor, error) {
	row, err := f.Store.GetFileBySessionID(ctx, sessionID)
	if err != nil {
		return Descriptor{}, fmt.Errorf("build launch descriptor for session %s: %w", sessionID, err)
	}

	args := []string{"--resume", sessionID}
	if opts.SkipPermissions {
		args = append(args, "--dangerously-skip-permissions")
	}
	if opts.Prompt != "" {
		args = append(args, opts.Prompt)
	}

	return Descriptor{
		Command:         opts.Command,
		Args:            args,
		Cwd:             pathcodec.Decode(row.EncodedDir),
		ResumeSessionID: sessionID,
		SkipPermissions: opts.SkipPermissions,
		Prompt:          opts.Prompt,
	}, nil
}

// Launch runs the descriptor's command inheriting the current process's
// standard I/O, or, in dry-run mode, returns the descriptor without any
// side effect. While the child runs, the parent ignores SIGINT so the
// child (which has its own terminal foreground group) is the one that
// receives and acts on it; prior signal handling is restored verbatim on
// exit.
func Launch(ctx context.Context, d Descriptor, dryRun bool) (Descriptor, int, error) {
	if dryRun {
		return d, 0, nil
	}

	cmd := exec.CommandContext(ctx, d.Command, d.Args...)
	cmd.Dir = d.Cwd
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	ignored := make(chan os.Signal, 1)
	signal.Notify(ignored, syscall.SIGINT)
	defer signal.Stop(ignored)

	if err := cmd.Start(); err != nil {
		return d, -1, fmt.Errorf("spawn assistant for session %s: %w", d.ResumeSessionID, err)
	}

	err := cmd.Wait()
	if err == nil {
		return d, 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return d, exitErr.ExitCode(), nil
	}
	return d, -1, fmt.Errorf("wait for assistant for session %s: %w", d.ResumeSessionID, err)
}
