package isolation

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

const (
	// EnvSuite carries the path of the suite an isolated child must run.
	EnvSuite = "FTSPEC_ISOLATED_SUITE"
	// EnvFD carries the descriptor number of the child's channel endpoint.
	EnvFD = "FTSPEC_ISOLATED_FD"

	// childFD is the first descriptor after stdin, stdout and stderr, which is
	// where exec.Cmd places ExtraFiles[0].
	childFD = 3
)

// Process is a running isolated child.
type Process interface {
	Wait() error
}

// Spawner starts an isolated child for the suite at target, handing it endpoint
// as its channel.
type Spawner interface {
	Spawn(target string, endpoint *os.File) (Process, error)
}

// ExecSpawner re-executes a binary, by default the current one, with the
// isolation variables set. The child must build the same suite tree as the
// parent so target resolves to the same suite.
type ExecSpawner struct {
	Path string
	Args []string
	// Env is appended to the current environment.
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

func (s ExecSpawner) Spawn(target string, endpoint *os.File) (Process, error) {
	path := s.Path
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locating executable: %w", err)
		}
		path = exe
	}

	cmd := exec.Command(path, s.Args...)
	cmd.Env = append(childEnv(os.Environ()), s.Env...)
	cmd.Env = append(cmd.Env, EnvSuite+"="+target, EnvFD+"="+strconv.Itoa(childFD))
	cmd.ExtraFiles = []*os.File{endpoint}
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", path, err)
	}
	return cmd, nil
}

// childEnv drops isolation variables inherited from an enclosing isolated run.
func childEnv(env []string) []string {
	out := make([]string, 0, len(env))
	for _, kv := range env {
		if strings.HasPrefix(kv, EnvSuite+"=") || strings.HasPrefix(kv, EnvFD+"=") {
			continue
		}
		out = append(out, kv)
	}
	return out
}

// Child is the isolated side of a cycle: the suite to run and the channel to
// report on.
type Child struct {
	Target   string
	Endpoint *os.File
}

// ChildFromEnv returns the isolation request this process was started with, or
// nil when it is not an isolated child.
func ChildFromEnv() (*Child, error) {
	target, ok := os.LookupEnv(EnvSuite)
	if !ok {
		return nil, nil
	}
	raw := os.Getenv(EnvFD)
	fd, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", EnvFD, raw, err)
	}
	f := os.NewFile(uintptr(fd), "ftspec-isolation")
	if f == nil {
		return nil, fmt.Errorf("invalid %s %q", EnvFD, raw)
	}
	return &Child{Target: target, Endpoint: f}, nil
}
