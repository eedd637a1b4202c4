// slib is Arctir's sandbox library. This library is used to run untrusted
// executables, typically grading submissions, under time, memory, and
// system-call policies and report a categorized verdict along with resource
// accounting.
package slib

import (
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

// Code is the verdict category produced by a sandboxed execution. These
// values are stable and visible to collaborators (e.g. graders consuming
// results), so they must not be renumbered.
type Code int

const (
	// OK means the child exited cleanly (with any exit status) under all
	// limits and policies.
	OK Code = iota
	// RE means the child was terminated or stopped by a signal that was not
	// otherwise classified.
	RE
	// TLE means the child exceeded its time limit, either by wall-clock
	// alarm or by the kernel's CPU-time limit (SIGXCPU).
	TLE
	// MLE means the child died with SIGSEGV while its sampled peak resident
	// memory was above the configured byte threshold.
	MLE
	// SE means the child attempted a disallowed system call.
	SE
)

func (c Code) String() string {
	switch c {
	case OK:
		return "OK"
	case RE:
		return "RE"
	case TLE:
		return "TLE"
	case MLE:
		return "MLE"
	case SE:
		return "SE"
	}
	return "UNKNOWN"
}

// ExecConfig describes one sandboxed execution. It is treated as immutable
// for the duration of the run.
type ExecConfig struct {
	// The file the child inherits as its standard input. The caller retains
	// ownership and is responsible for closing it after Execute returns.
	Stdin *os.File
	// The file the child inherits as its standard output. Ownership rules
	// match Stdin.
	Stdout *os.File
	// Time limit in seconds. 0 means no time limit. The value is used both
	// as the RLIMIT_CPU ceiling applied to the child and as the wall-clock
	// alarm armed by the supervisor.
	TimeLimit int
	// Memory limit in bytes. 0 means no memory limit. Applied as
	// RLIMIT_DATA and, doubled, as RLIMIT_AS on the child. Also the
	// threshold above which a SIGSEGV is reclassified as MLE.
	MemoryLimit int
	// Syscall numbers that must terminate the child on entry. Only
	// membership matters; order is irrelevant.
	DisallowedSyscalls []uint64
}

// ExecResult is the outcome of one sandboxed execution.
type ExecResult struct {
	Code Code
	// Seconds of child user-mode CPU time, microsecond precision.
	ExecTime float64
	// Peak resident memory of the child, in bytes.
	ExecMem int
	// The offending syscall number. Only populated when Code is SE.
	Syscall uint64
	// The signal that terminated the child, or the stop signal that was not
	// handled. Only populated when Code is RE.
	Termsig unix.Signal
}

// Executor runs an executable under the sandbox policy described by an
// [ExecConfig] and reports an [ExecResult].
//
// Failures of the execution machinery itself (a child that never starts, a
// trace that cannot be established) surface through ExecResult.Code as RE;
// the error return is reserved for caller misuse. The Linux implementation
// never returns one: nil Stdin or Stdout in the config fall back to the
// process's own streams. Downstream graders expect exactly one of the five
// verdict codes.
type Executor interface {
	Execute(path string, cfg ExecConfig) (*ExecResult, error)
}

// NewExecutor returns an Executor instance based on the host's operating
// system. If the host's operating system is unsupported, an error is
// returned.
func NewExecutor() (Executor, error) {
	switch runtime.GOOS {
	case "linux":
		return &LinuxExecutor{}, nil
	}

	return nil, fmt.Errorf("failed to create executor because operating system %s is unsupported", runtime.GOOS)
}
