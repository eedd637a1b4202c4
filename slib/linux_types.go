package slib

import "os"

// LinuxExecutor is the Linux implementation of [Executor]. It launches the
// target as a traced child, confines it with kernel resource limits, and
// drives it syscall-stop by syscall-stop until it can classify the outcome.
//
// It is not recommended you construct a LinuxExecutor directly, instead use
// the [NewExecutor] constructor which will ensure configuration and defaults
// are respected.
//
// A LinuxExecutor is safe for concurrent use: each Execute call runs its own
// supervisor on its own OS thread, and supervisors share nothing but the
// process-wide timeout registry.
type LinuxExecutor struct {
	LinuxExecutorConfig
}

// LinuxExecutorConfig can be used to set Linux-specific settings when
// creating an executor.
type LinuxExecutorConfig struct {
	// The file the child inherits as its standard error. When nil, the
	// executor's own standard error is used. Submissions are graded on
	// standard output only, so stderr stays with the operator by default.
	Stderr *os.File
}

// NewLinuxExecutor takes an optional [LinuxExecutorConfig] and returns a
// configured LinuxExecutor.
//
// The variadic nature of opts is only present to make this argument
// optional. Do not pass multiple opts arguments to this function. If you do,
// the last opt argument passed will be used.
func NewLinuxExecutor(opts ...LinuxExecutorConfig) *LinuxExecutor {
	var config LinuxExecutorConfig
	if len(opts) > 0 {
		config = opts[len(opts)-1]
	}

	return &LinuxExecutor{
		LinuxExecutorConfig: config,
	}
}
