package slib

import (
	"os"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Execute launches path as a traced child process and supervises it to
// completion. The child's standard input and output are taken from cfg, its
// argv is the path alone, and it inherits the executor's environment.
//
// The returned error only reflects misuse (currently never); every failure
// of the execution machinery itself collapses into a verdict of RE so that
// callers always receive exactly one of the five codes.
func (l *LinuxExecutor) Execute(path string, cfg ExecConfig) (*ExecResult, error) {
	if cfg.Stdin == nil {
		cfg.Stdin = os.Stdin
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	stderr := l.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	// The supervisor identity is the OS thread id, so the thread must not
	// change for the lifetime of the loop.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	// Trace-me launch: the child stops at its exec boundary and hands
	// control to us as tracer before the first user instruction runs. An
	// exec failure in the child is reported back here, before any
	// supervision starts.
	proc, err := os.StartProcess(path, []string{path}, &os.ProcAttr{
		Files: []*os.File{cfg.Stdin, cfg.Stdout, stderr},
		Sys: &syscall.SysProcAttr{
			Ptrace: true,
		},
	})
	if err != nil {
		return &ExecResult{Code: RE}, nil
	}

	return l.supervise(proc.Pid, cfg), nil
}

// supervise drives the tracee from its initial exec stop to a terminal
// state and produces exactly one ExecResult. The classification precedence
// below (normal exit, our timeout, signalled termination, unexpected stop,
// syscall-stop) is load-bearing; reordering it changes verdicts.
func (l *LinuxExecutor) supervise(pid int, cfg ExecConfig) *ExecResult {
	sid := unix.Gettid()
	res := &ExecResult{}
	var (
		ws      unix.WaitStatus
		ru      unix.Rusage
		regs    unix.PtraceRegs
		memUsed int
	)

	// Block until the tracee's initial stop, the synchronization point the
	// trace-me launch guarantees.
	if _, err := wait4(pid, &ws, unix.WUNTRACED, nil); err != nil || !ws.Stopped() {
		res.Code = RE
		return res
	}

	// The tracee is stopped and has run no user code yet, so limits applied
	// now are indistinguishable from limits applied before exec.
	if err := applyLimits(pid, cfg); err != nil {
		unix.Kill(pid, unix.SIGKILL)
		reap(pid)
		res.Code = RE
		return res
	}

	registerSupervisor(sid, pid)
	defer deregisterSupervisor(sid)

	if cfg.TimeLimit > 0 {
		// The wall-clock alarm. The callback plays the signal handler's
		// role: it knows only the supervisor identity, asks the registry
		// for the pid, marks the entry fired, and kills the tracee. The
		// loop observes the kill as a status change and the fired flag
		// turns it into TLE.
		alarm := time.AfterFunc(time.Duration(cfg.TimeLimit)*time.Second, func() {
			if tracee, ok := markTimeout(sid); ok {
				unix.Kill(tracee, unix.SIGKILL)
			}
		})
		defer alarm.Stop()
	}

	for {
		// Resume until the next syscall boundary, entry or exit.
		unix.PtraceSyscall(pid, 0)
		if _, err := wait4(pid, &ws, unix.WUNTRACED, &ru); err != nil {
			res.Code = RE
			return res
		}
		memUsed = int(ru.Maxrss) * memoryUnitFactor

		switch {
		case ws.Exited():
			res.Code = OK
			res.ExecTime = userSeconds(&ru)
			res.ExecMem = memUsed
			return res

		// Our wall-clock timeout. Checked before signal classification so
		// the SIGKILL we sourced ourselves is not misread as RE. The alarm
		// callback usually already killed the tracee; a second kill is
		// benign.
		case timeoutFired(sid):
			unix.Kill(pid, unix.SIGKILL)
			if ws.Stopped() {
				reap(pid)
			}
			res.Code = TLE
			res.ExecMem = memUsed
			return res

		case ws.Signaled():
			// Already dead and reaped by the wait above; the kill is an
			// acknowledgement and at worst hits a stale pid with ESRCH.
			unix.Kill(pid, unix.SIGKILL)
			res.Code, res.Termsig = classifySignal(ws.Signal(), cfg, memUsed)
			res.ExecMem = memUsed
			return res

		// Stopped by something that is neither the trace trap nor SIGCHLD:
		// the tracee is in a state we will not resume from. SIGTRAP is the
		// ordinary syscall-stop notification and falls through to the
		// register inspection below; SIGCHLD is meaningless to the
		// tracee's own life and is ignored the same way.
		case ws.Stopped() && ws.StopSignal() != unix.SIGTRAP && ws.StopSignal() != unix.SIGCHLD:
			unix.Kill(pid, unix.SIGKILL)
			reap(pid)
			res.Code, res.Termsig = classifySignal(ws.StopSignal(), cfg, memUsed)
			res.ExecMem = memUsed
			return res

		// Syscall-stop. Read the registers and police the entry.
		default:
			if err := unix.PtraceGetRegs(pid, &regs); err != nil {
				unix.Kill(pid, unix.SIGKILL)
				reap(pid)
				res.Code = RE
				return res
			}
			nr := syscallNumber(&regs)
			if syscallDisallowed(nr, cfg.DisallowedSyscalls) {
				unix.Kill(pid, unix.SIGKILL)
				reap(pid)
				res.Code = SE
				res.Syscall = nr
				res.ExecMem = memUsed
				return res
			}
		}
	}
}

// applyLimits installs the kernel resource limits from cfg on the stopped
// tracee. RLIMIT_CPU makes the kernel deliver SIGXCPU on CPU-time overrun,
// a timeout vector independent of the supervisor's wall-clock alarm.
func applyLimits(pid int, cfg ExecConfig) error {
	if cfg.MemoryLimit > 0 {
		dataLimit := unix.Rlimit{
			Cur: uint64(cfg.MemoryLimit),
			Max: uint64(cfg.MemoryLimit),
		}
		if err := unix.Prlimit(pid, unix.RLIMIT_DATA, &dataLimit, nil); err != nil {
			return err
		}
		asLimit := unix.Rlimit{
			Cur: uint64(cfg.MemoryLimit * addressSpaceFactor),
			Max: uint64(cfg.MemoryLimit * addressSpaceFactor),
		}
		if err := unix.Prlimit(pid, unix.RLIMIT_AS, &asLimit, nil); err != nil {
			return err
		}
	}
	if cfg.TimeLimit > 0 {
		cpuLimit := unix.Rlimit{
			Cur: uint64(cfg.TimeLimit),
			Max: uint64(cfg.TimeLimit),
		}
		if err := unix.Prlimit(pid, unix.RLIMIT_CPU, &cpuLimit, nil); err != nil {
			return err
		}
	}
	return nil
}

// classifySignal disambiguates a terminating or unhandled stop signal.
// SIGXCPU is the kernel's CPU-time limit and counts as TLE. SIGSEGV inside
// a tight memory envelope is the submission hitting its limit, not a crash,
// so it counts as MLE when the sampled peak crossed the configured bytes.
// Everything else is a runtime error carrying the signal.
func classifySignal(sig unix.Signal, cfg ExecConfig, memUsed int) (Code, unix.Signal) {
	switch {
	case sig == unix.SIGXCPU:
		return TLE, 0
	case sig == unix.SIGSEGV && cfg.MemoryLimit > 0 && memUsed > cfg.MemoryLimit:
		return MLE, 0
	default:
		return RE, sig
	}
}

// syscallDisallowed reports whether nr appears in the configured deny list.
// Only membership matters; the list is expected to be short, so a scan
// beats building a set per execution.
func syscallDisallowed(nr uint64, disallowed []uint64) bool {
	for _, d := range disallowed {
		if d == nr {
			return true
		}
	}
	return false
}

// userSeconds converts the tracee's user-mode CPU time to seconds with
// microsecond precision. System time is deliberately excluded; verdicts
// depend on it staying out.
func userSeconds(ru *unix.Rusage) float64 {
	return float64(ru.Utime.Sec) + float64(ru.Utime.Usec)/1e6
}

// reap collects the terminal status of a tracee we just killed while it was
// stopped, so a long-running grader never accumulates zombies.
func reap(pid int) {
	var ws unix.WaitStatus
	wait4(pid, &ws, 0, nil)
}

// wait4 retries unix.Wait4 across EINTR. The Go runtime preempts threads
// with a signal, which interrupts a blocking wait and must not be read as
// the tracee failing.
func wait4(pid int, ws *unix.WaitStatus, options int, ru *unix.Rusage) (int, error) {
	for {
		wpid, err := unix.Wait4(pid, ws, options, ru)
		if err != unix.EINTR {
			return wpid, err
		}
	}
}
