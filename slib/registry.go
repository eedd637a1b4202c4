package slib

import "sync"

// timeoutEntry tracks one running supervisor. An entry exists only between
// the supervisor's registration and deregistration, is mutated at most once
// by the alarm callback (setting fired), and read at most once more by the
// supervisor polling it. No other party touches entries.
type timeoutEntry struct {
	pid   int
	fired bool
}

// The timeout registry is process-wide state shared by every concurrent
// supervisor: the alarm callback only knows its own supervisor identity and
// uses the registry to find the right tracee to kill. It is kept behind the
// four package functions below; entries are never exposed.
var (
	timeoutMu      sync.Mutex
	timeoutEntries = map[int]*timeoutEntry{}
)

// registerSupervisor adds an entry for the supervisor identified by sid,
// tracking the tracee pid. At most one entry per sid may exist; a supervisor
// that registers twice without deregistering has a bug, and the newer entry
// wins.
func registerSupervisor(sid, pid int) {
	timeoutMu.Lock()
	defer timeoutMu.Unlock()
	timeoutEntries[sid] = &timeoutEntry{pid: pid}
}

// markTimeout flags the supervisor's entry as fired and returns the tracee
// pid to kill. The second return is false when no entry exists for sid,
// meaning the supervisor already deregistered and nothing must be killed.
func markTimeout(sid int) (int, bool) {
	timeoutMu.Lock()
	defer timeoutMu.Unlock()
	e, ok := timeoutEntries[sid]
	if !ok {
		return 0, false
	}
	e.fired = true
	return e.pid, true
}

// timeoutFired reports whether the supervisor's wall-clock alarm has gone
// off. Returns false when no entry exists for sid.
func timeoutFired(sid int) bool {
	timeoutMu.Lock()
	defer timeoutMu.Unlock()
	e, ok := timeoutEntries[sid]
	if !ok {
		return false
	}
	return e.fired
}

// deregisterSupervisor removes the supervisor's entry. No-op when absent.
// Supervisors must reach this on every path out of their loop; a leaked
// entry would permanently shadow that supervisor identity.
func deregisterSupervisor(sid int) {
	timeoutMu.Lock()
	defer timeoutMu.Unlock()
	delete(timeoutEntries, sid)
}

// registeredSupervisorCount reports how many supervisors currently hold an
// entry.
func registeredSupervisorCount() int {
	timeoutMu.Lock()
	defer timeoutMu.Unlock()
	return len(timeoutEntries)
}
