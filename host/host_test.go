package host

import (
	"os"
	"path/filepath"
	"testing"
)

const (
	testRunDir    = "hack/test/run"
	cpuInfoData   = "processor\t: 0\nmodel name\t: mock cpu\n\nprocessor\t: 1\nmodel name\t: mock cpu\n\nprocessor\t: 2\n\nprocessor\t: 3\n"
	kernelData    = "6.1.0-mock\n"
	osReleaseData = "ID=mockos\nVERSION=\"1.2\"\n"
)

func TestGetHardware(t *testing.T) {
	procFp, err := newMockProc(t)
	if err != nil {
		t.Fatalf("failed to prepare mock proc dir. Error was: %s", err)
	}
	defer cleanTestRun()

	lr := NewLinuxReader(LinuxReaderConfig{
		ProcDirPath: procFp,
	})
	hw, err := lr.GetHardware()
	if err != nil {
		t.Logf("failed to make GetHardware call. Error was: %s", err)
		t.Fail()
	}
	if hw.CPU.CPUCount != 4 {
		t.Logf("failed valid CPU count check. expected: %d, actual: %d.", 4, hw.CPU.CPUCount)
		t.Fail()
	}
}

func TestGetKernel(t *testing.T) {
	procFp, err := newMockProc(t)
	if err != nil {
		t.Fatalf("failed to prepare mock proc dir. Error was: %s", err)
	}
	defer cleanTestRun()

	lr := NewLinuxReader(LinuxReaderConfig{
		ProcDirPath: procFp,
	})
	k, err := lr.GetKernel()
	if err != nil {
		t.Fatalf("failed to make GetKernel call. Error was: %s", err)
	}
	if k.Version != "6.1.0-mock" {
		t.Logf("kernel version was %q, expected %q", k.Version, "6.1.0-mock")
		t.Fail()
	}
}

func TestGetPtraceScope(t *testing.T) {
	procFp, err := newMockProc(t)
	if err != nil {
		t.Fatalf("failed to prepare mock proc dir. Error was: %s", err)
	}
	defer cleanTestRun()

	lr := NewLinuxReader(LinuxReaderConfig{
		ProcDirPath: procFp,
	})

	// no yama file present reads as unrestricted
	scope, err := lr.GetPtraceScope()
	if err != nil {
		t.Fatalf("failed reading ptrace scope with no yama file: %s", err)
	}
	if scope != 0 {
		t.Logf("scope without a yama file was %d, expected 0", scope)
		t.Fail()
	}
	if !lr.CanTraceChildren() {
		t.Log("tracing reported unavailable with no yama restriction present")
		t.Fail()
	}

	// a restricted-but-child-tracing-allowed level
	if err := writePtraceScope(procFp, "1\n"); err != nil {
		t.Fatalf("failed writing mock ptrace_scope: %s", err)
	}
	scope, err = lr.GetPtraceScope()
	if err != nil {
		t.Fatalf("failed reading ptrace scope: %s", err)
	}
	if scope != 1 {
		t.Logf("scope was %d, expected 1", scope)
		t.Fail()
	}
	if !lr.CanTraceChildren() {
		t.Log("tracing reported unavailable at yama level 1, which still permits child tracing")
		t.Fail()
	}

	// an outright ban
	if err := writePtraceScope(procFp, "3\n"); err != nil {
		t.Fatalf("failed writing mock ptrace_scope: %s", err)
	}
	if lr.CanTraceChildren() {
		t.Log("tracing reported available at yama level 3")
		t.Fail()
	}
}

func TestParseOSRelease(t *testing.T) {
	parsed := parseOSRelease([]byte(osReleaseData))
	if parsed["ID"] != "mockos" {
		t.Logf("parsed ID was %q, expected mockos", parsed["ID"])
		t.Fail()
	}
	if sanitizeOSVersion(parsed["VERSION"]) != "1.2" {
		t.Logf("parsed version was %q, expected 1.2", parsed["VERSION"])
		t.Fail()
	}
}

// newMockProc creates a mock proc directory containing a cpuinfo file and a
// sys/kernel/osrelease file, returning its location.
func newMockProc(t *testing.T) (string, error) {
	cleanTestRun()
	procFp := filepath.Join(testRunDir, "proc")
	if err := os.MkdirAll(filepath.Join(procFp, "sys", "kernel"), 0777); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(procFp, CPUInfoFilePath), []byte(cpuInfoData), 0666); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(procFp, OSKernelFilePath), []byte(kernelData), 0666); err != nil {
		return "", err
	}
	return procFp, nil
}

func writePtraceScope(procFp, value string) error {
	scopeFp := filepath.Join(procFp, PtraceScopeFile)
	if err := os.MkdirAll(filepath.Dir(scopeFp), 0777); err != nil {
		return err
	}
	return os.WriteFile(scopeFp, []byte(value), 0666)
}

// cleanTestRun removes any contents inside of hack/test/run.
func cleanTestRun() {
	os.RemoveAll("hack")
}
