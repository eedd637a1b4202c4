package slib

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"golang.org/x/sys/unix"
)

const (
	DefaultFilePerms = 0777
	ExecFilePerms    = 0755
	HackDir          = "hack"
	TestingDir       = "test"
	TestRunDir       = "run"
	// busy-loops in user mode until killed
	SpinScript = "#!/bin/sh\nwhile :; do :; done\n"
	// raises SIGSEGV against itself; no real memory pressure involved
	SegvScript = "#!/bin/sh\nkill -SEGV $$\n"
	// any script exercises openat when the interpreter re-opens it
	EchoScript = "#!/bin/sh\necho done\n"
)

func TestClassifySignal(t *testing.T) {
	limited := ExecConfig{MemoryLimit: 64 * 1024 * 1024}
	unlimited := ExecConfig{}

	// the kernel's CPU limit is a timeout, not a crash
	code, sig := classifySignal(unix.SIGXCPU, unlimited, 0)
	if code != TLE {
		t.Logf("SIGXCPU classified as %s, expected TLE", code)
		t.Fail()
	}
	if sig != 0 {
		t.Logf("TLE carried termsig %d, expected none", sig)
		t.Fail()
	}

	// SIGSEGV above the memory threshold is the limit biting
	code, _ = classifySignal(unix.SIGSEGV, limited, limited.MemoryLimit+1)
	if code != MLE {
		t.Logf("over-limit SIGSEGV classified as %s, expected MLE", code)
		t.Fail()
	}

	// SIGSEGV well under the limit is a genuine crash
	code, sig = classifySignal(unix.SIGSEGV, limited, 1024)
	if code != RE {
		t.Logf("under-limit SIGSEGV classified as %s, expected RE", code)
		t.Fail()
	}
	if sig != unix.SIGSEGV {
		t.Logf("RE carried termsig %d, expected SIGSEGV", sig)
		t.Fail()
	}

	// with no memory limit configured, SIGSEGV can never be MLE
	code, _ = classifySignal(unix.SIGSEGV, unlimited, 1<<40)
	if code != RE {
		t.Logf("SIGSEGV without a memory limit classified as %s, expected RE", code)
		t.Fail()
	}

	code, sig = classifySignal(unix.SIGABRT, limited, 0)
	if code != RE || sig != unix.SIGABRT {
		t.Logf("SIGABRT classified as %s termsig %d, expected RE/SIGABRT", code, sig)
		t.Fail()
	}
}

func TestSyscallDisallowed(t *testing.T) {
	deny := []uint64{uint64(unix.SYS_OPENAT), uint64(unix.SYS_EXECVE)}
	if !syscallDisallowed(uint64(unix.SYS_OPENAT), deny) {
		t.Log("openat not matched by a deny list containing it")
		t.Fail()
	}
	if syscallDisallowed(uint64(unix.SYS_READ), deny) {
		t.Log("read matched a deny list that does not contain it")
		t.Fail()
	}
	if syscallDisallowed(uint64(unix.SYS_READ), nil) {
		t.Log("empty deny list matched a syscall")
		t.Fail()
	}
}

func TestUserSeconds(t *testing.T) {
	ru := unix.Rusage{}
	ru.Utime.Sec = 2
	ru.Utime.Usec = 250000
	secs := userSeconds(&ru)
	if secs < 2.249999 || secs > 2.250001 {
		t.Logf("user time conversion was %f, expected 2.25", secs)
		t.Fail()
	}
}

func TestExecuteCleanExit(t *testing.T) {
	ex := NewLinuxExecutor()
	res, err := ex.Execute("/bin/true", ExecConfig{TimeLimit: 5})
	if err != nil {
		t.Fatalf("unexpected error from Execute: %s", err)
	}
	if res.Code != OK {
		t.Logf("verdict for /bin/true was %s, expected OK", res.Code)
		t.Fail()
	}
	if res.ExecTime >= 5.0 {
		t.Logf("reported exec time %f is implausible for /bin/true", res.ExecTime)
		t.Fail()
	}
	if res.ExecMem < 0 {
		t.Logf("reported exec mem %d is negative", res.ExecMem)
		t.Fail()
	}
}

func TestExecuteMissingBinary(t *testing.T) {
	ex := NewLinuxExecutor()
	res, err := ex.Execute("/this/path/does/not/exist", ExecConfig{})
	if err != nil {
		t.Fatalf("launch failures must surface as a verdict, not an error: %s", err)
	}
	if res.Code != RE {
		t.Logf("verdict for an unlaunchable path was %s, expected RE", res.Code)
		t.Fail()
	}
}

func TestExecuteWallClockTimeout(t *testing.T) {
	fp, err := createTestScript("spin.sh", SpinScript)
	if err != nil {
		t.Fatalf("failed setting up fixture script: %s", err)
	}
	defer cleanTestRun()

	ex := NewLinuxExecutor()
	res, err := ex.Execute(fp, ExecConfig{TimeLimit: 1})
	if err != nil {
		t.Fatalf("unexpected error from Execute: %s", err)
	}
	if res.Code != TLE {
		t.Logf("verdict for a busy loop with a 1s limit was %s, expected TLE", res.Code)
		t.Fail()
	}
}

func TestExecuteRuntimeError(t *testing.T) {
	fp, err := createTestScript("segv.sh", SegvScript)
	if err != nil {
		t.Fatalf("failed setting up fixture script: %s", err)
	}
	defer cleanTestRun()

	ex := NewLinuxExecutor()
	res, err := ex.Execute(fp, ExecConfig{TimeLimit: 5})
	if err != nil {
		t.Fatalf("unexpected error from Execute: %s", err)
	}
	if res.Code != RE {
		t.Logf("verdict for a self-inflicted SIGSEGV without a memory limit was %s, expected RE", res.Code)
		t.Fail()
	}
	if res.Termsig != unix.SIGSEGV {
		t.Logf("termsig was %d, expected SIGSEGV", res.Termsig)
		t.Fail()
	}
}

func TestExecuteDisallowedSyscall(t *testing.T) {
	fp, err := createTestScript("echo.sh", EchoScript)
	if err != nil {
		t.Fatalf("failed setting up fixture script: %s", err)
	}
	defer cleanTestRun()

	// every dynamically-launched program touches openat almost immediately,
	// which makes it a reliable trip wire
	ex := NewLinuxExecutor()
	res, err := ex.Execute(fp, ExecConfig{
		TimeLimit:          5,
		DisallowedSyscalls: []uint64{uint64(unix.SYS_OPENAT)},
	})
	if err != nil {
		t.Fatalf("unexpected error from Execute: %s", err)
	}
	if res.Code != SE {
		t.Logf("verdict with openat denied was %s, expected SE", res.Code)
		t.Fail()
	}
	if res.Syscall != uint64(unix.SYS_OPENAT) {
		t.Logf("offending syscall was %d, expected openat (%d)", res.Syscall, unix.SYS_OPENAT)
		t.Fail()
	}
}

func TestExecuteStdoutRedirect(t *testing.T) {
	fp, err := createTestScript("echo-out.sh", EchoScript)
	if err != nil {
		t.Fatalf("failed setting up fixture script: %s", err)
	}
	defer cleanTestRun()

	outPath := filepath.Join(getTestRunDir(), "stdout.txt")
	outFile, err := os.Create(outPath)
	if err != nil {
		t.Fatalf("failed creating stdout capture file: %s", err)
	}
	defer outFile.Close()

	ex := NewLinuxExecutor()
	res, err := ex.Execute(fp, ExecConfig{TimeLimit: 5, Stdout: outFile})
	if err != nil {
		t.Fatalf("unexpected error from Execute: %s", err)
	}
	if res.Code != OK {
		t.Logf("verdict was %s, expected OK", res.Code)
		t.Fail()
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed reading captured stdout: %s", err)
	}
	if string(data) != "done\n" {
		t.Logf("captured stdout was %q, expected %q", string(data), "done\n")
		t.Fail()
	}
}

// TestExecuteConcurrentVerdicts runs supervisors with different outcomes in
// parallel and verifies each gets its own verdict with no cross-talk and
// the registry drains to empty.
func TestExecuteConcurrentVerdicts(t *testing.T) {
	spin, err := createTestScript("spin-many.sh", SpinScript)
	if err != nil {
		t.Fatalf("failed setting up fixture script: %s", err)
	}
	defer cleanTestRun()

	cases := []struct {
		path     string
		cfg      ExecConfig
		expected Code
	}{
		{"/bin/true", ExecConfig{TimeLimit: 10}, OK},
		{spin, ExecConfig{TimeLimit: 1}, TLE},
		{"/bin/true", ExecConfig{TimeLimit: 10}, OK},
		{spin, ExecConfig{TimeLimit: 1}, TLE},
		{"/bin/true", ExecConfig{}, OK},
	}

	var wg sync.WaitGroup
	for i := range cases {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ex := NewLinuxExecutor()
			res, err := ex.Execute(cases[i].path, cases[i].cfg)
			if err != nil {
				t.Errorf("case %d returned an error: %s", i, err)
				return
			}
			if res.Code != cases[i].expected {
				t.Errorf("case %d verdict was %s, expected %s", i, res.Code, cases[i].expected)
			}
		}(i)
	}
	wg.Wait()

	if n := registeredSupervisorCount(); n != 0 {
		t.Logf("registry held %d entries after all supervisors finished, expected 0", n)
		t.Fail()
	}
}

func createTestScript(name, content string) (string, error) {
	fp := getTestRunDir()
	err := os.MkdirAll(fp, DefaultFilePerms)
	if err != nil {
		return "", err
	}
	scriptFp := filepath.Join(fp, name)
	err = os.WriteFile(scriptFp, []byte(content), ExecFilePerms)
	if err != nil {
		return "", err
	}
	return scriptFp, nil
}

func getTestRunDir() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return filepath.Join(cwd, HackDir, TestingDir, TestRunDir)
}

func cleanTestRun() {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}
	os.RemoveAll(filepath.Join(cwd, HackDir, TestingDir))
}
