// The host package is responsible for gathering details about the machine a
// sandbox node runs on, and for checking that the host can actually trace
// children before any grading is attempted.
package host

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

const (
	DefaultProcRoot    = "/proc"
	OSReleaseFilePath  = "/etc/os-release"
	OSKernelFilePath   = "sys/kernel/osrelease"
	PtraceScopeFile    = "sys/kernel/yama/ptrace_scope"
	CPUInfoFilePath    = "cpuinfo"
	UnknownKey         = "UNKNOWN"
	// yama values below this are treated as allowing the sandbox to trace
	// its direct children; 3 forbids ptrace outright.
	PtraceScopeNoAttach = 3
)

// OS represents details about the operating system.
type OS struct {
	Name    string
	Version string
}

// Kernel represents the operating-system's kernel's details.
type Kernel struct {
	Type    string
	Version string
}

// Hardware represents the hardware on the machine.
type Hardware struct {
	CPU          CPUInfo
	Architecture string
}

// CPUInfo represents details about the central processing unit.
type CPUInfo struct {
	CPUCount int
}

// HostReader defines the actions available for retrieving information about
// a host and judging its fitness for running the sandbox.
type HostReader interface {
	// GetOS retrieves operating-system details.
	GetOS() (*OS, error)
	// GetKernel retrieves kernel details.
	GetKernel() (*Kernel, error)
	// GetHardware retrieves hardware-level details. Or, in the case of a
	// virtual machine, what is exposed to the guest.
	GetHardware() (*Hardware, error)
	// GetPtraceScope retrieves the yama ptrace restriction level.
	GetPtraceScope() (int, error)
	// CanTraceChildren reports whether the sandbox can trace the children
	// it launches.
	CanTraceChildren() bool
}

// LinuxReader is the Linux-specific implementation of [HostReader].
type LinuxReader struct {
	procDir string
}

type LinuxReaderConfig struct {
	ProcDirPath string
}

func NewLinuxReader(conf LinuxReaderConfig) LinuxReader {
	if conf.ProcDirPath == "" {
		conf.ProcDirPath = DefaultProcRoot
	}
	return LinuxReader{
		procDir: conf.ProcDirPath,
	}
}

// GetOS looks up details about the operating system within /etc/os-release.
// We rely on details found inside os-release that comply with metadata
// found in the [freedesktop specification].
//
// [freedesktop specification]: https://www.freedesktop.org/software/systemd/man/os-release.html
func (h *LinuxReader) GetOS() (*OS, error) {
	releaseFileData, err := os.ReadFile(OSReleaseFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed locating OS details at %s. Error was: %s",
			OSReleaseFilePath, err)
	}

	OSReleaseData := parseOSRelease(releaseFileData)
	return &OS{
		Name:    OSReleaseData["ID"],
		Version: sanitizeOSVersion(OSReleaseData["VERSION"]),
	}, nil
}

// GetKernel retrieves details about the kernel of the operating system.
func (h *LinuxReader) GetKernel() (*Kernel, error) {
	kernelFilePath := filepath.Join(h.procDir, OSKernelFilePath)
	kernelFileData, err := os.ReadFile(kernelFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed getting kernel version from %s. Error was: %s", kernelFilePath, err)
	}
	return &Kernel{
		Type:    "Linux",
		Version: strings.TrimSpace(string(kernelFileData)),
	}, nil
}

func (h *LinuxReader) GetHardware() (*Hardware, error) {
	arch := getArch()
	CPUInfo := h.getCPUInfo()

	return &Hardware{
		CPU:          CPUInfo,
		Architecture: arch,
	}, nil
}

// GetPtraceScope reads the yama ptrace restriction level. 0 permits any
// tracing, 1 restricts tracing to descendants, 2 requires CAP_SYS_PTRACE,
// and 3 disables tracing entirely. Kernels without yama have no such file;
// that is reported as level 0, since nothing restricts tracing there.
func (h *LinuxReader) GetPtraceScope() (int, error) {
	scopeFp := filepath.Join(h.procDir, PtraceScopeFile)
	data, err := os.ReadFile(scopeFp)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed reading ptrace scope from %s. Error was: %s", scopeFp, err)
	}
	scope, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("failed parsing ptrace scope value %q: %s", strings.TrimSpace(string(data)), err)
	}
	return scope, nil
}

// CanTraceChildren reports whether the sandbox's supervisor can trace the
// children it launches. The sandbox only ever traces direct children, so
// every yama level short of an outright ban is acceptable.
func (h *LinuxReader) CanTraceChildren() bool {
	scope, err := h.GetPtraceScope()
	if err != nil {
		// unreadable restriction data is not proof tracing will fail
		return true
	}
	return scope < PtraceScopeNoAttach
}

// getCPUInfo retrieves details about the system's CPU based on
// /proc/cpuinfo. If there's an error reading necessary files, an empty CPU
// Info is returned.
func (h *LinuxReader) getCPUInfo() CPUInfo {
	processorCount := 0
	cpuInfoPath := filepath.Join(h.procDir, CPUInfoFilePath)
	f, err := os.Open(cpuInfoPath)
	if err != nil {
		return CPUInfo{}
	}
	defer f.Close()
	scanner := bufio.NewScanner(bufio.NewReader(f))
	for scanner.Scan() {
		line := scanner.Text()
		kv := strings.SplitN(line, ":", 2)
		if len(kv) != 2 {
			continue
		}
		if strings.TrimSpace(kv[0]) == "processor" {
			processorCount++
		}
	}
	return CPUInfo{
		CPUCount: processorCount,
	}
}

// getArch call the equivalent of uname -m to get the architecture (e.g.
// x86_64 or aarch64).
func getArch() string {
	var utsname unix.Utsname
	err := unix.Uname(&utsname)
	if err != nil {
		return UnknownKey
	}
	return strings.TrimRight(string(utsname.Machine[:]), "\x00")
}

// sanitizeOSVersion removes a double quote character from the beginning and
// end of a string if present.
func sanitizeOSVersion(version string) string {
	return strings.Trim(version, "\"")
}

// parseOSRelease takes the contents of an /etc/os-release file and returns
// a map containing each key/value pair. The key/value pair is determined by
// parsing the syntax of $KEY=$VALUE within the file.
func parseOSRelease(releaseFileContents []byte) map[string]string {
	scanner := bufio.NewScanner(bytes.NewReader(releaseFileContents))
	osReleaseMap := map[string]string{}
	for scanner.Scan() {
		line := scanner.Text()
		kv := strings.SplitN(line, "=", 2)
		if len(kv) == 2 {
			osReleaseMap[kv[0]] = kv[1]
		}
	}
	return osReleaseMap
}
