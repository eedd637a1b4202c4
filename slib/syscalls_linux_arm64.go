package slib

import "golang.org/x/sys/unix"

// syscallNumber extracts the syscall number from registers captured at a
// syscall-stop. On arm64 the number is carried in w8.
func syscallNumber(regs *unix.PtraceRegs) uint64 {
	return regs.Regs[8]
}

// syscallTable maps the syscall names commonly seen in grading deny lists
// to their arm64 numbers. arm64 never had the legacy path syscalls (open,
// unlink, rename, ...); only the *at forms exist. Unlisted syscalls can
// always be denied by number.
var syscallTable = map[string]uint64{
	"read":      unix.SYS_READ,
	"write":     unix.SYS_WRITE,
	"close":     unix.SYS_CLOSE,
	"mmap":      unix.SYS_MMAP,
	"mprotect":  unix.SYS_MPROTECT,
	"brk":       unix.SYS_BRK,
	"ioctl":     unix.SYS_IOCTL,
	"socket":    unix.SYS_SOCKET,
	"connect":   unix.SYS_CONNECT,
	"accept":    unix.SYS_ACCEPT,
	"sendto":    unix.SYS_SENDTO,
	"recvfrom":  unix.SYS_RECVFROM,
	"bind":      unix.SYS_BIND,
	"listen":    unix.SYS_LISTEN,
	"clone":     unix.SYS_CLONE,
	"execve":    unix.SYS_EXECVE,
	"execveat":  unix.SYS_EXECVEAT,
	"kill":      unix.SYS_KILL,
	"unlinkat":  unix.SYS_UNLINKAT,
	"ptrace":    unix.SYS_PTRACE,
	"setuid":    unix.SYS_SETUID,
	"setgid":    unix.SYS_SETGID,
	"mount":     unix.SYS_MOUNT,
	"reboot":    unix.SYS_REBOOT,
	"openat":    unix.SYS_OPENAT,
	"mkdirat":   unix.SYS_MKDIRAT,
	"renameat":  unix.SYS_RENAMEAT,
	"renameat2": unix.SYS_RENAMEAT2,
	"fchmodat":  unix.SYS_FCHMODAT,
	"fchownat":  unix.SYS_FCHOWNAT,
}
