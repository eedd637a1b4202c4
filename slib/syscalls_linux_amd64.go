package slib

import "golang.org/x/sys/unix"

// syscallNumber extracts the syscall number from registers captured at a
// syscall-stop. On x86-64 the number lives in the original rax, preserved
// by the kernel because rax itself is overwritten with the return value.
func syscallNumber(regs *unix.PtraceRegs) uint64 {
	return regs.Orig_rax
}

// syscallTable maps the syscall names commonly seen in grading deny lists
// to their x86-64 numbers. It is intentionally not the full kernel table;
// unlisted syscalls can always be denied by number.
var syscallTable = map[string]uint64{
	"read":      unix.SYS_READ,
	"write":     unix.SYS_WRITE,
	"open":      unix.SYS_OPEN,
	"close":     unix.SYS_CLOSE,
	"mmap":      unix.SYS_MMAP,
	"mprotect":  unix.SYS_MPROTECT,
	"brk":       unix.SYS_BRK,
	"ioctl":     unix.SYS_IOCTL,
	"pipe":      unix.SYS_PIPE,
	"dup2":      unix.SYS_DUP2,
	"socket":    unix.SYS_SOCKET,
	"connect":   unix.SYS_CONNECT,
	"accept":    unix.SYS_ACCEPT,
	"sendto":    unix.SYS_SENDTO,
	"recvfrom":  unix.SYS_RECVFROM,
	"bind":      unix.SYS_BIND,
	"listen":    unix.SYS_LISTEN,
	"fork":      unix.SYS_FORK,
	"vfork":     unix.SYS_VFORK,
	"clone":     unix.SYS_CLONE,
	"execve":    unix.SYS_EXECVE,
	"execveat":  unix.SYS_EXECVEAT,
	"kill":      unix.SYS_KILL,
	"rename":    unix.SYS_RENAME,
	"mkdir":     unix.SYS_MKDIR,
	"rmdir":     unix.SYS_RMDIR,
	"unlink":    unix.SYS_UNLINK,
	"unlinkat":  unix.SYS_UNLINKAT,
	"chmod":     unix.SYS_CHMOD,
	"chown":     unix.SYS_CHOWN,
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
