package cmd

import (
	"github.com/spf13/cobra"
)

var verdictCmd = &cobra.Command{
	Use:   "verdict",
	Short: "A command-line tool for running untrusted submissions in a sandbox and reporting a verdict.",
	Run:   runVerdict,
}

var runCmd = &cobra.Command{
	Use:   "run [path]",
	Short: "Run an executable under the sandbox and report its verdict.",
	Run:   runRun,
}

var syscallsCmd = &cobra.Command{
	Use:   "syscalls",
	Short: "List the syscall names known to this build and their numbers on this architecture.",
	Run:   runSyscalls,
}

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Show host details and whether this host can trace sandboxed children.",
	Run:   runHost,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a status page showing recent executions, with a form to run new ones.",
	Run:   runServe,
}

var submissionCmd = &cobra.Command{
	Use:     "submission",
	Aliases: []string{"sub"},
	Short:   "Retrieve and inspect submission repositories.",
	Run:     runSubmission,
}

var changesCmd = &cobra.Command{
	Use:     "changes [url]",
	Aliases: []string{"c"},
	Short:   "List all changes that have happened in a submission repository.",
	Run:     runChangesSubmission,
}

var artifactsCmd = &cobra.Command{
	Use:   "artifacts",
	Short: "Work with release artifacts of a submission repository.",
	Run:   runArtifacts,
}

var artifactsListCmd = &cobra.Command{
	Use:     "list [org/repo]",
	Aliases: []string{"ls"},
	Short:   "List release artifacts of a submission repository.",
	Run:     runListArtifacts,
}

var artifactsGetCmd = &cobra.Command{
	Use:   "get [org/repo]",
	Short: "Download a release artifact into the local cache and print its path.",
	Run:   runGetArtifacts,
}
