package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/arctir/verdict/host"
	"github.com/arctir/verdict/platforms/github"
	"github.com/arctir/verdict/slib"
	"github.com/arctir/verdict/submission"
	"github.com/arctir/verdict/ui"
	"github.com/davecgh/go-spew/spew"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// SetupCLI constructs the cobra hierachry to create the verdict CLI.
//
// Do not use this function in other Go pacakges. Instead, you should look to
// import the libraries used in the cmd packge directly. For example, [slib].
//
// [slib]: https://github.com/arctir/verdict/tree/main/slib
func SetupCLI() *cobra.Command {
	verdictCmd.AddCommand(runCmd)
	verdictCmd.AddCommand(syscallsCmd)
	verdictCmd.AddCommand(hostCmd)
	verdictCmd.AddCommand(serveCmd)
	verdictCmd.AddCommand(submissionCmd)
	submissionCmd.AddCommand(changesCmd)
	submissionCmd.AddCommand(artifactsCmd)
	artifactsCmd.AddCommand(artifactsListCmd)
	artifactsCmd.AddCommand(artifactsGetCmd)

	return verdictCmd
}

// runVerdict defines what should occur when `verdict ...` is run.
func runVerdict(cmd *cobra.Command, args []string) {
	// if verdict is run without a command (argument), print help.
	if len(args) == 0 {
		cmd.Help()
		os.Exit(0)
	}
}

// runSubmission defines what should occur when `verdict submission ...` is
// run.
func runSubmission(cmd *cobra.Command, args []string) {
	if len(args) == 0 {
		cmd.Help()
		os.Exit(0)
	}
}

// runArtifacts defines what should occur when `verdict submission
// artifacts ...` is run.
func runArtifacts(cmd *cobra.Command, args []string) {
	if len(args) == 0 {
		cmd.Help()
		os.Exit(0)
	}
}

// runRun defines the behavior of running:
// `verdict run ...`
func runRun(cmd *cobra.Command, args []string) {
	if len(args) < 1 {
		outputErrorAndFail("please provide the path of an executable to run")
	}
	path := args[0]
	opts := newOptions(cmd.Flags())

	cfg := slib.ExecConfig{
		TimeLimit:   opts.timeLimit,
		MemoryLimit: opts.memoryLimit,
	}

	if opts.stdinPath != "" {
		f, err := os.Open(opts.stdinPath)
		if err != nil {
			outputErrorAndFail(fmt.Sprintf("failed opening stdin file: %s", err))
		}
		defer f.Close()
		cfg.Stdin = f
	}
	if opts.stdoutPath != "" {
		f, err := os.Create(opts.stdoutPath)
		if err != nil {
			outputErrorAndFail(fmt.Sprintf("failed creating stdout file: %s", err))
		}
		defer f.Close()
		cfg.Stdout = f
	}

	deny, err := parseDenyList(opts.deny)
	if err != nil {
		outputErrorAndFail(fmt.Sprintf("failed parsing deny list: %s", err))
	}
	cfg.DisallowedSyscalls = deny

	executor, err := slib.NewExecutor()
	if err != nil {
		outputErrorAndFail(fmt.Sprintf("failed setting up sandbox executor: %s", err))
	}

	warnIfTracingRestricted()

	res, err := executor.Execute(path, cfg)
	if err != nil {
		outputErrorAndFail(fmt.Sprintf("execution failed: %s", err))
	}

	if opts.debug {
		spew.Dump(res)
	}

	out, err := createResultOutput(res, opts)
	if err != nil {
		outputErrorAndFail(fmt.Sprintf("failed creating output for result: %s", err))
	}
	output(out)
}

// runSyscalls defines the behavior of running:
// `verdict syscalls ...`
func runSyscalls(cmd *cobra.Command, args []string) {
	opts := newOptions(cmd.Flags())
	entries := slib.SyscallNames()

	var out []byte
	switch opts.outType {
	case jsonOut:
		out, _ = json.Marshal(entries)
	default:
		listOfEntries := [][]string{}
		for _, e := range entries {
			listOfEntries = append(listOfEntries, []string{
				e.Name,
				strconv.FormatUint(e.Number, 10),
			})
		}
		var buf bytes.Buffer
		table := tablewriter.NewWriter(&buf)
		table.SetHeader([]string{"name", "number"})
		table.AppendBulk(listOfEntries)
		table.Render()
		out = buf.Bytes()
	}
	output(out)
}

// runHost defines the behavior of running:
// `verdict host ...`
func runHost(cmd *cobra.Command, args []string) {
	opts := newOptions(cmd.Flags())
	lr := host.NewLinuxReader(host.LinuxReaderConfig{})

	details := [][]string{}
	if os, err := lr.GetOS(); err == nil {
		details = append(details, []string{"os", fmt.Sprintf("%s %s", os.Name, os.Version)})
	}
	if k, err := lr.GetKernel(); err == nil {
		details = append(details, []string{"kernel", fmt.Sprintf("%s %s", k.Type, k.Version)})
	}
	if hw, err := lr.GetHardware(); err == nil {
		details = append(details, []string{"arch", hw.Architecture})
		details = append(details, []string{"cpus", strconv.Itoa(hw.CPU.CPUCount)})
	}
	scope, err := lr.GetPtraceScope()
	if err == nil {
		details = append(details, []string{"ptrace-scope", strconv.Itoa(scope)})
	}
	details = append(details, []string{"can-trace-children", strconv.FormatBool(lr.CanTraceChildren())})

	var out []byte
	switch opts.outType {
	case jsonOut:
		kv := map[string]string{}
		for _, d := range details {
			kv[d[0]] = d[1]
		}
		out, _ = json.Marshal(kv)
	default:
		var buf bytes.Buffer
		table := tablewriter.NewWriter(&buf)
		table.SetHeader([]string{"detail", "value"})
		table.AppendBulk(details)
		table.Render()
		out = buf.Bytes()
	}
	output(out)
}

// runServe defines the behavior of running:
// `verdict serve ...`
func runServe(cmd *cobra.Command, args []string) {
	opts := newOptions(cmd.Flags())

	executor, err := slib.NewExecutor()
	if err != nil {
		outputErrorAndFail(fmt.Sprintf("failed setting up sandbox executor: %s", err))
	}
	warnIfTracingRestricted()

	statusUI := ui.New(executor, slib.NewHistory(slib.DefaultHistorySize), opts.addr)
	if err := statusUI.RunUI(); err != nil {
		outputErrorAndFail(fmt.Sprintf("status page failed: %s", err))
	}
}

// runChangesSubmission defines the behavior of running:
// `verdict submission changes ...`
func runChangesSubmission(cmd *cobra.Command, args []string) {
	if len(args) == 0 {
		cmd.Help()
		os.Exit(0)
	}
	opts := newOptions(cmd.Flags())

	repo, err := submission.Resolve(args[0], submission.ResolveOpts{InMemory: !opts.cached})
	if err != nil {
		outputErrorAndFail(fmt.Sprintf("failed resolving submission repository, underlying error: %s", err))
	}
	commits, err := repo.Commits()
	if err != nil {
		outputErrorAndFail(fmt.Sprintf("failed resolving commits, underlying error: %s", err))
	}

	out := newCommitTableOutput(commits, 50)
	output(out)
}

// runListArtifacts defines what should occur when `verdict submission
// artifacts list ...` is run.
func runListArtifacts(cmd *cobra.Command, args []string) {
	if len(args) == 0 {
		cmd.Help()
		os.Exit(0)
	}
	gh := github.NewGHManager(github.GHManagerConfig{GHToken: os.Getenv(githubTokenEnv)})
	releases, err := gh.GetArtifacts(args[0])
	if err != nil {
		outputErrorAndFail(fmt.Sprintf("failed retrieving artifacts: %s", err))
	}
	out := newArtifactListTableOutput(releases)
	output(out)
}

// runGetArtifacts defines what should occur when `verdict submission
// artifacts get ...` is run.
func runGetArtifacts(cmd *cobra.Command, args []string) {
	if len(args) == 0 {
		cmd.Help()
		os.Exit(0)
	}
	opts := newOptions(cmd.Flags())
	if opts.singleTag == "" {
		outputErrorAndFail("please specify --tag when downloading an artifact")
	}
	if opts.assetName == "" {
		outputErrorAndFail("please specify --name when downloading an artifact")
	}

	gh := github.NewGHManager(github.GHManagerConfig{GHToken: os.Getenv(githubTokenEnv)})
	fp, err := gh.DownloadArtifact(args[0], opts.singleTag, opts.assetName)
	if err != nil {
		outputErrorAndFail(fmt.Sprintf("failed downloading artifact: %s", err))
	}
	fmt.Println(fp)
}

// parseDenyList resolves the --deny flag values, names or numbers, into
// syscall numbers for the sandbox config.
func parseDenyList(deny []string) ([]uint64, error) {
	nrs := []uint64{}
	for _, d := range deny {
		nr, err := slib.SyscallNumber(strings.TrimSpace(d))
		if err != nil {
			return nil, err
		}
		nrs = append(nrs, nr)
	}
	return nrs, nil
}

// warnIfTracingRestricted surfaces a yama ban up front; without it, every
// run would come back RE with no hint why.
func warnIfTracingRestricted() {
	lr := host.NewLinuxReader(host.LinuxReaderConfig{})
	if !lr.CanTraceChildren() {
		fmt.Fprintln(os.Stderr, "warning: this host's yama ptrace_scope forbids tracing; runs will fail as RE")
	}
}

func output(out []byte) {
	fmt.Printf("%s", out)
}

func outputErrorAndFail(msg string) {
	fmt.Println(msg)
	// exit(1) is the catchall for general errors.
	os.Exit(1)
}

func createResultOutput(res *slib.ExecResult, opts verdictOpts) ([]byte, error) {
	var out []byte
	switch opts.outType {
	case jsonOut:
		out, _ = json.Marshal(res)
	default:
		out = createResultTableOutput(res)
	}

	return out, nil
}

func createResultTableOutput(res *slib.ExecResult) []byte {
	detail := ""
	switch res.Code {
	case slib.SE:
		detail = fmt.Sprintf("syscall %s", slib.SyscallName(res.Syscall))
	case slib.RE:
		if res.Termsig != 0 {
			detail = fmt.Sprintf("signal %d", res.Termsig)
		}
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"verdict", "time (s)", "memory (bytes)", "detail"})
	table.Append([]string{
		res.Code.String(),
		fmt.Sprintf("%.6f", res.ExecTime),
		strconv.Itoa(res.ExecMem),
		detail,
	})
	table.Render()
	return buf.Bytes()
}

func newCommitTableOutput(commits []submission.Commit, msgLimit int) []byte {
	listOfCommits := [][]string{}
	for _, c := range commits {
		msg := string(c.Message)
		if len(msg) > msgLimit {
			msg = msg[:msgLimit]
		}
		msg = strings.ReplaceAll(msg, "\n", "")
		listOfCommits = append(listOfCommits, []string{
			c.Hash.String()[:12],
			c.Author.Name,
			c.Date.Format("2006-01-02 15:04"),
			msg,
		})
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"hash", "author", "date", "message"})
	table.AppendBulk(listOfCommits)
	table.Render()
	return buf.Bytes()
}

func newArtifactListTableOutput(releases []github.Release) []byte {
	listOfArtifacts := [][]string{}
	for _, r := range releases {
		for _, a := range r.Artifacts {
			listOfArtifacts = append(listOfArtifacts, []string{
				r.Tag,
				a.Name,
				a.ContentType,
			})
		}
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"tag", "name", "content-type"})
	table.AppendBulk(listOfArtifacts)
	table.Render()
	return buf.Bytes()
}

func newOptions(fs *pflag.FlagSet) verdictOpts {
	ot := resolveOutputType(fs)
	stdin, _ := fs.GetString(stdinFlag)
	stdout, _ := fs.GetString(stdoutFlag)
	tl, _ := fs.GetInt(timeLimitFlag)
	ml, _ := fs.GetInt(memoryLimitFlag)
	deny, _ := fs.GetStringSlice(denyFlag)
	debug, _ := fs.GetBool(debugFlag)
	addr, _ := fs.GetString(addrFlag)
	cached, _ := fs.GetBool(cachedFlag)
	tag, _ := fs.GetString(tagFlag)
	name, _ := fs.GetString(nameFlag)

	return verdictOpts{
		outType:     ot,
		stdinPath:   stdin,
		stdoutPath:  stdout,
		timeLimit:   tl,
		memoryLimit: ml,
		deny:        deny,
		debug:       debug,
		addr:        addr,
		cached:      cached,
		singleTag:   tag,
		assetName:   name,
	}
}

func resolveOutputType(fs *pflag.FlagSet) outputType {
	of, err := fs.GetString(outputFlag)
	// default if there are ever issues finding flag
	if err != nil {
		return tableOut
	}
	switch of {
	case "json":
		return jsonOut
	case "table":
		return tableOut
	}

	// default OutputType
	return tableOut
}
