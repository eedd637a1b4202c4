package cmd

type outputType int

const (
	jsonOut outputType = iota
	tableOut
)

const (
	outputFlag      = "output"
	stdinFlag       = "stdin"
	stdoutFlag      = "stdout"
	timeLimitFlag   = "time-limit"
	memoryLimitFlag = "memory-limit"
	denyFlag        = "deny"
	debugFlag       = "debug"
	addrFlag        = "addr"
	cachedFlag      = "cached"
	tagFlag         = "tag"
	nameFlag        = "name"

	// set this environment variable to reach private submission repos
	githubTokenEnv = "VERDICT_GITHUB_TOKEN"
)

type verdictOpts struct {
	outType     outputType
	stdinPath   string
	stdoutPath  string
	timeLimit   int
	memoryLimit int
	deny        []string
	debug       bool
	addr        string
	cached      bool
	singleTag   string
	assetName   string
}

// CLI flags to intialize
func init() {
	// output
	runCmd.Flags().StringP(outputFlag, "o", "table", "Output type for command [table (default), json].")
	syscallsCmd.Flags().StringP(outputFlag, "o", "table", "Output type for command [table (default), json].")
	hostCmd.Flags().StringP(outputFlag, "o", "table", "Output type for command [table (default), json].")

	// sandbox policy
	runCmd.Flags().String(stdinFlag, "", "File to feed the child as standard input. Defaults to this process's stdin.")
	runCmd.Flags().String(stdoutFlag, "", "File to capture the child's standard output into. Defaults to this process's stdout.")
	runCmd.Flags().IntP(timeLimitFlag, "t", 0, "Time limit in seconds, enforced as both CPU time and wall clock. 0 means unlimited.")
	runCmd.Flags().IntP(memoryLimitFlag, "m", 0, "Memory limit in bytes. 0 means unlimited.")
	runCmd.Flags().StringSlice(denyFlag, nil, "Syscalls that terminate the run with an SE verdict, by name or number (e.g. openat,socket,59).")
	runCmd.Flags().Bool(debugFlag, false, "Dump the raw execution result for debugging.")

	// serve
	serveCmd.Flags().String(addrFlag, "", "Address to serve the status page on. Defaults to :8080.")

	// submission retrieval
	changesCmd.Flags().Bool(cachedFlag, false, "Clone into the on-disk cache instead of keeping the repository in memory.")
	artifactsGetCmd.Flags().StringP(tagFlag, "t", "", "The release tag the artifact belongs to.")
	artifactsGetCmd.Flags().String(nameFlag, "", "The artifact's asset name.")
}
