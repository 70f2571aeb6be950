package main

import (
	"fmt"
	"os"

	"github.com/dan-strohschein/resilientdb/client"
)

const connEnv = "RESILIENTDB_CONN"

func main() {
	os.Exit(run(os.Args[1:]))
}

// run dispatches a subcommand and returns the process exit code. Handlers
// return instead of exiting so their deferred cleanup runs.
func run(args []string) int {
	if len(args) < 1 {
		printUsage()
		return 1
	}

	command := args[0]

	switch command {
	case "query":
		return handleQuery(args[1:])
	case "exec":
		return handleExec(args[1:])
	case "test":
		return handleTest(args[1:])
	case "version", "-v", "--version":
		fmt.Printf("resilientdb %s\n", client.Version)
	case "help", "-h", "--help":
		printUsage()
	default:
		printError(fmt.Sprintf("Unknown command: %s", command))
		printUsage()
		return 1
	}
	return 0
}

func printUsage() {
	fmt.Println(colorBold(colorCyan("resilientdb")) + " - run statements through the resilient client\n")
	fmt.Println("Usage:")
	fmt.Println("  resilientdb " + colorYellow("<command>") + " [options]\n")
	fmt.Println("Commands:")
	fmt.Println("  " + colorGreen("query") + "     Run one statement and print its rows")
	fmt.Println("  " + colorGreen("exec") + "      Run a batch file in one transaction or in parallel")
	fmt.Println("  " + colorGreen("test") + "      Test the connection")
	fmt.Println("  " + colorGreen("version") + "   Show version information")
	fmt.Println("  " + colorGreen("help") + "      Show this help message\n")
	fmt.Println("Environment Variables:")
	fmt.Println("  " + connEnv + "          Connection string, e.g. pgsql:host=localhost;dbname=app")
	fmt.Println("  DB_LITE_RETRY_COUNT       Retries for connection-class errors (default: 1)")
	fmt.Println("  DB_MAIN_RETRY_COUNT       Retries for deadlocks and lock timeouts (default: 2)")
	fmt.Println("  DB_RETRY_TIMEOUT          Pause between retries (default: 100ms)")
}
