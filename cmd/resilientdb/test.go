package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dan-strohschein/resilientdb/client"
	"github.com/dan-strohschein/resilientdb/dialect"
)

func handleTest(args []string) int {
	if len(args) == 0 || args[0] != "connection" {
		printTestUsage()
		return 1
	}
	return handleTestConnection(args[1:])
}

func printTestUsage() {
	printHeader("Test Commands")
	fmt.Println("Usage:")
	fmt.Println("  resilientdb test " + colorYellow("connection") + " [options]\n")
	fmt.Println("  " + colorDim("# Test connection and print the session snapshot"))
	fmt.Println("  resilientdb test connection --verbose")
}

// handleTestConnection tests database connection
func handleTestConnection(args []string) int {
	fs := flag.NewFlagSet("test connection", flag.ContinueOnError)
	common := addCommonFlags(fs)
	verbose := fs.Bool("verbose", false, "Show detailed connection info")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	printHeader("Test Database Connection")
	fmt.Println()

	fmt.Print("  1. Parse connection string... ")
	dsn, err := dialect.ParseDSN(*common.connStr)
	if err != nil {
		fmt.Println(colorRed("FAIL"))
		printError(err.Error())
		return 1
	}
	c, err := common.open()
	if err != nil {
		fmt.Println(colorRed("FAIL"))
		printError(client.FormatError(err, false))
		return 1
	}
	defer c.Close(context.Background())
	printSuccess(fmt.Sprintf("OK (%s)", dsn.Kind()))

	ctx, cancel := context.WithTimeout(context.Background(), *common.timeout)
	defer cancel()

	fmt.Print("  2. Connect to database... ")
	if err := c.Connect(ctx); err != nil {
		fmt.Println(colorRed("FAIL"))
		printError(client.FormatError(err, *verbose))
		return 1
	}
	printSuccess("OK")

	fmt.Print("  3. Ping server... ")
	pingStart := time.Now()
	if err := c.Ping(ctx); err != nil {
		fmt.Println(colorRed("FAIL"))
		printError(client.FormatError(err, *verbose))
		return 1
	}
	printSuccess(fmt.Sprintf("OK (%dms)", time.Since(pingStart).Milliseconds()))

	fmt.Print("  4. Check connection state... ")
	if state := c.GetState(); state != client.CONNECTED {
		fmt.Println(colorRed("FAIL"))
		printError(fmt.Sprintf("Expected state CONNECTED, got %s", state))
		return 1
	}
	printSuccess("OK")

	fmt.Println()
	printSuccess("All tests passed! (4/4)")

	if *verbose {
		fmt.Println()
		printInfo("Connection Details:")
		fmt.Println(colorDim(c.DumpDebugInfoJSON()))
	}
	return 0
}
