package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/dan-strohschein/resilientdb/client"
)

type commonFlags struct {
	connStr  *string
	login    *string
	password *string
	userID   *string
	logLevel *string
	timeout  *time.Duration
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		connStr:  fs.String("conn", os.Getenv(connEnv), "Connection string"),
		login:    fs.String("login", "", "Database login, overrides user= in the connection string"),
		password: fs.String("password", "", "Database password, overrides password= in the connection string"),
		userID:   fs.String("user", "", "Acting user pushed to the session"),
		logLevel: fs.String("log-level", "WARN", "Log level (DEBUG, INFO, WARN, ERROR)"),
		timeout:  fs.Duration("timeout", 30*time.Second, "Overall timeout"),
	}
}

func (f commonFlags) options() client.ClientOptions {
	opts := client.DefaultOptions()
	opts.Login = *f.login
	opts.Password = *f.password
	opts.UserID = *f.userID
	opts.LogLevel = *f.logLevel
	opts.Logger = client.NewLogger(*f.logLevel, os.Stderr)
	opts.DebugMode = strings.EqualFold(*f.logLevel, "DEBUG")
	return opts
}

func (f commonFlags) open() (*client.Client, error) {
	if *f.connStr == "" {
		return nil, errors.Errorf("connection string is required (--conn or %s)", connEnv)
	}
	opts := f.options()
	return client.New(*f.connStr, &opts)
}

func handleQuery(args []string) int {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	common := addCommonFlags(fs)
	asJSON := fs.Bool("json", false, "Print rows as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if fs.NArg() != 1 {
		printError("query takes exactly one statement")
		return 1
	}

	c, err := common.open()
	if err != nil {
		printError(err.Error())
		return 1
	}
	ctx, cancel := context.WithTimeout(context.Background(), *common.timeout)
	defer cancel()
	defer c.Close(context.Background())

	result, err := c.Query(ctx, fs.Arg(0))
	if err != nil {
		printError(client.FormatError(err, c.IsDebugMode()))
		return 1
	}

	if *asJSON {
		out, err := json.MarshalIndent(result.Rows, "", "  ")
		if err != nil {
			printError(err.Error())
			return 1
		}
		fmt.Println(string(out))
		return 0
	}

	if !result.HasRows() {
		printSuccess(fmt.Sprintf("%d row(s) affected", result.RowCount))
		return 0
	}
	headers, rows := resultTable(result)
	fmt.Print(formatTable(headers, rows))
	printInfo(fmt.Sprintf("%d row(s)", len(rows)))
	return 0
}

func handleExec(args []string) int {
	fs := flag.NewFlagSet("exec", flag.ContinueOnError)
	common := addCommonFlags(fs)
	file := fs.String("file", "-", "Batch file, - for stdin")
	parallel := fs.Bool("parallel", false, "Run each group as its own transaction through execute_multiple")
	async := fs.Bool("async", false, "Send the batch on a second connection without waiting")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	in := io.Reader(os.Stdin)
	if *file != "-" {
		f, err := os.Open(*file)
		if err != nil {
			printError(err.Error())
			return 1
		}
		defer f.Close()
		in = f
	}

	batch, err := parseBatch(in)
	if err != nil {
		printError(err.Error())
		return 1
	}
	if len(batch) == 0 {
		printInfo("nothing to execute")
		return 0
	}

	c, err := common.open()
	if err != nil {
		printError(err.Error())
		return 1
	}
	ctx, cancel := context.WithTimeout(context.Background(), *common.timeout)
	defer cancel()
	defer c.Close(context.Background())

	switch {
	case *async:
		err = c.AsyncSend(ctx, batch)
	case *parallel:
		var applied client.TxBatch
		applied, err = c.ParallelExecute(ctx, batch)
		if err == nil && len(applied) != len(batch) {
			printError(fmt.Sprintf("%d of %d group(s) failed", len(batch)-len(applied), len(batch)))
			return 1
		}
	default:
		err = c.ExecBatch(ctx, batch)
	}
	if err != nil {
		printError(client.FormatError(err, c.IsDebugMode()))
		return 1
	}
	printSuccess(fmt.Sprintf("%d group(s) executed", len(batch)))
	return 0
}

// parseBatch reads statements terminated by ';'. A blank line closes the
// current transaction group. Lines starting with -- are skipped.
func parseBatch(r io.Reader) (client.TxBatch, error) {
	var (
		batch client.TxBatch
		group []string
		stmt  strings.Builder
	)

	flushGroup := func() {
		if len(group) > 0 {
			batch = append(batch, group)
			group = nil
		}
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "--"):
			continue
		case line == "":
			if stmt.Len() == 0 {
				flushGroup()
			}
			continue
		}

		if stmt.Len() > 0 {
			stmt.WriteString(" ")
		}
		stmt.WriteString(line)

		if strings.HasSuffix(line, ";") {
			group = append(group, strings.TrimSuffix(stmt.String(), ";"))
			stmt.Reset()
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading batch")
	}
	if stmt.Len() > 0 {
		return nil, errors.Errorf("unterminated statement: %q", stmt.String())
	}
	flushGroup()
	return batch, nil
}

// resultTable flattens rows for display; columns are sorted by name.
func resultTable(result *client.Result) ([]string, [][]string) {
	if len(result.Rows) == 0 {
		return nil, nil
	}

	headers := make([]string, 0, len(result.Rows[0]))
	for name := range result.Rows[0] {
		headers = append(headers, name)
	}
	sort.Strings(headers)

	rows := make([][]string, len(result.Rows))
	for i, row := range result.Rows {
		cells := make([]string, len(headers))
		for j, name := range headers {
			if v := row[name]; v == nil {
				cells[j] = "NULL"
			} else {
				cells[j] = fmt.Sprint(v)
			}
		}
		rows[i] = cells
	}
	return headers, rows
}
