// Command dbtext is a REPL front end for the embeddable query engine,
// the Go counterpart of original_source/src/terminal_app.cpp: a prompt
// loop that lexes/parses/executes one statement at a time and prints
// its result, plus a handful of backslash meta-commands. Flag parsing
// follows the teacher's cmd/sqlmapper/main.go (stdlib flag, no CLI
// framework).
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/woralem/dbtext/internal/dbtext/config"
	"github.com/woralem/dbtext/internal/dbtext/container"
	"github.com/woralem/dbtext/internal/dbtext/dbmanager"
	"github.com/woralem/dbtext/internal/dbtext/parser"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	dataDir := flag.String("data-dir", "", "root directory for on-disk databases (overrides config)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	services, err := container.Bootstrap(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start engine: %v\n", err)
		os.Exit(1)
	}

	var mgr *dbmanager.Manager
	if err := services.Resolve(&mgr); err != nil {
		fmt.Fprintf(os.Stderr, "failed to resolve database manager: %v\n", err)
		os.Exit(1)
	}

	repl := &repl{mgr: mgr, current: dbmanager.DefaultDatabaseName, in: bufio.NewScanner(os.Stdin), out: os.Stdout}
	repl.run()
}

type repl struct {
	mgr     *dbmanager.Manager
	current string
	in      *bufio.Scanner
	out     io.Writer
}

func (r *repl) run() {
	fmt.Fprintln(r.out, "dbtext query engine - type \\h for help, \\q to quit")
	for {
		fmt.Fprintf(r.out, "\n%s> ", r.current)
		if !r.in.Scan() {
			break
		}
		line := strings.TrimSpace(r.in.Text())
		if line == "" {
			continue
		}
		if r.handleMeta(line) {
			continue
		}
		if line == "\\q" || line == "\\quit" {
			fmt.Fprintln(r.out, "goodbye")
			return
		}
		r.execute(line)
	}
}

// handleMeta processes backslash commands; returns true if line was one.
func (r *repl) handleMeta(line string) bool {
	switch {
	case line == "\\h" || line == "\\help":
		r.printHelp()
		return true
	case line == "\\l":
		for _, name := range r.mgr.Names() {
			fmt.Fprintln(r.out, name)
		}
		return true
	case strings.HasPrefix(line, "\\u "):
		name := strings.TrimSpace(strings.TrimPrefix(line, "\\u "))
		if !r.mgr.Exists(name) {
			fmt.Fprintf(r.out, "no such database %q\n", name)
		} else {
			r.current = name
		}
		return true
	}
	return false
}

func (r *repl) printHelp() {
	fmt.Fprintln(r.out, "\\h, \\help   show this help")
	fmt.Fprintln(r.out, "\\q, \\quit   exit")
	fmt.Fprintln(r.out, "\\l          list databases")
	fmt.Fprintln(r.out, "\\u <name>   switch to database <name>")
}

func (r *repl) execute(line string) {
	stmts, errs := parser.Parse(line)
	if len(errs) > 0 {
		fmt.Fprintln(r.out, "parse errors:")
		for _, e := range errs {
			fmt.Fprintf(r.out, "  - %s\n", e)
		}
		return
	}

	exec, err := r.mgr.Executor(r.current)
	if err != nil {
		fmt.Fprintf(r.out, "error: %v\n", err)
		return
	}

	for _, stmt := range stmts {
		result := exec.Execute(stmt, line)
		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(r.out, string(encoded))
	}
}
