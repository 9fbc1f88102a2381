// Package main is the main entrypoint to the nodepat application
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tanema/nodepat"
	"github.com/tanema/nodepat/src/ast"
	"github.com/tanema/nodepat/src/conf"
	"github.com/tanema/nodepat/src/goast"
	"github.com/tanema/nodepat/src/runtime"
	"github.com/tanema/nodepat/src/types"
)

var (
	executePattern string
	programFile    string
	dumpFile       string
	configFile     string
	listOpcodes    bool
	interactive    bool
	traceOn        bool
	showVersion    bool
	workers        int
)

func init() {
	flag.StringVar(&executePattern, "e", "", "match the pattern 'pattern'")
	flag.StringVar(&programFile, "x", "", "load a dumped program instead of a pattern")
	flag.StringVar(&dumpFile, "d", "", "write the compiled program to file")
	flag.StringVar(&configFile, "c", "", "load configuration and type declarations from a toml file")
	flag.BoolVar(&listOpcodes, "l", false, "list opcodes")
	flag.BoolVar(&interactive, "i", false, "enter interactive mode after matching")
	flag.BoolVar(&traceOn, "trace", false, "log every executed instruction")
	flag.BoolVar(&showVersion, "v", false, "show version information")
	flag.IntVar(&workers, "j", 0, "amount of files matched concurrently")
}

func main() {
	flag.Usage = printUsage
	flag.Parse()
	args := flag.Args()

	if showVersion {
		printVersion()
		if len(args) == 0 && executePattern == "" && programFile == "" {
			return
		}
	}

	cfg := conf.Default()
	if configFile != "" {
		var err error
		cfg, err = conf.Load(configFile)
		checkErr(err)
	}
	if workers > 0 {
		cfg.Match.Workers = workers
	}
	if traceOn {
		cfg.Log.Level = "debug"
	}
	logger, closeLog, err := newLogger(cfg.Log, os.Stderr)
	checkErr(err)
	defer func() { _ = closeLog() }()
	slog.SetDefault(logger)

	reg, err := nodepat.NewRegistry()
	checkErr(err)
	if configFile != "" {
		checkErr(reg.LoadFile(configFile))
	}

	pattern, args, err := loadPattern(reg, args)
	checkErr(err)
	if pattern == nil {
		if !interactive {
			printUsage()
			os.Exit(1)
		}
		runREPL(reg, args, cfg)
		return
	}

	if listOpcodes {
		code, err := pattern.Disasm()
		checkErr(err)
		fmt.Fprint(os.Stderr, code)
	}
	if dumpFile != "" {
		data, err := pattern.Dump()
		checkErr(err)
		checkErr(os.WriteFile(dumpFile, data, 0o644))
		slog.Info("wrote program", "file", dumpFile, "bytes", len(data))
	}

	if len(args) > 0 {
		files, err := collectFiles(args, cfg.Match.Tests)
		checkErr(err)
		_, err = matchFiles(context.Background(), reg, pattern, files, cfg.Match.Workers, os.Stdout)
		checkErr(err)
	}
	if interactive {
		runREPL(reg, args, cfg)
	}
}

func printVersion() {
	fmt.Fprintf(os.Stderr, "%v\n", conf.FullVersion())
}

func printUsage() {
	printVersion()
	fmt.Fprint(os.Stderr, "\nUsage: nodepat [options] [pattern] [files or dirs]\n")
	flag.PrintDefaults()
}

func checkErr(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// loadPattern takes the pattern from -x, -e or the first argument, in that
// order, and returns the remaining arguments.
func loadPattern(reg *types.Registry, args []string) (*nodepat.Pattern, []string, error) {
	switch {
	case programFile != "":
		data, err := os.ReadFile(programFile)
		if err != nil {
			return nil, nil, err
		}
		pattern, err := nodepat.Load(data, reg)
		return pattern, args, err
	case executePattern != "":
		pattern, err := nodepat.New(executePattern, reg)
		return pattern, args, err
	case len(args) > 0 && !interactive:
		pattern, err := nodepat.New(args[0], reg)
		return pattern, args[1:], err
	}
	return nil, args, nil
}

// collectFiles expands directories into the go files they contain. Hidden
// directories, testdata and vendor are skipped.
func collectFiles(paths []string, tests bool) ([]string, error) {
	files := []string{}
	for _, root := range paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			name := d.Name()
			if d.IsDir() {
				if path != root && (strings.HasPrefix(name, ".") || name == "testdata" || name == "vendor") {
					return filepath.SkipDir
				}
				return nil
			}
			if path == root || (strings.HasSuffix(name, ".go") && (tests || !strings.HasSuffix(name, "_test.go"))) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

// matchFiles parses and matches files concurrently and writes the matches to
// out in the order of files. It returns the amount of matches.
func matchFiles(ctx context.Context, reg *types.Registry, pattern *nodepat.Pattern, files []string, workers int, out io.Writer) (int, error) {
	if _, err := pattern.Compile(); err != nil {
		return 0, err
	}
	results := make([][]*ast.Node, len(files))
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(max(workers, 1))
	for i, path := range files {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			file, err := goast.ParseFile(reg, path, nil)
			if err != nil {
				return err
			}
			found, err := scan(pattern, file)
			if err != nil {
				return err
			}
			slog.Debug("matched file", "file", path, "matches", len(found))
			results[i] = found
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return 0, err
	}
	count := 0
	for _, found := range results {
		for _, node := range found {
			fmt.Fprintln(out, nodepat.Location(node))
		}
		count += len(found)
	}
	return count, nil
}

func scan(pattern *nodepat.Pattern, file *ast.Node) ([]*ast.Node, error) {
	if !traceOn {
		return pattern.Scan(file)
	}
	found := []*ast.Node{}
	var err error
	ast.Walk(file, func(node *ast.Node) bool {
		if err != nil {
			return false
		}
		var matched bool
		matched, err = pattern.Trace(node, func(step runtime.Step) {
			slog.Debug("step",
				"node", node.Pos,
				"pc", step.PC,
				"inst", step.Inst.String(),
				"top", ast.Inspect(step.Top),
				"depth", step.Depth,
			)
		})
		if matched {
			found = append(found, node)
		}
		return true
	})
	return found, err
}

func runREPL(reg *types.Registry, paths []string, cfg *conf.Config) {
	files, err := collectFiles(paths, cfg.Match.Tests)
	checkErr(err)
	subjects := make([]*ast.Node, 0, len(files))
	for _, path := range files {
		file, err := goast.ParseFile(reg, path, nil)
		checkErr(err)
		subjects = append(subjects, file)
	}
	printVersion()
	fmt.Fprintf(os.Stderr, "Loaded %d files. Press ctrl-c to quit or clear current buffer.\n", len(subjects))
	checkErr(nodepat.REPL(reg, subjects, os.Stdout))
}
