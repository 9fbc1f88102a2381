package nodepat

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/tanema/nodepat/src/ast"
	"github.com/tanema/nodepat/src/types"
)

const disasmCmd = ":disasm "

// REPL starts an interactive prompt. Every entered pattern is matched against
// all nodes of subjects and the location of each match is written to out.
// Prefixing a pattern with :disasm prints its program instead.
func REPL(reg *types.Registry, subjects []*ast.Node, out io.Writer) error {
	rl, err := readline.New("> ")
	if err != nil {
		return err
	}
	defer func() { _ = rl.Close() }()
	buf := bytes.NewBuffer(nil)
	for {
		src, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if buf.Len() > 0 {
					rl.SetPrompt("> ")
					buf.Reset()
					fmt.Fprint(os.Stderr, "Press ctrl-c again to quit.\n")
					continue
				}
				break
			} else if errors.Is(err, io.EOF) {
				break
			}
			fmt.Fprintln(os.Stderr, err)
			continue
		}

		buf.WriteString(src + "\n")
		if err := evalPattern(reg, subjects, buf.String(), out); err != nil {
			if errors.Is(err, io.EOF) {
				rl.SetPrompt("...> ")
				continue
			}
			fmt.Fprintln(os.Stderr, err)
		}
		rl.SetPrompt("> ")
		buf.Reset()
	}
	return nil
}

// evalPattern returns an error wrapping io.EOF if src is an unfinished pattern.
func evalPattern(reg *types.Registry, subjects []*ast.Node, src string, out io.Writer) error {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil
	}
	src, disasm := strings.CutPrefix(src, disasmCmd)
	pattern, err := New(src, reg)
	if err != nil {
		return err
	}
	if disasm {
		code, err := pattern.Disasm()
		if err != nil {
			return err
		}
		fmt.Fprint(out, code)
		return nil
	}
	count := 0
	for _, subject := range subjects {
		found, err := pattern.Scan(subject)
		if err != nil {
			return err
		}
		for _, node := range found {
			fmt.Fprintln(out, Location(node))
		}
		count += len(found)
	}
	fmt.Fprintf(out, "%d matches\n", count)
	return nil
}
