/*
Package repl implements the interactive autumn shell.

The shell has three modes. In lexer mode every input line is printed as a
stream of tokens, in parser mode as the program it parses to, and in eval
mode (the default) it is evaluated in a session environment that lives as
long as the shell.

Lines starting with a colon are commands and are not handed to the current
mode:

	:mode <lexer|parser|eval>  switch mode
	:tree                      toggle tree display in parser mode
	:env                       list the session's bindings
	:run <file>                evaluate a file in the session
	:reset                     start over with an empty environment
	:q, :quit                  leave (as does <ctrl>D)
*/
package repl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/npillmayer/schuko/tracing"
	"github.com/pterm/pterm"

	"autumn/pkg/eval"
	"autumn/pkg/lexer"
	"autumn/pkg/object"
	"autumn/pkg/token"
)

func tracer() tracing.Trace {
	return tracing.Select("autumn.repl")
}

// Mode selects what the shell does with an input line.
type Mode int

const (
	ModeEval Mode = iota
	ModeLexer
	ModeParser
)

func (m Mode) String() string {
	switch m {
	case ModeLexer:
		return "lexer"
	case ModeParser:
		return "parser"
	default:
		return "eval"
	}
}

// ParseMode converts a mode name.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "eval", "":
		return ModeEval, nil
	case "lexer":
		return ModeLexer, nil
	case "parser":
		return ModeParser, nil
	}
	return ModeEval, fmt.Errorf("unknown mode %q, use lexer, parser or eval", name)
}

// Options configure a REPL.
type Options struct {
	Prompt  string
	History string // history file; none if empty
	Mode    Mode
}

// REPL is an interactive session.
type REPL struct {
	opts Options
	mode Mode
	tree bool
	out  io.Writer
	intp *eval.Interpreter
	info *pterm.PrefixPrinter
	fail *pterm.PrefixPrinter
}

// New creates a shell writing to out. Output of `puts` goes to out as well.
func New(out io.Writer, opts Options) *REPL {
	if out == nil {
		out = os.Stdout
	}
	if opts.Prompt == "" {
		opts.Prompt = "> "
	}
	r := &REPL{
		opts: opts,
		mode: opts.Mode,
		out:  out,
		intp: eval.New(eval.WithOutput(out)),
		info: pterm.Info.WithWriter(out),
		fail: pterm.Error.WithWriter(out),
	}
	return r
}

// InitDisplay sets up the pterm prefixes used for results and errors. Call
// it before New.
func InitDisplay() {
	pterm.Info.Prefix = pterm.Prefix{
		Text:  " =>",
		Style: pterm.NewStyle(pterm.BgCyan, pterm.FgBlack),
	}
	pterm.Error.Prefix = pterm.Prefix{
		Text:  " Error",
		Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack),
	}
}

// Run reads lines until EOF or a quit command.
func (r *REPL) Run() error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:      r.opts.Prompt,
		HistoryFile: r.opts.History,
		Stdout:      r.out,
	})
	if err != nil {
		return fmt.Errorf("starting line editor: %w", err)
	}
	defer rl.Close()

	tracer().Infof("REPL started in %s mode", r.mode)
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil { // io.EOF
			break
		}
		if r.Execute(line) {
			break
		}
	}
	r.intp.Wait()
	return nil
}

// Execute handles a single input line and reports whether the shell should
// quit.
func (r *REPL) Execute(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if strings.HasPrefix(line, ":") {
		return r.command(strings.Fields(line))
	}

	switch r.mode {
	case ModeLexer:
		r.lex(line)
	case ModeParser:
		r.parse(line)
	default:
		r.printResult(r.intp.Evaluate(line))
	}
	return false
}

// command runs a colon command and reports whether the shell should quit.
func (r *REPL) command(fields []string) bool {
	switch fields[0] {
	case ":q", ":quit":
		return true
	case ":mode":
		if len(fields) != 2 {
			r.fail.Println("usage: :mode <lexer|parser|eval>")
			return false
		}
		mode, err := ParseMode(fields[1])
		if err != nil {
			r.fail.Println(err.Error())
			return false
		}
		r.mode = mode
		r.info.Println("mode " + mode.String())
		return false
	case ":tree":
		r.tree = !r.tree
		if r.tree {
			r.info.Println("tree display on")
		} else {
			r.info.Println("tree display off")
		}
		return false
	case ":env":
		r.listEnv()
		return false
	case ":reset":
		r.intp.Reset()
		r.info.Println("environment reset")
		return false
	case ":run":
		if len(fields) != 2 {
			r.fail.Println("usage: :run <file>")
			return false
		}
		r.runFile(fields[1])
		return false
	}
	r.fail.Println("unknown command " + fields[0])
	return false
}

// Mode returns the current mode.
func (r *REPL) Mode() Mode {
	return r.mode
}

// Interpreter returns the session interpreter.
func (r *REPL) Interpreter() *eval.Interpreter {
	return r.intp
}

func (r *REPL) lex(line string) {
	for _, tok := range lexer.New(line).Tokens() {
		if tok.Type == token.EOF {
			break
		}
		fmt.Fprintln(r.out, tok)
	}
}

func (r *REPL) parse(line string) {
	program, errs := eval.Parse(line)
	if len(errs) > 0 {
		for _, msg := range errs {
			fmt.Fprintf(r.out, "error: %s\n", msg)
		}
		return
	}
	if r.tree {
		if err := RenderTree(r.out, program); err != nil {
			tracer().Errorf("rendering tree: %v", err)
		}
		return
	}
	fmt.Fprintln(r.out, program.String())
}

func (r *REPL) runFile(path string) {
	src, err := os.ReadFile(path)
	if err != nil {
		r.fail.Println(fmt.Sprintf("reading %s: %v", path, err))
		return
	}
	r.printResult(r.intp.Evaluate(string(src)))
}

func (r *REPL) printResult(result object.Object) {
	if result == nil {
		return
	}
	if errObj, ok := result.(*object.Error); ok {
		r.fail.Println(errObj.Message)
		return
	}
	r.info.Println(result.Inspect())
}

func (r *REPL) listEnv() {
	names := r.intp.Env().Names()
	if len(names) == 0 {
		r.info.Println("no bindings")
		return
	}
	sort.Strings(names)
	for _, name := range names {
		val, _ := r.intp.Env().Get(name)
		fmt.Fprintf(r.out, "%s = %s\n", name, describe(val))
	}
}

// describe avoids waiting on bindings whose call has not finished yet.
func describe(val object.Object) string {
	if p, ok := val.(*object.Pending); ok {
		select {
		case <-p.Done():
			return p.Inspect()
		default:
			return "<pending>"
		}
	}
	if _, ok := val.(*object.Function); ok {
		return "<function>"
	}
	return val.Inspect()
}
