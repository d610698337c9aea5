package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pterm/pterm"

	"autumn/pkg/config"
	"autumn/pkg/eval"
	"autumn/pkg/lexer"
	"autumn/pkg/object"
	"autumn/pkg/repl"
	"autumn/pkg/server"
	"autumn/pkg/token"
	"autumn/pkg/version"
)

const fileSuffix = ".atm"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run executes the command line args and returns the exit code: 0 on
// success, 1 on failure and 2 for usage errors.
func run(args []string, stdout io.Writer) int {
	global := flag.NewFlagSet("autumn", flag.ContinueOnError)
	global.SetOutput(io.Discard)
	configFile := global.String("config", "", "configuration file (YAML)")
	traceLevel := global.String("trace", "", "trace level [Debug|Info|Error]")
	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printHelp(stdout)
			return 0
		}
		pterm.Error.Println(err.Error())
		return 2
	}
	args = global.Args()

	command := "repl"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}
	switch command {
	case "version", "--version", "-v":
		printVersion(stdout)
		return 0
	case "help", "--help", "-h":
		printHelp(stdout)
		return 0
	}

	conf, err := config.Load(config.Options{File: *configFile})
	if err != nil {
		pterm.Error.Println(err.Error())
		return 1
	}
	if *traceLevel != "" {
		conf.SetTraceLevel(*traceLevel)
	}
	if err := config.SetupTracing(conf); err != nil {
		pterm.Error.Println(err.Error())
		return 1
	}
	repl.InitDisplay()

	// A file ending in .atm is a shortcut for 'autumn run <file>'.
	if strings.HasSuffix(command, fileSuffix) {
		return runFile(conf, append([]string{command}, args...), stdout)
	}

	switch command {
	case "repl":
		return startREPL(conf, args)
	case "run":
		return runFile(conf, args, stdout)
	case "eval":
		if len(args) != 1 {
			return usage("autumn eval '<code>'")
		}
		return evalSource(args[0], conf.GetBool("run.drain"), stdout)
	case "tokens":
		if len(args) != 1 {
			return usage("autumn tokens '<code>'")
		}
		printTokens(args[0], stdout)
		return 0
	case "ast":
		return printAST(args, stdout)
	case "serve":
		return serve(conf)
	case "hash-password":
		if len(args) != 1 {
			return usage("autumn hash-password <password>")
		}
		hash, err := server.HashPassword(args[0])
		if err != nil {
			pterm.Error.Println(err.Error())
			return 1
		}
		fmt.Fprintln(stdout, hash)
		return 0
	default:
		pterm.Error.Printf("unknown command: %s\n", command)
		printHelp(stdout)
		return 2
	}
}

func usage(line string) int {
	pterm.Error.Println("usage: " + line)
	return 2
}

func startREPL(conf *config.Config, args []string) int {
	modeName := conf.GetString("repl.mode")
	if len(args) > 0 {
		modeName = args[0]
	}
	mode, err := repl.ParseMode(modeName)
	if err != nil {
		pterm.Error.Println(err.Error())
		return 2
	}
	pterm.Info.Println("autumn " + version.Version + ", quit with :q or <ctrl>D")
	r := repl.New(os.Stdout, repl.Options{
		Prompt:  conf.GetString("repl.prompt"),
		History: conf.GetString("repl.history"),
		Mode:    mode,
	})
	if err := r.Run(); err != nil {
		pterm.Error.Println(err.Error())
		return 1
	}
	return 0
}

// runFile evaluates a program in a fresh environment. With --drain it waits
// for detached calls before returning.
func runFile(conf *config.Config, args []string, stdout io.Writer) int {
	drain := conf.GetBool("run.drain")
	var files []string
	for _, arg := range args {
		if arg == "--drain" || arg == "-drain" {
			drain = true
			continue
		}
		files = append(files, arg)
	}
	if len(files) != 1 {
		return usage("autumn run <file> [--drain]")
	}
	src, err := os.ReadFile(files[0])
	if err != nil {
		pterm.Error.Println(fmt.Errorf("reading program: %w", err).Error())
		return 1
	}
	return evalSource(string(src), drain, stdout)
}

func evalSource(src string, drain bool, stdout io.Writer) int {
	in := eval.New(eval.WithOutput(stdout))
	result := in.Evaluate(src)
	if drain {
		in.Wait()
	}
	if result == nil {
		return 0
	}
	if errObj, ok := result.(*object.Error); ok {
		pterm.Error.Println(errObj.Message)
		return 1
	}
	fmt.Fprintln(stdout, result.Inspect())
	return 0
}

func printTokens(src string, stdout io.Writer) {
	for _, tok := range lexer.New(src).Tokens() {
		if tok.Type == token.EOF {
			break
		}
		fmt.Fprintln(stdout, tok)
	}
}

func printAST(args []string, stdout io.Writer) int {
	tree := false
	var files []string
	for _, arg := range args {
		if arg == "--tree" || arg == "-tree" {
			tree = true
			continue
		}
		files = append(files, arg)
	}
	if len(files) != 1 {
		return usage("autumn ast <file> [--tree]")
	}
	src, err := os.ReadFile(files[0])
	if err != nil {
		pterm.Error.Println(fmt.Errorf("reading program: %w", err).Error())
		return 1
	}
	program, errs := eval.Parse(string(src))
	if len(errs) > 0 {
		printParserErrors(os.Stderr, errs)
		return 1
	}
	if tree {
		if err := repl.RenderTree(stdout, program); err != nil {
			pterm.Error.Println(err.Error())
			return 1
		}
		return 0
	}
	fmt.Fprintln(stdout, program.String())
	return 0
}

func serve(conf *config.Config) int {
	srv, err := server.New(server.Config{
		Addr:         conf.GetString("serve.addr"),
		Secret:       []byte(conf.GetString("serve.secret")),
		PasswordHash: conf.GetString("serve.password_hash"),
		TokenTTL:     conf.Duration("serve.token_ttl"),
	})
	if err != nil {
		pterm.Error.Println(err.Error())
		return 1
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	pterm.Info.Println("serving REPL sessions on " + conf.GetString("serve.addr"))
	if err := srv.ListenAndServe(ctx); err != nil {
		pterm.Error.Println(err.Error())
		return 1
	}
	return 0
}

func printParserErrors(out io.Writer, errs []string) {
	for _, msg := range errs {
		fmt.Fprintf(out, "error: %s\n", msg)
	}
}

func printVersion(out io.Writer) {
	fmt.Fprintf(out, "autumn %s\n", version.Version)
	fmt.Fprintf(out, "Build Date: %s\n", version.BuildDate)
	fmt.Fprintf(out, "Git Commit: %s\n", version.GitCommit)
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "autumn, a small interpreted language with concurrent calls")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Usage:")
	fmt.Fprintln(out, "  autumn <file.atm>              Run a program (shortcut for 'autumn run')")
	fmt.Fprintln(out, "  autumn repl [mode]             Start the REPL (modes: lexer, parser, eval)")
	fmt.Fprintln(out, "  autumn run <file> [--drain]    Run a program, optionally waiting for detached calls")
	fmt.Fprintln(out, "  autumn eval '<code>'           Evaluate code given on the command line")
	fmt.Fprintln(out, "  autumn tokens '<code>'         Print the tokens of code")
	fmt.Fprintln(out, "  autumn ast <file> [--tree]     Print the syntax tree of a program")
	fmt.Fprintln(out, "  autumn serve                   Offer REPL sessions over WebSocket")
	fmt.Fprintln(out, "  autumn hash-password <pw>      Hash a password for serve.password_hash")
	fmt.Fprintln(out, "  autumn version                 Display build metadata")
	fmt.Fprintln(out, "  autumn help                    Show this help message")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Global flags:")
	fmt.Fprintln(out, "  --config <file>                YAML configuration file")
	fmt.Fprintln(out, "  --trace <level>                Trace level for all tracers [Debug|Info|Error]")
}
