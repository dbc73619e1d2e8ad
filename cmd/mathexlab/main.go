package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/Prime01-oss/MathexLab/pkg/kernel"
	"github.com/Prime01-oss/MathexLab/pkg/toolbox"
)

const cliVersion = "mathexlab 0.1.0-dev"

const configFileName = "mathexlab.yaml"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		return runREPL()
	}

	switch args[0] {
	case "--help", "-h":
		printUsage()
		return 0
	case "--version", "-V", "version":
		fmt.Fprintln(os.Stdout, cliVersion)
		return 0
	case "repl":
		return runREPL()
	case "run":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "usage: mathexlab run <file.m>")
			return 1
		}
		return runFile(args[1])
	case "toolbox":
		return runToolbox(args[1:])
	default:
		if strings.HasSuffix(args[0], ".m") {
			return runFile(args[0])
		}
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: mathexlab [command]

commands:
  repl                         start an interactive session (default)
  run <file.m>                 execute a source file
  toolbox install <name> <url> [--rev R | --tag T | --branch B]
  toolbox list
  toolbox remove <name>
  version                      print the version

A mathexlab.yaml in the working directory configures search paths,
installed toolboxes and display options.`)
}

// loadSessionConfig reads mathexlab.yaml when present; a missing file is not
// an error.
func loadSessionConfig() (*kernel.Config, error) {
	cfg, err := kernel.LoadConfig(configFileName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return cfg, nil
}

func runFile(path string) int {
	cfg, err := loadSessionConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", path, err)
		return 1
	}

	s := kernel.NewSession(cfg)
	out := s.Run(string(data))
	fmt.Fprint(os.Stdout, out.Output)
	if !out.OK() {
		fmt.Fprintln(os.Stderr, out.Err)
		return 1
	}
	return 0
}

func runREPL() int {
	cfg, err := loadSessionConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	s := kernel.NewSession(cfg)

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		// Piped input executes as one buffer, like a script.
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read stdin: %v\n", err)
			return 1
		}
		out := s.Run(string(data))
		fmt.Fprint(os.Stdout, out.Output)
		if !out.OK() {
			fmt.Fprintln(os.Stderr, out.Err)
			return 1
		}
		return 0
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "terminal: %v\n", err)
		return 1
	}
	defer term.Restore(fd, oldState)

	screen := struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}
	t := term.NewTerminal(screen, ">> ")
	fmt.Fprintf(t, "%s  (type exit to quit)\n", cliVersion)

	for {
		line, err := readStatement(t)
		if err != nil {
			if err == io.EOF {
				return 0
			}
			fmt.Fprintf(os.Stderr, "read: %v\n", err)
			return 1
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if trimmed == "exit" || trimmed == "quit" {
			return 0
		}

		out := s.Run(line)
		if out.Output != "" {
			fmt.Fprint(t, out.Output)
		}
		if !out.OK() {
			fmt.Fprintln(t, out.Err)
		}
	}
}

// readStatement reads one input, joining lines continued with `...`.
func readStatement(t *term.Terminal) (string, error) {
	var parts []string
	for {
		line, err := t.ReadLine()
		if err != nil {
			return "", err
		}
		trimmed := strings.TrimRight(line, " \t")
		if strings.HasSuffix(trimmed, "...") {
			parts = append(parts, strings.TrimSuffix(trimmed, "..."))
			t.SetPrompt(".. ")
			continue
		}
		parts = append(parts, line)
		t.SetPrompt(">> ")
		return strings.Join(parts, " "), nil
	}
}

func runToolbox(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: mathexlab toolbox <install|list|remove> ...")
		return 1
	}
	cfg, err := loadSessionConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	if cfg == nil {
		cfg = &kernel.Config{}
	}
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	ins := toolbox.NewInstaller(cfg.ToolboxRoot(cwd))

	switch args[0] {
	case "install":
		spec, err := parseInstallArgs(args[1:])
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
		dir, err := ins.Install(spec)
		if err != nil {
			fmt.Fprintf(os.Stderr, "install %s: %v\n", spec.Name, err)
			return 1
		}
		fmt.Fprintf(os.Stdout, "installed %s -> %s\n", spec.Name, dir)
		fns := ins.Functions(spec.Name)
		if len(fns) > 0 {
			fmt.Fprintf(os.Stdout, "provides: %s\n", strings.Join(fns, ", "))
		}
		return 0
	case "list":
		for _, name := range ins.Installed() {
			fmt.Fprintln(os.Stdout, name)
		}
		return 0
	case "remove":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "usage: mathexlab toolbox remove <name>")
			return 1
		}
		if err := ins.Remove(args[1]); err != nil {
			fmt.Fprintf(os.Stderr, "remove %s: %v\n", args[1], err)
			return 1
		}
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown toolbox command %q\n", args[0])
		return 1
	}
}

func parseInstallArgs(args []string) (toolbox.Spec, error) {
	var spec toolbox.Spec
	var positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--rev", "--tag", "--branch":
			if i+1 >= len(args) {
				return spec, fmt.Errorf("%s requires a value", arg)
			}
			i++
			switch arg {
			case "--rev":
				spec.Rev = args[i]
			case "--tag":
				spec.Tag = args[i]
			case "--branch":
				spec.Branch = args[i]
			}
		default:
			positional = append(positional, arg)
		}
	}
	if len(positional) != 2 {
		return spec, fmt.Errorf("usage: mathexlab toolbox install <name> <url> [--rev R | --tag T | --branch B]")
	}
	spec.Name = positional[0]
	spec.URL = positional[1]
	return spec, nil
}
