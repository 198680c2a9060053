// Command fcmp-inspect is an interactive REPL for loading a .fcmp container
// and examining its model ensemble without fully extracting it.
package main

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"fcmp/container"
	"fcmp/extract"

	"github.com/peterh/liner"
)

func main() {
	repl := &REPL{}
	if len(os.Args) > 1 {
		if err := repl.load(os.Args[1]); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
	if err := repl.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// REPL is the interactive command loop over a loaded container.
type REPL struct {
	path   string
	record *container.Record
	liner  *liner.State
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".fcmp_inspect_history")
}

// Run starts the REPL loop.
func (r *REPL) Run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(historyFile()); err == nil {
		r.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Println("fcmp-inspect - container inspector")
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := r.liner.Prompt("fcmp> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nBye!")
				break
			}
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			fmt.Println("Bye!")
			r.saveHistory()
			return nil

		case "help", "?":
			r.printHelp()

		case "load":
			r.cmdLoad(args)

		case "info":
			r.cmdInfo()

		case "models":
			r.cmdModels()

		case "extract":
			r.cmdExtract(args)

		case "clear", "cls":
			fmt.Print("\033[H\033[2J")

		default:
			fmt.Printf("unknown command %q; type 'help' for a list\n", cmd)
		}
	}
	r.saveHistory()
	return nil
}

func (r *REPL) saveHistory() {
	path := historyFile()
	if path == "" {
		return
	}
	f, err := os.Create(path)
	if err != nil {
		return
	}
	defer f.Close()
	r.liner.WriteHistory(f)
}

func (r *REPL) completer(line string) []string {
	cmds := []string{"load", "info", "models", "extract", "help", "exit"}
	var out []string
	for _, c := range cmds {
		if strings.HasPrefix(c, line) {
			out = append(out, c)
		}
	}
	return out
}

func (r *REPL) printHelp() {
	fmt.Println(`commands:
  load <path>     load a .fcmp container
  info            print payload length and coded size of the loaded container
  models          list the loaded container's (context, weight) ensemble
  extract <path>  extract the loaded container to path
  exit            quit`)
}

func (r *REPL) load(path string) error {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %q: %w", path, err)
	}
	record, err := container.Parse(data)
	if err != nil {
		return fmt.Errorf("parsing %q: %w", path, err)
	}
	r.path = path
	r.record = record
	return nil
}

func (r *REPL) cmdLoad(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: load <path>")
		return
	}
	if err := r.load(args[0]); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("loaded %q: %d models, %d payload bits\n", r.path, len(r.record.Models), r.record.BitPayloadLength)
}

func (r *REPL) cmdInfo() {
	if r.record == nil {
		fmt.Println("no container loaded; use 'load <path>'")
		return
	}
	fmt.Printf("path:           %s\n", r.path)
	fmt.Printf("models:         %d\n", len(r.record.Models))
	fmt.Printf("payload bits:   %d\n", r.record.BitPayloadLength)
	fmt.Printf("coded bits:     %d\n", r.record.CodedBitLength())
	if r.record.BitPayloadLength > 0 {
		ratio := float64(r.record.CodedBitLength()) / float64(r.record.BitPayloadLength)
		fmt.Printf("coded/payload:  %.4f\n", ratio)
	}
}

func (r *REPL) cmdModels() {
	if r.record == nil {
		fmt.Println("no container loaded; use 'load <path>'")
		return
	}
	for i, m := range r.record.Models {
		fmt.Printf("%3d  context=0x%02x  weight=%3d\n", i, m.Context, m.Weight)
	}
}

func (r *REPL) cmdExtract(args []string) {
	if r.record == nil {
		fmt.Println("no container loaded; use 'load <path>'")
		return
	}
	if len(args) != 1 {
		fmt.Println("usage: extract <path>")
		return
	}
	data, err := extract.Bytes(r.record)
	if err != nil {
		fmt.Println("extract failed:", err)
		return
	}
	if err := ioutil.WriteFile(args[0], data, 0o644); err != nil {
		fmt.Println("writing output:", err)
		return
	}
	fmt.Printf("wrote %d bytes to %q\n", len(data), args[0])
}
