package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
)

type command struct {
	name, desc string
	main       func(args []string)
}

var commands = make(map[string]*command)
var order []string

func Register(name, desc string, main func(args []string)) {
	commands[name] = &command{name, desc, main}
	order = append(order, name)
}

func usage() {
	pad := 0
	for _, name := range order {
		if w := runewidth.StringWidth(name); w > pad {
			pad = w
		}
	}
	fmt.Fprintln(os.Stderr, "Commands:")
	for _, name := range order {
		cmd := commands[name]
		fmt.Fprintf(os.Stderr, "  %s | %s\n", runewidth.FillRight(cmd.name, pad), cmd.desc)
	}
	fmt.Fprintf(os.Stderr, "\nExample: %s run -khz 500 hello.hex\n\n", os.Args[0])
}

func Main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "Command '%s' not found.\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}
	args := append([]string{strings.Join(os.Args[:2], " ")}, os.Args[2:]...)
	cmd.main(args)
}
