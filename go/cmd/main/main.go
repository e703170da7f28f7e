package main

import (
	"github.com/lunixbochs/emucore/go/cmd"

	_ "github.com/lunixbochs/emucore/go/cmd/run"

	_ "github.com/lunixbochs/emucore/go/cmd/repl"
	_ "github.com/lunixbochs/emucore/go/cmd/script"
	_ "github.com/lunixbochs/emucore/go/cmd/trace"
)

func main() { cmd.Main() }
