package models

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// PrintFlags writes flag usage in aligned columns, wrapping descriptions at 80 columns.
func PrintFlags(w io.Writer, flags []*flag.Flag) {
	wname, wdef := 0, 0
	for _, f := range flags {
		if n := runewidth.StringWidth(f.Name); n > wname {
			wname = n
		}
		if n := runewidth.StringWidth(f.DefValue); n > wdef {
			wdef = n
		}
	}
	wdesc := 80 - wname - wdef - 7
	if wdesc < 20 {
		wdesc = 20
	}
	lpad := strings.Repeat(" ", wname+wdef+7)
	for _, f := range flags {
		fmt.Fprintf(w, "  -%s ", runewidth.FillRight(f.Name, wname))
		def := "  "
		if f.DefValue != "" && f.DefValue != "[]" {
			def = "(" + f.DefValue + ")"
		}
		fmt.Fprintf(w, "%s ", runewidth.FillRight(def, wdef+2))
		usage := f.Usage
		for i := 0; len(usage) > 0; i++ {
			if i > 0 {
				fmt.Fprint(w, lpad)
			}
			l := len(usage)
			skip := 0
			if l > wdesc {
				l = wdesc
				if s := strings.LastIndexAny(usage[:l], " \n"); s > 0 {
					l, skip = s, 1
				}
			}
			fmt.Fprintf(w, "%s\n", usage[:l])
			usage = usage[l+skip:]
		}
	}
}
