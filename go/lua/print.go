package lua

import (
	"fmt"
	"math"
	"strings"

	"github.com/lunixbochs/luaish"
)

func prettyOne(v lua.LValue, implicit bool, seen map[lua.LValue]bool) string {
	switch s := v.(type) {
	case *lua.LTable:
		if seen[v] {
			return "{<recursion>}"
		}
		seen[v] = true
		defer delete(seen, v)

		var items []string
		idx := 1
		s.ForEach(func(k, v lua.LValue) {
			val := prettyOne(v, true, seen)
			if n, ok := k.(lua.LInt); ok && int(n) == idx {
				idx++
				items = append(items, val)
			} else {
				items = append(items, prettyOne(k, false, seen)+" = "+val)
			}
		})
		return "{" + strings.Join(items, ", ") + "}"
	case lua.LFloat:
		f := float64(s)
		if f == math.Trunc(f) && math.Abs(f) < 1e15 {
			return fmt.Sprintf("%.0f", f)
		}
		return fmt.Sprintf("%g", f)
	case lua.LInt:
		n := uint64(s)
		if n < 10 {
			return fmt.Sprintf("%d", n)
		}
		return fmt.Sprintf("%#x(%d)", n, n)
	case lua.LString:
		if implicit {
			return fmt.Sprintf("%q", string(s))
		}
		return string(s)
	}
	return v.String()
}

func pretty(lv []lua.LValue, implicit bool) []string {
	out := make([]string, len(lv))
	seen := make(map[lua.LValue]bool)
	for i, v := range lv {
		out[i] = prettyOne(v, implicit, seen)
	}
	return out
}

func joinPretty(lv []lua.LValue) string {
	return strings.Join(pretty(lv, false), "\t")
}
