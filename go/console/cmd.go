// Package console implements the line-oriented control console used by the
// repl subcommand and the network debugger.
package console

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/lunixbochs/argjoy"
	"github.com/pkg/errors"
)

// Command.Run is a func taking *Context followed by its arguments, or a
// []interface{} of such funcs to overload by argument count.
type Command struct {
	Name string
	Desc string
	Run  interface{}
}

var Commands = make(map[string]*Command)

func checkFunc(fn interface{}) reflect.Type {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func {
		panic(fmt.Sprintf("Command.Run must be a func: got (%T) %#v\n", fn, fn))
	}
	t := v.Type()
	if t.NumIn() == 0 || t.In(0) != reflect.TypeOf(&Context{}) {
		panic(fmt.Sprintf("Command.Run must take *Context first: got %T", fn))
	}
	return t
}

func cmd(c *Command) *Command {
	if overloads, ok := c.Run.([]interface{}); ok {
		for _, fn := range overloads {
			checkFunc(fn)
		}
	} else {
		checkFunc(c.Run)
	}
	Commands[c.Name] = c
	return c
}

// pick returns the overload of c that accepts nargs arguments.
func (c *Command) pick(nargs int) (interface{}, error) {
	overloads, ok := c.Run.([]interface{})
	if !ok {
		overloads = []interface{}{c.Run}
	}
	var usage []string
	for _, fn := range overloads {
		t := reflect.TypeOf(fn)
		if t.NumIn()-1 == nargs || t.IsVariadic() && nargs >= t.NumIn()-2 {
			return fn, nil
		}
		usage = append(usage, c.usage(t))
	}
	return nil, errors.Errorf("usage: %s", strings.Join(usage, " | "))
}

func (c *Command) usage(t reflect.Type) string {
	parts := []string{c.Name}
	for i := 1; i < t.NumIn(); i++ {
		if t.IsVariadic() && i == t.NumIn()-1 {
			parts = append(parts, "["+t.In(i).Elem().Kind().String()+"...]")
		} else {
			parts = append(parts, "<"+t.In(i).Kind().String()+">")
		}
	}
	return strings.Join(parts, " ")
}

// argCodec converts command line words to numeric parameters.
// Numbers accept the usual 0x and 0b prefixes.
func argCodec(arg interface{}, vals []interface{}) error {
	s, ok := vals[0].(string)
	if !ok {
		return argjoy.NoMatch
	}
	switch v := arg.(type) {
	case *string:
		*v = s
	case *uint64:
		n, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return errors.Errorf("invalid number: %q", s)
		}
		*v = n
	case *int:
		n, err := strconv.ParseInt(s, 0, 0)
		if err != nil {
			return errors.Errorf("invalid number: %q", s)
		}
		*v = int(n)
	case *float64:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return errors.Errorf("invalid number: %q", s)
		}
		*v = n
	default:
		return argjoy.NoMatch
	}
	return nil
}

var aj = argjoy.NewArgjoy()

func init() {
	aj.Register(argCodec)
}

func call(c *Context, fn interface{}, args []string) error {
	if variadic, ok := fn.(func(*Context, ...string) error); ok {
		return variadic(c, args...)
	}
	vals := make([]interface{}, 0, len(args)+1)
	vals = append(vals, c)
	for _, a := range args {
		vals = append(vals, a)
	}
	out, err := aj.Call(fn, vals...)
	if err != nil {
		return err
	}
	if len(out) > 0 {
		if err, ok := out[0].(error); ok {
			return err
		}
	}
	return nil
}

// Run executes one console line. Command errors are printed to c;
// the returned error is only set when the console should exit.
func Run(c *Context, line string) error {
	args := strings.Fields(line)
	if len(args) == 0 || strings.HasPrefix(args[0], "#") {
		return nil
	}
	name, args := args[0], args[1:]
	cmd, ok := Commands[name]
	if !ok {
		c.Printf("command not found: %s\n", name)
		return nil
	}
	fn, err := cmd.pick(len(args))
	if err == nil {
		err = call(c, fn, args)
	}
	if err == ErrQuit {
		return err
	} else if err != nil {
		c.Printf("error: %v\n", err)
	}
	return nil
}

// Names lists registered commands in order.
func Names() []string {
	names := make([]string, 0, len(Commands))
	for name := range Commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
