package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cargosave/cargo-save/internal/logcache"
)

// queryCmd is the facade entry point for (G)'s read operations:
//
//	cargo-save query [--invocation ID | --last N] <head K|tail K|range A-B|grep PATTERN [--regex]|errors|warnings|all>
func queryCmd(ctx context.Context, env *bootstrap, args []string) error {
	sel := logcache.Selector{}
	i := 0
selectorFlags:
	for i < len(args) {
		switch args[i] {
		case "--invocation":
			if i+1 >= len(args) {
				return fmt.Errorf("--invocation requires a value")
			}
			sel.Invocation = args[i+1]
			i += 2
		case "--last":
			if i+1 >= len(args) {
				return fmt.Errorf("--last requires a value")
			}
			n, err := strconv.Atoi(args[i+1])
			if err != nil {
				return fmt.Errorf("--last: %w", err)
			}
			sel.LastN = n
			i += 2
		default:
			break selectorFlags
		}
	}
	if i >= len(args) {
		return fmt.Errorf("query: missing operation (head|tail|range|grep|errors|warnings|all)")
	}
	op, rest := args[i], args[i+1:]

	invocation, err := sel.Resolve(env.Cache)
	if err != nil {
		return fmt.Errorf("resolve invocation: %w", err)
	}
	path := env.Cache.LogPath(invocation)

	var lines []string
	switch op {
	case "head":
		k, err := queryIntArg(rest, 10)
		if err != nil {
			return err
		}
		lines, err = logcache.Head(path, k)
		if err != nil {
			return err
		}
	case "tail":
		k, err := queryIntArg(rest, 10)
		if err != nil {
			return err
		}
		lines, err = logcache.Tail(path, k)
		if err != nil {
			return err
		}
	case "range":
		a, b, err := queryRangeArg(rest)
		if err != nil {
			return err
		}
		lines, err = logcache.Range(path, a, b)
		if err != nil {
			return err
		}
	case "grep":
		if len(rest) == 0 {
			return fmt.Errorf("grep requires a pattern")
		}
		regex := false
		pattern := rest[0]
		for _, a := range rest[1:] {
			if a == "--regex" {
				regex = true
			}
		}
		lines, err = logcache.Grep(path, pattern, regex)
		if err != nil {
			return err
		}
	case "errors":
		lines, err = logcache.Errors(path)
		if err != nil {
			return err
		}
	case "warnings":
		lines, err = logcache.Warnings(path)
		if err != nil {
			return err
		}
	case "all":
		lines, err = logcache.All(path)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("query: unknown operation %q", op)
	}

	for _, l := range lines {
		fmt.Println(l)
	}
	return nil
}

func queryIntArg(args []string, def int) (int, error) {
	if len(args) == 0 {
		return def, nil
	}
	return strconv.Atoi(args[0])
}

func queryRangeArg(args []string) (int, int, error) {
	if len(args) == 0 {
		return 0, 0, fmt.Errorf("range requires A-B")
	}
	parts := strings.SplitN(args[0], "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("range requires A-B, got %q", args[0])
	}
	a, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, err
	}
	b, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}
