// Package main implements the tagcache operational CLI.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/unkn0wn-root/tagcache"
	"github.com/unkn0wn-root/tagcache/config"
)

const (
	exitOK    = 0
	exitErr   = 1
	exitUsage = 2
	exitMiss  = 3
)

const usage = `usage: tagcache [-config file] [-addr host:port] <command> [args]

commands:
  get <key>                                   print the value (exit 3 on miss)
  set [-tag t]... [-priority n] [-ttl d] [-sliding] <key> <value>
  remove <key>
  clean [-all] [-tag t]... [-priority n]`

func main() {
	code := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tagcache", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "", "YAML config file")
	addr := fs.String("addr", "", "redis address, overrides the config")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			_, _ = fmt.Fprintln(stdout, usage)
			return exitOK
		}
		_, _ = fmt.Fprintf(stderr, "%v\n%s\n", err, usage)
		return exitUsage
	}
	rest := fs.Args()
	if len(rest) == 0 {
		_, _ = fmt.Fprintln(stderr, usage)
		return exitUsage
	}

	cfg := config.Defaults()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			_, _ = fmt.Fprintln(stderr, err)
			return exitErr
		}
	}
	if *addr != "" {
		cfg.Redis.Addr = *addr
	}

	logger, err := cfg.Logger()
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return exitErr
	}
	defer func() { _ = logger.Sync() }()

	store, err := cfg.Open(logger)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return exitErr
	}
	defer func() { _ = store.Close(ctx) }()

	cmd := command{cfg: cfg, store: store, log: logger, stdout: stdout, stderr: stderr}
	switch rest[0] {
	case "get":
		return cmd.get(ctx, rest[1:])
	case "set":
		return cmd.set(ctx, rest[1:])
	case "remove":
		return cmd.remove(ctx, rest[1:])
	case "clean":
		return cmd.clean(ctx, rest[1:])
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n%s\n", rest[0], usage)
		return exitUsage
	}
}

type command struct {
	cfg    *config.Config
	store  tagcache.Storage[[]byte]
	log    *zap.Logger
	stdout io.Writer
	stderr io.Writer
}

func (c command) fail(err error) int {
	_, _ = fmt.Fprintln(c.stderr, err)
	return exitErr
}

func (c command) usageErr(msg string) int {
	_, _ = fmt.Fprintf(c.stderr, "%s\n%s\n", msg, usage)
	return exitUsage
}

func (c command) get(ctx context.Context, args []string) int {
	if len(args) != 1 {
		return c.usageErr("get needs exactly one key")
	}
	v, ok, err := c.store.Read(ctx, args[0])
	if err != nil {
		return c.fail(err)
	}
	if !ok {
		_, _ = fmt.Fprintf(c.stderr, "%s: not found\n", args[0])
		return exitMiss
	}
	out, err := c.cfg.Render(v)
	if err != nil {
		return c.fail(err)
	}
	_, _ = fmt.Fprintln(c.stdout, string(out))
	return exitOK
}

func (c command) set(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("set", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		tags stringsFlag
		deps tagcache.Dependencies
	)
	fs.Var(&tags, "tag", "tag (repeatable)")
	fs.Func("priority", "priority", priorityFlag(&deps.Priority))
	fs.DurationVar(&deps.Expire, "ttl", 0, "expiration")
	fs.BoolVar(&deps.Sliding, "sliding", false, "renew -ttl on every read")
	if err := fs.Parse(args); err != nil {
		return c.usageErr(err.Error())
	}
	if fs.NArg() != 2 {
		return c.usageErr("set needs a key and a value")
	}
	deps.Tags = tags

	key, value := fs.Arg(0), fs.Arg(1)
	if err := c.store.Write(ctx, key, []byte(value), deps); err != nil {
		return c.fail(err)
	}
	c.log.Debug("entry written", zap.String("key", key), zap.Strings("tags", tags))
	return exitOK
}

func (c command) remove(ctx context.Context, args []string) int {
	if len(args) != 1 {
		return c.usageErr("remove needs exactly one key")
	}
	if err := c.store.Remove(ctx, args[0]); err != nil {
		return c.fail(err)
	}
	return exitOK
}

func (c command) clean(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("clean", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		tags stringsFlag
		cond tagcache.Conditions
	)
	fs.BoolVar(&cond.All, "all", false, "flush the whole store")
	fs.Var(&tags, "tag", "tag (repeatable)")
	fs.Func("priority", "clean every entry with priority <= n", priorityFlag(&cond.Priority))
	if err := fs.Parse(args); err != nil {
		return c.usageErr(err.Error())
	}
	cond.Tags = tags
	if !cond.All && len(cond.Tags) == 0 && cond.Priority == nil {
		return c.usageErr("clean needs -all, -tag or -priority")
	}
	if err := c.store.Clean(ctx, cond); err != nil {
		return c.fail(err)
	}
	c.log.Info("cleaned", zap.Bool("all", cond.All), zap.Strings("tags", cond.Tags))
	return exitOK
}

type stringsFlag []string

func (s *stringsFlag) String() string     { return strings.Join(*s, ",") }
func (s *stringsFlag) Set(v string) error { *s = append(*s, v); return nil }

func priorityFlag(dst **int64) func(string) error {
	return func(v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid priority %q", v)
		}
		*dst = &n
		return nil
	}
}
