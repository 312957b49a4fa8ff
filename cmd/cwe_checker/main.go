package main

import (
	"context"
	"fmt"
	"os"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/ysyxyx/cwe-checker/checker"
	"github.com/ysyxyx/cwe-checker/format"
)

func main() {
	verifyCmd := &cli.Command{
		Name:   "verify",
		Action: verifyAct,
		Args:   cli.Args{},
	}

	dumpCmd := &cli.Command{
		Name:   "dump",
		Action: dumpAct,
		Args:   cli.Args{},
	}

	app := &cli.Command{
		Name:        "cwe_checker",
		Description: "cwe_checker is a tool for finding vulnerable patterns in binary executables",
		Commands: []*cli.Command{
			verifyCmd,
			dumpCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func verifyAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		_, rep, err := checker.CheckFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "check %v", a)
		}

		b, err := format.Format(ctx, nil, rep)
		if err != nil {
			return errors.Wrap(err, "format report")
		}

		fmt.Printf("%s", b)

		if err = rep.Err(); err != nil {
			return errors.Wrap(err, "%v", a)
		}
	}

	return nil
}

func dumpAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		p, _, err := checker.CheckFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "check %v", a)
		}

		b, err := format.Format(ctx, nil, p)
		if err != nil {
			return errors.Wrap(err, "format %v", a)
		}

		fmt.Printf("%s", b)
	}

	return nil
}
