// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/apex/log"

	"github.com/staranto/vcardctl/internal/command"
	"github.com/staranto/vcardctl/internal/config"
	mylog "github.com/staranto/vcardctl/internal/log"
	"github.com/staranto/vcardctl/internal/snapshot"
	"github.com/staranto/vcardctl/internal/version"
)

var ctx = context.Background()

func main() {
	os.Exit(realMain())
}

func realMain() int {
	mylog.InitLogger()

	env, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	mylog.SetLevel(env.Log)
	for _, w := range env.Warnings() {
		log.Warn(w)
	}

	args := os.Args

	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "No command specified.")
		args = append(args, "--help")
	} else {
		args = expandArgSets(args)
	}

	// Short-circuit --version/-v.
	for _, a := range args {
		if a == "--version" || a == "-v" {
			fmt.Println(version.Version)
			return 0
		}
	}

	// Best-effort: drop old snapshots.
	keep, _ := config.GetDuration("snapshots.keep", 30*24*time.Hour)
	if err := snapshot.Purge(keep); err != nil {
		log.WithError(err).Warn("snapshots")
	}

	app, err := command.InitApp(ctx, args, env)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := app.Run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	return 0
}

// expandArgSets splices argument sets from the config file into args. An
// "@name" argument is replaced by <command>.sets.<name>. Without one,
// <command>.sets.defaults goes right after the command so explicit flags
// still win.
func expandArgSets(args []string) []string {
	if strings.HasPrefix(args[1], "-") {
		return args
	}

	for _, a := range args {
		if a == "--help" || a == "-h" {
			return args
		}
	}

	out := make([]string, 2, len(args)+4)
	copy(out, args[:2])

	idx := 2
	set := "defaults"
	rest := args[2:]
	for i, a := range rest {
		if strings.HasPrefix(a, "@") && len(a) > 1 {
			set = a[1:]
			out = append(out, rest[:i]...)
			idx = len(out)
			rest = rest[i+1:]
			break
		}
	}

	setArgs, _ := config.GetStringSlice(args[1] + ".sets." + set)
	for _, arg := range setArgs {
		out = append(out, strings.Fields(arg)...)
	}
	out = append(out, rest...)

	log.Debugf("idx=%d, set=%s, args=%v", idx, set, out)
	return out
}
