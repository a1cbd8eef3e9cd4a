package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx := context.Background()

	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	cmd, rest := args[0], args[1:]

	var err error
	switch cmd {
	case "new":
		err = runWithEnv(ctx, rest, cmdNew)
	case "edit":
		err = runWithEnv(ctx, rest, cmdEdit)
	case "get":
		err = runWithEnv(ctx, rest, cmdGet)
	case "list":
		err = runWithEnv(ctx, rest, cmdList)
	case "search":
		err = runWithEnv(ctx, rest, cmdSearch)
	case "delete":
		err = runWithEnv(ctx, rest, cmdDelete)
	case "invoke":
		err = runWithEnv(ctx, rest, cmdInvoke)
	case "run":
		err = runWithEnv(ctx, rest, cmdRun)
	case "push":
		err = runWithEnv(ctx, rest, cmdPush)
	case "config":
		err = runWithEnv(ctx, rest, cmdConfig)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatalf("%s failed: %v", cmd, err)
	}
}

type commandFunc func(ctx context.Context, env *runtimeEnv, args []string) error

func runWithEnv(ctx context.Context, args []string, fn commandFunc) error {
	env, err := prepareRuntimeEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()
	return fn(ctx, env, args)
}

func usage() {
	fmt.Fprint(os.Stderr, `scriptpad - edit remote data scripts in your own editor

Usage:
  scriptpad new                 create a script (form + editor session)
  scriptpad edit <id|name>      edit an existing script in an editor session
  scriptpad get <id>            print a script's body
  scriptpad list                list scripts and refresh the local cache
  scriptpad search <query>      full-text search over the cached scripts
  scriptpad delete <id>         delete a script
  scriptpad invoke <id>         execute a script on the server
  scriptpad run <file>          run a local Python script in a sandbox
  scriptpad push <dir>          create/update scripts from a directory tree
  scriptpad config              show or update configuration

Configuration lives in the user config dir (see 'scriptpad config');
SCRIPTPAD_URL, SCRIPTPAD_TOKEN, SCRIPTPAD_ORG, and SCRIPTPAD_EDITOR
override it, and a .env file in the working directory is honored.
`)
}
