package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/tklein/scriptpad/internal/bulk"
	"github.com/tklein/scriptpad/internal/cache"
	"github.com/tklein/scriptpad/internal/control"
	"github.com/tklein/scriptpad/internal/remote"
	"github.com/tklein/scriptpad/internal/runner"
	"github.com/tklein/scriptpad/internal/script"
)

func cmdNew(ctx context.Context, env *runtimeEnv, args []string) error {
	fs := flag.NewFlagSet("new", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctrl, err := env.Controller(ctx)
	if err != nil {
		return err
	}

	form := &control.TerminalForm{In: os.Stdin, Out: os.Stdout}
	return ctrl.NewScript(ctx, form)
}

func cmdEdit(ctx context.Context, env *runtimeEnv, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: scriptpad edit <id|name>")
	}

	client, err := env.ScriptClient()
	if err != nil {
		return err
	}
	s, err := resolveScript(ctx, env, client, fs.Arg(0))
	if err != nil {
		return err
	}

	ctrl, err := env.Controller(ctx)
	if err != nil {
		return err
	}
	return ctrl.EditScript(ctx, *s)
}

// resolveScript treats ref as an id first and falls back to a cached name
// lookup, so 'scriptpad edit myScript' works after a 'scriptpad list'.
func resolveScript(ctx context.Context, env *runtimeEnv, client *remote.Client, ref string) (*script.Script, error) {
	s, err := client.GetScript(ctx, ref)
	if err == nil {
		return s, nil
	}

	var apiErr *remote.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		return nil, err
	}

	matches, cacheErr := env.Cache.DB.FindByName(ctx, ref)
	if cacheErr != nil {
		return nil, cacheErr
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no script with id or name %q (run 'scriptpad list' to refresh the cache)", ref)
	case 1:
		return client.GetScript(ctx, matches[0].ID)
	default:
		return nil, fmt.Errorf("script name %q is ambiguous (%d matches); use the id", ref, len(matches))
	}
}

func cmdGet(ctx context.Context, env *runtimeEnv, args []string) error {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: scriptpad get <id>")
	}

	client, err := env.ScriptClient()
	if err != nil {
		return err
	}
	s, err := client.GetScript(ctx, fs.Arg(0))
	if err != nil {
		return err
	}

	fmt.Println(s.Script)
	return nil
}

func cmdList(ctx context.Context, env *runtimeEnv, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	limit := fs.Int("limit", 0, "Maximum number of scripts to fetch (0 = server default)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := env.ScriptClient()
	if err != nil {
		return err
	}
	scripts, err := client.ListScripts(ctx, *limit)
	if err != nil {
		return err
	}

	if err := env.Cache.Sync(ctx, scripts); err != nil {
		return fmt.Errorf("failed to update local cache: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tLANGUAGE\tDESCRIPTION")
	for _, s := range scripts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, s.Name, s.Language, s.Description)
	}
	return w.Flush()
}

func cmdSearch(ctx context.Context, env *runtimeEnv, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	k := fs.Int("k", 10, "Maximum number of results")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: scriptpad search <query>")
	}

	hits, err := env.Cache.Search.Search(fs.Arg(0), *k)
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		fmt.Println("no matches (the cache is filled by 'scriptpad list')")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tLANGUAGE\tSCORE")
	for _, h := range hits {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.3f\n", h.ID, h.Name, h.Language, h.Score)
	}
	return w.Flush()
}

func cmdDelete(ctx context.Context, env *runtimeEnv, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: scriptpad delete <id>")
	}
	id := fs.Arg(0)

	client, err := env.ScriptClient()
	if err != nil {
		return err
	}
	if err := client.DeleteScript(ctx, id); err != nil {
		return err
	}

	if err := env.Cache.DB.Delete(ctx, id); err != nil && !errors.Is(err, cache.ErrNotFound) {
		return err
	}
	if err := env.Cache.Search.Delete(id); err != nil {
		return err
	}

	fmt.Printf("deleted %s\n", id)
	return nil
}

func cmdInvoke(ctx context.Context, env *runtimeEnv, args []string) error {
	fs := flag.NewFlagSet("invoke", flag.ExitOnError)
	paramsJSON := fs.String("params", "", "Script parameters as a JSON object")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: scriptpad invoke [-params '{...}'] <id>")
	}

	var params map[string]any
	if *paramsJSON != "" {
		if err := json.Unmarshal([]byte(*paramsJSON), &params); err != nil {
			return fmt.Errorf("invalid -params: %w", err)
		}
	}

	client, err := env.ScriptClient()
	if err != nil {
		return err
	}
	out, err := client.InvokeScript(ctx, fs.Arg(0), params)
	if err != nil {
		return err
	}

	fmt.Print(out)
	return nil
}

func cmdRun(ctx context.Context, env *runtimeEnv, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: scriptpad run <file>")
	}
	path := fs.Arg(0)

	var lang script.Language
	switch filepath.Ext(path) {
	case ".py":
		lang = script.LangPython
	case ".flux":
		lang = script.LangFlux
	default:
		return fmt.Errorf("unsupported file extension %q (expected .py or .flux)", filepath.Ext(path))
	}

	cfg := runner.DefaultConfig()
	cfg.Mode = runner.ParseMode(env.Config.SandboxMode)
	cfg.DockerImage = env.Config.DockerImage

	res, err := runner.NewRunner(ctx, cfg).RunScript(ctx, path, lang, 0)
	if res.Stdout != "" {
		fmt.Println(res.Stdout)
	}
	if res.Stderr != "" {
		fmt.Fprintln(os.Stderr, res.Stderr)
	}
	if err != nil {
		return err
	}
	if res.Code != 0 {
		return fmt.Errorf("script exited with code %d", res.Code)
	}
	return nil
}

func cmdPush(ctx context.Context, env *runtimeEnv, args []string) error {
	fs := flag.NewFlagSet("push", flag.ExitOnError)
	org := fs.String("org", "", "Organization name (default: configured org)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: scriptpad push <dir>")
	}

	orgName := *org
	if orgName == "" {
		orgName = env.Config.Org
	}
	if orgName == "" {
		return fmt.Errorf("no organization configured (set SCRIPTPAD_ORG or pass -org)")
	}

	pending, err := bulk.Walk(fs.Arg(0))
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Println("nothing to push")
		return nil
	}

	client, err := env.ScriptClient()
	if err != nil {
		return err
	}
	res, err := bulk.Push(ctx, client, orgName, pending)
	if err != nil {
		return err
	}

	fmt.Printf("pushed %d scripts (%d created, %d updated)\n",
		len(res.Created)+len(res.Updated), len(res.Created), len(res.Updated))
	return nil
}

func cmdConfig(ctx context.Context, env *runtimeEnv, args []string) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	url := fs.String("url", "", "Script service base URL")
	token := fs.String("token", "", "API token")
	org := fs.String("org", "", "Organization name")
	editor := fs.String("editor", "", "Editor command")
	sandbox := fs.String("sandbox", "", "Sandbox mode for 'run' (docker, host, auto)")
	image := fs.String("image", "", "Docker image override for 'run'")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *url != "" || *token != "" || *org != "" || *editor != "" || *sandbox != "" || *image != "" {
		// Persist onto the file config, not the env-overlaid view.
		cfg, err := env.Manager.Load()
		if err != nil {
			return err
		}
		if *url != "" {
			cfg.URL = *url
		}
		if *token != "" {
			cfg.Token = *token
		}
		if *org != "" {
			cfg.Org = *org
		}
		if *editor != "" {
			cfg.Editor = *editor
		}
		if *sandbox != "" {
			cfg.SandboxMode = *sandbox
		}
		if *image != "" {
			cfg.DockerImage = *image
		}
		if err := env.Manager.Save(cfg); err != nil {
			return err
		}
		fmt.Printf("saved %s\n", env.Manager.GetConfigPath())
		return nil
	}

	fmt.Printf("config file: %s\n", env.Manager.GetConfigPath())
	fmt.Printf("url:     %s\n", env.Config.URL)
	fmt.Printf("token:   %s\n", redact(env.Config.Token))
	fmt.Printf("org:     %s\n", env.Config.Org)
	fmt.Printf("editor:  %s\n", env.Config.Editor)
	fmt.Printf("sandbox: %s\n", env.Config.SandboxMode)
	return nil
}

func redact(token string) string {
	if token == "" {
		return "(not set)"
	}
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
