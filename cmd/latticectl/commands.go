package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/c360/latticectl/config"
	"github.com/c360/latticectl/types"
)

type command struct {
	name    string
	usage   string
	summary string
	offline bool // runs without a NATS connection
	run     func(ctx context.Context, a *app, fs *pflag.FlagSet, args []string) error
}

var commands = []command{
	{name: "hosts", usage: "hosts", summary: "List the hosts that answer within the auction window", run: runHosts},
	{name: "inventory", usage: "inventory [HOST_ID]", summary: "Show one host's inventory, or every host's", run: runInventory},
	{name: "claims", usage: "claims", summary: "Show the lattice claims cache", run: runClaims},
	{name: "links", usage: "links", summary: "List links", run: runLinks},
	{name: "link-put", usage: "link-put --source ID --target ID [flags]", summary: "Create or replace a link", run: runLinkPut},
	{name: "link-del", usage: "link-del --source ID --namespace NS --package PKG [--name NAME]", summary: "Delete a link", run: runLinkDel},
	{name: "config-get", usage: "config-get NAME", summary: "Show a named configuration", run: runConfigGet},
	{name: "config-put", usage: "config-put NAME KEY=VALUE...", summary: "Create or replace a named configuration", run: runConfigPut},
	{name: "config-del", usage: "config-del NAME", summary: "Delete a named configuration", run: runConfigDel},
	{name: "label-put", usage: "label-put HOST_ID KEY VALUE", summary: "Set a host label", run: runLabelPut},
	{name: "label-del", usage: "label-del HOST_ID KEY", summary: "Remove a host label", run: runLabelDel},
	{name: "scale", usage: "scale --host ID --ref REF --id ID --max N [flags]", summary: "Scale a component on a host", run: runScale},
	{name: "update", usage: "update --host ID --id ID --ref REF [flags]", summary: "Update a running component to a new image", run: runUpdate},
	{name: "start-provider", usage: "start-provider --host ID --ref REF --id ID [flags]", summary: "Start a capability provider", run: runStartProvider},
	{name: "stop-provider", usage: "stop-provider --host ID --id ID", summary: "Stop a capability provider", run: runStopProvider},
	{name: "stop-host", usage: "stop-host HOST_ID [--grace DURATION]", summary: "Stop a host", run: runStopHost},
	{name: "auction-component", usage: "auction-component --ref REF --id ID [--constraint K=V...]", summary: "Ask hosts to bid for a component", run: runComponentAuction},
	{name: "auction-provider", usage: "auction-provider --ref REF --id ID [--constraint K=V...]", summary: "Ask hosts to bid for a provider", run: runProviderAuction},
	{name: "registries", usage: "registries (--file FILE | --registry HOST [flags])", summary: "Push registry credentials to every host", run: runRegistries},
	{name: "watch", usage: "watch [--category NAME...] [--relay ADDR] [--metrics ADDR]", summary: "Stream lattice events as JSON lines", run: runWatch},
	{name: "init-config", usage: "init-config FILE", summary: "Write the effective configuration to FILE (.json, .yaml or .toml)", offline: true, run: runInitConfig},
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func printUsage(w io.Writer, global *pflag.FlagSet) {
	fmt.Fprintf(w, "Usage: %s [global flags] COMMAND [flags] [args]\n\nCommands:\n", appName)
	for _, c := range commands {
		fmt.Fprintf(w, "  %-18s %s\n", c.name, c.summary)
	}
	fmt.Fprintf(w, "\nGlobal flags:\n")
	global.PrintDefaults()
	fmt.Fprintf(w, "\nRun '%s COMMAND --help' for command flags.\n", appName)
}

func runHosts(ctx context.Context, a *app, fs *pflag.FlagSet, args []string) error {
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}
	hosts, err := a.client.GetHosts(ctx)
	return replies(a, hosts, err)
}

func runInventory(ctx context.Context, a *app, fs *pflag.FlagSet, args []string) error {
	rest, err := parse(fs, args, -1)
	if err != nil {
		return err
	}
	switch len(rest) {
	case 0:
		inv, err := a.client.GetAllInventories(ctx)
		return replies(a, inv, err)
	case 1:
		inv, err := a.client.GetHostInventory(ctx, rest[0])
		return reply(a, inv, err)
	default:
		return usagef("expected at most one host id")
	}
}

func runClaims(ctx context.Context, a *app, fs *pflag.FlagSet, args []string) error {
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}
	claims, err := a.client.GetClaims(ctx)
	return reply(a, claims, err)
}

func runLinks(ctx context.Context, a *app, fs *pflag.FlagSet, args []string) error {
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}
	links, err := a.client.GetLinks(ctx)
	return reply(a, links, err)
}

func runLinkPut(ctx context.Context, a *app, fs *pflag.FlagSet, args []string) error {
	var link types.Link
	fs.StringVar(&link.SourceID, "source", "", "Source component id")
	fs.StringVar(&link.Target, "target", "", "Target component or provider id")
	fs.StringVar(&link.Name, "name", "default", "Link name")
	fs.StringVar(&link.WitNamespace, "namespace", "", "WIT namespace")
	fs.StringVar(&link.WitPackage, "package", "", "WIT package")
	fs.StringSliceVar(&link.Interfaces, "interface", nil, "WIT interface, repeatable")
	fs.StringSliceVar(&link.SourceConfig, "source-config", nil, "Named config for the source, repeatable")
	fs.StringSliceVar(&link.TargetConfig, "target-config", nil, "Named config for the target, repeatable")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}
	ack, err := a.client.PutLink(ctx, link)
	return reply(a, ack, err)
}

func runLinkDel(ctx context.Context, a *app, fs *pflag.FlagSet, args []string) error {
	source := fs.String("source", "", "Source component id")
	name := fs.String("name", "default", "Link name")
	namespace := fs.String("namespace", "", "WIT namespace")
	pkg := fs.String("package", "", "WIT package")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}
	ack, err := a.client.DeleteLink(ctx, *source, *name, *namespace, *pkg)
	return reply(a, ack, err)
}

func runConfigGet(ctx context.Context, a *app, fs *pflag.FlagSet, args []string) error {
	rest, err := parse(fs, args, 1)
	if err != nil {
		return err
	}
	cfg, err := a.client.GetConfig(ctx, rest[0])
	return reply(a, cfg, err)
}

func runConfigPut(ctx context.Context, a *app, fs *pflag.FlagSet, args []string) error {
	rest, err := parse(fs, args, -1)
	if err != nil {
		return err
	}
	if len(rest) < 1 {
		return usagef("missing config name")
	}
	values, err := parsePairs(rest[1:])
	if err != nil {
		return err
	}
	a.logger.Debug("Putting config", "name", rest[0], "keys", sortedKeys(values))
	ack, err := a.client.PutConfig(ctx, rest[0], values)
	return reply(a, ack, err)
}

func runConfigDel(ctx context.Context, a *app, fs *pflag.FlagSet, args []string) error {
	rest, err := parse(fs, args, 1)
	if err != nil {
		return err
	}
	ack, err := a.client.DeleteConfig(ctx, rest[0])
	return reply(a, ack, err)
}

func runLabelPut(ctx context.Context, a *app, fs *pflag.FlagSet, args []string) error {
	rest, err := parse(fs, args, 3)
	if err != nil {
		return err
	}
	ack, err := a.client.PutLabel(ctx, rest[0], rest[1], rest[2])
	return reply(a, ack, err)
}

func runLabelDel(ctx context.Context, a *app, fs *pflag.FlagSet, args []string) error {
	rest, err := parse(fs, args, 2)
	if err != nil {
		return err
	}
	ack, err := a.client.DeleteLabel(ctx, rest[0], rest[1])
	return reply(a, ack, err)
}

func runScale(ctx context.Context, a *app, fs *pflag.FlagSet, args []string) error {
	host := fs.String("host", "", "Target host id")
	ref := fs.String("ref", "", "Component image reference")
	id := fs.String("id", "", "Component id")
	maxInstances := fs.Uint32("max", 1, "Maximum concurrent instances, 0 stops the component")
	annotations := fs.StringToString("annotation", nil, "Annotation KEY=VALUE, repeatable")
	configs := fs.StringSlice("config", nil, "Named config, repeatable")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}
	ack, err := a.client.ScaleComponent(ctx, *host, *ref, *id, *maxInstances, *annotations, *configs)
	return reply(a, ack, err)
}

func runUpdate(ctx context.Context, a *app, fs *pflag.FlagSet, args []string) error {
	host := fs.String("host", "", "Target host id")
	id := fs.String("id", "", "Component id")
	ref := fs.String("ref", "", "New component image reference")
	annotations := fs.StringToString("annotation", nil, "Annotation KEY=VALUE, repeatable")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}
	ack, err := a.client.UpdateComponent(ctx, *host, *id, *ref, *annotations)
	return reply(a, ack, err)
}

func runStartProvider(ctx context.Context, a *app, fs *pflag.FlagSet, args []string) error {
	host := fs.String("host", "", "Target host id")
	ref := fs.String("ref", "", "Provider image reference")
	id := fs.String("id", "", "Provider id")
	annotations := fs.StringToString("annotation", nil, "Annotation KEY=VALUE, repeatable")
	configs := fs.StringSlice("config", nil, "Named config, repeatable")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}
	ack, err := a.client.StartProvider(ctx, *host, *ref, *id, *annotations, *configs)
	return reply(a, ack, err)
}

func runStopProvider(ctx context.Context, a *app, fs *pflag.FlagSet, args []string) error {
	host := fs.String("host", "", "Target host id")
	id := fs.String("id", "", "Provider id")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}
	ack, err := a.client.StopProvider(ctx, *host, *id)
	return reply(a, ack, err)
}

func runStopHost(ctx context.Context, a *app, fs *pflag.FlagSet, args []string) error {
	grace := fs.Duration("grace", 0, "Shutdown grace period, host default when unset")
	rest, err := parse(fs, args, 1)
	if err != nil {
		return err
	}
	var timeout *time.Duration
	if fs.Changed("grace") {
		timeout = grace
	}
	ack, err := a.client.StopHost(ctx, rest[0], timeout)
	return reply(a, ack, err)
}

func runComponentAuction(ctx context.Context, a *app, fs *pflag.FlagSet, args []string) error {
	ref := fs.String("ref", "", "Component image reference")
	id := fs.String("id", "", "Component id")
	constraints := fs.StringToString("constraint", nil, "Required host label KEY=VALUE, repeatable")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}
	acks, err := a.client.PerformComponentAuction(ctx, *ref, *id, *constraints)
	return replies(a, acks, err)
}

func runProviderAuction(ctx context.Context, a *app, fs *pflag.FlagSet, args []string) error {
	ref := fs.String("ref", "", "Provider image reference")
	id := fs.String("id", "", "Provider id")
	constraints := fs.StringToString("constraint", nil, "Required host label KEY=VALUE, repeatable")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}
	acks, err := a.client.PerformProviderAuction(ctx, *ref, *id, *constraints)
	return replies(a, acks, err)
}

func runRegistries(ctx context.Context, a *app, fs *pflag.FlagSet, args []string) error {
	file := fs.String("file", "", "JSON file mapping registry hosts to credentials, - for stdin")
	registry := fs.String("registry", "", "Registry host for a single credential")
	var cred types.RegistryCredential
	fs.StringVar(&cred.Username, "username", "", "Registry username")
	fs.StringVar(&cred.Password, "password", "", "Registry password")
	fs.StringVar(&cred.Token, "token", "", "Registry token")
	fs.StringVar(&cred.RegistryType, "type", "oci", "Registry type")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}

	creds := types.RegistryCredentialMap{}
	switch {
	case *file != "" && *registry != "":
		return usagef("--file and --registry are mutually exclusive")
	case *file != "":
		if err := readCredentials(*file, &creds); err != nil {
			return err
		}
	case *registry != "":
		creds[*registry] = cred
	default:
		return usagef("one of --file or --registry is required")
	}

	ack, err := a.client.PutRegistries(ctx, creds)
	return reply(a, ack, err)
}

func readCredentials(path string, into *types.RegistryCredentialMap) error {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		return fmt.Errorf("read registry credentials: %w", err)
	}
	return nil
}

func runInitConfig(_ context.Context, a *app, fs *pflag.FlagSet, args []string) error {
	rest, err := parse(fs, args, 1)
	if err != nil {
		return err
	}
	if err := config.WriteFile(rest[0], a.cfg); err != nil {
		return err
	}
	a.logger.Info("Wrote configuration", "path", rest[0])
	return nil
}

// parsePairs parses KEY=VALUE arguments. Values may contain '='.
func parsePairs(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, usagef("expected KEY=VALUE, got %q", p)
		}
		out[k] = v
	}
	return out, nil
}

// sortedKeys is used for stable log output.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
