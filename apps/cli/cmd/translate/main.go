// Command translate sends one text through the configured translation
// provider, or probes it.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"voxbridge/packages/go/backend/config"
	"voxbridge/packages/go/backend/session"
	"voxbridge/packages/go/backend/translation"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("translate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath = fs.String("config", "", "path to a YAML config file")
		provider   = fs.String("provider", "", "translation provider ("+strings.Join(translation.ProviderNames(), ", ")+")")
		endpoint   = fs.String("endpoint", "", "provider endpoint override")
		text       = fs.String("text", "", "text to translate")
		from       = fs.String("from", "", "source language code (default from config)")
		to         = fs.String("to", "", "target language code (default from config)")
		probe      = fs.Bool("probe", false, "check the provider instead of translating")
		asJSON     = fs.Bool("json", false, "print the result as JSON")
	)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	var opts []config.Option
	if *configPath != "" {
		opts = append(opts, config.WithConfigFile(*configPath))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		fmt.Fprintf(stderr, "translate: %v\n", err)
		return 1
	}
	if *provider != "" {
		cfg.Translation.Provider = *provider
	}
	if *endpoint != "" {
		cfg.Translation.Endpoint = *endpoint
	}

	logger, err := cfg.Log.NewLogger()
	if err != nil {
		fmt.Fprintf(stderr, "translate: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	translator, err := translation.New(cfg.Translation.Registry(), logger)
	if err != nil {
		fmt.Fprintf(stderr, "translate: %v\n", err)
		return 1
	}

	if *probe {
		health := translator.Probe(ctx)
		if *asJSON {
			_ = json.NewEncoder(stdout).Encode(health)
		} else {
			fmt.Fprintf(stdout, "%s: healthy=%t %s\n", translator.Name(), health.Healthy, health.Message)
		}
		if !health.Healthy {
			return 1
		}
		return 0
	}

	if strings.TrimSpace(*text) == "" {
		fmt.Fprintln(stderr, "translate: -text must not be empty")
		return 2
	}
	source, target := cfg.Languages.Source, cfg.Languages.Target
	if *from != "" {
		source = *from
	}
	if *to != "" {
		target = *to
	}
	pair, err := session.NewPair(source, target)
	if err != nil {
		fmt.Fprintf(stderr, "translate: %v\n", err)
		return 2
	}

	result, err := translator.Translate(ctx, *text, pair.A.Code, pair.B.Code)
	if err != nil {
		fmt.Fprintf(stderr, "translate: %s (%v)\n", translation.Classify(err), err)
		return 1
	}
	if *asJSON {
		if err := json.NewEncoder(stdout).Encode(result); err != nil {
			fmt.Fprintf(stderr, "translate: %v\n", err)
			return 1
		}
		return 0
	}
	fmt.Fprintln(stdout, result.TranslatedText)
	return 0
}
