package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/pterm/pterm"

	"github.com/wippyai/spirv-cross/abi"
	"github.com/wippyai/spirv-cross/cache"
	"github.com/wippyai/spirv-cross/config"
	"github.com/wippyai/spirv-cross/engine"
	"github.com/wippyai/spirv-cross/msl"
	"github.com/wippyai/spirv-cross/native"
	"github.com/wippyai/spirv-cross/profile"
	"github.com/wippyai/spirv-cross/refcore"
	"github.com/wippyai/spirv-cross/registry"
	"github.com/wippyai/spirv-cross/spirv"
	"github.com/wippyai/spirv-cross/translator"
	"github.com/wippyai/spirv-cross/transport"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Config file (yaml or toml)")
		target      = flag.String("target", "", "Target language: glsl, hlsl or msl")
		profileFile = flag.String("profile", "", "Compile profile (yaml or toml)")
		entry       = flag.String("entry", "", "Entry point to report the cleansed name of")
		output      = flag.String("o", "", "Output file (default: stdout)")
		reflect     = flag.Bool("reflect", false, "Print entry points and resources and exit")
		purge       = flag.Bool("purge", false, "Empty the compile cache and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if !*purge && flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: spvc [-config file] -target msl|glsl|hlsl [-profile file] [-o out] <shader.spv>")
		fmt.Fprintln(os.Stderr, "       spvc -reflect <shader.spv>")
		fmt.Fprintln(os.Stderr, "       spvc -i <shader.spv>  (interactive mode)")
		fmt.Fprintln(os.Stderr, "       spvc -purge")
		os.Exit(1)
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		pterm.DisableColor()
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fail(err)
	}
	log, err := cfg.NewLogger()
	if err != nil {
		fail(err)
	}
	defer func() { _ = log.Sync() }()
	setLoggers(log)

	if *purge {
		if err := purgeCache(cfg); err != nil {
			fail(err)
		}
		return
	}

	input := flag.Arg(0)
	if *interactive {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			fail(fmt.Errorf("interactive mode needs a terminal"))
		}
		if err := runInteractive(cfg, input); err != nil {
			fail(err)
		}
		return
	}

	if err := run(cfg, input, *target, *profileFile, *entry, *output, *reflect); err != nil {
		fail(err)
	}
}

func fail(err error) {
	pterm.Error.Println(err)
	os.Exit(1)
}

func setLoggers(l *zap.Logger) {
	for _, set := range []func(*zap.Logger){
		abi.SetLogger, cache.SetLogger, engine.SetLogger, msl.SetLogger, native.SetLogger,
		refcore.SetLogger, registry.SetLogger, spirv.SetLogger, translator.SetLogger, transport.SetLogger,
	} {
		set(l)
	}
}

func readModule(path string) (spirv.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return spirv.Module{}, fmt.Errorf("read file: %w", err)
	}
	return spirv.ModuleFromBytes(data)
}

// loadProfile reads the profile file if given. A -target flag overrides
// the profile's target.
func loadProfile(path, target string) (profile.Profile, error) {
	if path == "" {
		if target == "" {
			return profile.Profile{}, fmt.Errorf("need -target or -profile")
		}
		t, err := spirv.ParseTarget(target)
		if err != nil {
			return profile.Profile{}, err
		}
		return profile.Default(t), nil
	}
	p, err := profile.Load(path)
	if err != nil {
		return profile.Profile{}, err
	}
	if target != "" {
		if _, err := spirv.ParseTarget(target); err != nil {
			return profile.Profile{}, err
		}
		p.Target = target
	}
	return p, nil
}

func run(cfg *config.Config, input, target, profilePath, entry, output string, reflectOnly bool) error {
	ctx := context.Background()

	m, err := readModule(input)
	if err != nil {
		return err
	}

	tr, err := translator.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("start %s backend: %w", cfg.Backend, err)
	}
	defer tr.Close()

	if reflectOnly {
		r, err := tr.Reflect(m)
		if err != nil {
			return fmt.Errorf("reflect: %w", err)
		}
		return printReflection(input, r)
	}

	p, err := loadProfile(profilePath, target)
	if err != nil {
		return err
	}
	if entry != "" {
		p.EntryPoint = entry
	}

	res, err := tr.Translate(ctx, m, p)
	if err != nil {
		return fmt.Errorf("translate: %w", err)
	}
	if res.Cached {
		pterm.Debug.Println("served from cache")
	}

	if output == "" {
		fmt.Print(res.Source)
		// stdout carries the source, so the entry point note goes to stderr.
		if res.EntryPoint != "" {
			fmt.Fprintf(os.Stderr, "entry point %s is %s in %s\n", p.EntryPoint, res.EntryPoint, res.Target)
		}
		return nil
	}
	if res.EntryPoint != "" {
		pterm.Info.Println(fmt.Sprintf("entry point %s is %s in %s", p.EntryPoint, res.EntryPoint, res.Target))
	}
	if err := os.WriteFile(output, []byte(res.Source), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	pterm.Success.Println(fmt.Sprintf("wrote %s (%d bytes)", output, len(res.Source)))
	return nil
}

func purgeCache(cfg *config.Config) error {
	path := cfg.Cache.Path
	if path == "" {
		path = config.DefaultCachePath()
	}
	s, err := cache.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	st, err := s.Stats(ctx)
	if err != nil {
		return err
	}
	n, err := s.Purge(ctx, "")
	if err != nil {
		return err
	}
	pterm.Success.Println(fmt.Sprintf("purged %d entries (%d bytes compressed, %d hits) from %s", n, st.CompressedBytes, st.Hits, s.Path()))
	return nil
}
