package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/toolforge-dev/toolforge/internal/config"
	"github.com/toolforge-dev/toolforge/internal/demo"
	"github.com/toolforge-dev/toolforge/internal/mcptools"
	"github.com/toolforge-dev/toolforge/internal/orchestrator"
	"github.com/toolforge-dev/toolforge/internal/session"
	"github.com/toolforge-dev/toolforge/internal/synth"
	"github.com/toolforge-dev/toolforge/internal/toolmodule"
)

// CLI flags parsed from command line.
type cliFlags struct {
	ProjectRoot  string
	ModuleDir    string
	Language     string
	SynthTimeout time.Duration
	MCPAddr      string
	DemoAddr     string
	ServeMCP     bool
	ServeDemo    bool
	Catalog      bool
	Verbose      bool
	Version      bool
}

// version is set by goreleaser at build time.
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var flags cliFlags

	fs := flag.NewFlagSet("toolforge", flag.ContinueOnError)
	fs.StringVar(&flags.ProjectRoot, "project-root", ".", "directory holding toolforge.yml and the generated module")
	fs.StringVar(&flags.ModuleDir, "module-dir", "", "directory for the generated tool module (default: <project-root>/tools)")
	fs.StringVar(&flags.Language, "language", "", "target language for generated tools: go, python, typescript, rust (default: python)")
	fs.DurationVar(&flags.SynthTimeout, "synth-timeout", 0, "time limit for a single synthesis run (default: 60s)")
	fs.StringVar(&flags.MCPAddr, "mcp-addr", "", "listen address for the MCP HTTP server (default: :8037)")
	fs.StringVar(&flags.DemoAddr, "demo-addr", "", "listen address for the demo payments API (default: :8038)")
	fs.BoolVar(&flags.ServeMCP, "serve-mcp", false, "serve the MCP tools over HTTP instead of stdio")
	fs.BoolVar(&flags.ServeDemo, "serve-demo", false, "also serve the demo payments API")
	fs.BoolVar(&flags.Catalog, "catalog", false, "persist the tool catalog to a KuzuDB under the project root")
	fs.BoolVar(&flags.Verbose, "verbose", false, "log state transitions to stderr")
	fs.BoolVar(&flags.Version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if flags.Version {
		fmt.Println(version)
		return nil
	}

	cfg, synthTimeout, err := loadConfig(flags)
	if err != nil {
		return err
	}

	lang, err := synth.ParseLanguage(cfg.Language)
	if err != nil {
		return err
	}

	store, err := toolmodule.NewFileStore(cfg.ModuleDir, moduleFile(cfg, lang))
	if err != nil {
		return err
	}
	defer store.Close()

	var reporter *orchestrator.Reporter
	if cfg.Verbose {
		reporter = orchestrator.NewReporter()
		go func() {
			for ev := range reporter.Subscribe() {
				fmt.Fprintln(os.Stderr, orchestrator.FormatEvent(ev))
			}
		}()
		defer reporter.Close()
	}

	orc := orchestrator.New(
		orchestrator.Config{Language: lang, SynthTimeout: synthTimeout},
		session.New(),
		synth.NewOpenAPISynthesizer(lang),
		store,
		reporter,
	)

	svc := mcptools.NewOrchestratorService(orc, store)
	if cfg.CatalogDir != "" {
		svc.SetCatalogDir(cfg.CatalogDir)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	if flags.ServeDemo {
		demoServer := demo.NewServer()
		if err := demoServer.Start(ctx, cfg.DemoAddr); err != nil {
			return fmt.Errorf("start demo server: %w", err)
		}
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return demoServer.Stop(shutdownCtx)
		})
		if cfg.Verbose {
			fmt.Fprintf(os.Stderr, "demo payments api listening on %s\n", cfg.DemoAddr)
		}
	}

	if flags.ServeMCP {
		g.Go(func() error {
			return mcptools.RunMCPServer(ctx, svc, cfg.MCPAddr)
		})
		if cfg.Verbose {
			fmt.Fprintf(os.Stderr, "mcp server listening on %s\n", cfg.MCPAddr)
		}
	} else {
		g.Go(func() error {
			return mcptools.RunMCPServerStdio(ctx, svc)
		})
	}

	return g.Wait()
}

// loadConfig merges toolforge.yml with command line flags; flags win.
func loadConfig(flags cliFlags) (*config.ProjectConfig, time.Duration, error) {
	cfg, err := config.Load(flags.ProjectRoot)
	if err != nil {
		return nil, 0, fmt.Errorf("load project config: %w", err)
	}

	if flags.ModuleDir != "" {
		cfg.ModuleDir = flags.ModuleDir
	}
	if flags.Language != "" {
		cfg.Language = flags.Language
	}
	if flags.MCPAddr != "" {
		cfg.MCPAddr = flags.MCPAddr
	}
	if flags.DemoAddr != "" {
		cfg.DemoAddr = flags.DemoAddr
	}
	if flags.Verbose {
		cfg.Verbose = true
	}
	if flags.Catalog && cfg.CatalogDir == "" {
		cfg.CatalogDir = fmt.Sprintf("%s/.toolforge", flags.ProjectRoot)
	}

	// Defaults for everything still unset.
	if cfg.ModuleDir == "" {
		cfg.ModuleDir = flags.ProjectRoot + "/tools"
	}
	if cfg.Language == "" {
		cfg.Language = "python"
	}
	if cfg.MCPAddr == "" {
		cfg.MCPAddr = ":8037"
	}
	if cfg.DemoAddr == "" {
		cfg.DemoAddr = ":8038"
	}

	synthTimeout, err := cfg.SynthTimeoutDuration()
	if err != nil {
		return nil, 0, err
	}
	if flags.SynthTimeout > 0 {
		synthTimeout = flags.SynthTimeout
	}
	if synthTimeout == 0 {
		synthTimeout = 60 * time.Second
	}

	return cfg, synthTimeout, nil
}

// moduleFile picks the module file name, preferring an explicit setting over
// the language default.
func moduleFile(cfg *config.ProjectConfig, lang synth.Language) string {
	if cfg.ModuleFile != "" {
		return cfg.ModuleFile
	}
	return lang.FileName()
}
