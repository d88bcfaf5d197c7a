package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"ribosome.dev/internal/build"
	"ribosome.dev/internal/compiler"
	"ribosome.dev/internal/config"
	"ribosome.dev/internal/persistence/indexdb"
	persistlog "ribosome.dev/internal/persistence/log"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run returns the exit code so deferred closes flush the index and report.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ribosome", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		void             bool
		ignoreNBT        bool
		ignoreBlockState bool
		target           string
		objective        string
		mode             string

		configPath = fs.String("config", "", "path to ribosome.yaml (optional)")
		indexPath  = fs.String("index", "", "sqlite build index; unchanged files are skipped (overrides index_db)")
		reportDir  = fs.String("report", "", "directory for the compressed build report (overrides report_dir)")
		force      = fs.Bool("force", false, "recompile files the build index reports as up to date")
	)
	fs.BoolVar(&void, "ignore-air", false, "ignore air blocks inside the structure file")
	fs.BoolVar(&void, "v", false, "shorthand for -ignore-air")
	fs.BoolVar(&ignoreNBT, "ignore-nbt", false, "ignore NBT of blocks inside the structure file")
	fs.BoolVar(&ignoreNBT, "n", false, "shorthand for -ignore-nbt")
	fs.BoolVar(&ignoreBlockState, "ignore-block-state", false, "ignore block states inside the structure file")
	fs.BoolVar(&ignoreBlockState, "b", false, "shorthand for -ignore-block-state")
	fs.StringVar(&target, "target", "", "scoreboard target name, default: "+compiler.DefaultTarget)
	fs.StringVar(&target, "t", "", "shorthand for -target")
	fs.StringVar(&objective, "objective", "", "scoreboard objective name, default: "+compiler.DefaultObjective)
	fs.StringVar(&objective, "o", "", "shorthand for -objective")
	fs.StringVar(&mode, "mode", "", "detection location of the structure: "+strings.Join(compiler.ModeNames(), ", "))
	fs.StringVar(&mode, "m", "", "shorthand for -mode")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: ribosome [flags] <structure.nbt | dir>\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	logger := log.New(stdout, "[ribosome] ", log.LstdFlags)

	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	path := fs.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, "load config:", err)
		return 2
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "ignore-air", "v":
			cfg.Void = void
		case "ignore-nbt", "n":
			cfg.IgnoreNBT = ignoreNBT
		case "ignore-block-state", "b":
			cfg.IgnoreBlockState = ignoreBlockState
		case "target", "t":
			cfg.Target = target
		case "objective", "o":
			cfg.Objective = objective
		case "mode", "m":
			cfg.Mode = mode
		case "index":
			cfg.IndexDB = *indexPath
		case "report":
			cfg.ReportDir = *reportDir
		}
	})
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	cc, err := cfg.Compiler()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	b := &build.Builder{
		Config:          cc,
		Extension:       cfg.OutputExtension,
		TrailingNewline: cfg.TrailingNewline,
		Force:           *force,
		Logger:          logger,
	}

	if cfg.IndexDB != "" {
		idx, err := indexdb.OpenSQLite(cfg.IndexDB)
		if err != nil {
			fmt.Fprintln(stderr, "open build index:", err)
			return 1
		}
		defer idx.Close()
		b.Index = idx
	}
	if cfg.ReportDir != "" {
		rep := persistlog.NewBuildLogger(cfg.ReportDir)
		defer rep.Close()
		b.Report = rep
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := b.Run(ctx, path)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	cached := 0
	for _, r := range results {
		if r.Cached {
			cached++
		}
	}
	logger.Printf("done: files=%d compiled=%d cached=%d", len(results), len(results)-cached, cached)
	return 0
}
