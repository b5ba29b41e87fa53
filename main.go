package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	"github.com/firodj/n64sora/internal"
	"github.com/firodj/n64sora/internal/mips"
	"github.com/firodj/n64sora/internal/n64"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/sirupsen/logrus"
)

const envPrefix = "N64SORA"

func ffOptions() []ff.Option {
	return []ff.Option{
		ff.WithEnvVarPrefix(envPrefix),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
	}
}

func newLogger(verbosity int) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	switch {
	case verbosity > 0:
		log.SetLevel(logrus.DebugLevel)
	case verbosity < 0:
		log.SetLevel(logrus.WarnLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}

// loadTable returns the retail IPL3 table, extended from a YAML file when
// path is set.
func loadTable(path string) (*n64.Table, error) {
	table := n64.DefaultTable()
	if path == "" {
		return table, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := table.LoadYAML(f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

func openRepository(ctx context.Context, dsn string, debug bool) (*internal.SQLRepository, error) {
	repo, err := internal.NewSQLRepository(dsn, debug)
	if err != nil {
		return nil, err
	}
	if err := repo.Init(ctx); err != nil {
		repo.Close()
		return nil, err
	}
	return repo, nil
}

func parseAddress(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("bad address %q: %w", s, err)
	}
	return uint32(v), nil
}

// analysisFlags are the options shared by every command that runs the
// analysis pipeline.
type analysisFlags struct {
	width       int
	abi         string
	verbose     bool
	quiet       bool
	window      string
	stop        string
	direction   string
	minEvidence int
	ipl3Table   string
}

func (af *analysisFlags) register(fs *flag.FlagSet) {
	def := internal.DefaultConfig()
	fs.String("config", "", "config file (optional)")
	fs.IntVar(&af.width, "width", def.PrintWidth, "mnemonic column width")
	fs.StringVar(&af.abi, "abi", def.ABI.String(), "register names: o32, n32 or n64")
	fs.BoolVar(&af.verbose, "v", false, "log debug output")
	fs.BoolVar(&af.quiet, "q", false, "only log warnings, hide the listing")
	fs.StringVar(&af.window, "window", fmt.Sprintf("0x%X", def.Window), "entrypoint window in bytes")
	fs.StringVar(&af.stop, "stop", def.StopRule.String(), "entrypoint stop rule: jump or double-nop")
	fs.StringVar(&af.direction, "direction", def.Direction.String(), "classifier scan: forward or reverse")
	fs.IntVar(&af.minEvidence, "min-evidence", def.MinEvidence, "branches+jumps needed for a verdict")
	fs.StringVar(&af.ipl3Table, "ipl3-table", "", "YAML file with extra IPL3 checksums")
}

func (af *analysisFlags) config() (internal.Config, error) {
	cfg := internal.DefaultConfig()
	var err error

	cfg.PrintWidth = af.width
	cfg.MinEvidence = af.minEvidence
	cfg.IPL3Table = af.ipl3Table
	switch {
	case af.verbose:
		cfg.Verbosity = 1
	case af.quiet:
		cfg.Verbosity = -1
	}
	if cfg.ABI, err = mips.ParseABI(af.abi); err != nil {
		return cfg, err
	}
	if cfg.Window, err = parseAddress(af.window); err != nil {
		return cfg, err
	}
	if cfg.StopRule, err = internal.ParseStopRule(af.stop); err != nil {
		return cfg, err
	}
	if cfg.Direction, err = internal.ParseScanDirection(af.direction); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func analyzeCommand() *ffcli.Command {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	var af analysisFlags
	af.register(fs)
	var (
		terse     = fs.Bool("terse", false, "one ';' separated line per ROM")
		output    = fs.String("output", string(internal.OutputText), "report format: text, yaml or json")
		useColor  = fs.Bool("color", true, "color the text report")
		db        = fs.String("db", "", "SQLite file to record the analyses in")
		jobs      = fs.Int("jobs", 1, "ROMs analyzed in parallel")
		keepGoing = fs.Bool("keep-going", true, "continue after a ROM fails")
	)

	return &ffcli.Command{
		Name:       "analyze",
		ShortUsage: "n64sora analyze [flags] <rom> [<rom>...]",
		ShortHelp:  "Report entrypoint, BSS, stack and compiler of ROM images",
		FlagSet:    fs,
		Options:    ffOptions(),
		Exec: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				fmt.Fprintln(os.Stderr, "analyze: no ROM files given")
				return flag.ErrHelp
			}

			cfg, err := af.config()
			if err != nil {
				return err
			}
			cfg.Terse = *terse
			cfg.Color = *useColor
			cfg.DB = *db
			cfg.Jobs = *jobs
			cfg.KeepGoing = *keepGoing
			if cfg.Output, err = internal.ParseOutputFormat(*output); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			log := newLogger(cfg.Verbosity)
			table, err := loadTable(cfg.IPL3Table)
			if err != nil {
				return err
			}

			var repo *internal.SQLRepository
			if cfg.DB != "" {
				if repo, err = openRepository(ctx, cfg.DB, cfg.Verbosity > 0); err != nil {
					return err
				}
				defer repo.Close()
			}

			runner := internal.NewRunner(cfg, table, repo, log)
			log.WithField("run_id", runner.RunID).Debugf("analyzing %d ROMs", len(args))
			return runner.Run(ctx, args, os.Stdout)
		},
	}
}

func disasmCommand() *ffcli.Command {
	fs := flag.NewFlagSet("disasm", flag.ExitOnError)
	var af analysisFlags
	af.register(fs)
	var (
		addr   = fs.String("addr", "", "start address, defaults to the entrypoint")
		last   = fs.String("last", "", "last address; without it the walk ends at the first jump")
		pseudo = fs.Bool("pseudo", true, "annotate lines with pseudo-C")
	)

	return &ffcli.Command{
		Name:       "disasm",
		ShortUsage: "n64sora disasm [flags] <rom>",
		ShortHelp:  "List the basic blocks of the boot segment",
		FlagSet:    fs,
		Options:    ffOptions(),
		Exec: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return flag.ErrHelp
			}
			cfg, err := af.config()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			log := newLogger(cfg.Verbosity)
			table, err := loadTable(cfg.IPL3Table)
			if err != nil {
				return err
			}

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return &internal.StageError{File: args[0], Stage: internal.StageRead, Err: err}
			}
			doc, err := internal.NewSoraDocument(args[0], raw, table, cfg, logrus.NewEntry(log))
			if err != nil {
				return err
			}
			// labels the jump target and BSS start
			res, err := internal.NewEntryAnalyzer(doc).Process()
			if err != nil {
				return err
			}

			start := doc.EntryAddr
			var end uint32
			if *addr != "" {
				if start, err = parseAddress(*addr); err != nil {
					return err
				}
			} else if len(res.Lines) > 0 {
				end = res.Lines[len(res.Lines)-1].Address
			}
			if *last != "" {
				if end, err = parseAddress(*last); err != nil {
					return err
				}
			}
			if doc.Disasm(start) == nil {
				return fmt.Errorf("0x%08X is outside the boot segment", start)
			}
			doc.ProcessBB(start, end, doc.PrintLines(os.Stdout, *pseudo))
			return nil
		},
	}
}

func headerCommand() *ffcli.Command {
	fs := flag.NewFlagSet("header", flag.ExitOnError)
	var (
		full      = fs.Bool("full", false, "print every header field")
		ipl3Table = fs.String("ipl3-table", "", "YAML file with extra IPL3 checksums")
	)

	return &ffcli.Command{
		Name:       "header",
		ShortUsage: "n64sora header [flags] <rom> [<rom>...]",
		ShortHelp:  "Print the cartridge header of ROM images",
		FlagSet:    fs,
		Options:    []ff.Option{ff.WithEnvVarPrefix(envPrefix)},
		Exec: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return flag.ErrHelp
			}
			table, err := loadTable(*ipl3Table)
			if err != nil {
				return err
			}
			for _, path := range args {
				if err := printHeader(path, table, *full); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func printHeader(path string, table *n64.Table, full bool) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return &internal.StageError{File: path, Stage: internal.StageRead, Err: err}
	}
	format, err := n64.DetectFormat(raw)
	if err != nil {
		return &internal.StageError{File: path, Stage: internal.StageEndian, Err: err}
	}
	rom := make([]byte, len(raw)&^3)
	copy(rom, raw)
	if err := n64.Normalize(format, rom); err != nil {
		return &internal.StageError{File: path, Stage: internal.StageEndian, Err: err}
	}
	header, err := n64.ParseHeader(rom)
	if err != nil {
		return &internal.StageError{File: path, Stage: internal.StageHeader, Err: err}
	}

	cic := "unknown"
	if c, _, err := table.Identify(rom); err == nil {
		cic = c.Name()
	}
	if !full {
		fmt.Printf("%s, %s, %s, %s\n", path, format, header.Summary(), cic)
		return nil
	}
	fmt.Printf("%s (%s, %s)\n", path, format, format.Description())
	fmt.Print(header.Dump())
	fmt.Printf("ipl3:                   %s\n", cic)
	return nil
}

func historyCommand() *ffcli.Command {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	fs.String("config", "", "config file (optional)")
	var (
		db    = fs.String("db", "", "SQLite file holding the analyses")
		limit = fs.Int("limit", 20, "rows to show, 0 for all")
		run   = fs.String("run", "", "only show one batch run")
	)

	return &ffcli.Command{
		Name:       "history",
		ShortUsage: "n64sora history -db <file> [flags]",
		ShortHelp:  "List recorded analyses, newest first",
		FlagSet:    fs,
		Options:    ffOptions(),
		Exec: func(ctx context.Context, args []string) error {
			if *db == "" {
				fmt.Fprintln(os.Stderr, "history: -db is required")
				return flag.ErrHelp
			}
			repo, err := openRepository(ctx, *db, false)
			if err != nil {
				return err
			}
			defer repo.Close()

			recs, err := repo.List(ctx, *limit)
			if *run != "" {
				recs, err = repo.ListRun(ctx, *run)
			}
			if err != nil {
				return err
			}
			for _, rec := range recs {
				fmt.Printf("%4d %s %-36s %08X %08X %08X 0x%-6X %-21s %s\n",
					rec.ID, rec.CreatedAt.Format("2006-01-02 15:04:05"), rec.RunID,
					uint32(rec.Entrypoint), uint32(rec.JumpAddress), uint32(rec.StackPointer),
					rec.BSSSize, rec.Verdict, rec.File)
			}
			return nil
		},
	}
}

func main() {
	appName := filepath.Base(os.Args[0])

	rootFlagSet := flag.NewFlagSet(appName, flag.ExitOnError)

	ctx := context.Background()
	// trap Ctrl+C and call cancel on the context
	ctx, cancel := context.WithCancel(ctx)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)

	defer func() {
		signal.Stop(quit)
		cancel()
	}()

	go func() {
		<-quit
		cancel()
	}()

	root := &ffcli.Command{
		ShortUsage: appName + " [flags] <subcommand>",
		FlagSet:    rootFlagSet,
		Subcommands: []*ffcli.Command{
			analyzeCommand(),
			disasmCommand(),
			headerCommand(),
			historyCommand(),
			serveCommand(),
		},
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
	}

	err := root.ParseAndRun(ctx, os.Args[1:])
	switch {
	case err == nil:
	case errors.Is(err, flag.ErrHelp):
		os.Exit(2)
	case internal.IsBatchError(err):
		// the failed files were logged already
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}
}
