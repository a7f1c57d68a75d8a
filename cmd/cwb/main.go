package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"cipher_workbench/internal/config"
	"cipher_workbench/internal/db"
	"cipher_workbench/internal/detect"
	"cipher_workbench/internal/engine"
	"cipher_workbench/internal/ingest"
	"cipher_workbench/internal/pipeline"
	"cipher_workbench/internal/rerank"
	"cipher_workbench/internal/workspace"
)

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "analyze":
		runAnalyze(os.Args[2:])
	case "batch":
		runBatch(os.Args[2:])
	case "workspace":
		runWorkspace(os.Args[2:])
	case "help", "-h", "--help":
		usage()
	default:
		log.Printf("unknown command %q", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `usage: cwb <command> [options]

commands:
  analyze <file|->   analyze one ciphertext (.txt, .pdf, .docx, or stdin)
  batch <dir>        analyze every supported file in a directory
  workspace          initialize the workspace and print its location

options:
  -config <path>     configuration file (default: $CWB_CONFIG, else built-ins)
  -json              print the full report as JSON instead of a summary
  -save              persist the run to the database and workspace
  -no-rerank         skip the external reranker
  -workers <n>       batch parallelism (default: one per CPU)
`)
}

type cliOptions struct {
	configPath string
	jsonOut    bool
	save       bool
	noRerank   bool
	workers    int
	args       []string
}

func parseArgs(args []string) (cliOptions, error) {
	var opts cliOptions
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-json":
			opts.jsonOut = true
		case "-save":
			opts.save = true
		case "-no-rerank":
			opts.noRerank = true
		case "-config":
			i++
			if i == len(args) {
				return opts, fmt.Errorf("-config needs a path")
			}
			opts.configPath = args[i]
		case "-workers":
			i++
			if i == len(args) {
				return opts, fmt.Errorf("-workers needs a number")
			}
			n, err := strconv.Atoi(args[i])
			if err != nil || n < 1 {
				return opts, fmt.Errorf("invalid -workers value %q", args[i])
			}
			opts.workers = n
		default:
			if strings.HasPrefix(args[i], "-") && args[i] != "-" {
				return opts, fmt.Errorf("unknown option %s", args[i])
			}
			opts.args = append(opts.args, args[i])
		}
	}
	return opts, nil
}

func runAnalyze(args []string) {
	opts, err := parseArgs(args)
	if err != nil {
		log.Fatal(err)
	}
	if len(opts.args) != 1 {
		log.Fatal("analyze needs exactly one file path, or - for stdin")
	}

	cfg := loadConfig(opts.configPath)
	doc := readSource(opts.args[0])
	rr := buildReranker(cfg, opts.noRerank)

	var onProgress engine.ProgressFn
	if !opts.jsonOut {
		onProgress = func(percent int, stage, detail string, _ *detect.Result) {
			fmt.Fprintf(os.Stderr, "[%3d%%] %-9s %s\n", percent, stage, detail)
		}
	}

	ctx := interruptibleContext()
	rep := engine.Analyze(ctx, engine.Input{DocumentID: doc.Label, Ciphertext: doc.Text}, cfg.EngineConfig(), rr, nil, onProgress)

	if opts.save {
		root := ensureWorkspace(cfg)
		id, err := saveRun(root, databasePath(cfg, root), providerName(rr), doc, rep)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Fprintf(os.Stderr, "saved analysis %s\n", id)
	}

	if opts.jsonOut {
		raw, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			log.Fatalf("encode report: %v", err)
		}
		fmt.Println(string(raw))
		return
	}
	printReport(rep)
}

func runBatch(args []string) {
	opts, err := parseArgs(args)
	if err != nil {
		log.Fatal(err)
	}
	if len(opts.args) != 1 {
		log.Fatal("batch needs exactly one directory")
	}

	cfg := loadConfig(opts.configPath)
	sources, err := ingest.FindSources(opts.args[0])
	if err != nil {
		log.Fatalf("scan %s: %v", opts.args[0], err)
	}
	if len(sources) == 0 {
		log.Fatalf("no supported files in %s", opts.args[0])
	}

	docs := make([]*ingest.Document, 0, len(sources))
	for _, path := range sources {
		doc, parseErr := ingest.ParseFile(path)
		if parseErr != nil {
			log.Printf("skip %s: %v", path, parseErr)
			continue
		}
		docs = append(docs, doc)
	}

	rr := buildReranker(cfg, opts.noRerank)
	provider := providerName(rr)

	root := ""
	dbPath := ""
	if opts.save {
		root = ensureWorkspace(cfg)
		dbPath = databasePath(cfg, root)
	}

	ctx := interruptibleContext()
	lines := make([]string, len(docs))
	errs := pipeline.AnalyzeDocuments(docs, opts.workers, func(index int, doc *ingest.Document) error {
		rep := engine.Analyze(ctx, engine.Input{DocumentID: doc.Label, Ciphertext: doc.Text}, cfg.EngineConfig(), rr, nil, nil)
		line := fmt.Sprintf("%-24s %-9s conf %.2f", doc.Label, rep.Detection.LikelyType, rep.Detection.Confidence)
		if len(rep.Candidates) > 0 {
			line += "  " + clip(rep.Candidates[0].Plaintext, 60)
		}
		lines[index] = line
		if opts.save {
			if _, err := saveRun(root, dbPath, provider, doc, rep); err != nil {
				return err
			}
		}
		return nil
	})

	for _, line := range lines {
		if line != "" {
			fmt.Println(line)
		}
	}
	if len(errs) > 0 {
		for _, err := range errs {
			log.Printf("error: %v", err)
		}
		os.Exit(1)
	}
}

func runWorkspace(args []string) {
	opts, err := parseArgs(args)
	if err != nil {
		log.Fatal(err)
	}

	cfg := loadConfig(opts.configPath)
	root := ensureWorkspace(cfg)
	fmt.Printf("Cipher Workbench workspace ready at: %s\n", filepath.Clean(root))
	fmt.Printf("Database: %s\n", databasePath(cfg, root))
}

func loadConfig(path string) *config.Config {
	if path == "" {
		path = os.Getenv("CWB_CONFIG")
	}
	cfg, err := config.LoadFromEnv(path)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	return cfg
}

func readSource(path string) *ingest.Document {
	if path == "-" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			log.Fatalf("read stdin: %v", err)
		}
		return &ingest.Document{Label: "stdin", SourceBytes: raw, Text: string(raw)}
	}
	doc, err := ingest.ParseFile(path)
	if err != nil {
		log.Fatalf("parse %s: %v", path, err)
	}
	return doc
}

func buildReranker(cfg *config.Config, disabled bool) engine.Reranker {
	if disabled {
		return nil
	}
	return rerank.FromConfig(cfg.Rerank)
}

func providerName(rr engine.Reranker) string {
	if rr == nil {
		return ""
	}
	return rr.Name()
}

// interruptibleContext cancels on the first SIGINT/SIGTERM so a long search
// returns its partial ranking; a second signal kills the process as usual.
func interruptibleContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		cancel()
		signal.Stop(quit)
	}()
	return ctx
}

func ensureWorkspace(cfg *config.Config) string {
	if cfg.Workspace.Dir != "" {
		root, err := workspace.EnsureAt(cfg.Workspace.Dir)
		if err != nil {
			log.Fatalf("workspace: %v", err)
		}
		return root
	}
	root, err := workspace.EnsureDefault()
	if err != nil {
		log.Fatalf("workspace: %v", err)
	}
	return root
}

func databasePath(cfg *config.Config, root string) string {
	if cfg.Database.Path != "" {
		return cfg.Database.Path
	}
	return workspace.DBPath(root)
}

// saveRun persists one finished analysis into the database and writes the
// full report artifact into the workspace project tree.
func saveRun(root, dbPath, provider string, doc *ingest.Document, rep engine.Report) (string, error) {
	in := engine.Input{DocumentID: rep.DocumentID, Ciphertext: doc.Text}
	id, err := db.PersistAnalysis(dbPath, doc.Label, provider, in, rep)
	if err != nil {
		return "", fmt.Errorf("persist %s: %w", doc.Label, err)
	}

	name := doc.Label + ".txt"
	if doc.SourcePath != "" {
		name = filepath.Base(doc.SourcePath)
	}
	source := doc.SourceBytes
	if len(source) == 0 {
		source = []byte(doc.Text)
	}
	proj, err := workspace.CreateProject(root, name, source)
	if err != nil {
		return "", fmt.Errorf("project %s: %w", doc.Label, err)
	}
	if err := workspace.SaveReport(proj.ReportPath, rep); err != nil {
		return "", fmt.Errorf("report %s: %w", doc.Label, err)
	}
	return id, nil
}

func printReport(rep engine.Report) {
	det := rep.Detection
	fmt.Printf("Document: %s (%d letters)\n", rep.DocumentID, det.LetterCount)
	fmt.Printf("Detected: %s (confidence %.2f, IC %.4f", det.LikelyType, det.Confidence, det.IndexOfCoincidence)
	if len(det.KeyLengths) > 0 {
		fmt.Printf(", key lengths %v", det.KeyLengths)
	}
	fmt.Println(")")

	if len(rep.Candidates) == 0 {
		fmt.Println("No strong candidates found.")
	}
	for _, cand := range rep.Candidates {
		fmt.Printf("\n#%d [%s] confidence %.2f", cand.Rank, cand.Type, cand.Confidence)
		if cand.Plausibility > 0 {
			fmt.Printf(", plausibility %.2f", cand.Plausibility)
		}
		fmt.Println()
		fmt.Printf("    %s\n", cand.Formula)
		fmt.Printf("    %s\n", clip(cand.Plaintext, 160))
		if cand.Rationale != "" {
			fmt.Printf("    reviewer: %s\n", cand.Rationale)
		}
	}

	for _, e := range rep.Errors {
		fmt.Printf("\nwarning [%s] %s\n", e.Stage, e.Message)
	}
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
