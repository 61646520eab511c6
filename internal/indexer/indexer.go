package indexer

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/shadow-ui/internal/config"
	"github.com/mvp-joe/shadow-ui/internal/indexer/extraction"
	"github.com/mvp-joe/shadow-ui/internal/indexer/parsers"
	"github.com/mvp-joe/shadow-ui/internal/layout"
	"github.com/mvp-joe/shadow-ui/internal/stylesheet"
)

// Options configures one extraction run.
type Options struct {
	Layout           layout.Options
	InlineAttributes []string // Python attributes holding inline stylesheets
	Workers          int      // 0 means one per CPU
	Progress         ProgressReporter
}

// OptionsFromConfig derives run options from a loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Layout: layout.Options{
			Prefixes:      cfg.Dialect.Prefixes,
			IgnoreNames:   cfg.Dialect.IgnoreNames,
			IDKeyword:     cfg.Dialect.IDKeyword,
			AttachMethods: cfg.Dialect.AttachMethods,
		},
		InlineAttributes: cfg.Dialect.InlineCSSAttributes,
		Workers:          cfg.Extract.Workers,
	}
}

// Stats summarizes an extraction run.
type Stats struct {
	PythonFiles     int
	StylesheetFiles int
	Nodes           int
	Edges           int
	Roots           int
	EdgeCases       int
	Tokens          int
	Uncertainties   int
	Failures        int
	Duration        time.Duration
}

// Result is the output of an extraction run.
type Result struct {
	Sources   []SourceFile
	Model     *StructuralModel
	Selectors *SelectorIndex
	Stats     Stats
}

// fileResult is what one worker produces for one file.
type fileResult struct {
	layout    *extraction.FileLayout
	selectors *extraction.FileSelectors
	failures  []extraction.FileFailure
}

// Run discovers, reads and extracts every matching file under rootDir.
func Run(ctx context.Context, rootDir string, cfg *config.Config, progress ProgressReporter) (*Result, error) {
	if progress == nil {
		progress = &NoOpProgressReporter{}
	}

	progress.OnDiscoveryStart()
	discovery, err := NewFileDiscovery(rootDir, cfg.Paths.Include, cfg.Paths.Ignore)
	if err != nil {
		return nil, fmt.Errorf("invalid path pattern: %w", err)
	}
	paths, err := discovery.DiscoverFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}

	var supported []string
	for _, p := range paths {
		if _, ok := detectLanguage(p, cfg.Dialect.StylesheetExtensions); ok {
			supported = append(supported, p)
		}
	}

	sources, readFailures := ReadSources(rootDir, supported, cfg.Dialect.StylesheetExtensions)
	for _, f := range readFailures {
		log.Printf("Warning: failed to read %s: %s", f.File, f.Reason)
	}
	python, sheets := countLanguages(sources)
	progress.OnDiscoveryComplete(python, sheets)

	opts := OptionsFromConfig(cfg)
	opts.Progress = progress
	return extract(ctx, sources, opts, readFailures)
}

// Extract runs the extractors over sources and aggregates the results.
// The constant table is built in a first parallel pass; extraction of each
// file then runs in a bounded worker pool. A cancelled context discards all
// results.
func Extract(ctx context.Context, sources []SourceFile, opts Options) (*Result, error) {
	return extract(ctx, sources, opts, nil)
}

// extract is Extract with failures recorded before extraction started.
func extract(ctx context.Context, sources []SourceFile, opts Options, failures []extraction.FileFailure) (*Result, error) {
	start := time.Now()
	progress := opts.Progress
	if progress == nil {
		progress = &NoOpProgressReporter{}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(sources) {
		workers = len(sources)
	}
	if workers < 1 {
		workers = 1
	}

	parser := parsers.NewPythonParser()

	constants, err := buildConstantTable(ctx, parser, sources, workers)
	if err != nil {
		return nil, err
	}

	layoutExtractor := layout.NewExtractor(parser, opts.Layout, constants)
	inlineExtractor := stylesheet.NewExtractor(parser, opts.InlineAttributes)

	progress.OnExtractionStart(len(sources))

	results := make([]fileResult, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = extractFile(&sources[i], layoutExtractor, inlineExtractor)
			progress.OnFileExtracted(sources[i].Path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("extraction cancelled: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("extraction cancelled: %w", err)
	}

	layouts := make([]*extraction.FileLayout, 0, len(results))
	selectors := make([]*extraction.FileSelectors, 0, len(results))
	for _, r := range results {
		layouts = append(layouts, r.layout)
		selectors = append(selectors, r.selectors)
		for _, f := range r.failures {
			log.Printf("Warning: discarded %s results for %s: %s", f.Stage, f.File, f.Reason)
			failures = append(failures, f)
		}
	}

	model, index := Aggregate(layouts, selectors, failures)
	python, sheets := countLanguages(sources)

	result := &Result{
		Sources:   sources,
		Model:     model,
		Selectors: index,
		Stats: Stats{
			PythonFiles:     python,
			StylesheetFiles: sheets,
			Nodes:           model.NodeCount(),
			Edges:           model.EdgeCount(),
			Roots:           model.RootCount(),
			EdgeCases:       model.EdgeCaseCount(),
			Tokens:          index.TokenCount(),
			Uncertainties:   len(index.Uncertainties),
			Failures:        len(model.Failures),
			Duration:        time.Since(start),
		},
	}
	progress.OnComplete(&result.Stats)
	return result, nil
}

// buildConstantTable collects module-level string constants from every
// Python source so identities can follow imported names.
func buildConstantTable(ctx context.Context, parser *parsers.PythonParser, sources []SourceFile, workers int) (*parsers.ConstantTable, error) {
	perFile := make([]map[string]string, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range sources {
		if sources[i].Language != LanguagePython {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tree, err := parser.Parse(sources[i].Path, sources[i].Source)
			if err != nil {
				return fmt.Errorf("failed to parse %s: %w", sources[i].Path, err)
			}
			defer tree.Close()
			if !tree.HasError() {
				perFile[i] = tree.StringConstants()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to collect constants: %w", err)
	}

	table := parsers.NewConstantTable()
	for i, consts := range perFile {
		if len(consts) > 0 {
			table.Add(sources[i].Path, consts)
		}
	}
	return table, nil
}

// extractFile runs the extractors for one file. An internal error discards
// the results of its stage; a panic discards the rest of the file.
func extractFile(src *SourceFile, layouts *layout.Extractor, inline *stylesheet.Extractor) (res fileResult) {
	stage := StageLayout
	defer func() {
		if r := recover(); r != nil {
			res.failures = append(res.failures, extraction.FileFailure{
				File:   src.Path,
				Stage:  stage,
				Reason: fmt.Sprintf("internal error: %v", r),
			})
		}
	}()

	switch src.Language {
	case LanguagePython:
		fl, err := layouts.ExtractFile(src.Path, src.Source)
		if err != nil {
			res.failures = append(res.failures, extraction.FileFailure{File: src.Path, Stage: StageLayout, Reason: err.Error()})
		} else {
			res.layout = fl
		}

		stage = StageStylesheet
		fs, err := inline.ExtractInline(src.Path, src.Source)
		if err != nil {
			res.failures = append(res.failures, extraction.FileFailure{File: src.Path, Stage: StageStylesheet, Reason: err.Error()})
		} else {
			res.selectors = fs
		}

	case LanguageStylesheet:
		stage = StageStylesheet
		res.selectors = stylesheet.ScanStylesheet(src.Path, src.Text())
	}
	return res
}

func countLanguages(sources []SourceFile) (python, sheets int) {
	for i := range sources {
		switch sources[i].Language {
		case LanguagePython:
			python++
		case LanguageStylesheet:
			sheets++
		}
	}
	return python, sheets
}
