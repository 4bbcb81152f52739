package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/productstudio/backend/config"
	"github.com/productstudio/backend/internal/domain"
	"github.com/productstudio/backend/internal/infrastructure/backend"
	"github.com/productstudio/backend/internal/infrastructure/download"
	"github.com/productstudio/backend/internal/pkg/logger"
	"github.com/productstudio/backend/internal/usecase"
)

type options struct {
	mode     string
	category string
	file     string
	brandURL string
	sku      string
	barcode  string
	ean      string
	text     string
	url      string
	export   string
	out      string
	verbose  bool
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.mode, "mode", "", "source mode: csv, search or url")
	flag.StringVar(&o.category, "category", "", "product category")
	flag.StringVar(&o.file, "file", "", "CSV file to upload (csv mode)")
	flag.StringVar(&o.brandURL, "brand-url", "", "brand site to enrich from (csv mode)")
	flag.StringVar(&o.sku, "sku", "", "SKU to search for")
	flag.StringVar(&o.barcode, "barcode", "", "barcode to search for")
	flag.StringVar(&o.ean, "ean", "", "EAN to search for")
	flag.StringVar(&o.text, "text", "", "free text to search for")
	flag.StringVar(&o.url, "url", "", "product page to scrape (url mode)")
	flag.StringVar(&o.export, "export", "", "export the results: shopify, csv or excel")
	flag.StringVar(&o.out, "out", "", "directory for exported files (default from config)")
	flag.BoolVar(&o.verbose, "v", false, "log backend calls")
	flag.Parse()
	return o
}

func main() {
	opts := parseFlags()
	if err := run(opts); err != nil {
		color.Red("✖ %v", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level := "error"
	if opts.verbose {
		level = cfg.Log.Level
	}
	zl, err := logger.New(logger.Options{Level: level, FilePath: cfg.Log.FilePath})
	if err != nil {
		return err
	}
	defer zl.Sync()

	form, err := buildForm(opts)
	if err != nil {
		return err
	}

	var target domain.ExportTarget
	if opts.export != "" {
		t, ok := domain.ParseExportTarget(opts.export)
		if !ok {
			return domain.NewValidationError("unknown export target %q", opts.export)
		}
		target = t
	}

	client := backend.NewClient(backend.Config{
		BaseURL:           cfg.Backend.BaseURL,
		APIKey:            cfg.Backend.APIKey,
		JSONTimeout:       cfg.Timeouts.JSON,
		FormTimeout:       cfg.Timeouts.Form,
		CSVTimeout:        cfg.Timeouts.CSV,
		RequestsPerSecond: cfg.Backend.RequestsPerSecond,
		Burst:             cfg.Backend.Burst,
	}, zl)

	machine := usecase.NewMachine(usecase.NewAdapters(client, zl), client, usecase.MachineConfig{Tick: cfg.Progress.Tick}, zl)
	defer machine.Close()

	unsubscribe := machine.Subscribe(progressPrinter())
	defer unsubscribe()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	color.Cyan("Running %s import into %s\n", form.Mode, form.Category)
	if err := machine.Start(ctx, form); err != nil {
		return err
	}

	store, err := machine.Store()
	if err != nil {
		return err
	}
	products := store.Products()
	printSummary(products, machine.Snapshot().ElapsedSeconds)

	if target == "" {
		return nil
	}

	dir := opts.out
	if dir == "" {
		dir = cfg.Export.DownloadDir
	}
	downloader := download.NewFileDownloader(dir, zl)
	if _, err := usecase.NewExportDispatcher(client, downloader, zl).Export(ctx, products, target); err != nil {
		return err
	}
	color.Green("Exported %d products to %s", len(products), downloader.Saved)
	return nil
}

func buildForm(opts options) (usecase.Form, error) {
	form := usecase.Form{
		Mode:     domain.SourceMode(strings.ToLower(opts.mode)),
		Category: opts.category,
	}
	switch form.Mode {
	case domain.SourceCSV:
		form.BrandURL = opts.brandURL
		if opts.file != "" {
			content, err := os.ReadFile(opts.file)
			if err != nil {
				return form, domain.NewValidationError("could not read %s: %v", opts.file, err)
			}
			form.File = &domain.Upload{Filename: filepath.Base(opts.file), Content: content}
		}
	case domain.SourceSearch:
		form.Criteria = domain.SearchCriteria{SKU: opts.sku, Barcode: opts.barcode, EAN: opts.ean, Text: opts.text}
	case domain.SourceURL:
		form.URL = opts.url
	default:
		return form, domain.NewValidationError("-mode must be one of csv, search or url")
	}
	return form, nil
}

// progressPrinter prints each new progress message once
func progressPrinter() func(usecase.Snapshot) {
	var (
		mu   sync.Mutex
		last string
	)
	return func(s usecase.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if s.State != usecase.StateProcessing || s.Progress == nil || s.Progress.Message == last {
			return
		}
		last = s.Progress.Message
		color.Yellow("  %s (%ds)", last, s.ElapsedSeconds)
	}
}

func printSummary(products []domain.Product, elapsed int) {
	color.Green("✔ %d products in %ds\n", len(products), elapsed)
	bold := color.New(color.Bold)
	for _, p := range products {
		bold.Printf("%s", p.Name)
		fmt.Printf("  [%s]\n", p.ID)
		if p.SKU != "" {
			fmt.Printf("    SKU: %s\n", p.SKU)
		}
		if p.Barcode != nil {
			fmt.Printf("    Barcode: %s\n", *p.Barcode)
		}
		if c := p.CategoryValue(); c != "" {
			fmt.Printf("    Category: %s\n", c)
		}
		if tags := p.DietaryTags(); len(tags) > 0 {
			fmt.Printf("    Dietary: %s\n", strings.Join(tags, ", "))
		}
		if p.Allergens != nil && len(p.Allergens.Contains) > 0 {
			fmt.Printf("    Contains: %s\n", strings.Join(p.Allergens.Contains, ", "))
		}
		for _, line := range p.Nutrition.Lines() {
			fmt.Printf("    %s: %s%s\n", line.Label, line.Value, line.Unit)
		}
		if p.Descriptions != nil && p.Descriptions.ShortDescription != "" {
			fmt.Printf("    %s\n", p.Descriptions.ShortDescription)
		}
	}
}
