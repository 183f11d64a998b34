package app

import (
	"fmt"
	"io"
	"sync"

	"github.com/kestcalc/kestcalc/app/outfmt"
	"github.com/kestcalc/kestcalc/config"
	"github.com/kestcalc/kestcalc/fx"
	"github.com/kestcalc/kestcalc/ingest"
	"github.com/kestcalc/kestcalc/kest"
	"github.com/kestcalc/kestcalc/log"
)

type DescribedReader struct {
	Desc   string
	Reader io.Reader
}

type Options struct {
	ForceDownload    bool
	RenderFullValues bool
	CsvOutDir        string
	XlsxPath         string
}

type securityOutcome struct {
	cfg    *kest.SecurityConfig
	report *kest.SecurityReport
	err    error
}

// RunKestApp drives a full calculation: load the period config, parse
// every record feed, replay each configured security and render the
// per-security ledgers plus the batch summary.
//
// A failing security does not abort the run; its error is reported and
// the remaining securities still produce their tables. The returned
// error is non-nil if anything failed.
func RunKestApp(
	configReader io.Reader,
	recordReaders []DescribedReader,
	options Options,
	ratesCache fx.RatesCache,
	errPrinter log.ErrorPrinter,
	w io.Writer) (retErr error) {

	configs, err := config.Load(configReader)
	if err != nil {
		errPrinter.Ln("Error:", err)
		return err
	}

	allRecords := make([]kest.Record, 0, 20)
	for _, reader := range recordReaders {
		records, skipped, err := ingest.ParseRecordsCsv(reader.Reader, reader.Desc, errPrinter)
		if err != nil {
			errPrinter.Ln("Error:", err)
			return err
		}
		if skipped > 0 {
			log.Verbosef("Skipped %d non-executed or malformed rows in %s\n", skipped, reader.Desc)
		}
		allRecords = append(allRecords, records...)
	}

	rateLoader := fx.NewRateLoader(options.ForceDownload, ratesCache, errPrinter)
	recsByISIN := kest.SplitRecordsByISIN(allRecords)

	// Replays are independent; only the rate loader is shared, and it
	// locks internally.
	outcomes := make([]securityOutcome, len(configs))
	var wg sync.WaitGroup
	for i, cfg := range configs {
		wg.Add(1)
		go func(i int, cfg *kest.SecurityConfig) {
			defer wg.Done()
			report, err := kest.ReplayRecords(cfg, recsByISIN[cfg.ISIN], rateLoader)
			outcomes[i] = securityOutcome{cfg: cfg, report: report, err: err}
		}(i, cfg)
	}
	wg.Wait()

	writers := []outfmt.ReportWriter{outfmt.NewSTDWriter(w)}
	if options.CsvOutDir != "" {
		csvWriter, err := outfmt.NewCSVWriter(options.CsvOutDir)
		if err != nil {
			errPrinter.Ln("Error:", err)
			return err
		}
		writers = append(writers, csvWriter)
	}
	var xlsxWriter *outfmt.XLSXWriter
	if options.XlsxPath != "" {
		xlsxWriter = outfmt.NewXLSXWriter(options.XlsxPath)
		writers = append(writers, xlsxWriter)
	}

	reports := make([]*kest.SecurityReport, 0, len(outcomes))
	for _, outcome := range outcomes {
		if outcome.err != nil {
			errPrinter.F("[!] %s: %v\n", outcome.cfg.ISIN, outcome.err)
			retErr = outcome.err
			continue
		}
		reports = append(reports, outcome.report)
	}
	kest.SortReports(reports)

	for _, report := range reports {
		tableModel := kest.RenderLedgerTableModel(report, options.RenderFullValues)
		for _, writer := range writers {
			if err := writer.PrintRenderTable(outfmt.Ledger, report.Config.ISIN, tableModel); err != nil {
				errPrinter.Ln("Error:", err)
				retErr = err
			}
		}
	}

	if len(reports) > 0 {
		summaryModel := kest.RenderSummaryTableModel(reports, options.RenderFullValues)
		for _, writer := range writers {
			if err := writer.PrintRenderTable(outfmt.Summary, "summary", summaryModel); err != nil {
				errPrinter.Ln("Error:", err)
				retErr = err
			}
		}
	}

	if xlsxWriter != nil {
		if err := xlsxWriter.Save(); err != nil {
			errPrinter.Ln("Error:", err)
			retErr = err
		}
	}
	return retErr
}

// RunConvertApp flattens an API payload export into the broker CSV
// layout the calculator ingests.
func RunConvertApp(payloadReader io.Reader, out io.Writer, errPrinter log.ErrorPrinter) error {
	records, skipped, err := ingest.ParsePayload(payloadReader, errPrinter)
	if err != nil {
		errPrinter.Ln("Error:", err)
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("payload contains no settled security transactions")
	}
	if skipped > 0 {
		log.Verbosef("Skipped %d non-security or non-settled payload entries\n", skipped)
	}
	return ingest.WriteRecordsCsv(out, records)
}
