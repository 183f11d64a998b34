package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kestcalc/kestcalc/app"
	"github.com/kestcalc/kestcalc/fx"
	"github.com/kestcalc/kestcalc/ingest"
	"github.com/kestcalc/kestcalc/log"
)

var ForceDownload = false
var RenderFullValues = false
var CsvOutDir = ""
var XlsxPath = ""

func runRootCmd(cmd *cobra.Command, args []string) {
	configName := args[0]
	configFp, err := os.Open(configName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", configName, err)
		os.Exit(1)
	}
	defer configFp.Close()

	recordReaders := make([]app.DescribedReader, 0, len(args)-1)
	for _, csvName := range args[1:] {
		fp, err := os.Open(csvName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", csvName, err)
			os.Exit(1)
		}
		defer fp.Close()
		recordReaders = append(recordReaders, app.DescribedReader{Desc: csvName, Reader: fp})
	}

	errPrinter := &log.StderrErrorPrinter{}
	err = app.RunKestApp(
		configFp,
		recordReaders,
		app.Options{
			ForceDownload:    ForceDownload,
			RenderFullValues: RenderFullValues,
			CsvOutDir:        CsvOutDir,
			XlsxPath:         XlsxPath,
		},
		&fx.CsvRatesCache{ErrPrinter: errPrinter},
		errPrinter,
		os.Stdout)
	if err != nil {
		os.Exit(1)
	}
}

func cmdName() string {
	binName := os.Args[0]
	return filepath.Base(binName)
}

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   cmdName() + " CONFIG_YAML [CSV_FILE ...]",
	Short: "Austrian capital-income (KESt) calculation tool",
	Long: fmt.Sprintf(
		`A cli tool which computes the Austrian capital-income tax figures for
broker-traded securities: realized gains with moving-average cost basis,
and the OeKB deemed-distribution adjustments for accumulating funds.

The YAML config describes each security's tax period, its starting
holdings and, for accumulating funds, the OeKB report factors. Each CSV
is a broker account activity export with these column names:
%s

Trades in foreign currencies are converted with ECB reference rates,
downloaded automatically and cached under ~/.kestcalc/.`,
		strings.Join(ingest.ColNames, ", ")),
	Run:     runRootCmd,
	Args:    cobra.MinimumNArgs(2),
	Version: "0.3.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().BoolVarP(&log.VerboseEnabled, "verbose", "v", false,
		"Print verbose output")
	RootCmd.PersistentFlags().BoolVarP(&ForceDownload, "force-download", "f", false,
		"Download exchange rates, even if they are cached")
	RootCmd.Flags().BoolVar(&RenderFullValues, "all-decimals", false,
		"Print all decimal digits instead of rounding for display")
	RootCmd.Flags().StringVar(&CsvOutDir, "csv", "",
		"Write per-security ledgers and the summary as CSV files into this directory")
	RootCmd.Flags().StringVar(&XlsxPath, "xlsx", "",
		"Write all tables as sheets of an Excel workbook at this path")
}
