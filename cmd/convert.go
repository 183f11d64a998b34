package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kestcalc/kestcalc/app"
	"github.com/kestcalc/kestcalc/log"
)

func runConvertCmd(cmd *cobra.Command, args []string) {
	payloadName, outName := args[0], args[1]
	payloadFp, err := os.Open(payloadName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", payloadName, err)
		os.Exit(1)
	}
	defer payloadFp.Close()

	outFp, err := os.Create(outName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", outName, err)
		os.Exit(1)
	}
	defer outFp.Close()

	errPrinter := &log.StderrErrorPrinter{}
	if err := app.RunConvertApp(payloadFp, outFp, errPrinter); err != nil {
		os.Exit(1)
	}
}

var convertCmd = &cobra.Command{
	Use:   "convert PAYLOAD_JSON OUT_CSV",
	Short: "Convert a raw API payload export into the broker CSV layout",
	Long: `Flattens the nested JSON payload of the broker's transaction API into
the semicolon-separated CSV layout the calculator ingests. Only settled
security transactions are kept.`,
	Run:  runConvertCmd,
	Args: cobra.ExactArgs(2),
}

func init() {
	RootCmd.AddCommand(convertCmd)
}
