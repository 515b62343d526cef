// Command pdl2lua compiles a PDL source file into a self-contained
// Wireshark Lua dissector script.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/oakmoss/pdl2lua/internal/diag"
	"github.com/oakmoss/pdl2lua/internal/driver"
	"github.com/oakmoss/pdl2lua/internal/pdl"
)

var (
	verbose    bool
	outputPath string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pdl2lua <file.pdl> <target...>",
		Short: "Compile a PDL file into a Wireshark Lua dissector script",
		Long: `pdl2lua reads a PDL source file describing packet formats and emits a
self-contained Lua script that registers a Wireshark dissector for each
named target packet. Pass "_all_" as the sole target to emit every packet
declaration in the file.`,
		Args: cobra.MinimumNArgs(2),
		RunE: run,
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "emit full struct-dump comments above each generated block")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the generated script here instead of stdout")
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	log := logrus.New()
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	inputPath := args[0]
	targets := args[1:]

	log.Debugf("reading %s", inputPath)
	src, err := os.ReadFile(inputPath)
	if err != nil {
		return diag.New(diag.IO, "reading %s: %v", inputPath, err)
	}

	file, err := pdl.Parse(inputPath, string(src))
	if err != nil {
		return err
	}

	out, err := driver.Run(file, targets, driver.Options{Verbose: verbose, Logger: log})
	if err != nil {
		return reportAndExit(err)
	}

	if outputPath == "" {
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	}
	if err := os.WriteFile(outputPath, []byte(out), 0o644); err != nil {
		return diag.New(diag.IO, "writing %s: %v", outputPath, err)
	}
	log.Infof("wrote %s", outputPath)
	return nil
}

func reportAndExit(err error) error {
	if d, ok := err.(*diag.Diagnostic); ok {
		logrus.Errorf("%s", d.Error())
		return d
	}
	return err
}
