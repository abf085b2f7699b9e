// Copyright 2022 The SAILAR Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	sailar "github.com/sailar-lang/sailar"
)

var (
	wantHeader     bool
	wantTypes      bool
	wantSignatures bool
	wantFunctions  bool
	wantBlocks     bool
	wantImports    bool
	all            bool
)

func prettyPrint(buff []byte) string {
	var prettyJSON bytes.Buffer
	err := json.Indent(&prettyJSON, buff, "", "\t")
	if err != nil {
		log.Println("JSON parse error: ", err)
		return string(buff)
	}

	return prettyJSON.String()
}

type moduleSummary struct {
	FormatVersion sailar.FormatVersion      `json:"format_version"`
	LengthSize    uint8                     `json:"length_size"`
	Identifier    *sailar.ModuleIdentifier  `json:"identifier,omitempty"`
	Identifiers   []string                  `json:"identifiers,omitempty"`
	Types         []string                  `json:"type_signatures,omitempty"`
	Signatures    []sailar.FunctionSignatureRecord `json:"function_signatures,omitempty"`
	Definitions   []sailar.FunctionDefinitionRecord `json:"function_definitions,omitempty"`
	Imports       []sailar.FunctionImportRecord `json:"function_imports,omitempty"`
	Blocks        []blockSummary            `json:"code_blocks,omitempty"`
}

type blockSummary struct {
	InputCount     int      `json:"input_count"`
	ResultCount    int      `json:"result_count"`
	TemporaryCount int      `json:"temporary_count"`
	Instructions   []string `json:"instructions"`
}

func dumpModule(filename string) {
	file, err := sailar.Open(filename, &sailar.Options{})
	if err != nil {
		log.Printf("Error while opening file: %s, reason: %s", filename, err)
		return
	}
	defer file.Close()

	if err := file.Parse(); err != nil {
		log.Printf("Error while parsing file: %s, reason: %s", filename, err)
		return
	}
	module := file.Module

	summary := moduleSummary{
		FormatVersion: module.FormatVersion(),
		LengthSize:    uint8(module.LengthSize()),
		Identifier:    module.Identifier(),
	}

	if all || wantHeader {
		summary.Identifiers = lo.Map(module.Identifiers(),
			func(id sailar.Identifier, _ int) string { return id.String() })
	}
	if all || wantTypes {
		summary.Types = lo.Map(module.TypeSignatures(),
			func(t sailar.Type, _ int) string { return t.String() })
	}
	if all || wantSignatures {
		summary.Signatures = module.FunctionSignatures()
	}
	if all || wantFunctions {
		summary.Definitions = module.Definitions()
	}
	if all || wantImports {
		summary.Imports = module.FunctionImports()
	}
	if all || wantBlocks {
		summary.Blocks = lo.Map(module.CodeBlocks(),
			func(block sailar.CodeBlockRecord, _ int) blockSummary {
				return blockSummary{
					InputCount:     block.InputCount,
					ResultCount:    block.ResultCount,
					TemporaryCount: block.TemporaryCount,
					Instructions: lo.Map(block.Instructions,
						func(instr sailar.Instruction, _ int) string {
							return fmt.Sprintf("%#v", instr)
						}),
				}
			})
	}

	encoded, err := json.Marshal(summary)
	if err != nil {
		log.Printf("Error while encoding module: %s, reason: %s", filename, err)
		return
	}
	fmt.Println(prettyPrint(encoded))
}

func validateModule(filename string) {
	file, err := sailar.Open(filename, &sailar.Options{})
	if err != nil {
		log.Printf("Error while opening file: %s, reason: %s", filename, err)
		os.Exit(1)
	}
	defer file.Close()

	if err := file.Parse(); err != nil {
		fmt.Printf("%s: invalid, %v\n", filename, err)
		os.Exit(1)
	}
	fmt.Printf("%s: ok\n", filename)
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "sailar",
		Short: "Inspect and validate SAILAR binary modules",
	}

	dumpCmd := &cobra.Command{
		Use:   "dump [module files]",
		Short: "Dump a module's contents as JSON",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			for _, filename := range args {
				dumpModule(filename)
			}
		},
	}
	dumpCmd.Flags().BoolVarP(&all, "all", "a", false, "Dump everything")
	dumpCmd.Flags().BoolVar(&wantHeader, "identifiers", false, "Dump the identifiers table")
	dumpCmd.Flags().BoolVar(&wantTypes, "types", false, "Dump the type signature table")
	dumpCmd.Flags().BoolVar(&wantSignatures, "signatures", false, "Dump the function signature table")
	dumpCmd.Flags().BoolVar(&wantFunctions, "functions", false, "Dump function definitions")
	dumpCmd.Flags().BoolVar(&wantImports, "imports", false, "Dump function imports")
	dumpCmd.Flags().BoolVar(&wantBlocks, "blocks", false, "Dump code blocks")

	validateCmd := &cobra.Command{
		Use:   "validate [module files]",
		Short: "Check that files parse as SAILAR modules",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			for _, filename := range args {
				validateModule(filename)
			}
		},
	}

	sampleCmd := &cobra.Command{
		Use:   "sample [output file]",
		Short: "Write a sample module that exits with code 0",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			module, err := sailar.ExitWith(sailar.MustIdentifier("true"), 0)
			if err != nil {
				log.Fatalf("Error while building sample: %s", err)
			}
			out, err := os.Create(args[0])
			if err != nil {
				log.Fatalf("Error while creating file: %s", err)
			}
			defer out.Close()
			if err := module.Write(out, nil); err != nil {
				log.Fatalf("Error while writing module: %s", err)
			}
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the supported module format version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("minimum supported format version: %d.%d\n",
				sailar.MinimumFormatVersion.Major, sailar.MinimumFormatVersion.Minor)
		},
	}

	rootCmd.AddCommand(dumpCmd, validateCmd, sampleCmd, versionCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
