// Copyright (c) 2024 The Falcon Contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// rv64cc compiles a subset of C to RV64GC/LP64D GNU-assembler text.
// See internal/config for the CLI contract.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rv64cc/internal/config"
	"rv64cc/internal/diag"
	"rv64cc/internal/driver"
	"rv64cc/internal/mir"
	"rv64cc/internal/parse"
	"rv64cc/internal/source"
)

var opts = config.New()

var rootCmd = &cobra.Command{
	Use:   "rv64cc <input.c>",
	Short: "Compile a C subset to RV64GC/LP64D assembly",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts.Input = args[0]
		return run(opts)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&opts.Output, "o", "o", config.DefaultOutput, "output assembly file")
	rootCmd.Flags().BoolVar(&opts.NoPrint, "no-print", false, "suppress dumping the parse tree / MIR / assembly to stdout")
	rootCmd.Flags().BoolVar(&opts.FoldConstants, "fold-constants", true, "run the constant-folding pass between parsing and sema")
}

// stageError carries a failed stage's error count so main can propagate
// it as the process exit code.
type stageError struct {
	stage string
	count int
}

func (e *stageError) Error() string {
	return fmt.Sprintf("%d error(s) during %s", e.count, e.stage)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var se *stageError
		if errors.As(err, &se) && se.count > 0 {
			os.Exit(se.count)
		}
		os.Exit(1)
	}
}

// run drives internal/driver's pipeline and handles the CLI's own
// concerns: loading the input file, recovering a lowering/codegen ICE
// into a clean error, dumping
// intermediate stages to stdout unless -no-print, and writing the
// output file.
func run(opts config.Options) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if ice, ok := r.(*diag.ICEError); ok {
				err = fmt.Errorf("%w", ice)
				return
			}
			panic(r)
		}
	}()

	buf, loadErr := source.Load(opts.Input)
	if loadErr != nil {
		return fmt.Errorf("reading %s: %w", opts.Input, loadErr)
	}

	res := driver.Compile(buf, opts)

	if !opts.NoPrint && res.Prog != nil {
		parse.Dump(os.Stdout, res.Prog)
	}
	if !opts.NoPrint && res.Module != nil {
		mir.Dump(os.Stdout, res.Module)
	}

	if res.FailedStage != "" {
		return &stageError{stage: res.FailedStage, count: res.Bag.Errors()}
	}

	if !opts.NoPrint {
		fmt.Fprint(os.Stdout, res.Asm)
	}

	if writeErr := os.WriteFile(opts.Output, []byte(res.Asm), 0o644); writeErr != nil {
		return fmt.Errorf("writing %s: %w", opts.Output, writeErr)
	}
	return nil
}
