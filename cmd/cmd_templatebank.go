// Copyright 2025 The Distill Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/jcodagnone/distill/templatebank"
	"github.com/spf13/cobra"
)

var templatebankCmd = &cobra.Command{
	Use:   "templatebank",
	Short: "Work with polynomial template banks",
}

var inspectAll bool

var templatebankInspectCmd = &cobra.Command{
	Use:   "inspect <bank.txt>",
	Short: "Summarize a polynomial template bank",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		bank, err := templatebank.Load(args[0])
		if err != nil {
			return err
		}

		rows := [][]string{
			{"Templates", strconv.Itoa(bank.Len())},
			{"Columns", strconv.Itoa(bank.Columns)},
		}

		if bank.Len() > 0 {
			rows = append(rows,
				[]string{"Acceleration range", fmt.Sprintf("%g .. %g", slices.Min(bank.Acc), slices.Max(bank.Acc))},
				[]string{"Jerk range", fmt.Sprintf("%g .. %g", slices.Min(bank.Jerk), slices.Max(bank.Jerk))},
			)
		}

		if v, units, err := bank.MaxAcceleration(); err == nil {
			rows = append(rows, []string{"Max acceleration", fmt.Sprintf("%g %s", v, units)})
		}

		if v, units, err := bank.MaxJerk(); err == nil {
			rows = append(rows, []string{"Max jerk", fmt.Sprintf("%g %s", v, units)})
		}

		printTable(os.Stdout, args[0]+":", []string{"Field", "Value"}, rows)

		if !inspectAll {
			return nil
		}

		templates := make([][]string, 0, bank.Len())
		for i, t := range bank.Templates() {
			templates = append(templates, []string{
				strconv.Itoa(i),
				strconv.FormatFloat(t.Acc, 'g', -1, 64),
				strconv.FormatFloat(t.Jerk, 'g', -1, 64),
			})
		}

		printTable(os.Stdout, "Templates:", []string{"#", "Acc", "Jerk"}, templates)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(templatebankCmd)
	templatebankCmd.AddCommand(templatebankInspectCmd)
	templatebankInspectCmd.Flags().BoolVar(&inspectAll, "all", false, "Also list every template")
}
