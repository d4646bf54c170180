package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-fxtrigger/analysis/chord"
	"github.com/cwbudde/algo-fxtrigger/dsp/core"
	"github.com/cwbudde/algo-fxtrigger/dsp/effects"
)

var showExtended bool

var effectsCmd = &cobra.Command{
	Use:   "effects",
	Short: "List effect kinds and their parameters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for i, k := range effects.Kinds() {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "%s %s\n", headingStyle.Render(k.String()), dimStyle.Render(k.Description()))
			fmt.Fprintln(out, table([]string{"#", "Name", "Min", "Max", "Default", "Unit"}, paramRows(k)))
		}
		return nil
	},
}

func paramRows(k effects.Kind) [][]string {
	params := effects.Params(k)
	rows := make([][]string, 0, len(params))
	for i, p := range params {
		rows = append(rows, []string{
			strconv.Itoa(i), p.Name, formatValue(p.Min), formatValue(p.Max), formatValue(p.Default), p.Unit,
		})
	}
	return rows
}

var chordsCmd = &cobra.Command{
	Use:   "chords",
	Short: "List chord templates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), table([]string{"Name", "Intervals", "On C", "Extended"}, chordRows(chord.DefaultTable(), showExtended)))
		return nil
	},
}

func chordRows(t *chord.Table, extended bool) [][]string {
	var rows [][]string
	for _, tpl := range t.Templates() {
		if tpl.Extended && !extended {
			continue
		}
		intervals := make([]string, len(tpl.Intervals))
		names := make([]string, len(tpl.Intervals))
		for i, iv := range tpl.Intervals {
			intervals[i] = strconv.Itoa(iv)
			names[i] = core.NoteName(60 + iv)
		}
		ext := ""
		if tpl.Extended {
			ext = "yes"
		}
		rows = append(rows, []string{tpl.Name, strings.Join(intervals, " "), strings.Join(names, " "), ext})
	}
	return rows
}

func formatValue(v float64) string { return strconv.FormatFloat(v, 'g', 6, 64) }

func init() {
	chordsCmd.Flags().BoolVar(&showExtended, "extended", true, "Include extended chord templates")
}
