package main

import (
	"fmt"
	"os"
	"strings"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiBlue   = "\033[34m"
	ansiCyan   = "\033[36m"
	ansiBold   = "\033[1m"
	ansiDim    = "\033[2m"
)

var colorsEnabled = os.Getenv("NO_COLOR") == ""

func colorize(color, text string) string {
	if !colorsEnabled {
		return text
	}
	return color + text + ansiReset
}

func colorRed(text string) string    { return colorize(ansiRed, text) }
func colorGreen(text string) string  { return colorize(ansiGreen, text) }
func colorYellow(text string) string { return colorize(ansiYellow, text) }
func colorBlue(text string) string   { return colorize(ansiBlue, text) }
func colorCyan(text string) string   { return colorize(ansiCyan, text) }
func colorBold(text string) string   { return colorize(ansiBold, text) }
func colorDim(text string) string    { return colorize(ansiDim, text) }

func printSuccess(message string) {
	fmt.Println(colorGreen("✓") + " " + message)
}

func printError(message string) {
	fmt.Fprintln(os.Stderr, colorRed("✗")+" "+message)
}

func printInfo(message string) {
	fmt.Println(colorBlue("ℹ") + " " + message)
}

func printHeader(title string) {
	fmt.Println("\n" + colorBold(colorCyan(title)))
	fmt.Println(colorDim(strings.Repeat("─", 40)))
}

// formatTable renders rows as aligned columns. Widths are computed on the
// plain text so colors do not skew alignment.
func formatTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	for i, h := range headers {
		b.WriteString(colorBold(h) + strings.Repeat(" ", widths[i]-len(h)+2))
	}
	b.WriteString("\n")
	for _, w := range widths {
		b.WriteString(strings.Repeat("─", w) + "  ")
	}
	b.WriteString("\n")
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				b.WriteString(cell + strings.Repeat(" ", widths[i]-len(cell)+2))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
