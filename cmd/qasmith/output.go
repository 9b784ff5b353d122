package main

import (
	"fmt"
	"os"
)

// Human-facing feedback goes to stderr so that command results — job JSON,
// dataset JSON, generated QA pairs — stay pipeable on stdout.

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
	ansiBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + ansiReset
}

func notef(color, glyph, format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(color, glyph+" "+fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) { notef(ansiGreen, "✓", format, args...) }

func printError(format string, args ...any) { notef(ansiRed, "✗", format, args...) }

func printWarning(format string, args ...any) { notef(ansiYellow, "⚠", format, args...) }

func printStep(format string, args ...any) { notef(ansiCyan, "→", format, args...) }

// printStatus renders one aligned "label: value" line of a status report.
func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	fmt.Fprintf(os.Stderr, "  %s %s\n", colorize(ansiBold, label+":"), val)
}
