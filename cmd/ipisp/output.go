package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

var bold = color.New(color.Bold).SprintFunc()

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(stderr, color.GreenString("✓ %s", msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(stderr, color.RedString("✗ %s", msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(stderr, color.YellowString("⚠ %s", msg))
}

func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	fmt.Fprintf(stderr, "  %s %s\n", bold(label+":"), val)
}
