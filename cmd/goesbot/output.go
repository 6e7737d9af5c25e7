package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Colors for command output. fatih/color drops the escapes when stdout is
// not a terminal or NO_COLOR is set.
var (
	successColor = color.New(color.FgGreen)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	labelColor   = color.New(color.FgCyan)
)

func printSuccess(w io.Writer, format string, args ...interface{}) {
	successColor.Fprintf(w, format+"\n", args...)
}

func printWarning(w io.Writer, format string, args ...interface{}) {
	warningColor.Fprintf(w, "Warning: "+format+"\n", args...)
}

func printError(w io.Writer, err error) {
	errorColor.Fprintln(w, "Error:", err)
}

// printField prints an indented "label: value" line
func printField(w io.Writer, label string, value string) {
	fmt.Fprintf(w, "  %s %s\n", labelColor.Sprint(label+":"), value)
}
