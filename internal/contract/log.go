package contract

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s %s: %v\n", color.RedString("✗"), msg, err)
	os.Exit(1)
}

// LogWarning logs a warning to stderr.
func LogWarning(msg string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", color.YellowString("!"), msg)
}
