package orderscraper

import (
	"fmt"
	"os"
)

// ConsoleLogger prints to stderr so that stdout stays free for the result line.
type ConsoleLogger struct{}

func (logger ConsoleLogger) Printf(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprintln(os.Stderr)
}
