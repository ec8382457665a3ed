package simhw

import (
	"fmt"
	"io"
)

// WriterConsole adapts an io.Writer to sig.Console.
type WriterConsole struct {
	W io.Writer
}

func (c WriterConsole) Printf(format string, args ...any) {
	fmt.Fprintf(c.W, format, args...)
}
