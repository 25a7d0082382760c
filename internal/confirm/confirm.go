// Package confirm implements the injected Confirm capability that replaces
// PSCmdlet.ShouldProcess, per spec §9: three outcomes (Yes, No, Assumed),
// defaulting to Assumed in non-interactive runs unless --Confirm is set.
package confirm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Outcome is the result of asking the operator to confirm a destructive or
// consequential step.
type Outcome int

const (
	Assumed Outcome = iota
	Yes
	No
)

func (o Outcome) String() string {
	switch o {
	case Yes:
		return "Yes"
	case No:
		return "No"
	default:
		return "Assumed"
	}
}

// Gate decides whether a step may proceed.
type Gate struct {
	// Interactive is true when --Confirm was passed on the command line.
	Interactive bool
	In          io.Reader
	Out         io.Writer
}

// New returns a Gate. interactive mirrors the --Confirm CLI flag.
func New(interactive bool) *Gate {
	return &Gate{Interactive: interactive, In: os.Stdin, Out: os.Stderr}
}

// Ask prompts the operator with message when Interactive is set; otherwise
// it returns Assumed immediately without blocking.
func (g *Gate) Ask(message string) Outcome {
	if !g.Interactive {
		return Assumed
	}
	in := g.In
	if in == nil {
		in = os.Stdin
	}
	out := g.Out
	if out == nil {
		out = os.Stderr
	}
	fmt.Fprintf(out, "%s [y/N]: ", message)
	line, _ := bufio.NewReader(in).ReadString('\n')
	line = strings.ToLower(strings.TrimSpace(line))
	if line == "y" || line == "yes" {
		return Yes
	}
	return No
}

// Proceed reports whether outcome permits the step to continue. Assumed and
// Yes both permit; only an explicit No blocks.
func Proceed(o Outcome) bool {
	return o != No
}
