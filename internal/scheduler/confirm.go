package scheduler

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Confirmation is what an operator must acknowledge before a live run.
type Confirmation struct {
	JobID      string
	ConfirmKey string
	Path       string // plan summary written for review
}

// Confirmer decides whether a planned run may proceed.
type Confirmer interface {
	Confirm(ctx context.Context, c Confirmation) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, c Confirmation) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, c Confirmation) (bool, error) {
	return f(ctx, c)
}

// PromptConfirmer asks for the confirm key on a terminal. Typing "exit" or
// closing the input cancels.
type PromptConfirmer struct {
	In  io.Reader
	Out io.Writer
}

func (p *PromptConfirmer) Confirm(ctx context.Context, c Confirmation) (bool, error) {
	fmt.Fprintf(p.Out, "Confirmation required. Review: %s\n", c.Path)

	scanner := bufio.NewScanner(p.In)
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		fmt.Fprint(p.Out, `Enter confirm key or type "exit" to cancel: `)
		if !scanner.Scan() {
			fmt.Fprintln(p.Out)
			return false, scanner.Err()
		}

		switch answer := strings.TrimSpace(scanner.Text()); answer {
		case "exit":
			return false, nil
		case c.ConfirmKey:
			return true, nil
		default:
			fmt.Fprintln(p.Out, "Invalid confirm key. Try again.")
		}
	}
}
