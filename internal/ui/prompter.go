// Package ui owns the interactive console surface: reading operator input
// and showing a liveness indicator between polls.
package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrAborted is returned when the input stream closes while waiting for the
// operator. Callers treat it as a deliberate abort, not a failure.
var ErrAborted = errors.New("input aborted")

// Prompter reads operator input line by line.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter constructs a prompter. Nil arguments default to stdio.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Line prints prompt and returns the next input line, trimmed. A closed
// input stream returns ErrAborted.
func (p *Prompter) Line(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			// A final unterminated line still counts as input.
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				return trimmed, nil
			}
			return "", ErrAborted
		}
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Confirm loops until the operator types the expected word (case-insensitive).
func (p *Prompter) Confirm(prompt, expected string) error {
	for {
		line, err := p.Line(prompt)
		if err != nil {
			return err
		}
		if strings.EqualFold(line, expected) {
			return nil
		}
		fmt.Fprintf(p.out, "Please type '%s' to continue...\n", expected)
	}
}

// Out exposes the output writer for callers that interleave their own
// messages with prompts.
func (p *Prompter) Out() io.Writer {
	return p.out
}
