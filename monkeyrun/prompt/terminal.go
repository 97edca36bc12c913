package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

// Terminal prompts the operator on a text terminal.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer

	alert  *color.Color
	title  *color.Color
	option *color.Color
}

func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		in:     bufio.NewReader(in),
		out:    out,
		alert:  color.New(color.FgYellow, color.Bold),
		title:  color.New(color.FgCyan, color.Bold),
		option: color.New(color.FgGreen),
	}
}

// Stdio returns a terminal bound to the process's standard input and output.
func Stdio() *Terminal {
	return NewTerminal(os.Stdin, os.Stdout)
}

func (t *Terminal) Alert(message string) error {
	_, err := t.alert.Fprintf(t.out, "⚠️  %s\n", message)
	return err
}

// Choice lists options and reads a 0-based index. Empty input, "q", "cancel" or end of
// input cancel the choice and return -1. Anything else that is not a listed index asks again.
func (t *Terminal) Choice(message string, options []string) (int, error) {
	t.title.Fprintln(t.out, message)
	for i, opt := range options {
		t.option.Fprintf(t.out, "  [%d] ", i)
		fmt.Fprintln(t.out, opt)
	}

	for {
		fmt.Fprintf(t.out, "Enter a number (0-%d), or press Enter to cancel: ", len(options)-1)
		line, err := t.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return -1, err
		}
		eof := errors.Is(err, io.EOF)

		answer := strings.ToLower(strings.TrimSpace(line))
		switch answer {
		case "", "q", "quit", "cancel":
			if eof {
				fmt.Fprintln(t.out)
			}
			return -1, nil
		}

		index, convErr := strconv.Atoi(answer)
		if convErr == nil && index >= 0 && index < len(options) {
			return index, nil
		}
		if eof {
			fmt.Fprintln(t.out)
			return -1, nil
		}
		t.alert.Fprintf(t.out, "Invalid choice %q.\n", answer)
	}
}
