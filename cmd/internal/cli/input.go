package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

func stdinIsTerminal() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

func readStdinSecret() ([]byte, error) { return term.ReadPassword(int(os.Stdin.Fd())) }

// prompter reads answers from a terminal without echo, or line by line from a
// pipe so the commands stay scriptable.
type prompter struct {
	e      *env
	reader *bufio.Reader
}

func newPrompter(e *env) *prompter {
	return &prompter{e: e, reader: bufio.NewReader(e.in)}
}

// Text prints prompt and reads one trimmed line.
func (p *prompter) Text(prompt string) (string, error) {
	if _, err := fmt.Fprint(p.e.errOut, prompt+": "); err != nil {
		return "", err
	}
	return p.line()
}

// Secret prints prompt and reads a value without echo when attached to a terminal.
func (p *prompter) Secret(prompt string) (string, error) {
	if _, err := fmt.Fprint(p.e.errOut, prompt+": "); err != nil {
		return "", err
	}
	if !p.e.isTerminal() {
		return p.line()
	}
	b, err := p.e.readSecret()
	fmt.Fprintln(p.e.errOut)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (p *prompter) line() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
