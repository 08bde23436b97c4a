package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/gophguard/internal/common"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// prompter asks the user for command input.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

// line prints "label: " and reads one trimmed line. A final line without a
// newline is accepted.
func (p *prompter) line(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)

	s, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

// required returns args[0] when given, otherwise asks for a non-empty value.
func (p *prompter) required(args []string, label string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	v, err := p.line(label)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", errEmptyInput
	}
	return v, nil
}

// secret reads a value from the terminal without echo.
// The caller should wipe the returned slice.
func (p *prompter) secret(label string) ([]byte, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(p.out)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

// newSecret asks for a password twice and fails when the entries differ.
func (p *prompter) newSecret(label string) (string, error) {
	pw, err := p.secret(label)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pw)

	again, err := p.secret("Repeat password")
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(again)

	if string(pw) != string(again) {
		return "", errPasswordMismatch
	}
	return string(pw), nil
}
