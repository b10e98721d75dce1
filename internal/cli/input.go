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

// errInvalidInput marks command line input errors.
var errInvalidInput = errors.New("invalid input")

var (
	promptPassword = PromptPassword
	promptConfirm  = PromptConfirm
)

// PromptPassword prompts on stderr for a password without echoing to terminal
func PromptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		fmt.Fprintln(os.Stderr)
		return "", errors.New("could not prompt password, expected interactive shell (use --password)")
	}

	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	return string(password), nil
}

// PromptPasswordConfirm prompts for a password and confirmation
func PromptPasswordConfirm(prompt string) (string, error) {
	password, err := promptPassword(prompt)
	if err != nil {
		return "", err
	}

	confirm, err := promptPassword("Confirm password: ")
	if err != nil {
		return "", err
	}

	if password != confirm {
		return "", fmt.Errorf("passwords do not match")
	}

	return password, nil
}

// PromptConfirm prompts for yes/no confirmation
func PromptConfirm(prompt string, defaultYes bool) (bool, error) {
	suffix := " [y/N]: "
	if defaultYes {
		suffix = " [Y/n]: "
	}

	fmt.Fprint(os.Stderr, prompt+suffix)
	input, err := readLine(os.Stdin)
	if err != nil {
		return false, err
	}

	input = strings.ToLower(input)
	if input == "" {
		return defaultYes, nil
	}

	return input == "y" || input == "yes", nil
}

func readLine(r io.Reader) (string, error) {
	input, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && input != "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(input), nil
}

// passphraseSource hands out the master passphrase, prompting at most once
// and only when a command actually needs it.
type passphraseSource struct {
	flag    string
	confirm bool
	value   *string
}

func newPassphraseSource(flag string, confirm bool) *passphraseSource {
	return &passphraseSource{flag: flag, confirm: confirm}
}

func (p *passphraseSource) get() (string, error) {
	if p.value != nil {
		return *p.value, nil
	}

	passphrase := p.flag
	if passphrase == "" {
		var err error
		if p.confirm {
			passphrase, err = PromptPasswordConfirm("Enter password: ")
		} else {
			passphrase, err = promptPassword("Enter password: ")
		}
		if err != nil {
			return "", err
		}
	}

	p.value = &passphrase
	return passphrase, nil
}
