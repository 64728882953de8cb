package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	credsEnvKey = "JIRA_CREDS"
	tokenEnvKey = "JIRA_PAT"
)

// Credentials for Jira, e.g. a service account or the interactive user.
type Credentials struct {
	Username string
	Password string
	Token    string
}

// ResolveCredentials reads JIRA_PAT, then JIRA_CREDS ("user:password"). When
// neither is set and prompt is true, it asks on the terminal.
func ResolveCredentials(prompt bool) (Credentials, error) {
	if token := strings.TrimSpace(os.Getenv(tokenEnvKey)); token != "" {
		return Credentials{Token: token}, nil
	}
	if val, ok := os.LookupEnv(credsEnvKey); ok {
		return parseCreds(val)
	}
	if prompt && term.IsTerminal(int(os.Stdin.Fd())) {
		return promptCredentials(os.Stdin, os.Stderr)
	}
	return Credentials{}, fmt.Errorf("environment key %s or %s not found", credsEnvKey, tokenEnvKey)
}

func parseCreds(val string) (Credentials, error) {
	user, pass, ok := strings.Cut(val, ":")
	if !ok || user == "" {
		return Credentials{}, fmt.Errorf("environment key %s should have the format 'un:pw'", credsEnvKey)
	}
	return Credentials{Username: user, Password: pass}, nil
}

func promptCredentials(in *os.File, out io.Writer) (Credentials, error) {
	fmt.Fprint(out, "Jira username: ")
	user, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return Credentials{}, fmt.Errorf("unable to read username: %w", err)
	}
	user = strings.TrimSpace(user)
	if user == "" {
		return Credentials{}, errors.New("empty username")
	}

	fmt.Fprint(out, "Jira password: ")
	pass, err := term.ReadPassword(int(in.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return Credentials{}, fmt.Errorf("unable to read password: %w", err)
	}
	return Credentials{Username: user, Password: string(pass)}, nil
}
