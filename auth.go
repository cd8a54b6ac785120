package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/wesnick/gmcli/pkg/gmcli"
)

// promptSecret reads the client secret from in without echo when in is a
// terminal, and as a single line otherwise.
func promptSecret(in *os.File, prompt io.Writer) (string, error) {
	fmt.Fprint(prompt, "Client secret: ")
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read client secret: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read client secret: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// runConfigure stores the OAuth client credentials. The secret is prompted
// for unless given by flag or compiled in.
func runConfigure(store gmcli.CredentialStore, configPath, clientID, clientSecret string, readSecret func() (string, error), out *outputWriter) error {
	if clientSecret == "" && gmcli.DefaultClientSecret == "" {
		s, err := readSecret()
		if err != nil {
			return err
		}
		clientSecret = s
	}

	cfg := gmcli.Config{ClientID: strings.TrimSpace(clientID), ClientSecret: clientSecret}
	check := cfg
	if check.ClientSecret == "" {
		check.ClientSecret = gmcli.DefaultClientSecret
	}
	if err := check.Validate(); err != nil {
		return fmt.Errorf("invalid credentials: %w", err)
	}

	if err := store.SaveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	if out.json {
		return out.writeJSON(map[string]string{"config": configPath})
	}
	out.writeMessage(fmt.Sprintf("Configuration saved to %s", configPath))
	out.writeMessage("Run 'gmcli login' to authorize access.")
	return nil
}

// runLogin runs the browser authorization flow. Tokens are never printed.
func runLogin(ctx context.Context, session *gmcli.Session, out *outputWriter) error {
	if _, err := session.Login(ctx); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if out.json {
		return out.writeJSON(map[string]bool{"logged_in": true})
	}
	out.writeMessage("Login successful.")
	return nil
}
