package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	log "github.com/sirupsen/logrus"

	"github.com/wesnick/gmcli/pkg/gmcli"
	"github.com/wesnick/gmcli/pkg/gmcli/oauth"
)

var version = "dev"

type messageArg struct {
	MessageID string `arg:"" required:"" help:"Message ID"`
}

type CLI struct {
	Config  string `help:"Config directory path" default:"~/.config/gmcli" type:"path" env:"GMCLI_CONFIG"`
	JSON    bool   `help:"JSON output format"`
	Verbose bool   `help:"Verbose logging"`
	LogRPC  bool   `help:"Log every API call with its duration" name:"log-rpc"`
	NoColor bool   `help:"Disable colored output"`

	Configure struct {
		ClientID     string `arg:"" required:"" help:"OAuth client ID"`
		ClientSecret string `help:"OAuth client secret (prompted for when omitted)" name:"client-secret"`
	} `cmd:"" help:"Store OAuth client credentials"`
	Login   struct{} `cmd:"" help:"Authorize access in the browser"`
	Version struct{} `cmd:"" help:"Show version"`

	Labels struct {
		System   bool `help:"System labels only"`
		UserOnly bool `help:"User labels only" name:"user-only"`
	} `cmd:"" help:"List labels"`

	List struct {
		Label  string `arg:"" optional:"" help:"Label to list (default INBOX; 'all' for every message)"`
		Query  string `short:"q" help:"Search query"`
		Unread bool   `help:"Unread only"`
		Limit  int64  `help:"Max messages" default:"100"`
	} `cmd:"" help:"List messages"`

	Read struct {
		MessageID   string `arg:"" required:"" help:"Message ID"`
		HTML        bool   `help:"Prefer the HTML body, rendered as markdown"`
		HeadersOnly bool   `help:"Show headers only" name:"headers-only"`
	} `cmd:"" help:"Read message"`

	Archive    messageArg `cmd:"" help:"Remove from inbox"`
	Spam       messageArg `cmd:"" help:"Mark as spam"`
	Unspam     messageArg `cmd:"" help:"Move from spam back to inbox"`
	Trash      messageArg `cmd:"" help:"Move to trash"`
	MarkRead   messageArg `cmd:"" name:"mark-read" help:"Mark as read"`
	MarkUnread messageArg `cmd:"" name:"mark-unread" help:"Mark as unread"`

	Label struct {
		MessageID string `arg:"" required:"" help:"Message ID"`
		Label     string `arg:"" required:"" help:"Label name, created when missing"`
	} `cmd:"" help:"Add a label to a message"`

	Unlabel struct {
		MessageID string `arg:"" required:"" help:"Message ID"`
		Label     string `arg:"" required:"" help:"Label name"`
	} `cmd:"" help:"Remove a label from a message"`

	ClearLabels struct {
		MessageID string `arg:"" required:"" help:"Message ID"`
		DryRun    bool   `help:"Show the change without applying it" name:"dry-run"`
	} `cmd:"" name:"clear-labels" help:"Remove all user labels from a message"`

	Unsubscribe struct {
		MessageID string `arg:"" required:"" help:"Message ID"`
		Open      bool   `help:"Also open the List-Unsubscribe link in the browser"`
	} `cmd:"" help:"Unsubscribe from a mailing list"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("gmcli"),
		kong.Description("Command-line Gmail client"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	setupLogging(cli.Verbose, cli.LogRPC)
	gmcli.Version = version
	out := newOutputWriter(cli.JSON, cli.NoColor, cli.Verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, kctx.Command(), &cli, out)
	stop()
	os.Exit(code)
}

func setupLogging(verbose, logRPC bool) {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	if verbose {
		log.SetLevel(log.DebugLevel)
	}
	gmcli.LogRPC = logRPC
}

// run dispatches one command and returns the process exit code: 3 when no
// working connection could be set up, 2 when the command failed, 1 for an
// unknown command.
func run(ctx context.Context, command string, cli *CLI, out *outputWriter) int {
	paths, err := gmcli.GetConfigPaths(cli.Config)
	if err != nil {
		out.writeError(err)
		return 3
	}
	store := gmcli.NewStore(paths)
	session := gmcli.NewSession(store)

	switch command {
	case "version":
		out.writeMessage(fmt.Sprintf("gmcli %s", version))
		return 0

	case "configure <client-id>":
		readSecret := func() (string, error) { return promptSecret(os.Stdin, os.Stderr) }
		if err := runConfigure(store, paths.Config, cli.Configure.ClientID, cli.Configure.ClientSecret, readSecret, out); err != nil {
			out.writeError(err)
			return 3
		}
		return 0

	case "login":
		if err := runLogin(ctx, session, out); err != nil {
			out.writeError(err)
			return 3
		}
		return 0
	}

	cmd, ok := mailboxCommand(command, cli, out)
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		return 1
	}

	client, err := session.EnsureClient(ctx)
	if err != nil {
		out.writeError(err)
		return 3
	}
	if err := cmd(ctx, client, gmcli.NewLabelResolver(client)); err != nil {
		out.writeError(err)
		return 2
	}
	return 0
}

type mailboxFunc func(ctx context.Context, client *gmcli.Client, resolver *gmcli.LabelResolver) error

// mailboxCommand returns the handler for a command that needs a connection.
func mailboxCommand(command string, cli *CLI, out *outputWriter) (mailboxFunc, bool) {
	switch command {
	case "labels":
		return func(ctx context.Context, _ *gmcli.Client, r *gmcli.LabelResolver) error {
			return runLabelsList(ctx, r, cli.Labels.System, cli.Labels.UserOnly, out)
		}, true

	case "list", "list <label>":
		return func(ctx context.Context, c *gmcli.Client, r *gmcli.LabelResolver) error {
			return runMessagesList(ctx, c, r, cli.List.Label, cli.List.Query, cli.List.Unread, cli.List.Limit, out)
		}, true

	case "read <message-id>":
		return func(ctx context.Context, c *gmcli.Client, r *gmcli.LabelResolver) error {
			return runMessagesRead(ctx, c, r, cli.Read.MessageID, cli.Read.HTML, cli.Read.HeadersOnly, out)
		}, true

	case "archive <message-id>":
		return func(ctx context.Context, c *gmcli.Client, _ *gmcli.LabelResolver) error {
			return runArchive(ctx, c, cli.Archive.MessageID, out)
		}, true

	case "spam <message-id>":
		return func(ctx context.Context, c *gmcli.Client, _ *gmcli.LabelResolver) error {
			return runSpam(ctx, c, cli.Spam.MessageID, out)
		}, true

	case "unspam <message-id>":
		return func(ctx context.Context, c *gmcli.Client, _ *gmcli.LabelResolver) error {
			return runUnspam(ctx, c, cli.Unspam.MessageID, out)
		}, true

	case "trash <message-id>":
		return func(ctx context.Context, c *gmcli.Client, _ *gmcli.LabelResolver) error {
			return runTrash(ctx, c, cli.Trash.MessageID, out)
		}, true

	case "mark-read <message-id>":
		return func(ctx context.Context, c *gmcli.Client, _ *gmcli.LabelResolver) error {
			return runMarkRead(ctx, c, cli.MarkRead.MessageID, out)
		}, true

	case "mark-unread <message-id>":
		return func(ctx context.Context, c *gmcli.Client, _ *gmcli.LabelResolver) error {
			return runMarkUnread(ctx, c, cli.MarkUnread.MessageID, out)
		}, true

	case "label <message-id> <label>":
		return func(ctx context.Context, c *gmcli.Client, r *gmcli.LabelResolver) error {
			return runLabelAdd(ctx, c, r, cli.Label.MessageID, cli.Label.Label, out)
		}, true

	case "unlabel <message-id> <label>":
		return func(ctx context.Context, c *gmcli.Client, r *gmcli.LabelResolver) error {
			return runLabelRemove(ctx, c, r, cli.Unlabel.MessageID, cli.Unlabel.Label, out)
		}, true

	case "clear-labels <message-id>":
		return func(ctx context.Context, c *gmcli.Client, r *gmcli.LabelResolver) error {
			return runClearLabels(ctx, c, r, cli.ClearLabels.MessageID, cli.ClearLabels.DryRun, out)
		}, true

	case "unsubscribe <message-id>":
		return func(ctx context.Context, c *gmcli.Client, _ *gmcli.LabelResolver) error {
			return runUnsubscribe(ctx, c, cli.Unsubscribe.MessageID, cli.Unsubscribe.Open, oauth.OpenURL, out)
		}, true
	}
	return nil, false
}
