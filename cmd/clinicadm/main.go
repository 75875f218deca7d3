// Command clinicadm is the command-line admin console for the clinic API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwalitptl/clinic-admin/config"
	"github.com/jwalitptl/clinic-admin/internal/app"
	"github.com/jwalitptl/clinic-admin/internal/model"
	"github.com/jwalitptl/clinic-admin/internal/notify"
	apperrors "github.com/jwalitptl/clinic-admin/pkg/errors"
	"github.com/jwalitptl/clinic-admin/pkg/logger"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const usageText = `clinicadm admin console
Usage:
  clinicadm [-config file] [-timeout d] <cmd> [args]

Commands:
  version
  login      -email <email> -password <password>     (saves token)
  logout
  whoami
  routes
  list       <doctors|patients|appointments|questions|contents>
             [-page n] [-size 5|10|20|50] [-type t] [-search s] [-owner me]
             [-doctor id] [-patient id]
  search     -q <pattern>                             (local patient search)
  approve    -id <appointment id>
  delete     <doctors|patients|appointments|questions|contents> -id <id> -confirm delete
  answer     -id <question id> -text <answer>
  medicines  -patient <id> [-add "name|dosage|frequency|note"] [-remove <row id>]
  vaccines   -patient <id> [-add "vaccine|date|dose|note"] [-remove <row id>]
  upload     -file <image>
  passwd     -id <doctor id> -password <new> -confirm <new>
`

// errUsage makes run print usage and exit with 2.
var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("clinicadm", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to clinicadm.yml")
	timeout := fs.Duration("timeout", 30*time.Second, "overall command timeout")
	fs.Usage = func() { fmt.Fprint(stderr, usageText) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return 2
	}
	cmd, rest := fs.Arg(0), fs.Args()[1:]

	if cmd == "version" {
		fmt.Fprintf(stdout, "clinicadm %s (%s)\n", version, buildDate)
		return 0
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	log := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     stderr,
		JSON:       cfg.Log.JSON,
	})

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	a, err := app.New(ctx, cfg, log, notify.NewConsole(stderr, log), nil)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	c := &cli{app: a, out: stdout}

	err = c.dispatch(ctx, cmd, rest)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		fs.Usage()
		return 2
	default:
		fmt.Fprintln(stderr, "error:", apperrors.UserMessage(err))
		return 1
	}
}

type cli struct {
	app *app.App
	out io.Writer
}

func (c *cli) dispatch(ctx context.Context, cmd string, args []string) error {
	if cmd == "login" {
		return c.login(ctx, args)
	}

	handlers := map[string]func(context.Context, []string) error{
		"logout":    c.logout,
		"whoami":    c.whoami,
		"routes":    c.routes,
		"list":      c.list,
		"search":    c.search,
		"approve":   c.approve,
		"delete":    c.delete,
		"answer":    c.answer,
		"medicines": c.medicines,
		"vaccines":  c.vaccines,
		"upload":    c.upload,
		"passwd":    c.passwd,
	}
	h, ok := handlers[cmd]
	if !ok {
		return errUsage
	}
	if err := c.requireSession(ctx); err != nil {
		return err
	}
	return h(ctx, args)
}

// requireSession restores the stored session and fails when it is not
// signed in.
func (c *cli) requireSession(ctx context.Context) error {
	state, err := c.app.Gate.Boot(ctx)
	if err != nil {
		return fmt.Errorf("could not reach the API: %w", err)
	}
	if state != model.SignedIn {
		return apperrors.Precondition("not signed in; run clinicadm login")
	}
	return nil
}

func (c *cli) printJSON(v interface{}) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
