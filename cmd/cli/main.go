package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nomis52/rollcall/buildinfo"
	"github.com/nomis52/rollcall/config"
	"github.com/nomis52/rollcall/controller"
	"github.com/nomis52/rollcall/logging"
	"github.com/nomis52/rollcall/metrics"
	"github.com/nomis52/rollcall/notify"
	"github.com/nomis52/rollcall/rosterclient"
	"github.com/nomis52/rollcall/view"
)

type Args struct {
	ConfigPath  string
	ShowVersion bool
	Command     string
	Activity    string
	Email       string
}

var errFailed = errors.New("request failed")

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	args, err := parseArgs()
	if err != nil {
		return err
	}

	if args.ShowVersion {
		showVersion()
		return nil
	}

	cfg, err := config.LoadConfig(args.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Close()

	// Get hostname for metrics
	hostname, err := os.Hostname()
	if err != nil {
		return fmt.Errorf("failed to get hostname: %w", err)
	}

	var registry *metrics.PushRegistry
	opts := []controller.Option{controller.WithLogger(logger.Logger)}
	if cfg.Monitoring.VictoriaMetricsURL != "" {
		registry = metrics.NewPushRegistry(metrics.PushConfig{
			URL:      cfg.Monitoring.VictoriaMetricsURL,
			Prefix:   cfg.Monitoring.MetricsPrefix,
			Job:      cfg.Monitoring.JobName,
			Instance: hostname,
		})
		opts = append(opts, controller.WithMetrics(registry))
	}

	client := rosterclient.New(cfg.Service.URL,
		rosterclient.WithTimeout(cfg.Service.Timeout),
		rosterclient.WithLogger(logger.Logger),
	)
	page := view.NewPage(cfg.Server.Title)
	channel := notify.New(page,
		notify.WithDuration(cfg.Notifications.Duration),
		notify.WithLogger(logger.Logger),
	)
	defer channel.Hide()

	ctrl, err := controller.New(client, page, channel, opts...)
	if err != nil {
		return fmt.Errorf("failed to create controller: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmdErr := execute(ctx, args, ctrl)

	if n, ok := channel.Current(); ok {
		fmt.Printf("[%s] %s\n", n.Kind, n.Text)
		if n.Kind == notify.KindError && cmdErr == nil {
			cmdErr = errFailed
		}
	}
	fmt.Println(page.ListText())

	if registry != nil {
		if err := registry.Push(ctx); err != nil {
			logger.Warn("failed to push metrics", "url", cfg.Monitoring.VictoriaMetricsURL, "error", err)
		}
	}
	return cmdErr
}

// execute runs the command against the controller. The roster is loaded
// first so the printed page reflects the service; the signup values are
// sent as given, so an unknown activity is reported by the service.
func execute(ctx context.Context, args Args, ctrl *controller.Controller) error {
	if err := ctrl.Refresh(ctx); err != nil {
		return err
	}

	switch args.Command {
	case "list":
		return nil
	case "signup":
		ctrl.SubmitSignup(ctx, &view.Event{Form: &view.FormData{
			Activity: args.Activity,
			Email:    args.Email,
		}})
	case "remove":
		ctrl.RequestRemoval(ctx, args.Activity, args.Email)
	}
	return nil
}

func showVersion() {
	props := buildinfo.Get()
	fmt.Printf("rollcall %s\n", props.Version)
	fmt.Printf("Built: %s\n", props.BuildTime)
	fmt.Printf("Commit: %s\n", props.GitCommit)
	fmt.Printf("Go: %s\n", props.GoVersion)
}

func parseArgs() (Args, error) {
	configPath := flag.String("config", "", "Path to config file")
	configPathShort := flag.String("c", "", "Path to config file (shorthand)")
	showVersion := flag.Bool("version", false, "Show version information")
	versionShort := flag.Bool("v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <command> [command options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nActivity signup client\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  list                               List activities and participants\n")
		fmt.Fprintf(os.Stderr, "  signup -activity NAME -email ADDR  Sign a student up for an activity\n")
		fmt.Fprintf(os.Stderr, "  remove -activity NAME -email ADDR  Remove a student from an activity\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -c config.yaml list\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s signup -activity 'Chess Club' -email alex@mergington.edu\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --version\n", os.Args[0])
	}

	flag.Parse()

	path := *configPath
	if path == "" && *configPathShort != "" {
		path = *configPathShort
	}

	args := Args{
		ConfigPath:  path,
		ShowVersion: *showVersion || *versionShort,
	}
	if args.ShowVersion {
		return args, nil
	}

	if flag.NArg() == 0 {
		flag.Usage()
		return args, errors.New("a command is required")
	}
	args.Command = flag.Arg(0)

	switch args.Command {
	case "list":
	case "signup", "remove":
		fs := flag.NewFlagSet(args.Command, flag.ExitOnError)
		activity := fs.String("activity", "", "Activity name")
		email := fs.String("email", "", "Student email")
		if err := fs.Parse(flag.Args()[1:]); err != nil {
			return args, err
		}
		if *activity == "" || *email == "" {
			return args, fmt.Errorf("%s requires -activity and -email", args.Command)
		}
		args.Activity = *activity
		args.Email = *email
	default:
		flag.Usage()
		return args, fmt.Errorf("unknown command %q", args.Command)
	}
	return args, nil
}
