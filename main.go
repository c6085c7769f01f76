package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mahyarmirrashed/qpb/internal/app"
	"github.com/mahyarmirrashed/qpb/internal/config"
	"github.com/mahyarmirrashed/qpb/internal/daemon"
	"github.com/mahyarmirrashed/qpb/internal/notify"
	"github.com/mahyarmirrashed/qpb/internal/publish"
	"github.com/mahyarmirrashed/qpb/internal/utils"
	godaemon "github.com/sevlyar/go-daemon"
	log "github.com/sirupsen/logrus"
	altsrc "github.com/urfave/cli-altsrc/v3"
	altsrcyaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Set at build time: go build -ldflags "-X main.version=1.2.3"
var version = "dev"

func init() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
		CallerPrettyfier: func(f *runtime.Frame) (string, string) {
			return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
		},
	})
}

// cliApp carries state shared between the root Before hook and subcommands.
type cliApp struct {
	configFile string
	host       *app.App
}

func main() {
	c := &cliApp{}
	if err := c.command().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func (c *cliApp) command() *cli.Command {
	syncCmd := &cli.Command{
		Name:  "sync",
		Usage: "run the Quartz sync command once",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "ignore-override",
				Usage:   "run the default sync command even if an override is set",
				Sources: cli.EnvVars("QPB_IGNORE_OVERRIDE"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return c.runSync(cmd.Bool("ignore-override"))
		},
	}

	return &cli.Command{
		Name:    "qpb",
		Usage:   "Quartz Publish Button",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to settings file",
				Sources:     cli.EnvVars("QPB_CONFIG"),
				Value:       defaultConfigPath(),
				Destination: &c.configFile,
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "logging level: debug, info, warn, error",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("QPB_LOG_LEVEL"),
					altsrcyaml.YAML("logLevel", altsrc.NewStringPtrSourcer(&c.configFile)),
				),
			},
			&cli.BoolFlag{
				Name:    "notify",
				Usage:   "send desktop notifications",
				Sources: cli.EnvVars("QPB_NOTIFY"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			store := config.NewFileStore(utils.ExpandTilde(c.configFile))
			cfg, err := store.Load()
			if err != nil {
				return ctx, fmt.Errorf("failed to load config: %w", err)
			}

			// Override config with flags if set. These apply to this run only;
			// the host reloads the file so they are never saved back.
			if cmd.IsSet("log-level") {
				cfg.LogLevel = cmd.String("log-level")
			}
			if cmd.IsSet("notify") {
				cfg.Notifications = cmd.Bool("notify")
			}
			utils.SetLogLevel(cfg.LogLevel)

			runner := publish.NewRunner(notify.New(cfg.Notifications))
			c.host, err = app.New(store, runner)
			return ctx, err
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return c.runSync(false)
		},
		Commands: []*cli.Command{
			syncCmd,
			c.configCommand(),
			c.watchCommand(),
		},
	}
}

func defaultConfigPath() string {
	return filepath.Join(utils.ExpandTilde("~"), config.DefaultConfigFilename)
}

// runSync triggers one sync and waits for it. The outcome has already been
// reported by the notifier, so failures only set the exit code.
func (c *cliApp) runSync(ignoreOverride bool) error {
	var out publish.Outcome
	if ignoreOverride {
		out = <-c.host.OnTriggerFixedSync()
	} else {
		out = <-c.host.OnTriggerSync()
	}

	if out.Err != nil {
		return cli.Exit("", 1)
	}
	if s := strings.TrimSpace(out.Stdout); s != "" {
		fmt.Println(s)
	}
	return nil
}

func (c *cliApp) configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "show or edit the settings",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "print the current settings",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg := c.host.Config()
					data, err := yaml.Marshal(&cfg)
					if err != nil {
						return fmt.Errorf("failed to marshal YAML: %w", err)
					}
					fmt.Print(string(data))
					return nil
				},
			},
			{
				Name:      "set-path",
				Usage:     "set the Quartz repository location",
				ArgsUsage: "<path>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() != 1 {
						return cli.Exit("expected exactly one path", 2)
					}
					path := cmd.Args().First()
					if err := c.host.SetQuartzPath(path); err != nil {
						return err
					}
					if err := publish.Validate(config.SyncConfig{QuartzPath: path}); err != nil {
						log.Warn(err)
					}
					return nil
				},
			},
			{
				Name:      "set-override",
				Usage:     "replace the default sync command",
				ArgsUsage: "<command>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() == 0 {
						return cli.Exit("expected a command", 2)
					}
					return c.host.SetCommandOverride(strings.Join(cmd.Args().Slice(), " "))
				},
			},
			{
				Name:  "clear-override",
				Usage: "go back to the default sync command",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return c.host.SetCommandOverride("")
				},
			},
		},
	}
}

func (c *cliApp) watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "sync whenever the Quartz content changes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Usage:   "directory to watch (default: <quartzPath>/content)",
				Sources: cli.EnvVars("QPB_WATCH_ROOT"),
			},
			&cli.StringSliceFlag{
				Name:    "exclude",
				Usage:   "glob patterns to exclude (repeat or comma-separated)",
				Sources: cli.EnvVars("QPB_EXCLUDE"),
			},
			&cli.DurationFlag{
				Name:    "delay",
				Usage:   "quiet period before syncing",
				Sources: cli.EnvVars("QPB_DELAY"),
			},
			&cli.BoolFlag{
				Name:    "daemonize",
				Usage:   "run as daemon",
				Sources: cli.EnvVars("QPB_DAEMONIZE"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := c.host.Config()
			opts := daemon.Options{
				Root:    cfg.WatchRoot,
				Exclude: cfg.Exclude,
				Delay:   cfg.Delay,
			}
			if opts.Root == "" && cfg.QuartzPath != "" {
				opts.Root = filepath.Join(utils.ExpandTilde(cfg.QuartzPath), "content")
			}

			// Override config with flags if set
			if cmd.IsSet("root") {
				opts.Root = cmd.String("root")
			}
			if cmd.IsSet("exclude") {
				var merged []string
				for _, e := range cmd.StringSlice("exclude") {
					merged = append(merged, strings.Split(e, ",")...)
				}
				opts.Exclude = merged
			}
			if cmd.IsSet("delay") {
				opts.Delay = cmd.Duration("delay")
			}

			if err := publish.Validate(cfg.SyncConfig); err != nil {
				return err
			}

			if cmd.Bool("daemonize") {
				daemonCtx := &godaemon.Context{
					PidFileName: "qpb.pid",
					PidFilePerm: 0644,
					LogFileName: "qpb.log",
					LogFilePerm: 0640,
					WorkDir:     "./",
					Umask:       027,
					Args:        append([]string{"[qpb-watch]"}, os.Args[1:]...),
				}

				d, err := daemonCtx.Reborn()
				if err != nil {
					return fmt.Errorf("unable to daemonize: %w", err)
				}
				if d != nil {
					return nil // Parent process exits
				}
				defer daemonCtx.Release()
				log.Info("Daemon started")
			} else {
				log.Info("Running in foreground (not daemonized)")
			}

			return daemon.RunDaemon(ctx, opts, func() {
				c.host.OnTriggerSync()
			})
		},
	}
}
