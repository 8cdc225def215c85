package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"timeblocks/internal/bootstrap"
	reconciledto "timeblocks/internal/modules/reconcile/dto"
	"timeblocks/internal/platform/config"
	"timeblocks/internal/platform/logging"
	"timeblocks/internal/ui/printers"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	dataDir string
	flags   *pflag.FlagSet
}

// flagKeys maps persistent flags onto viper keys.
var flagKeys = map[string]string{
	"namespace":   "namespace",
	"remote":      "remote.kind",
	"remote-url":  "remote.url",
	"remote-dir":  "remote.dir",
	"auth-plugin": "identity.plugin",
	"log-level":   "log.level",
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "timeblocks",
		Short:         "Countdown in day blocks, synced across devices",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.dataDir, "data-dir", "", "directory for local state (default: user config dir)")
	flags.String("namespace", "", "remote document namespace")
	flags.String("remote", "", "remote store: http|dir|none")
	flags.String("remote-url", "", "document server base URL for the http remote")
	flags.String("remote-dir", "", "shared directory for the dir remote")
	flags.String("auth-plugin", "", "authenticator plugin binary used by login")
	flags.String("log-level", "", "log level: trace|debug|info|warn|error")
	opts.flags = flags

	root.AddCommand(newTUICmd(opts))
	root.AddCommand(newStatusCmd(opts))
	root.AddCommand(newSetCmd(opts))
	root.AddCommand(newLoginCmd(opts))
	root.AddCommand(newLogoutCmd(opts))
	root.AddCommand(newWhoamiCmd(opts))
	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newMCPCmd(opts))
	return root
}

func loadConfig(opts *rootOptions, bind func(v *viper.Viper) error) (config.Config, error) {
	v := config.NewViper(opts.dataDir)
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, opts.flags.Lookup(name)); err != nil {
			return config.Config{}, fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	if bind != nil {
		if err := bind(v); err != nil {
			return config.Config{}, err
		}
	}
	return config.Load(v)
}

func loadApp(opts *rootOptions) (*bootstrap.App, error) {
	cfg, err := loadConfig(opts, nil)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(cfg, logging.New(cfg.LogLevel, os.Stderr))
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newTUICmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the countdown terminal UI",
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()
			ctx, stop := signalContext()
			defer stop()
			return bootstrap.RunTUI(ctx, app)
		},
	}
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the countdown and its sync state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()
			ctx, stop := signalContext()
			defer stop()
			state, err := app.CountdownCLI.Status(ctx)
			if err != nil {
				return err
			}
			return printState(cmd.OutOrStdout(), state, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the state as JSON")
	return cmd
}

func newSetCmd(opts *rootOptions) *cobra.Command {
	var topic, start, target string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change the topic or dates; only given flags are changed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			input := reconciledto.EditInput{}
			if cmd.Flags().Changed("topic") {
				input.Topic = &topic
			}
			if cmd.Flags().Changed("start") {
				input.StartDate = &start
			}
			if cmd.Flags().Changed("target") {
				input.TargetDate = &target
			}
			if input.Topic == nil && input.StartDate == nil && input.TargetDate == nil {
				return fmt.Errorf("nothing to change: pass --topic, --start or --target")
			}

			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()
			ctx, stop := signalContext()
			defer stop()
			state, err := app.CountdownCLI.Set(ctx, input)
			if err != nil {
				return err
			}
			return printState(cmd.OutOrStdout(), state, asJSON)
		},
	}
	cmd.Flags().StringVar(&topic, "topic", "", "what the countdown is for")
	cmd.Flags().StringVar(&start, "start", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&target, "target", "", "target day, YYYY-MM-DD")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the state as JSON")
	return cmd
}

func newLoginCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Upgrade to a verified account through the authenticator plugin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()
			ctx, stop := signalContext()
			defer stop()
			state, err := app.CountdownCLI.Login(ctx)
			printers.Status(cmd.OutOrStdout(), state)
			return err
		},
	}
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and continue with a new anonymous identity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()
			ctx, stop := signalContext()
			defer stop()
			state, err := app.CountdownCLI.Logout(ctx)
			printers.Status(cmd.OutOrStdout(), state)
			return err
		},
	}
}

func newWhoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the identity documents are synced under",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()
			identity, err := app.IdentityCLI.Whoami(context.Background())
			if err != nil {
				return err
			}
			printers.Identity(cmd.OutOrStdout(), identity)
			return nil
		},
	}
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the document server that http remotes sync against",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts, func(v *viper.Viper) error {
				if err := v.BindPFlag("server.addr", cmd.Flags().Lookup("addr")); err != nil {
					return err
				}
				return v.BindPFlag("server.db", cmd.Flags().Lookup("db"))
			})
			if err != nil {
				return err
			}
			server, err := bootstrap.NewServer(cfg, logging.New(cfg.LogLevel, os.Stderr))
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()
			return server.Run(ctx)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default :8787)")
	cmd.Flags().String("db", "", "sqlite database path")
	return cmd
}

func newMCPCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve countdown tools over MCP stdio",
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()
			ctx, stop := signalContext()
			defer stop()
			return bootstrap.RunMCP(ctx, app, version)
		},
	}
}

func printState(w io.Writer, state reconciledto.StateOutput, asJSON bool) error {
	if !asJSON {
		printers.Status(w, state)
		return nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(state)
}
