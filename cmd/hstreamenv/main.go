// Command hstreamenv brings up an HStream test cluster by hand, generates the
// TLS fixtures the clusters use and looks up captured logs in a run index.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/giantswarm/hstreamenv"
	"github.com/giantswarm/hstreamenv/internal/runindex"
	"github.com/giantswarm/hstreamenv/internal/security"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		envFile    string
		logLevel   string
		cfg        fileConfig
	)

	root := &cobra.Command{
		Use:           "hstreamenv",
		Short:         "Throwaway HStream clusters for tests",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if envFile != "" {
				if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("load %s: %w", envFile, err)
				}
			}
			var level slog.Level
			if err := level.UnmarshalText([]byte(logLevel)); err != nil {
				return fmt.Errorf("--log-level: %w", err)
			}
			hstreamenv.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})).
				With("component", "hstreamenv"))

			var err error
			cfg, err = loadConfig(configPath)
			return err
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("HSTREAMENV_CONFIG"), "path to a YAML config file (env HSTREAMENV_CONFIG)")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment is read, if it exists")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug|info|warn|error")

	root.AddCommand(newUpCmd(&cfg), newFixturesCmd(&cfg), newRunsCmd(&cfg))
	return root
}

func newUpCmd(cfg *fileConfig) *cobra.Command {
	var (
		name string
		tags []string
	)
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Provision a cluster, print its endpoints and tear it down on interrupt",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := cfg.options()
			if err != nil {
				return err
			}
			if len(tags) == 0 {
				tags = cfg.Tags
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ext := hstreamenv.NewExtension(opts...)
			defer ext.Close()

			s, _, err := ext.BeforeEach(ctx, hstreamenv.Invocation{TestName: name, Tags: tags})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "session:   %s\n", s.ID())
			fmt.Fprintf(out, "endpoints: %s\n", s.EndpointList())
			if p := s.Security(); p.Enabled() {
				fmt.Fprintf(out, "tls:       ca=%s\n", filepath.Join(p.FixtureDir, security.CACertFile))
			}
			fmt.Fprintln(out, "press Ctrl-C to tear down")
			<-ctx.Done()

			report := ext.AfterEach(s)
			for _, path := range report.Captured {
				fmt.Fprintf(out, "log: %s\n", path)
			}
			return report.Err()
		},
	}
	cmd.Flags().StringVar(&name, "name", "manual", "name the session is recorded under")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "security tag, repeatable: "+hstreamenv.TagTransportEncryption+"|"+hstreamenv.TagAuthentication)
	return cmd
}

func newFixturesCmd(cfg *fileConfig) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "fixtures",
		Short: "Generate the TLS CA and key pairs secured sessions use",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dir == "" {
				dir = cfg.FixtureDir
			}
			if dir == "" {
				dir = filepath.Join(os.TempDir(), hstreamenv.DefaultFixtureDirName)
			}
			if err := security.EnsureFixtures(dir); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "fixture directory (default from config or the system temp dir)")
	return cmd
}

func newRunsCmd(cfg *fileConfig) *cobra.Command {
	var index string
	cmd := &cobra.Command{
		Use:   "runs TEST_NAME",
		Short: "List recorded sessions of a test and their captured logs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if index == "" {
				index = cfg.RunIndex
			}
			if index == "" {
				return fmt.Errorf("no run index: pass --index or set runIndex")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			x, err := runindex.Open(ctx, index, slog.Default())
			if err != nil {
				return err
			}
			defer x.Close()

			return printRuns(ctx, cmd, x, args[0])
		},
	}
	cmd.Flags().StringVar(&index, "index", "", "run index database (default from config)")
	return cmd
}

func printRuns(ctx context.Context, cmd *cobra.Command, x *runindex.Index, testName string) error {
	sessions, err := x.Sessions(ctx, testName)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tSTARTED\tDURATION\tOUTCOME\tTAGS")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Started.UTC().Format(time.RFC3339), s.Duration.Round(time.Millisecond), s.Outcome, strings.Join(s.Tags, ","))
		artifacts, err := x.Artifacts(ctx, s.ID)
		if err != nil {
			return err
		}
		for _, a := range artifacts {
			fmt.Fprintf(w, "  %s\t%s\t%d bytes\t\t\n", a.Node, a.Path, a.Bytes)
		}
	}
	return w.Flush()
}
