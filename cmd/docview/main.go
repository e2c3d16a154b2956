// Command docview reads documents on WebDAV servers and local disk.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/meigma/docview"
	"github.com/meigma/docview/cache/disk"
	"github.com/meigma/docview/internal/config"
)

// app holds the state shared by every subcommand once the root command
// has loaded the configuration.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	cache  *disk.Cache
	client *docview.Client
	closer io.Closer
}

var state app

var rootCmd = &cobra.Command{
	Use:           "docview",
	Short:         "Browse and read documents on WebDAV servers",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return state.load(cmd)
	},
	PersistentPostRunE: func(*cobra.Command, []string) error {
		return state.close()
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", config.DefaultPath(), "Path to the configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "", "Write logs to a rotating file instead of stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "docview:", err)
		os.Exit(1)
	}
}

func (a *app) load(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	explicit := cmd.Flags().Changed("config")
	cfg, err := config.Load(path, !explicit)
	if err != nil {
		return err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if file, _ := cmd.Flags().GetString("log-file"); file != "" {
		cfg.Log.File = file
	}

	logger, closer, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	dc, err := disk.New(cfg.Cache.Dir)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}

	opts := []docview.Option{
		docview.WithLogger(logger),
		docview.WithCredentials(configCredentials{cfg: cfg}),
		docview.WithContentCache(dc),
		docview.WithToucher(dc),
	}
	if cfg.MaxConcurrentPreviews > 0 {
		opts = append(opts, docview.WithMaxConcurrentPreviews(cfg.MaxConcurrentPreviews))
	}
	for _, s := range cfg.Servers {
		opts = append(opts, docview.WithServer(s.ID, s.URL))
	}
	client, err := docview.New(opts...)
	if err != nil {
		return err
	}

	*a = app{cfg: cfg, logger: logger, cache: dc, client: client, closer: closer}
	return nil
}

func (a *app) close() error {
	var errs []error
	if a.client != nil {
		errs = append(errs, a.client.Close())
	}
	if a.closer != nil {
		errs = append(errs, a.closer.Close())
	}
	return errors.Join(errs...)
}

// newLogger builds a text logger writing to w, or to a rotating file when
// cfg.File is set.
func newLogger(cfg config.Log, w io.Writer) (*slog.Logger, io.Closer, error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	var closer io.Closer
	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
		w, closer = lj, lj
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), closer, nil
}

// configCredentials serves Basic auth material from the configuration file.
type configCredentials struct {
	cfg *config.Config
}

func (c configCredentials) Username(serverID string) (string, error) {
	s, err := c.cfg.Server(serverID)
	if err != nil {
		return "", err
	}
	user, _ := s.Credentials()
	return user, nil
}

func (c configCredentials) Password(serverID string) (string, error) {
	s, err := c.cfg.Server(serverID)
	if err != nil {
		return "", err
	}
	_, pass := s.Credentials()
	return pass, nil
}
