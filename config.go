package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind        string
	maxBots     int
	maxPlayers  int
	port        int
	prefix      string
	profile     bool
	reuseScope  string
	roomTimeout time.Duration
	tlsCert     string
	tlsKey      string
	turnWindow  time.Duration
	verbose     bool
	version     bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.maxPlayers < 1 {
		return fmt.Errorf("invalid max players (must be at least 1): %d", c.maxPlayers)
	}
	if c.maxBots < 0 || c.maxBots >= c.maxPlayers {
		return fmt.Errorf("invalid max bots (must be between 0 and %d inclusive): %d", c.maxPlayers-1, c.maxBots)
	}
	if c.turnWindow <= 0 {
		return fmt.Errorf("invalid turn window (must be positive): %s", c.turnWindow)
	}
	if c.reuseScope != "round" && c.reuseScope != "game" {
		return fmt.Errorf("invalid reuse scope (must be \"round\" or \"game\"): %s", c.reuseScope)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("RHYMEBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "rhymebox",
		Short:         "A turn-based word-rhyming party game, served as a single webapp.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: RHYMEBOX_BIND)")
	fs.IntVar(&cfg.maxBots, "max-bots", 2, "maximum bots per room (env: RHYMEBOX_MAX_BOTS)")
	fs.IntVar(&cfg.maxPlayers, "max-players", 5, "maximum players per room, bots included (env: RHYMEBOX_MAX_PLAYERS)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: RHYMEBOX_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: RHYMEBOX_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: RHYMEBOX_PROFILE)")
	fs.StringVar(&cfg.reuseScope, "reuse-scope", "round", "scope in which words cannot be reused, either \"round\" or \"game\" (env: RHYMEBOX_REUSE_SCOPE)")
	fs.DurationVar(&cfg.roomTimeout, "room-timeout", 5*time.Minute, "time before idle rooms are ended (env: RHYMEBOX_ROOM_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: RHYMEBOX_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: RHYMEBOX_TLS_KEY)")
	fs.DurationVar(&cfg.turnWindow, "turn-window", 10*time.Second, "time each player has to answer (env: RHYMEBOX_TURN_WINDOW)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: RHYMEBOX_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: RHYMEBOX_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("rhymebox v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
