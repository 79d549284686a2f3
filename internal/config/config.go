// Package config builds the skirmishd CLI command, binding flags to
// environment variables under the SKIRMISH_ prefix. Grounded on
// Seednode-partybox's newCmd: a cobra.Command with a pflag.FlagSet whose
// every flag is mirrored into viper for env-var fallback.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"skirmish/internal/authority"
	"skirmish/internal/protocol"
)

// Config is the fully resolved set of CLI/env inputs for one run of
// skirmishd (§6 CLI/env table).
type Config struct {
	Host           string
	Port           int
	WebHost        string
	WebPort        int
	AutoStart      bool
	MinPlayers     int
	ReadyRequired  bool
	ReadyTimeout   float64
	StartDelay     float64
	ResetDelay     float64
	MapName        string
	AdminToken     string
	MapsDir        string
	MinigamesDir   string
}

// Addr returns the TCP listen address for the match transport.
func (c *Config) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// AdminAddr returns the HTTP listen address for the admin façade.
func (c *Config) AdminAddr() string { return fmt.Sprintf("%s:%d", c.WebHost, c.WebPort) }

// AuthorityConfig projects the subset consumed by authority.Config.
func (c *Config) AuthorityConfig() authority.Config {
	return authority.Config{
		AutoStart:     c.AutoStart,
		MinPlayers:    c.MinPlayers,
		ReadyRequired: c.ReadyRequired,
		ReadyTimeout:  c.ReadyTimeout,
		StartDelay:    c.StartDelay,
		ResetDelay:    c.ResetDelay,
		MapName:       c.MapName,
	}
}

// NewCommand builds the root cobra command; run is invoked with the fully
// bound Config once flags, env vars and validation have all resolved.
func NewCommand(run func(*Config) error) *cobra.Command {
	cfg := &Config{}
	v := viper.New()
	v.SetEnvPrefix("SKIRMISH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "skirmishd",
		Short:         "Authoritative match server for the arena battle-royale core.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       protocol.GameVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg)
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVar(&cfg.Host, "host", protocol.DefaultHost, "address the match transport binds to (env: SKIRMISH_HOST)")
	fs.IntVar(&cfg.Port, "port", protocol.DefaultPort, "port the match transport binds to (env: SKIRMISH_PORT)")
	fs.StringVar(&cfg.WebHost, "web-host", protocol.DefaultAdminHost, "address the admin façade binds to (env: SKIRMISH_WEB_HOST)")
	fs.IntVar(&cfg.WebPort, "web-port", protocol.DefaultAdminPort, "port the admin façade binds to (env: SKIRMISH_WEB_PORT)")
	fs.BoolVar(&cfg.AutoStart, "auto-start", true, "start automatically once the lobby is eligible (env: SKIRMISH_AUTO_START)")
	fs.IntVar(&cfg.MinPlayers, "min-players", 2, "minimum players before auto-start is eligible (env: SKIRMISH_MIN_PLAYERS)")
	fs.BoolVar(&cfg.ReadyRequired, "ready-required", true, "require all players ready before auto-start (env: SKIRMISH_READY_REQUIRED)")
	fs.Float64Var(&cfg.ReadyTimeout, "ready-timeout", 15, "seconds before ready is no longer required, once eligible by headcount (env: SKIRMISH_READY_TIMEOUT)")
	fs.Float64Var(&cfg.StartDelay, "start-delay", 3, "countdown seconds once eligible before auto-start fires (env: SKIRMISH_START_DELAY)")
	fs.Float64Var(&cfg.ResetDelay, "reset-delay", 5, "seconds after match end before the lobby resets (env: SKIRMISH_RESET_DELAY)")
	fs.StringVar(&cfg.MapName, "map-name", "test_arena", "map document to load for matches (env: SKIRMISH_MAP_NAME)")
	fs.StringVar(&cfg.MapsDir, "maps-dir", "data/maps", "directory containing map documents (env: SKIRMISH_MAPS_DIR)")
	fs.StringVar(&cfg.MinigamesDir, "minigames-dir", "data/minigames", "directory containing minigame manifests (env: SKIRMISH_MINIGAMES_DIR)")
	fs.StringVar(&cfg.AdminToken, "admin-token", "", "shared secret required on admin POSTs via X-Admin-Token (env: HEADLESS_ADMIN_TOKEN)")

	_ = v.BindEnv("admin-token", "HEADLESS_ADMIN_TOKEN")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	return cmd
}
