package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/dshills/picorope/internal/app"
	"github.com/dshills/picorope/internal/config"
)

// cli carries state shared by the commands of one invocation.
type cli struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string
	logFormat  string

	app *app.Application
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "picorope",
		Short: "Exercise and render with persistent refcounted ropes",
		Long: `picorope drives an immutable, reference-counted rope library.

It can stress the library with deep append chains and check that every
node is reclaimed, and it can render Lua templates that build text with
the rope module.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", "", "config file (.toml, .yaml or .yml)")
	flags.StringVar(&c.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.StringVar(&c.logFormat, "log-format", "text", "log format (text, json)")

	root.AddCommand(
		newStressCmd(c),
		newRenderCmd(c),
		newVersionCmd(c),
	)
	return root
}

// setup loads configuration, applies flags the user set explicitly and
// builds the application.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[annotationNoApp] == "true" {
		return nil
	}

	cfg := config.New(config.WithFile(c.configPath))
	if err := applyFlags(cmd, cfg, map[string]string{
		"log-level":  "logging.level",
		"log-format": "logging.format",
	}); err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg, cmd.Annotations); err != nil {
		return err
	}
	if err := cfg.Load(cmd.Context()); err != nil {
		return err
	}

	application, err := app.New(cfg, app.Options{Stdout: c.stdout, Stderr: c.stderr})
	if err != nil {
		return err
	}
	c.app = application
	return nil
}

// annotationNoApp marks commands that run without configuration.
const annotationNoApp = "picorope.noapp"

// applyFlags copies each changed flag named in mapping to its config path.
// Mapping keys that are not flags are ignored.
func applyFlags(cmd *cobra.Command, cfg *config.Config, mapping map[string]string) error {
	for name, path := range mapping {
		flag := cmd.Flags().Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := cfg.Set(path, flagValue(cmd, name)); err != nil {
			return err
		}
	}
	return nil
}

// flagValue returns the typed value of a flag.
func flagValue(cmd *cobra.Command, name string) any {
	flags := cmd.Flags()
	switch flags.Lookup(name).Value.Type() {
	case "int":
		v, _ := flags.GetInt(name)
		return v
	case "int64":
		v, _ := flags.GetInt64(name)
		return v
	case "bool":
		v, _ := flags.GetBool(name)
		return v
	case "duration":
		v, _ := flags.GetDuration(name)
		return v
	default:
		return flags.Lookup(name).Value.String()
	}
}
