package main

import (
	"github.com/spf13/cobra"
)

func newRenderCmd(c *cli) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "render <script.lua>",
		Short: "Render a Lua template",
		Long: `render runs a Lua script in a sandbox with the rope module loaded and
writes the script's return value to stdout or to the -o file.`,
		Example: `  picorope render page.lua
  picorope render page.lua -o page.txt --watch`,
		Args: cobra.ExactArgs(1),
		Annotations: map[string]string{
			"output":          "render.output",
			"timeout":         "render.timeout",
			"operation-limit": "render.operationLimit",
			"max-length":      "render.maxLength",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			rc := c.app.Config().Render()
			if watch {
				return c.app.Watch(cmd.Context(), args[0], rc)
			}
			return c.app.Render(cmd.Context(), args[0], rc)
		},
	}

	flags := cmd.Flags()
	flags.StringP("output", "o", "", "write output to this file instead of stdout")
	flags.Duration("timeout", 0, "per-render time limit, 0 for none")
	flags.Int64("operation-limit", 0, "rope module calls allowed per render")
	flags.Int("max-length", 0, "longest rope in bytes a script may build, 0 for no limit")
	flags.BoolVarP(&watch, "watch", "w", false, "re-render whenever the script changes")
	return cmd
}
