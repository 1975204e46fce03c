package cli

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newEndpointsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "endpoints",
		Short: "Show the remote endpoint map and the entry used for conversion",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			resolver, err := cfg.Resolver()
			if err != nil {
				return err
			}

			m, err := resolver.Fetch(commandContextOrBackground(cmd))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Endpoint map: %s\n", resolver.MapURL())

			keys := make([]string, 0, len(m))
			for k := range m {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			active := color.New(color.FgGreen, color.Bold)

			for _, k := range keys {
				if k == resolver.Key() {
					active.Fprintf(out, "* %s = %s\n", k, m[k])
					continue
				}

				fmt.Fprintf(out, "  %s = %s\n", k, m[k])
			}

			if _, ok := m[resolver.Key()]; !ok {
				color.New(color.FgRed).Fprintf(out, "! %s is not configured\n", resolver.Key())
			}

			return nil
		},
	}
}
