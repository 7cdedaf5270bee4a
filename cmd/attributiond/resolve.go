package main

import (
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/attribution/pkg/scriptconfig"
)

type resolveOutput struct {
	Config      scriptconfig.Config  `yaml:"config"`
	Domains     scriptconfig.Domains `yaml:"domains"`
	Diagnostics []string             `yaml:"diagnostics,omitempty"`
}

func newResolveCmd(load func() (Config, error)) *cobra.Command {
	var host string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Print the configuration a page on --host would run with",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			attrs, err := cfg.Attributes()
			if err != nil {
				return err
			}

			resolved, diags := scriptconfig.Resolve(attrs, host, time.Now())
			out := resolveOutput{Config: resolved, Domains: resolved.Domains()}
			for _, d := range diags {
				out.Diagnostics = append(out.Diagnostics, d.Error())
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(out); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	cmd.Flags().StringVar(&host, "host", "localhost", "hostname of the page")
	return cmd
}
