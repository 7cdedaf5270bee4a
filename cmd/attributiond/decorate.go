package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/attribution/pkg/dom"
	"github.com/dmitrymomot/attribution/pkg/logger"
	"github.com/dmitrymomot/attribution/pkg/outbound"
	"github.com/dmitrymomot/attribution/pkg/scriptconfig"
)

type decorateOptions struct {
	clickID      string
	pageURL      string
	scriptConfig string
	scriptSrc    string
	param        string
}

func newDecorateCmd(load func() (Config, error)) *cobra.Command {
	var opts decorateOptions

	cmd := &cobra.Command{
		Use:   "decorate [file]",
		Short: "Append the click id to outbound links of an HTML document",
		Long: `Reads an HTML document from file or stdin, appends the click id to every
link and iframe pointing at an outbound domain and prints the result.

Script attributes come from --script-config, or from the attribution script
tag inside the document when the flag is omitted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			log := cfg.Logger(cmd.ErrOrStderr())

			src, err := readInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			res, out, err := decorateHTML(src, opts)
			if err != nil {
				return err
			}
			if len(res.Errors) > 0 {
				log.WarnContext(cmd.Context(), "elements skipped", logger.Errors(res.Errors...))
			}
			log.InfoContext(cmd.Context(), "document decorated",
				logger.Count("decorated", res.Decorated),
				logger.Count("skipped", res.Skipped),
			)

			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.clickID, "click-id", "", "click id to append (required)")
	f.StringVar(&opts.pageURL, "url", "", "absolute URL the document is served from (required)")
	f.StringVar(&opts.scriptConfig, "script-config", "", "YAML file with script attributes")
	f.StringVar(&opts.scriptSrc, "script-src", "", "substring of the attribution script src when reading attributes from the document")
	f.StringVar(&opts.param, "param", outbound.DefaultParam, "query parameter carrying the click id")
	_ = cmd.MarkFlagRequired("click-id")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}

func readInput(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(args[0])
}

func decorateHTML(src []byte, opts decorateOptions) (outbound.Result, []byte, error) {
	page, err := parsePageURL(opts.pageURL)
	if err != nil {
		return outbound.Result{}, nil, err
	}

	var attrs scriptconfig.Map
	if opts.scriptConfig != "" {
		attrs, err = scriptconfig.LoadYAML(opts.scriptConfig)
	} else {
		attrs, err = scriptconfig.FromHTML(bytes.NewReader(src), opts.scriptSrc)
	}
	if err != nil {
		return outbound.Result{}, nil, err
	}
	cfg, _ := scriptconfig.Resolve(attrs, page.Hostname(), time.Now())
	if cfg.OutboundDomains.Len() == 0 {
		return outbound.Result{}, src, nil
	}

	doc, err := dom.Parse(bytes.NewReader(src), dom.WithBaseURL(page))
	if err != nil {
		return outbound.Result{}, nil, err
	}
	d := outbound.New(cfg.OutboundDomains, page.Hostname(),
		func() string { return opts.clickID },
		outbound.WithParam(opts.param),
	)
	res := d.Decorate(doc)
	if res.Decorated == 0 {
		return res, src, nil
	}

	var out bytes.Buffer
	if err := doc.Render(&out); err != nil {
		return res, nil, err
	}
	return res, out.Bytes(), nil
}

var errRelativePageURL = errors.New("--url must be an absolute http(s) URL")

func parsePageURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("--url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errRelativePageURL
	}
	return u, nil
}
