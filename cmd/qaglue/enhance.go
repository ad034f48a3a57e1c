package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/qaplatform/qaglue/internal/errors"
	"github.com/qaplatform/qaglue/pkg/dom"
	"github.com/qaplatform/qaglue/pkg/enhance"
	"github.com/qaplatform/qaglue/pkg/toast"
)

func enhanceCmd(g *globalFlags) *cobra.Command {
	var highlight bool

	cmd := &cobra.Command{
		Use:   "enhance <file.html>",
		Short: "Apply content enhancements to an HTML file",
		Long: `Add copy buttons to code blocks, harden external links and stage
card animations, then write the page to stdout.

Examples:
  qaglue enhance question.html > out.html
  qaglue enhance --highlight question.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("highlight") {
				cfg.Enhance.Highlight = highlight
			}

			f, err := os.Open(args[0])
			if err != nil {
				return errors.New("Q151").WithDetail(args[0]).Wrap(err)
			}
			defer f.Close()

			doc, err := dom.Parse(f)
			if err != nil {
				return errors.New("Q151").WithDetail("parsing " + args[0]).Wrap(err)
			}

			enhance.New(doc, toast.NewManager(),
				enhance.WithLogger(g.logger(cmd.ErrOrStderr())),
				enhance.WithHighlighting(cfg.Enhance.Highlight),
			).Enhance()

			return doc.Render(cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&highlight, "highlight", false, "Syntax-highlight code blocks (default from config)")

	return cmd
}
