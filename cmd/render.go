package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/capstruct/internal/docio"
	"github.com/sells-group/capstruct/internal/model"
	"github.com/sells-group/capstruct/internal/render"
)

var renderOut string

var renderCmd = &cobra.Command{
	Use:   "render <built.json>",
	Short: "Render a built document as an HTML table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := docio.ReadJSON[model.CapitalStructure](args[0])
		if err != nil {
			return err
		}

		html := render.Render(doc)
		if renderOut == "" {
			fmt.Fprintln(os.Stdout, html)
			return nil
		}
		if err := os.WriteFile(renderOut, []byte(html), 0o644); err != nil {
			return eris.Wrap(err, "write html")
		}
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVar(&renderOut, "out", "", "output HTML path (default stdout)")
	rootCmd.AddCommand(renderCmd)
}
