package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/capstruct/internal/assess"
	"github.com/sells-group/capstruct/internal/docio"
	"github.com/sells-group/capstruct/internal/model"
)

var assessCmd = &cobra.Command{
	Use:   "assess <built.json>",
	Short: "Re-run the self-assessment over a built document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := docio.ReadJSON[model.CapitalStructure](args[0])
		if err != nil {
			return err
		}

		report := assess.Evaluate(doc)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	rootCmd.AddCommand(assessCmd)
}
