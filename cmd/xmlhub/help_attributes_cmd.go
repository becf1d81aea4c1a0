package main

import (
	"fmt"
	"strings"

	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/attributes"
	"github.com/spf13/cobra"
)

var helpAttributesCmd = &cobra.Command{
	Use:   "help-attributes",
	Short: "Describe every recognized XML header attribute",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, spec := range attributes.Table() {
			need := "optional"
			if spec.Need == attributes.Required {
				need = "required"
			}
			derived := ""
			if spec.IsDerived() {
				derived = fmt.Sprintf(" (derived from %s)", strings.Join(spec.DerivesFrom, ", "))
			}
			fmt.Printf("%-24s %-8s %s%s\n", spec.Name, need, spec.Description, derived)
		}
		return nil
	},
}
