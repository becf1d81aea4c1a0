package upgrade

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

var (
	summaryStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	policyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// Confirm presents plan to the operator and asks for go/no-go,
// following the teacher's human-output confirm idiom (huh for the
// prompt, lipgloss for styling the summary shown above it) with a
// --json escape hatch handled by the caller instead of this prompt.
func Confirm(plan *Plan) (bool, error) {
	summary := fmt.Sprintf(
		"%s\n  running:   %s\n  available: %s\n  signer:    %s\n  %s",
		summaryStyle.Render("xmlhub upgrade"),
		plan.Running, plan.AvailableVer, plan.SignerOwner,
		policyStyle.Render(plan.Policy.String()),
	)
	fmt.Println(summary)

	if !plan.Policy.ShouldInstall() {
		return false, nil
	}

	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Proceed with install?").
				Value(&confirmed),
		),
	)
	if err := form.Run(); err != nil {
		return false, fmt.Errorf("confirmation prompt: %w", err)
	}
	return confirmed, nil
}
