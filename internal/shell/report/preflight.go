package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/manideepv28/delopment-netlify/internal/core/domain"
)

// RenderPreflight writes one line per platform: ready, or the reason the
// credential check failed.
func RenderPreflight(w io.Writer, kinds []domain.PlatformKind, failures map[domain.PlatformKind]error) error {
	var b strings.Builder
	b.WriteString(tableHeader.Render("Credential check") + "\n")
	for _, k := range kinds {
		name := fmt.Sprintf("%-14s", k.DisplayName())
		if err, failed := failures[k]; failed {
			b.WriteString(fmt.Sprintf("  %s %s %s\n", failText.Render("✗"), name, dimText.Render(err.Error())))
			continue
		}
		b.WriteString(fmt.Sprintf("  %s %s %s\n", okText.Render("✓"), name, "ready"))
	}
	_, err := io.WriteString(w, b.String())
	return err
}
