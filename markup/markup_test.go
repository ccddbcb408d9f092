package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripExternalLinks(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no links", "Wymieszaj składniki", "Wymieszaj składniki"},
		{"external link", "Zobacz [przepis](https://example.com/a) tutaj", "Zobacz przepis tutaj"},
		{"protocol relative", "[film](//youtube.com/x)", "film"},
		{"internal link kept", "[inny przepis](/recipes/42)", "[inny przepis](/recipes/42)"},
		{"autolink", "więcej: <https://example.com>", "więcej: "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripExternalLinks(tt.in))
		})
	}
}

func TestRecipeHTML(t *testing.T) {
	got := RecipeHTML("## Przygotowanie\n\n1. Ugotuj **ryż**\n2. Dodaj [sos](https://example.com)\n\n<script>alert(1)</script>")
	assert.Contains(t, got, "<h2>Przygotowanie</h2>")
	assert.Contains(t, got, "<strong>ryż</strong>")
	assert.Contains(t, got, "<li>Dodaj sos</li>")
	assert.NotContains(t, got, "example.com")
	assert.NotContains(t, got, "<script>")
	assert.NotContains(t, got, "<br")
	assert.NotContains(t, got, "<p></p>")

	assert.Empty(t, RecipeHTML("  \n "))
}
