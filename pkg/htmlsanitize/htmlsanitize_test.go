package htmlsanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain text unchanged", input: "Cesta básica", want: "Cesta básica"},
		{name: "trims whitespace", input: "  Centro  ", want: "Centro"},
		{name: "strips tags", input: "<b>Rua</b> das Flores", want: "Rua das Flores"},
		{name: "drops scripts", input: `<script>alert("x")</script>Arroz`, want: "Arroz"},
		{name: "keeps apostrophes", input: "D'Ávila & filhos", want: "D'Ávila & filhos"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlainText(tt.input))
		})
	}
}
