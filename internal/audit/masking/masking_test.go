package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskText(t *testing.T) {
	assert.Equal(t, "", MaskText("  "))
	assert.Equal(t, "****", MaskText("abc"))
	assert.Equal(t, "****, 10", MaskText("Rua das Flores, 10"))
}

func TestMaskPersonal(t *testing.T) {
	address := "Av. Brasil 500"
	input := map[string]any{
		"old_status":       "registered",
		"endereco_coleta":  "Rua das Flores, 10",
		"endereco_entrega": &address,
		"nested": map[string]any{
			"localizacao": "Centro",
			"note":        "fragile",
		},
		"": "dropped",
	}

	out := MaskPersonal(input)

	assert.Equal(t, "registered", out["old_status"])
	assert.Equal(t, "****, 10", out["endereco_coleta"])
	assert.Equal(t, "**** 500", out["endereco_entrega"])
	nested := out["nested"].(map[string]any)
	assert.Equal(t, "****ntro", nested["localizacao"])
	assert.Equal(t, "fragile", nested["note"])
	assert.NotContains(t, out, "")
	assert.Equal(t, "Rua das Flores, 10", input["endereco_coleta"])
	assert.Nil(t, MaskPersonal(nil))
}
