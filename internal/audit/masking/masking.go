package masking

import "strings"

const maskToken = "****"

// personalKeys are metadata keys whose values identify a person or a place.
var personalKeys = map[string]struct{}{
	"endereco_coleta":  {},
	"endereco_entrega": {},
	"localizacao":      {},
	"pickup_address":   {},
	"dropoff_address":  {},
}

// MaskText redacts a value while keeping its last four characters.
func MaskText(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	runes := []rune(trimmed)
	if len(runes) <= 4 {
		return maskToken
	}
	return maskToken + string(runes[len(runes)-4:])
}

// MaskPersonal returns a copy of input with personal fields masked at any depth.
// Other values are copied as they are.
func MaskPersonal(input map[string]any) map[string]any {
	if len(input) == 0 {
		return nil
	}

	masked := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		if _, personal := personalKeys[strings.ToLower(trimmedKey)]; personal {
			masked[trimmedKey] = maskValue(value)
			continue
		}
		masked[trimmedKey] = descend(value)
	}

	if len(masked) == 0 {
		return nil
	}
	return masked
}

func descend(value any) any {
	switch cast := value.(type) {
	case map[string]any:
		return MaskPersonal(cast)
	case []any:
		out := make([]any, 0, len(cast))
		for _, item := range cast {
			out = append(out, descend(item))
		}
		return out
	default:
		return value
	}
}

func maskValue(value any) any {
	switch cast := value.(type) {
	case string:
		return MaskText(cast)
	case *string:
		if cast == nil {
			return nil
		}
		return MaskText(*cast)
	case nil:
		return nil
	default:
		return maskToken
	}
}
