package palette

import (
	"encoding/json"
	"errors"
	"testing"

	"youth-cms-backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDoc() *Document {
	colors := make(map[string]map[string]string, len(ColorFamilies))
	for _, family := range ColorFamilies {
		shades := make(map[string]string, len(ShadeKeys))
		for _, shade := range ShadeKeys {
			shades[shade] = "#1a2b3c"
		}
		colors[family] = shades
	}
	return &Document{
		Version:  1,
		Name:     "Summer Camp 2026",
		Colors:   colors,
		Semantic: map[string]string{"link": "#0066cc", "focus": "#f90"},
		Metadata: map[string]string{"author": "org-a"},
	}
}

func marshal(t *testing.T, doc *Document) []byte {
	t.Helper()
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	return raw
}

func TestParseValidDocument(t *testing.T) {
	doc, err := Parse(marshal(t, validDoc()))
	require.NoError(t, err)
	assert.Equal(t, "Summer Camp 2026", doc.Name)
	assert.Len(t, doc.Colors, 7)
}

func TestParseRejectsNonJSON(t *testing.T) {
	_, err := Parse([]byte("not json"))
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestParseRejectsMissingTopLevelKeys(t *testing.T) {
	for _, key := range []string{"version", "name", "colors", "semantic", "metadata"} {
		var top map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(marshal(t, validDoc()), &top))
		delete(top, key)
		raw, err := json.Marshal(top)
		require.NoError(t, err)

		_, err = Parse(raw)
		require.Error(t, err, "key=%s", key)
		assert.True(t, errors.Is(err, apperrors.ErrValidation))
		assert.Contains(t, err.Error(), key)
	}
}

func TestParseRejectsMissingErrorFamily(t *testing.T) {
	doc := validDoc()
	delete(doc.Colors, "error")

	_, err := Parse(marshal(t, doc))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
	assert.Contains(t, err.Error(), `"error"`)
}

func TestParseRejectsMissingShade(t *testing.T) {
	doc := validDoc()
	delete(doc.Colors["primary"], "950")

	_, err := Parse(marshal(t, doc))
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestParseRejectsExtraShade(t *testing.T) {
	doc := validDoc()
	doc.Colors["primary"]["975"] = "#ffffff"

	_, err := Parse(marshal(t, doc))
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestParseRejectsExtraFamily(t *testing.T) {
	doc := validDoc()
	doc.Colors["tertiary"] = doc.Colors["primary"]

	_, err := Parse(marshal(t, doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tertiary")
}

func TestParseRejectsBadHex(t *testing.T) {
	for _, bad := range []string{"red", "#12345", "1a2b3c", "#gggggg", ""} {
		doc := validDoc()
		doc.Colors["accent"]["500"] = bad

		_, err := Parse(marshal(t, doc))
		assert.True(t, errors.Is(err, apperrors.ErrValidation), "value=%q", bad)
	}
}

func TestParseAcceptsShortHex(t *testing.T) {
	doc := validDoc()
	doc.Colors["accent"]["500"] = "#f0a"

	_, err := Parse(marshal(t, doc))
	assert.NoError(t, err)
}

func TestParseRejectsBadSemanticColor(t *testing.T) {
	doc := validDoc()
	doc.Semantic["link"] = "blue"

	_, err := Parse(marshal(t, doc))
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestParseRejectsZeroVersionAndEmptyName(t *testing.T) {
	doc := validDoc()
	doc.Version = 0
	_, err := Parse(marshal(t, doc))
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	doc = validDoc()
	doc.Name = "  "
	_, err = Parse(marshal(t, doc))
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}
