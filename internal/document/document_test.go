package document

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleDocumentIsValid(t *testing.T) {
	doc := NewSampleDocument()
	require.NoError(t, doc.Validate())
	assert.Equal(t, Version, doc.Version)

	data, err := doc.Marshal()
	require.NoError(t, err)
	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, doc, back)
}

func TestValidateRequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		entity Entity
		field  string
	}{
		{"missing uuid", Entity{Type: TypeConnectPoint, Location: []float64{0, 0}}, "uuid"},
		{"missing type", Entity{UUID: "a", Location: []float64{0, 0}}, "type"},
		{"missing location", Entity{UUID: "a", Type: TypeConnectPoint}, "location"},
		{"text node without text", Entity{UUID: "a", Type: TypeTextNode, Location: []float64{0, 0}}, "text"},
		{"image without path", Entity{UUID: "a", Type: TypeImageNode, Location: []float64{0, 0}}, "path"},
		{"url without url", Entity{UUID: "a", Type: TypeUrlNode, Location: []float64{0, 0}}, "url"},
		{"portal without path", Entity{UUID: "a", Type: TypePortalNode, Location: []float64{0, 0}}, "portalFilePath"},
		{"stroke without content", Entity{UUID: "a", Type: TypePenStroke, Location: []float64{0, 0}}, "content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := New()
			doc.Entities = []Entity{tt.entity}
			err := doc.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMissingField)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidateEmptyTextIsPresent(t *testing.T) {
	doc := New()
	doc.Entities = []Entity{{UUID: "a", Type: TypeTextNode, Location: []float64{0, 0}, Text: Ptr("")}}
	assert.NoError(t, doc.Validate())
}

func TestValidateReferences(t *testing.T) {
	doc := New()
	doc.Entities = []Entity{
		{UUID: "a", Type: TypeTextNode, Location: []float64{0, 0}, Text: Ptr("a")},
		{UUID: "s", Type: TypePenStroke, Location: []float64{0, 0}, Content: Ptr("0,0,1")},
		{UUID: "sec", Type: TypeSection, Location: []float64{0, 0}, Children: []string{"ghost"}},
	}
	doc.Associations = []Association{
		{UUID: "e1", Type: TypeLineEdge, Source: "a", Target: "missing"},
		{UUID: "e2", Type: TypeLineEdge, Source: "a", Target: "s"},
		{UUID: "e3", Type: "core:wormhole", Source: "a", Target: "a"},
		{UUID: "a", Type: TypeLineEdge, Source: "a", Target: "a"},
	}

	err := doc.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownEndpoint)
	assert.ErrorIs(t, err, ErrNotConnectable)
	assert.ErrorIs(t, err, ErrUnknownType)
	assert.ErrorIs(t, err, ErrDuplicateUUID)
	assert.Contains(t, err.Error(), "ghost")
}

func TestParseRejectsBadJSON(t *testing.T) {
	_, err := Parse([]byte(`{"version": 17, "entities": [`))
	require.Error(t, err)

	_, err = Parse([]byte(`{"version": 17, "entities": [{"uuid": "a", "type": "core:text_node"}]}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingField))
}

func TestEntityLookup(t *testing.T) {
	doc := NewSampleDocument()
	first := doc.Entities[0]
	got, ok := doc.Entity(first.UUID)
	require.True(t, ok)
	assert.Equal(t, first.UUID, got.UUID)

	_, ok = doc.Entity("nope")
	assert.False(t, ok)
}
