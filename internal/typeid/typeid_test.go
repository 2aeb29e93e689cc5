package typeid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCarriesPrefix(t *testing.T) {
	for _, prefix := range []string{PrefixProject, PrefixAttachment, PrefixClient, PrefixExport} {
		id := New(prefix)
		assert.True(t, strings.HasPrefix(id, prefix+"_"), id)
		require.NoError(t, Validate(id, prefix))
	}
}

func TestValidateRejectsWrongPrefix(t *testing.T) {
	err := Validate(NewProjectID(), PrefixAttachment)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected prefix")

	assert.Error(t, Validate("not an id", PrefixProject))
}
