package version

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sidkik/foldersync/pkg/version"
)

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	stdout = &out

	cmd := New()
	cmd.SetArgs([]string{})
	assert.NoError(t, cmd.Execute())
	assert.Equal(t, "foldersync version: "+version.Version+"\n", out.String())
}
