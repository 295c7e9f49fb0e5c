package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/procharness/internal/lesson"
)

func TestList_DefaultProfile(t *testing.T) {
	stdout, _, code := execute(t, "list")
	require.Equal(t, ExitSuccess, code)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	assert.Equal(t, "noop", lines[0])
	assert.Contains(t, stdout, "will_panic [expect panic]\n")
	assert.NotContains(t, stdout, "loops")
	assert.NotContains(t, stdout, "aborts")
	assert.Contains(t, stdout, "19 case(s) selected by profile default")
}

func TestList_ProfileShowsTags(t *testing.T) {
	profile := writeProfile(t, "all.yaml", "name: everything\n")

	stdout, _, code := execute(t, "list", "--profile", profile, "--filter", "loops,aborts")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "loops (nonterminating)\naborts (fatal)\n\n2 case(s) selected by profile everything\n", stdout)
}

func TestList_JSON(t *testing.T) {
	profile := writeProfile(t, "all.yaml", "name: everything\n")

	stdout, _, code := execute(t, "--format", "json", "list", "--profile", profile)
	require.Equal(t, ExitSuccess, code)

	var resp struct {
		Status string     `json:"status"`
		Data   ListResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, resp.Data.Fingerprint, 64)

	names := make([]string, len(resp.Data.Cases))
	for i, c := range resp.Data.Cases {
		names[i] = c.Name
	}
	assert.Equal(t, lesson.Names(), names)
}

func TestList_InvalidPattern(t *testing.T) {
	_, stderr, code := execute(t, "list", "--filter", "[")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "pattern")
}
