package cmd

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/layerlint/internal/rules"
)

func TestRunRules(t *testing.T) {
	registry := rules.DefaultRegistry(zap.NewNop())
	total := len(registry.All())

	var out bytes.Buffer
	require.NoError(t, runRules(&out, registry, []string{"redundantstrings"}))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, total+1)
	assert.Equal(t, fmt.Sprintf("%d rules, %d enabled", total, total-1), lines[total])

	for _, line := range lines[:total] {
		fields := strings.Fields(line)
		switch fields[0] {
		case "RedundantStrings":
			assert.Equal(t, "off", fields[1])
		case "CallNonExistingStrings":
			assert.Equal(t, "on", fields[1])
			assert.Equal(t, "patched", fields[2], "waits for patch resolution")
		default:
			assert.Equal(t, "on", fields[1], fields[0])
		}
	}
}

func TestRunRules_UnknownRule(t *testing.T) {
	var out bytes.Buffer
	err := runRules(&out, rules.DefaultRegistry(zap.NewNop()), []string{"Bogus"})
	assert.ErrorContains(t, err, `unknown rule "Bogus"`)
	assert.Empty(t, out.String())
}

func TestRulesCmd(t *testing.T) {
	cfgFile := createTempConfig(t, "rules:\n  disabled: [DuplicateIds]\n")
	out, err := executeCommand(t, "--config", cfgFile, "rules")
	require.NoError(t, err)
	assert.Contains(t, out, "SchemaValidation")
	assert.Regexp(t, `DuplicateIds\s+off`, out)
}
