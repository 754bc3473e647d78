package constraints

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menzhen/menzhen/pkg/catalog"
)

func TestGetLibrary(t *testing.T) {
	lib := GetLibrary(catalog.MustDefault())
	require.NotEmpty(t, lib.Library)
	assert.Equal(t, lib.Total, lib.Hard+lib.Soft)
	assert.Len(t, lib.Library, lib.Total)

	byName := make(map[string]RuleDefinition)
	for _, def := range lib.Library {
		byName[def.Name] = def
	}

	ndb, ok := byName["no_double_booking"]
	require.True(t, ok)
	assert.Equal(t, "hard", ndb.Type)
	assert.Equal(t, "结构性", ndb.Category)
	assert.Empty(t, ndb.Tiers)

	// 目录中的指定班规则
	pin, ok := byName["r1_health_monday"]
	require.True(t, ok)
	assert.Equal(t, "指定班", pin.Category)
	assert.Equal(t, pin.DisplayName, pin.Description)

	part, ok := byName["health_check_participation"]
	require.True(t, ok)
	assert.Equal(t, "soft", part.Type)

	// 硬规则在前
	seenSoft := false
	for _, def := range lib.Library {
		if def.Type == "soft" {
			seenSoft = true
		} else {
			assert.False(t, seenSoft, "%s 排在软规则之后", def.Name)
		}
	}
}
