package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferBasePrompt_Table(t *testing.T) {
	assert.Equal(t, "Generate diverse user profiles with realistic personal information", InferBasePrompt("AdminUser"))
	assert.Equal(t, "Generate realistic order data with proper quantities and totals", InferBasePrompt("PurchaseOrder"))
	assert.Equal(t, "Generate realistic widget data", InferBasePrompt("Widget"))
}

func TestEnhance_DefaultsAndOrder(t *testing.T) {
	off := false
	out := Enhance("base", Options{
		Diverse:  &off,
		Season:   "winter",
		Country:  "Brazil",
		AgeRange: &[2]int{18, 30},
		Budget:   true,
	})
	want := "base\n\n" +
		"Ensure all data is realistic and plausible.\n" +
		"Use Brazil country-specific conventions.\n" +
		"Ages should be between 18 and 30.\n" +
		"Consider winter seasonal context.\n" +
		"Focus on budget-friendly, economical options."
	assert.Equal(t, want, out)
}

func TestEnhance_NothingToAdd(t *testing.T) {
	off := false
	assert.Equal(t, "base", Enhance("base", Options{Realistic: &off, Diverse: &off}))
}

func TestOptionsFromMap_IgnoresUnknown(t *testing.T) {
	o, err := OptionsFromMap(map[string]any{
		"region":       "EU",
		"age_range":    "40-25",
		"professional": "true",
		"mood":         "cheerful",
	})
	require.NoError(t, err)
	assert.Equal(t, "EU", o.Region)
	assert.Equal(t, [2]int{25, 40}, *o.AgeRange)
	assert.True(t, o.Professional)
}

func TestOptionsFromMap_BadBool(t *testing.T) {
	_, err := OptionsFromMap(map[string]any{"premium": "sometimes"})
	require.Error(t, err)
}

func TestBuildSystemPrompt_Correlated(t *testing.T) {
	plain := BuildSystemPrompt("Order", false)
	assert.True(t, strings.HasPrefix(plain, "Generate realistic, varied Order data.\n\nCORE RULES:\n- Always return valid data"))
	assert.NotContains(t, plain, "CORRELATION RULES")

	corr := BuildSystemPrompt("Order", true)
	assert.Contains(t, corr, "CORRELATION RULES:\n- MUST use only the exact IDs provided in the context")
	assert.Contains(t, corr, "- Do NOT create new IDs - only reference existing ones")
}

func TestBuildCorrelationPrompt(t *testing.T) {
	assert.Equal(t, "base", BuildCorrelationPrompt("base", "  "))

	out := BuildCorrelationPrompt("base", "Available User instances to reference:\n  - {\"id\": 1}")
	assert.Equal(t, "base\n\nCRITICAL CORRELATION REQUIREMENTS:\nAvailable User instances to reference:\n  - {\"id\": 1}\n\n"+ReferentialIntegrityNotice, out)
}

func TestBatchAndRetryPrompts(t *testing.T) {
	b := BuildBatchPrompt("User", "people", 3)
	assert.True(t, strings.HasPrefix(b, "Generate exactly 3 different, varied instances of User."))
	assert.Contains(t, b, "Original prompt: people")
	assert.Equal(t, "people (Attempt 2: Please ensure valid JSON format)", RetryPrompt("people", 2))
}

func TestNormalizePrompts(t *testing.T) {
	names := []string{"User", "Order"}

	all, err := NormalizePrompts("shop data", names)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"User": "shop data", "Order": "shop data"}, all)

	some, err := NormalizePrompts(map[string]string{"User": "admins"}, names)
	require.NoError(t, err)
	assert.Equal(t, "admins", some["User"])
	assert.Equal(t, "Generate realistic order data", some["Order"])

	none, err := NormalizePrompts(nil, names)
	require.NoError(t, err)
	assert.Len(t, none, 2)

	_, err = NormalizePrompts(42, names)
	require.Error(t, err)
}
