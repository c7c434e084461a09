package templates

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSubstitutesVariables(t *testing.T) {
	out, err := Render("Hello {{.Name}}, your order {{.OrderID}} shipped", map[string]interface{}{
		"Name":    "Alice",
		"OrderID": "A-1042",
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello Alice, your order A-1042 shipped", out)
}

func TestRenderMissingKeyIsEmpty(t *testing.T) {
	out, err := Render("Hello {{.Name}}", map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, "Hello ", out)
}

func TestRenderPlainTextPassesThrough(t *testing.T) {
	out, err := Render("No placeholders here", nil)
	require.NoError(t, err)
	assert.Equal(t, "No placeholders here", out)
}

func TestRenderMalformedTemplate(t *testing.T) {
	_, err := Render("Hello {{.Name", nil)
	assert.Error(t, err)
}

func TestRenderFuncs(t *testing.T) {
	out, err := Render("{{upper .Name}} / {{lower .Code}}", map[string]interface{}{
		"Name": "alice",
		"Code": "ABC",
	})
	require.NoError(t, err)
	assert.Equal(t, "ALICE / abc", out)
}

func TestBuildContextFillsDefaults(t *testing.T) {
	ctx := BuildContext("jane.doe@example.com", map[string]interface{}{"Extra": 1})

	assert.Equal(t, "jane.doe@example.com", ctx["Target"])
	assert.Equal(t, "Jane Doe", ctx["Name"])
	assert.Equal(t, 1, ctx["Extra"])
}

func TestBuildContextKeepsExplicitName(t *testing.T) {
	ctx := BuildContext("jane.doe@example.com", map[string]interface{}{"Name": "Dr. Doe"})
	assert.Equal(t, "Dr. Doe", ctx["Name"])
}

func TestDeriveName(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"jane.doe@example.com", "Jane Doe"},
		{"bob_smith@example.com", "Bob Smith"},
		{"carol-jones+test@example.com", "Carol Jones Test"},
		{"single@example.com", "Single"},
		{"+15551234567", "there"},
		{"@example.com", "there"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DeriveName(tt.target), "DeriveName(%q)", tt.target)
	}
}

func TestWrapLayout(t *testing.T) {
	html := WrapLayout("Welcome", "line one\nline two")

	assert.Contains(t, html, "<h1>Welcome</h1>")
	assert.Contains(t, html, "line one<br>")
	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
}

func TestWrapLayoutKeepsHTMLBody(t *testing.T) {
	html := WrapLayout("Welcome", "<p>already html</p>")
	assert.Contains(t, html, "<p>already html</p>")
	assert.NotContains(t, html, "<br>")
}

func TestVerificationMessages(t *testing.T) {
	msg := VerificationCodeMessage("123456", 10)
	assert.Contains(t, msg, "123456")
	assert.Contains(t, msg, "10 minutes")

	msg = VerificationLinkMessage("https://example.com/v/abc", 60)
	assert.Contains(t, msg, "https://example.com/v/abc")
	assert.Contains(t, msg, "60 minutes")
}
