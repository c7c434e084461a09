package templates

import (
	"bytes"
	"fmt"
	"strings"
	texttemplate "text/template"
	"time"
	"unicode"
)

// Render renders a subject or body containing {{.Var}} placeholders against a
// context map. A missing key renders as an empty string rather than failing
// the send.
func Render(templateStr string, context map[string]interface{}) (string, error) {
	if !strings.Contains(templateStr, "{{") {
		return templateStr, nil
	}

	tmpl, err := texttemplate.New("message").Option("missingkey=zero").Funcs(funcMap()).Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, context); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}

	return strings.ReplaceAll(buf.String(), "<no value>", ""), nil
}

// BuildContext fills in defaults for the render context. When no explicit
// name is supplied, a human-readable one is derived from the recipient
// address so greetings like "Hello {{.Name}}" stay usable.
func BuildContext(target string, context map[string]interface{}) map[string]interface{} {
	ctx := make(map[string]interface{}, len(context)+2)
	for k, v := range context {
		ctx[k] = v
	}
	if _, ok := ctx["Target"]; !ok {
		ctx["Target"] = target
	}
	if _, ok := ctx["Name"]; !ok {
		ctx["Name"] = DeriveName(target)
	}
	return ctx
}

// DeriveName derives a display name from an email's local-part: separators
// become spaces and each word is capitalized. Non-email targets (phone
// numbers) fall back to a generic greeting.
func DeriveName(target string) string {
	at := strings.Index(target, "@")
	if at <= 0 {
		return "there"
	}

	local := target[:at]
	local = strings.Map(func(r rune) rune {
		switch r {
		case '.', '_', '-', '+':
			return ' '
		}
		return r
	}, local)

	words := strings.Fields(local)
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}

	if len(words) == 0 {
		return "there"
	}
	return strings.Join(words, " ")
}

func funcMap() texttemplate.FuncMap {
	return texttemplate.FuncMap{
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"trim":  strings.TrimSpace,
		"formatDate": func(t interface{}) string {
			switch v := t.(type) {
			case time.Time:
				return v.Format("January 2, 2006")
			case *time.Time:
				if v != nil {
					return v.Format("January 2, 2006")
				}
			case string:
				if parsed, err := time.Parse(time.RFC3339, v); err == nil {
					return parsed.Format("January 2, 2006")
				}
			}
			return ""
		},
	}
}

// WrapLayout wraps a rendered body in the branded HTML email layout.
func WrapLayout(subject, body string) string {
	// Plain-text bodies keep their line breaks inside the layout
	if !strings.Contains(body, "<") {
		body = strings.ReplaceAll(body, "\n", "<br>\n")
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #1D4ED8; color: white; padding: 20px; text-align: center; border-radius: 8px 8px 0 0; }
        .content { background-color: #f9fafb; padding: 30px; border-radius: 0 0 8px 8px; }
        .footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>%s</h1>
        </div>
        <div class="content">
            %s
        </div>
        <div class="footer">
            <p>You are receiving this message because of your registration with us.</p>
        </div>
    </div>
</body>
</html>
`, subject, body)
}

// VerificationCodeMessage is the fixed template for delivering a code
func VerificationCodeMessage(code string, expiresInMinutes int) string {
	return fmt.Sprintf("Your verification code is %s. It expires in %d minutes. If you didn't request this code, please ignore this message.",
		code, expiresInMinutes)
}

// VerificationLinkMessage is the fixed template for delivering a link
func VerificationLinkMessage(link string, expiresInMinutes int) string {
	return fmt.Sprintf("Follow this link to verify: %s (valid for %d minutes). If you didn't request this link, please ignore this message.",
		link, expiresInMinutes)
}
