package logger

import (
	"net/url"
	"strings"
)

// DefaultMaskValue replaces sensitive values in log output
const DefaultMaskValue = "***"

// FilterConfig defines which field names are masked in logs
type FilterConfig struct {
	// SensitiveFields are matched case-insensitively as substrings of field names
	SensitiveFields []string
	// MaskValue replaces sensitive data (default: "***")
	MaskValue string
}

// DefaultFilterConfig masks credentials that commonly travel in API call headers
func DefaultFilterConfig() *FilterConfig {
	return &FilterConfig{
		SensitiveFields: []string{
			"password", "passwd", "secret",
			"token", "api_key", "apikey",
			"authorization", "cookie", "session",
			"credential",
		},
		MaskValue: DefaultMaskValue,
	}
}

// SensitiveDataFilter masks sensitive values before they reach the log sink
type SensitiveDataFilter struct {
	config *FilterConfig
}

// NewSensitiveDataFilter creates a new filter with the given configuration
func NewSensitiveDataFilter(config *FilterConfig) *SensitiveDataFilter {
	if config == nil {
		config = DefaultFilterConfig()
	}
	if config.MaskValue == "" {
		config.MaskValue = DefaultMaskValue
	}
	return &SensitiveDataFilter{config: config}
}

// FilterString masks value when key is sensitive. URLs keep their structure
// with only the password portion masked.
func (f *SensitiveDataFilter) FilterString(key, value string) string {
	if value != "" && f.isSensitiveField(key) {
		return f.config.MaskValue
	}
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		return f.maskURL(value)
	}
	return value
}

// FilterValue masks sensitive keys in header-like maps; other values pass through.
func (f *SensitiveDataFilter) FilterValue(key string, value any) any {
	if f.isSensitiveField(key) {
		return f.config.MaskValue
	}
	switch v := value.(type) {
	case map[string]string:
		out := make(map[string]string, len(v))
		for k, s := range v {
			out[k] = f.FilterString(k, s)
		}
		return out
	case map[string]any:
		return f.FilterFields(v)
	case map[string][]string:
		out := make(map[string][]string, len(v))
		for k, vals := range v {
			if f.isSensitiveField(k) {
				out[k] = []string{f.config.MaskValue}
				continue
			}
			out[k] = vals
		}
		return out
	default:
		return value
	}
}

// FilterFields filters a map of fields for sensitive data
func (f *SensitiveDataFilter) FilterFields(fields map[string]any) map[string]any {
	filtered := make(map[string]any, len(fields))
	for key, value := range fields {
		filtered[key] = f.FilterValue(key, value)
	}
	return filtered
}

func (f *SensitiveDataFilter) isSensitiveField(fieldName string) bool {
	lower := strings.ToLower(fieldName)
	for _, s := range f.config.SensitiveFields {
		if strings.Contains(lower, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

// maskURL hides the password in URL user info, leaving the rest intact
func (f *SensitiveDataFilter) maskURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.User == nil {
		return raw
	}
	if _, ok := parsed.User.Password(); !ok {
		return raw
	}
	return f.buildMaskedURL(parsed, parsed.User.Username())
}

// buildMaskedURL writes the URL by hand so the mask is not percent-encoded
func (f *SensitiveDataFilter) buildMaskedURL(parsed *url.URL, username string) string {
	var b strings.Builder

	b.WriteString(parsed.Scheme)
	b.WriteString("://")
	b.WriteString(username)
	b.WriteByte(':')
	b.WriteString(f.config.MaskValue)
	b.WriteByte('@')
	b.WriteString(parsed.Host)

	if p := parsed.EscapedPath(); p != "" {
		b.WriteString(p)
	}
	if q := parsed.RawQuery; q != "" {
		b.WriteByte('?')
		b.WriteString(q)
	}
	if frag := parsed.Fragment; frag != "" {
		b.WriteByte('#')
		b.WriteString(frag)
	}

	return b.String()
}
