package id

import "strings"

var keyPartEscaper = strings.NewReplacer("%", "%25", ":", "%3A")

// Compose joins the parts of a composite key into a single storage id,
// separated by ':'. Each part has '%' and ':' percent-escaped, so distinct
// part lists never produce the same id. Parts without either character are
// joined unchanged.
func Compose(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = keyPartEscaper.Replace(p)
	}
	return strings.Join(escaped, ":")
}
