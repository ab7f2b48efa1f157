package codegen

import (
	"strings"
	"unicode"
)

// initialisms are rendered all-caps, matching the Go convention (ID, URL).
var initialisms = map[string]bool{
	"ACL": true, "API": true, "ASCII": true, "CPU": true, "CSS": true,
	"DNS": true, "EOF": true, "GUID": true, "HTML": true, "HTTP": true,
	"HTTPS": true, "ID": true, "IP": true, "JSON": true, "LHS": true,
	"QPS": true, "RAM": true, "RHS": true, "RPC": true, "SKU": true,
	"SLA": true, "SMTP": true, "SQL": true, "SSH": true, "TCP": true,
	"TLS": true, "TTL": true, "UDP": true, "UI": true, "UID": true,
	"URI": true, "URL": true, "UTF8": true, "UUID": true, "VAT": true,
	"VM": true, "XML": true, "XMPP": true, "XSRF": true, "XSS": true,
}

// GoName converts a snake_case database identifier to an exported Go
// identifier: user_account → UserAccount, id → ID, order_url → OrderURL.
// Names that would not start with a letter get an X prefix.
func GoName(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var b strings.Builder
	for _, p := range parts {
		if up := strings.ToUpper(p); initialisms[up] {
			b.WriteString(up)
			continue
		}
		runes := []rune(p)
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}

	name := b.String()
	if name == "" {
		return "X"
	}
	if r := []rune(name)[0]; !unicode.IsLetter(r) || !unicode.IsUpper(r) {
		return "X" + name
	}
	return name
}

// knownSuffixes are file name suffixes the go tool treats as build
// constraints or test markers.
var knownSuffixes = map[string]bool{
	"test": true,
	// GOOS
	"aix": true, "android": true, "darwin": true, "dragonfly": true,
	"freebsd": true, "hurd": true, "illumos": true, "ios": true, "js": true,
	"linux": true, "nacl": true, "netbsd": true, "openbsd": true,
	"plan9": true, "solaris": true, "wasip1": true, "windows": true,
	"zos": true,
	// GOARCH
	"386": true, "amd64": true, "arm": true, "arm64": true, "loong64": true,
	"mips": true, "mipsle": true, "mips64": true, "mips64le": true,
	"ppc64": true, "ppc64le": true, "riscv64": true, "s390x": true,
	"wasm": true,
}

// FileName returns the artifact file name for a table. The name is
// lowercased snake_case and never ends in a suffix the go tool would
// interpret.
func FileName(table string) string {
	parts := strings.FieldsFunc(strings.ToLower(table), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	base := strings.Join(parts, "_")
	if base == "" {
		base = "x"
	}
	if len(parts) > 1 && knownSuffixes[parts[len(parts)-1]] {
		base += "_table"
	}
	if base == strings.TrimSuffix(SharedFile, ".go") {
		base += "_table"
	}
	return base + ".go"
}

// escapeReserved appends "Col" to names that clash with generated methods.
func escapeReserved(name string, reserved map[string]bool) string {
	for reserved[name] {
		name += "Col"
	}
	return name
}
