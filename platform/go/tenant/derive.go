package tenant

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SchemaPrefix is the fixed prefix of every partition schema name.
const SchemaPrefix = "tenant_"

var schemaPattern = regexp.MustCompile(`^tenant_[0-9]+$`)

// BuildSchemaName returns the canonical PostgreSQL schema name for the
// partition owned by the given chat identity. The name is a pure function of
// the identity so it can be recomputed without a registry lookup.
func BuildSchemaName(ownerIdentity int64) string {
	return SchemaPrefix + strconv.FormatInt(ownerIdentity, 10)
}

// OwnerIdentityFromSchema reverses BuildSchemaName.
func OwnerIdentityFromSchema(schemaName string) (int64, error) {
	if !schemaPattern.MatchString(schemaName) {
		return 0, fmt.Errorf("invalid partition schema name %q", schemaName)
	}
	return strconv.ParseInt(strings.TrimPrefix(schemaName, SchemaPrefix), 10, 64)
}

// ValidSchemaName reports whether the stored partition reference matches the
// canonical format. A mismatch against the owner's derived name is a
// data-integrity violation and must be corrected, never trusted.
func ValidSchemaName(schemaName string) bool {
	return schemaPattern.MatchString(schemaName)
}

// Slugify lowercases a display name into a schema-safe suffix used for
// generated usernames (e.g. shop names inside credentials).
func Slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_")
}
