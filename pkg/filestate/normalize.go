package filestate

import "strings"

// sep is the path separator used for directory-prefix matching (rename
// subtree sweeps, §4.10). The cache is back-end-path-format agnostic but the
// teacher's own convention, and SMB's, is the backslash.
const sep = '\\'

// Normalize implements the fixed partitioning-key rule from §4.1: split at
// the last directory separator, uppercase ASCII a-z only in the directory
// part, and either preserve or uppercase the file-name part depending on
// caseSensitive. The result is deterministic and allocation-light since it
// sits on the hot open/read/write/close path.
func Normalize(path string, caseSensitive bool) string {
	if path == "" {
		return path
	}
	idx := strings.LastIndexByte(path, sep)
	if !caseSensitive {
		return toUpperASCII(path)
	}
	if idx < 0 {
		return path
	}
	dir := toUpperASCII(path[:idx+1])
	name := path[idx+1:]
	return dir + name
}

// toUpperASCII uppercases only ASCII a-z, leaving every other byte (including
// non-ASCII UTF-8 continuation bytes) untouched.
func toUpperASCII(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		b.WriteByte(c)
	}
	return b.String()
}

// HasPrefixDir reports whether key lies under the folder rooted at prefix,
// i.e. key == prefix or key starts with prefix+sep. Used by the rename
// subtree sweep (§4.10) across C2 and C5.
func HasPrefixDir(key, prefix string) bool {
	if key == prefix {
		return true
	}
	return strings.HasPrefix(key, prefix+string(sep))
}

// RewriteRenamedKey rewrites a key rooted under oldPrefix to the equivalent
// key rooted under newPrefix, preserving the tail past the prefix.
func RewriteRenamedKey(key, oldPrefix, newPrefix string) string {
	if key == oldPrefix {
		return newPrefix
	}
	tail := strings.TrimPrefix(key, oldPrefix+string(sep))
	return newPrefix + string(sep) + tail
}
