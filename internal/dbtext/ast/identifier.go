package ast

import "github.com/woralem/dbtext/internal/dbtext/dberr"

// ValidateIdentifier enforces the table/column naming rules of spec.md
// §4.2/§8 against the given options: non-empty, within
// MaxColumnNameLength, not ending in '_', not composed entirely of '-',
// and built only from [A-Za-z0-9_-] plus AdditionalNameChars. This is a
// language-level rule shared by both storage backends, independent of
// the on-disk backend's packed-key character set (which happens to
// cover exactly the same core alphabet).
func ValidateIdentifier(name string, opts TableOptions) error {
	if name == "" {
		return dberr.New(dberr.NameError, "identifier cannot be empty")
	}
	maxLen := opts.MaxColumnNameLength
	if maxLen <= 0 {
		maxLen = 16
	}
	if len(name) > maxLen {
		return dberr.Newf(dberr.NameError, "identifier exceeds maximum length of %d characters", maxLen)
	}
	if name[len(name)-1] == '_' {
		return dberr.New(dberr.NameError, "identifier cannot end with '_'")
	}
	allDashes := true
	for i := 0; i < len(name); i++ {
		if name[i] != '-' {
			allDashes = false
			break
		}
	}
	if allDashes {
		return dberr.New(dberr.NameError, "identifier cannot consist only of '-'")
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if isCoreIdentChar(c) {
			continue
		}
		extra := false
		for j := 0; j < len(opts.AdditionalNameChars); j++ {
			if opts.AdditionalNameChars[j] == c {
				extra = true
				break
			}
		}
		if !extra {
			return dberr.Newf(dberr.NameError, "identifier contains invalid character %q", c)
		}
	}
	return nil
}

func isCoreIdentChar(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z':
		return true
	case c >= 'a' && c <= 'z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '_' || c == '-':
		return true
	}
	return false
}
