package filter

import "strings"

// input prefixes, checked in order after an optional leading '-'.
var inputPrefixes = []struct {
	prefix string
	kind   Kind
}{
	{"#", KindTag},
	{"folder:", KindFolder},
	{"strictfolder:", KindStrictFolder},
	{"title:", KindTitle},
	{"url:", KindURL},
}

// ParseInput turns one line of filter-box text into a filter:
//
//	#js            tag
//	-#js           negated tag
//	folder:12      folder and descendants
//	strictfolder:12
//	title:guide
//	url:github.com
//	anything else  title or URL
func ParseInput(s string) (Filter, error) {
	s = strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(s, "-") && len(s) > 1 {
		negative = true
		s = s[1:]
	}
	for _, p := range inputPrefixes {
		if strings.HasPrefix(s, p.prefix) {
			return New(p.kind, strings.TrimSpace(s[len(p.prefix):]), negative)
		}
	}
	return New(KindAny, s, negative)
}

// FormatInput is the inverse of ParseInput.
func FormatInput(f Filter) string {
	neg := ""
	if f.IsNegative() {
		neg = "-"
	}
	switch f := f.(type) {
	case Tag:
		return neg + "#" + f.Tag
	case Folder:
		return neg + "folder:" + f.FolderID
	case StrictFolder:
		return neg + "strictfolder:" + f.FolderID
	case Title:
		return neg + "title:" + f.Text
	case URL:
		return neg + "url:" + f.Text
	case Any:
		return neg + f.Text
	}
	return ""
}

// ParseInputs parses several filter-box lines, stopping at the first error.
func ParseInputs(lines []string) ([]Filter, error) {
	out := make([]Filter, 0, len(lines))
	for _, line := range lines {
		f, err := ParseInput(line)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return Dedupe(out), nil
}
