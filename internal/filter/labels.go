package filter

import "fmt"

// FolderNamer resolves folder ids for display. *bookmark.Snapshot satisfies it.
type FolderNamer interface {
	FolderPath(id string) string
	FolderTitle(id string) string
}

// Capsule is the display form of an active filter chip.
type Capsule struct {
	Text     string `json:"text"`
	Tooltip  string `json:"tooltip"`
	Kind     Kind   `json:"type"`
	Negative bool   `json:"negative"`
}

// Describe renders f as a filter chip. names may be nil, in which case
// folders render by id.
func Describe(f Filter, names FolderNamer) Capsule {
	prefix := "Filter for"
	if f.IsNegative() {
		prefix = "Negative filter for"
	}
	c := Capsule{Kind: f.Kind(), Negative: f.IsNegative()}
	switch f := f.(type) {
	case Tag:
		c.Text = "#" + f.Tag
		c.Tooltip = fmt.Sprintf("%s tag: #%s", prefix, f.Tag)
	case Folder:
		path := folderPath(names, f.FolderID)
		c.Text = "folder:" + path
		c.Tooltip = fmt.Sprintf("%s folder: %s (%s)", prefix, path, f.FolderID)
	case StrictFolder:
		path := folderPath(names, f.FolderID)
		c.Text = "strict:" + path
		c.Tooltip = fmt.Sprintf("%s strict folder: %s (%s)", prefix, path, f.FolderID)
	case Title:
		c.Text = "title:" + f.Text
		c.Tooltip = fmt.Sprintf("%s title: '%s'", prefix, f.Text)
	case URL:
		c.Text = "url:" + f.Text
		c.Tooltip = fmt.Sprintf("%s URL: %s", prefix, f.Text)
	case Any:
		c.Text = f.Text
		c.Tooltip = fmt.Sprintf("%s title or URL: %s", prefix, f.Text)
	}
	return c
}

// ShortLabel is the compact form used when a saved view has no name:
// "!" marks negation, "T:" and "U:" mark title and URL filters, "S:" marks
// a strict folder.
func ShortLabel(f Filter, names FolderNamer) string {
	prefix := ""
	if f.IsNegative() {
		prefix = "!"
	}
	switch f := f.(type) {
	case Tag:
		return prefix + "#" + f.Tag
	case Folder:
		return prefix + folderTitle(names, f.FolderID)
	case StrictFolder:
		return prefix + "S:" + folderTitle(names, f.FolderID)
	case Any:
		return prefix + f.Text
	case Title:
		return prefix + "T:" + f.Text
	case URL:
		return prefix + "U:" + f.Text
	}
	return "View"
}

func folderPath(names FolderNamer, id string) string {
	if names == nil {
		return id
	}
	return names.FolderPath(id)
}

func folderTitle(names FolderNamer, id string) string {
	if names != nil {
		if t := names.FolderTitle(id); t != "" {
			return t
		}
	}
	return "Folder"
}
