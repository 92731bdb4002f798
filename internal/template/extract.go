package template

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"

	"github.com/dgallion1/bondgen/internal/bonderr"
)

// TagPosition is one distinct tag found in a template. Offset is the byte
// offset of its first occurrence in the template's document part, before
// split runs are collapsed.
type TagPosition struct {
	Name     string `json:"name"`
	Offset   int    `json:"offset"`
	Count    int    `json:"count"`
	Required bool   `json:"required"`
}

// TagMap is the validated tag inventory of a template. TemplateHash is
// the SHA-256 of the raw upload and identifies identical templates.
type TagMap struct {
	TemplateID   string        `json:"template_id"`
	TemplateHash string        `json:"template_hash"`
	Tags         []TagPosition `json:"tags"`
}

// Has reports whether the template uses name.
func (m *TagMap) Has(name string) bool {
	for _, t := range m.Tags {
		if t.Name == name {
			return true
		}
	}
	return false
}

// DuplicateTag is a required tag that appears more than once.
type DuplicateTag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ExtractTags scans a .docx template.
func ExtractTags(doc []byte) (*TagMap, error) {
	return Extract(OOXML{}, doc)
}

// Extract scans the text part of doc for tags and enforces the
// vocabulary: no unknown tags, every required tag present exactly once.
func Extract(f Format, doc []byte) (*TagMap, error) {
	c, err := f.Open(doc)
	if err != nil {
		return nil, err
	}
	content, offsets := normalizeSplitTags(string(c.Content()))

	hash := Hash(doc)
	tm := &TagMap{TemplateID: hash[:16], TemplateHash: hash, Tags: []TagPosition{}}
	index := make(map[string]int)
	for _, loc := range tagPattern.FindAllStringSubmatchIndex(content, -1) {
		name := content[loc[2]:loc[3]]
		if i, ok := index[name]; ok {
			tm.Tags[i].Count++
			continue
		}
		index[name] = len(tm.Tags)
		tm.Tags = append(tm.Tags, TagPosition{Name: name, Offset: offsets.raw(loc[0]), Count: 1, Required: IsRequired(name)})
	}

	var unknown []string
	var dups []DuplicateTag
	for _, t := range tm.Tags {
		switch {
		case !IsKnown(t.Name):
			unknown = append(unknown, t.Name)
		case t.Required && t.Count > 1:
			dups = append(dups, DuplicateTag{Name: t.Name, Count: t.Count})
		}
	}
	var missing []string
	for _, name := range RequiredTags {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}

	switch {
	case len(unknown) > 0:
		return nil, bonderr.New(bonderr.InvalidTag,
			"template contains unrecognized tags: %s", braced(unknown)).WithDetails(unknown)
	case len(missing) > 0:
		return nil, bonderr.New(bonderr.MissingRequiredTags,
			"template is missing required tags: %s", braced(missing)).WithDetails(missing)
	case len(dups) > 0:
		names := make([]string, len(dups))
		for i, d := range dups {
			names[i] = d.Name
		}
		return nil, bonderr.New(bonderr.DuplicateRequiredTags,
			"required tags must appear exactly once: %s", braced(names)).WithDetails(dups)
	}
	return tm, nil
}

func braced(names []string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = "{{" + n + "}}"
	}
	return strings.Join(out, ", ")
}

// splitTag matches a {{NAME}} whose characters are spread over several
// Word runs, with markup between any of them.
var (
	splitTag  = regexp.MustCompile(`\{(?:<[^>]+>)*\{((?:[^{}<]|<[^>]+>)*?)\}(?:<[^>]+>)*\}`)
	markup    = regexp.MustCompile(`<[^>]+>`)
	tagNameRe = regexp.MustCompile(`^[A-Z_]+$`)
)

// NormalizeSplitTags collapses run-split placeholders into a single run
// so that tagPattern sees them. Matches whose text is not a tag name are
// left untouched.
func NormalizeSplitTags(content string) string {
	out, _ := normalizeSplitTags(content)
	return out
}

func normalizeSplitTags(content string) (string, offsetMap) {
	var b strings.Builder
	om := offsetMap{{}}
	last := 0
	for _, loc := range splitTag.FindAllStringIndex(content, -1) {
		tag, ok := collapseTag(content[loc[0]:loc[1]])
		if !ok {
			continue
		}
		b.WriteString(content[last:loc[0]])
		om = append(om, offsetPoint{norm: b.Len(), raw: loc[0]})
		b.WriteString(tag)
		last = loc[1]
		om = append(om, offsetPoint{norm: b.Len(), raw: last})
	}
	if last == 0 {
		return content, om
	}
	b.WriteString(content[last:])
	return b.String(), om
}

func collapseTag(m string) (string, bool) {
	if !strings.Contains(m, "<") {
		return "", false
	}
	name := strings.TrimSpace(markup.ReplaceAllString(m, ""))
	name = strings.TrimSuffix(strings.TrimPrefix(name, "{{"), "}}")
	name = strings.TrimSpace(name)
	if !tagNameRe.MatchString(name) || !balanced(m) {
		return "", false
	}
	return "{{" + name + "}}", true
}

type offsetPoint struct{ norm, raw int }

// offsetMap records where collapsed tags begin and end in both the
// normalized and the raw content. Points are sorted by norm.
type offsetMap []offsetPoint

// raw maps an offset in the normalized content back to the raw content.
// Offsets inside a collapsed tag map to the start of its raw match.
func (m offsetMap) raw(norm int) int {
	i := sort.Search(len(m), func(i int) bool { return m[i].norm > norm }) - 1
	p := m[i]
	if i%2 == 1 {
		return p.raw
	}
	return p.raw + norm - p.norm
}

// balanced reports whether m closes as many elements as it opens, so
// dropping its markup keeps the document well formed.
func balanced(m string) bool {
	depth := 0
	for _, tag := range markup.FindAllString(m, -1) {
		switch {
		case strings.HasSuffix(tag, "/>"), strings.HasPrefix(tag, "<?"), strings.HasPrefix(tag, "<!"):
		case strings.HasPrefix(tag, "</"):
			depth--
		default:
			depth++
		}
	}
	return depth == 0
}
