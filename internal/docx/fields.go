package docx

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

var (
	fldCharRe    = regexp.MustCompile(`<w:fldChar\b[^>]*?w:fldCharType="(begin|separate|end)"[^>]*>`)
	instrTextRe  = regexp.MustCompile(`(?s)<w:instrText\b[^>]*>(.*?)</w:instrText>`)
	fldSimpleRe  = regexp.MustCompile(`(?s)<w:fldSimple\b([^>]*?)(?:/>|>(.*?)</w:fldSimple>)`)
	instrAttrRe  = regexp.MustCompile(`w:instr="([^"]*)"`)
	runPropsRe   = regexp.MustCompile(`(?s)<w:rPr>.*?</w:rPr>`)
	mailMergeRe  = regexp.MustCompile(`(?s)<w:mailMerge\b[^>]*?(?:/>|>.*?</w:mailMerge>)`)
	textEscaper  = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrUnescape = strings.NewReplacer("&quot;", `"`, "&apos;", "'", "&lt;", "<", "&gt;", ">", "&amp;", "&")
)

// ReplaceFields substitutes merge fields in a WordprocessingML document part.
// Complex fields (fldChar begin/instrText/end), simple fields (w:fldSimple)
// and «name» placeholders are all replaced. Names absent from fields and
// markers absent from the document are left alone. Inserted values are never
// scanned for further markers.
//
// A «name» placeholder is only recognised when it sits whole inside one
// <w:t> element; one that Word has split across runs is left as is.
func ReplaceFields(doc string, fields map[string]string) string {
	if len(fields) == 0 {
		return doc
	}
	var held heldRuns
	doc = replaceComplexFields(doc, fields, &held)
	doc = replaceSimpleFields(doc, fields, &held)
	doc = replacePlaceholders(doc, fields)
	return held.expand(doc)
}

// heldRuns parks rendered runs behind NUL-delimited tokens until every pass
// has run. NUL cannot occur in an XML document, so tokens never collide with
// document text.
type heldRuns []string

func (h *heldRuns) hold(run string) string {
	*h = append(*h, run)
	return "\x00" + strconv.Itoa(len(*h)-1) + "\x00"
}

func (h heldRuns) expand(doc string) string {
	if len(h) == 0 {
		return doc
	}
	pairs := make([]string, 0, 2*len(h))
	for i, run := range h {
		pairs = append(pairs, "\x00"+strconv.Itoa(i)+"\x00", run)
	}
	return strings.NewReplacer(pairs...).Replace(doc)
}

// StripMailMerge removes the mail-merge data source block from a settings part.
func StripMailMerge(settings string) string {
	return mailMergeRe.ReplaceAllString(settings, "")
}

func replaceComplexFields(doc string, fields map[string]string, held *heldRuns) string {
	locs := fldCharRe.FindAllStringSubmatchIndex(doc, -1)
	if len(locs) == 0 {
		return doc
	}

	var b strings.Builder
	last, depth := 0, 0
	beginAt, sepAt := -1, -1
	for _, loc := range locs {
		switch doc[loc[2]:loc[3]] {
		case "begin":
			if depth == 0 {
				beginAt, sepAt = loc[0], -1
			}
			depth++
		case "separate":
			if depth == 1 {
				sepAt = loc[0]
			}
		case "end":
			if depth == 0 {
				continue
			}
			depth--
			if depth > 0 {
				continue
			}

			instrEnd := loc[0]
			if sepAt >= 0 {
				instrEnd = sepAt
			}
			name, ok := mergeFieldName(collectInstr(doc[beginAt:instrEnd]))
			if !ok {
				continue
			}
			value, ok := fields[name]
			if !ok {
				continue
			}
			start := enclosingRunStart(doc, beginAt)
			end := followingRunEnd(doc, loc[1])
			if start < last || end < 0 || strings.Contains(doc[start:end], "</w:p>") {
				continue
			}
			props := ""
			if sepAt >= 0 {
				props = runPropsRe.FindString(doc[sepAt:loc[0]])
			}

			b.WriteString(doc[last:start])
			b.WriteString(held.hold(textRun(props, value)))
			last = end
		}
	}
	if last == 0 {
		return doc
	}
	b.WriteString(doc[last:])
	return b.String()
}

func replaceSimpleFields(doc string, fields map[string]string, held *heldRuns) string {
	return fldSimpleRe.ReplaceAllStringFunc(doc, func(m string) string {
		sub := fldSimpleRe.FindStringSubmatch(m)
		attr := instrAttrRe.FindStringSubmatch(sub[1])
		if attr == nil {
			return m
		}
		name, ok := mergeFieldName(attrUnescape.Replace(attr[1]))
		if !ok {
			return m
		}
		value, ok := fields[name]
		if !ok {
			return m
		}
		return held.hold(textRun(runPropsRe.FindString(sub[2]), value))
	})
}

func replacePlaceholders(doc string, fields map[string]string) string {
	if !strings.Contains(doc, "«") {
		return doc
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, 2*len(names))
	for _, name := range names {
		pairs = append(pairs, "«"+textEscaper.Replace(name)+"»", inlineText(fields[name]))
	}
	return strings.NewReplacer(pairs...).Replace(doc)
}

// collectInstr joins the instrText pieces of a field; Word may split one
// instruction across several runs.
func collectInstr(segment string) string {
	var sb strings.Builder
	for _, m := range instrTextRe.FindAllStringSubmatch(segment, -1) {
		sb.WriteString(m[1])
	}
	return attrUnescape.Replace(sb.String())
}

// mergeFieldName extracts NAME from ` MERGEFIELD NAME \* MERGEFORMAT ` or
// ` MERGEFIELD "Quoted Name" `.
func mergeFieldName(instr string) (string, bool) {
	instr = strings.TrimSpace(instr)
	i := strings.IndexFunc(instr, unicode.IsSpace)
	if i < 0 || !strings.EqualFold(instr[:i], "MERGEFIELD") {
		return "", false
	}
	rest := strings.TrimSpace(instr[i:])
	if strings.HasPrefix(rest, `"`) {
		name, _, ok := strings.Cut(rest[1:], `"`)
		return name, ok && name != ""
	}
	if fs := strings.Fields(rest); len(fs) > 0 {
		return fs[0], true
	}
	return "", false
}

// enclosingRunStart returns the offset of the <w:r> that contains pos, or -1.
func enclosingRunStart(doc string, pos int) int {
	head := doc[:pos]
	start := max(strings.LastIndex(head, "<w:r>"), strings.LastIndex(head, "<w:r "))
	if start < 0 || strings.Contains(head[start:], "</w:r>") {
		return -1
	}
	return start
}

// followingRunEnd returns the offset just past the first </w:r> at or after pos, or -1.
func followingRunEnd(doc string, pos int) int {
	i := strings.Index(doc[pos:], "</w:r>")
	if i < 0 {
		return -1
	}
	return pos + i + len("</w:r>")
}

func segments(value string) []string {
	value = strings.ReplaceAll(value, "\r\n", "\n")
	return strings.Split(value, "\n")
}

// textRun renders value as one run: N text segments separated by N-1 breaks.
func textRun(props, value string) string {
	var sb strings.Builder
	sb.WriteString("<w:r>")
	sb.WriteString(props)
	for i, seg := range segments(value) {
		if i > 0 {
			sb.WriteString("<w:br/>")
		}
		sb.WriteString(`<w:t xml:space="preserve">`)
		sb.WriteString(textEscaper.Replace(seg))
		sb.WriteString("</w:t>")
	}
	sb.WriteString("</w:r>")
	return sb.String()
}

// inlineText renders value for use inside an existing <w:t> element.
func inlineText(value string) string {
	segs := segments(value)
	for i, seg := range segs {
		segs[i] = textEscaper.Replace(seg)
	}
	return strings.Join(segs, `</w:t><w:br/><w:t xml:space="preserve">`)
}
