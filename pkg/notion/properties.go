package notion

import (
	"strings"

	"github.com/jomei/notionapi"
)

// maxText is the length cap Notion puts on one text object.
const maxText = 2000

// Title builds a title property.
func Title(s string) notionapi.TitleProperty {
	return notionapi.TitleProperty{Type: notionapi.PropertyTypeTitle, Title: richText(s)}
}

// Text builds a rich_text property, cut to Notion's length cap.
func Text(s string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{Type: notionapi.PropertyTypeRichText, RichText: richText(s)}
}

// Select builds a select property.
func Select(name string) notionapi.SelectProperty {
	return notionapi.SelectProperty{Type: notionapi.PropertyTypeSelect, Select: notionapi.Option{Name: name}}
}

// Number builds a number property.
func Number(n float64) notionapi.NumberProperty {
	return notionapi.NumberProperty{Type: notionapi.PropertyTypeNumber, Number: n}
}

func richText(s string) []notionapi.RichText {
	if r := []rune(s); len(r) > maxText {
		s = string(r[:maxText])
	}
	return []notionapi.RichText{{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}}}
}

// PlainText reads a title, rich_text or select property as a string.
// Properties decoded from the API arrive as pointers.
func PlainText(p notionapi.Property) string {
	switch v := p.(type) {
	case *notionapi.TitleProperty:
		return joinText(v.Title)
	case notionapi.TitleProperty:
		return joinText(v.Title)
	case *notionapi.RichTextProperty:
		return joinText(v.RichText)
	case notionapi.RichTextProperty:
		return joinText(v.RichText)
	case *notionapi.SelectProperty:
		return v.Select.Name
	case notionapi.SelectProperty:
		return v.Select.Name
	default:
		return ""
	}
}

// NumberValue reads a number property. An empty Notion number reads as 0,
// so the caller cannot tell it from an explicit zero.
func NumberValue(p notionapi.Property) (float64, bool) {
	switch v := p.(type) {
	case *notionapi.NumberProperty:
		return v.Number, true
	case notionapi.NumberProperty:
		return v.Number, true
	default:
		return 0, false
	}
}

func joinText(parts []notionapi.RichText) string {
	var b strings.Builder
	for _, rt := range parts {
		switch {
		case rt.PlainText != "":
			b.WriteString(rt.PlainText)
		case rt.Text != nil:
			b.WriteString(rt.Text.Content)
		}
	}
	return b.String()
}
