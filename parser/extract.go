package parser

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/width"
)

// RawFieldSet holds the values extracted from one card node. Fields the
// profile does not cover are left zero.
type RawFieldSet struct {
	Code      string
	Category  string
	Image     string
	Name      string
	Cost      int
	Attribute string
	Power     int
	Counter   int
	Color     string
	Type      string
	Sets      string
	Effect    string
	Trigger   string
}

// Extract reads every field of profile out of a card node.
func Extract(node *goquery.Selection, profile LocaleProfile) (*RawFieldSet, error) {
	if node == nil || node.Length() == 0 {
		return nil, &ParseError{Err: errors.New("empty card node")}
	}

	out := &RawFieldSet{}
	for _, field := range fieldOrder {
		rule, ok := profile.Fields[field]
		if !ok {
			continue
		}

		text, found, err := lookup(node, rule, out.Code)
		if err != nil {
			return nil, err
		}
		if !found {
			if rule.Optional {
				continue
			}
			return nil, &MissingFieldError{Field: field, Code: out.Code}
		}

		switch field {
		case FieldCode:
			code, _, _ := strings.Cut(text, "|")
			out.Code = strings.TrimSpace(code)
		case FieldCategory:
			out.Category = strings.ToLower(text)
		case FieldImage:
			out.Image = resolveImage(profile.ImageBase, text)
		case FieldName:
			out.Name = text
		case FieldCost:
			if out.Cost, err = parseNumber(field, out.Code, text); err != nil {
				return nil, err
			}
		case FieldAttribute:
			out.Attribute = text
		case FieldPower:
			if out.Power, err = parseNumber(field, out.Code, text); err != nil {
				return nil, err
			}
		case FieldCounter:
			if out.Counter, err = parseNumber(field, out.Code, text); err != nil {
				return nil, err
			}
		case FieldColor:
			out.Color = text
		case FieldType:
			out.Type = strings.Join(strings.Split(text, "/"), ";")
		case FieldSets:
			out.Sets = text
		case FieldEffect:
			out.Effect = text
		case FieldTrigger:
			out.Trigger = text
		}
	}
	return out, nil
}

func lookup(node *goquery.Selection, rule FieldRule, code string) (string, bool, error) {
	scope := node
	if rule.FromPrev {
		scope = node.Prev()
		if scope.Length() == 0 {
			return "", false, &ParseError{Code: code, Err: errors.New("card node has no preceding image block")}
		}
	}

	matches := scope.Find(rule.Selector)
	if matches.Length() == 0 {
		return "", false, nil
	}

	sel := matches.First()
	if rule.Pick == PickLast {
		sel = matches.Last()
	}

	if rule.Attr != "" {
		value, ok := sel.Attr(rule.Attr)
		if !ok {
			return "", false, nil
		}
		return stripLabel(value, rule.Offset), true, nil
	}
	return stripLabel(sel.Text(), rule.Offset), true, nil
}

// stripLabel drops the first offset runes of the trimmed text.
func stripLabel(text string, offset int) string {
	text = strings.TrimSpace(text)
	if offset <= 0 {
		return text
	}
	runes := []rune(text)
	if offset >= len(runes) {
		return ""
	}
	return strings.TrimSpace(string(runes[offset:]))
}

func parseNumber(field Field, code, text string) (int, error) {
	value := strings.TrimSpace(width.Narrow.String(text))
	if value == "-" {
		value = "0"
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, &MalformedNumberError{Field: field, Code: code, Value: text, Err: err}
	}
	if n < 0 {
		return 0, &MalformedNumberError{Field: field, Code: code, Value: text}
	}
	return n, nil
}

func resolveImage(base, src string) string {
	src = strings.TrimSpace(src)
	if base == "" || src == "" {
		return src
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return src
	}
	ref, err := url.Parse(src)
	if err != nil {
		return src
	}
	return baseURL.ResolveReference(ref).String()
}
