package session

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

func fieldValue(el *goquery.Selection) string {
	if goquery.NodeName(el) == "textarea" {
		return el.Text()
	}
	return el.AttrOr("value", "")
}

func setFieldValue(el *goquery.Selection, value string) {
	if goquery.NodeName(el) == "textarea" {
		el.SetText(value)
		return
	}
	el.SetAttr("value", value)
}

// selectByPrefix selects the first option whose label starts with prefix, the way a browser
// handles typing into a focused select. The selection is unchanged when nothing matches.
func selectByPrefix(sel *goquery.Selection, prefix string) {
	prefix = strings.ToLower(prefix)
	options := sel.Find("option")

	match := options.FilterFunction(func(_ int, opt *goquery.Selection) bool {
		return strings.HasPrefix(strings.ToLower(strings.TrimSpace(opt.Text())), prefix)
	}).First()
	if match.Length() == 0 {
		return
	}

	options.RemoveAttr("selected")
	match.SetAttr("selected", "selected")
}

// selectedOption returns the selected option, or the first one when none is marked
func selectedOption(sel *goquery.Selection) *goquery.Selection {
	options := sel.Find("option")
	if selected := options.Filter("[selected]").First(); selected.Length() > 0 {
		return selected
	}
	if options.Length() == 0 {
		return nil
	}
	return options.First()
}

func optionValue(opt *goquery.Selection) string {
	if v, ok := opt.Attr("value"); ok {
		return v
	}
	return strings.TrimSpace(opt.Text())
}

// formValues collects the successful controls of form
func formValues(form, submitter *goquery.Selection) url.Values {
	values := url.Values{}

	form.Find("input[name], select[name], textarea[name]").Each(func(_ int, el *goquery.Selection) {
		if _, disabled := el.Attr("disabled"); disabled {
			return
		}
		name := el.AttrOr("name", "")

		switch goquery.NodeName(el) {
		case "input":
			switch strings.ToLower(el.AttrOr("type", "text")) {
			case "submit", "button", "image", "reset", "file":
				return
			case "checkbox", "radio":
				if _, checked := el.Attr("checked"); !checked {
					return
				}
				values.Add(name, el.AttrOr("value", "on"))
			default:
				values.Add(name, el.AttrOr("value", ""))
			}
		case "select":
			if opt := selectedOption(el); opt != nil {
				values.Add(name, optionValue(opt))
			}
		case "textarea":
			values.Add(name, el.Text())
		}
	})

	if submitter != nil {
		if name, ok := submitter.Attr("name"); ok {
			values.Add(name, submitter.AttrOr("value", ""))
		}
	}

	return values
}
