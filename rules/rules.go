// Package rules checks the files of a decoded record against declarative
// per-field rules.
//
//	err := rules.Validate(rec,
//		rules.Field("avatar", rules.IsFile(), rules.MaxSize(2<<20), rules.HasMediaType("image/*")),
//		rules.Field("docs[]", rules.Each(rules.IsFile()), rules.Each(rules.MaxSize(10<<20))),
//	)
package rules

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gobeaver/formkit"
)

// Rule checks one field value
type Rule interface {
	// Check reports whether v satisfies the rule. present is false when
	// the field is missing from the record.
	Check(v formkit.Value, present bool) bool

	// Message describes the failure for field
	Message(field string) string
}

// fileRule checks a single file
type fileRule struct {
	check   func(f *formkit.File) bool
	message func(field string, each bool) string
}

func (r fileRule) Check(v formkit.Value, present bool) bool {
	if !present {
		return false
	}
	f, ok := v.AsFile()
	return ok && r.check(f)
}

func (r fileRule) Message(field string) string {
	return r.message(field, false)
}

// eachRule applies a file rule to every element of a list
type eachRule struct {
	rule fileRule
}

func (r eachRule) Check(v formkit.Value, present bool) bool {
	if !present {
		return false
	}
	items, ok := v.AsList()
	if !ok {
		return r.rule.Check(v, true)
	}
	for _, item := range items {
		if !r.rule.Check(item, true) {
			return false
		}
	}
	return true
}

func (r eachRule) Message(field string) string {
	return r.rule.message(field, true)
}

// IsFile requires the field to hold a file
func IsFile() Rule {
	return fileRule{
		check: func(*formkit.File) bool { return true },
		message: func(field string, each bool) string {
			if each {
				return fmt.Sprintf("The value %s must be an array of files", field)
			}
			return fmt.Sprintf("The value %s must be a file", field)
		},
	}
}

// MaxSize requires the file to be strictly smaller than max bytes
func MaxSize(max int64) Rule {
	return fileRule{
		check: func(f *formkit.File) bool { return f.Size < max },
		message: func(field string, _ bool) string {
			return fmt.Sprintf("The file %s maximum file size is %d bytes (%s)", field, max, humanize.IBytes(uint64(max)))
		},
	}
}

// MinSize requires the file to be strictly larger than min bytes
func MinSize(min int64) Rule {
	return fileRule{
		check: func(f *formkit.File) bool { return f.Size > min },
		message: func(field string, _ bool) string {
			return fmt.Sprintf("The file %s minimum file size is %d bytes (%s)", field, min, humanize.IBytes(uint64(min)))
		},
	}
}

// HasMediaType requires the media type of the file to match one of types.
// Entries are exact media types or wildcards such as "image/*".
func HasMediaType(types ...string) Rule {
	return fileRule{
		check: func(f *formkit.File) bool {
			for _, t := range types {
				if formkit.MatchMediaType(t, f.MediaType) {
					return true
				}
			}
			return false
		},
		message: func(field string, each bool) string {
			if each {
				return fmt.Sprintf("The mimetype of %s must be an array of %s", field, strings.Join(types, ","))
			}
			return fmt.Sprintf("The mimetype of %s must be an %s", field, strings.Join(types, ","))
		},
	}
}

// Each applies r to every element of a list field. A single value is
// checked as is.
func Each(r Rule) Rule {
	if fr, ok := r.(fileRule); ok {
		return eachRule{rule: fr}
	}
	return r
}
