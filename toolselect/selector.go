// Package toolselect bounds the number and size of tool declarations
// forwarded to the model. Attaching hundreds of full JSON schemas to
// every model call is both slow and expensive, so the catalog is
// narrowed by keyword categories and the schemas are stripped.
package toolselect

import (
	"sort"
	"strings"

	"github.com/effective-security/chatrouter/mcp"
	"github.com/effective-security/chatrouter/pkg/chat"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/chatrouter", "toolselect")

// Category of the fixed keyword table.
type Category string

const (
	CategorySearch  Category = "search"
	CategoryCode    Category = "code"
	CategoryData    Category = "data"
	CategoryFile    Category = "file"
	CategoryImage   Category = "image"
	CategoryMath    Category = "math"
	CategoryTime    Category = "time"
	CategoryGeneral Category = "general"
)

// Policy holds the category table and the size thresholds. The
// thresholds are tunable; the defaults reproduce the shipped behavior.
type Policy struct {
	// Categories maps a category to its trigger keywords. The general
	// category has no keywords of its own; it is part of the default
	// selection when nothing matches.
	Categories map[Category][]string
	// MinFiltered is the size under which a filtered set is considered
	// over-aggressive and discarded in favor of the head of the catalog.
	MinFiltered int
	// FallbackHead is how many catalog entries to take when the filter
	// is discarded.
	FallbackHead int
	// MaxTools caps the filtered result.
	MaxTools int
}

// DefaultPolicy returns the built-in category table and thresholds.
func DefaultPolicy() *Policy {
	return &Policy{
		Categories: map[Category][]string{
			CategorySearch:  {"search", "find", "look up", "lookup", "query", "web", "news", "fetch"},
			CategoryCode:    {"code", "program", "script", "debug", "compile", "function", "bug", "repo"},
			CategoryData:    {"data", "json", "csv", "table", "database", "sql", "chart"},
			CategoryFile:    {"file", "folder", "directory", "document", "upload", "download"},
			CategoryImage:   {"image", "photo", "picture", "draw", "render", "diagram"},
			CategoryMath:    {"math", "calculate", "compute", "sum", "equation", "convert"},
			CategoryTime:    {"schedule", "remind", "calendar", "timezone", "date"},
			CategoryGeneral: nil,
		},
		MinFiltered:  20,
		FallbackHead: 50,
		MaxTools:     60,
	}
}

// SelectCategories picks the categories whose keywords appear in the
// utterance. With no match the default {search, general} is returned.
func (p *Policy) SelectCategories(utterance string) []Category {
	lower := strings.ToLower(utterance)

	var selected []Category
	for cat, keywords := range p.Categories {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				selected = append(selected, cat)
				break
			}
		}
	}
	if len(selected) == 0 {
		return []Category{CategorySearch, CategoryGeneral}
	}

	sort.Slice(selected, func(i, j int) bool { return selected[i] < selected[j] })
	return selected
}

// FilterTools keeps the tools whose name or description contains any
// keyword of any selected category, in catalog order. A filtered set
// smaller than MinFiltered means the catalog is small or keyword-sparse;
// the filter is discarded and the first FallbackHead entries returned
// instead, preferring availability over precision. Otherwise the result
// is capped at MaxTools.
func (p *Policy) FilterTools(catalog *mcp.Catalog, categories []Category) []mcp.Tool {
	var keywords []string
	for _, cat := range categories {
		keywords = append(keywords, p.Categories[cat]...)
	}

	all := catalog.Tools()
	var filtered []mcp.Tool
	for _, tool := range all {
		if matchesAny(tool, keywords) {
			filtered = append(filtered, tool)
		}
	}

	if len(filtered) < p.MinFiltered {
		logger.KV(xlog.DEBUG,
			"status", "filter_discarded",
			"matched", len(filtered),
			"catalog", len(all),
		)
		if len(all) > p.FallbackHead {
			all = all[:p.FallbackHead]
		}
		return all
	}

	if len(filtered) > p.MaxTools {
		filtered = filtered[:p.MaxTools]
	}
	return filtered
}

func matchesAny(tool mcp.Tool, keywords []string) bool {
	name := strings.ToLower(tool.Name)
	desc := strings.ToLower(tool.Description)
	for _, kw := range keywords {
		if strings.Contains(name, kw) || strings.Contains(desc, kw) {
			return true
		}
	}
	return false
}

// emptyParameters is the placeholder schema attached to simplified
// declarations.
var emptyParameters = map[string]any{
	"type":       "object",
	"properties": map[string]any{},
}

// Simplify strips each tool to name and description with an empty
// parameter schema. One extra invocation round-trip is traded for an
// order-of-magnitude smaller request payload.
func Simplify(tools []mcp.Tool) []chat.Tool {
	out := make([]chat.Tool, 0, len(tools))
	for _, tool := range tools {
		out = append(out, chat.NewFunctionTool(&chat.FunctionDefinition{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  emptyParameters,
		}))
	}
	return out
}
