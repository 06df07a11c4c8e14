// Package llmutils holds small helpers for content produced by or fed
// to language models.
package llmutils

import (
	"bytes"
	"encoding/json"

	"github.com/bububa/ljson"
	"github.com/cockroachdb/errors"
)

// ToJSON returns the value marshaled to a JSON string,
// without HTML escaping, without indentation.
func ToJSON(val any) string {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(val); err != nil {
		return ""
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

// CleanJSON returns JSON by trimming prefixes and postfixes,
// as LLM can reply like,
// `Here you go: {json}`
func CleanJSON(bs []byte) []byte {
	return trimPostfixAfterJSON(trimPrefixBeforeJSON(bs))
}

// Removes any prefixes before the JSON (like "Sure, here you go:")
func trimPrefixBeforeJSON(bs []byte) []byte {
	startObject := bytes.IndexByte(bs, '{')
	startArray := bytes.IndexByte(bs, '[')

	var start int
	if startObject == -1 && startArray == -1 {
		return bs
	} else if startObject == -1 {
		start = startArray
	} else if startArray == -1 {
		start = startObject
	} else {
		start = min(startObject, startArray)
	}

	return bs[start:]
}

// Removes any postfixes after the JSON
func trimPostfixAfterJSON(bs []byte) []byte {
	endObject := bytes.LastIndexByte(bs, '}')
	endArray := bytes.LastIndexByte(bs, ']')

	var end int
	if endObject == -1 && endArray == -1 {
		return bs
	} else if endObject == -1 {
		end = endArray
	} else if endArray == -1 {
		end = endObject
	} else {
		end = max(endObject, endArray)
	}

	return bs[:end+1]
}

// ParseToolArguments decodes the argument payload of a model-requested
// tool call. Models emit sloppy JSON, so the input is cleaned first and
// decoded leniently. An empty payload yields empty arguments.
func ParseToolArguments(arguments string) (map[string]any, error) {
	bs := CleanJSON([]byte(arguments))
	if len(bytes.TrimSpace(bs)) == 0 {
		return map[string]any{}, nil
	}

	args := map[string]any{}
	if err := ljson.Unmarshal(bs, &args); err != nil {
		return nil, errors.Wrapf(err, "failed to parse tool arguments: %s", arguments)
	}
	return args, nil
}
