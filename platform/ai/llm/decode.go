package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"venue_enrichment_backend/platform/validator"
)

// StripFences removes a surrounding markdown code fence (``` or ```json) and any
// prose before the first or after the last JSON object brace.
func StripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			lang := strings.TrimSpace(text[:nl])
			if lang == "" || !strings.ContainsAny(lang, "{[") {
				text = text[nl+1:]
			}
		}
		if end := strings.LastIndex(text, "```"); end >= 0 {
			text = text[:end]
		}
		text = strings.TrimSpace(text)
	}
	if strings.HasPrefix(text, "{") {
		return text
	}
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}

// DecodeJSON strips fences from a model reply, decodes it into dst and runs struct
// validation when val is non-nil. Every failure is a *ParseError.
func DecodeJSON(raw string, dst any, val *validator.Validator) error {
	body := StripFences(raw)
	if body == "" {
		return &ParseError{Reason: "empty reply", Raw: raw}
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	if err := dec.Decode(dst); err != nil {
		return &ParseError{Reason: "invalid json", Raw: raw, Err: err}
	}

	if val != nil {
		if err := val.Struct(dst); err != nil {
			return &ParseError{
				Reason: "schema mismatch: " + strings.Join(validator.Fields(err), ", "),
				Raw:    raw,
				Err:    err,
			}
		}
	}
	return nil
}

// FlexString accepts a JSON string or number (e.g. sleeps: 8 or "6-8").
// null and empty strings decode to "".
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}
	var str string
	if err := json.Unmarshal(trimmed, &str); err == nil {
		*f = FlexString(strings.TrimSpace(str))
		return nil
	}
	var num float64
	if err := json.Unmarshal(trimmed, &num); err == nil {
		*f = FlexString(strconv.FormatFloat(num, 'f', -1, 64))
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into FlexString", string(data))
}

func (f FlexString) String() string { return string(f) }
