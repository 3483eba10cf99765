package report

import (
	"encoding/json"
	"strings"
)

// Extraction holds whatever structured payloads were recovered from a blob of
// message text. Either field may be nil; both nil means nothing parseable was
// found and the caller should fall back to displaying the raw text.
type Extraction struct {
	Research *ResearchResult
	Analysis *AnalysisResult
}

// Empty reports whether no payload was recovered.
func (e Extraction) Empty() bool {
	return e.Research == nil && e.Analysis == nil
}

func (e *Extraction) merge(other Extraction) {
	if e.Research == nil {
		e.Research = other.Research
	}
	if e.Analysis == nil {
		e.Analysis = other.Analysis
	}
}

// Extract scans freeform or delimited text for embedded JSON matching one of
// the two contract shapes. Marker-wrapped payloads are preferred; when a shape
// is still missing after the marker pass, the text is scanned for bare
// JSON-looking substrings. Classification is strictly by the presence of a
// "findings" array (research) or an "insights" array (analysis). Malformed
// JSON is skipped, never an error: this is best-effort by design.
func Extract(text string) Extraction {
	var out Extraction

	if raw, ok := between(text, ResearchStartMarker, ResearchEndMarker); ok {
		out.merge(classify([]byte(raw)))
	}
	if raw, ok := between(text, AnalysisStartMarker, AnalysisEndMarker); ok {
		out.merge(classify([]byte(raw)))
	}

	if out.Research == nil || out.Analysis == nil {
		out.merge(scan(text))
	}

	return out
}

// ExtractValue handles payloads that arrive already parsed, e.g. a decoded
// JSON-RPC result or an A2A data part. Strings are re-scanned as text; any
// other value is round-tripped through JSON and classified.
func ExtractValue(v any) Extraction {
	switch val := v.(type) {
	case nil:
		return Extraction{}
	case string:
		return Extract(val)
	case []byte:
		return Extract(string(val))
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return Extraction{}
		}
		return classify(data)
	}
}

// between returns the trimmed text between the first occurrence of start and
// the next occurrence of end after it.
func between(text, start, end string) (string, bool) {
	i := strings.Index(text, start)
	if i < 0 {
		return "", false
	}
	rest := text[i+len(start):]
	j := strings.Index(rest, end)
	if j < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:j]), true
}

// classify unmarshals raw JSON and assigns it to a shape based on which
// discriminator array is present. A payload carrying both arrays is research
// first; one carrying neither is dropped.
func classify(raw []byte) Extraction {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Extraction{}
	}

	if _, ok := probe["findings"]; ok {
		var r ResearchResult
		if err := json.Unmarshal(raw, &r); err == nil {
			return Extraction{Research: &r}
		}
		return Extraction{}
	}

	if _, ok := probe["insights"]; ok {
		var a AnalysisResult
		if err := json.Unmarshal(raw, &a); err == nil {
			return Extraction{Analysis: &a}
		}
	}

	return Extraction{}
}

// scan walks the text looking for balanced top-level JSON objects and
// classifies each candidate. Single pass, no grammar: an opening brace starts
// a candidate, json.Decoder decides whether it is real JSON.
func scan(text string) Extraction {
	var out Extraction

	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}

		dec := json.NewDecoder(strings.NewReader(text[i:]))
		var probe json.RawMessage
		if err := dec.Decode(&probe); err != nil {
			continue
		}

		got := classify(probe)
		out.merge(got)
		if out.Research != nil && out.Analysis != nil {
			break
		}

		// Skip past classified objects; unclassified ones may wrap a payload
		// in a nested object, so keep scanning inside them.
		if !got.Empty() {
			if n := int(dec.InputOffset()); n > 0 {
				i += n - 1
			}
		}
	}

	return out
}
