package drive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ngenohkevin/hivedeck-drive/internal/models"
	"github.com/ngenohkevin/hivedeck-drive/internal/sortutil"
)

// UnknownName is shown for entries the backend sent without a name.
const UnknownName = "Unknown"

// listKeys are tried in order before falling back to the first array field.
var listKeys = []string{"data", "items", "files"}

// field is one member of a JSON object, kept in document order.
type field struct {
	key   string
	value json.RawMessage
}

// NormalizeEntries turns a listing payload into entries. Accepted shapes
// are a bare array, an object carrying the array under data, items or
// files, or any object whose first array-valued member holds the entries.
// Elements without a usable id are dropped.
func NormalizeEntries(raw []byte) ([]models.Entry, error) {
	items, err := extractList(raw, 1)
	if err != nil {
		return nil, err
	}

	entries := make([]models.Entry, 0, len(items))
	for _, item := range items {
		entry, ok := normalizeEntry(item)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func extractList(raw []byte, depth int) ([]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	switch raw[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("decode listing: %w", err)
		}
		return items, nil
	case '{':
	default:
		return nil, fmt.Errorf("decode listing: unexpected payload %q", truncate(string(raw), 40))
	}

	fields, err := objectFields(raw)
	if err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}

	for _, key := range listKeys {
		value, ok := lookup(fields, key)
		if !ok || isNull(value) {
			continue
		}
		if isArray(value) {
			return extractList(value, depth)
		}
		if isObject(value) && depth > 0 {
			// {"data": {"items": [...]}}; nil means the object held no array
			items, err := extractList(value, depth-1)
			if err != nil || items != nil {
				return items, err
			}
		}
	}

	for _, f := range fields {
		if isArray(f.value) {
			return extractList(f.value, depth)
		}
	}
	return nil, nil
}

// objectFields decodes the members of a JSON object in document order.
func objectFields(raw []byte) ([]field, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	var fields []field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		fields = append(fields, field{key: key, value: value})
	}
	return fields, nil
}

func lookup(fields []field, key string) (json.RawMessage, bool) {
	for _, f := range fields {
		if f.key == key {
			return f.value, true
		}
	}
	return nil, false
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func isArray(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) > 0 && v[0] == '['
}

func isObject(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) > 0 && v[0] == '{'
}

func normalizeEntry(raw json.RawMessage) (models.Entry, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return models.Entry{}, false
	}

	id, ok := toInt(obj["id"])
	if !ok {
		return models.Entry{}, false
	}

	entry := models.Entry{
		ID:         id,
		Name:       UnknownName,
		Kind:       models.KindFile,
		ModifiedAt: firstString(obj, "modified", "modifiedAt"),
		MimeType:   firstString(obj, "mimeType", "contentType"),
	}

	if name, ok := obj["name"].(string); ok && strings.TrimSpace(name) != "" {
		entry.Name = name
	}

	if kind := firstString(obj, "fileType", "kind", "type"); strings.EqualFold(kind, string(models.KindFolder)) {
		entry.Kind = models.KindFolder
	}

	if parent, ok := toInt(obj["parentId"]); ok {
		entry.ParentID = models.ID(parent)
	}

	if !entry.IsFolder() {
		entry.Size = normalizeSize(obj["size"])
	}

	return entry, true
}

func normalizeSize(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case json.Number:
		if n, ok := toInt(s); ok {
			return sortutil.FormatSize(n)
		}
	case string:
		if n, ok := toInt(s); ok {
			return sortutil.FormatSize(n)
		}
		// Already human formatted by the backend
		return sortutil.FormatSize(sortutil.ParseSize(s))
	}
	return ""
}

// toInt accepts JSON numbers and numeric strings, as long as they are integral.
func toInt(v interface{}) (int64, bool) {
	var s string
	switch n := v.(type) {
	case json.Number:
		s = n.String()
	case string:
		s = strings.TrimSpace(n)
	case float64:
		s = strconv.FormatFloat(n, 'f', -1, 64)
	default:
		return 0, false
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case json.Number:
		f, _ := n.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f
	case float64:
		return n
	}
	return 0
}

func firstString(obj map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if s, ok := obj[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// NormalizeUsage accepts both {success, data:{email, usedStorage, storageLimit}}
// and the flat {email, usedStorageBytes, storageLimitGB} shape.
func NormalizeUsage(raw []byte) (models.Usage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil {
		return models.Usage{}, fmt.Errorf("decode drive info: %w", err)
	}

	if data, ok := obj["data"].(map[string]interface{}); ok {
		if success, present := obj["success"].(bool); present && !success {
			return models.Usage{}, fmt.Errorf("decode drive info: backend reported failure")
		}
		obj = data
	}

	usage := models.Usage{Email: firstString(obj, "email")}

	for _, key := range []string{"usedStorageBytes", "usedStorage"} {
		if v, ok := obj[key]; ok {
			usage.UsedBytes = int64(toFloat(v))
			break
		}
	}
	for _, key := range []string{"storageLimitGB", "storageLimit"} {
		if v, ok := obj[key]; ok {
			usage.LimitGB = toFloat(v)
			break
		}
	}

	return usage, nil
}

// errorMessage extracts message, error or data.message from an error body.
func errorMessage(body []byte) string {
	var obj map[string]interface{}
	if err := json.Unmarshal(body, &obj); err != nil {
		return ""
	}

	if msg := firstString(obj, "message", "error"); msg != "" {
		return msg
	}
	if data, ok := obj["data"].(map[string]interface{}); ok {
		return firstString(data, "message")
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
