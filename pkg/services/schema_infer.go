package services

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/graphscout-inc/graphscout-engine/pkg/models"
)

// propertyAccumulator gathers observed values per property name and
// builds the final PropertyInfo list with inferred types and capped
// example lists.
type propertyAccumulator struct {
	values map[string][]any
}

func newPropertyAccumulator() *propertyAccumulator {
	return &propertyAccumulator{values: map[string][]any{}}
}

// observe records one sampled value for a property.
func (a *propertyAccumulator) observe(name string, value any) {
	if name == "" {
		return
	}
	a.values[name] = append(a.values[name], value)
}

// build returns the properties in name order with inferred types and up
// to MaxPropertyExamples distinct examples each.
func (a *propertyAccumulator) build() []models.PropertyInfo {
	if len(a.values) == 0 {
		return nil
	}

	names := make([]string, 0, len(a.values))
	for name := range a.values {
		names = append(names, name)
	}
	sort.Strings(names)

	props := make([]models.PropertyInfo, 0, len(names))
	for _, name := range names {
		values := a.values[name]
		props = append(props, models.PropertyInfo{
			Name:     name,
			DataType: InferPropertyType(values),
			Examples: exampleStrings(values),
		})
	}
	return props
}

// exampleStrings stringifies sampled values, deduplicates them, and caps
// the list.
func exampleStrings(values []any) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		s := flattenValue(v)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
		if len(out) == models.MaxPropertyExamples {
			break
		}
	}
	return out
}

// InferPropertyType votes over sampled values. A uniform population keeps
// its kind; integers and floats widen to float; any other mixture,
// including ties, resolves to string. Nil samples do not vote.
func InferPropertyType(values []any) models.PropertyDataType {
	counts := map[models.PropertyDataType]int{}
	for _, v := range values {
		if v == nil {
			continue
		}
		counts[classifyValue(v)]++
	}

	switch len(counts) {
	case 0:
		return models.PropertyTypeString
	case 1:
		for t := range counts {
			return t
		}
	case 2:
		if counts[models.PropertyTypeInteger] > 0 && counts[models.PropertyTypeFloat] > 0 {
			return models.PropertyTypeFloat
		}
	}
	return models.PropertyTypeString
}

// classifyValue buckets one sampled value. JSON backends deliver every
// number as float64, so integral floats count as integers.
func classifyValue(v any) models.PropertyDataType {
	switch val := v.(type) {
	case bool:
		return models.PropertyTypeBoolean
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return models.PropertyTypeInteger
	case float32:
		if float64(val) == math.Trunc(float64(val)) {
			return models.PropertyTypeInteger
		}
		return models.PropertyTypeFloat
	case float64:
		if val == math.Trunc(val) {
			return models.PropertyTypeInteger
		}
		return models.PropertyTypeFloat
	case time.Time:
		return models.PropertyTypeDateTime
	case string:
		return classifyString(val)
	default:
		return models.PropertyTypeString
	}
}

// classifyString detects values that are typed but arrive as text:
// SPARQL plain literals and several server versions stringify numbers,
// booleans, and timestamps.
func classifyString(s string) models.PropertyDataType {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return models.PropertyTypeString
	}

	if trimmed == "true" || trimmed == "false" {
		return models.PropertyTypeBoolean
	}
	if _, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return models.PropertyTypeInteger
	}
	if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return models.PropertyTypeFloat
	}
	if looksLikeDateTime(trimmed) {
		return models.PropertyTypeDateTime
	}
	return models.PropertyTypeString
}

func looksLikeDateTime(s string) bool {
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006-01-02 15:04:05"} {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// toInt64 coerces census counts, which arrive as int64 from bolt, as
// float64 from JSON backends, or as strings from some SPARQL stores.
func toInt64(v any) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case float64:
		return int64(val)
	case float32:
		return int64(val)
	case string:
		n, _ := strconv.ParseInt(val, 10, 64)
		return n
	default:
		return 0
	}
}

// ----------------------------------------------------------------------------
// Namespace handling
// ----------------------------------------------------------------------------

// namespaceIndex collects the namespaces seen while splitting URIs and
// assigns stable prefixes for the prompt's PREFIX block.
type namespaceIndex struct {
	byNamespace map[string]string
	byPrefix    map[string]string
}

func newNamespaceIndex() *namespaceIndex {
	return &namespaceIndex{
		byNamespace: map[string]string{},
		byPrefix:    map[string]string{},
	}
}

// localName splits a URI into namespace and local part, registers the
// namespace, and returns the local part. Non-URI values pass through.
func (n *namespaceIndex) localName(uri string) string {
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		return uri
	}

	i := strings.LastIndexAny(uri, "/#")
	if i < 0 || i == len(uri)-1 {
		return uri
	}

	n.register(uri[:i+1])
	return uri[i+1:]
}

// register assigns a prefix to a namespace on first sight.
func (n *namespaceIndex) register(namespace string) {
	if _, seen := n.byNamespace[namespace]; seen {
		return
	}

	base := prefixFor(namespace)
	prefix := base
	for i := 2; ; i++ {
		if _, taken := n.byPrefix[prefix]; !taken {
			break
		}
		prefix = fmt.Sprintf("%s%d", base, i)
	}

	n.byNamespace[namespace] = prefix
	n.byPrefix[prefix] = namespace
}

// prefixes returns the prefix to namespace mapping for the document.
func (n *namespaceIndex) prefixes() map[string]string {
	if len(n.byPrefix) == 0 {
		return nil
	}
	out := make(map[string]string, len(n.byPrefix))
	for prefix, ns := range n.byPrefix {
		out[prefix] = ns
	}
	return out
}

// prefixFor derives a prefix name from the last meaningful segment of a
// namespace URI: "http://example.org/people#" becomes "people".
func prefixFor(namespace string) string {
	trimmed := strings.TrimRight(namespace, "/#")
	segment := trimmed
	if i := strings.LastIndexAny(trimmed, "/#"); i >= 0 {
		segment = trimmed[i+1:]
	}

	var b strings.Builder
	for _, r := range strings.ToLower(segment) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}

	out := b.String()
	if out == "" || (out[0] >= '0' && out[0] <= '9') {
		return "ns" + out
	}
	return out
}

// ----------------------------------------------------------------------------
// Document merging
// ----------------------------------------------------------------------------

// MergeSchemaDocuments combines two sampled documents: types union by
// label, example lists concatenate and deduplicate under the cap, counts
// and descriptions follow the fresher sample. The outcome is the same
// whichever order the documents are given in.
func MergeSchemaDocuments(a, b *models.SchemaDocument) *models.SchemaDocument {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}

	fresh, stale := a, b
	if b.DatabaseInfo.SampledAt.After(a.DatabaseInfo.SampledAt) {
		fresh, stale = b, a
	}

	merged := &models.SchemaDocument{
		DatabaseInfo:  fresh.DatabaseInfo,
		Vertices:      mergeVertexTypes(stale.Vertices, fresh.Vertices),
		Edges:         mergeEdgeTypes(stale.Edges, fresh.Edges),
		RDFNamespaces: mergeNamespaces(stale.RDFNamespaces, fresh.RDFNamespaces),
		QueryExamples: mergeQueryExamples(stale.QueryExamples, fresh.QueryExamples),
	}
	sortSchemaTypes(merged)
	return merged
}

func mergeVertexTypes(stale, fresh []models.VertexType) []models.VertexType {
	byLabel := make(map[string]int)
	var out []models.VertexType

	for _, v := range stale {
		byLabel[v.Label] = len(out)
		out = append(out, v)
	}
	for _, v := range fresh {
		i, seen := byLabel[v.Label]
		if !seen {
			byLabel[v.Label] = len(out)
			out = append(out, v)
			continue
		}
		out[i] = models.VertexType{
			Label:       v.Label,
			Count:       firstNonZero(v.Count, out[i].Count),
			Description: firstNonEmpty(v.Description, out[i].Description),
			Properties:  mergeProperties(out[i].Properties, v.Properties),
		}
	}
	return out
}

func mergeEdgeTypes(stale, fresh []models.EdgeType) []models.EdgeType {
	byLabel := make(map[string]int)
	var out []models.EdgeType

	for _, e := range stale {
		byLabel[e.Label] = len(out)
		out = append(out, e)
	}
	for _, e := range fresh {
		i, seen := byLabel[e.Label]
		if !seen {
			byLabel[e.Label] = len(out)
			out = append(out, e)
			continue
		}
		out[i] = models.EdgeType{
			Label:       e.Label,
			From:        firstNonEmpty(e.From, out[i].From),
			To:          firstNonEmpty(e.To, out[i].To),
			Count:       firstNonZero(e.Count, out[i].Count),
			Description: firstNonEmpty(e.Description, out[i].Description),
			Properties:  mergeProperties(out[i].Properties, e.Properties),
		}
	}
	return out
}

func mergeProperties(stale, fresh []models.PropertyInfo) []models.PropertyInfo {
	byName := make(map[string]int)
	var out []models.PropertyInfo

	for _, p := range stale {
		byName[p.Name] = len(out)
		out = append(out, p)
	}
	for _, p := range fresh {
		i, seen := byName[p.Name]
		if !seen {
			byName[p.Name] = len(out)
			out = append(out, p)
			continue
		}
		out[i] = models.PropertyInfo{
			Name:        p.Name,
			DataType:    mergePropertyTypes(out[i].DataType, p.DataType),
			Examples:    mergeExamples(out[i].Examples, p.Examples),
			Description: firstNonEmpty(p.Description, out[i].Description),
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// mergePropertyTypes reconciles two inferred types for the same property.
// A disagreement means the underlying samples are mixed: integer and
// float widen to float, every other combination resolves to string.
func mergePropertyTypes(a, b models.PropertyDataType) models.PropertyDataType {
	if a == b {
		return a
	}
	if (a == models.PropertyTypeInteger && b == models.PropertyTypeFloat) ||
		(a == models.PropertyTypeFloat && b == models.PropertyTypeInteger) {
		return models.PropertyTypeFloat
	}
	return models.PropertyTypeString
}

func mergeExamples(stale, fresh []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range [][]string{stale, fresh} {
		for _, example := range list {
			if example == "" || seen[example] {
				continue
			}
			seen[example] = true
			out = append(out, example)
			if len(out) == models.MaxPropertyExamples {
				return out
			}
		}
	}
	return out
}

func mergeNamespaces(stale, fresh map[string]string) map[string]string {
	if len(stale) == 0 && len(fresh) == 0 {
		return nil
	}
	out := make(map[string]string, len(stale)+len(fresh))
	for prefix, ns := range stale {
		out[prefix] = ns
	}
	for prefix, ns := range fresh {
		out[prefix] = ns
	}
	return out
}

func mergeQueryExamples(stale, fresh []models.QueryExample) []models.QueryExample {
	seen := make(map[string]bool)
	var out []models.QueryExample
	for _, list := range [][]models.QueryExample{stale, fresh} {
		for _, example := range list {
			if example.Query == "" || seen[example.Query] {
				continue
			}
			seen[example.Query] = true
			out = append(out, example)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(values ...int64) int64 {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
