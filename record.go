package newsharvest

// LinkEntry is one discovered article reference. Discovery modes emit
// these without visiting the article pages themselves.
type LinkEntry struct {
	Link  string `json:"link"`
	Title string `json:"title,omitempty"`
}

// Fields is a generic JSON document. Canonical article records are
// kept generic rather than struct-typed so the empty pruner and the
// schema-stability invariant (every present leaf is a non-empty
// sequence) apply uniformly to arbitrarily nested values.
type Fields = map[string]any

// PassthroughKey is never pruned from an article record, even when its
// value is empty. Downstream consumers rely on the key being present.
const PassthroughKey = "parsed_json"
