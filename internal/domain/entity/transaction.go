package entity

// Transaction is the common envelope for a type-tagged record submitted for
// approval. The engine only inspects fields its rules and checks declare
// interest in; everything else rides along in Fields untouched.
type Transaction struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	Variant     string                 `json:"variant,omitempty"`
	Amount      *float64               `json:"amount,omitempty"`
	SubmittedBy string                 `json:"submitted_by"`
	Attachments []string               `json:"attachments,omitempty"`
	Fields      map[string]interface{} `json:"fields,omitempty"`
}

// SetField records a decoration on the transaction payload, allocating the
// field map on first use.
func (t *Transaction) SetField(key string, value interface{}) {
	if t.Fields == nil {
		t.Fields = make(map[string]interface{})
	}
	t.Fields[key] = value
}

// Field returns a decoration by key, or nil when absent.
func (t *Transaction) Field(key string) interface{} {
	if t.Fields == nil {
		return nil
	}
	return t.Fields[key]
}

// Clone returns a deep copy of the transaction. Queued workflow items hold a
// snapshot taken at enqueue time, so later caller mutations never leak in.
func (t *Transaction) Clone() *Transaction {
	clone := *t
	if t.Amount != nil {
		amount := *t.Amount
		clone.Amount = &amount
	}
	if t.Attachments != nil {
		clone.Attachments = append([]string{}, t.Attachments...)
	}
	if t.Fields != nil {
		clone.Fields = make(map[string]interface{}, len(t.Fields))
		for k, v := range t.Fields {
			clone.Fields[k] = v
		}
	}
	return &clone
}
