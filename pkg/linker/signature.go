package linker

import (
	"strings"
	"sync"

	"golang.org/x/exp/slices"
)

// Signature is a wasm function type.
type Signature struct {
	Params  []ValType
	Results []ValType
}

func (s Signature) String() string {
	var sb strings.Builder
	writeList := func(types []ValType) {
		sb.WriteByte('(')
		for i, t := range types {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(t.String())
		}
		sb.WriteByte(')')
	}
	writeList(s.Params)
	sb.WriteString(" -> ")
	writeList(s.Results)
	return sb.String()
}

func (s Signature) Equal(o Signature) bool {
	return slices.Equal(s.Params, o.Params) && slices.Equal(s.Results, o.Results)
}

// key encodes s so that structurally equal signatures map to the same
// string. Value type bytes are never zero, so zero separates the lists.
func (s Signature) key() string {
	b := make([]byte, 0, len(s.Params)+len(s.Results)+1)
	for _, t := range s.Params {
		b = append(b, byte(t))
	}
	b = append(b, 0)
	for _, t := range s.Results {
		b = append(b, byte(t))
	}
	return string(b)
}

// SignatureTable deduplicates signatures across all input files of a link.
// Interned signatures are compared by pointer.
type SignatureTable struct {
	mu    sync.Mutex
	sigs  map[string]*Signature
	order []*Signature
}

func NewSignatureTable() *SignatureTable {
	return &SignatureTable{sigs: make(map[string]*Signature)}
}

// Intern returns the table's canonical instance of sig, creating it on
// first sight. It is safe to call from concurrent parsers.
func (t *SignatureTable) Intern(sig Signature) *Signature {
	key := sig.key()

	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.sigs[key]; ok {
		return s
	}
	s := &Signature{
		Params:  slices.Clip(slices.Clone(sig.Params)),
		Results: slices.Clip(slices.Clone(sig.Results)),
	}
	t.sigs[key] = s
	t.order = append(t.order, s)
	return s
}

func (t *SignatureTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.order)
}

// Signatures returns the interned signatures in first-seen order.
func (t *SignatureTable) Signatures() []*Signature {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.order)
}
