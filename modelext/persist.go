package modelext

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/c360/semmodel/model"
)

// Kind is the schema element class of a record or event.
type Kind string

// Element kinds.
const (
	KindForm    Kind = "form"
	KindProp    Kind = "prop"
	KindUniv    Kind = "univ"
	KindTagProp Kind = "tagprop"
)

// rank orders replay so that forms exist before their properties.
func (k Kind) rank() int {
	switch k {
	case KindForm:
		return 0
	case KindProp:
		return 1
	case KindUniv:
		return 2
	default:
		return 3
	}
}

// Record is the durable description of one extended element.
type Record struct {
	Kind Kind           `json:"kind"`
	Form string         `json:"form,omitempty"`
	Name string         `json:"name"`
	Type string         `json:"type"`
	Opts map[string]any `json:"opts,omitempty"`
	Info model.Info     `json:"info"`
	Seq  uint64         `json:"seq"`
}

// Key identifies the element within its kind: the form name, the full
// property name, the universal name without its dot, or the tag prop name.
func (r Record) Key() string {
	switch r.Kind {
	case KindProp:
		return r.Form + ":" + r.Name
	case KindUniv:
		return strings.TrimPrefix(r.Name, ".")
	default:
		return r.Name
	}
}

// SortRecords orders records for replay: by kind, then by sequence.
func SortRecords(recs []Record) {
	slices.SortStableFunc(recs, func(a, b Record) int {
		if c := cmp.Compare(a.Kind.rank(), b.Kind.rank()); c != 0 {
			return c
		}
		return cmp.Compare(a.Seq, b.Seq)
	})
}

// Persister stores extended elements so they survive restarts.
type Persister interface {
	Save(ctx context.Context, rec Record) error
	Delete(ctx context.Context, kind Kind, key string) error
	Load(ctx context.Context) ([]Record, error)
}

// MemoryPersister keeps records in a map. It is the default persister.
type MemoryPersister struct {
	mu   sync.Mutex
	recs map[Kind]map[string]Record
}

// NewMemoryPersister creates an empty MemoryPersister.
func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{recs: make(map[Kind]map[string]Record)}
}

// Save implements Persister.
func (p *MemoryPersister) Save(_ context.Context, rec Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	byKey, ok := p.recs[rec.Kind]
	if !ok {
		byKey = make(map[string]Record)
		p.recs[rec.Kind] = byKey
	}
	byKey[rec.Key()] = rec
	return nil
}

// Delete implements Persister.
func (p *MemoryPersister) Delete(_ context.Context, kind Kind, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.recs[kind], key)
	return nil
}

// Load implements Persister.
func (p *MemoryPersister) Load(_ context.Context) ([]Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Record
	for _, byKey := range p.recs {
		for _, rec := range byKey {
			out = append(out, rec)
		}
	}
	SortRecords(out)
	return out, nil
}

// Len is the number of stored records.
func (p *MemoryPersister) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, byKey := range p.recs {
		n += len(byKey)
	}
	return n
}
