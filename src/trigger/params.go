package trigger

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"azdo-monitor/src/provider"
)

// Param is one user-defined template parameter.
type Param struct {
	ID       string `json:"id"`
	KeyName  string `json:"keyName"`
	KeyValue string `json:"keyValue"`
}

// Params is an ordered set of parameters with unique key names.
type Params struct {
	mu    sync.Mutex
	items []Param
}

// NewParams returns a set holding list. Entries without an id get one; a
// repeated key name fails with provider.ErrDuplicateKeyName.
func NewParams(list []Param) (*Params, error) {
	p := &Params{}
	for _, item := range list {
		if err := checkParam(item.KeyName, item.KeyValue); err != nil {
			return nil, err
		}
		if p.indexOfName(item.KeyName) >= 0 {
			return nil, duplicateKey(item.KeyName)
		}
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		p.items = append(p.items, item)
	}
	return p, nil
}

// Add appends a parameter with a generated id.
func (p *Params) Add(name, value string) (Param, error) {
	if err := checkParam(name, value); err != nil {
		return Param{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.indexOfName(name) >= 0 {
		return Param{}, duplicateKey(name)
	}
	item := Param{ID: uuid.NewString(), KeyName: name, KeyValue: value}
	p.items = append(p.items, item)
	return item, nil
}

// Update edits the parameter with the given id in place.
func (p *Params) Update(id, name, value string) error {
	if err := checkParam(name, value); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.indexOfID(id)
	if i < 0 {
		return fmt.Errorf("parameter %s: %w", id, provider.ErrNotFound)
	}
	if j := p.indexOfName(name); j >= 0 && j != i {
		return duplicateKey(name)
	}
	p.items[i].KeyName = name
	p.items[i].KeyValue = value
	return nil
}

// Delete removes the parameter with the given id and reports whether it existed.
func (p *Params) Delete(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.indexOfID(id)
	if i < 0 {
		return false
	}
	p.items = append(p.items[:i], p.items[i+1:]...)
	return true
}

// Get returns the parameter with the given id.
func (p *Params) Get(id string) (Param, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.indexOfID(id)
	if i < 0 {
		return Param{}, false
	}
	return p.items[i], true
}

// List returns the parameters in insertion order.
func (p *Params) List() []Param {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Param(nil), p.items...)
}

// TemplateParameters returns the keyName to keyValue mapping sent with a run.
func (p *Params) TemplateParameters() map[string]string {
	return templateParameters(p.List())
}

func (p *Params) indexOfID(id string) int {
	for i, item := range p.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func (p *Params) indexOfName(name string) int {
	for i, item := range p.items {
		if item.KeyName == name {
			return i
		}
	}
	return -1
}

func checkParam(name, value string) error {
	if strings.TrimSpace(name) == "" {
		return &provider.ValidationError{Field: "keyName", Message: "key name is required"}
	}
	if value == "" {
		return &provider.ValidationError{Field: "keyValue", Message: "key value is required"}
	}
	return nil
}

func duplicateKey(name string) error {
	return fmt.Errorf("key %q is already added, update the existing key instead: %w", name, provider.ErrDuplicateKeyName)
}

// ParseAssignments turns key=value strings into parameters.
func ParseAssignments(pairs []string) (*Params, error) {
	p := &Params{}
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, &provider.ValidationError{Field: "param", Message: fmt.Sprintf("%q is not key=value", pair)}
		}
		if _, err := p.Add(strings.TrimSpace(name), value); err != nil {
			return nil, err
		}
	}
	return p, nil
}
