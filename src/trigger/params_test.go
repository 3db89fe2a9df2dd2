package trigger

import (
	"errors"
	"testing"

	"azdo-monitor/src/provider"
)

func TestParams_AddRejectsDuplicateName(t *testing.T) {
	p := &Params{}

	first, err := p.Add("env", "staging")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if first.ID == "" {
		t.Error("Add() did not assign an id")
	}

	if _, err := p.Add("env", "prod"); !errors.Is(err, provider.ErrDuplicateKeyName) {
		t.Errorf("Add() error = %v, want ErrDuplicateKeyName", err)
	}
	if got := p.List(); len(got) != 1 || got[0].KeyValue != "staging" {
		t.Errorf("List() = %+v", got)
	}
}

func TestParams_AddRequiresNameAndValue(t *testing.T) {
	p := &Params{}
	tests := []struct {
		name, key, value string
	}{
		{"missing name", "", "v"},
		{"missing value", "k", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := p.Add(tt.key, tt.value); !errors.Is(err, provider.ErrValidation) {
				t.Errorf("Add() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestParams_Update(t *testing.T) {
	p := &Params{}
	env, _ := p.Add("env", "staging")
	region, _ := p.Add("region", "eu")

	if err := p.Update(env.ID, "env", "prod"); err != nil {
		t.Errorf("Update() same name error = %v", err)
	}
	if err := p.Update(env.ID, "environment", "prod"); err != nil {
		t.Errorf("Update() rename error = %v", err)
	}
	if err := p.Update(region.ID, "environment", "x"); !errors.Is(err, provider.ErrDuplicateKeyName) {
		t.Errorf("Update() onto taken name error = %v, want ErrDuplicateKeyName", err)
	}
	if err := p.Update("missing", "a", "b"); !errors.Is(err, provider.ErrNotFound) {
		t.Errorf("Update() unknown id error = %v, want ErrNotFound", err)
	}

	got, ok := p.Get(env.ID)
	if !ok || got.KeyName != "environment" || got.KeyValue != "prod" {
		t.Errorf("Get() = %+v, %v", got, ok)
	}
	list := p.List()
	if len(list) != 2 || list[0].ID != env.ID || list[1].ID != region.ID {
		t.Errorf("order changed: %+v", list)
	}
}

func TestParams_Delete(t *testing.T) {
	p := &Params{}
	a, _ := p.Add("a", "1")
	b, _ := p.Add("b", "2")

	if !p.Delete(a.ID) {
		t.Error("Delete() = false")
	}
	if p.Delete(a.ID) {
		t.Error("second Delete() = true")
	}
	if _, err := p.Add("a", "3"); err != nil {
		t.Errorf("re-adding deleted name: %v", err)
	}

	tp := p.TemplateParameters()
	if len(tp) != 2 || tp["a"] != "3" || tp["b"] != "2" {
		t.Errorf("TemplateParameters() = %v", tp)
	}
	if _, ok := p.Get(b.ID); !ok {
		t.Error("Get(b) missing")
	}
}

func TestNewParams(t *testing.T) {
	p, err := NewParams([]Param{{ID: "keep", KeyName: "a", KeyValue: "1"}, {KeyName: "b", KeyValue: "2"}})
	if err != nil {
		t.Fatalf("NewParams() error = %v", err)
	}
	list := p.List()
	if list[0].ID != "keep" || list[1].ID == "" {
		t.Errorf("ids = %q, %q", list[0].ID, list[1].ID)
	}

	if _, err := NewParams([]Param{{KeyName: "a", KeyValue: "1"}, {KeyName: "a", KeyValue: "2"}}); !errors.Is(err, provider.ErrDuplicateKeyName) {
		t.Errorf("NewParams() error = %v, want ErrDuplicateKeyName", err)
	}
}

func TestParseAssignments(t *testing.T) {
	p, err := ParseAssignments([]string{"env=prod", "flags=a=b"})
	if err != nil {
		t.Fatalf("ParseAssignments() error = %v", err)
	}
	tp := p.TemplateParameters()
	if tp["env"] != "prod" || tp["flags"] != "a=b" {
		t.Errorf("TemplateParameters() = %v", tp)
	}

	if _, err := ParseAssignments([]string{"novalue"}); !errors.Is(err, provider.ErrValidation) {
		t.Errorf("ParseAssignments() error = %v, want ErrValidation", err)
	}
	if _, err := ParseAssignments([]string{"a=1", "a=2"}); !errors.Is(err, provider.ErrDuplicateKeyName) {
		t.Errorf("ParseAssignments() error = %v, want ErrDuplicateKeyName", err)
	}
}
