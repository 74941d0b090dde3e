package filter

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseWhere(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    Where
		wantErr bool
	}{
		{
			name: "no args",
			want: nil,
		},
		{
			name: "key value keeps spaces",
			args: []string{"author=John Doe"},
			want: Where{"author": "John Doe"},
		},
		{
			name: "repeated args are ANDed",
			args: []string{"author=John", "year=2023"},
			want: Where{"author": "John", "year": "2023"},
		},
		{
			name: "json shorthand",
			args: []string{`{"author": "John"}`},
			want: Where{"author": "John"},
		},
		{
			name: "json $eq",
			args: []string{`{"author": {"$eq": "John"}}`},
			want: Where{"author": "John"},
		},
		{
			name: "json $and",
			args: []string{`{"$and": [{"author": "John"}, {"year": {"$eq": 2023}}]}`},
			want: Where{"author": "John", "year": "2023"},
		},
		{
			name: "json bool",
			args: []string{`{"draft": false}`},
			want: Where{"draft": "false"},
		},
		{
			name: "json mixed with key value",
			args: []string{`{"author": "John"}`, "topic=go"},
			want: Where{"author": "John", "topic": "go"},
		},
		{
			name:    "missing equals",
			args:    []string{"author"},
			wantErr: true,
		},
		{
			name:    "bad json",
			args:    []string{`{"author": }`},
			wantErr: true,
		},
		{
			name:    "unsupported operator",
			args:    []string{`{"year": {"$gt": 2000}}`},
			wantErr: true,
		},
		{
			name:    "unsupported logical operator",
			args:    []string{`{"$or": [{"a": "1"}]}`},
			wantErr: true,
		},
		{
			name:    "conflicting values",
			args:    []string{"a=1", "a=2"},
			wantErr: true,
		},
		{
			name:    "null operand",
			args:    []string{`{"a": null}`},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWhere(tt.args)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalid) {
					t.Errorf("ParseWhere() error = %v, want ErrInvalid", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseWhere() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseWhere() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWhere_Matches(t *testing.T) {
	w := Where{"author": "John Doe", "empty": ""}

	tests := []struct {
		name string
		meta map[string]string
		want bool
	}{
		{"all equal", map[string]string{"author": "John Doe", "empty": "", "x": "y"}, true},
		{"value differs", map[string]string{"author": "Jane", "empty": ""}, false},
		{"missing key does not match empty", map[string]string{"author": "John Doe"}, false},
		{"nil metadata", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.Matches(tt.meta); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}

	if !Where(nil).Matches(nil) {
		t.Error("empty Where should match everything")
	}
}

func TestWhere_Keys(t *testing.T) {
	got := Where{"b": "1", "a": "2"}.Keys()
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Keys() = %v, want [a b]", got)
	}
}

func TestParseWhereDocument(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		want    WhereDocument
		wantErr bool
	}{
		{"empty", "", nil, false},
		{"contains", `{"$contains": "keyword"}`, WhereDocument{OpContains: "keyword"}, false},
		{"both", `{"$contains": "go", "$not_contains": "rust"}`, WhereDocument{OpContains: "go", OpNotContains: "rust"}, false},
		{"empty object", `{}`, nil, true},
		{"unknown operator", `{"$regex": "a.*"}`, nil, true},
		{"non-string operand", `{"$contains": 3}`, nil, true},
		{"not json", `$contains=go`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWhereDocument(tt.arg)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalid) {
					t.Errorf("ParseWhereDocument() error = %v, want ErrInvalid", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseWhereDocument() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseWhereDocument() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWhereDocument_Matches(t *testing.T) {
	wd := WhereDocument{OpContains: "vector", OpNotContains: "deprecated"}

	tests := []struct {
		text string
		want bool
	}{
		{"a vector database", true},
		{"a Vector database", false},
		{"deprecated vector API", false},
		{"nothing relevant", false},
	}
	for _, tt := range tests {
		if got := wd.Matches(tt.text); got != tt.want {
			t.Errorf("Matches(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
