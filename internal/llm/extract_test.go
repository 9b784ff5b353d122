package llm

import "testing"

func TestExtractObject(t *testing.T) {
	tests := []struct {
		name    string
		resp    string
		want    string
		wantErr bool
	}{
		{"bare object", `{"strategy":"direct"}`, `{"strategy":"direct"}`, false},
		{"fenced", "```json\n{\"strategy\":\"direct\"}\n```", `{"strategy":"direct"}`, false},
		{"fence no lang", "```\n{\"a\":1}\n```", `{"a":1}`, false},
		{"leading filler", `Sure! Here you go: {"a":1} hope that helps`, `{"a":1}`, false},
		{"no object", "no json here", "", true},
		{"reversed braces", "} {", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractObject(tt.resp)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractObject() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ExtractObject() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractArray(t *testing.T) {
	tests := []struct {
		name    string
		resp    string
		want    string
		wantErr bool
	}{
		{"bare array", `[{"question":"q","answer":"a"}]`, `[{"question":"q","answer":"a"}]`, false},
		{"fenced", "```json\n[1,2]\n```", `[1,2]`, false},
		{"filler", `Here are the pairs: [1,2]`, `[1,2]`, false},
		{"empty array", `[]`, `[]`, false},
		{"no array", `{"a":1}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractArray(tt.resp)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractArray() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ExtractArray() = %q, want %q", got, tt.want)
			}
		})
	}
}
