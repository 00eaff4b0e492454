package hotkey

import (
	"reflect"
	"testing"
)

func TestParseCombo(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		want    []string
		wantErr bool
	}{
		{"modifier and key", "ctrl+3", []string{"ctrl", "3"}, false},
		{"upper case", "Ctrl+F5", []string{"ctrl", "f5"}, false},
		{"single key", "f9", []string{"f9"}, false},
		{"spaces", " ctrl + 4 ", []string{"ctrl", "4"}, false},
		{"trailing plus", "ctrl+", nil, true},
		{"empty", "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCombo(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseCombo(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
			if err == nil && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseCombo(%q) = %v, want %v", tt.spec, got, tt.want)
			}
		})
	}
}

func TestNewManagerRejectsBadSpecs(t *testing.T) {
	if _, err := NewManager("", "ctrl+4", nil, nil, nil); err == nil {
		t.Error("empty ptt key should fail")
	}
	if _, err := NewManager("ctrl+3", "+", nil, nil, nil); err == nil {
		t.Error("bad vision key should fail")
	}
}
