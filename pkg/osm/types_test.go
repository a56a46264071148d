package osm

import "testing"

func TestParseElementRef(t *testing.T) {
	tests := []struct {
		input   string
		want    ElementRef
		wantErr bool
	}{
		{"way/201181659", WayRef(201181659), false},
		{"relation/42", RelationRef(42), false},
		{"w123", WayRef(123), false},
		{"r7", RelationRef(7), false},
		{"Way 15", WayRef(15), false},
		{"node/1", ElementRef{Kind: KindNode, ID: 1}, false},
		{"", ElementRef{}, true},
		{"way/", ElementRef{}, true},
		{"way/-3", ElementRef{}, true},
		{"changeset/1", ElementRef{}, true},
		{"12345", ElementRef{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseElementRef(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseElementRef(%q) expected error, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseElementRef(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseElementRef(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestElementRefString(t *testing.T) {
	if got := WayRef(201181659).String(); got != "way/201181659" {
		t.Errorf("String() = %s", got)
	}
	if !(ElementRef{}).IsZero() {
		t.Error("zero reference should report IsZero")
	}
}
