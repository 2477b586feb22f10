package main

import (
	"reflect"
	"testing"
)

func TestParseIDs(t *testing.T) {
	tests := []struct {
		raw     string
		want    []int64
		wantErr bool
	}{
		{"1,2,3", []int64{1, 2, 3}, false},
		{" 4 , 5 ,", []int64{4, 5}, false},
		{"", nil, true},
		{"1,x", nil, true},
	}
	for _, tt := range tests {
		got, err := parseIDs(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Fatalf("parseIDs(%q): expected error %v, got %v", tt.raw, tt.wantErr, err)
		}
		if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseIDs(%q): expected %v, got %v", tt.raw, tt.want, got)
		}
	}
}
