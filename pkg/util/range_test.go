package util

import (
	"reflect"
	"testing"
)

func TestExpandRange(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		want    []int
		wantErr bool
	}{
		{name: "single value", spec: "5", want: []int{5}},
		{name: "simple range", spec: "1-5", want: []int{1, 2, 3, 4, 5}},
		{name: "comma separated", spec: "1,3,5", want: []int{1, 3, 5}},
		{name: "mixed", spec: "1-3,5,7-9", want: []int{1, 2, 3, 5, 7, 8, 9}},
		{name: "with spaces", spec: "1 - 3, 5", want: []int{1, 2, 3, 5}},
		{name: "duplicates removed", spec: "1-3,2-4", want: []int{1, 2, 3, 4}},
		{name: "empty string", spec: "", want: nil},
		{name: "invalid - start > end", spec: "5-1", wantErr: true},
		{name: "invalid - not a number", spec: "abc", wantErr: true},
		{name: "invalid - bad range format", spec: "1-2-3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandRange(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Errorf("ExpandRange(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
				return
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExpandRange(%q) = %v, want %v", tt.spec, got, tt.want)
			}
		})
	}
}

func TestExpandPortRange(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		want    []string
		wantErr bool
	}{
		{
			name: "single port",
			spec: "Gi1/0/1",
			want: []string{"Gi1/0/1"},
		},
		{
			name: "last segment range",
			spec: "Gi1/0/1-3",
			want: []string{"Gi1/0/1", "Gi1/0/2", "Gi1/0/3"},
		},
		{
			name: "bare numbers reuse base",
			spec: "Gi1/0/1,5,Te1/0/24",
			want: []string{"Gi1/0/1", "Gi1/0/5", "Te1/0/24"},
		},
		{
			name: "duplicates dropped",
			spec: "Gi1/0/1-2,Gi1/0/2",
			want: []string{"Gi1/0/1", "Gi1/0/2"},
		},
		{
			name:    "bare number first",
			spec:    "5,Gi1/0/1",
			wantErr: true,
		},
		{
			name:    "bad number",
			spec:    "Gi1/0/x",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandPortRange(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Errorf("ExpandPortRange(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
				return
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExpandPortRange(%q) = %v, want %v", tt.spec, got, tt.want)
			}
		})
	}
}
