package s3

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		key  string
		want string
	}{
		{
			name: "PublicURL",
			cfg:  Config{Bucket: "b", PublicURL: "https://cdn.example.com/"},
			key:  "files/u1/a.txt",
			want: "https://cdn.example.com/files/u1/a.txt",
		},
		{
			name: "CustomEndpoint",
			cfg:  Config{Bucket: "b", Endpoint: "http://localhost:4566"},
			key:  "u1/a.txt",
			want: "http://localhost:4566/b/u1/a.txt",
		},
		{
			name: "VirtualHostedWithRegion",
			cfg:  Config{Bucket: "b", Region: "eu-west-1"},
			key:  "u1/a.txt",
			want: "https://b.s3.eu-west-1.amazonaws.com/u1/a.txt",
		},
		{
			name: "EscapesSpaces",
			cfg:  Config{Bucket: "b", Region: "us-east-1"},
			key:  "u1/Q3 Report.pdf",
			want: "https://b.s3.us-east-1.amazonaws.com/u1/Q3%20Report.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(nil, tt.cfg)
			assert.Equal(t, tt.want, s.objectURL(tt.key))
		})
	}
}

func TestFullKey(t *testing.T) {
	s := New(nil, Config{KeyPrefix: "files/"})
	assert.Equal(t, "files/u1/a.txt", s.fullKey("u1/a.txt"))
}
