package docstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/queryscope/queryscope/internal/docstore"
)

func TestEligible(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		doc  docstore.Document
		want bool
	}{
		{
			name: "declared sql language id",
			doc:  docstore.Document{URI: "file:///q", LanguageID: "sql"},
			want: true,
		},
		{
			name: "declared language id is case insensitive",
			doc:  docstore.Document{URI: "file:///q", LanguageID: "SQL"},
			want: true,
		},
		{
			name: "bigquery dialect id",
			doc:  docstore.Document{URI: "file:///q", LanguageID: "bigquery"},
			want: true,
		},
		{
			name: "sql extension without language id",
			doc: docstore.Document{
				URI:  "file:///queries/report.sql",
				Text: "SELECT a FROM t WHERE a > 1;",
			},
			want: true,
		},
		{
			name: "plain text file",
			doc: docstore.Document{
				URI:        "file:///notes/todo.txt",
				LanguageID: "plaintext",
				Text:       "buy milk",
			},
			want: false,
		},
		{
			name: "go source file",
			doc: docstore.Document{
				URI:        "file:///main.go",
				LanguageID: "go",
				Text:       "package main\n\nfunc main() {}\n",
			},
			want: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, docstore.Eligible(tc.doc))
		})
	}
}
