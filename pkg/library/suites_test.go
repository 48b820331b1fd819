package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSuiteDirectives(t *testing.T) {
	tests := []struct {
		name        string
		script      string
		title       string
		description string
	}{
		{
			name:        "both directives",
			script:      "-- Title: Roundtrip\n-- Description: encode then decode\nt = {}\n",
			title:       "Roundtrip",
			description: "encode then decode",
		},
		{
			name:   "title only",
			script: "-- Title: Smoke\nt = {}\n",
			title:  "Smoke",
		},
		{
			name:   "no directives",
			script: "t = {}\n",
		},
		{
			name:   "leading blank lines skipped",
			script: "\n\n-- Title: Late\nt = {}\n",
			title:  "Late",
		},
		{
			name:   "directives after code ignored",
			script: "t = {}\n-- Title: Too Late\n",
		},
		{
			name:   "extra dashes tolerated",
			script: "--- Title: Banner\nt = {}\n",
			title:  "Banner",
		},
		{
			name:   "unrelated comments skipped",
			script: "-- just a note\n-- Title: Findable\nt = {}\n",
			title:  "Findable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, description := parseSuiteDirectives(tt.script)
			assert.Equal(t, tt.title, title)
			assert.Equal(t, tt.description, description)
		})
	}
}
