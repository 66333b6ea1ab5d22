// Copyright 2024 The Bit Authors
// This file is part of bit.

package lane

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// ReadmeFrontMatter is the optional `---`-delimited YAML header a lane's
// readme Source may carry (§9 supplemented feature): arbitrary display
// metadata, never interpreted by the core itself.
type ReadmeFrontMatter struct {
	Title string            `yaml:"title,omitempty"`
	Tags  []string          `yaml:"tags,omitempty"`
	Extra map[string]string `yaml:",inline"`
}

// ParseReadmeFrontMatter splits a leading `---\n...\n---\n` YAML block off
// content and parses it, returning the remaining body unchanged. Absent a
// front matter block, it returns a zero-value header and the content as-is.
func ParseReadmeFrontMatter(content string) (ReadmeFrontMatter, string) {
	const delim = "---"
	if !strings.HasPrefix(content, delim+"\n") {
		return ReadmeFrontMatter{}, content
	}
	rest := content[len(delim)+1:]
	end := strings.Index(rest, "\n"+delim)
	if end < 0 {
		return ReadmeFrontMatter{}, content
	}
	header := rest[:end]
	body := strings.TrimPrefix(rest[end+1+len(delim):], "\n")

	var fm ReadmeFrontMatter
	if err := yaml.Unmarshal([]byte(header), &fm); err != nil {
		return ReadmeFrontMatter{}, content
	}
	return fm, body
}
