package fs

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ld/ainote/pkg/core"
)

// frontmatter is the YAML header of a note file. The body after the closing
// delimiter is the note content.
type frontmatter struct {
	Owner         string     `yaml:"owner,omitempty"`
	Title         string     `yaml:"title,omitempty"`
	Stack         string     `yaml:"stack,omitempty"`
	Chapter       int        `yaml:"chapter,omitempty"`
	Section       int        `yaml:"section,omitempty"`
	Collaborators []string   `yaml:"collaborators,omitempty"`
	Timestamp     *time.Time `yaml:"timestamp,omitempty"`
}

var (
	delimiter      = []byte("---\n")
	closeDelimiter = []byte("\n---\n")
)

// decodeNote parses a markdown note. Files without frontmatter are treated
// as plain content.
func decodeNote(data []byte) (core.Note, error) {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(data, delimiter) {
		return core.Note{Content: string(data)}, nil
	}

	rest := data[len(delimiter):]
	var header, body []byte
	if bytes.HasPrefix(rest, delimiter) {
		body = rest[len(delimiter):]
	} else {
		i := bytes.Index(rest, closeDelimiter)
		if i < 0 {
			return core.Note{}, errors.New("frontmatter started but no closing delimiter found")
		}
		header, body = rest[:i], rest[i+len(closeDelimiter):]
	}

	var fm frontmatter
	if err := yaml.Unmarshal(header, &fm); err != nil {
		return core.Note{}, fmt.Errorf("failed to parse frontmatter: %w", err)
	}

	return core.Note{
		OwnerID:       fm.Owner,
		Title:         fm.Title,
		Content:       string(body),
		Stack:         fm.Stack,
		Chapter:       fm.Chapter,
		Section:       fm.Section,
		Collaborators: fm.Collaborators,
		Timestamp:     fm.Timestamp,
	}, nil
}

// encodeNote renders n as frontmatter plus body. The id is not written; it
// is the file name.
func encodeNote(n core.Note) ([]byte, error) {
	fm := frontmatter{
		Owner:         n.OwnerID,
		Title:         n.Title,
		Stack:         n.Stack,
		Chapter:       n.Chapter,
		Section:       n.Section,
		Collaborators: n.Collaborators,
	}
	if n.Timestamp != nil {
		ts := n.Timestamp.UTC()
		fm.Timestamp = &ts
	}

	var buf bytes.Buffer
	buf.Write(delimiter)
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(fm); err != nil {
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		buf.WriteByte('\n')
	}
	buf.Write(delimiter)
	buf.WriteString(n.Content)
	return buf.Bytes(), nil
}
