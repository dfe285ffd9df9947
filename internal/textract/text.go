package textract

import (
	"bufio"
	"io"
	"strings"
)

// Text splits plain text into paragraphs on blank lines.
type Text struct{}

func (Text) Blocks(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		paragraphs []string
		lines      []string
	)
	flush := func() {
		if len(lines) > 0 {
			paragraphs = append(paragraphs, strings.Join(lines, "\n"))
			lines = lines[:0]
		}
	}
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		lines = append(lines, line)
	}
	flush()
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return paragraphs, nil
}
