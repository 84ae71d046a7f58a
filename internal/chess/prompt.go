package chess

import (
	"bufio"
	"fmt"
	"io"
)

// ReaderPrompter asks for promotion pieces over a line-oriented stream.
type ReaderPrompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func NewReaderPrompter(r io.Reader, w io.Writer) *ReaderPrompter {
	return NewScannerPrompter(bufio.NewScanner(r), w)
}

// NewScannerPrompter shares s with a caller that reads other lines from the same stream.
func NewScannerPrompter(s *bufio.Scanner, w io.Writer) *ReaderPrompter {
	return &ReaderPrompter{scanner: s, out: w}
}

func (p *ReaderPrompter) PromptPromotion(rejected error) (string, error) {
	if rejected != nil {
		fmt.Fprintf(p.out, "%v, try again.\n", rejected)
	}
	fmt.Fprintln(p.out, "What would you like to promote to? (q, r, b, n)")
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return p.scanner.Text(), nil
}
