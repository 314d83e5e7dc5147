package vocab

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrUnstorableTerm is returned by Save for terms that would break the
// line-oriented file format.
var ErrUnstorableTerm = errors.New("vocab: term contains a line break")

const headerPrefix = "# size "

// Save writes d as a header line "# size <V>" followed by one term per
// line in rank order, so line i (after the header) holds the term of code i.
func Save(w io.Writer, d *Dictionary) error {
	if err := checkStorable(d); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%s%d\n", headerPrefix, d.size); err != nil {
		return err
	}
	for _, t := range d.toTerm {
		if _, err := bw.WriteString(t); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func checkStorable(d *Dictionary) error {
	for _, t := range d.toTerm {
		if strings.ContainsAny(t, "\r\n") {
			return fmt.Errorf("%w: %q", ErrUnstorableTerm, t)
		}
	}
	return nil
}

// Load reads a dictionary written by Save and rebuilds both mappings.
func Load(r io.Reader) (*Dictionary, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, errors.New("vocab: missing size header")
	}
	header := scanner.Text()
	if !strings.HasPrefix(header, headerPrefix) {
		return nil, fmt.Errorf("vocab: bad header %q", header)
	}
	size, err := strconv.Atoi(strings.TrimPrefix(header, headerPrefix))
	if err != nil {
		return nil, fmt.Errorf("vocab: bad size in header: %w", err)
	}

	var terms []string
	for scanner.Scan() {
		terms = append(terms, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return Build(terms, size)
}

// WriteFile saves d to path. Nothing is left at path when saving fails.
func WriteFile(path string, d *Dictionary) error {
	if err := checkStorable(d); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Save(f, d); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

// ReadFile loads a dictionary from path.
func ReadFile(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return d, nil
}
