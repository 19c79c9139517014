package cmd

import (
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// fieldReader is just a simple reader for whitespace or comma separated
// values
type fieldReader struct {
	pos    int
	fields []string
}

func newFieldReader(data string) *fieldReader {
	fields := strings.FieldsFunc(data, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	return &fieldReader{0, fields}
}

// read returns the next field
func (fr *fieldReader) read() (string, error) {
	if fr.pos >= len(fr.fields) {
		return "", io.EOF
	}
	p := fr.pos
	fr.pos++
	return fr.fields[p], nil
}

// readFloat reads the next field as a float
func (fr *fieldReader) readFloat() (float64, error) {
	s, err := fr.read()
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(s, 64)
}

// readUint reads the next field as an unsigned 64 bit integer (decimal or 0x hex)
func (fr *fieldReader) readUint() (uint64, error) {
	s, err := fr.read()
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(s, 0, 64)
}

// parseKey reads every field of data as a seed key word
func parseKey(data string) ([]uint64, error) {
	fr := newFieldReader(data)
	var key []uint64
	for {
		k, err := fr.readUint()
		if err == io.EOF {
			return key, nil
		}
		if err != nil {
			return nil, errors.Wrapf(err, "Invalid key at position %d", fr.pos-1)
		}
		key = append(key, k)
	}
}

// parseVector reads every field of data as a float. Empty data is a nil
// vector.
func parseVector(data string) ([]float64, error) {
	fr := newFieldReader(data)
	var vec []float64
	for {
		f, err := fr.readFloat()
		if err == io.EOF {
			return vec, nil
		}
		if err != nil {
			return nil, errors.Wrapf(err, "Invalid value at position %d", fr.pos-1)
		}
		vec = append(vec, f)
	}
}

// formatVector is the inverse of parseVector
func formatVector(v []float64) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}
