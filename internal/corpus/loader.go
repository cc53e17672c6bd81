// Package corpus reads the line-delimited passage file the index is built from.
package corpus

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"ragchat/internal/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Load returns the file's lines in order, one passage per line. Each passage
// keeps its line terminator exactly as stored; the final line has none if the
// file does not end with a newline. Empty lines are passages too. A file that
// is not valid UTF-8 is rejected with ErrIO.
func Load(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading corpus %s: %v", domain.ErrIO, path, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: corpus %s is not valid UTF-8", domain.ErrIO, path)
	}
	return Split(data), nil
}

// Split breaks raw corpus bytes into passages the way Load does. Only '\n'
// ends a line; a lone '\r' stays inside its passage.
func Split(data []byte) []string {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(data) == 0 {
		return nil
	}
	text := string(data)
	passages := make([]string, 0, strings.Count(text, "\n")+1)
	for len(text) > 0 {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			passages = append(passages, text)
			break
		}
		passages = append(passages, text[:i+1])
		text = text[i+1:]
	}
	return passages
}

// Fingerprint hashes the corpus file contents. An index artifact records it so
// a later load can tell whether the corpus changed underneath it.
func Fingerprint(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: reading corpus %s: %v", domain.ErrIO, path, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
