package stim

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strconv"
)

// digest hashes parts with a NUL separator so ("ab","c") != ("a","bc").
func digest(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// fileFingerprint identifies a file by absolute path, size and modification
// time. If the file cannot be stat'ed only the path is used.
func fileFingerprint(kind Kind, filename string) string {
	abs, err := filepath.Abs(filename)
	if err != nil {
		abs = filename
	}
	info, err := os.Stat(abs)
	if err != nil {
		return digest(string(kind), abs)
	}
	return digest(string(kind), abs,
		strconv.FormatInt(info.Size(), 10),
		strconv.FormatInt(info.ModTime().UnixNano(), 10))
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
