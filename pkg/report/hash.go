package report

import (
	"strconv"
	"strings"

	"github.com/minio/highwayhash"
)

var key = []byte("0123456789ABCDEF0123456789ABCDEF")

// Hash returns the 64-bit HighwayHash of data.
func Hash(data []byte) (uint64, error) {
	hash, err := highwayhash.New64(key)
	if err != nil {
		return 0, err
	}
	_, err = hash.Write(data)
	return hash.Sum64(), err
}

// InstanceHash identifies a finding across runs. It covers the pattern, the
// enclosing method and the called method but not the pc or line, so it
// survives unrelated edits to the same method.
func InstanceHash(f Finding) (string, error) {
	var b strings.Builder
	b.WriteString(f.Pattern)
	b.WriteByte(0)
	b.WriteString(f.Class)
	if f.Method != nil {
		b.WriteByte(0)
		b.WriteString(f.Method.Name)
		b.WriteString(f.Method.Signature)
	}
	if f.Called != nil {
		b.WriteByte(0)
		b.WriteString(f.Called.String())
	}
	h, err := Hash([]byte(b.String()))
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(h, 16), nil
}
