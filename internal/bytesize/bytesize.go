// Package bytesize parses and prints the human readable sizes used in the
// configuration file, e.g. uploads.max_size: 100Mi.
package bytesize

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"
)

// ByteSize is a size in bytes.
type ByteSize uint64

// Binary and decimal units.
const (
	B ByteSize = 1

	KiB = B << 10
	MiB = KiB << 10
	GiB = MiB << 10
	TiB = GiB << 10

	KB ByteSize = 1000
	MB          = KB * 1000
	GB          = MB * 1000
	TB          = GB * 1000
)

type unit struct {
	suffix string
	size   ByteSize
}

// units is ordered so longer suffixes are tried before their prefixes.
var units = []unit{
	{"kib", KiB}, {"mib", MiB}, {"gib", GiB}, {"tib", TiB},
	{"ki", KiB}, {"mi", MiB}, {"gi", GiB}, {"ti", TiB},
	{"kb", KB}, {"mb", MB}, {"gb", GB}, {"tb", TB},
	{"k", KB}, {"m", MB}, {"g", GB}, {"t", TB},
	{"b", B},
}

// printUnits are used by String, largest first.
var printUnits = []struct {
	name string
	size ByteSize
}{
	{"Ti", TiB}, {"Gi", GiB}, {"Mi", MiB}, {"Ki", KiB},
}

// Parse reads sizes such as "1024", "512Ki", "100Mi", "1.5GB" or "10 MiB".
// Suffixes are case-insensitive; Ki/Mi/Gi/Ti are powers of 1024 and
// K/M/G/T are powers of 1000.
func Parse(s string) (ByteSize, error) {
	in := strings.ToLower(strings.TrimSpace(s))
	if in == "" {
		return 0, fmt.Errorf("empty byte size")
	}

	mult := B
	for _, u := range units {
		if strings.HasSuffix(in, u.suffix) {
			mult = u.size
			in = strings.TrimSpace(strings.TrimSuffix(in, u.suffix))
			break
		}
	}
	if in == "" {
		return 0, fmt.Errorf("invalid byte size %q: missing number", s)
	}

	if n, err := strconv.ParseUint(in, 10, 64); err == nil {
		if n > math.MaxUint64/uint64(mult) {
			return 0, fmt.Errorf("byte size %q overflows", s)
		}
		return ByteSize(n) * mult, nil
	}

	f, err := strconv.ParseFloat(in, 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid byte size %q", s)
	}
	total := f * float64(mult)
	if total >= math.MaxUint64 {
		return 0, fmt.Errorf("byte size %q overflows", s)
	}
	return ByteSize(total), nil
}

// String prints the size with the largest binary unit that divides it
// exactly, so the result parses back to the same value.
func (b ByteSize) String() string {
	for _, u := range printUnits {
		if b >= u.size && b%u.size == 0 {
			return strconv.FormatUint(uint64(b/u.size), 10) + u.name
		}
	}
	return strconv.FormatUint(uint64(b), 10)
}

// Human prints an approximate size for display, e.g. "1.18 MiB".
func Human(n int64) string {
	if n < int64(KiB) {
		return fmt.Sprintf("%d B", n)
	}
	for _, u := range printUnits {
		if n >= int64(u.size) {
			return fmt.Sprintf("%.2f %sB", float64(n)/float64(u.size), u.name)
		}
	}
	return fmt.Sprintf("%d B", n)
}

// Int64 returns the size as an int64, saturating at math.MaxInt64.
func (b ByteSize) Int64() int64 {
	if b > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(b)
}

// MarshalText implements encoding.TextMarshaler.
func (b ByteSize) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *ByteSize) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// JSONSchema describes the accepted forms for the configuration schema.
func (ByteSize) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			{Type: "integer", Minimum: "0"},
			{Type: "string", Pattern: `^\s*\d+(\.\d+)?\s*([KMGT]i?B?|[KMGT]iB|B)?\s*$`},
		},
		Description: `Size in bytes, or with a unit suffix such as "512Ki", "100Mi" or "1GB"`,
	}
}
