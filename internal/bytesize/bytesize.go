// Package bytesize parses and formats human-readable sizes such as the
// upload limit ("25MiB", "100MB", "1048576").
package bytesize

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ByteSize is a size in bytes. Binary suffixes (Ki, Mi, Gi, Ti, with or
// without a trailing B) multiply by 1024, decimal suffixes (K, M, G, T,
// optionally KB...) by 1000.
type ByteSize uint64

const (
	B  ByteSize = 1
	KB ByteSize = 1000
	MB ByteSize = 1000 * KB
	GB ByteSize = 1000 * MB
	TB ByteSize = 1000 * GB

	KiB ByteSize = 1024
	MiB ByteSize = 1024 * KiB
	GiB ByteSize = 1024 * MiB
	TiB ByteSize = 1024 * GiB
)

var sizePattern = regexp.MustCompile(`(?i)^\s*(\d+(?:\.\d+)?)\s*([a-z]*)\s*$`)

var units = func() map[string]ByteSize {
	m := map[string]ByteSize{"": B, "b": B}
	for prefix, decimal := range map[string]ByteSize{"k": KB, "m": MB, "g": GB, "t": TB} {
		m[prefix] = decimal
		m[prefix+"b"] = decimal
	}
	for prefix, binary := range map[string]ByteSize{"ki": KiB, "mi": MiB, "gi": GiB, "ti": TiB} {
		m[prefix] = binary
		m[prefix+"b"] = binary
	}
	return m
}()

// binaryUnits drives String, largest first.
var binaryUnits = []struct {
	size   ByteSize
	suffix string
}{
	{TiB, "TiB"},
	{GiB, "GiB"},
	{MiB, "MiB"},
	{KiB, "KiB"},
}

// ParseByteSize parses s. Fractions are allowed with a unit ("1.5Mi") and
// truncated to whole bytes.
func ParseByteSize(s string) (ByteSize, error) {
	if strings.TrimSpace(s) == "" {
		return 0, fmt.Errorf("empty byte size string")
	}

	m := sizePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid byte size format: %q", s)
	}

	multiplier, ok := units[strings.ToLower(m[2])]
	if !ok {
		return 0, fmt.Errorf("unknown byte size unit: %q", m[2])
	}

	if !strings.Contains(m[1], ".") {
		n, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number in byte size: %q", m[1])
		}
		if n > math.MaxUint64/uint64(multiplier) {
			return 0, fmt.Errorf("byte size overflows: %q", s)
		}
		return ByteSize(n) * multiplier, nil
	}

	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number in byte size: %q", m[1])
	}
	return ByteSize(f * float64(multiplier)), nil
}

// UnmarshalText lets viper/mapstructure and yaml decode sizes from strings.
func (b *ByteSize) UnmarshalText(text []byte) error {
	size, err := ParseByteSize(string(text))
	if err != nil {
		return err
	}
	*b = size
	return nil
}

// MarshalText writes the String form, which ParseByteSize accepts back.
func (b ByteSize) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// String formats b with the largest binary unit that fits, trimming
// trailing zeros ("1.5GiB", "100MiB", "512B").
func (b ByteSize) String() string {
	for _, u := range binaryUnits {
		if b >= u.size {
			v := strconv.FormatFloat(float64(b)/float64(u.size), 'f', 2, 64)
			v = strings.TrimRight(strings.TrimRight(v, "0"), ".")
			return v + u.suffix
		}
	}
	return strconv.FormatUint(uint64(b), 10) + "B"
}

// Mebibytes returns b in MiB rounded to two decimals.
func (b ByteSize) Mebibytes() float64 {
	return math.Round(float64(b)/float64(MiB)*100) / 100
}

func (b ByteSize) Uint64() uint64 {
	return uint64(b)
}

// Int64 returns b as an int64, saturating at math.MaxInt64.
func (b ByteSize) Int64() int64 {
	if uint64(b) > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(b)
}
