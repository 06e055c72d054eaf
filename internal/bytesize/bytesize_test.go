package bytesize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseByteSize(t *testing.T) {
	tests := []struct {
		input string
		want  ByteSize
	}{
		{"0", 0},
		{"1024", 1024},
		{"1024B", 1024},
		{"1024b", 1024},

		{"1Ki", KiB},
		{"1KiB", KiB},
		{"25Mi", 25 * MiB},
		{"25MiB", 25 * MiB},
		{"1gi", GiB},
		{"1GI", GiB},
		{"2TiB", 2 * TiB},

		{"1K", KB},
		{"100MB", 100 * MB},
		{"1G", GB},
		{"1tb", TB},

		{"  1Gi", GiB},
		{"1 Gi  ", GiB},

		{"1.5Mi", ByteSize(1.5 * float64(MiB))},
		{"0.5GiB", 512 * MiB},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseByteSize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseByteSizeRejects(t *testing.T) {
	for _, input := range []string{"", "   ", "1Xi", "-1Gi", "Gi", "abc", "1.Mi", "99999999999999999999Ti"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseByteSize(input)
			assert.Error(t, err)
		})
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		size ByteSize
		want string
	}{
		{0, "0B"},
		{512, "512B"},
		{2 * KiB, "2KiB"},
		{25 * MiB, "25MiB"},
		{GiB + GiB/2, "1.5GiB"},
		{2 * TiB, "2TiB"},
		{1536 * KiB, "1.5MiB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.size.String())
	}
}

func TestStringRoundTrips(t *testing.T) {
	for _, size := range []ByteSize{512, 4 * KiB, 25 * MiB, 3 * GiB} {
		parsed, err := ParseByteSize(size.String())
		require.NoError(t, err)
		assert.Equal(t, size, parsed)
	}
}

func TestYAML(t *testing.T) {
	type limits struct {
		MaxUploadSize ByteSize `yaml:"max_upload_size"`
	}

	out, err := yaml.Marshal(limits{MaxUploadSize: 25 * MiB})
	require.NoError(t, err)
	assert.Equal(t, "max_upload_size: 25MiB\n", string(out))

	var in limits
	require.NoError(t, yaml.Unmarshal([]byte("max_upload_size: 1Gi\n"), &in))
	assert.Equal(t, GiB, in.MaxUploadSize)

	assert.Error(t, yaml.Unmarshal([]byte("max_upload_size: lots\n"), &in))
}

func TestConversions(t *testing.T) {
	assert.Equal(t, uint64(1<<30), GiB.Uint64())
	assert.Equal(t, int64(1<<30), GiB.Int64())
	assert.Equal(t, int64(1<<63-1), ByteSize(1<<64-1).Int64())

	assert.Equal(t, 1.5, (MiB + MiB/2).Mebibytes())
	assert.Equal(t, 0.01, ByteSize(10*KiB).Mebibytes())
	assert.Equal(t, 0.0, ByteSize(1).Mebibytes())
}
