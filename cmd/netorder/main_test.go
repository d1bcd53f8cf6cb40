package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawbytedev/netorder/internal/capture"
)

const pointSchema = `
records:
  - name: point
    fields:
      - {name: x, type: u16}
      - {name: y, type: u16, directive: debug}
      - {name: tag, type: "?ipv4"}
`

func writeSchema(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "point.yaml")
	require.NoError(t, os.WriteFile(path, []byte(pointSchema), 0o644))
	return path
}

func runCmd(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestDecode(t *testing.T) {
	schema := writeSchema(t)
	out, errOut, err := runCmd(t, "0001 0002\n01 0a000001\n",
		"decode", "--schema", schema, "--record", "point", "--hex", "--log-level", "debug")
	require.NoError(t, err)
	assert.Equal(t, "x: 1\ny: 2\ntag: 10.0.0.1\n", out)
	assert.Contains(t, errOut, "decoded 2")
	assert.Contains(t, errOut, "field=y")
	assert.NotContains(t, errOut, "not fully consumed")
}

func TestDecodeTrailing(t *testing.T) {
	schema := writeSchema(t)
	_, errOut, err := runCmd(t, "0001000200ff", "decode", "-s", schema, "-r", "point", "--hex")
	require.NoError(t, err)
	assert.Contains(t, errOut, "input not fully consumed")
	assert.Contains(t, errOut, "trailing=1")
}

func TestDecodeShort(t *testing.T) {
	schema := writeSchema(t)
	_, _, err := runCmd(t, "0001", "decode", "-s", schema, "-r", "point", "--hex")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offset 2")
}

func TestEncode(t *testing.T) {
	schema := writeSchema(t)
	out, _, err := runCmd(t, "x: 1\ny: 2\ntag: null\n", "encode", "-s", schema, "-r", "point", "--hex")
	require.NoError(t, err)
	assert.Equal(t, "0001000200\n", out)

	_, _, err = runCmd(t, "x: 1\nz: 2\n", "encode", "-s", schema, "-r", "point")
	require.Error(t, err)
}

func TestEncodeCompressedFile(t *testing.T) {
	schema := writeSchema(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "point.yaml")
	bin := filepath.Join(dir, "point.bin.zst")
	require.NoError(t, os.WriteFile(in, []byte("x: 3\ny: 4\ntag: 192.0.2.1\n"), 0o644))

	_, _, err := runCmd(t, "", "encode", "-s", schema, "-r", "point", "-i", in, "-o", bin, "--zstd")
	require.NoError(t, err)

	f, err := os.Open(bin)
	require.NoError(t, err)
	defer f.Close()
	data, err := capture.Read(f, capture.Options{Compression: capture.CompZstd})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 3, 0, 4, 1, 192, 0, 2, 1}, data)

	out, _, err := runCmd(t, "", "decode", "-s", schema, "-r", "point", "-i", bin, "--format", "yaml")
	require.NoError(t, err)
	assert.Equal(t, "x: 3\ny: 4\ntag: 192.0.2.1\n", out)
}

func TestDescribe(t *testing.T) {
	schema := writeSchema(t)
	out, _, err := runCmd(t, "", "describe", "-s", schema)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "record point", strings.TrimSpace(lines[0]))
	assert.Equal(t, []string{"y", "u16", "debug"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"tag", "?ipv4"}, strings.Fields(lines[3]))
}

func TestUsageErrors(t *testing.T) {
	_, _, err := runCmd(t, "")
	require.Error(t, err)

	schema := writeSchema(t)
	_, _, err = runCmd(t, "", "frobnicate", "-s", schema)
	require.ErrorContains(t, err, "unknown command")

	_, _, err = runCmd(t, "", "decode")
	require.ErrorContains(t, err, "--schema")

	_, _, err = runCmd(t, "", "decode", "-s", schema, "-r", "nope")
	require.Error(t, err)

	_, _, err = runCmd(t, "", "decode", "-s", schema, "-r", "point", "--format", "xml")
	require.Error(t, err)

	_, _, err = runCmd(t, "", "decode", "--help")
	require.ErrorIs(t, err, pflag.ErrHelp)
}
