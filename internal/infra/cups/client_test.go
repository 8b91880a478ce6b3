package cups

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/astro-web3/print-gateway/internal/domain/printing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrinters(t *testing.T) {
	out := []byte(`printer Office_Laser is idle.  enabled since Tue 06 Oct 2026 09:12:01 AM UTC
printer Label-ZPL disabled since Mon 05 Oct 2026 04:00:00 PM UTC -
	Paused
printer PDF is idle.  enabled since Tue 06 Oct 2026 09:12:01 AM UTC
`)
	assert.Equal(t, []string{"Office_Laser", "Label-ZPL", "PDF"}, parsePrinters(out))
	assert.Empty(t, parsePrinters(nil))
}

func TestParseDefault(t *testing.T) {
	assert.Equal(t, "Office_Laser", parseDefault([]byte("system default destination: Office_Laser\n")))
	assert.Equal(t, "", parseDefault([]byte("no system default destination\n")))
}

// fakeBin writes an executable shell script named name into dir.
func fakeBin(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestClient_PrintDirect(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts stand in for lp")
	}
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args")
	dataFile := filepath.Join(dir, "data")
	lp := fakeBin(t, dir, "lp",
		`printf '%s\n' "$@" > `+argsFile+`
cat > `+dataFile+`
echo "request id is Office_Laser-17 (1 file(s))"`)
	lpstat := fakeBin(t, dir, "lpstat", "exit 0")

	c, err := New(lp, lpstat)
	require.NoError(t, err)

	id, err := c.PrintDirect(context.Background(), printing.Job{
		Data:    []byte("hello"),
		Format:  "RAW",
		Printer: "Office_Laser",
	})
	require.NoError(t, err)
	assert.Equal(t, "Office_Laser-17", id)

	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Equal(t, []string{"-t", "print-gateway", "-d", "Office_Laser", "-o", "raw", "-"},
		strings.Fields(string(args)))

	data, err := os.ReadFile(dataFile)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestClient_PrintDirect_Failure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts stand in for lp")
	}
	dir := t.TempDir()
	lp := fakeBin(t, dir, "lp", `cat > /dev/null
echo "lp: The printer or class does not exist." >&2
exit 1`)
	lpstat := fakeBin(t, dir, "lpstat", "exit 0")

	c, err := New(lp, lpstat)
	require.NoError(t, err)

	_, err = c.PrintDirect(context.Background(), printing.Job{Data: []byte("x"), Printer: "Nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "The printer or class does not exist.")
}

func TestClient_PrintDirect_UnexpectedOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts stand in for lp")
	}
	dir := t.TempDir()
	lp := fakeBin(t, dir, "lp", "cat > /dev/null; echo queued")
	lpstat := fakeBin(t, dir, "lpstat", "exit 0")

	c, err := New(lp, lpstat)
	require.NoError(t, err)

	_, err = c.PrintDirect(context.Background(), printing.Job{Data: []byte("x")})
	assert.ErrorIs(t, err, ErrUnexpectedOutput)
}

func TestClient_Printers(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts stand in for lpstat")
	}
	dir := t.TempDir()
	lp := fakeBin(t, dir, "lp", "exit 0")
	lpstat := fakeBin(t, dir, "lpstat", `case "$1" in
-p) echo "printer Office_Laser is idle.  enabled since today"
    echo "printer Label is idle.  enabled since today" ;;
-d) echo "system default destination: Label" ;;
esac`)

	c, err := New(lp, lpstat)
	require.NoError(t, err)

	printers, err := c.Printers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []printing.PrinterInfo{
		{Name: "Office_Laser", IsDefault: false},
		{Name: "Label", IsDefault: true},
	}, printers)
}

func TestClient_Printers_NoDestinations(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts stand in for lpstat")
	}
	dir := t.TempDir()
	lp := fakeBin(t, dir, "lp", "exit 0")
	lpstat := fakeBin(t, dir, "lpstat", `echo "lpstat: No destinations added." >&2; exit 1`)

	c, err := New(lp, lpstat)
	require.NoError(t, err)

	printers, err := c.Printers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, printers)
}

func TestNew_MissingBinary(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "no-such-lp"), "lpstat")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lp not available")
}
