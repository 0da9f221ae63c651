package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		for _, c := range append(rootCmd.Commands(), rootCmd) {
			resetFlags(c.Flags())
			resetFlags(c.PersistentFlags())
		}
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
}

func fakeService(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestConvertCommand(t *testing.T) {
	gw := fakeService(t, `{"success":true,"content":"# scan.pdf\n\n| A |\n| --- |\n| 1 |\n","processing_method":"OCR","filename":"scan.pdf"}`)
	dir := t.TempDir()
	src := filepath.Join(dir, "scan.pdf")
	require.NoError(t, os.WriteFile(src, []byte("%PDF"), 0o600))
	htmlPath := filepath.Join(dir, "scan.html")

	_, err := execute(t, "convert", src, "--gateway", gw.URL+"/api/convert", "--html", htmlPath)
	require.NoError(t, err)

	md, err := os.ReadFile(filepath.Join(dir, "scan.md"))
	require.NoError(t, err)
	assert.Equal(t, "# scan.pdf\n\n| A |\n| --- |\n| 1 |\n", string(md))
	html, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Contains(t, string(html), "<td>1</td>")
}

func TestConvertCommand_Stdout(t *testing.T) {
	gw := fakeService(t, `{"success":true,"content":"# a.pdf\n"}`)
	src := filepath.Join(t.TempDir(), "a.pdf")
	require.NoError(t, os.WriteFile(src, []byte("%PDF"), 0o600))

	out, err := execute(t, "convert", src, "--gateway", gw.URL, "--out", "-")
	require.NoError(t, err)
	assert.Equal(t, "# a.pdf\n", out)
}

func TestHealthCommand(t *testing.T) {
	gw := fakeService(t, `{"status":"API gateway is running","message":"m"}`)
	text := fakeService(t, `{"status":"Text extraction service is running","message":"m"}`)
	t.Setenv("PDFCONVERT_GATEWAY_URL", gw.URL+"/api/convert")
	t.Setenv("PDFCONVERT_TEXT_URL", text.URL)
	t.Setenv("PDFCONVERT_OCR_URL", "http://127.0.0.1:1/")

	out, err := execute(t, "health", "--config", filepath.Join(t.TempDir(), "none.yaml"), "--timeout", "2s")
	require.Error(t, err)
	assert.Contains(t, out, "API gateway is running")
	assert.Contains(t, out, "Text extraction service is running")
	assert.Contains(t, out, "FAIL ocr")
}

func TestServiceRoot(t *testing.T) {
	got, err := serviceRoot("http://localhost:5001/api/convert?x=1")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5001/", got)

	_, err = serviceRoot("not a url")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "pdfconvert dev\n", out)
}
