package cli

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestServeCmdShutsDownOnContextCancel(t *testing.T) {
	quietLogs(t)
	dbPath := filepath.Join(t.TempDir(), "packwave.db")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	out, err := runCmdContext(t, ctx, nil, "serve", "--db", dbPath, "--listen", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("serve failed: %v\noutput: %s", err, out)
	}
	if !strings.Contains(out, "serving sweep results") {
		t.Errorf("missing startup line: %q", out)
	}
	if !strings.Contains(out, "shutting down HTTP server") {
		t.Errorf("missing shutdown line: %q", out)
	}
}
