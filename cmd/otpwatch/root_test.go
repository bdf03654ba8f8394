package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	goOTP "github.com/MrEthical07/goOTP"
	"github.com/MrEthical07/goOTP/clock"
	"github.com/MrEthical07/goOTP/cmd/otpwatch/internal/items"
	"github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

type memClipboard struct {
	mu    sync.Mutex
	texts []string
}

func (m *memClipboard) WriteText(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
	return nil
}

// newTestApp writes content to a temp item file and returns an app whose
// clock sits at unix 59, one second before the RFC 6238 window rolls.
func newTestApp(t *testing.T, content string) (*app, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "items.yaml")
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write items: %v", err)
		}
	}
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})
	return &app{
		itemsPath: func() (string, error) { return path, nil },
		clock:     clock.NewFake(time.Unix(59, 0)),
		log:       log,
	}, path
}

const rfcItems = `items:
  - id: rfc
    name: RFC
    secret: ` + rfcSecret + `
  - id: rfc8
    kind: authenticator
    secret: ` + rfcSecret + `
    digits: 8
`

// executeCommand executes a command and returns its output
func executeCommand(cmd *cobra.Command, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

func TestCodeCommandPrintsAllItems(t *testing.T) {
	a, _ := newTestApp(t, rfcItems)

	out, err := executeCommand(newRootCommand(a), "code")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"RFC", "287082", "rfc8", "94287082", "1s"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestCodeCommandUnknownItem(t *testing.T) {
	a, _ := newTestApp(t, rfcItems)

	_, err := executeCommand(newRootCommand(a), "code", "nope")
	if !errors.Is(err, items.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCodeCommandNoItems(t *testing.T) {
	a, _ := newTestApp(t, "")

	out, err := executeCommand(newRootCommand(a), "code")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "no items configured") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestWatchOnceMasksSecret(t *testing.T) {
	a, _ := newTestApp(t, rfcItems)

	out, err := executeCommand(newRootCommand(a), "watch", "rfc", "--once")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "287082") || !strings.Contains(out, " 1s") {
		t.Fatalf("missing code or countdown:\n%s", out)
	}
	if strings.Contains(out, rfcSecret) {
		t.Fatalf("secret leaked without --reveal:\n%s", out)
	}
	if !strings.Contains(out, "••••••••") {
		t.Fatalf("expected masked secret:\n%s", out)
	}
}

func TestWatchOnceReveal(t *testing.T) {
	a, _ := newTestApp(t, rfcItems)

	out, err := executeCommand(newRootCommand(a), "watch", "rfc", "--once", "--reveal")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, rfcSecret) {
		t.Fatalf("expected revealed secret:\n%s", out)
	}
}

func TestWatchCopy(t *testing.T) {
	a, _ := newTestApp(t, rfcItems)
	clip := &memClipboard{}
	a.clipboard = clip

	if _, err := executeCommand(newRootCommand(a), "watch", "rfc8", "--once", "--copy"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clip.mu.Lock()
	defer clip.mu.Unlock()
	if len(clip.texts) != 1 || clip.texts[0] != "94287082" {
		t.Fatalf("clipboard = %v", clip.texts)
	}
}

func TestWatchRequiresItem(t *testing.T) {
	a, _ := newTestApp(t, rfcItems)

	if _, err := executeCommand(newRootCommand(a), "watch"); err == nil {
		t.Fatal("expected argument error")
	}
}

func TestOSC52Clipboard(t *testing.T) {
	var buf bytes.Buffer
	if err := (osc52Clipboard{w: &buf}).WriteText(context.Background(), "287082"); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	if got, want := buf.String(), "\x1b]52;c;Mjg3MDgy\a"; got != want {
		t.Fatalf("escape = %q, want %q", got, want)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (osc52Clipboard{w: &buf}).WriteText(ctx, "x"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestVerifyStateless(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	a, _ := newTestApp(t, rfcItems)

	out, err := executeCommand(newRootCommand(a), "verify", "rfc", "287082")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "ok RFC counter=1") {
		t.Fatalf("unexpected output: %q", out)
	}

	// Stateless verification accepts the same code again.
	if _, err := executeCommand(newRootCommand(a), "verify", "rfc", "287082"); err != nil {
		t.Fatalf("second verify: %v", err)
	}

	_, err = executeCommand(newRootCommand(a), "verify", "rfc", "000000", "--skew", "0")
	if !errors.Is(err, goOTP.ErrCodeInvalid) {
		t.Fatalf("expected ErrCodeInvalid, got %v", err)
	}
}

func TestVerifyReplayWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	a, _ := newTestApp(t, rfcItems)

	if _, err := executeCommand(newRootCommand(a), "verify", "rfc", "287082", "--redis-addr", mr.Addr()); err != nil {
		t.Fatalf("first verify: %v", err)
	}
	for i := 0; i < 3; i++ {
		_, err := executeCommand(newRootCommand(a), "verify", "rfc", "287082", "--redis-addr", mr.Addr(), "--max-attempts", "1")
		if !errors.Is(err, goOTP.ErrCodeReplayed) {
			t.Fatalf("replay %d: expected ErrCodeReplayed, got %v", i+1, err)
		}
	}
}

func TestVerifyMaxAttemptsNeedsRedis(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	a, _ := newTestApp(t, rfcItems)

	if _, err := executeCommand(newRootCommand(a), "verify", "rfc", "287082", "--max-attempts", "3"); err == nil {
		t.Fatal("expected error without redis")
	}
}

func TestURICommand(t *testing.T) {
	a, _ := newTestApp(t, rfcItems)

	out, err := executeCommand(newRootCommand(a), "uri", "rfc8", "--issuer", "ACME", "--account", "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out = strings.TrimSpace(out)
	key, err := goOTP.ParseKeyURI(out)
	if err != nil {
		t.Fatalf("ParseKeyURI(%q): %v", out, err)
	}
	if key.Issuer != "ACME" || key.AccountName != "alice" || key.Params.Digits != 8 {
		t.Fatalf("key = %+v", key)
	}
	if string(goOTP.DecodeSecret(key.Secret)) != string(goOTP.DecodeSecret(rfcSecret)) {
		t.Fatalf("secret changed: %q", key.Secret)
	}
}

func TestAddCommand(t *testing.T) {
	a, path := newTestApp(t, "")

	out, err := executeCommand(newRootCommand(a), "add", "gh", "--secret", "JBSWY3DPEHPK3PXP", "--name", "GitHub")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "added gh") {
		t.Fatalf("unexpected output: %q", out)
	}

	f, err := items.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	it, err := f.Get("gh")
	if err != nil || it.Name != "GitHub" {
		t.Fatalf("stored item = %+v, err = %v", it, err)
	}

	if _, err := executeCommand(newRootCommand(a), "add", "gh", "--secret", "JBSWY3DPEHPK3PXP"); err == nil {
		t.Fatal("expected duplicate error")
	}
}

func TestAddCommandRejects(t *testing.T) {
	tests := map[string][]string{
		"neither":        {"add", "x"},
		"both":           {"add", "x", "--secret", "JBSWY3DPEHPK3PXP", "--uri", "otpauth://totp/a?secret=JBSWY3DPEHPK3PXP"},
		"bad secret":     {"add", "x", "--secret", "0189"},
		"bad parameters": {"add", "x", "--secret", "JBSWY3DPEHPK3PXP", "--kind", "authenticator", "--digits", "12"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			a, _ := newTestApp(t, "")
			if _, err := executeCommand(newRootCommand(a), args...); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestPersistentPreRunE_Verbose(t *testing.T) {
	a, _ := newTestApp(t, rfcItems)
	t.Cleanup(func() { verbose = false })

	if _, err := executeCommand(newRootCommand(a), "--verbose", "code"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.log.GetLevel() != logrus.DebugLevel {
		t.Fatalf("level = %v, want debug", a.log.GetLevel())
	}

	verbose = false
	if _, err := executeCommand(newRootCommand(a), "code"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.log.GetLevel() != logrus.WarnLevel {
		t.Fatalf("level = %v, want warn", a.log.GetLevel())
	}
}
