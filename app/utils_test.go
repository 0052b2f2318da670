package app

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/mandelsoft/vfs/pkg/vfs"

	"go.hackfix.me/rowlog/capability/autostart"
	"go.hackfix.me/rowlog/db"
)

var timeNow = time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC)

func timeNowFn() time.Time {
	return timeNow
}

type testApp struct {
	*App
	fs             vfs.FileSystem
	stdout, stderr *safeBuffer
	shellCalls     *[]string
}

type testAppOptions struct {
	stdin       io.Reader
	interactive bool
	timeNow     func() time.Time
	goos        string
}

func newTestApp(ctx context.Context, t *testing.T, topts testAppOptions) *testApp {
	t.Helper()

	// A unique name per app, to avoid clashing of in-memory SQLite DBs.
	rndName := make([]byte, 12)
	if _, err := rand.Read(rndName); err != nil {
		t.Fatal(err)
	}

	if topts.timeNow == nil {
		topts.timeNow = timeNowFn
	}
	if topts.goos == "" {
		topts.goos = "linux"
	}
	if topts.stdin == nil {
		topts.stdin = strings.NewReader("")
	}

	// Not using just :memory: to avoid 'no such table' issue.
	// See https://github.com/mattn/go-sqlite3#faq
	d, err := db.Open(ctx,
		fmt.Sprintf("sqlite:file:rowlog-%x?mode=memory&cache=shared", rndName), "", topts.timeNow)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = d.Close() })

	var (
		fs             = memoryfs.New()
		stdout, stderr = newSafeBuffer(), newSafeBuffer()
		shellCalls     = &[]string{}
		shellMx        sync.Mutex
	)

	opts := []Option{
		WithTimeNow(topts.timeNow),
		WithDB(d),
		WithContext(ctx),
		WithFDs(topts.stdin, stdout, stderr, topts.interactive),
		WithFS(fs),
		WithLogger(false),
		WithExecutable("/usr/local/bin/rowlog"),
		WithAutostart(autostart.WithGOOS(topts.goos), autostart.WithDir("/config/autostart")),
		WithShellRunner(func(_ context.Context, name string, args ...string) ([]byte, error) {
			shellMx.Lock()
			defer shellMx.Unlock()
			*shellCalls = append(*shellCalls, strings.Join(append([]string{name}, args...), " "))
			return nil, nil
		}),
	}
	app, err := New("rowlog", "/config/rowlog/config.json", "/data/rowlog", opts...)
	if err != nil {
		t.Fatal(err)
	}

	return &testApp{App: app, fs: fs, stdout: stdout, stderr: stderr, shellCalls: shellCalls}
}

// Run resets the output buffers, and runs the app with the given arguments.
func (ta *testApp) Run(args ...string) error {
	ta.stdout.Reset()
	ta.stderr.Reset()

	return ta.App.Run(args)
}

// safeBuffer is a thread-safe buffer.
type safeBuffer struct {
	mx  sync.RWMutex
	buf *bytes.Buffer
}

func newSafeBuffer() *safeBuffer {
	return &safeBuffer{buf: &bytes.Buffer{}}
}

func (b *safeBuffer) Write(p []byte) (n int, err error) {
	b.mx.Lock()
	defer b.mx.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) Reset() {
	b.mx.Lock()
	defer b.mx.Unlock()
	b.buf.Reset()
}

func (b *safeBuffer) String() string {
	b.mx.RLock()
	defer b.mx.RUnlock()
	return b.buf.String()
}
