package webtmpl

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/itsatony/go-cuserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var testClock = func() time.Time {
	return time.Date(2024, time.March, 5, 9, 7, 2, 0, time.UTC)
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithClock(testClock)}, opts...)
	engine, err := New(opts...)
	require.NoError(t, err)
	return engine
}

func TestNew(t *testing.T) {
	engine, err := New()
	require.NoError(t, err)
	require.NotNil(t, engine)
	assert.Equal(t, SourceNameNone, engine.SourceName())
	assert.Empty(t, engine.Source())
	assert.Empty(t, engine.Diagnostics())
}

func TestMustNew(t *testing.T) {
	assert.NotPanics(t, func() {
		_ = MustNew(WithLogger(zap.NewNop()))
	})
}

func TestEngine_OrdersScenario(t *testing.T) {
	engine := newTestEngine(t)
	engine.LoadString("Hello {{$username}}{{#FOR orders}} #{{.$id}}:{{.$total}}{{#ENDFOR}} ({{%ROWS}} orders)")
	engine.Set("username", "alice")
	require.NoError(t, engine.DefineLoop("orders", "id", "total"))
	require.NoError(t, engine.AppendRow("orders", []string{"1", "20"}))
	require.NoError(t, engine.AppendValues("orders", 2, 30))

	assert.Equal(t, "Hello alice #1:20 #2:30 (2 orders)", engine.RenderString())
	assert.Empty(t, engine.Diagnostics())

	var buf bytes.Buffer
	require.NoError(t, engine.Render(&buf))
	assert.Equal(t, "Hello alice #1:20 #2:30 (2 orders)", buf.String(), "rendering is idempotent")
}

func TestEngine_ScalarValues(t *testing.T) {
	engine := newTestEngine(t)
	engine.LoadString("[{{$n}}]")

	assert.Equal(t, "[]", engine.RenderString())

	engine.Set("n", "v")
	assert.Equal(t, "v", engine.Value("n"))
	assert.Equal(t, "[v]", engine.RenderString())

	engine.SetInt("n", -42)
	assert.Equal(t, "[-42]", engine.RenderString())
}

func TestEngine_DefineLoop(t *testing.T) {
	t.Run("empty name", func(t *testing.T) {
		engine := newTestEngine(t)
		err := engine.DefineLoop("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgEmptyLoopName)
	})

	t.Run("redefinition and duplicate fields warn", func(t *testing.T) {
		engine := newTestEngine(t)
		require.NoError(t, engine.DefineLoop("l", "a"))
		require.NoError(t, engine.DefineLoop("l", "a", "a"))

		diags := engine.Diagnostics()
		require.Len(t, diags, 2)
		for _, d := range diags {
			assert.Equal(t, SeverityWarning, d.Severity)
			assert.Equal(t, 1, d.Line)
		}
	})
}

func TestEngine_AppendToUndefinedLoop(t *testing.T) {
	engine := newTestEngine(t)

	err := engine.AppendRow("missing", []string{"x"})
	require.Error(t, err)

	var customErr *cuserr.CustomError
	require.True(t, errors.As(err, &customErr))
	loop, ok := customErr.GetMetadata(MetaKeyLoop)
	assert.True(t, ok)
	assert.Equal(t, "missing", loop)

	require.Error(t, engine.AppendRecord("missing", nil))

	diags := engine.Diagnostics()
	require.Len(t, diags, 2)
	assert.Equal(t, SeverityError, diags[0].Severity)
	assert.True(t, engine.HasErrors())
}

func TestEngine_RowArity(t *testing.T) {
	engine := newTestEngine(t)
	require.NoError(t, engine.DefineLoop("l", "a", "b"))
	require.NoError(t, engine.AppendRow("l", []string{"1"}))
	require.NoError(t, engine.AppendRow("l", []string{"1", "2", "3"}))
	require.NoError(t, engine.AppendRecord("l", map[string]string{"b": "B", "zz": "ignored"}))

	info, ok := engine.Loop("l")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, info.Fields)
	for _, row := range info.Rows {
		assert.Len(t, row, 2)
	}
	assert.Equal(t, []string{"", "B"}, info.Rows[2])

	info.Rows[0][0] = "mutated"
	again, _ := engine.Loop("l")
	assert.Equal(t, "1", again.Rows[0][0], "Loop returns a copy")

	_, ok = engine.Loop("missing")
	assert.False(t, ok)
}

func TestEngine_Clear(t *testing.T) {
	engine := newTestEngine(t)
	engine.LoadString("{{$a}}{{#FOR l}}x{{#ENDFOR}}")
	engine.Set("a", "1")
	require.NoError(t, engine.DefineLoop("l", "v"))
	require.NoError(t, engine.AppendRow("l", []string{"v"}))
	assert.Equal(t, "1x", engine.RenderString())

	engine.Clear()
	assert.Empty(t, engine.LoopNames())
	assert.Equal(t, "", engine.RenderString())
}

func TestEngine_LoopCursorAfterRender(t *testing.T) {
	engine := newTestEngine(t)
	engine.LoadString("{{#FOR l}}{{.$v}}{{#ENDFOR}}")
	require.NoError(t, engine.DefineLoop("l", "v"))
	require.NoError(t, engine.AppendRow("l", []string{"a"}))
	require.NoError(t, engine.AppendRow("l", []string{"b"}))

	engine.RenderString()
	info, _ := engine.Loop("l")
	assert.Equal(t, 2, info.Cursor)
}

func TestEngine_RenderWithDiagnostics(t *testing.T) {
	engine := newTestEngine(t, WithTrailerTitle("page"))
	engine.LoadString("a\n{{%FOO}}{{#FOR l}}{{.$v}}{{#ENDFOR}}")
	require.NoError(t, engine.DefineLoop("l", "v"))
	require.NoError(t, engine.AppendRow("l", []string{"x"}))

	var buf bytes.Buffer
	require.NoError(t, engine.RenderWithDiagnostics(&buf))

	want := "a\n{{%FOO}}x" +
		"\n<!-- page 2024-3-5 9:7:2\n" +
		"  source: string\n" +
		"  loops: 1\n" +
		"    loop l\t\t1/1 rows\n" +
		"  diagnostics: 1\n" +
		"    line 2\t\twarning: unknown tag \"{{%FOO}}\"\n" +
		"-->"
	assert.Equal(t, want, buf.String())
	assert.Empty(t, engine.Diagnostics(), "trailer clears the log")
}

func TestEngine_DiagnosticsAccumulate(t *testing.T) {
	engine := newTestEngine(t)
	engine.LoadString("{{%FOO}}")

	engine.RenderString()
	engine.RenderString()
	assert.Len(t, engine.Diagnostics(), 2)

	engine.ClearDiagnostics()
	assert.Empty(t, engine.Diagnostics())
}

func TestEngine_EmptyTemplate(t *testing.T) {
	engine := newTestEngine(t)
	assert.Equal(t, "", engine.RenderString())

	diags := engine.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, SeverityError, diags[0].Severity)
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestEngine_RenderWriteError(t *testing.T) {
	engine := newTestEngine(t)
	engine.LoadString("hello")

	err := engine.Render(failWriter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgWriteFailed)

	err = engine.RenderWithDiagnostics(failWriter{})
	require.Error(t, err)
}

func TestEngine_LoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("hi {{$n}}"), 0o644))

	t.Run("success", func(t *testing.T) {
		engine := newTestEngine(t)
		require.NoError(t, engine.LoadFile(path))
		engine.Set("n", "bob")
		assert.Equal(t, "hi bob", engine.RenderString())
		assert.Equal(t, path, engine.SourceName())
	})

	t.Run("load dir", func(t *testing.T) {
		engine := newTestEngine(t)
		require.NoError(t, engine.LoadDir(dir, "page.tmpl"))
		assert.Equal(t, "hi {{$n}}", engine.Source())
	})

	t.Run("missing file keeps the previous source", func(t *testing.T) {
		engine := newTestEngine(t)
		engine.LoadString("old")

		err := engine.LoadFile(filepath.Join(dir, "missing.tmpl"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgLoadFailed)
		assert.Equal(t, "old", engine.Source())
		assert.Contains(t, engine.SourceName(), "missing.tmpl")

		diags := engine.Diagnostics()
		require.Len(t, diags, 1)
		assert.Equal(t, SeverityError, diags[0].Severity)
	})

	t.Run("empty path", func(t *testing.T) {
		engine := newTestEngine(t)
		require.Error(t, engine.LoadFile(""))
		require.Error(t, engine.LoadDir(dir, ""))
	})
}

func TestEngine_LoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"views/index.tmpl": &fstest.MapFile{Data: []byte("{{%SPACE}}ok")},
	}

	engine := newTestEngine(t)
	require.NoError(t, engine.LoadFS(fsys, "views/index.tmpl"))
	assert.Equal(t, " ok", engine.RenderString())

	require.Error(t, engine.LoadFS(fsys, "views/missing.tmpl"))
	require.Error(t, engine.LoadFS(fsys, ""))
}

func TestEngine_LoadFromStorage(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	require.NoError(t, storage.Save(ctx, &StoredTemplate{Name: "page", Source: "v1"}))
	require.NoError(t, storage.Save(ctx, &StoredTemplate{Name: "page", Source: "v2 {{$x}}"}))

	engine := newTestEngine(t)
	require.NoError(t, engine.LoadFromStorage(ctx, storage, "page"))
	engine.Set("x", "X")
	assert.Equal(t, "v2 X", engine.RenderString())
	assert.Equal(t, "page v2", engine.SourceName())

	err := engine.LoadFromStorage(ctx, storage, "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTemplateNotFound))

	require.Error(t, engine.LoadFromStorage(ctx, nil, "page"))
	require.Error(t, engine.LoadFromStorage(ctx, storage, ""))
}

func TestEngine_RenderFile(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.html")

	engine := newTestEngine(t, WithFileMode(0o600))
	engine.LoadString("<p>{{$x}}</p>")
	engine.Set("x", "hello")

	require.NoError(t, engine.RenderFile(out, false))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "<p>hello</p>", string(data))

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, engine.RenderFile(out, true))
	data, err = os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "<p>hello</p>\n<!-- webtmpl"))

	err = engine.RenderFile(filepath.Join(dir, "no", "such", "dir", "out.html"), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgRenderFailed)
}

func TestEngine_WithDelimiters(t *testing.T) {
	engine := newTestEngine(t, WithDelimiters("<%", "%>"))
	engine.LoadString("{{$a}} <% $a %>")
	engine.Set("a", "1")
	assert.Equal(t, "{{$a}} 1", engine.RenderString())
}

func TestEngine_Logging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	engine := newTestEngine(t, WithLogger(zap.New(core)))
	engine.LoadString("{{%FOO}}")
	engine.RenderString()

	assert.NotEmpty(t, logs.FilterMessage(LogMsgEngineCreated).All())
	assert.NotEmpty(t, logs.FilterMessage(LogMsgTemplateLoaded).All())
	assert.Len(t, logs.FilterMessage("template diagnostic").All(), 1)
}
