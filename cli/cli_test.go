package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/robinvdvleuten/ledgerscript/loader"
)

func TestProgramFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "fee.dsl", feeProgram)
	f := &ProgramFile{Path: path}

	assert.NoError(t, f.resolve())
	assert.False(t, f.IsStdin())
	assert.Equal(t, path, f.Name())
	abs, err := filepath.Abs(path)
	assert.NoError(t, err)
	assert.Equal(t, abs, f.AbsPath())

	source, err := f.Source()
	assert.NoError(t, err)
	assert.Equal(t, feeProgram, string(source))

	t.Run("SourceIsReadOnce", func(t *testing.T) {
		assert.NoError(t, os.WriteFile(path, []byte("x = 1\n"), 0o600))
		source, err := f.Source()
		assert.NoError(t, err)
		assert.Equal(t, feeProgram, string(source))

		f.reload()
		source, err = f.Source()
		assert.NoError(t, err)
		assert.Equal(t, "x = 1\n", string(source))
	})

	t.Run("Load", func(t *testing.T) {
		prog, err := f.Load(context.Background(), loader.New())
		assert.NoError(t, err)
		assert.Equal(t, 1, len(prog.Statements()))
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := (&ProgramFile{Path: filepath.Join(dir, "nope.dsl")}).Source()
		assert.Error(t, err)
	})
}

func TestProgramFileFromStdin(t *testing.T) {
	f := &ProgramFile{source: []byte(rowProgram), stdin: true}

	assert.NoError(t, f.resolve())
	assert.True(t, f.IsStdin())
	assert.Equal(t, "<stdin>", f.Name())
	assert.Equal(t, "<stdin>", f.AbsPath())

	f.reload()
	source, err := f.Source()
	assert.NoError(t, err)
	assert.Equal(t, rowProgram, string(source))

	prog, err := f.Load(context.Background(), loader.New(loader.WithBaseDir(t.TempDir())))
	assert.NoError(t, err)
	assert.Equal(t, 2, len(prog.Statements()))
}
