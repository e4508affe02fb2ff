package sandbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAcceptsDescendants(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pkg", "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pkg", "sub", "mod.py"), []byte("x = 1\n"), 0644))

	t.Run("relative path inside root", func(t *testing.T) {
		resolved, err := Resolve("pkg/sub/mod.py", root)
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(resolved))
		assert.Contains(t, resolved, filepath.Join("pkg", "sub", "mod.py"))
	})

	t.Run("absolute path inside root", func(t *testing.T) {
		resolved, err := Resolve(filepath.Join(root, "pkg", "sub", "mod.py"), root)
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(resolved))
	})

	t.Run("not yet created file inside root", func(t *testing.T) {
		resolved, err := Resolve("pkg/new_file.py", root)
		require.NoError(t, err)
		assert.Contains(t, resolved, "new_file.py")
	})

	t.Run("root itself", func(t *testing.T) {
		_, err := Resolve(root, root)
		require.NoError(t, err)
	})
}

func TestResolveRejectsEscapes(t *testing.T) {
	root := t.TempDir()

	t.Run("parent traversal", func(t *testing.T) {
		_, err := Resolve(filepath.Join(root, "..", "anything"), root)
		var secErr *SecurityError
		require.ErrorAs(t, err, &secErr)
	})

	t.Run("relative traversal", func(t *testing.T) {
		_, err := Resolve("../outside.py", root)
		var secErr *SecurityError
		require.ErrorAs(t, err, &secErr)
	})

	t.Run("nested traversal escaping root", func(t *testing.T) {
		_, err := Resolve("a/b/../../../escape.py", root)
		var secErr *SecurityError
		require.ErrorAs(t, err, &secErr)
	})

	t.Run("absolute path outside root", func(t *testing.T) {
		outside := t.TempDir()
		_, err := Resolve(filepath.Join(outside, "x.py"), root)
		var secErr *SecurityError
		require.ErrorAs(t, err, &secErr)
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := Resolve("", root)
		var secErr *SecurityError
		require.ErrorAs(t, err, &secErr)
	})
}

func TestResolveSiblingPrefixIsNotContainment(t *testing.T) {
	// /tmp/xxx/sandboxed must not be treated as inside /tmp/xxx/sandbox.
	base := t.TempDir()
	root := filepath.Join(base, "sandbox")
	sibling := filepath.Join(base, "sandboxed")
	require.NoError(t, os.MkdirAll(root, 0755))
	require.NoError(t, os.MkdirAll(sibling, 0755))

	_, err := Resolve(filepath.Join(sibling, "f.py"), root)
	var secErr *SecurityError
	require.ErrorAs(t, err, &secErr)
}

func TestResolveSymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.py"), []byte("key = 42\n"), 0644))

	t.Run("symlinked file pointing outside", func(t *testing.T) {
		link := filepath.Join(root, "inner.py")
		require.NoError(t, os.Symlink(filepath.Join(outside, "secret.py"), link))

		_, err := Resolve(link, root)
		var secErr *SecurityError
		require.ErrorAs(t, err, &secErr)
	})

	t.Run("symlinked directory pointing outside", func(t *testing.T) {
		link := filepath.Join(root, "dir")
		require.NoError(t, os.Symlink(outside, link))

		_, err := Resolve(filepath.Join(link, "secret.py"), root)
		var secErr *SecurityError
		require.ErrorAs(t, err, &secErr)
	})
}

func TestReadFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.py"), []byte("print('hi')\n"), 0644))

	t.Run("reads file inside root", func(t *testing.T) {
		content, err := ReadFile("a.py", root)
		require.NoError(t, err)
		assert.Equal(t, "print('hi')\n", content)
	})

	t.Run("missing file wraps ErrNotFound", func(t *testing.T) {
		_, err := ReadFile("missing.py", root)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("escape is a security error", func(t *testing.T) {
		_, err := ReadFile("../a.py", root)
		var secErr *SecurityError
		require.ErrorAs(t, err, &secErr)
	})
}

func TestWriteFile(t *testing.T) {
	t.Run("writes file inside root", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, WriteFile("out.py", "x = 1\n", root))

		data, err := os.ReadFile(filepath.Join(root, "out.py"))
		require.NoError(t, err)
		assert.Equal(t, "x = 1\n", string(data))
	})

	t.Run("creates intermediate directories", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, WriteFile("deep/nested/out.py", "x = 1\n", root))

		_, err := os.Stat(filepath.Join(root, "deep", "nested", "out.py"))
		require.NoError(t, err)
	})

	t.Run("overwrite replaces content atomically", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, WriteFile("f.py", "old\n", root))
		require.NoError(t, WriteFile("f.py", "new\n", root))

		data, err := os.ReadFile(filepath.Join(root, "f.py"))
		require.NoError(t, err)
		assert.Equal(t, "new\n", string(data))
	})

	t.Run("escape is a security error", func(t *testing.T) {
		root := t.TempDir()
		err := WriteFile("../evil.py", "x\n", root)
		var secErr *SecurityError
		require.ErrorAs(t, err, &secErr)
	})

	t.Run("leaves no staging files behind", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, WriteFile("f.py", "x\n", root))

		entries, err := os.ReadDir(root)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}

func TestListSourceFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.py"), []byte("a"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pkg"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pkg", "b.py"), []byte("b"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.py.orig"), []byte("a"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "__pycache__"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "__pycache__", "c.py"), []byte("c"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "d.py"), []byte("d"), 0644))

	files, err := ListSourceFiles(root, ".py")
	require.NoError(t, err)
	require.Len(t, files, 2)

	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	assert.Contains(t, names, "a.py")
	assert.Contains(t, names, "b.py")
}
