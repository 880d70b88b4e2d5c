package hooks

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstallAndUninstall(t *testing.T) {
	gitDir := t.TempDir()

	installed, err := Install(gitDir)
	require.NoError(t, err)
	assert.Equal(t, Names(), installed)
	assert.True(t, Installed(gitDir))

	for _, name := range Names() {
		path := filepath.Join(gitDir, "hooks", name)
		info, err := os.Stat(path)
		require.NoError(t, err)
		if runtime.GOOS != "windows" {
			assert.Equal(t, os.FileMode(0755), info.Mode().Perm(), "hooks must be executable")
		}

		data, _ := os.ReadFile(path)
		assert.Contains(t, string(data), marker)
	}

	removed, err := Uninstall(gitDir)
	require.NoError(t, err)
	assert.Equal(t, Names(), removed)
	assert.False(t, Installed(gitDir))
}

func TestInstall_Idempotent(t *testing.T) {
	gitDir := t.TempDir()

	_, err := Install(gitDir)
	require.NoError(t, err)
	// 重复安装直接覆盖自己的脚本，不报错
	_, err = Install(gitDir)
	require.NoError(t, err)
}

func TestInstall_RefusesForeignHook(t *testing.T) {
	gitDir := t.TempDir()
	hooksDir := filepath.Join(gitDir, "hooks")
	require.NoError(t, os.MkdirAll(hooksDir, 0755))

	// 用户自己的 pre-push 必须保护起来
	foreign := "#!/bin/sh\necho my own hook\n"
	require.NoError(t, os.WriteFile(filepath.Join(hooksDir, "pre-push"), []byte(foreign), 0755))

	_, err := Install(gitDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pre-push")

	data, _ := os.ReadFile(filepath.Join(hooksDir, "pre-push"))
	assert.Equal(t, foreign, string(data))
}

func TestUninstall_SkipsForeignHook(t *testing.T) {
	gitDir := t.TempDir()
	hooksDir := filepath.Join(gitDir, "hooks")
	require.NoError(t, os.MkdirAll(hooksDir, 0755))

	foreign := "#!/bin/sh\necho keep me\n"
	require.NoError(t, os.WriteFile(filepath.Join(hooksDir, "post-merge"), []byte(foreign), 0755))

	removed, err := Uninstall(gitDir)
	require.NoError(t, err)
	assert.Empty(t, removed)

	_, err = os.Stat(filepath.Join(hooksDir, "post-merge"))
	assert.NoError(t, err)
}
