package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/marmos91/dittodrive/cmd/dittodrive/cmdutil"
	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `logging:
  level: ERROR
  format: text
  output: stderr
metadata:
  type: badger
  badger:
    path: %[1]s/metadata
blob:
  type: fs
  fs:
    path: %[1]s/blobs
identity:
  database:
    type: sqlite
    sqlite:
      path: %[1]s/identity.db
  token:
    secret: 0123456789abcdef0123456789abcdef
  initial_user:
    email: test@example.com
    password: password
    display_name: Test User
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(testConfig, dir)), 0600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		cmdutil.Flags.ConfigFile = ""
		cmdutil.Flags.Output = "table"
		rootCmd.PersistentFlags().Lookup("output").Changed = false
		lsOwner = ""
		seedOwner = ""
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "dittodrive "+Version)
	assert.Contains(t, out, runtime.Version())

	out, err = execute(t, "version", "-o", "json")
	require.NoError(t, err)
	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, Version, info["version"])
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info["platform"])
}

func TestSeedThenList(t *testing.T) {
	path := writeTestConfig(t)

	out, err := execute(t, "seed", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created folder Work Documents")
	assert.Contains(t, out, "Uploaded beach.jpg")

	out, err = execute(t, "ls", "--config", path, "-o", "json")
	require.NoError(t, err)

	var root listing
	require.NoError(t, json.Unmarshal([]byte(out), &root))
	assert.Equal(t, drive.RootFolderName, root.Path)
	assert.False(t, root.Nav.Redirected)

	folders := map[string]string{}
	for _, f := range root.Nav.Contents.Folders {
		folders[f.Name] = f.ID
	}
	assert.Contains(t, folders, "Work Documents")
	assert.Contains(t, folders, "Vacation Photos")
	require.Len(t, root.Nav.Contents.Files, 1)
	assert.Equal(t, "logo.png", root.Nav.Contents.Files[0].Name)
	assert.Equal(t, int64(87654), root.Nav.Contents.Files[0].Size)

	out, err = execute(t, "ls", folders["Work Documents"], "--config", path, "-o", "json")
	require.NoError(t, err)

	var work listing
	require.NoError(t, json.Unmarshal([]byte(out), &work))
	assert.Equal(t, "My Drive / Work Documents", work.Path)
	require.Len(t, work.Nav.Contents.Folders, 1)
	assert.Equal(t, "Project X", work.Nav.Contents.Folders[0].Name)
	require.Len(t, work.Nav.Contents.Files, 1)
	assert.Equal(t, "application/pdf", work.Nav.Contents.Files[0].MimeType)

	// A second seed reuses the folders.
	out, err = execute(t, "seed", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Folder Work Documents already exists")
}

func TestListMissingFolderFallsBackToRoot(t *testing.T) {
	path := writeTestConfig(t)

	out, err := execute(t, "ls", "does-not-exist", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, `Folder "does-not-exist" not found`)
	assert.Contains(t, out, drive.RootFolderName)
	assert.Contains(t, out, "(empty)")
}

func TestListUnknownOwner(t *testing.T) {
	path := writeTestConfig(t)

	_, err := execute(t, "ls", "--config", path, "--as", "nobody@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestInitWritesLoadableConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")

	out, err := execute(t, "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration file created at: "+path)

	out, err = execute(t, "config", "validate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")

	out, err = execute(t, "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "********")
	assert.NotContains(t, out, "password: password")
}

func TestBreadcrumbPath(t *testing.T) {
	assert.Equal(t, "My Drive", breadcrumbPath([]drive.Breadcrumb{{ID: drive.RootFolderID, Name: drive.RootFolderName}}))
	assert.Equal(t, "My Drive / a / b", breadcrumbPath([]drive.Breadcrumb{
		{ID: drive.RootFolderID, Name: drive.RootFolderName},
		{ID: "1", Name: "a"},
		{ID: "2", Name: "b"},
	}))
}
