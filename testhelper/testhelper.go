package testhelper

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/constants"
	"github.com/stretchr/testify/require"
)

// BagFixture describes a bag to create on disk. Files maps payload
// paths (relative to data/) to their content. Docs maps instruction
// document names, like "edit-files.yml", to their YAML text.
type BagFixture struct {
	Name  string
	Files map[string]string
	Docs  map[string]string
}

// MakeBag creates the bag described by fixture under parent and
// returns its path.
func MakeBag(t *testing.T, parent string, fixture BagFixture) string {
	bagPath := filepath.Join(parent, fixture.Name)
	require.Nil(t, os.MkdirAll(filepath.Join(bagPath, constants.PayloadDir), 0755))
	for path, content := range fixture.Files {
		WriteFile(t, filepath.Join(bagPath, constants.PayloadDir, filepath.FromSlash(path)), content)
	}
	for name, content := range fixture.Docs {
		WriteFile(t, filepath.Join(bagPath, name), content)
	}
	return bagPath
}

// MakeDeposit creates a deposit directory in a fresh temp dir, with a
// deposit.properties file when properties is not empty, and returns
// its path.
func MakeDeposit(t *testing.T, name string, properties map[string]string, bags ...BagFixture) string {
	depositPath := filepath.Join(t.TempDir(), name)
	require.Nil(t, os.MkdirAll(depositPath, 0755))
	if len(properties) > 0 {
		keys := make([]string, 0, len(properties))
		for key := range properties {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		text := ""
		for _, key := range keys {
			text += key + " = " + properties[key] + "\n"
		}
		WriteFile(t, filepath.Join(depositPath, constants.DepositPropertiesFile), text)
	}
	for _, bag := range bags {
		MakeBag(t, depositPath, bag)
	}
	return depositPath
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	require.Nil(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.Nil(t, ioutil.WriteFile(path, []byte(content), 0644))
}

// WriteBytes writes size bytes of filler to path.
func WriteBytes(t *testing.T, path string, size int) {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte('a' + i%26)
	}
	require.Nil(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.Nil(t, ioutil.WriteFile(path, data, 0644))
}
